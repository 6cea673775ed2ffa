package handler_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackor-auth/internal/config"
	"trackor-auth/internal/handler"
	"trackor-auth/internal/mail"
	"trackor-auth/internal/middleware"
	"trackor-auth/internal/model"
	"trackor-auth/internal/router"
	"trackor-auth/internal/service"
	"trackor-auth/internal/token"
)

// End-to-end flow over the real router and services, with in-memory
// stand-ins for Postgres and SMTP.

type memStore struct {
	mu       sync.Mutex
	users    map[string]model.User
	otps     map[string]model.OtpRecord // keyed by target|context
	revoked  map[string]model.RevocationRecord
	messages []mail.Message
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]model.User{},
		otps:    map[string]model.OtpRecord{},
		revoked: map[string]model.RevocationRecord{},
	}
}

func (m *memStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (m *memStore) FindByID(_ context.Context, id string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (m *memStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	return err == nil, nil
}

func (m *memStore) Create(_ context.Context, u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *memStore) MarkEmailVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	now := time.Now().UTC()
	u.EmailVerified = &now
	m.users[id] = u
	return nil
}

func (m *memStore) UpdatePasswordAndRevoke(_ context.Context, userID string, passwordHash string, rec model.RevocationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	m.users[userID] = u
	m.revoked[rec.Token] = rec
	return nil
}

func (m *memStore) SoftDelete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return model.ErrUserNotFound
	}
	now := time.Now().UTC()
	u.DeletedAt = &now
	m.users[id] = u
	return nil
}

func (m *memStore) List(_ context.Context) ([]model.PublicUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.PublicUser, 0, len(m.users))
	for _, u := range m.users {
		if u.DeletedAt == nil {
			out = append(out, u.Public())
		}
	}
	return out, nil
}

func (m *memStore) Generate(_ context.Context, target string, otpContext string) (model.OtpIssued, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return model.OtpIssued{}, err
	}
	rec := model.OtpRecord{
		Digits:    fmt.Sprintf("%06d", n.Int64()),
		Target:    target,
		Context:   otpContext,
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}
	m.otps[target+"|"+otpContext] = rec
	return model.OtpIssued{Digits: rec.Digits, ExpiresAt: rec.ExpiresAt}, nil
}

func (m *memStore) Verify(_ context.Context, digits string, target string, otpContext string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := target + "|" + otpContext
	rec, ok := m.otps[key]
	if !ok || rec.Digits != digits {
		return model.ErrOtpNotFound
	}
	if time.Now().After(rec.ExpiresAt) {
		return model.ErrOtpExpired
	}
	delete(m.otps, key)
	return nil
}

func (m *memStore) IsRevoked(_ context.Context, tokenString string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[tokenString]
	return ok, nil
}

func (m *memStore) Revoke(_ context.Context, tokenString string, issuedAt time.Time, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenString] = model.RevocationRecord{Token: tokenString, IssuedAt: issuedAt, ExpiresAt: expiresAt}
	return nil
}

func (m *memStore) PurgeExpired(_ context.Context) (int64, error) { return 0, nil }

func (m *memStore) Enqueue(msg mail.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *memStore) lastMail(t *testing.T) mail.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.messages)
	return m.messages[len(m.messages)-1]
}

type apiEnv struct {
	server *httptest.Server
	client *http.Client
	store  *memStore
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	store := newMemStore()
	codec := token.NewCodec("test-secret", 30*time.Minute)
	ttls := service.TokenTTLs{
		Access:     30 * time.Minute,
		Refresh:    60 * 24 * time.Hour,
		RememberMe: 15 * 24 * time.Hour,
		VerifyLink: 24 * time.Hour,
		ResetLink:  48 * time.Hour,
	}

	authService := service.NewAuthService(store, store, store, codec, store, ttls)
	tokenService := service.NewTokenService(codec, store, ttls.Access, ttls.Refresh)

	authHandler := handler.NewAuthHandler(authService, tokenService, handler.CookiePolicy{
		AccessMaxAge:   ttls.Access,
		RememberMaxAge: ttls.RememberMe,
		RefreshMaxAge:  ttls.Refresh,
		Secure:         false,
	})
	userHandler := handler.NewUserHandler(authService)

	cfg := &config.Config{
		RequestTimeout:   10 * time.Second,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     10_000,
		AuthRateLimitRPM: 10_000,
	}

	h := router.New(cfg, middleware.NewAuthMiddleware(authService), router.Handlers{
		Auth: authHandler,
		User: userHandler,
	}, func(context.Context) error { return nil })

	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &apiEnv{
		server: server,
		client: &http.Client{Jar: jar},
		store:  store,
	}
}

func (e *apiEnv) do(t *testing.T, method string, path string, body any) (*http.Response, model.APIResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded model.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

var digitsPattern = regexp.MustCompile(`\d{6}`)

func TestAuthAPI_FullLifecycle(t *testing.T) {
	env := newAPIEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/auth/signup", model.SignupRequest{
		Email:    "parent@x.com",
		Name:     "Parent",
		Password: "hunter2-hunter2",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, body.Success)

	t.Run("login blocked before verification", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/api/v1/auth/login", model.LoginRequest{
			Email: "parent@x.com", Password: "hunter2-hunter2",
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		require.NotNil(t, body.Error)
		assert.Equal(t, "EMAIL_UNVERIFIED", body.Error.Code)
	})

	otp := digitsPattern.FindString(env.store.lastMail(t).Body)
	require.Len(t, otp, 6)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/auth/verify-otp", model.VerifyOtpRequest{
		Otp: otp, Email: "parent@x.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/api/v1/auth/login", model.LoginRequest{
		Email: "parent@x.com", Password: "hunter2-hunter2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, body.Success)

	var sessionCookies []string
	for _, c := range resp.Cookies() {
		sessionCookies = append(sessionCookies, c.Name)
	}
	assert.Contains(t, sessionCookies, middleware.CookieAccessToken)
	assert.Contains(t, sessionCookies, middleware.CookieRefreshToken)

	t.Run("me reflects the session", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/v1/auth/me", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		raw, err := json.Marshal(body.Data)
		require.NoError(t, err)
		var user model.PublicUser
		require.NoError(t, json.Unmarshal(raw, &user))
		assert.Equal(t, "parent@x.com", user.Email)
	})

	t.Run("refresh rotates the cookie pair", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/v1/auth/refresh-token?type=access", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, body.Success)

		var names []string
		for _, c := range resp.Cookies() {
			names = append(names, c.Name)
		}
		assert.Contains(t, names, middleware.CookieAccessToken)
		assert.Contains(t, names, middleware.CookieRefreshToken)
	})

	t.Run("logout kills the session", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodDelete, "/api/v1/auth/logout", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = env.do(t, http.MethodGet, "/api/v1/auth/me", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestAuthAPI_PasswordReset(t *testing.T) {
	env := newAPIEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/v1/auth/signup", model.SignupRequest{
		Email: "parent@x.com", Name: "Parent", Password: "old-password-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	otp := digitsPattern.FindString(env.store.lastMail(t).Body)
	resp, _ = env.do(t, http.MethodPost, "/api/v1/auth/verify-otp", model.VerifyOtpRequest{Otp: otp, Email: "parent@x.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/auth/forgot", model.ForgotPasswordRequest{Email: "parent@x.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	href := env.store.lastMail(t).Href
	require.Contains(t, href, "token=")
	resetQuery := href[strings.Index(href, "token="):]

	resp, _ = env.do(t, http.MethodPut, "/api/v1/auth/reset-password?"+resetQuery, model.ResetPasswordRequest{
		NewPassword: "new-password-9",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	t.Run("link is single use", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPut, "/api/v1/auth/reset-password?"+resetQuery, model.ResetPasswordRequest{
			NewPassword: "sneaky-password",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.NotNil(t, body.Error)
		assert.Equal(t, "TOKEN_REVOKED", body.Error.Code)
	})

	resp, _ = env.do(t, http.MethodPost, "/api/v1/auth/login", model.LoginRequest{
		Email: "parent@x.com", Password: "new-password-9",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthAPI_AdminGate(t *testing.T) {
	env := newAPIEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/v1/auth/signup", model.SignupRequest{
		Email: "parent@x.com", Name: "Parent", Password: "hunter2-hunter2",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	otp := digitsPattern.FindString(env.store.lastMail(t).Body)
	resp, _ = env.do(t, http.MethodPost, "/api/v1/auth/verify-otp", model.VerifyOtpRequest{Otp: otp, Email: "parent@x.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPost, "/api/v1/auth/login", model.LoginRequest{
		Email: "parent@x.com", Password: "hunter2-hunter2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	t.Run("parent cannot list users", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodGet, "/api/v1/users", nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("anonymous cannot list users", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/v1/users", nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
