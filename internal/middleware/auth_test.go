package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackor-auth/internal/model"
)

type stubResolver struct {
	principals map[string]model.Principal
}

func (s *stubResolver) ValidateAccess(_ context.Context, tokenString string) (model.Principal, error) {
	principal, ok := s.principals[tokenString]
	if !ok {
		return model.Principal{}, model.ErrTokenInvalid
	}
	return principal, nil
}

func newAuthTestSetup() (*AuthMiddleware, model.Principal) {
	principal := model.Principal{ID: "user-1", Email: "a@x.com", Role: "parent", CreatedAt: time.Now().UTC()}
	resolver := &stubResolver{principals: map[string]model.Principal{
		"good-token": principal,
		"admin-token": {ID: "user-2", Email: "root@x.com", Role: "admin"},
	}}
	return NewAuthMiddleware(resolver), principal
}

func echoPrincipal(t *testing.T, want *model.Principal) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if want == nil {
			assert.False(t, ok, "no principal expected on context")
		} else {
			require.True(t, ok, "principal expected on context")
			assert.Equal(t, *want, principal)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth(t *testing.T) {
	m, principal := newAuthTestSetup()

	t.Run("no token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		m.RequireAuth(echoPrincipal(t, nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer forged")
		rec := httptest.NewRecorder()
		m.RequireAuth(echoPrincipal(t, nil)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("cookie token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieAccessToken, Value: "good-token"})
		rec := httptest.NewRecorder()
		m.RequireAuth(echoPrincipal(t, &principal)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("bearer header token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		m.RequireAuth(echoPrincipal(t, &principal)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("cookie wins over header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieAccessToken, Value: "good-token"})
		req.Header.Set("Authorization", "Bearer forged")
		rec := httptest.NewRecorder()
		m.RequireAuth(echoPrincipal(t, &principal)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestOptionalAuth(t *testing.T) {
	m, principal := newAuthTestSetup()

	t.Run("no token proceeds anonymously", func(t *testing.T) {
		rec := httptest.NewRecorder()
		m.OptionalAuth(echoPrincipal(t, nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("bad token proceeds anonymously", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer forged")
		rec := httptest.NewRecorder()
		m.OptionalAuth(echoPrincipal(t, nil)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("valid token attaches the principal", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieAccessToken, Value: "good-token"})
		rec := httptest.NewRecorder()
		m.OptionalAuth(echoPrincipal(t, &principal)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequireRoles(t *testing.T) {
	m, _ := newAuthTestSetup()
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	gated := m.RequireAuth(m.RequireRoles("admin")(ok))

	t.Run("admin passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer admin-token")
		rec := httptest.NewRecorder()
		gated.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("non-admin forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		gated.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "FORBIDDEN")
	})

	t.Run("unauthenticated rejected before role check", func(t *testing.T) {
		rec := httptest.NewRecorder()
		m.RequireRoles("admin")(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestExtractRefreshToken(t *testing.T) {
	t.Run("cookie only", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieRefreshToken, Value: "refresh-value"})
		assert.Equal(t, "refresh-value", ExtractRefreshToken(req))
	})

	t.Run("no header fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer refresh-value")
		assert.Empty(t, ExtractRefreshToken(req))
	})
}
