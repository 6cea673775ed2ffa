package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"trackor-auth/internal/middleware"
	"trackor-auth/internal/model"
	"trackor-auth/internal/service"
	"trackor-auth/pkg/apierror"
)

// CookiePolicy is the browser-transport side of session issuance: how
// long each cookie lives and whether it requires TLS.
type CookiePolicy struct {
	AccessMaxAge   time.Duration
	RememberMaxAge time.Duration
	RefreshMaxAge  time.Duration
	Secure         bool
}

type AuthHandler struct {
	auth    *service.AuthService
	tokens  *service.TokenService
	cookies CookiePolicy
}

func NewAuthHandler(auth *service.AuthService, tokens *service.TokenService, cookies CookiePolicy) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens, cookies: cookies}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	if err := h.auth.Signup(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "An OTP is sent to your email address.", nil)
}

func (h *AuthHandler) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.VerifyOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	if err := h.auth.VerifyOtp(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "OTP verified successfully.", nil)
}

func (h *AuthHandler) ResendOtp(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.ResendOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	if err := h.auth.ResendOtp(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "OTP sent successfully.", nil)
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	tokenString := strings.TrimSpace(r.URL.Query().Get("token"))
	if tokenString == "" {
		writeError(w, apierror.New("BAD_REQUEST", "token is required", "token", http.StatusBadRequest))
		return
	}

	if err := h.auth.VerifyEmailLink(r.Context(), tokenString); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Email successfully verified.", nil)
}

func (h *AuthHandler) ResendVerificationLink(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.ResendVerificationLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	if err := h.auth.ResendVerificationLink(r.Context(), payload.Email); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Verification link sent to your email.", nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	pair, _, err := h.auth.Login(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	accessAge := h.cookies.AccessMaxAge
	if payload.RememberMe {
		accessAge = h.cookies.RememberMaxAge
	}
	h.setCookie(w, middleware.CookieAccessToken, pair.AccessToken, accessAge)
	h.setCookie(w, middleware.CookieRefreshToken, pair.RefreshToken, h.cookies.RefreshMaxAge)

	writeSuccess(w, http.StatusOK, "Logged in successfully.", pair)
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), payload.Email); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "A password reset link is sent to your email address.",
		map[string]string{"email": payload.Email})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	tokenString := strings.TrimSpace(r.URL.Query().Get("token"))
	if err := h.auth.ResetPassword(r.Context(), tokenString, payload.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Password reset successfully.", nil)
}

// RefreshToken rotates the refresh cookie. `?type=access` additionally
// mints a fresh access token; the claimed principal comes from the
// request's own still-valid access token.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return
	}

	refreshToken := middleware.ExtractRefreshToken(r)
	wantAccess := r.URL.Query().Get("type") == "access"

	pair, err := h.tokens.Rotate(r.Context(), refreshToken, principal.ID, wantAccess)
	if err != nil {
		writeError(w, err)
		return
	}

	if pair.AccessToken != "" {
		h.setCookie(w, middleware.CookieAccessToken, pair.AccessToken, h.cookies.AccessMaxAge)
	}
	h.setCookie(w, middleware.CookieRefreshToken, pair.RefreshToken, h.cookies.RefreshMaxAge)

	writeSuccess(w, http.StatusOK, "", pair)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	tokens := []string{
		middleware.ExtractAccessToken(r),
		middleware.ExtractRefreshToken(r),
	}
	h.auth.Logout(r.Context(), tokens)

	h.clearCookie(w, middleware.CookieAccessToken)
	h.clearCookie(w, middleware.CookieRefreshToken)

	writeSuccess(w, http.StatusOK, "Successfully logged out.", nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", user)
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, name string, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
