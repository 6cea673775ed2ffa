package middleware

import (
	"context"
	"net/http"
	"strings"

	"trackor-auth/internal/model"
)

// Cookie names the browser transport uses for the token pair. The
// Authorization header is the fallback for non-browser clients.
const (
	CookieAccessToken  = "_lat"
	CookieRefreshToken = "_lrt"
)

type principalResolver interface {
	ValidateAccess(ctx context.Context, tokenString string) (model.Principal, error)
}

type contextKey string

const principalContextKey contextKey = "principal"

type AuthMiddleware struct {
	resolver principalResolver
}

func NewAuthMiddleware(resolver principalResolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// RequireAuth is the strict gate: missing token, failed verification,
// revoked session, or an unknown/disabled account all reject with 401.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := ExtractAccessToken(r)
		if tokenString == "" {
			writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
			return
		}

		principal, err := m.resolver.ValidateAccess(r.Context(), tokenString)
		if err != nil {
			writeUnauthorized(w, "UNAUTHORIZED", "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
	})
}

// OptionalAuth is the lenient gate for public routes: a valid token
// attaches the principal so the endpoint can personalize, any failure is
// swallowed and the request proceeds unauthenticated.
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := ExtractAccessToken(r)
		if tokenString == "" {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := m.resolver.ValidateAccess(r.Context(), tokenString)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
	})
}

// RequireRoles layers on top of RequireAuth.
func (m *AuthMiddleware) RequireRoles(allowedRoles ...string) func(http.Handler) http.Handler {
	roleSet := map[string]struct{}{}
	for _, role := range allowedRoles {
		roleSet[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
				return
			}

			if _, exists := roleSet[strings.ToLower(principal.Role)]; !exists {
				writeUnauthorized(w, "FORBIDDEN", "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ExtractAccessToken prefers the session cookie over the Authorization
// header.
func ExtractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(CookieAccessToken); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return strings.TrimSpace(cookie.Value)
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// ExtractRefreshToken reads the refresh cookie; no header fallback, the
// refresh token never travels as a bearer credential.
func ExtractRefreshToken(r *http.Request) string {
	cookie, err := r.Cookie(CookieRefreshToken)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func withPrincipal(ctx context.Context, principal model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(model.Principal)
	return principal, ok
}

func writeUnauthorized(w http.ResponseWriter, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	if code == "FORBIDDEN" {
		w.WriteHeader(http.StatusForbidden)
	} else {
		w.WriteHeader(http.StatusUnauthorized)
	}

	_ = jsonEncode(w, model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    code,
			Message: message,
		},
	})
}
