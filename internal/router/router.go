package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"trackor-auth/internal/config"
	"trackor-auth/internal/handler"
	"trackor-auth/internal/middleware"
)

type Handlers struct {
	Auth *handler.AuthHandler
	User *handler.UserHandler
}

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	handlers Handlers,
	healthCheck func(ctx context.Context) error,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := healthCheck(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("degraded"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			// Public endpoints run through the lenient gate so a valid
			// session can still personalize them.
			auth.With(authMiddleware.OptionalAuth).Post("/signup", handlers.Auth.Signup)
			auth.With(authMiddleware.OptionalAuth).Post("/verify-otp", handlers.Auth.VerifyOtp)
			auth.With(authMiddleware.OptionalAuth).Post("/resend-otp", handlers.Auth.ResendOtp)
			auth.With(authMiddleware.OptionalAuth).Post("/verify-email", handlers.Auth.VerifyEmail)
			auth.With(authMiddleware.OptionalAuth).Post("/resend-verification-link", handlers.Auth.ResendVerificationLink)
			auth.With(authMiddleware.OptionalAuth).Post("/login", handlers.Auth.Login)
			auth.With(authMiddleware.OptionalAuth).Post("/forgot", handlers.Auth.ForgotPassword)
			auth.With(authMiddleware.OptionalAuth).Put("/reset-password", handlers.Auth.ResetPassword)

			auth.With(authMiddleware.RequireAuth).Get("/refresh-token", handlers.Auth.RefreshToken)
			auth.With(authMiddleware.RequireAuth).Delete("/logout", handlers.Auth.Logout)
			auth.With(authMiddleware.RequireAuth).Get("/me", handlers.Auth.Me)
		})

		api.With(authMiddleware.RequireAuth, authMiddleware.RequireRoles("admin")).Get("/users", handlers.User.List)
		api.With(authMiddleware.RequireAuth, authMiddleware.RequireRoles("admin")).Delete("/users/{user_id}", handlers.User.Disable)
	})

	return r
}
