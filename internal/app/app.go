package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"trackor-auth/internal/cache"
	"trackor-auth/internal/config"
	"trackor-auth/internal/database"
	"trackor-auth/internal/handler"
	"trackor-auth/internal/mail"
	"trackor-auth/internal/middleware"
	"trackor-auth/internal/repository"
	"trackor-auth/internal/router"
	"trackor-auth/internal/service"
	"trackor-auth/internal/token"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	otpRepo := repository.NewOtpRepository(pool, cfg.OtpTTL)
	slog.Info("database ready")

	var revocations service.RevocationStore
	cleanupFuncs := []func(){func() { db.Close() }}
	if cfg.RevocationBackend == config.BackendRedis {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		revocations = cache.NewRevocationStore(redisClient)
		cleanupFuncs = append(cleanupFuncs, func() { _ = redisClient.Close() })
		slog.Info("revocation store backed by redis", "addr", cfg.RedisAddr)
	} else {
		revocations = repository.NewRevocationRepository(pool)
	}

	codec := token.NewCodec(cfg.JWTSecret, cfg.AccessTokenTTL)

	sender := mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom, cfg.PublicURL)
	mailWorker := mail.NewWorker(sender, 64)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	cleanupFuncs = append(cleanupFuncs, workerCancel)
	mailWorker.Start(workerCtx, cfg.MailWorkers)

	authService := service.NewAuthService(userRepo, otpRepo, revocations, codec, mailWorker, service.TokenTTLs{
		Access:     cfg.AccessTokenTTL,
		Refresh:    cfg.RefreshTokenTTL,
		RememberMe: cfg.RememberMeTTL,
		VerifyLink: cfg.VerifyLinkTTL,
		ResetLink:  cfg.ResetLinkTTL,
	})
	tokenService := service.NewTokenService(codec, revocations, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	authMiddleware := middleware.NewAuthMiddleware(authService)
	authHandler := handler.NewAuthHandler(authService, tokenService, handler.CookiePolicy{
		AccessMaxAge:   cfg.AccessTokenTTL,
		RememberMaxAge: cfg.RememberMeTTL,
		RefreshMaxAge:  cfg.RefreshTokenTTL,
		Secure:         true,
	})
	userHandler := handler.NewUserHandler(authService)

	go service.NewPurgeJob(revocations, cfg.PurgeInterval).Run(workerCtx)

	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth: authHandler,
		User: userHandler,
	}, db.Health)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server:       server,
		db:           db,
		cleanupFuncs: cleanupFuncs,
	}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	slog.Info("server stopped")
	return nil
}
