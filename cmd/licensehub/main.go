package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/poyrazK/licenseHub/internal/adapters/api"
	"github.com/poyrazK/licenseHub/internal/adapters/notifier"
	"github.com/poyrazK/licenseHub/internal/adapters/repository"
	"github.com/poyrazK/licenseHub/internal/core/services"
	"github.com/poyrazK/licenseHub/internal/infrastructure/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Could not ping database: %v", err)
	}

	repo := repository.NewPostgresRepository(db)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Could not prepare schema: %v", err)
	}

	redisNotifier := notifier.NewRedisNotifier(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer redisNotifier.Close()
	if err := redisNotifier.Ping(context.Background()); err != nil {
		log.Fatalf("Could not ping redis: %v", err)
	}

	hub := notifier.NewHub()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Every write publishes through Redis; the relay feeds the signal back
	// into this instance's hub so local sessions see their own writes too.
	go redisNotifier.Relay(ctx, hub)

	svc := services.NewRegistrationService(repo, redisNotifier)
	creds := services.NewAuthService(services.AuthConfig{
		AdminUsername:     cfg.AdminUsername,
		AdminPasswordHash: cfg.AdminPasswordHash,
		Secret:            []byte(cfg.JWTSecret),
		TokenTTL:          cfg.TokenTTL,
	})

	mux := http.NewServeMux()
	api.NewAPIHandler(svc, creds, hub).RegisterRoutes(mux)

	handler := api.CORSMiddleware(cfg.AllowedOrigin)(api.MetricsMiddleware(mux))

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // event streams stay open indefinitely
	}

	go func() {
		logger.Info("api listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
