// Command scoring-server runs the request-validation and scoring HTTP
// service.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hornshoofs/scoring-api/internal/auth"
	"github.com/hornshoofs/scoring-api/internal/config"
	"github.com/hornshoofs/scoring-api/internal/dispatch"
	"github.com/hornshoofs/scoring-api/internal/logging"
	"github.com/hornshoofs/scoring-api/internal/metrics"
	"github.com/hornshoofs/scoring-api/internal/middleware"
	"github.com/hornshoofs/scoring-api/internal/scoring"
	"github.com/hornshoofs/scoring-api/internal/server"
	"github.com/hornshoofs/scoring-api/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	listen := flag.String("listen", "", "listen address override")
	flag.Parse()

	// Optional .env for local development.
	_ = godotenv.Load()

	cfg := config.LoadOrDefault(*configPath)
	if *listen != "" {
		cfg.Listen = *listen
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	m := metrics.New("scoring")

	st := store.New(store.Config{
		Addr:    cfg.Redis.Addr,
		DB:      cfg.Redis.DB,
		Retries: cfg.Store.Retries,
		Timeout: cfg.Store.RetryDelay,
	}, log, m)

	authenticator := auth.New(cfg.Auth.Salt, cfg.Auth.AdminSalt, cfg.Auth.AdminLogin)
	engine := scoring.NewEngine(st, log, m)
	dispatcher := dispatch.NewHandler(authenticator, engine, log)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
	}

	srv := server.New(dispatcher, st, log, m, limiter)
	httpServer := &http.Server{
		Addr:         cfg.Listen,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("listen", cfg.Listen).Info("starting scoring server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
