package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segyhp/loanlink/internal/auth"
	"github.com/segyhp/loanlink/internal/config"
	"github.com/segyhp/loanlink/internal/handler"
	"github.com/segyhp/loanlink/internal/notifier"
	"github.com/segyhp/loanlink/internal/proof"
	"github.com/segyhp/loanlink/internal/repository"
	"github.com/segyhp/loanlink/internal/service"
	"github.com/segyhp/loanlink/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.GetLogFormat())

	// Initialize database
	store, err := repository.Open(cfg.Database, log)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	if cfg.Database.MigrateOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := store.Migrate(ctx)
		cancel()
		if err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	notify, err := notifier.New(cfg.Notifier, cfg.Server.AppURL, nil, redisClient, log)
	if err != nil {
		log.Fatalf("Failed to initialize notifier: %v", err)
	}

	proofs, err := proof.NewLocalStore(cfg.Uploads, log)
	if err != nil {
		log.Fatalf("Failed to initialize proof store: %v", err)
	}

	// Initialize service
	loanService := service.NewLoanService(store.Loans(), store.Payments(), store, notify, log, cfg.GetCompletionEpsilon())
	authenticator := auth.NewJWTAuthenticator(cfg.Auth, log)

	router := handler.NewRouter(
		handler.NewLoanHandler(loanService, proofs, cfg.Uploads.MaxBytes, log),
		handler.NewHealthHandler(store, redisClient, cfg.Health.Timeout, log),
		authenticator.Middleware,
		log,
	)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.WithFields(logrus.Fields{
			"addr":      server.Addr,
			"driver":    cfg.Database.Driver,
			"transport": cfg.Notifier.Transport,
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
