package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chenty2333/ancient-arch/internal/config"
	"github.com/chenty2333/ancient-arch/internal/crypto"
	"github.com/chenty2333/ancient-arch/internal/db"
	internalhttp "github.com/chenty2333/ancient-arch/internal/http"
	"github.com/chenty2333/ancient-arch/internal/model"
	"github.com/chenty2333/ancient-arch/internal/repository"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := repository.NewStore(pool)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, caching disabled", "addr", cfg.RedisAddr, "error", err)
			redisClient = nil
		}
	}

	if err := seedAdmin(ctx, store, cfg, logger); err != nil {
		return err
	}

	server := internalhttp.NewServer(cfg, store, logger, redisClient)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// seedAdmin creates the bootstrap administrator account when
// ADMIN_USERNAME and ADMIN_PASSWORD are both set. An existing account
// with that username is left untouched.
func seedAdmin(ctx context.Context, store *repository.Store, cfg config.Config, logger *slog.Logger) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}

	digest, err := crypto.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	_, err = store.CreateUser(ctx, cfg.AdminUsername, digest, model.RoleAdmin)
	if errors.Is(err, repository.ErrDuplicateUsername) {
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("admin account created", "username", cfg.AdminUsername)
	return nil
}
