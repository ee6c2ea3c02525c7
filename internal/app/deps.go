package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/vidshare/backend/internal/auth"
	"github.com/vidshare/backend/internal/config"
	"github.com/vidshare/backend/internal/db"
	"github.com/vidshare/backend/internal/handlers"
	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/middleware"
	"github.com/vidshare/backend/internal/repositories"
	"github.com/vidshare/backend/internal/services"
	"github.com/vidshare/backend/internal/storage"
	"github.com/vidshare/backend/internal/videos"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. A nil pool selects the in-process repositories.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, func(context.Context) error, error) {
	logger := logging.FromContext(ctx)

	var (
		accounts  repositories.AccountRepository
		videoRepo repositories.VideoRepository
	)
	if pool == nil {
		logger.Warn("using in-memory repositories; data is lost on restart")
		store := repositories.NewMemoryStore()
		accounts = repositories.NewMemoryAccountRepository(store)
		videoRepo = repositories.NewMemoryVideoRepository(store)
	} else {
		accounts = repositories.NewPostgresAccountRepository(pool)
		videoRepo = repositories.NewPostgresVideoRepository(pool)
	}

	prober := videos.NewFFProbe(cfg.FFProbePath, cfg.FFProbeTimeout)
	media, err := newMediaGateway(ctx, cfg, prober)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	if cfg.Uploads.Dir != "" {
		if err := os.MkdirAll(cfg.Uploads.Dir, 0o750); err != nil {
			return handlers.Dependencies{}, nil, fmt.Errorf("create upload directory: %w", err)
		}
	}

	limiter, closeLimiter, err := newRateLimiter(ctx, cfg)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	tokens := auth.NewTokenService(
		cfg.Auth.AccessTokenSecret,
		cfg.Auth.RefreshTokenSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
		accounts,
	)

	deps := handlers.Dependencies{
		Accounts:   services.NewAccountService(accounts, tokens, media),
		Videos:     services.NewPublishingService(videoRepo, accounts, media),
		Tokens:     tokens,
		Limiter:    limiter,
		RetryAfter: cfg.RateLimit.Window,
		Cookies:    handlers.CookiePolicy{Secure: cfg.Auth.SecureCookies},
		Uploads:    handlers.UploadPolicy{Dir: cfg.Uploads.Dir, MaxBytes: cfg.Uploads.MaxBytes},
		Metrics:    promhttp.Handler(),
	}
	if pool != nil {
		deps.Database = pool
	}

	cleanup := func(context.Context) error {
		return closeLimiter()
	}
	return deps, cleanup, nil
}

func newMediaGateway(ctx context.Context, cfg config.Config, prober videos.Prober) (storage.Gateway, error) {
	if cfg.ObjectStore.Bucket == "" {
		logging.FromContext(ctx).Warn("no object store bucket configured; media is kept in memory")
		return storage.NewMemoryGateway(cfg.ObjectStore.PublicBaseURL), nil
	}

	gateway, err := storage.NewS3Gateway(ctx, cfg.ObjectStore, prober)
	if err != nil {
		return nil, fmt.Errorf("configure object store: %w", err)
	}
	return gateway, nil
}

// newRateLimiter prefers a Redis-backed limiter shared across instances and
// falls back to an in-process one when no Redis address is configured.
func newRateLimiter(ctx context.Context, cfg config.Config) (middleware.RateLimiter, func() error, error) {
	rl := cfg.RateLimit
	if cfg.Redis.Addr == "" {
		ttl := 2 * rl.Window
		if ttl < time.Minute {
			ttl = time.Minute
		}
		return middleware.NewMemoryRateLimiter(rl.Requests, rl.Window, rl.Burst, ttl), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, nil, errors.Join(fmt.Errorf("connect to redis: %w", err), client.Close())
	}

	return middleware.NewRedisRateLimiter(client, rl.Requests, rl.Window, rl.Burst), client.Close, nil
}
