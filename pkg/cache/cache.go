// Package cache provides key-value cache operations with a Redis implementation.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/JaimeStill/lucid/pkg/lifecycle"
)

// System manages cache operations and lifecycle coordination.
type System interface {
	// Start registers a startup hook that verifies cache connectivity
	// and a shutdown hook that closes the client.
	Start(lc *lifecycle.Coordinator) error
	// Set stores value at key with the given expiration. A zero ttl
	// stores the value without expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns the value at key. Returns ErrNotFound if the key
	// does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes the value at key. Deleting an absent key is not
	// an error.
	Delete(ctx context.Context, key string) error
}

type redisCache struct {
	client *redis.Client
	logger *slog.Logger
}

// New creates a cache system from the given configuration. The client
// does not connect until Start runs its startup hook.
func New(cfg *Config, logger *slog.Logger) System {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &redisCache{
		client: client,
		logger: logger.With("system", "cache"),
	}
}

func (r *redisCache) Start(lc *lifecycle.Coordinator) error {
	r.logger.Info("starting cache system")

	lc.OnStartup(func() {
		if err := r.client.Ping(lc.Context()).Err(); err != nil {
			r.logger.Error("cache connectivity check failed", "error", err)
			return
		}

		r.logger.Info("cache ready")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()

		if err := r.client.Close(); err != nil {
			r.logger.Error("cache close failed", "error", err)
		}
	})

	return nil
}

func (r *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}
	return val, nil
}

func (r *redisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}
