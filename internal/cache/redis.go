package cache

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"greetd/internal/config"
	"greetd/internal/errors"
)

// Redis is a Client backed by a go-redis connection pool.
type Redis struct {
	rdb *redis.Client
}

// NewRedis creates a Redis client. Dialing happens on first command.
func NewRedis(cfg config.CacheConfig) *Redis {
	return &Redis{
		rdb: redis.NewClient(&redis.Options{
			Addr:         cfg.Addr(),
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		}),
	}
}

// Get returns the value for key, or ErrMiss.
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.rdb.Get(ctx, key).Result()
	if stderrors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return v, mapRedisErr(err)
}

// Set stores value under key with the given ttl.
func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return mapRedisErr(r.rdb.Set(ctx, key, value, ttl).Err())
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	return mapRedisErr(r.rdb.Del(ctx, key).Err())
}

// Ping round-trips to the server.
func (r *Redis) Ping(ctx context.Context) error {
	if err := mapRedisErr(r.rdb.Ping(ctx).Err()); err != nil {
		return errors.New(errors.CacheUnavailable, "cache ping failed", err)
	}
	return nil
}

// Close releases the connection pool. Safe to call more than once.
func (r *Redis) Close() error {
	err := r.rdb.Close()
	if stderrors.Is(err, redis.ErrClosed) {
		return nil
	}
	return err
}

func mapRedisErr(err error) error {
	if stderrors.Is(err, redis.ErrClosed) {
		return ErrClosed
	}
	return err
}
