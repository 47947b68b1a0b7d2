// Package cache provides the key/value cache client handle. Two drivers
// exist: a Redis client and an in-process TTL LRU for single-node and test use.
package cache

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"greetd/internal/config"
)

const (
	// DriverRedis selects the Redis client
	DriverRedis = "redis"
	// DriverMemory selects the in-process LRU
	DriverMemory = "memory"
)

const healthCheckTimeout = 5 * time.Second

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = stderrors.New("cache: miss")

// ErrClosed is returned by operations on a closed client.
var ErrClosed = stderrors.New("cache: client closed")

// Client is a string key/value cache. A ttl of zero means no expiry.
type Client interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Handle wraps a Client with the lifecycle hooks the app container calls.
type Handle struct {
	Client
	driver string
	target string
}

// New creates the client selected by cfg.Driver. No connection is made.
func New(cfg config.CacheConfig, logger *slog.Logger) (*Handle, error) {
	var (
		client Client
		target string
	)

	switch cfg.Driver {
	case DriverRedis:
		client = NewRedis(cfg)
		target = cfg.Addr()
	case DriverMemory:
		client = NewMemory(cfg.Size)
		target = fmt.Sprintf("memory(size=%d)", cfg.Size)
	default:
		return nil, &config.ConfigError{
			Field:   "cache.driver",
			Message: fmt.Sprintf("unknown driver %q", cfg.Driver),
		}
	}

	logger.Debug("Cache client created", "driver", cfg.Driver, "target", target)

	return &Handle{Client: client, driver: cfg.Driver, target: target}, nil
}

// Driver returns the configured driver name
func (h *Handle) Driver() string {
	return h.driver
}

// Target describes what the client connects to
func (h *Handle) Target() string {
	return h.target
}

// HealthCheck pings with a bounded timeout.
func (h *Handle) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()
	return h.Ping(ctx)
}

// Shutdown closes the client.
func (h *Handle) Shutdown() error {
	return h.Close()
}
