// Package app wires the HTTP server, database pool and cache client into a
// single lifecycle: construct, serve, health-check, shut down.
package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/do"

	"greetd/internal/api"
	"greetd/internal/cache"
	"greetd/internal/config"
	"greetd/internal/storage"
)

// Health check names reported by HealthCheck
const (
	CheckDatabase = "database"
	CheckCache    = "cache"
)

// App owns the service container and the handles built from it.
type App struct {
	injector *do.Injector
	logger   *slog.Logger

	mu     sync.Mutex
	pool   *storage.Pool
	cache  *cache.Handle
	server *api.Server
	errCh  chan error
}

// New registers providers for cfg. Nothing is constructed until Open or Start.
func New(cfg *config.Config, root string, logger *slog.Logger) *App {
	i := do.New()

	do.ProvideValue(i, cfg)
	do.ProvideValue(i, logger)

	do.Provide(i, func(i *do.Injector) (*storage.Pool, error) {
		cfg := do.MustInvoke[*config.Config](i)
		logger := do.MustInvoke[*slog.Logger](i)
		return storage.Open(cfg.Database, root, logger.With("component", "database"))
	})

	do.Provide(i, func(i *do.Injector) (*cache.Handle, error) {
		cfg := do.MustInvoke[*config.Config](i)
		logger := do.MustInvoke[*slog.Logger](i)
		return cache.New(cfg.Cache, logger.With("component", "cache"))
	})

	do.Provide(i, func(i *do.Injector) (*api.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		logger := do.MustInvoke[*slog.Logger](i)
		return api.NewServer(api.ServerOptions{
			Addr:     cfg.Server.Addr(),
			Greeting: cfg.Server.Greeting,
		}, logger.With("component", "api")), nil
	})

	return &App{
		injector: i,
		logger:   logger,
	}
}

// Open constructs the database pool and cache client. Neither dials.
func (a *App) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.openLocked()
}

func (a *App) openLocked() error {
	if a.pool == nil {
		pool, err := do.Invoke[*storage.Pool](a.injector)
		if err != nil {
			return fmt.Errorf("database pool: %w", err)
		}
		a.pool = pool
	}
	if a.cache == nil {
		c, err := do.Invoke[*cache.Handle](a.injector)
		if err != nil {
			return fmt.Errorf("cache client: %w", err)
		}
		a.cache = c
	}
	return nil
}

// Start constructs all handles, binds the listener and serves in the
// background. Bind errors are returned here, not from Wait.
func (a *App) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return stderrors.New("app already started")
	}
	if err := a.openLocked(); err != nil {
		return err
	}

	server, err := do.Invoke[*api.Server](a.injector)
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	ln, err := server.Listen()
	if err != nil {
		return err
	}

	a.server = server
	a.errCh = make(chan error, 1)
	go func() {
		a.errCh <- server.Serve(ln)
	}()

	a.logger.Debug("Application started",
		"addr", server.Addr(),
		"database", a.pool.Driver(),
		"cache", a.cache.Driver(),
	)
	return nil
}

// Addr returns the bound HTTP address, or "" before Start.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server == nil {
		return ""
	}
	return a.server.Addr()
}

// Pool returns the database pool, or nil before Open.
func (a *App) Pool() *storage.Pool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pool
}

// Cache returns the cache client, or nil before Open.
func (a *App) Cache() *cache.Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cache
}

// Wait blocks until ctx is done or the server stops on its own. A server
// error is returned; cancellation is not an error.
func (a *App) Wait(ctx context.Context) error {
	a.mu.Lock()
	errCh := a.errCh
	a.mu.Unlock()

	if errCh == nil {
		return stderrors.New("app not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// HealthCheck pings every constructed handle.
func (a *App) HealthCheck() map[string]error {
	a.mu.Lock()
	defer a.mu.Unlock()

	results := make(map[string]error, 2)
	if a.pool != nil {
		results[CheckDatabase] = do.HealthCheck[*storage.Pool](a.injector)
	}
	if a.cache != nil {
		results[CheckCache] = do.HealthCheck[*cache.Handle](a.injector)
	}
	return results
}

// Shutdown stops the server, then closes the cache and the pool. Every
// step runs even if an earlier one fails.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		a.server = nil
	}
	if a.cache != nil {
		if err := do.Shutdown[*cache.Handle](a.injector); err != nil {
			errs = append(errs, fmt.Errorf("cache client: %w", err))
		}
		a.cache = nil
	}
	if a.pool != nil {
		if err := do.Shutdown[*storage.Pool](a.injector); err != nil {
			errs = append(errs, fmt.Errorf("database pool: %w", err))
		}
		a.pool = nil
	}

	a.logger.Debug("Application stopped")
	return stderrors.Join(errs...)
}
