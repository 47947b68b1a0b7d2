package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "modernc.org/sqlite"             // Pure Go SQLite driver

	"greetd/internal/config"
	"greetd/internal/errors"
	"greetd/internal/paths"
)

const (
	// DriverPostgres selects the pgx-backed PostgreSQL pool
	DriverPostgres = "postgres"
	// DriverSQLite selects a local SQLite file
	DriverSQLite = "sqlite"
)

// healthCheckTimeout bounds a single HealthCheck ping.
const healthCheckTimeout = 5 * time.Second

// Pool is a database/sql connection pool handle. Opening it never dials;
// connections are made on first use.
type Pool struct {
	conn   *sql.DB
	driver string
	target string
	logger *slog.Logger
}

// Open creates the pool described by cfg. Relative sqlite paths resolve
// against root.
func Open(cfg config.DatabaseConfig, root string, logger *slog.Logger) (*Pool, error) {
	var (
		sqlDriver string
		dsn       string
		target    string
	)

	switch cfg.Driver {
	case DriverPostgres:
		sqlDriver = "pgx"
		dsn = PostgresDSN(cfg)
		target = fmt.Sprintf("%s/%s", hostPort(cfg.Host, cfg.Port), cfg.Name)
	case DriverSQLite:
		path := paths.Resolve(root, cfg.Path)
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, errors.New(errors.DatabaseUnavailable, "failed to create database directory", err)
			}
		}
		sqlDriver = "sqlite"
		dsn = SQLiteDSN(path)
		target = path
	default:
		return nil, &config.ConfigError{
			Field:   "database.driver",
			Message: fmt.Sprintf("unknown driver %q", cfg.Driver),
		}
	}

	conn, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, errors.New(errors.DatabaseUnavailable, "failed to open database pool", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMs) * time.Millisecond)

	logger.Debug("Database pool created",
		"driver", cfg.Driver,
		"target", target,
		"maxOpenConns", cfg.MaxOpenConns,
	)

	return &Pool{
		conn:   conn,
		driver: cfg.Driver,
		target: target,
		logger: logger,
	}, nil
}

// Conn returns the underlying sql.DB
func (p *Pool) Conn() *sql.DB {
	return p.conn
}

// Driver returns the configured driver name
func (p *Pool) Driver() string {
	return p.driver
}

// Target describes what the pool connects to, without credentials
func (p *Pool) Target() string {
	return p.target
}

// Stats returns pool statistics
func (p *Pool) Stats() sql.DBStats {
	return p.conn.Stats()
}

// Ping verifies a connection can be established
func (p *Pool) Ping(ctx context.Context) error {
	if err := p.conn.PingContext(ctx); err != nil {
		return errors.New(errors.DatabaseUnavailable, "database ping failed", err)
	}
	return nil
}

// HealthCheck pings with a bounded timeout.
func (p *Pool) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()
	return p.Ping(ctx)
}

// Close closes the pool. Later pings fail.
func (p *Pool) Close() error {
	if p.conn == nil {
		return nil
	}
	p.logger.Debug("Closing database pool", "driver", p.driver)
	return p.conn.Close()
}

// Shutdown closes the pool when the owning container shuts down.
func (p *Pool) Shutdown() error {
	return p.Close()
}
