package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sqlagent/sqlagent/internal/dialect"
)

type DBConfig struct {
	Dialect         dialect.Dialect
	DSN             string
	Params          dialect.ConnParams
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// ConnectionError reports that no usable connection could be obtained.
// It is never swallowed into a query envelope.
type ConnectionError struct {
	Backend string
	Op      string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func Open(ctx context.Context, cfg DBConfig) (*sqlx.DB, error) {
	if cfg.Dialect == nil {
		return nil, fmt.Errorf("database dialect is required")
	}
	dsn := cfg.DSN
	if dsn == "" {
		if cfg.Params.Host == "" {
			return nil, &ConnectionError{Backend: cfg.Dialect.Name(), Op: "configure", Err: fmt.Errorf("host or dsn is required")}
		}
		dsn = cfg.Dialect.DSN(cfg.Params)
	}

	db, err := sqlx.Open(cfg.Dialect.DriverName(), dsn)
	if err != nil {
		return nil, &ConnectionError{Backend: cfg.Dialect.Name(), Op: "open", Err: err}
	}
	configurePool(db.DB, cfg)

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, &ConnectionError{Backend: cfg.Dialect.Name(), Op: "ping", Err: err}
	}

	return db, nil
}

func configurePool(db *sql.DB, cfg DBConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}
