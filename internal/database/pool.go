package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/sqlagent/sqlagent/internal/dialect"
)

// Conn is the request-scoped connection surface used by the introspector and
// the executor. *sqlx.Conn satisfies it.
type Conn interface {
	sqlx.QueryerContext
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	Close() error
}

type Connector interface {
	Conn(ctx context.Context) (Conn, error)
	Dialect() dialect.Dialect
}

// Pool hands out one dedicated connection per request on top of a shared
// database handle. Callers own the returned Conn and must close it.
type Pool struct {
	db      *sqlx.DB
	dialect dialect.Dialect
}

func NewPool(db *sqlx.DB, d dialect.Dialect) *Pool {
	return &Pool{db: db, dialect: d}
}

func (p *Pool) Conn(ctx context.Context) (Conn, error) {
	conn, err := p.db.Connx(ctx)
	if err != nil {
		return nil, &ConnectionError{Backend: p.dialect.Name(), Op: "acquire connection", Err: err}
	}
	return conn, nil
}

func (p *Pool) Dialect() dialect.Dialect {
	return p.dialect
}

func (p *Pool) HealthCheck(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return &ConnectionError{Backend: p.dialect.Name(), Op: "ping", Err: err}
	}
	return nil
}

func (p *Pool) Close() error {
	return p.db.Close()
}
