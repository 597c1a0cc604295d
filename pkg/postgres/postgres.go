// Package postgres opens pooled PostgreSQL connections through the pgx stdlib driver.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const driverName = "pgx"

type pool struct {
	connMaxIdleTime time.Duration
	connMaxLifetime time.Duration
	maxIdleConns    int
	maxOpenConns    int
}

var defaultPool = pool{
	connMaxIdleTime: 5 * time.Minute,
	connMaxLifetime: 30 * time.Minute,
	maxIdleConns:    5,
	maxOpenConns:    25,
}

type Option func(*pool)

func WithConnMaxIdleTime(d time.Duration) Option {
	return func(p *pool) {
		if d > 0 {
			p.connMaxIdleTime = d
		}
	}
}

func WithConnMaxLifetime(d time.Duration) Option {
	return func(p *pool) {
		if d > 0 {
			p.connMaxLifetime = d
		}
	}
}

func WithMaxIdleConns(n int) Option {
	return func(p *pool) {
		if n > 0 {
			p.maxIdleConns = n
		}
	}
}

func WithMaxOpenConns(n int) Option {
	return func(p *pool) {
		if n > 0 {
			p.maxOpenConns = n
		}
	}
}

// New connects to dsn, verifies the connection and applies pool limits.
// Zero or negative option values keep the defaults.
func New(ctx context.Context, dsn string, opts ...Option) (*sqlx.DB, error) {
	const op = "postgres.New"

	p := defaultPool
	for _, opt := range opts {
		opt(&p)
	}

	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	db.SetConnMaxIdleTime(p.connMaxIdleTime)
	db.SetConnMaxLifetime(p.connMaxLifetime)
	db.SetMaxIdleConns(p.maxIdleConns)
	db.SetMaxOpenConns(p.maxOpenConns)

	return db, nil
}
