// Package database opens the Postgres pool used by the repositories and
// applies the embedded schema migrations.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/Alijeyrad/simward_backend/config"
)

const (
	driverName  = "postgres"
	pingTimeout = 5 * time.Second
)

type DB struct {
	conn *sqlx.DB
}

// connect opens a pool for cfg and fails unless the server answers a ping.
func connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	conn, err := sqlx.Open(driverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBName, err)
	}
	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.ConnLifetime)
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.DBName, err)
	}
	return conn, nil
}

func New(ctx context.Context, cfg Config) (*DB, error) {
	conn, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &DB{conn: conn}, nil
}

func NewFromCentralConfig(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	return New(ctx, FromCentralConfig(cfg))
}

func (db *DB) Close() error { return db.conn.Close() }

// GetConnection returns the sqlx handle used by the repositories.
func (db *DB) GetConnection() *sqlx.DB { return db.conn }

func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return db.conn.PingContext(ctx)
}
