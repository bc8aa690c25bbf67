package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/autoshow/internal/config"
)

func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Open picks the backend from the DATABASE_URL scheme. Postgres schemas are
// managed by migrations; the SQLite schema is applied on open.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	if path, ok := sqlitePath(cfg.URL); ok {
		return OpenSQLite(ctx, path)
	}
	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewPostgresStore(pool), nil
}

func sqlitePath(url string) (string, bool) {
	if !strings.HasPrefix(url, "sqlite://") {
		return "", false
	}
	return strings.TrimPrefix(url, "sqlite://"), true
}
