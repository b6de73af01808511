package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool sizing assumes short request-scoped queries; the worker's batch
// scans share the same settings and stay well under the cap.
const (
	maxConns        = 16
	maxConnIdleTime = 5 * time.Minute
)

// New opens a pgx pool against the taskforge database and verifies it
// with a ping so a bad DSN fails at startup, not on the first request.
func New(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/db: parse config: %w", err)
	}
	config.MaxConns = maxConns
	config.MaxConnIdleTime = maxConnIdleTime
	config.ConnConfig.RuntimeParams["application_name"] = "taskforge"

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("platform/db: new pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("platform/db: ping: %w", err)
	}

	return pool, nil
}
