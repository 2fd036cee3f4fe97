package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/canopy-network/sensorx/pkg/logging"
	"github.com/canopy-network/sensorx/pkg/retry"
	"github.com/canopy-network/sensorx/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Client wraps a PostgreSQL connection pool.
type Client struct {
	Logger *zap.Logger
	Pool   *pgxpool.Pool
	Schema string
}

// PoolConfig defines connection pool settings
type PoolConfig struct {
	MinConns        int32
	MaxConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// PoolConfigFromEnv reads POSTGRES_MAX_CONNS and POSTGRES_MIN_CONNS.
func PoolConfigFromEnv() PoolConfig {
	cfg := PoolConfig{
		MinConns:        int32(utils.EnvInt("POSTGRES_MIN_CONNS", 1)),
		MaxConns:        int32(utils.EnvInt("POSTGRES_MAX_CONNS", 10)),
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
	if cfg.MinConns > cfg.MaxConns {
		cfg.MinConns = cfg.MaxConns
	}
	return cfg
}

// New connects to POSTGRES_URL. Tables are resolved inside schema
// (POSTGRES_SCHEMA when empty, then "public").
func New(ctx context.Context, logger *zap.Logger, schema string) (client Client, err error) {
	connCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	logger = logging.OrNop(logger)
	if schema == "" {
		schema = utils.Env("POSTGRES_SCHEMA", "public")
	}
	client.Logger = logger
	client.Schema = schema

	dbURL := utils.Env("POSTGRES_URL", "postgres://localhost:5432/postgres")
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return Client{}, retry.Permanent(fmt.Errorf("failed to parse POSTGRES_URL: %w", err))
	}

	poolConf := PoolConfigFromEnv()
	config.MinConns = poolConf.MinConns
	config.MaxConns = poolConf.MaxConns
	config.MaxConnLifetime = poolConf.ConnMaxLifetime
	config.MaxConnIdleTime = poolConf.ConnMaxIdleTime

	retryErr := retry.WithBackoff(connCtx, retry.DefaultConfig(), logger, "postgres_connection", func() error {
		pool, openErr := pgxpool.NewWithConfig(connCtx, config)
		if openErr != nil {
			return fmt.Errorf("failed to create postgres connection pool: %w", openErr)
		}

		if pingErr := pool.Ping(connCtx); pingErr != nil {
			pool.Close()
			return fmt.Errorf("failed to ping postgres: %w", pingErr)
		}

		client.Pool = pool
		logger.Info("PostgreSQL connection pool configured",
			zap.String("schema", schema),
			zap.Int32("min_conns", poolConf.MinConns),
			zap.Int32("max_conns", poolConf.MaxConns),
			zap.Duration("conn_max_lifetime", poolConf.ConnMaxLifetime),
			zap.Duration("conn_max_idle_time", poolConf.ConnMaxIdleTime),
		)
		return nil
	})
	if retryErr != nil {
		return Client{}, retryErr
	}

	return client, nil
}

// Query executes a query that returns rows
// IMPORTANT: Caller MUST call rows.Close() when done to release the connection
func (c *Client) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return c.Pool.Query(ctx, query, args...)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.Pool.Ping(ctx)
}

// Close closes the connection pool
func (c *Client) Close() error {
	if c.Pool != nil {
		c.Pool.Close()
	}
	return nil
}
