package monitor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/canopy-network/sensorx/pkg/db"
	"github.com/canopy-network/sensorx/pkg/db/cache"
	"github.com/canopy-network/sensorx/pkg/db/clickhouse"
	"github.com/canopy-network/sensorx/pkg/db/postgres"
	"github.com/canopy-network/sensorx/pkg/utils"
)

// Supported DB_DRIVER values.
const (
	DriverClickHouse = "clickhouse"
	DriverPostgres   = "postgres"
)

// OpenStore connects the store named by DB_DRIVER and wraps it in a schema
// cache unless SCHEMA_CACHE_TTL is 0.
func OpenStore(ctx context.Context, logger *zap.Logger) (db.Store, error) {
	var (
		store db.Store
		err   error
	)
	switch driver := utils.Env("DB_DRIVER", DriverClickHouse); driver {
	case DriverClickHouse:
		store, err = clickhouse.NewStore(ctx, logger, "")
	case DriverPostgres:
		store, err = postgres.NewStore(ctx, logger, "")
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
	if err != nil {
		return nil, err
	}

	if ttl := utils.EnvDuration("SCHEMA_CACHE_TTL", 5*time.Minute); ttl > 0 {
		return cache.NewSchemaCache(store, ttl), nil
	}
	return store, nil
}
