package cache

import (
	"context"
	"slices"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/canopy-network/sensorx/pkg/db"
)

type cachedColumns struct {
	Columns []db.Column
	Fetched time.Time
}

// SchemaCache wraps a db.Store and memoizes ListColumns per table for TTL.
// Row queries pass through untouched. A zero TTL disables caching.
type SchemaCache struct {
	db.Store

	ttl     time.Duration
	now     func() time.Time
	entries *xsync.Map[string, cachedColumns]
}

var _ db.Store = (*SchemaCache)(nil)

func NewSchemaCache(store db.Store, ttl time.Duration) *SchemaCache {
	return &SchemaCache{
		Store:   store,
		ttl:     ttl,
		now:     time.Now,
		entries: xsync.NewMap[string, cachedColumns](),
	}
}

func (c *SchemaCache) ListColumns(ctx context.Context, table string) ([]db.Column, error) {
	if c.ttl <= 0 {
		return c.Store.ListColumns(ctx, table)
	}

	if entry, ok := c.entries.Load(table); ok && c.now().Sub(entry.Fetched) < c.ttl {
		return slices.Clone(entry.Columns), nil
	}

	columns, err := c.Store.ListColumns(ctx, table)
	if err != nil {
		// missing tables are not cached so a newly created one is picked up
		return nil, err
	}
	c.entries.Store(table, cachedColumns{Columns: slices.Clone(columns), Fetched: c.now()})
	return columns, nil
}

// Invalidate drops the cached schema of table.
func (c *SchemaCache) Invalidate(table string) {
	c.entries.Delete(table)
}

// Len reports how many tables are cached.
func (c *SchemaCache) Len() int {
	return c.entries.Size()
}
