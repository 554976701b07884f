// Package redis caches status-filtered task snapshots in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"
	goredis "github.com/redis/go-redis/v9"

	"github.com/agalitsyn/tareas/internal/listing"
	"github.com/agalitsyn/tareas/internal/model"
)

const (
	DefaultPrefix = "tareas"
	DefaultTTL    = 30 * time.Second
)

// SnapshotCache sits in front of a listing source. Snapshots are stored under a
// generation number; Invalidate bumps the generation so older snapshots are never read again
// and expire on their own. Redis failures fall back to the wrapped source.
type SnapshotCache struct {
	client *goredis.Client
	source listing.Source
	prefix string
	ttl    time.Duration
	log    lgr.L
}

func NewSnapshotCache(client *goredis.Client, source listing.Source, ttl time.Duration, log lgr.L) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SnapshotCache{
		client: client,
		source: source,
		prefix: DefaultPrefix,
		ttl:    ttl,
		log:    log,
	}
}

func (c *SnapshotCache) FetchByStatus(ctx context.Context, statuses model.StatusSet) ([]model.Task, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.log.Logf("[WARN] snapshot cache unavailable: %v", err)
		return c.source.FetchByStatus(ctx, statuses)
	}

	key := c.snapshotKey(gen, statuses)
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var tasks []model.Task
		if err := json.Unmarshal(data, &tasks); err == nil {
			c.log.Logf("[DEBUG] snapshot cache hit %s", key)
			return tasks, nil
		}
		c.log.Logf("[WARN] dropping unreadable snapshot %s", key)
	case errors.Is(err, goredis.Nil):
	default:
		c.log.Logf("[WARN] could not read snapshot %s: %v", key, err)
	}

	tasks, err := c.source.FetchByStatus(ctx, statuses)
	if err != nil {
		return nil, err
	}

	data, err = json.Marshal(tasks)
	if err != nil {
		c.log.Logf("[WARN] could not encode snapshot: %v", err)
		return tasks, nil
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Logf("[WARN] could not store snapshot %s: %v", key, err)
	}
	return tasks, nil
}

// Invalidate makes every stored snapshot stale.
func (c *SnapshotCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("could not bump snapshot generation: %w", err)
	}
	return nil
}

func (c *SnapshotCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *SnapshotCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *SnapshotCache) generationKey() string {
	return c.prefix + ":snapshot:gen"
}

func (c *SnapshotCache) snapshotKey(gen int64, statuses model.StatusSet) string {
	return fmt.Sprintf("%s:snapshot:%d:%s", c.prefix, gen, statuses.String())
}
