package redisx

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers processed event ids per consuming service.
type Deduper struct {
	RDB     redis.Cmdable
	Service string
}

func (d *Deduper) Seen(ctx context.Context, id string) (bool, error) {
	return Exists(ctx, d.RDB, DedupKey(d.Service, id))
}

func (d *Deduper) Mark(ctx context.Context, id string) error {
	return d.RDB.Set(ctx, DedupKey(d.Service, id), "1", TTLDedup).Err()
}
