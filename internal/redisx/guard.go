package redisx

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// ConversionGuard marks a pedido as being (or having been) converted. The
// key outlives the request so a retried conversion is refused even when the
// pedido status update failed.
type ConversionGuard struct {
	RDB redis.Cmdable
}

func (g *ConversionGuard) Acquire(ctx context.Context, pedidoID int64) (bool, error) {
	return Claim(ctx, g.RDB, ConvertKey(pedidoID), TTLIdempotency)
}

func (g *ConversionGuard) Release(ctx context.Context, pedidoID int64) error {
	return g.RDB.Del(ctx, ConvertKey(pedidoID)).Err()
}
