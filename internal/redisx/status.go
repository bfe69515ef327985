package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-distribution-orders/internal/orders"
)

type statusEntry struct {
	Status    string    `json:"estado_pago"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusCache keeps the derived payment status of a venta for quick reads.
type StatusCache struct {
	RDB   redis.Cmdable
	Clock func() time.Time
}

func (c *StatusCache) Store(ctx context.Context, ventaID int64, status orders.PaymentStatus) error {
	now := time.Now
	if c.Clock != nil {
		now = c.Clock
	}
	b, err := json.Marshal(statusEntry{Status: string(status), UpdatedAt: now().UTC()})
	if err != nil {
		return err
	}
	return c.RDB.Set(ctx, VentaStatusKey(ventaID), b, TTLStatusCache).Err()
}

func (c *StatusCache) Load(ctx context.Context, ventaID int64) (orders.PaymentStatus, bool, error) {
	b, err := c.RDB.Get(ctx, VentaStatusKey(ventaID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	var e statusEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return "", false, err
	}
	return orders.PaymentStatus(e.Status), true, nil
}

func (c *StatusCache) Forget(ctx context.Context, ventaID int64) error {
	return c.RDB.Del(ctx, VentaStatusKey(ventaID)).Err()
}
