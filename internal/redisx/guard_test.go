package redisx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-distribution-orders/internal/orders"
)

func TestConversionGuard(t *testing.T) {
	ctx := context.Background()
	rdb := newMemRedis()
	g := &ConversionGuard{RDB: rdb}

	ok, err := g.Acquire(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, TTLIdempotency, rdb.ttls[ConvertKey(42)])

	ok, err = g.Acquire(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok, "second conversion must be refused")

	ok, err = g.Acquire(ctx, 43)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, g.Release(ctx, 42))
	ok, err = g.Acquire(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConversionGuardError(t *testing.T) {
	rdb := newMemRedis()
	rdb.err = errors.New("dial tcp: connection refused")
	ok, err := (&ConversionGuard{RDB: rdb}).Acquire(context.Background(), 1)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestStatusCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	rdb := newMemRedis()
	at := time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)
	c := &StatusCache{RDB: rdb, Clock: func() time.Time { return at }}

	_, ok, err := c.Load(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Store(ctx, 7, orders.PaymentParcial))
	assert.JSONEq(t, `{"estado_pago":"parcial","updated_at":"2026-10-19T15:30:00Z"}`, rdb.data[VentaStatusKey(7)])
	assert.Equal(t, TTLStatusCache, rdb.ttls[VentaStatusKey(7)])

	st, ok, err := c.Load(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, orders.PaymentParcial, st)

	require.NoError(t, c.Forget(ctx, 7))
	_, ok, err = c.Load(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStatusCacheCorruptEntry(t *testing.T) {
	rdb := newMemRedis()
	rdb.data[VentaStatusKey(3)] = "pagado"
	_, ok, err := (&StatusCache{RDB: rdb}).Load(context.Background(), 3)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestDeduper(t *testing.T) {
	ctx := context.Background()
	rdb := newMemRedis()
	d := &Deduper{RDB: rdb, Service: "inventario-svc"}

	seen, err := d.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, d.Mark(ctx, "evt-1"))
	seen, err = d.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)
	assert.Equal(t, TTLDedup, rdb.ttls[DedupKey("inventario-svc", "evt-1")])
}
