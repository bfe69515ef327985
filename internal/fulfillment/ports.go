// Package fulfillment composes pedidos and ventas on top of the catalog
// cache, runs the pedido to venta conversion and records payments.
package fulfillment

import (
	"context"

	"github.com/ariefcatur/go-distribution-orders/internal/orders"
)

type PedidoStore interface {
	GetPedido(ctx context.Context, id int64) (*orders.Pedido, error)
	CreatePedido(ctx context.Context, p *orders.Pedido) (*orders.Pedido, error)
	UpdatePedido(ctx context.Context, p *orders.Pedido) (*orders.Pedido, error)
	UpdatePedidoStatus(ctx context.Context, id int64, status orders.PedidoStatus) error
	DeletePedido(ctx context.Context, id int64) error
}

type VentaStore interface {
	GetVenta(ctx context.Context, id int64) (*orders.Venta, error)
	CreateVenta(ctx context.Context, v *orders.Venta) (*orders.Venta, error)
	UpdateVenta(ctx context.Context, v *orders.Venta) (*orders.Venta, error)
	// DeleteVenta returns orders.ErrStockDeducted once stock was moved.
	DeleteVenta(ctx context.Context, id int64) error
}

type PaymentStore interface {
	ListPaymentsByVenta(ctx context.Context, ventaID int64) ([]orders.Payment, error)
	// CreatePayment persists p and the venta's new status atomically.
	CreatePayment(ctx context.Context, p orders.Payment, status orders.PaymentStatus) (orders.Payment, error)
}

// EventPublisher emits a domain event keyed by the owning record id.
type EventPublisher interface {
	Emit(ctx context.Context, eventType, topic string, key int64, payload any) error
}

// ConversionGuard ensures a pedido is converted at most once even when two
// requests race past the status check.
type ConversionGuard interface {
	Acquire(ctx context.Context, pedidoID int64) (bool, error)
	Release(ctx context.Context, pedidoID int64) error
}

type StatusCache interface {
	Store(ctx context.Context, ventaID int64, status orders.PaymentStatus) error
	Load(ctx context.Context, ventaID int64) (orders.PaymentStatus, bool, error)
	Forget(ctx context.Context, ventaID int64) error
}

type nopPublisher struct{}

func (nopPublisher) Emit(context.Context, string, string, int64, any) error { return nil }

type nopGuard struct{}

func (nopGuard) Acquire(context.Context, int64) (bool, error) { return true, nil }
func (nopGuard) Release(context.Context, int64) error         { return nil }

type nopStatusCache struct{}

func (nopStatusCache) Store(context.Context, int64, orders.PaymentStatus) error { return nil }
func (nopStatusCache) Load(context.Context, int64) (orders.PaymentStatus, bool, error) {
	return "", false, nil
}
func (nopStatusCache) Forget(context.Context, int64) error { return nil }
