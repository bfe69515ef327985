package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-distribution-orders/internal/metrics"
	"github.com/ariefcatur/go-distribution-orders/internal/orders"
)

type ConvertRequest struct {
	PedidoID int64
	// WarehouseID is the acting warehouse; used only when the pedido has none.
	WarehouseID int64
	// PaymentType overrides the credito default when set.
	PaymentType orders.PaymentType
}

type ConvertResult struct {
	Venta *orders.Venta
	// Warning is set when the sale was created but the pedido could not be
	// marked entregado.
	Warning error
}

// Converter turns a pedido into a venta. The sale keeps the estimated prices
// of the pedido.
type Converter struct {
	Pedidos PedidoStore
	Ventas  VentaStore
	Guard   ConversionGuard
	Events  EventPublisher
	Clock   func() time.Time
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

func (c *Converter) Convert(ctx context.Context, req ConvertRequest) (*ConvertResult, error) {
	res, err := c.convert(ctx, req)
	c.count(res, err)
	return res, err
}

func (c *Converter) convert(ctx context.Context, req ConvertRequest) (*ConvertResult, error) {
	log := c.logger().With(zap.Int64("pedido_id", req.PedidoID))

	p, err := c.Pedidos.GetPedido(ctx, req.PedidoID)
	if errors.Is(err, orders.ErrNotFound) {
		return nil, orders.ErrSourceNotFound
	}
	if err != nil {
		return nil, orders.Transport("pedidos.get", err)
	}
	switch p.Status {
	case orders.StatusEntregado:
		return nil, orders.ErrAlreadyConverted
	case orders.StatusCancelado:
		return nil, orders.ErrOrderClosed
	}
	if p.Lines.Len() == 0 {
		return nil, &orders.ValidationError{Field: "items", Message: "el pedido no tiene productos"}
	}
	if req.PaymentType != "" && !req.PaymentType.Valid() {
		return nil, &orders.ValidationError{Field: "tipo_pago", Message: "tipo de pago inválido"}
	}
	warehouseID := p.WarehouseID
	if warehouseID == 0 {
		warehouseID = req.WarehouseID
	}
	if warehouseID <= 0 {
		return nil, &orders.ValidationError{Field: "almacen_id", Message: "seleccione un almacén"}
	}

	guard := c.guard()
	acquired, err := guard.Acquire(ctx, p.ID)
	if err != nil {
		return nil, orders.Transport("conversion.guard", err)
	}
	if !acquired {
		return nil, orders.ErrAlreadyConverted
	}

	v := orders.NewVenta(p.ClientID, warehouseID, today(c.now()))
	if req.PaymentType != "" {
		v.PaymentType = req.PaymentType
	}
	v.Notes = p.Notes
	pedidoID := p.ID
	v.PedidoID = &pedidoID
	lines := p.Lines.Lines()
	for i := range lines {
		lines[i].ID = 0
	}
	v.Lines = orders.NewLineSet(lines...)
	v.Refresh()

	saved, err := c.Ventas.CreateVenta(ctx, v)
	if err != nil {
		if rerr := guard.Release(ctx, p.ID); rerr != nil {
			log.Warn("conversion guard release failed", zap.Error(rerr))
		}
		log.Error("conversion failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", orders.ErrConversionFailed, orders.Transport("ventas.create", err))
	}
	saved.Refresh()

	res := &ConvertResult{Venta: saved}
	if err := p.Deliver(); err == nil {
		err = c.Pedidos.UpdatePedidoStatus(ctx, p.ID, orders.StatusEntregado)
		if err != nil {
			res.Warning = fmt.Errorf("venta %d creada pero el pedido %d no se marcó como entregado: %w", saved.ID, p.ID, err)
			log.Warn("pedido status update failed after conversion", zap.Int64("venta_id", saved.ID), zap.Error(err))
		}
	}

	events := c.events()
	if err := events.Emit(ctx, orders.EventVentaCreated, orders.TopicVentaCreated, saved.ID, orders.NewVentaCreatedPayload(saved)); err != nil {
		log.Warn("publish venta.created failed", zap.Int64("venta_id", saved.ID), zap.Error(err))
	}
	converted := orders.PedidoConvertedPayload{PedidoID: p.ID, VentaID: saved.ID}
	if res.Warning != nil {
		converted.Warning = res.Warning.Error()
	}
	if err := events.Emit(ctx, orders.EventPedidoConverted, orders.TopicPedidoConverted, p.ID, converted); err != nil {
		log.Warn("publish pedido.converted failed", zap.Int64("venta_id", saved.ID), zap.Error(err))
	}

	log.Info("pedido converted", zap.Int64("venta_id", saved.ID), zap.String("total", saved.Total().String()))
	return res, nil
}

func (c *Converter) count(res *ConvertResult, err error) {
	if c.Metrics == nil {
		return
	}
	result := "ok"
	var ve *orders.ValidationError
	switch {
	case err == nil && res.Warning != nil:
		result = "warning"
	case err == nil:
	case errors.Is(err, orders.ErrAlreadyConverted):
		result = "already_converted"
	case errors.Is(err, orders.ErrSourceNotFound):
		result = "not_found"
	case errors.Is(err, orders.ErrOrderClosed):
		result = "closed"
	case errors.As(err, &ve):
		result = "invalid"
	default:
		result = "failed"
	}
	c.Metrics.Conversions.WithLabelValues(result).Inc()
}

func (c *Converter) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

func (c *Converter) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

func (c *Converter) guard() ConversionGuard {
	if c.Guard != nil {
		return c.Guard
	}
	return nopGuard{}
}

func (c *Converter) events() EventPublisher {
	if c.Events != nil {
		return c.Events
	}
	return nopPublisher{}
}

func today(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
