// Package inventory deducts warehouse stock for every venta.created event.
package inventory

import (
	"context"
	"errors"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-distribution-orders/internal/kafka"
	"github.com/ariefcatur/go-distribution-orders/internal/orders"
)

type StockStore interface {
	AlreadyDeducted(ctx context.Context, ventaID int64, itemCount int) (bool, error)
	DeductAll(ctx context.Context, ventaID, warehouseID int64, items []orders.ItemQty) (bool, []orders.StockRejectedDetail, error)
}

type Deduper interface {
	Seen(ctx context.Context, id string) (bool, error)
	Mark(ctx context.Context, id string) error
}

type Emitter interface {
	Emit(ctx context.Context, eventType, topic string, key int64, payload any) error
}

type Service struct {
	Stock  StockStore
	Dedup  Deduper
	Events Emitter
	Logger *zap.Logger
}

// HandleVentaCreated is the consumer handler. Undecodable messages are
// logged and skipped so they do not block the partition.
func (s *Service) HandleVentaCreated(ctx context.Context, m kafkago.Message) error {
	log := s.logger()

	env, err := kafkax.DecodeEnvelope(m.Value)
	if err != nil {
		log.Error("skipping message", zap.ByteString("key", m.Key), zap.Error(err))
		return nil
	}
	if env.EventType != orders.EventVentaCreated {
		return nil
	}
	log = log.With(zap.String("event_id", env.EventID), zap.String("trace_id", env.TraceID))

	if seen, err := s.Dedup.Seen(ctx, env.EventID); err != nil {
		log.Warn("dedup lookup failed", zap.Error(err))
	} else if seen {
		log.Debug("duplicate event")
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.VentaCreatedPayload](env.Payload)
	if err != nil {
		log.Error("skipping event", zap.Error(err))
		return nil
	}
	items := make([]orders.ItemQty, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, orders.ItemQty{PresentationID: it.PresentationID, Qty: it.Qty})
	}

	if err := s.deduct(ctx, p, items); errors.Is(err, orders.ErrNotFound) {
		log.Info("venta deleted before deduction", zap.Int64("venta_id", p.VentaID))
	} else if err != nil {
		return err
	}
	if err := s.Dedup.Mark(ctx, env.EventID); err != nil {
		log.Warn("dedup mark failed", zap.Error(err))
	}
	return nil
}

func (s *Service) deduct(ctx context.Context, p orders.VentaCreatedPayload, items []orders.ItemQty) error {
	done, err := s.Stock.AlreadyDeducted(ctx, p.VentaID, len(items))
	if err != nil {
		return err
	}
	if done {
		// a redelivered event gets the same answer again
		return s.publishDeducted(ctx, p.VentaID, p.WarehouseID, items)
	}

	ok, details, err := s.Stock.DeductAll(ctx, p.VentaID, p.WarehouseID, items)
	if err != nil {
		return err
	}
	if ok {
		return s.publishDeducted(ctx, p.VentaID, p.WarehouseID, items)
	}
	s.logger().Warn("stock rejected",
		zap.Int64("venta_id", p.VentaID),
		zap.Int64("almacen_id", p.WarehouseID),
		zap.Int("items", len(details)))
	return s.Events.Emit(ctx, orders.EventStockRejected, orders.TopicStockRejected, p.VentaID, orders.StockRejectedPayload{
		VentaID:     p.VentaID,
		WarehouseID: p.WarehouseID,
		Reason:      "OUT_OF_STOCK",
		Details:     details,
	})
}

func (s *Service) publishDeducted(ctx context.Context, ventaID, warehouseID int64, items []orders.ItemQty) error {
	return s.Events.Emit(ctx, orders.EventStockDeducted, orders.TopicStockDeducted, ventaID, orders.StockDeductedPayload{
		VentaID:     ventaID,
		WarehouseID: warehouseID,
		Items:       items,
	})
}

func (s *Service) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}
