package catalog

import (
	"context"

	"github.com/ariefcatur/go-distribution-orders/internal/orders"
)

type Validator struct {
	Cache *Cache
}

func NewValidator(c *Cache) *Validator { return &Validator{Cache: c} }

// Validate returns nil when requested fits the warehouse stock and an
// *orders.InsufficientStockError otherwise. A presentation the warehouse
// does not stock has zero available.
func (v *Validator) Validate(ctx context.Context, presentationID int64, requested int, warehouseID int64) error {
	available, err := v.Available(ctx, presentationID, warehouseID)
	if err != nil {
		return err
	}
	if requested > available {
		return &orders.InsufficientStockError{
			PresentationID: presentationID,
			WarehouseID:    warehouseID,
			Requested:      requested,
			Available:      available,
		}
	}
	return nil
}

func (v *Validator) Available(ctx context.Context, presentationID, warehouseID int64) (int, error) {
	p, ok, err := v.Cache.Lookup(ctx, warehouseID, presentationID)
	if err != nil {
		return 0, err
	}
	if !ok || p.Available < 0 {
		return 0, nil
	}
	return p.Available, nil
}
