package fulfillment

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-distribution-orders/internal/catalog"
	"github.com/ariefcatur/go-distribution-orders/internal/metrics"
	"github.com/ariefcatur/go-distribution-orders/internal/orders"
)

// StockCheck is the stock seen for one line operation. Requested is the
// quantity the line would hold after the operation.
type StockCheck struct {
	PresentationID int64 `json:"presentacion_id"`
	WarehouseID    int64 `json:"almacen_id"`
	Requested      int   `json:"cantidad"`
	Available      int   `json:"disponible"`
}

func (c StockCheck) Sufficient() bool { return c.Requested <= c.Available }

func (c StockCheck) Err() error {
	if c.Sufficient() {
		return nil
	}
	return &orders.InsufficientStockError{
		PresentationID: c.PresentationID,
		WarehouseID:    c.WarehouseID,
		Requested:      c.Requested,
		Available:      c.Available,
	}
}

// Editor mutates the lines and warehouse of one pedido or venta. Pedidos
// report stock shortages but accept the line; ventas refuse it. An Editor
// belongs to a single editing session and is not safe for concurrent use.
type Editor struct {
	// Strict selects UpdateStrict/RemoveStrict semantics instead of the
	// clamping UI behaviour.
	Strict bool

	order     *orders.Order
	validator *catalog.Validator
	open      func() error
	refresh   func()
	mandatory bool
	metrics   *metrics.Metrics

	// stock already held by the stored order, per presentation, in
	// creditWarehouse
	credit          map[int64]int
	creditWarehouse int64
}

func NewPedidoEditor(p *orders.Pedido, cache *catalog.Cache) *Editor {
	return &Editor{
		order:     &p.Order,
		validator: catalog.NewValidator(cache),
		open:      p.EnsureOpen,
		refresh:   func() {},
	}
}

func NewVentaEditor(v *orders.Venta, cache *catalog.Cache) *Editor {
	return &Editor{
		order:     &v.Order,
		validator: catalog.NewValidator(cache),
		open:      v.EnsureEditable,
		refresh:   func() { v.Refresh() },
		mandatory: true,
	}
}

func (e *Editor) WithMetrics(m *metrics.Metrics) *Editor {
	e.metrics = m
	return e
}

// CreditStored counts lines already persisted for this order as available
// in the current warehouse, so a stored venta whose stock was deducted can be
// re-saved and only quantities above the stored ones are checked. Changing
// warehouse drops the credit.
func (e *Editor) CreditStored(lines []orders.OrderLine) *Editor {
	e.credit = make(map[int64]int, len(lines))
	for _, l := range lines {
		e.credit[l.PresentationID] += l.Quantity
	}
	e.creditWarehouse = e.order.WarehouseID
	return e
}

func (e *Editor) Lines() []orders.OrderLine { return e.order.Lines.Lines() }

func (e *Editor) Total() decimal.Decimal { return e.order.Total() }

// AddLine checks stock for the merged quantity and then adds or merges the
// line. The returned check is filled whenever stock was consulted.
func (e *Editor) AddLine(ctx context.Context, presentationID int64, quantity int, unitPrice decimal.Decimal) (StockCheck, error) {
	if err := e.open(); err != nil {
		return StockCheck{}, err
	}
	if err := e.requireWarehouse(); err != nil {
		return StockCheck{}, err
	}
	if err := orders.ValidateLine(quantity, unitPrice); err != nil {
		return StockCheck{}, err
	}
	check, err := e.check(ctx, presentationID, e.order.Lines.Quantity(presentationID)+quantity)
	if err != nil {
		return StockCheck{}, err
	}
	if err := e.enforce(check); err != nil {
		return check, err
	}
	if err := e.order.Lines.Add(presentationID, quantity, unitPrice); err != nil {
		return check, err
	}
	e.refresh()
	return check, nil
}

// UpdateLine edits one field from raw input. Quantity edits are checked
// against stock like AddLine; price edits are not.
func (e *Editor) UpdateLine(ctx context.Context, index int, field orders.LineField, value string) (StockCheck, error) {
	if err := e.open(); err != nil {
		return StockCheck{}, err
	}
	next := orders.NewLineSet(e.order.Lines.Lines()...)
	var err error
	if e.Strict {
		err = next.UpdateStrict(index, field, value)
	} else {
		err = next.Update(index, field, value)
	}
	if err != nil {
		return StockCheck{}, err
	}

	var check StockCheck
	if l, ok := next.At(index); ok && field == orders.FieldQuantity {
		if check, err = e.check(ctx, l.PresentationID, l.Quantity); err != nil {
			return StockCheck{}, err
		}
		if err := e.enforce(check); err != nil {
			return check, err
		}
	}
	e.order.Lines = next
	e.refresh()
	return check, nil
}

func (e *Editor) RemoveLine(index int) error {
	if err := e.open(); err != nil {
		return err
	}
	if e.Strict {
		if err := e.order.Lines.RemoveStrict(index); err != nil {
			return err
		}
	} else {
		e.order.Lines.Remove(index)
	}
	e.refresh()
	return nil
}

func (e *Editor) Clear() error {
	if err := e.open(); err != nil {
		return err
	}
	e.order.Lines.Clear()
	e.refresh()
	return nil
}

// NeedsWarehouseConfirmation reports whether switching to warehouseID would
// discard lines.
func (e *Editor) NeedsWarehouseConfirmation(warehouseID int64) bool {
	return warehouseID != e.order.WarehouseID && e.order.Lines.Len() > 0
}

// ChangeWarehouse loads the new warehouse's catalog, then clears every line
// and forgets the previous warehouse's slice. If the load fails nothing is
// changed.
func (e *Editor) ChangeWarehouse(ctx context.Context, warehouseID int64) error {
	if err := e.open(); err != nil {
		return err
	}
	if warehouseID <= 0 {
		return &orders.ValidationError{Field: "almacen_id", Message: "almacén inválido"}
	}
	if warehouseID == e.order.WarehouseID {
		return nil
	}
	if _, err := e.validator.Cache.Get(ctx, warehouseID); err != nil {
		return err
	}
	prev := e.order.WarehouseID
	e.order.Lines.Clear()
	e.order.WarehouseID = warehouseID
	if prev != 0 {
		e.validator.Cache.Invalidate(prev)
	}
	e.refresh()
	return nil
}

func (e *Editor) requireWarehouse() error {
	if e.order.WarehouseID <= 0 {
		return &orders.ValidationError{Field: "almacen_id", Message: "seleccione un almacén"}
	}
	return nil
}

func (e *Editor) check(ctx context.Context, presentationID int64, requested int) (StockCheck, error) {
	available, err := e.validator.Available(ctx, presentationID, e.order.WarehouseID)
	if err != nil {
		return StockCheck{}, err
	}
	if e.order.WarehouseID == e.creditWarehouse {
		available += e.credit[presentationID]
	}
	return StockCheck{
		PresentationID: presentationID,
		WarehouseID:    e.order.WarehouseID,
		Requested:      requested,
		Available:      available,
	}, nil
}

func (e *Editor) enforce(c StockCheck) error {
	if c.Sufficient() || !e.mandatory {
		return nil
	}
	if e.metrics != nil {
		e.metrics.StockRejects.Inc()
	}
	return c.Err()
}
