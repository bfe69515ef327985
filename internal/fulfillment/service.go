package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-distribution-orders/internal/catalog"
	"github.com/ariefcatur/go-distribution-orders/internal/forms"
	"github.com/ariefcatur/go-distribution-orders/internal/metrics"
	"github.com/ariefcatur/go-distribution-orders/internal/orders"
)

// ErrConfirmationRequired is returned by a warehouse change that would
// discard lines without the caller confirming it.
var ErrConfirmationRequired = errors.New("cambiar de almacén elimina los productos cargados; confirme el cambio")

type Deps struct {
	Pedidos  PedidoStore
	Ventas   VentaStore
	Payments PaymentStore
	Catalog  catalog.Fetcher
	Events   EventPublisher
	Guard    ConversionGuard
	Statuses StatusCache
	Clock    func() time.Time
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

type Service struct {
	Deps
	conv *Converter
}

func NewService(d Deps) *Service {
	if d.Events == nil {
		d.Events = nopPublisher{}
	}
	if d.Guard == nil {
		d.Guard = nopGuard{}
	}
	if d.Statuses == nil {
		d.Statuses = nopStatusCache{}
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{
		Deps: d,
		conv: &Converter{
			Pedidos: d.Pedidos,
			Ventas:  d.Ventas,
			Guard:   d.Guard,
			Events:  d.Events,
			Clock:   d.Clock,
			Logger:  d.Logger,
			Metrics: d.Metrics,
		},
	}
}

// Session returns a fresh catalog cache. One session backs one request.
func (s *Service) Session() *catalog.Cache {
	return catalog.New(s.Catalog,
		catalog.WithClock(s.Clock),
		catalog.WithLogger(s.Logger),
		catalog.WithMetrics(s.Metrics))
}

func (s *Service) Presentations(ctx context.Context, warehouseID int64) ([]orders.Presentation, error) {
	return s.Session().Get(ctx, warehouseID)
}

// PedidoResult carries the lines accepted over the available stock.
type PedidoResult struct {
	Pedido   *orders.Pedido
	Warnings []StockCheck
}

// ---- pedidos ----

func (s *Service) GetPedido(ctx context.Context, id int64) (*orders.Pedido, error) {
	p, err := s.Pedidos.GetPedido(ctx, id)
	if err != nil {
		return nil, orders.Transport("pedidos.get", err)
	}
	return p, nil
}

func (s *Service) CreatePedido(ctx context.Context, f forms.OrderForm) (*PedidoResult, error) {
	if err := f.Validate().Err(); err != nil {
		return nil, err
	}
	h, err := parseHeader(f)
	if err != nil {
		return nil, err
	}
	p := orders.NewPedido(h.clientID, h.warehouseID, h.date)
	p.Notes = f.Notes

	ed := NewPedidoEditor(p, s.Session()).WithMetrics(s.Metrics)
	warnings, err := fillLines(ctx, ed, f.Lines)
	if err != nil {
		return nil, err
	}
	saved, err := s.Pedidos.CreatePedido(ctx, p)
	if err != nil {
		return nil, orders.Transport("pedidos.create", err)
	}
	s.emit(ctx, orders.EventPedidoCreated, orders.TopicPedidoCreated, saved.ID, orders.PedidoCreatedPayload{
		PedidoID:    saved.ID,
		ClientID:    saved.ClientID,
		WarehouseID: saved.WarehouseID,
		Items:       orders.ItemPrices(saved.Lines.Lines()),
		Total:       saved.Total().String(),
	})
	return &PedidoResult{Pedido: saved, Warnings: warnings}, nil
}

// UpdatePedido replaces header and lines. A warehouse change in the form
// drops the previous lines before the new ones are loaded.
func (s *Service) UpdatePedido(ctx context.Context, id int64, f forms.OrderForm) (*PedidoResult, error) {
	if err := f.Validate().Err(); err != nil {
		return nil, err
	}
	h, err := parseHeader(f)
	if err != nil {
		return nil, err
	}
	p, err := s.GetPedido(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.EnsureOpen(); err != nil {
		return nil, err
	}

	ed := NewPedidoEditor(p, s.Session()).WithMetrics(s.Metrics)
	if err := ed.ChangeWarehouse(ctx, h.warehouseID); err != nil {
		return nil, err
	}
	if err := ed.Clear(); err != nil {
		return nil, err
	}
	p.ClientID, p.Date, p.Notes = h.clientID, h.date, f.Notes
	warnings, err := fillLines(ctx, ed, f.Lines)
	if err != nil {
		return nil, err
	}
	saved, err := s.Pedidos.UpdatePedido(ctx, p)
	if err != nil {
		return nil, orders.Transport("pedidos.update", err)
	}
	return &PedidoResult{Pedido: saved, Warnings: warnings}, nil
}

func (s *Service) TransitionPedido(ctx context.Context, id int64, to orders.PedidoStatus) (*orders.Pedido, error) {
	if !to.Valid() {
		return nil, &orders.ValidationError{Field: "estado", Message: "estado desconocido"}
	}
	p, err := s.GetPedido(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Transition(to); err != nil {
		return nil, err
	}
	if err := s.Pedidos.UpdatePedidoStatus(ctx, id, p.Status); err != nil {
		return nil, orders.Transport("pedidos.update_status", err)
	}
	s.Logger.Info("pedido status changed", zap.Int64("pedido_id", id), zap.String("estado", string(p.Status)))
	return p, nil
}

// ChangePedidoWarehouse moves an open pedido to another warehouse. When
// lines would be lost the caller must pass confirmed.
func (s *Service) ChangePedidoWarehouse(ctx context.Context, id, warehouseID int64, confirmed bool) (*orders.Pedido, error) {
	p, err := s.GetPedido(ctx, id)
	if err != nil {
		return nil, err
	}
	ed := NewPedidoEditor(p, s.Session()).WithMetrics(s.Metrics)
	if err := p.EnsureOpen(); err != nil {
		return nil, err
	}
	if ed.NeedsWarehouseConfirmation(warehouseID) && !confirmed {
		return nil, ErrConfirmationRequired
	}
	if err := ed.ChangeWarehouse(ctx, warehouseID); err != nil {
		return nil, err
	}
	saved, err := s.Pedidos.UpdatePedido(ctx, p)
	if err != nil {
		return nil, orders.Transport("pedidos.update", err)
	}
	return saved, nil
}

func (s *Service) DeletePedido(ctx context.Context, id int64) error {
	p, err := s.GetPedido(ctx, id)
	if err != nil {
		return err
	}
	if err := p.EnsureOpen(); err != nil {
		return err
	}
	return orders.Transport("pedidos.delete", s.Pedidos.DeletePedido(ctx, id))
}

func (s *Service) ConvertPedido(ctx context.Context, req ConvertRequest) (*ConvertResult, error) {
	res, err := s.conv.Convert(ctx, req)
	if err != nil {
		return nil, err
	}
	s.cacheStatus(ctx, res.Venta.ID, res.Venta.Status)
	return res, nil
}

// ---- ventas ----

func (s *Service) GetVenta(ctx context.Context, id int64) (*orders.Venta, error) {
	v, err := s.Ventas.GetVenta(ctx, id)
	if err != nil {
		return nil, orders.Transport("ventas.get", err)
	}
	v.Refresh()
	return v, nil
}

// CreateVenta refuses any line that exceeds the warehouse stock.
func (s *Service) CreateVenta(ctx context.Context, f forms.OrderForm) (*orders.Venta, error) {
	if err := f.Validate().Err(); err != nil {
		return nil, err
	}
	h, err := parseHeader(f)
	if err != nil {
		return nil, err
	}
	v := orders.NewVenta(h.clientID, h.warehouseID, h.date)
	v.Notes = f.Notes
	if f.PaymentType != "" {
		v.PaymentType = orders.PaymentType(f.PaymentType)
	}

	ed := NewVentaEditor(v, s.Session()).WithMetrics(s.Metrics)
	if _, err := fillLines(ctx, ed, f.Lines); err != nil {
		return nil, err
	}
	saved, err := s.Ventas.CreateVenta(ctx, v)
	if err != nil {
		return nil, orders.Transport("ventas.create", err)
	}
	saved.Refresh()
	s.cacheStatus(ctx, saved.ID, saved.Status)
	s.emit(ctx, orders.EventVentaCreated, orders.TopicVentaCreated, saved.ID, orders.NewVentaCreatedPayload(saved))
	return saved, nil
}

func (s *Service) UpdateVenta(ctx context.Context, id int64, f forms.OrderForm) (*orders.Venta, error) {
	if err := f.Validate().Err(); err != nil {
		return nil, err
	}
	h, err := parseHeader(f)
	if err != nil {
		return nil, err
	}
	v, err := s.GetVenta(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := v.EnsureEditable(); err != nil {
		return nil, err
	}

	// Payments are set aside while lines are rebuilt so a partial line set
	// is never seen as fully paid.
	payments := v.Payments
	v.Payments = nil
	ed := NewVentaEditor(v, s.Session()).WithMetrics(s.Metrics).CreditStored(v.Lines.Lines())
	if err := ed.ChangeWarehouse(ctx, h.warehouseID); err != nil {
		return nil, err
	}
	if err := ed.Clear(); err != nil {
		return nil, err
	}
	v.ClientID, v.Date, v.Notes = h.clientID, h.date, f.Notes
	if f.PaymentType != "" {
		v.PaymentType = orders.PaymentType(f.PaymentType)
	}
	if _, err := fillLines(ctx, ed, f.Lines); err != nil {
		return nil, err
	}
	v.Payments = payments
	v.Refresh()

	saved, err := s.Ventas.UpdateVenta(ctx, v)
	if err != nil {
		return nil, orders.Transport("ventas.update", err)
	}
	saved.Payments = payments
	saved.Refresh()
	s.cacheStatus(ctx, saved.ID, saved.Status)
	return saved, nil
}

func (s *Service) DeleteVenta(ctx context.Context, id int64) error {
	v, err := s.GetVenta(ctx, id)
	if err != nil {
		return err
	}
	if len(v.Payments) > 0 {
		return orders.ErrOrderClosed
	}
	if err := s.Ventas.DeleteVenta(ctx, id); err != nil {
		return orders.Transport("ventas.delete", err)
	}
	if err := s.Statuses.Forget(ctx, id); err != nil {
		s.Logger.Warn("status cache delete failed", zap.Int64("venta_id", id), zap.Error(err))
	}
	return nil
}

// VentaStatus reads the cached payment status, falling back to the store.
func (s *Service) VentaStatus(ctx context.Context, id int64) (orders.PaymentStatus, error) {
	st, ok, err := s.Statuses.Load(ctx, id)
	if err != nil {
		s.Logger.Warn("status cache read failed", zap.Int64("venta_id", id), zap.Error(err))
	}
	if ok {
		return st, nil
	}
	v, err := s.GetVenta(ctx, id)
	if err != nil {
		return "", err
	}
	s.cacheStatus(ctx, id, v.Status)
	return v.Status, nil
}

// ---- pagos ----

// RecordPayment appends a payment to the venta and persists it with the
// recomputed status. On failure the venta in the store is untouched.
func (s *Service) RecordPayment(ctx context.Context, ventaID int64, f forms.PaymentForm) (*orders.Venta, orders.Payment, error) {
	f.VentaID = strconv.FormatInt(ventaID, 10)
	if err := f.Validate().Err(); err != nil {
		return nil, orders.Payment{}, err
	}
	amount, err := orders.ParseAmount(f.Amount)
	if err != nil {
		return nil, orders.Payment{}, &orders.ValidationError{Field: "monto", Message: err.Error(), Err: err}
	}
	date, err := forms.ParseDate(f.Date)
	if err != nil {
		return nil, orders.Payment{}, &orders.ValidationError{Field: "fecha", Message: "fecha inválida"}
	}

	v, err := s.GetVenta(ctx, ventaID)
	if err != nil {
		return nil, orders.Payment{}, err
	}
	if err := v.AppendPayment(orders.Payment{Amount: amount, Date: date, Method: f.Method}); err != nil {
		return nil, orders.Payment{}, err
	}
	last := len(v.Payments) - 1
	saved, err := s.Payments.CreatePayment(ctx, v.Payments[last], v.Status)
	if err != nil {
		return nil, orders.Payment{}, orders.Transport("pagos.create", err)
	}
	v.Payments[last] = saved

	s.cacheStatus(ctx, v.ID, v.Status)
	s.emit(ctx, orders.EventPagoRegistrado, orders.TopicPagoRegistrado, v.ID, orders.PagoRegistradoPayload{
		VentaID: v.ID,
		PagoID:  saved.ID,
		Amount:  saved.Amount.String(),
		Status:  string(v.Status),
	})
	return v, saved, nil
}

func (s *Service) ListPayments(ctx context.Context, ventaID int64) ([]orders.Payment, error) {
	if _, err := s.GetVenta(ctx, ventaID); err != nil {
		return nil, err
	}
	ps, err := s.Payments.ListPaymentsByVenta(ctx, ventaID)
	if err != nil {
		return nil, orders.Transport("pagos.list", err)
	}
	return ps, nil
}

// ---- helpers ----

type header struct {
	clientID    int64
	warehouseID int64
	date        time.Time
}

func parseHeader(f forms.OrderForm) (header, error) {
	client, err := strconv.ParseInt(f.ClientID, 10, 64)
	if err != nil {
		return header{}, &orders.ValidationError{Field: "cliente_id", Message: "cliente inválido"}
	}
	wh, err := strconv.ParseInt(f.WarehouseID, 10, 64)
	if err != nil {
		return header{}, &orders.ValidationError{Field: "almacen_id", Message: "almacén inválido"}
	}
	date, err := forms.ParseDate(f.Date)
	if err != nil {
		return header{}, &orders.ValidationError{Field: "fecha", Message: "fecha inválida"}
	}
	return header{clientID: client, warehouseID: wh, date: date}, nil
}

// fillLines adds every form line through the editor and returns the checks
// that came back short.
func fillLines(ctx context.Context, ed *Editor, lines []forms.LineForm) ([]StockCheck, error) {
	var short []StockCheck
	for i, lf := range lines {
		field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }

		pid, err := strconv.ParseInt(lf.PresentationID, 10, 64)
		if err != nil {
			return nil, &orders.ValidationError{Field: field("presentacion_id"), Message: "presentación inválida"}
		}
		qty, err := orders.ParseQuantity(lf.Quantity)
		if err != nil {
			return nil, &orders.ValidationError{Field: field("cantidad"), Message: err.Error(), Err: err}
		}
		price, err := orders.ParsePrice(lf.UnitPrice)
		if err != nil {
			return nil, &orders.ValidationError{Field: field("precio_unitario"), Message: err.Error(), Err: err}
		}
		check, err := ed.AddLine(ctx, pid, qty, price)
		if err != nil {
			return nil, err
		}
		if !check.Sufficient() {
			short = append(short, check)
		}
	}
	return short, nil
}

func (s *Service) emit(ctx context.Context, eventType, topic string, key int64, payload any) {
	if err := s.Events.Emit(ctx, eventType, topic, key, payload); err != nil {
		s.Logger.Warn("publish failed", zap.String("topic", topic), zap.Int64("key", key), zap.Error(err))
	}
}

func (s *Service) cacheStatus(ctx context.Context, ventaID int64, st orders.PaymentStatus) {
	if err := s.Statuses.Store(ctx, ventaID, st); err != nil {
		s.Logger.Warn("status cache write failed", zap.Int64("venta_id", ventaID), zap.Error(err))
	}
}
