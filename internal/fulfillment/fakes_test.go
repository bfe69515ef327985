package fulfillment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-distribution-orders/internal/catalog"
	"github.com/ariefcatur/go-distribution-orders/internal/orders"
)

var errDown = errors.New("connection refused")

var fixedNow = time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pres(id int64, available int) orders.Presentation {
	return orders.Presentation{ID: id, Name: "presentacion", UnitPrice: dec("10"), Available: available}
}

// stock builds a fetcher over fixed per-warehouse slices.
func stock(slices map[int64][]orders.Presentation) catalog.Fetcher {
	return catalog.FetcherFunc(func(_ context.Context, warehouseID int64) ([]orders.Presentation, error) {
		return slices[warehouseID], nil
	})
}

func failingStock() catalog.Fetcher {
	return catalog.FetcherFunc(func(context.Context, int64) ([]orders.Presentation, error) {
		return nil, errDown
	})
}

// memStore is an in-memory PedidoStore, VentaStore and PaymentStore.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	pedidos  map[int64]*orders.Pedido
	ventas   map[int64]*orders.Venta
	payments map[int64][]orders.Payment
	deducted map[int64]bool

	createVentaErr   error
	updateStatusErr  error
	createPaymentErr error
}

func newMemStore() *memStore {
	return &memStore{
		pedidos:  map[int64]*orders.Pedido{},
		ventas:   map[int64]*orders.Venta{},
		payments: map[int64][]orders.Payment{},
		deducted: map[int64]bool{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func clonePedido(p *orders.Pedido) *orders.Pedido {
	cp := *p
	cp.Lines = orders.NewLineSet(p.Lines.Lines()...)
	return &cp
}

func cloneVenta(v *orders.Venta) *orders.Venta {
	cp := *v
	cp.Lines = orders.NewLineSet(v.Lines.Lines()...)
	cp.Payments = append([]orders.Payment(nil), v.Payments...)
	return &cp
}

// seedPedido stores p as is and returns its id.
func (m *memStore) seedPedido(p *orders.Pedido) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	m.pedidos[p.ID] = clonePedido(p)
	return p.ID
}

func (m *memStore) seedVenta(v *orders.Venta) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ID = m.id()
	m.ventas[v.ID] = cloneVenta(v)
	m.payments[v.ID] = append([]orders.Payment(nil), v.Payments...)
	return v.ID
}

func (m *memStore) GetPedido(_ context.Context, id int64) (*orders.Pedido, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pedidos[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return clonePedido(p), nil
}

func (m *memStore) CreatePedido(_ context.Context, p *orders.Pedido) (*orders.Pedido, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := clonePedido(p)
	cp.ID = m.id()
	m.pedidos[cp.ID] = cp
	return clonePedido(cp), nil
}

func (m *memStore) UpdatePedido(_ context.Context, p *orders.Pedido) (*orders.Pedido, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.pedidos[p.ID]
	if !ok {
		return nil, orders.ErrNotFound
	}
	if cur.Status.Terminal() {
		return nil, orders.ErrOrderClosed
	}
	m.pedidos[p.ID] = clonePedido(p)
	return clonePedido(p), nil
}

func (m *memStore) UpdatePedidoStatus(_ context.Context, id int64, status orders.PedidoStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateStatusErr != nil {
		return m.updateStatusErr
	}
	p, ok := m.pedidos[id]
	if !ok {
		return orders.ErrNotFound
	}
	p.Status = status
	return nil
}

func (m *memStore) DeletePedido(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pedidos[id]; !ok {
		return orders.ErrNotFound
	}
	delete(m.pedidos, id)
	return nil
}

func (m *memStore) GetVenta(_ context.Context, id int64) (*orders.Venta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.ventas[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	cp := cloneVenta(v)
	cp.Payments = append([]orders.Payment(nil), m.payments[id]...)
	return cp, nil
}

func (m *memStore) CreateVenta(_ context.Context, v *orders.Venta) (*orders.Venta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createVentaErr != nil {
		return nil, m.createVentaErr
	}
	cp := cloneVenta(v)
	cp.ID = m.id()
	m.ventas[cp.ID] = cp
	return cloneVenta(cp), nil
}

func (m *memStore) UpdateVenta(_ context.Context, v *orders.Venta) (*orders.Venta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.ventas[v.ID]
	if !ok {
		return nil, orders.ErrNotFound
	}
	if cur.Status == orders.PaymentPagado {
		return nil, orders.ErrOrderClosed
	}
	m.ventas[v.ID] = cloneVenta(v)
	return cloneVenta(v), nil
}

func (m *memStore) DeleteVenta(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ventas[id]; !ok {
		return orders.ErrNotFound
	}
	if m.deducted[id] {
		return orders.ErrStockDeducted
	}
	delete(m.ventas, id)
	return nil
}

func (m *memStore) ListPaymentsByVenta(_ context.Context, ventaID int64) ([]orders.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]orders.Payment(nil), m.payments[ventaID]...), nil
}

func (m *memStore) CreatePayment(_ context.Context, p orders.Payment, status orders.PaymentStatus) (orders.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createPaymentErr != nil {
		return orders.Payment{}, m.createPaymentErr
	}
	v, ok := m.ventas[p.VentaID]
	if !ok {
		return orders.Payment{}, orders.ErrNotFound
	}
	p.ID = m.id()
	m.payments[p.VentaID] = append(m.payments[p.VentaID], p)
	v.Status = status
	return p, nil
}

type emitted struct {
	eventType string
	topic     string
	key       int64
	payload   any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []emitted
	err    error
}

func (r *recordingPublisher) Emit(_ context.Context, eventType, topic string, key int64, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, emitted{eventType: eventType, topic: topic, key: key, payload: payload})
	return nil
}

func (r *recordingPublisher) topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.topic)
	}
	return out
}

type memGuard struct {
	mu   sync.Mutex
	held map[int64]bool
}

func (g *memGuard) Acquire(_ context.Context, id int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held == nil {
		g.held = map[int64]bool{}
	}
	if g.held[id] {
		return false, nil
	}
	g.held[id] = true
	return true, nil
}

func (g *memGuard) Release(_ context.Context, id int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, id)
	return nil
}

func (g *memGuard) isHeld(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held[id]
}

type memStatusCache struct {
	mu     sync.Mutex
	values map[int64]orders.PaymentStatus
	loads  int
}

func (c *memStatusCache) Store(_ context.Context, id int64, s orders.PaymentStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = map[int64]orders.PaymentStatus{}
	}
	c.values[id] = s
	return nil
}

func (c *memStatusCache) Load(_ context.Context, id int64) (orders.PaymentStatus, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loads++
	s, ok := c.values[id]
	return s, ok, nil
}

func (c *memStatusCache) Forget(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, id)
	return nil
}
