package fulfillment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-distribution-orders/internal/forms"
	"github.com/ariefcatur/go-distribution-orders/internal/orders"
)

type serviceFixture struct {
	store    *memStore
	events   *recordingPublisher
	statuses *memStatusCache
	svc      *Service
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		store:    newMemStore(),
		events:   &recordingPublisher{},
		statuses: &memStatusCache{},
	}
	f.svc = NewService(Deps{
		Pedidos:  f.store,
		Ventas:   f.store,
		Payments: f.store,
		Catalog:  warehouses(),
		Events:   f.events,
		Guard:    &memGuard{},
		Statuses: f.statuses,
		Clock:    clock,
	})
	return f
}

func orderForm(lines ...forms.LineForm) forms.OrderForm {
	return forms.OrderForm{ClientID: "3", WarehouseID: "1", Date: "2026-10-21", Lines: lines}
}

func line(pid, qty, price string) forms.LineForm {
	return forms.LineForm{PresentationID: pid, Quantity: qty, UnitPrice: price}
}

func TestCreatePedidoInvalidForm(t *testing.T) {
	f := newServiceFixture()
	_, err := f.svc.CreatePedido(context.Background(), forms.OrderForm{ClientID: "3"})

	var fe forms.Errors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "almacen_id")
	assert.Empty(t, f.store.pedidos)
}

func TestCreatePedidoReportsShortage(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()

	res, err := f.svc.CreatePedido(ctx, orderForm(line("7", "8", "15,50"), line("8", "1", "2")))
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, int64(7), res.Warnings[0].PresentationID)
	assert.Equal(t, 5, res.Warnings[0].Available)
	assert.Equal(t, orders.StatusProgramado, res.Pedido.Status)
	assert.Equal(t, "126", res.Pedido.Total().String())
	assert.Equal(t, []string{orders.TopicPedidoCreated}, f.events.topics())
}

func TestCreateVentaRefusesShortage(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()

	_, err := f.svc.CreateVenta(ctx, orderForm(line("7", "6", "10")))
	var se *orders.InsufficientStockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 5, se.Available)
	assert.Empty(t, f.store.ventas)

	form := orderForm(line("7", "5", "10"))
	form.PaymentType = "contado"
	v, err := f.svc.CreateVenta(ctx, form)
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentContado, v.PaymentType)
	assert.Equal(t, orders.PaymentPendiente, f.statuses.values[v.ID])
	assert.Equal(t, []string{orders.TopicVentaCreated}, f.events.topics())
}

func TestRecordPayments(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	v, err := f.svc.CreateVenta(ctx, orderForm(line("8", "4", "25")))
	require.NoError(t, err)

	pay := func(amount string) (*orders.Venta, error) {
		v, _, err := f.svc.RecordPayment(ctx, v.ID, forms.PaymentForm{Amount: amount, Date: "2026-10-19", Method: "efectivo"})
		return v, err
	}

	got, err := pay("40")
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentParcial, got.Status)
	assert.Equal(t, orders.PaymentParcial, f.statuses.values[v.ID])

	got, err = pay("59.996")
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentPagado, got.Status)

	_, err = pay("1")
	assert.ErrorIs(t, err, orders.ErrOrderClosed)

	ps, err := f.svc.ListPayments(ctx, v.ID)
	require.NoError(t, err)
	assert.Len(t, ps, 2)
	assert.Equal(t, orders.PaymentPagado, f.store.ventas[v.ID].Status)
}

func TestRecordPaymentValidationAndTransport(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	v, err := f.svc.CreateVenta(ctx, orderForm(line("8", "1", "10")))
	require.NoError(t, err)

	_, _, err = f.svc.RecordPayment(ctx, v.ID, forms.PaymentForm{Amount: "0", Date: "2026-10-19", Method: "efectivo"})
	var fe forms.Errors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "monto")

	f.store.createPaymentErr = errDown
	_, _, err = f.svc.RecordPayment(ctx, v.ID, forms.PaymentForm{Amount: "5", Date: "2026-10-19", Method: "efectivo"})
	var te *orders.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, orders.PaymentPendiente, f.statuses.values[v.ID])

	_, _, err = f.svc.RecordPayment(ctx, 999, forms.PaymentForm{Amount: "5", Date: "2026-10-19", Method: "efectivo"})
	assert.ErrorIs(t, err, orders.ErrNotFound)
}

func TestVentaStatusUsesCache(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	v := orders.NewVenta(3, 1, fixedNow)
	v.Lines = orders.NewLineSet(orders.OrderLine{PresentationID: 8, Quantity: 1, UnitPrice: dec("10")})
	v.Payments = []orders.Payment{{Amount: dec("3")}}
	id := f.store.seedVenta(v)

	st, err := f.svc.VentaStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentParcial, st)
	assert.Equal(t, orders.PaymentParcial, f.statuses.values[id])

	f.statuses.values[id] = orders.PaymentPagado
	st, err = f.svc.VentaStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentPagado, st)
	assert.Equal(t, 2, f.statuses.loads)
}

func TestTransitionPedido(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	res, err := f.svc.CreatePedido(ctx, orderForm(line("8", "1", "10")))
	require.NoError(t, err)
	id := res.Pedido.ID

	p, err := f.svc.TransitionPedido(ctx, id, orders.StatusConfirmado)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusConfirmado, p.Status)

	_, err = f.svc.TransitionPedido(ctx, id, orders.StatusEntregado)
	assert.ErrorIs(t, err, orders.ErrInvalidTransition)

	_, err = f.svc.TransitionPedido(ctx, id, "perdido")
	var ve *orders.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = f.svc.TransitionPedido(ctx, id, orders.StatusCancelado)
	require.NoError(t, err)
	_, err = f.svc.TransitionPedido(ctx, id, orders.StatusConfirmado)
	assert.ErrorIs(t, err, orders.ErrOrderClosed)
	_, err = f.svc.UpdatePedido(ctx, id, orderForm(line("8", "2", "10")))
	assert.ErrorIs(t, err, orders.ErrOrderClosed)
	assert.ErrorIs(t, f.svc.DeletePedido(ctx, id), orders.ErrOrderClosed)
}

func TestChangePedidoWarehouseNeedsConfirmation(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	res, err := f.svc.CreatePedido(ctx, orderForm(line("7", "2", "10")))
	require.NoError(t, err)
	id := res.Pedido.ID

	_, err = f.svc.ChangePedidoWarehouse(ctx, id, 2, false)
	assert.ErrorIs(t, err, ErrConfirmationRequired)
	stored, _ := f.store.GetPedido(ctx, id)
	assert.Equal(t, 1, stored.Lines.Len())

	p, err := f.svc.ChangePedidoWarehouse(ctx, id, 2, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.WarehouseID)
	assert.Zero(t, p.Lines.Len())
}

func TestUpdateVentaWithPaymentsKeepsAllLines(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	v, err := f.svc.CreateVenta(ctx, orderForm(line("8", "10", "10")))
	require.NoError(t, err)
	_, _, err = f.svc.RecordPayment(ctx, v.ID, forms.PaymentForm{Amount: "30", Date: "2026-10-19", Method: "efectivo"})
	require.NoError(t, err)

	got, err := f.svc.UpdateVenta(ctx, v.ID, orderForm(line("8", "2", "10"), line("7", "2", "10")))
	require.NoError(t, err)
	assert.Equal(t, 2, got.Lines.Len())
	assert.Equal(t, "40", got.Total().String())
	assert.Equal(t, orders.PaymentParcial, got.Status)
}

func TestDeleteVentaWithPayments(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	v, err := f.svc.CreateVenta(ctx, orderForm(line("8", "1", "10")))
	require.NoError(t, err)
	_, _, err = f.svc.RecordPayment(ctx, v.ID, forms.PaymentForm{Amount: "3", Date: "2026-10-19", Method: "efectivo"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteVenta(ctx, v.ID), orders.ErrOrderClosed)

	other, err := f.svc.CreateVenta(ctx, orderForm(line("8", "1", "10")))
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteVenta(ctx, other.ID))
	_, err = f.svc.GetVenta(ctx, other.ID)
	assert.ErrorIs(t, err, orders.ErrNotFound)
}

func TestServiceConvertCachesStatus(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	res, err := f.svc.CreatePedido(ctx, orderForm(line("8", "1", "10")))
	require.NoError(t, err)

	conv, err := f.svc.ConvertPedido(ctx, ConvertRequest{PedidoID: res.Pedido.ID})
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentPendiente, f.statuses.values[conv.Venta.ID])
}

func TestUpdateVentaAfterStockDeduction(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	v, err := f.svc.CreateVenta(ctx, orderForm(line("7", "5", "10")))
	require.NoError(t, err)

	// the inventory consumer took the 5 units
	f.svc.Catalog = stock(map[int64][]orders.Presentation{1: {pres(7, 0)}})

	form := orderForm(line("7", "5", "10"))
	form.Notes = "entregar en portería"
	got, err := f.svc.UpdateVenta(ctx, v.ID, form)
	require.NoError(t, err)
	assert.Equal(t, "entregar en portería", got.Notes)
	assert.Equal(t, 5, got.Lines.Quantity(7))

	_, err = f.svc.UpdateVenta(ctx, v.ID, orderForm(line("7", "6", "10")))
	var se *orders.InsufficientStockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 5, se.Available)
	assert.Equal(t, 5, f.store.ventas[v.ID].Lines.Quantity(7))
}

func TestServiceRejectsUnstorablePrecision(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()

	_, err := f.svc.CreateVenta(ctx, orderForm(line("8", "3", "15.555")))
	var fe forms.Errors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "items[0].precio_unitario")
	assert.Empty(t, f.store.ventas)

	v, err := f.svc.CreateVenta(ctx, orderForm(line("8", "3", "15.55")))
	require.NoError(t, err)
	_, _, err = f.svc.RecordPayment(ctx, v.ID, forms.PaymentForm{Amount: "1.00001", Date: "2026-10-19", Method: "efectivo"})
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "monto")
	assert.Empty(t, f.store.payments[v.ID])
}

func TestDeleteVentaAfterDeductionAndCache(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture()
	deducted, err := f.svc.CreateVenta(ctx, orderForm(line("8", "1", "10")))
	require.NoError(t, err)
	f.store.deducted[deducted.ID] = true

	err = f.svc.DeleteVenta(ctx, deducted.ID)
	assert.ErrorIs(t, err, orders.ErrStockDeducted)
	var te *orders.TransportError
	assert.False(t, errors.As(err, &te))
	assert.Contains(t, f.statuses.values, deducted.ID)

	other, err := f.svc.CreateVenta(ctx, orderForm(line("8", "1", "10")))
	require.NoError(t, err)
	require.Contains(t, f.statuses.values, other.ID)
	require.NoError(t, f.svc.DeleteVenta(ctx, other.ID))
	assert.NotContains(t, f.statuses.values, other.ID)

	_, err = f.svc.VentaStatus(ctx, other.ID)
	assert.ErrorIs(t, err, orders.ErrNotFound)
}
