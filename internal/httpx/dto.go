package httpx

import (
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-distribution-orders/internal/fulfillment"
	"github.com/ariefcatur/go-distribution-orders/internal/orders"
)

const dateLayout = "2006-01-02"

type lineResp struct {
	ID             int64           `json:"id,omitempty"`
	PresentationID int64           `json:"presentacion_id"`
	Quantity       int             `json:"cantidad"`
	UnitPrice      decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type pedidoResp struct {
	ID          int64                    `json:"id"`
	ClientID    int64                    `json:"cliente_id"`
	WarehouseID int64                    `json:"almacen_id"`
	Date        string                   `json:"fecha_entrega"`
	Status      orders.PedidoStatus      `json:"estado"`
	Notes       string                   `json:"notas,omitempty"`
	Items       []lineResp               `json:"items"`
	Total       string                   `json:"total"`
	Warnings    []fulfillment.StockCheck `json:"advertencias_stock,omitempty"`
}

type ventaResp struct {
	ID          int64                `json:"id"`
	PedidoID    *int64               `json:"pedido_id,omitempty"`
	ClientID    int64                `json:"cliente_id"`
	WarehouseID int64                `json:"almacen_id"`
	Date        string               `json:"fecha"`
	PaymentType orders.PaymentType   `json:"tipo_pago"`
	Status      orders.PaymentStatus `json:"estado_pago"`
	Notes       string               `json:"notas,omitempty"`
	Items       []lineResp           `json:"items"`
	Total       string               `json:"total"`
	Paid        string               `json:"pagado"`
	Balance     string               `json:"saldo"`
	Warning     string               `json:"advertencia,omitempty"`
}

type paymentResp struct {
	ID      int64           `json:"id"`
	VentaID int64           `json:"venta_id"`
	Amount  decimal.Decimal `json:"monto"`
	Date    string          `json:"fecha"`
	Method  string          `json:"metodo_pago"`
}

type presentationResp struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"producto_id"`
	Name      string          `json:"nombre"`
	Capacity  string          `json:"capacidad,omitempty"`
	UnitPrice decimal.Decimal `json:"precio_venta"`
	Available int             `json:"disponible"`
}

func toLines(ls orders.LineSet) []lineResp {
	lines := ls.Lines()
	out := make([]lineResp, 0, len(lines))
	for _, l := range lines {
		out = append(out, lineResp{
			ID:             l.ID,
			PresentationID: l.PresentationID,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			Subtotal:       l.Subtotal(),
		})
	}
	return out
}

func toPedido(p *orders.Pedido, warnings []fulfillment.StockCheck) pedidoResp {
	return pedidoResp{
		ID:          p.ID,
		ClientID:    p.ClientID,
		WarehouseID: p.WarehouseID,
		Date:        p.Date.Format(dateLayout),
		Status:      p.Status,
		Notes:       p.Notes,
		Items:       toLines(p.Lines),
		Total:       p.Lines.DisplayTotal(),
		Warnings:    warnings,
	}
}

func toVenta(v *orders.Venta) ventaResp {
	return ventaResp{
		ID:          v.ID,
		PedidoID:    v.PedidoID,
		ClientID:    v.ClientID,
		WarehouseID: v.WarehouseID,
		Date:        v.Date.Format(dateLayout),
		PaymentType: v.PaymentType,
		Status:      v.Status,
		Notes:       v.Notes,
		Items:       toLines(v.Lines),
		Total:       v.Lines.DisplayTotal(),
		Paid:        v.Paid().StringFixed(2),
		Balance:     v.Balance().StringFixed(2),
	}
}

func toPayment(p orders.Payment) paymentResp {
	return paymentResp{ID: p.ID, VentaID: p.VentaID, Amount: p.Amount, Date: p.Date.Format(dateLayout), Method: p.Method}
}
