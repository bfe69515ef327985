package orders

import (
	"encoding/json"
	"time"
)

const (
	EventPedidoCreated   = "PedidoCreated"
	EventPedidoConverted = "PedidoConverted"
	EventVentaCreated    = "VentaCreated"
	EventPagoRegistrado  = "PagoRegistrado"
	EventStockDeducted   = "StockDeducted"
	EventStockRejected   = "StockRejected"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // id de la venta o pedido
	Payload       json.RawMessage `json:"payload"`
}

// Montos viajan como string decimal.

type ItemQty struct {
	PresentationID int64 `json:"presentacion_id"`
	Qty            int   `json:"cantidad"`
}

type ItemPrice struct {
	PresentationID int64  `json:"presentacion_id"`
	Qty            int    `json:"cantidad"`
	UnitPrice      string `json:"precio_unitario"`
}

type PedidoCreatedPayload struct {
	PedidoID    int64       `json:"pedido_id"`
	ClientID    int64       `json:"cliente_id"`
	WarehouseID int64       `json:"almacen_id"`
	Items       []ItemPrice `json:"items"`
	Total       string      `json:"total"`
}

type VentaCreatedPayload struct {
	VentaID     int64       `json:"venta_id"`
	PedidoID    *int64      `json:"pedido_id,omitempty"`
	ClientID    int64       `json:"cliente_id"`
	WarehouseID int64       `json:"almacen_id"`
	PaymentType string      `json:"tipo_pago"`
	Items       []ItemPrice `json:"items"`
	Total       string      `json:"total"`
}

type PedidoConvertedPayload struct {
	PedidoID int64  `json:"pedido_id"`
	VentaID  int64  `json:"venta_id"`
	Warning  string `json:"warning,omitempty"`
}

type PagoRegistradoPayload struct {
	VentaID int64  `json:"venta_id"`
	PagoID  int64  `json:"pago_id"`
	Amount  string `json:"monto"`
	Status  string `json:"estado_pago"`
}

type StockDeductedPayload struct {
	VentaID     int64     `json:"venta_id"`
	WarehouseID int64     `json:"almacen_id"`
	Items       []ItemQty `json:"items"`
}

type StockRejectedDetail struct {
	PresentationID int64 `json:"presentacion_id"`
	Required       int   `json:"requerido"`
	Available      int   `json:"disponible"`
}

type StockRejectedPayload struct {
	VentaID     int64                 `json:"venta_id"`
	WarehouseID int64                 `json:"almacen_id"`
	Reason      string                `json:"reason"` // OUT_OF_STOCK
	Details     []StockRejectedDetail `json:"details,omitempty"`
}

func ItemPrices(lines []OrderLine) []ItemPrice {
	out := make([]ItemPrice, 0, len(lines))
	for _, l := range lines {
		out = append(out, ItemPrice{PresentationID: l.PresentationID, Qty: l.Quantity, UnitPrice: l.UnitPrice.String()})
	}
	return out
}

func NewVentaCreatedPayload(v *Venta) VentaCreatedPayload {
	return VentaCreatedPayload{
		VentaID:     v.ID,
		PedidoID:    v.PedidoID,
		ClientID:    v.ClientID,
		WarehouseID: v.WarehouseID,
		PaymentType: string(v.PaymentType),
		Items:       ItemPrices(v.Lines.Lines()),
		Total:       v.Total().String(),
	}
}
