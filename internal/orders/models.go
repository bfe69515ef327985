package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Warehouse struct {
	ID   int64
	Name string
}

// Presentation is a sellable SKU as seen from one warehouse. Available is the
// stock of that warehouse only.
type Presentation struct {
	ID        int64
	ProductID int64
	Name      string
	Capacity  string
	UnitPrice decimal.Decimal
	Available int
}

type OrderLine struct {
	ID             int64 // 0 for lines not persisted yet
	PresentationID int64
	Quantity       int
	UnitPrice      decimal.Decimal
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is the shape shared by pedidos and ventas.
type Order struct {
	ClientID    int64
	WarehouseID int64
	Date        time.Time
	Notes       string
	Lines       LineSet
}

// Total is always derived from the lines.
func (o *Order) Total() decimal.Decimal { return o.Lines.Total() }

type Pedido struct {
	ID int64
	Order
	Status    PedidoStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewPedido(clientID, warehouseID int64, date time.Time) *Pedido {
	return &Pedido{
		Order:  Order{ClientID: clientID, WarehouseID: warehouseID, Date: date},
		Status: StatusProgramado,
	}
}

type PaymentType string

const (
	PaymentCredito PaymentType = "credito"
	PaymentContado PaymentType = "contado"
)

func (t PaymentType) Valid() bool { return t == PaymentCredito || t == PaymentContado }

type Venta struct {
	ID int64
	Order
	PaymentType PaymentType
	Payments    []Payment
	// Status is the last computed payment status; see Refresh.
	Status    PaymentStatus
	PedidoID  *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewVenta(clientID, warehouseID int64, date time.Time) *Venta {
	return &Venta{
		Order:       Order{ClientID: clientID, WarehouseID: warehouseID, Date: date},
		PaymentType: PaymentCredito,
		Status:      PaymentPendiente,
	}
}

type Payment struct {
	ID      int64
	VentaID int64
	Amount  decimal.Decimal
	Date    time.Time
	Method  string
}

// Lot only matters for the dry/wet weight form rule.
type Lot struct {
	ID             int64
	PresentationID int64
	Code           string
	PesoHumedoKg   decimal.Decimal
	PesoSecoKg     decimal.Decimal
}
