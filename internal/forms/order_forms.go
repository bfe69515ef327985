package forms

import (
	"strconv"
	"strings"

	"github.com/ariefcatur/go-distribution-orders/internal/orders"
)

const (
	msgRequired    = "campo obligatorio"
	msgPositiveInt = "debe ser un entero positivo"
	msgNonNegative = "debe ser un número mayor o igual a 0"
	msgPositive    = "debe ser un número mayor a 0"
	msgDate        = "fecha inválida (AAAA-MM-DD)"
	msgNoLines     = "agregue al menos un producto"
	msgDryOverWet  = "el peso seco no puede superar el peso húmedo"
	msgPaymentType = "tipo de pago inválido"
	msgPriceScale  = "máximo 2 decimales"
	msgAmountScale = "máximo 4 decimales"
)

// LineForm is one order line as typed in the UI.
type LineForm struct {
	PresentationID string `json:"presentacion_id"`
	Quantity       string `json:"cantidad"`
	UnitPrice      string `json:"precio_unitario"`
}

type OrderForm struct {
	ClientID    string     `json:"cliente_id"`
	WarehouseID string     `json:"almacen_id"`
	Date        string     `json:"fecha"`
	PaymentType string     `json:"tipo_pago,omitempty"`
	Notes       string     `json:"notas,omitempty"`
	Lines       []LineForm `json:"items"`
}

var orderRules = Rules{
	"cliente_id": {Required(msgRequired), PositiveInt(msgRequired)},
	"almacen_id": {Required(msgRequired), PositiveInt(msgRequired)},
	"fecha":      {Required(msgRequired), Date(msgDate)},
	"tipo_pago":  {Optional(OneOf(msgPaymentType, "credito", "contado"))},
}

var lineRules = Rules{
	"presentacion_id": {Required(msgRequired), PositiveInt(msgRequired)},
	"cantidad":        {Required(msgRequired), PositiveInt(msgPositiveInt)},
	"precio_unitario": {Required(msgRequired), NonNegativeDecimal(msgNonNegative), MaxDecimals(orders.PriceScale, msgPriceScale)},
}

// Validate checks header fields, presence of lines and every line. Line
// errors are keyed "items[i].field".
func (f OrderForm) Validate() Errors {
	errs := orderRules.Validate(map[string]string{
		"cliente_id": f.ClientID,
		"almacen_id": f.WarehouseID,
		"fecha":      f.Date,
		"tipo_pago":  f.PaymentType,
	})
	if len(f.Lines) == 0 {
		errs.add("items", msgNoLines)
	}
	for i, l := range f.Lines {
		lineErrs := lineRules.Validate(map[string]string{
			"presentacion_id": l.PresentationID,
			"cantidad":        l.Quantity,
			"precio_unitario": l.UnitPrice,
		})
		for field, msg := range lineErrs {
			errs.add("items["+strconv.Itoa(i)+"]."+field, msg)
		}
	}
	return errs
}

type PaymentForm struct {
	VentaID string `json:"venta_id"`
	Amount  string `json:"monto"`
	Date    string `json:"fecha"`
	Method  string `json:"metodo_pago"`
}

var paymentRules = Rules{
	"venta_id":    {Required(msgRequired), PositiveInt(msgRequired)},
	"monto":       {Required(msgRequired), PositiveDecimal(msgPositive), MaxDecimals(orders.AmountScale, msgAmountScale)},
	"fecha":       {Required(msgRequired), Date(msgDate)},
	"metodo_pago": {Required(msgRequired)},
}

func (f PaymentForm) Validate() Errors {
	return paymentRules.Validate(map[string]string{
		"venta_id":    f.VentaID,
		"monto":       f.Amount,
		"fecha":       f.Date,
		"metodo_pago": f.Method,
	})
}

type LotForm struct {
	PresentationID string `json:"presentacion_id"`
	Code           string `json:"codigo"`
	PesoHumedoKg   string `json:"peso_humedo_kg"`
	PesoSecoKg     string `json:"peso_seco_kg"`
}

var lotRules = Rules{
	"presentacion_id": {Required(msgRequired), PositiveInt(msgRequired)},
	"codigo":          {Required(msgRequired)},
	"peso_humedo_kg":  {Optional(NonNegativeDecimal(msgNonNegative))},
	"peso_seco_kg":    {Optional(NonNegativeDecimal(msgNonNegative))},
}

// Validate includes the cross-field rule peso_seco_kg <= peso_humedo_kg
// when both weights are present and valid.
func (f LotForm) Validate() Errors {
	errs := lotRules.Validate(map[string]string{
		"presentacion_id": f.PresentationID,
		"codigo":          f.Code,
		"peso_humedo_kg":  f.PesoHumedoKg,
		"peso_seco_kg":    f.PesoSecoKg,
	})
	wet, okWet := parseDecimal(f.PesoHumedoKg)
	dry, okDry := parseDecimal(f.PesoSecoKg)
	if okWet && okDry && errs["peso_seco_kg"] == "" && errs["peso_humedo_kg"] == "" && dry.GreaterThan(wet) {
		errs.add("peso_seco_kg", msgDryOverWet)
	}
	return errs
}

// Lot returns the validated lot. Empty weights stay zero.
func (f LotForm) Lot() (orders.Lot, error) {
	if err := f.Validate().Err(); err != nil {
		return orders.Lot{}, err
	}
	pid, _ := strconv.ParseInt(strings.TrimSpace(f.PresentationID), 10, 64)
	wet, _ := parseDecimal(f.PesoHumedoKg)
	dry, _ := parseDecimal(f.PesoSecoKg)
	return orders.Lot{
		PresentationID: pid,
		Code:           strings.TrimSpace(f.Code),
		PesoHumedoKg:   wet,
		PesoSecoKg:     dry,
	}, nil
}
