package orders

import (
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPendiente PaymentStatus = "pendiente"
	PaymentParcial   PaymentStatus = "parcial"
	PaymentPagado    PaymentStatus = "pagado"
)

// paymentEpsilon absorbs rounding left by amounts typed with more than two
// decimals (pagos.monto keeps four).
var paymentEpsilon = decimal.New(5, -3)

// DerivePaymentStatus is the authoritative per-venta status.
func DerivePaymentStatus(total, paid decimal.Decimal) PaymentStatus {
	switch {
	case paid.LessThanOrEqual(paymentEpsilon):
		return PaymentPendiente
	case paid.GreaterThanOrEqual(total.Sub(paymentEpsilon)):
		return PaymentPagado
	default:
		return PaymentParcial
	}
}

func SumPayments(payments []Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}

func (v *Venta) Paid() decimal.Decimal { return SumPayments(v.Payments) }

func (v *Venta) Balance() decimal.Decimal {
	b := v.Total().Sub(v.Paid())
	if b.IsNegative() {
		return decimal.Zero
	}
	return b
}

// Refresh recomputes the cached status from lines and payments.
func (v *Venta) Refresh() PaymentStatus {
	v.Status = DerivePaymentStatus(v.Total(), v.Paid())
	return v.Status
}

// EnsureEditable rejects line edits on a fully paid venta.
func (v *Venta) EnsureEditable() error {
	if DerivePaymentStatus(v.Total(), v.Paid()) == PaymentPagado && v.Lines.Len() > 0 {
		return ErrOrderClosed
	}
	return nil
}

// AppendPayment records a payment in memory and recomputes the status.
func (v *Venta) AppendPayment(p Payment) error {
	if !p.Amount.IsPositive() {
		return invalid("monto", ErrInvalidPrice)
	}
	if !fitsScale(p.Amount, AmountScale) {
		return invalid("monto", ErrAmountScale)
	}
	if v.Status == PaymentPagado || DerivePaymentStatus(v.Total(), v.Paid()) == PaymentPagado {
		return ErrOrderClosed
	}
	p.VentaID = v.ID
	v.Payments = append(v.Payments, p)
	v.Refresh()
	return nil
}
