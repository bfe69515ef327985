package orders

import "github.com/shopspring/decimal"

// SaleSummary is the per-venta row used by dashboard aggregates.
type SaleSummary struct {
	Total  decimal.Decimal
	Status PaymentStatus
}

var half = decimal.New(5, -1)

// EstimateCollected approximates cash collected for a dashboard: pagado
// counts in full, parcial counts as half, pendiente as zero. It is a display
// heuristic and must not feed DerivePaymentStatus.
func EstimateCollected(sales []SaleSummary) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range sales {
		switch s.Status {
		case PaymentPagado:
			sum = sum.Add(s.Total)
		case PaymentParcial:
			sum = sum.Add(s.Total.Mul(half))
		}
	}
	return sum
}
