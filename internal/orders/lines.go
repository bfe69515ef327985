package orders

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type LineField string

// Decimal places kept by the price and payment amount columns.
const (
	PriceScale  = 2
	AmountScale = 4
)

const (
	FieldQuantity  LineField = "cantidad"
	FieldUnitPrice LineField = "precio_unitario"
)

// LineSet is the ordered line collection of an order. It holds at most one
// line per presentation. Not safe for concurrent use.
type LineSet struct {
	lines []OrderLine
}

func NewLineSet(lines ...OrderLine) LineSet {
	var s LineSet
	for _, l := range lines {
		if i := s.indexOf(l.PresentationID); i >= 0 {
			s.lines[i].Quantity += l.Quantity
			continue
		}
		s.lines = append(s.lines, l)
	}
	return s
}

func (s *LineSet) Len() int { return len(s.lines) }

// Lines returns a copy.
func (s *LineSet) Lines() []OrderLine {
	out := make([]OrderLine, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *LineSet) At(index int) (OrderLine, bool) {
	if index < 0 || index >= len(s.lines) {
		return OrderLine{}, false
	}
	return s.lines[index], true
}

func (s *LineSet) Find(presentationID int64) (OrderLine, bool) {
	if i := s.indexOf(presentationID); i >= 0 {
		return s.lines[i], true
	}
	return OrderLine{}, false
}

// Quantity is the quantity currently held for presentationID (0 if absent).
func (s *LineSet) Quantity(presentationID int64) int {
	l, _ := s.Find(presentationID)
	return l.Quantity
}

func (s *LineSet) indexOf(presentationID int64) int {
	for i := range s.lines {
		if s.lines[i].PresentationID == presentationID {
			return i
		}
	}
	return -1
}

// Add appends a line or, when the presentation is already present, sums the
// quantity into the existing line and keeps its price.
func (s *LineSet) Add(presentationID int64, quantity int, unitPrice decimal.Decimal) error {
	if err := ValidateLine(quantity, unitPrice); err != nil {
		return err
	}
	if i := s.indexOf(presentationID); i >= 0 {
		s.lines[i].Quantity += quantity
		return nil
	}
	s.lines = append(s.lines, OrderLine{PresentationID: presentationID, Quantity: quantity, UnitPrice: unitPrice})
	return nil
}

// ValidateLine checks a candidate line without touching any set.
func ValidateLine(quantity int, unitPrice decimal.Decimal) error {
	if quantity <= 0 {
		return invalid(string(FieldQuantity), ErrInvalidQuantity)
	}
	if unitPrice.IsNegative() {
		return invalid(string(FieldUnitPrice), ErrInvalidPrice)
	}
	if !fitsScale(unitPrice, PriceScale) {
		return invalid(string(FieldUnitPrice), ErrPriceScale)
	}
	return nil
}

func fitsScale(d decimal.Decimal, places int32) bool { return d.Equal(d.Round(places)) }

// Update edits one field from raw UI input. A quantity of 0 is clamped to 1
// and an out of range index is ignored.
func (s *LineSet) Update(index int, field LineField, value string) error {
	return s.update(index, field, value, false)
}

// UpdateStrict is Update without clamping: quantity must be > 0 and the index
// must exist.
func (s *LineSet) UpdateStrict(index int, field LineField, value string) error {
	return s.update(index, field, value, true)
}

func (s *LineSet) update(index int, field LineField, value string, strict bool) error {
	if index < 0 || index >= len(s.lines) {
		if strict {
			return ErrIndexOutOfRange
		}
		return nil
	}
	switch field {
	case FieldQuantity:
		q, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || q < 0 {
			return invalid(string(field), ErrInvalidQuantity)
		}
		if q == 0 {
			if strict {
				return invalid(string(field), ErrInvalidQuantity)
			}
			q = 1
		}
		s.lines[index].Quantity = q
	case FieldUnitPrice:
		p, err := ParsePrice(value)
		if err != nil {
			return invalid(string(field), err)
		}
		s.lines[index].UnitPrice = p
	default:
		return &ValidationError{Field: string(field), Message: "campo desconocido"}
	}
	return nil
}

func (s *LineSet) Remove(index int) {
	_ = s.RemoveStrict(index)
}

func (s *LineSet) RemoveStrict(index int) error {
	if index < 0 || index >= len(s.lines) {
		return ErrIndexOutOfRange
	}
	s.lines = append(s.lines[:index], s.lines[index+1:]...)
	return nil
}

func (s *LineSet) Clear() { s.lines = nil }

// Total keeps full precision; round only for display.
func (s *LineSet) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (s *LineSet) DisplayTotal() string { return s.Total().StringFixed(2) }

// ParsePrice accepts digits with at most one decimal separator ("." or ",")
// and at most PriceScale decimals.
func ParsePrice(raw string) (decimal.Decimal, error) {
	d, err := parseUnsigned(raw, ErrInvalidPrice)
	if err != nil {
		return decimal.Zero, err
	}
	if !fitsScale(d, PriceScale) {
		return decimal.Zero, ErrPriceScale
	}
	return d, nil
}

// ParseAmount is ParsePrice for payment amounts, which keep AmountScale
// decimals.
func ParseAmount(raw string) (decimal.Decimal, error) {
	d, err := parseUnsigned(raw, ErrInvalidPrice)
	if err != nil {
		return decimal.Zero, err
	}
	if !fitsScale(d, AmountScale) {
		return decimal.Zero, ErrAmountScale
	}
	return d, nil
}

func parseUnsigned(raw string, errInvalid error) (decimal.Decimal, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return decimal.Zero, errInvalid
	}
	v = strings.Replace(v, ",", ".", 1)
	digits, seps := 0, 0
	for _, r := range v {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			seps++
		default:
			return decimal.Zero, errInvalid
		}
	}
	if digits == 0 || seps > 1 {
		return decimal.Zero, errInvalid
	}
	v = strings.TrimSuffix(v, ".")
	if strings.HasPrefix(v, ".") {
		v = "0" + v
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, errInvalid
	}
	return d, nil
}

// ParseQuantity parses a strictly positive integer quantity.
func ParseQuantity(raw string) (int, error) {
	q, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || q <= 0 {
		return 0, ErrInvalidQuantity
	}
	return q, nil
}
