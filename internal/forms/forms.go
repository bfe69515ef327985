// Package forms holds the declarative field rules applied before any submit
// (create, update, convert, payment). Rules are pure; they never do I/O.
package forms

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Rule returns an error message, or "" when value is acceptable.
type Rule func(value string) string

type Rules map[string][]Rule

// Errors maps field name to the first failing message.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return strings.Join(parts, "; ")
}

// Err returns nil when there are no errors so callers can write
// `if err := form.Validate().Err(); err != nil`.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e Errors) add(field, msg string) {
	if msg == "" {
		return
	}
	if _, exists := e[field]; !exists {
		e[field] = msg
	}
}

// Validate applies the rules in declaration order, keeping the first
// message per field.
func (r Rules) Validate(values map[string]string) Errors {
	errs := Errors{}
	for field, rules := range r {
		v := values[field]
		for _, rule := range rules {
			if msg := rule(v); msg != "" {
				errs.add(field, msg)
				break
			}
		}
	}
	return errs
}

const dateLayout = "2006-01-02"

func Required(msg string) Rule {
	return func(v string) string {
		if strings.TrimSpace(v) == "" {
			return msg
		}
		return ""
	}
}

// Optional skips the wrapped rules on empty input.
func Optional(rules ...Rule) Rule {
	return func(v string) string {
		if strings.TrimSpace(v) == "" {
			return ""
		}
		for _, r := range rules {
			if msg := r(v); msg != "" {
				return msg
			}
		}
		return ""
	}
}

func PositiveInt(msg string) Rule {
	return func(v string) string {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || n <= 0 {
			return msg
		}
		return ""
	}
}

func NonNegativeDecimal(msg string) Rule {
	return func(v string) string {
		d, ok := parseDecimal(v)
		if !ok || d.IsNegative() {
			return msg
		}
		return ""
	}
}

func PositiveDecimal(msg string) Rule {
	return func(v string) string {
		d, ok := parseDecimal(v)
		if !ok || !d.IsPositive() {
			return msg
		}
		return ""
	}
}

// MaxDecimals rejects values with more than places significant decimals.
// Unparseable values are left to the numeric rules.
func MaxDecimals(places int32, msg string) Rule {
	return func(v string) string {
		d, ok := parseDecimal(v)
		if ok && !d.Equal(d.Round(places)) {
			return msg
		}
		return ""
	}
}

func Date(msg string) Rule {
	return func(v string) string {
		if _, err := time.Parse(dateLayout, strings.TrimSpace(v)); err != nil {
			return msg
		}
		return ""
	}
}

func OneOf(msg string, allowed ...string) Rule {
	return func(v string) string {
		for _, a := range allowed {
			if v == a {
				return ""
			}
		}
		return msg
	}
}

func parseDecimal(v string) (decimal.Decimal, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.Replace(v, ",", ".", 1))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseDate parses a form date (YYYY-MM-DD) in UTC.
func ParseDate(v string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(v))
}
