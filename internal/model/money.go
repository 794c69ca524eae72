package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in the smallest currency unit (cents).
// Arithmetic is integer-only; no floating point touches money.
type Money int64

// Cents builds a Money value from minor units
func Cents(c int64) Money { return Money(c) }

// Units builds a Money value from whole major units
func Units(u int64) Money { return Money(u * 100) }

// MaxMoney is the largest representable amount
const MaxMoney = Money(math.MaxInt64)

// Mul multiplies the amount by a whole quantity.
// A product beyond the int64 range saturates at MaxMoney (or its negation).
func (m Money) Mul(qty int64) Money {
	if qty < 0 {
		if qty == math.MinInt64 {
			qty++
		}
		return -m.Mul(-qty)
	}
	if m == 0 || qty == 0 {
		return 0
	}
	v := int64(m)
	if v > 0 && v > math.MaxInt64/qty {
		return MaxMoney
	}
	if v < 0 && v < -math.MaxInt64/qty {
		return -MaxMoney
	}
	return Money(v * qty)
}

// Cents returns the amount in minor units
func (m Money) Cents() int64 { return int64(m) }

// String renders the amount with two decimals, e.g. "50.00"
func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// ParseMoney parses a decimal string such as "50", "50.5" or "50.00".
// More than two fractional digits is rejected rather than rounded.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	if s == "" {
		return 0, fmt.Errorf("invalid amount: missing digits")
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return 0, fmt.Errorf("invalid amount %q: expected at most two decimals", s)
	}
	if !digitsOnly(whole) || (hasFrac && !digitsOnly(frac)) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	f, _ := strconv.ParseInt(frac, 10, 64)
	if w > (math.MaxInt64-f)/100 {
		return 0, fmt.Errorf("invalid amount %q: out of range", s)
	}
	v := w*100 + f
	if neg {
		v = -v
	}
	return Money(v), nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MarshalJSON renders money as a decimal string to keep clients off floats
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either "50.00" or a bare JSON number
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "null" {
		return nil
	}
	v, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
