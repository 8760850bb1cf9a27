package entity

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Number keeps a JSON scalar exactly as the server sent it. The backend
// serialises BigDecimal and Long fields as numbers, but older endpoints
// return them as strings, and some fields may be null or missing.
type Number struct {
	raw     string
	present bool
}

// NewNumber creates a Number from a float
func NewNumber(v float64) Number {
	return Number{raw: strconv.FormatFloat(v, 'f', -1, 64), present: true}
}

// NewNumberString creates a Number from its textual form
func NewNumberString(s string) Number {
	return Number{raw: s, present: true}
}

// UnmarshalJSON accepts numbers, strings and null
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = Number{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Number{raw: s, present: true}
		return nil
	}
	*n = Number{raw: string(data), present: true}
	return nil
}

// MarshalJSON writes numeric values as numbers and anything else as a string
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.present {
		return []byte("null"), nil
	}
	if _, ok := n.Float64(); ok {
		return []byte(n.raw), nil
	}
	return json.Marshal(n.raw)
}

// IsNull reports whether the value was missing or null
func (n Number) IsNull() bool {
	return !n.present
}

// String returns the value as received
func (n Number) String() string {
	return n.raw
}

// Float64 returns the numeric value when it parses to a finite float
func (n Number) Float64() (float64, bool) {
	if !n.present {
		return 0, false
	}
	s := strings.TrimSpace(n.raw)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Int returns the value as an integer code when it is a whole number
func (n Number) Int() (int, bool) {
	f, ok := n.Float64()
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// Decimal returns the exact decimal value
func (n Number) Decimal() (decimal.Decimal, bool) {
	if _, ok := n.Float64(); !ok {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.TrimSpace(n.raw))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
