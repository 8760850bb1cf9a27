// Package format renders money, dates, numbers, rates and file sizes the
// way every view of the client shows them. Missing values render as "-";
// values that cannot be interpreted are returned as given.
package format

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/entity"
)

// Placeholder is shown for missing values
const Placeholder = "-"

// Currency formats v as yuan with two decimals, e.g. 12.5 -> "¥12.50".
// Rounding is half away from zero.
func Currency(v interface{}) string {
	d, raw, present := toDecimal(v)
	if !present {
		return Placeholder
	}
	if d == nil {
		return raw
	}
	return "¥" + d.StringFixed(2)
}

// Number formats v in its shortest numeric form; non-numeric input is
// returned unchanged
func Number(v interface{}) string {
	d, raw, present := toDecimal(v)
	if !present {
		return Placeholder
	}
	if d == nil {
		return raw
	}
	return d.String()
}

// Rate formats a percentage with two decimals. Anything that is not a
// finite number renders as "0%".
func Rate(v interface{}) string {
	d, _, present := toDecimal(v)
	if !present || d == nil {
		return "0%"
	}
	return d.StringFixed(2) + "%"
}

// Size formats a byte count as B, KB or MB
func Size(bytes int64) string {
	switch {
	case bytes <= 0:
		return "未知大小"
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return decimal.NewFromInt(bytes).Div(decimal.NewFromInt(1024)).StringFixed(1) + " KB"
	default:
		return decimal.NewFromInt(bytes).Div(decimal.NewFromInt(1024*1024)).StringFixed(1) + " MB"
	}
}

// Float returns v as a finite float64
func Float(v interface{}) (float64, bool) {
	d, _, present := toDecimal(v)
	if !present || d == nil {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// toDecimal interprets v. present is false for nil, JSON null and blank
// strings; d is nil
// when the value is present but not a finite number, in which case raw is
// its textual form.
func toDecimal(v interface{}) (d *decimal.Decimal, raw string, present bool) {
	switch x := v.(type) {
	case nil:
		return nil, "", false
	case entity.Number:
		if x.IsNull() {
			return nil, "", false
		}
		return parseDecimal(x.String())
	case *entity.Number:
		if x == nil {
			return nil, "", false
		}
		return toDecimal(*x)
	case decimal.Decimal:
		return &x, x.String(), true
	case *decimal.Decimal:
		if x == nil {
			return nil, "", false
		}
		return x, x.String(), true
	case float64:
		return fromFloat(x)
	case float32:
		return fromFloat(float64(x))
	case int:
		d := decimal.NewFromInt(int64(x))
		return &d, d.String(), true
	case int64:
		d := decimal.NewFromInt(x)
		return &d, d.String(), true
	case int32:
		d := decimal.NewFromInt(int64(x))
		return &d, d.String(), true
	case json.Number:
		return parseDecimal(string(x))
	case string:
		return parseDecimal(x)
	case *string:
		if x == nil {
			return nil, "", false
		}
		return parseDecimal(*x)
	}
	return nil, fmt.Sprint(v), true
}

func fromFloat(f float64) (*decimal.Decimal, string, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, strconv.FormatFloat(f, 'g', -1, 64), true
	}
	d := decimal.NewFromFloat(f)
	return &d, d.String(), true
}

func parseDecimal(s string) (*decimal.Decimal, string, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, "", false
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, s, true
	}
	return &d, s, true
}
