package export

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	capitalDigits = []string{"零", "壹", "贰", "叁", "肆", "伍", "陆", "柒", "捌", "玖"}
	capitalUnits  = []string{"", "拾", "佰", "仟"}
	capitalGroups = []string{"", "万", "亿", "万亿"}
)

// AmountInWords writes a yuan amount in capital Chinese numerals, rounded
// to the fen. Negative amounts are prefixed with 负.
func AmountInWords(amount decimal.Decimal) string {
	amount = amount.Round(2)
	if amount.IsZero() {
		return "零元整"
	}

	prefix := ""
	if amount.IsNegative() {
		prefix = "负"
		amount = amount.Neg()
	}

	yuan := amount.IntPart()
	cents := amount.Sub(decimal.NewFromInt(yuan)).Shift(2).IntPart()
	jiao, fen := cents/10, cents%10

	var b strings.Builder
	b.WriteString(prefix)
	if yuan > 0 {
		b.WriteString(integerInWords(yuan))
		b.WriteString("元")
	}

	switch {
	case jiao == 0 && fen == 0:
		b.WriteString("整")
	default:
		if jiao > 0 {
			b.WriteString(capitalDigits[jiao] + "角")
		} else if yuan > 0 {
			b.WriteString(capitalDigits[0])
		}
		if fen > 0 {
			b.WriteString(capitalDigits[fen] + "分")
		}
	}
	return b.String()
}

// integerInWords converts a positive integer in groups of four digits
func integerInWords(n int64) string {
	var groups []int64
	for n > 0 {
		groups = append(groups, n%10000)
		n /= 10000
	}

	var b strings.Builder
	pendingZero := false
	for i := len(groups) - 1; i >= 0; i-- {
		g := groups[i]
		if g == 0 {
			pendingZero = b.Len() > 0
			continue
		}
		if b.Len() > 0 && (pendingZero || g < 1000) {
			b.WriteString(capitalDigits[0])
		}
		b.WriteString(groupInWords(g))
		if i < len(capitalGroups) {
			b.WriteString(capitalGroups[i])
		}
		pendingZero = false
	}
	return b.String()
}

// groupInWords converts 1..9999
func groupInWords(g int64) string {
	var b strings.Builder
	zero := false
	for pos := 3; pos >= 0; pos-- {
		div := int64(1)
		for i := 0; i < pos; i++ {
			div *= 10
		}
		digit := (g / div) % 10
		if digit == 0 {
			zero = b.Len() > 0
			continue
		}
		if zero {
			b.WriteString(capitalDigits[0])
			zero = false
		}
		b.WriteString(capitalDigits[digit] + capitalUnits[pos])
	}
	return b.String()
}
