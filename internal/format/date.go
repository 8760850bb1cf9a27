package format

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateTimeLayout = "2006-01-02 15:04"
	dateLayout     = "2006-01-02"
	monthLayout    = "2006-01"
	rangeLayout    = "2006-01-02T15:04:05"
)

// Layouts with an explicit zone are converted to local time; the rest are
// taken as local wall clock.
var (
	zonedLayouts = []string{time.RFC3339Nano, time.RFC3339}
	localLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// DateTime formats v as "YYYY-MM-DD HH:mm"
func DateTime(v interface{}) string {
	return formatTime(v, dateTimeLayout)
}

// DateOnly formats v as "YYYY-MM-DD"
func DateOnly(v interface{}) string {
	return formatTime(v, dateLayout)
}

// Month formats t as "YYYY-MM"
func Month(t time.Time) string {
	return t.Format(monthLayout)
}

// MonthOf returns the "YYYY-MM" month of a timestamp string
func MonthOf(s string) (string, bool) {
	t, ok := ParseTime(s)
	if !ok {
		return "", false
	}
	return Month(t), true
}

// MonthRange returns the first and last second of a "YYYY-MM" month in
// "YYYY-MM-DDTHH:mm:ss" form
func MonthRange(month string) (start, end string, err error) {
	first, err := time.ParseInLocation(monthLayout, month, time.Local)
	if err != nil {
		return "", "", fmt.Errorf("invalid month %q: %w", month, err)
	}
	last := first.AddDate(0, 1, 0).Add(-time.Second)
	return first.Format(rangeLayout), last.Format(rangeLayout), nil
}

// ParseTime accepts the timestamp layouts the backend emits
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Local(), true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatTime(v interface{}, layout string) string {
	switch x := v.(type) {
	case nil:
		return Placeholder
	case time.Time:
		if x.IsZero() {
			return Placeholder
		}
		return x.Format(layout)
	case *time.Time:
		if x == nil || x.IsZero() {
			return Placeholder
		}
		return x.Format(layout)
	case *string:
		if x == nil {
			return Placeholder
		}
		return formatTime(*x, layout)
	case string:
		if strings.TrimSpace(x) == "" {
			return Placeholder
		}
		if t, ok := ParseTime(x); ok {
			return t.Format(layout)
		}
		return x
	}
	return fmt.Sprint(v)
}
