package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)
)

// ValidateAmount validates a reimbursement amount
func ValidateAmount(amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive: %.2f", amount)
	}
	return nil
}

// ValidateMonth checks a YYYY-MM month string
func ValidateMonth(month string) error {
	if !monthPattern.MatchString(month) {
		return fmt.Errorf("month must be in YYYY-MM format: %q", month)
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		return fmt.Errorf("invalid month %q: %w", month, err)
	}
	return nil
}

// SanitizeString removes control characters (newlines and tabs are kept) and trims surrounding space
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}
