package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(0.01))
	assert.Error(t, ValidateAmount(0))
	assert.Error(t, ValidateAmount(-3))
}

func TestValidateMonth(t *testing.T) {
	tests := []struct {
		month   string
		wantErr bool
	}{
		{"2024-03", false},
		{"2024-12", false},
		{"2024-13", true},
		{"2024-3", true},
		{"202403", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.month, func(t *testing.T) {
			err := ValidateMonth(tt.month)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "出差\n北京", SanitizeString("  出差\n北京\x00\x07 "))
	assert.Equal(t, "a\tb", SanitizeString("a\tb"))
	assert.Empty(t, SanitizeString(" \x1b "))
}
