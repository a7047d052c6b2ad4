package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "eleven digit mobile gets country code",
			input:    "11987654321",
			expected: "+5511987654321",
		},
		{
			name:     "ten digit landline gets country code",
			input:    "1138765432",
			expected: "+551138765432",
		},
		{
			name:     "punctuation is stripped",
			input:    "(11) 98765-4321",
			expected: "+5511987654321",
		},
		{
			name:     "already international stays untouched",
			input:    "+5511987654321",
			expected: "+5511987654321",
		},
		{
			name:     "foreign number keeps its own prefix",
			input:    "+14155552671",
			expected: "+14155552671",
		},
		{
			name:     "short number gets no country code",
			input:    "98765",
			expected: "+98765",
		},
		{
			name:     "empty input stays empty",
			input:    "",
			expected: "",
		},
		{
			name:     "no digits at all",
			input:    "call me",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatPhone(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, got, FormatPhone(got), "formatting must be idempotent")
		})
	}
}
