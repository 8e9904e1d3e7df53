package strings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeBy(t *testing.T) {
	lower := func(s string) string { return strings.ToLower(s) }
	tests := []struct {
		name     string
		input    []string
		key      func(string) string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			key:      lower,
			expected: nil,
		},
		{
			name:     "empty slice",
			input:    []string{},
			key:      lower,
			expected: []string{},
		},
		{
			name:     "trims and drops blanks",
			input:    []string{"  foo ", "bar", "foo", "", "  ", "bar"},
			key:      lower,
			expected: []string{"foo", "bar"},
		},
		{
			name:     "identity key preserves case",
			input:    []string{"Foo", "foo", "FOO", " foo"},
			key:      func(s string) string { return s },
			expected: []string{"Foo", "foo", "FOO"},
		},
		{
			name:     "keeps first spelling per key",
			input:    []string{"KA", " ka ", "Karnataka"},
			key:      lower,
			expected: []string{"KA", "Karnataka"},
		},
		{
			name:     "drops values with empty key",
			input:    []string{"...", "Delhi"},
			key:      func(s string) string { return strings.Trim(s, ".") },
			expected: []string{"Delhi"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeBy(tt.input, tt.key))
		})
	}
}
