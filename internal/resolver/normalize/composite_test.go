package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitComposite(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"comma", "Government Medical College, Nagpur", []string{"government medical college", "nagpur"}},
		{"pipe with three fields", "AIIMS | MBBS | 2024", []string{"aiims", "mbbs", "2024"}},
		{"semicolon", "MBBS;UG", []string{"mbbs", "ug"}},
		{"no delimiter", "Government Medical College Nagpur", nil},
		{"empty field", "AIIMS,,2024", nil},
		{"punctuation-only field", "AIIMS, ..", nil},
		{"trailing delimiter", "AIIMS,", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitComposite(tt.in))
		})
	}
}

func TestCompositeKey(t *testing.T) {
	assert.Equal(t, "a j institute|karnataka", CompositeKey("A.J. Institute", " KARNATAKA "))
	assert.Equal(t, "aiims new delhi|mbbs|2024", CompositeKey("AIIMS New Delhi", "MBBS", "2024"))
}
