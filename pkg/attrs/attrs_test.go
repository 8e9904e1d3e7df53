package attrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	list := []any{"identifier", "203.0.113.0", "limit", 100, 42, "ignored", "reason"}

	assert.Equal(t, "203.0.113.0", ExtractString(list, "identifier"))
	assert.Equal(t, "", ExtractString(list, "limit"), "non-string value")
	assert.Equal(t, "", ExtractString(list, "reason"), "dangling key")
	assert.Equal(t, 100, ExtractInt(list, "limit"))
	assert.Equal(t, 0, ExtractInt(list, "identifier"))
	assert.Equal(t, 0, ExtractInt(nil, "limit"))
}
