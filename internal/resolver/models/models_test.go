package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "medadmit/pkg/domain-errors"
)

func TestParseEntityType(t *testing.T) {
	t.Run("accepts every supported type case-insensitively", func(t *testing.T) {
		for _, raw := range []string{"college", "Course", " CUTOFF ", "state"} {
			et, err := ParseEntityType(raw)
			require.NoError(t, err, raw)
			assert.True(t, et.IsValid())
		}
	})

	t.Run("rejects empty and unknown", func(t *testing.T) {
		for _, raw := range []string{"", "   ", "university", "colleges"} {
			_, err := ParseEntityType(raw)
			require.Error(t, err, raw)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		}
	})
}

func TestResultInvariants(t *testing.T) {
	rec := &Record{ID: "c1", Name: "GOVERNMENT MEDICAL COLLEGE NAGPUR"}

	t.Run("not found has no id and zero confidence", func(t *testing.T) {
		r := NotFound()
		assert.Nil(t, r.ID)
		assert.Nil(t, r.Name)
		assert.Equal(t, MethodNotFound, r.Method)
		assert.Zero(t, r.Confidence)
		assert.False(t, r.Resolved())
	})

	t.Run("exact methods force confidence one", func(t *testing.T) {
		for _, m := range []Method{MethodDirect, MethodComposite, MethodLinkTable} {
			r := Matched(m, rec, 0.42)
			require.True(t, r.Resolved())
			assert.Equal(t, 1.0, r.Confidence)
		}
	})

	t.Run("fuzzy keeps its score", func(t *testing.T) {
		r := Matched(MethodFuzzy, rec, 0.83)
		assert.Equal(t, 0.83, r.Confidence)
		assert.Equal(t, "c1", *r.ID)
	})

	t.Run("nil record degrades to not found", func(t *testing.T) {
		assert.Equal(t, MethodNotFound, Matched(MethodFuzzy, nil, 0.9).Method)
	})
}

func TestResultSet(t *testing.T) {
	rec := &Record{ID: "s1", Name: "MAHARASHTRA"}
	ids := []string{"mh", "??", "mh", "Maharashtra"}

	set := NewResultSet(len(ids))
	set.Set("mh", Matched(MethodLinkTable, rec, 1))
	set.Set("??", NotFound())
	set.Set("mh", Matched(MethodLinkTable, rec, 1))
	set.Set("Maharashtra", Matched(MethodFuzzy, rec, 1))

	t.Run("keeps first insertion order", func(t *testing.T) {
		assert.Equal(t, []string{"mh", "??", "Maharashtra"}, set.Keys())
	})

	t.Run("stats count duplicates", func(t *testing.T) {
		stats := set.Stats(ids)
		assert.Equal(t, BatchStats{Total: 4, Resolved: 3, NotFound: 1}, stats)
	})

	t.Run("json object preserves order", func(t *testing.T) {
		raw, err := json.Marshal(set)
		require.NoError(t, err)
		assert.Regexp(t, `^\{"mh":.*,"\?\?":.*,"Maharashtra":.*\}$`, string(raw))

		var decoded map[string]Result
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Nil(t, decoded["??"].ID)
		assert.Equal(t, "s1", *decoded["mh"].ID)
	})
}
