package mismatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuzzyMatch(t *testing.T) {
	t.Run("identical strings short-circuit to 1.0", func(t *testing.T) {
		sim, ok := FuzzyMatch("John", "John", 0)
		assert.Equal(t, 1.0, sim)
		assert.True(t, ok)
	})

	t.Run("normalization ignores case and whitespace", func(t *testing.T) {
		sim, ok := FuzzyMatch("  JOHN Smith ", "john smith", 0)
		assert.Equal(t, 1.0, sim)
		assert.True(t, ok)
	})

	t.Run("minor spelling variant clears default threshold", func(t *testing.T) {
		sim, ok := FuzzyMatch("Jon", "John", 0)
		assert.GreaterOrEqual(t, sim, 0.80)
		assert.True(t, ok)
	})

	t.Run("similarity is symmetric", func(t *testing.T) {
		ab, _ := FuzzyMatch("12 Main Street", "12 Main St", 0)
		ba, _ := FuzzyMatch("12 Main St", "12 Main Street", 0)
		assert.Equal(t, ab, ba)
	})

	t.Run("unrelated strings fall below threshold", func(t *testing.T) {
		sim, ok := FuzzyMatch("John Smith", "Wendy Zhao", 0)
		assert.Less(t, sim, 0.80)
		assert.False(t, ok)
	})

	t.Run("explicit threshold overrides default", func(t *testing.T) {
		sim, ok := FuzzyMatch("Jon", "John", 0.99)
		assert.Less(t, sim, 0.99)
		assert.False(t, ok)
	})

	t.Run("empty against non-empty scores zero", func(t *testing.T) {
		sim, ok := FuzzyMatch("", "John", 0)
		assert.Equal(t, 0.0, sim)
		assert.False(t, ok)
	})
}

func TestClassifySeverity(t *testing.T) {
	t.Run("exact match is GREEN for every field", func(t *testing.T) {
		for _, field := range []string{"name", "date_of_birth", "address", "postcode", "abn", "acn", "other"} {
			m := ClassifySeverity(field, "same", "same", 1.0)
			assert.Equal(t, SeverityGreen, m.Severity, field)
		}
	})

	t.Run("name boundary at 0.90", func(t *testing.T) {
		yellow := ClassifySeverity("name", "Jon Smith", "John Smith", 0.90)
		assert.Equal(t, SeverityYellow, yellow.Severity)

		red := ClassifySeverity("name", "Jan Smits", "John Smith", 0.89)
		assert.Equal(t, SeverityRed, red.Severity)
	})

	t.Run("postcode boundary at 0.95", func(t *testing.T) {
		assert.Equal(t, SeverityYellow, ClassifySeverity("postcode", "2000", "2001", 0.95).Severity)
		assert.Equal(t, SeverityRed, ClassifySeverity("postcode", "2000", "2091", 0.94).Severity)
	})

	t.Run("unknown field uses default 0.85 floor", func(t *testing.T) {
		assert.Equal(t, SeverityYellow, ClassifySeverity("occupation", "engineer", "enginer", 0.85).Severity)
		assert.Equal(t, SeverityRed, ClassifySeverity("occupation", "engineer", "teacher", 0.84).Severity)
	})

	t.Run("yellow name message notes spelling variant", func(t *testing.T) {
		m := ClassifySeverity("name", "Jon Smith", "John Smith", 0.92)
		assert.Contains(t, m.Message, "minor variation")
	})

	t.Run("yellow address message notes abbreviation", func(t *testing.T) {
		m := ClassifySeverity("address", "12 Main Street", "12 Main St", 0.88)
		assert.Contains(t, m.Message, "abbreviation")
	})

	t.Run("similarity is rounded to three decimals", func(t *testing.T) {
		m := ClassifySeverity("name", "a", "b", 0.857142857)
		assert.Equal(t, 0.857, m.Similarity)
	})
}

func TestDetect(t *testing.T) {
	t.Run("single near-miss name yields one YELLOW mismatch", func(t *testing.T) {
		got := Detect(
			FieldMap{"name": "John Smith"},
			FieldMap{"name": "Jon Smith"},
		)
		require.Len(t, got, 1)
		assert.Equal(t, "name", got[0].Field)
		assert.Equal(t, SeverityYellow, got[0].Severity)
		assert.GreaterOrEqual(t, got[0].Similarity, 0.90)
	})

	t.Run("exact matches are not reported", func(t *testing.T) {
		got := Detect(
			FieldMap{"name": "John Smith", "postcode": "2000"},
			FieldMap{"name": "John Smith", "postcode": "2000"},
		)
		assert.Empty(t, got)
	})

	t.Run("fields missing from either side are skipped", func(t *testing.T) {
		got := Detect(
			FieldMap{"name": "John Smith", "abn": "51824753556"},
			FieldMap{"name": "John Smith"},
		)
		assert.Empty(t, got)
	})

	t.Run("empty values are skipped", func(t *testing.T) {
		got := Detect(
			FieldMap{"address": ""},
			FieldMap{"address": "12 Main St"},
		)
		assert.Empty(t, got)
	})

	t.Run("results are ordered by first map's sorted keys", func(t *testing.T) {
		got := Detect(
			FieldMap{"postcode": "2000", "address": "12 Main Street", "name": "John Smith"},
			FieldMap{"postcode": "2091", "address": "13 Main Street", "name": "Wendy Zhao"},
		)
		require.Len(t, got, 3)
		assert.Equal(t, "address", got[0].Field)
		assert.Equal(t, "name", got[1].Field)
		assert.Equal(t, "postcode", got[2].Field)
	})

	t.Run("severe divergence classifies RED", func(t *testing.T) {
		got := Detect(
			FieldMap{"abn": "51824753556"},
			FieldMap{"abn": "98765432109"},
		)
		require.Len(t, got, 1)
		assert.Equal(t, SeverityRed, got[0].Severity)
	})
}
