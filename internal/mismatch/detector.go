// Package mismatch compares extracted document fields and classifies how much
// they diverge. All functions are pure and total: malformed or missing fields
// are excluded from comparison rather than erroring, and any number of
// callers may run them concurrently.
package mismatch

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// FuzzyMatch normalizes both strings (lowercase, trim) and returns their
// similarity in [0,1] plus whether it clears the threshold. Identical
// normalized strings short-circuit to 1.0. A threshold of 0 or less selects
// MatchThreshold.
func FuzzyMatch(a, b string, threshold float64) (float64, bool) {
	if threshold <= 0 {
		threshold = MatchThreshold
	}

	na := strings.ToLower(strings.TrimSpace(a))
	nb := strings.ToLower(strings.TrimSpace(b))

	if na == nb {
		return 1.0, true
	}

	sim := similarity(na, nb)
	return sim, sim >= threshold
}

// similarity is the indel ratio: 2*LCS(a,b) / (len(a)+len(b)). Symmetric,
// edit-distance based (indel distance = len(a)+len(b)-2*LCS), and bounded to
// [0,1]. Operates on bytes; extracted fields are ASCII-normalized upstream.
func similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	// Single-row LCS dynamic program.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	lcs := prev[len(b)]

	return float64(2*lcs) / float64(len(a)+len(b))
}

// ClassifySeverity builds a Mismatch for one field using that field's
// thresholds. The YELLOW message adds context for audit readability only; it
// never affects the severity itself.
func ClassifySeverity(field, value1, value2 string, sim float64) Mismatch {
	t := ThresholdFor(field)

	m := Mismatch{
		Field:      field,
		Value1:     value1,
		Value2:     value2,
		Similarity: round3(sim),
	}

	switch {
	case sim >= t.Green:
		m.Severity = SeverityGreen
		m.Message = fmt.Sprintf("%s: exact match", field)
	case sim >= t.Yellow:
		m.Severity = SeverityYellow
		m.Message = yellowMessage(field, value1, value2, sim)
	default:
		m.Severity = SeverityRed
		m.Message = fmt.Sprintf("%s: significant mismatch (%.0f%% match)", field, sim*100)
	}

	return m
}

func yellowMessage(field, value1, value2 string, sim float64) string {
	lenDiff := len(value1) - len(value2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	switch {
	case field == "name" && lenDiff <= 2:
		return fmt.Sprintf("%s: minor variation (e.g. Jon vs. John)", field)
	case field == "address" && sim > 0.80:
		return fmt.Sprintf("%s: possible address update or abbreviation", field)
	default:
		return fmt.Sprintf("%s: minor discrepancy (%.0f%% match)", field, sim*100)
	}
}

// Detect compares the fields present with non-empty values in both maps and
// returns a classified Mismatch for each non-exact one. Exact matches are not
// reported. Results are ordered by the first map's keys; Go randomizes map
// iteration, so sorted key order is the deterministic ordering used.
func Detect(map1, map2 FieldMap) []Mismatch {
	fields := make([]string, 0, len(map1))
	for f := range map1 {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var mismatches []Mismatch
	for _, field := range fields {
		value2, ok := map2[field]
		if !ok {
			continue
		}
		value1 := map1[field]
		if value1 == "" || value2 == "" {
			continue
		}

		sim, _ := FuzzyMatch(value1, value2, 0)
		if sim < 1.0 {
			mismatches = append(mismatches, ClassifySeverity(field, value1, value2, sim))
		}
	}

	return mismatches
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
