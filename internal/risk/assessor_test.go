package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"verity/internal/mismatch"
)

func flags(red, yellow int) []mismatch.Mismatch {
	var ms []mismatch.Mismatch
	for i := 0; i < red; i++ {
		ms = append(ms, mismatch.Mismatch{Field: "abn", Severity: mismatch.SeverityRed})
	}
	for i := 0; i < yellow; i++ {
		ms = append(ms, mismatch.Mismatch{Field: "name", Severity: mismatch.SeverityYellow})
	}
	return ms
}

func general(ocr int) Context {
	// High-value amount keeps the low-value override out of base-rule tests.
	return Context{OCRQuality: ocr, TransactionAmount: 5000, CustomerSegment: SegmentGeneral}
}

func TestAssessBaseTiers(t *testing.T) {
	t.Run("two RED flags reject at tier 3", func(t *testing.T) {
		a := Assess(flags(2, 0), general(100))
		assert.Equal(t, 3, a.Tier)
		assert.Equal(t, DecisionReject, a.Decision)
		assert.Equal(t, 0.95, a.Confidence)
		assert.Equal(t, 2, a.RedFlags)
	})

	t.Run("one RED flag escalates at tier 2", func(t *testing.T) {
		a := Assess(flags(1, 0), general(100))
		assert.Equal(t, 2, a.Tier)
		assert.Equal(t, DecisionEscalate, a.Decision)
		assert.Equal(t, 0.85, a.Confidence)
	})

	t.Run("three YELLOW flags reach tier 3 without any RED", func(t *testing.T) {
		a := Assess(flags(0, 3), general(100))
		assert.Equal(t, 3, a.Tier)
		assert.Equal(t, DecisionReject, a.Decision)
		assert.Equal(t, 0.80, a.Confidence)
	})

	t.Run("one YELLOW flag escalates at tier 2", func(t *testing.T) {
		a := Assess(flags(0, 1), general(100))
		assert.Equal(t, 2, a.Tier)
		assert.Equal(t, DecisionEscalate, a.Decision)
		assert.Equal(t, 0.75, a.Confidence)
	})

	t.Run("no mismatches approve at tier 1", func(t *testing.T) {
		a := Assess(nil, general(100))
		assert.Equal(t, 1, a.Tier)
		assert.Equal(t, DecisionApprove, a.Decision)
		assert.Equal(t, 0.98, a.Confidence)
		assert.Equal(t, "All fields match: low risk", a.Reasoning)
	})

	t.Run("RED rules take priority over YELLOW rules", func(t *testing.T) {
		a := Assess(flags(1, 3), general(100))
		assert.Equal(t, 2, a.Tier)
		assert.Equal(t, 0.85, a.Confidence)
	})
}

func TestAssessAdjustments(t *testing.T) {
	t.Run("low OCR quality discounts confidence but not tier", func(t *testing.T) {
		a := Assess(flags(0, 1), general(30))
		assert.Equal(t, 2, a.Tier)
		assert.Equal(t, 0.6, a.Confidence) // 0.75 * 0.8
		assert.Contains(t, a.Reasoning, "low OCR quality")
	})

	t.Run("vulnerable segment downgrades a YELLOW-only tier 3", func(t *testing.T) {
		rc := general(100)
		rc.CustomerSegment = "domestic_violence"
		a := Assess(flags(0, 2), rc)
		// 2 YELLOW is base tier 2 already; use 3 YELLOW to hit base tier 3.
		a3 := Assess(flags(0, 3), rc)
		assert.Equal(t, 2, a.Tier)
		assert.Equal(t, 2, a3.Tier)
		assert.Contains(t, a3.Reasoning, "vulnerable segment")
		assert.Equal(t, DecisionEscalate, a3.Decision)
	})

	t.Run("vulnerable segment never downgrades a RED-driven tier 3", func(t *testing.T) {
		rc := general(100)
		rc.CustomerSegment = "refugee"
		a := Assess(flags(2, 0), rc)
		assert.Equal(t, 3, a.Tier)
		assert.Equal(t, DecisionReject, a.Decision)
	})

	t.Run("low-value transaction softens a mild tier 2", func(t *testing.T) {
		rc := general(100)
		rc.TransactionAmount = 500
		a := Assess(flags(0, 1), rc)
		assert.Equal(t, 1, a.Tier)
		assert.Equal(t, DecisionApprove, a.Decision)
		assert.Contains(t, a.Reasoning, "low-value transaction")
	})

	t.Run("low-value override does not apply with a RED flag", func(t *testing.T) {
		rc := general(100)
		rc.TransactionAmount = 500
		a := Assess(flags(1, 0), rc)
		assert.Equal(t, 2, a.Tier)
	})

	t.Run("low-value override does not apply with two YELLOW flags", func(t *testing.T) {
		rc := general(100)
		rc.TransactionAmount = 500
		a := Assess(flags(0, 2), rc)
		assert.Equal(t, 2, a.Tier)
	})
}

func TestAssessCounts(t *testing.T) {
	ms := append(flags(1, 2), mismatch.Mismatch{Field: "address", Severity: mismatch.SeverityGreen})
	a := Assess(ms, general(100))
	assert.Equal(t, 1, a.RedFlags)
	assert.Equal(t, 2, a.YellowFlags)
	assert.Equal(t, 1, a.GreenMatches)
	assert.Len(t, a.Mismatches, 4)
}
