// Package risk assigns a fraud-risk tier and decision from detected field
// mismatches plus contextual signals. Rules are centralized and pure so they
// stay testable; an assessment is never mutated after creation.
package risk

import (
	"fmt"
	"math"

	"verity/internal/mismatch"
)

// Decision gates the verification outcome, derived strictly from the tier.
type Decision string

const (
	DecisionApprove  Decision = "APPROVE"
	DecisionEscalate Decision = "ESCALATE"
	DecisionReject   Decision = "REJECT"
)

// Assessment is the outcome of one risk evaluation.
type Assessment struct {
	Tier         int                 `json:"tier"`
	Confidence   float64             `json:"confidence"`
	Reasoning    string              `json:"reasoning"`
	RedFlags     int                 `json:"red_flags"`
	YellowFlags  int                 `json:"yellow_flags"`
	GreenMatches int                 `json:"green_matches"`
	Decision     Decision            `json:"decision"`
	Mismatches   []mismatch.Mismatch `json:"mismatches"`
}

// Context carries the signals that soften or harden the base tier.
type Context struct {
	OCRQuality        int
	TransactionAmount float64
	CustomerSegment   string
}

// Tuning knobs. The exact cutoffs are a product decision; keep them named and
// overridable rather than scattered through the rule chain.
var (
	// LowOCRQuality is the extraction-quality floor below which confidence
	// is discounted.
	LowOCRQuality = 50

	// LowOCRConfidenceFactor discounts confidence for poor extractions.
	LowOCRConfidenceFactor = 0.8

	// LowValueAmount is the transaction amount under which a mild tier-2 is
	// softened to tier 1.
	LowValueAmount = 1000.0

	// VulnerableSegments receive softer thresholds: a YELLOW-only tier 3 is
	// downgraded to tier 2. A RED-driven tier 3 never is.
	VulnerableSegments = map[string]bool{
		"domestic_violence": true,
		"gender_diverse":    true,
		"refugee":           true,
		"homeless":          true,
	}
)

// SegmentGeneral is the default customer segment.
const SegmentGeneral = "general"

// Assess applies the base tier rules in priority order, then the contextual
// adjustments, and derives the decision from the final tier. Total over valid
// inputs; it never fails.
func Assess(mismatches []mismatch.Mismatch, rc Context) Assessment {
	red, yellow, green := countFlags(mismatches)

	var (
		tier       int
		confidence float64
		reasoning  string
	)

	// Base tier, first matching rule wins.
	switch {
	case red >= 2:
		tier, confidence = 3, 0.95
		reasoning = fmt.Sprintf("Multiple RED flags (%d): high fraud risk", red)
	case red == 1:
		tier, confidence = 2, 0.85
		reasoning = "One RED flag: requires review"
	case yellow >= 3:
		tier, confidence = 3, 0.80
		reasoning = fmt.Sprintf("Multiple YELLOW flags (%d): potential fraud pattern", yellow)
	case yellow >= 1:
		tier, confidence = 2, 0.75
		reasoning = fmt.Sprintf("%d YELLOW flag(s): moderate concern", yellow)
	default:
		tier, confidence = 1, 0.98
		reasoning = "All fields match: low risk"
	}

	// Poor extraction quality lowers confidence in the result, not the tier.
	if rc.OCRQuality < LowOCRQuality {
		confidence *= LowOCRConfidenceFactor
		reasoning += " (low OCR quality reduces confidence)"
	}

	// Vulnerable segments get softer thresholds, but only when the tier-3 is
	// driven purely by YELLOW flags. A RED-driven tier 3 stands.
	if VulnerableSegments[rc.CustomerSegment] && tier == 3 && yellow > 0 && red == 0 {
		tier = 2
		reasoning += " (vulnerable segment: softer thresholds applied)"
	}

	// Low-value transactions with no RED flags and at most one YELLOW are not
	// worth an escalation.
	if rc.TransactionAmount < LowValueAmount && red == 0 && tier == 2 && yellow <= 1 {
		tier = 1
		reasoning += " (low-value transaction: reduced scrutiny)"
	}

	return Assessment{
		Tier:         tier,
		Confidence:   round2(confidence),
		Reasoning:    reasoning,
		RedFlags:     red,
		YellowFlags:  yellow,
		GreenMatches: green,
		Decision:     decisionFor(tier),
		Mismatches:   mismatches,
	}
}

func countFlags(mismatches []mismatch.Mismatch) (red, yellow, green int) {
	for _, m := range mismatches {
		switch m.Severity {
		case mismatch.SeverityRed:
			red++
		case mismatch.SeverityYellow:
			yellow++
		case mismatch.SeverityGreen:
			green++
		}
	}
	return red, yellow, green
}

func decisionFor(tier int) Decision {
	switch tier {
	case 1:
		return DecisionApprove
	case 2:
		return DecisionEscalate
	default:
		return DecisionReject
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
