package mismatch

// FieldThreshold holds the severity cutoffs for one field. A similarity at or
// above Green is an exact match; at or above Yellow a tolerable discrepancy;
// anything below is RED.
type FieldThreshold struct {
	Green  float64
	Yellow float64
}

// Thresholds maps field names to their severity cutoffs. Names tolerate minor
// OCR noise; identifiers like postcode and ABN should not. Thresholds are
// data, not conditionals, so boundaries can be tested exhaustively and
// retuned without code changes.
var Thresholds = map[string]FieldThreshold{
	"name":          {Green: 1.0, Yellow: 0.90},
	"date_of_birth": {Green: 1.0, Yellow: 0.95},
	"address":       {Green: 1.0, Yellow: 0.85},
	"postcode":      {Green: 1.0, Yellow: 0.95},
	"abn":           {Green: 1.0, Yellow: 0.90},
	"acn":           {Green: 1.0, Yellow: 0.90},
}

// DefaultThreshold applies to fields without a specific entry.
var DefaultThreshold = FieldThreshold{Green: 1.0, Yellow: 0.85}

// ThresholdFor returns the cutoffs for a field, falling back to the default.
func ThresholdFor(field string) FieldThreshold {
	if t, ok := Thresholds[field]; ok {
		return t
	}
	return DefaultThreshold
}

// MatchThreshold is the default similarity floor for FuzzyMatch.
var MatchThreshold = 0.80
