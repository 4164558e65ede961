package mismatch

// FieldMap maps an extracted field name (e.g. "name", "date_of_birth") to its
// string value. Empty values are valid and excluded from comparison.
type FieldMap map[string]string

// Severity classifies how much two field values diverge.
type Severity string

const (
	SeverityGreen  Severity = "GREEN"
	SeverityYellow Severity = "YELLOW"
	SeverityRed    Severity = "RED"
)

// Mismatch describes one differing field between two documents. Immutable
// once created; consumed by risk assessment and dispute triage.
type Mismatch struct {
	Field      string   `json:"field"`
	Value1     string   `json:"value1"`
	Value2     string   `json:"value2"`
	Similarity float64  `json:"similarity"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
}
