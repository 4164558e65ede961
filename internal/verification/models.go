// Package verification orchestrates a single document verification: field
// comparison, risk assessment, persistence of the outcome, and the audit
// record disputes later build on.
package verification

import (
	"time"

	"verity/internal/mismatch"
	"verity/internal/risk"
)

// Verification is the stored outcome of one verification run.
type Verification struct {
	ID                string          `json:"id"`
	CustomerName      string          `json:"customer_name,omitempty"`
	CustomerSegment   string          `json:"customer_segment"`
	OCRQuality        int             `json:"ocr_quality"`
	TransactionAmount float64         `json:"transaction_amount"`
	Assessment        risk.Assessment `json:"assessment"`
	CreatedAt         time.Time       `json:"created_at"`
}

// VerifyRequest carries the inputs for one verification run.
type VerifyRequest struct {
	CustomerName      string
	CustomerSegment   string
	OCRQuality        int
	TransactionAmount float64
	Document1Fields   mismatch.FieldMap
	Document2Fields   mismatch.FieldMap
}
