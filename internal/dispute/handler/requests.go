package handler

import (
	"verity/internal/mismatch"
	"verity/internal/risk"
	dErrors "verity/pkg/domain-errors"
)

// CreateDisputeRequest is the HTTP request body for POST /disputes.
type CreateDisputeRequest struct {
	OriginalVerificationID string   `json:"original_verification_id"`
	CustomerName           string   `json:"customer_name"`
	CustomerReason         string   `json:"customer_reason"`
	CustomerSegment        string   `json:"customer_segment"`
	AdditionalDocuments    []string `json:"additional_documents"`
}

// TriageRequest carries the assessment the dispute is appealing.
type TriageRequest struct {
	OriginalAssessment risk.Assessment `json:"original_assessment"`
}

// ReVerifyRequest is the HTTP request body for POST /disputes/{id}/re-verify.
type ReVerifyRequest struct {
	Document1Fields mismatch.FieldMap `json:"document1_fields"`
	Document2Fields mismatch.FieldMap `json:"document2_fields"`
	CustomerContext string            `json:"customer_context"`
}

// Validate checks that both field sets were supplied.
func (r *ReVerifyRequest) Validate() error {
	if len(r.Document1Fields) == 0 || len(r.Document2Fields) == 0 {
		return dErrors.New(dErrors.CodeValidation, "document1_fields and document2_fields are required")
	}
	return nil
}

// ResolveRequest is the HTTP request body for POST /disputes/{id}/resolve.
type ResolveRequest struct {
	FinalDecision string `json:"final_decision"`
	Reason        string `json:"reason"`
}

// LetterResponse is the HTTP response for GET /disputes/{id}/letter.
type LetterResponse struct {
	DisputeID string `json:"dispute_id"`
	Letter    string `json:"letter"`
}
