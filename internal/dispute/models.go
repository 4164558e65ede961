package dispute

import (
	"time"

	"verity/internal/mismatch"
	"verity/internal/risk"
	dErrors "verity/pkg/domain-errors"
)

// Status is the lifecycle position of a dispute. Transitions are strictly
// forward: INTAKE → TRIAGED → RE_VERIFIED → RESOLVED. RESOLVED is terminal.
type Status string

const (
	StatusIntake     Status = "INTAKE"
	StatusTriaged    Status = "TRIAGED"
	StatusReVerified Status = "RE_VERIFIED"
	StatusResolved   Status = "RESOLVED"
)

// transitions encodes the forward-only state machine.
var transitions = map[Status]Status{
	StatusIntake:     StatusTriaged,
	StatusTriaged:    StatusReVerified,
	StatusReVerified: StatusResolved,
}

// CanTransitionTo reports whether next is the single allowed successor.
func (s Status) CanTransitionTo(next Status) bool {
	return transitions[s] == next
}

// Recommendation is the triage outcome path.
type Recommendation string

const (
	RecommendationReVerify     Recommendation = "RE_VERIFY"
	RecommendationManualReview Recommendation = "MANUAL_REVIEW"
)

// FinalDecision closes a dispute.
type FinalDecision string

const (
	DecisionApproved         FinalDecision = "APPROVED"
	DecisionApprovedOverride FinalDecision = "APPROVED_OVERRIDE"
	DecisionRejectedUpheld   FinalDecision = "REJECTED_UPHELD"
)

// ValidFinalDecision reports whether d is one of the three closing decisions.
func ValidFinalDecision(d FinalDecision) bool {
	switch d {
	case DecisionApproved, DecisionApprovedOverride, DecisionRejectedUpheld:
		return true
	}
	return false
}

// Triage is the root-cause analysis performed on intake.
type Triage struct {
	DisputeID      string         `json:"dispute_id"`
	RootCauses     []string       `json:"root_causes"`
	SpecificIssues []string       `json:"specific_issues"`
	Recommendation Recommendation `json:"recommendation"`
	CreatedAt      time.Time      `json:"created_at"`
}

// ReVerification is the outcome of re-running the risk engine with the
// evidence supplied during the dispute.
type ReVerification struct {
	DisputeID        string              `json:"dispute_id"`
	OriginalDecision risk.Decision       `json:"original_decision"`
	NewDecision      risk.Decision       `json:"new_decision"`
	DecisionChanged  bool                `json:"decision_changed"`
	NewRiskTier      int                 `json:"new_risk_tier"`
	Confidence       float64             `json:"confidence"`
	Reasoning        string              `json:"reasoning"`
	CustomerContext  string              `json:"customer_context,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	Mismatches       []mismatch.Mismatch `json:"mismatches"`
}

// Resolution closes the dispute.
type Resolution struct {
	DisputeID         string        `json:"dispute_id"`
	FinalDecision     FinalDecision `json:"final_decision"`
	Reason            string        `json:"reason"`
	ResolvedAt        time.Time     `json:"resolved_at"`
	CommunicationSent bool          `json:"communication_sent"`
}

// Dispute is the aggregate root for a customer appeal.
//
// Invariants:
//   - Status only advances along INTAKE → TRIAGED → RE_VERIFIED → RESOLVED
//   - Once RESOLVED the dispute is immutable except for appended
//     communication metadata
//   - Version increments on every persisted write; stores reject a save whose
//     version does not match the stored one (lost-update protection)
type Dispute struct {
	ID                     string          `json:"id"`
	OriginalVerificationID string          `json:"original_verification_id"`
	CustomerName           string          `json:"customer_name,omitempty"`
	CustomerReason         string          `json:"customer_reason"`
	CustomerSegment        string          `json:"customer_segment,omitempty"`
	AdditionalDocuments    []string        `json:"additional_documents"`
	OriginalDecision       risk.Decision   `json:"original_decision"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
	Status                 Status          `json:"status"`
	Triage                 *Triage         `json:"triage,omitempty"`
	ReVerification         *ReVerification `json:"re_verification,omitempty"`
	Resolution             *Resolution     `json:"resolution,omitempty"`
	Version                int             `json:"version"`
}

// DecisionUnknown records that no original assessment could be located for
// the disputed verification.
const DecisionUnknown risk.Decision = "UNKNOWN"

// NewDispute constructs an intake-state dispute.
func NewDispute(id, originalVerificationID, customerReason string, additionalDocs []string, now time.Time) (*Dispute, error) {
	if originalVerificationID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "original verification id is required")
	}
	if customerReason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "customer reason is required")
	}
	if additionalDocs == nil {
		additionalDocs = []string{}
	}
	return &Dispute{
		ID:                     id,
		OriginalVerificationID: originalVerificationID,
		CustomerReason:         customerReason,
		AdditionalDocuments:    additionalDocs,
		OriginalDecision:       DecisionUnknown,
		CreatedAt:              now,
		UpdatedAt:              now,
		Status:                 StatusIntake,
	}, nil
}

func (d *Dispute) IsResolved() bool { return d.Status == StatusResolved }

func (d *Dispute) canAdvanceTo(next Status) error {
	if d.Status.CanTransitionTo(next) {
		return nil
	}
	return dErrors.New(dErrors.CodeInvariantViolation,
		"dispute in status "+string(d.Status)+" cannot transition to "+string(next))
}

// CanTriage checks the INTAKE → TRIAGED transition.
func (d *Dispute) CanTriage() error { return d.canAdvanceTo(StatusTriaged) }

// ApplyTriage records the triage outcome. Call CanTriage first.
func (d *Dispute) ApplyTriage(t *Triage, now time.Time) {
	d.Triage = t
	d.Status = StatusTriaged
	d.UpdatedAt = now
}

// CanReVerify checks the TRIAGED → RE_VERIFIED transition.
func (d *Dispute) CanReVerify() error { return d.canAdvanceTo(StatusReVerified) }

// ApplyReVerification records the re-verification outcome. Call CanReVerify first.
func (d *Dispute) ApplyReVerification(rv *ReVerification, now time.Time) {
	d.ReVerification = rv
	d.Status = StatusReVerified
	d.UpdatedAt = now
}

// CanResolve checks the RE_VERIFIED → RESOLVED transition.
func (d *Dispute) CanResolve() error { return d.canAdvanceTo(StatusResolved) }

// ApplyResolution closes the dispute. Call CanResolve first.
func (d *Dispute) ApplyResolution(r *Resolution, now time.Time) {
	d.Resolution = r
	d.Status = StatusResolved
	d.UpdatedAt = now
}

// MarkCommunicationSent appends communication metadata. This is the one
// mutation permitted after RESOLVED.
func (d *Dispute) MarkCommunicationSent(now time.Time) error {
	if d.Resolution == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "dispute has no resolution")
	}
	d.Resolution.CommunicationSent = true
	d.UpdatedAt = now
	return nil
}

// Clone returns a deep copy so callers can mutate freely without aliasing
// store-held state.
func (d *Dispute) Clone() *Dispute {
	c := *d
	c.AdditionalDocuments = append([]string(nil), d.AdditionalDocuments...)
	if d.Triage != nil {
		t := *d.Triage
		t.RootCauses = append([]string(nil), d.Triage.RootCauses...)
		t.SpecificIssues = append([]string(nil), d.Triage.SpecificIssues...)
		c.Triage = &t
	}
	if d.ReVerification != nil {
		rv := *d.ReVerification
		rv.Mismatches = append([]mismatch.Mismatch(nil), d.ReVerification.Mismatches...)
		c.ReVerification = &rv
	}
	if d.Resolution != nil {
		r := *d.Resolution
		c.Resolution = &r
	}
	return &c
}
