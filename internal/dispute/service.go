// Package dispute drives the appeal lifecycle: intake, triage,
// re-verification through the risk engine, resolution, and the customer
// communication generated from it. Every mutation is written through the
// audit trail.
package dispute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"verity/internal/audit"
	"verity/internal/dispute/metrics"
	"verity/internal/mismatch"
	"verity/internal/risk"
	dErrors "verity/pkg/domain-errors"
	"verity/pkg/platform/sentinel"
	"verity/pkg/requestcontext"
)

// Auditor records dispute mutations in the tamper-evident trail.
// Satisfied by *audit.Trail.
type Auditor interface {
	LogEvent(ctx context.Context, entityType, entityID, action string, details map[string]any, userID string) (string, error)
}

// VerificationSource resolves the risk assessment recorded for a prior
// verification, so a new dispute can capture the decision it is appealing.
type VerificationSource interface {
	Assessment(ctx context.Context, verificationID string) (*risk.Assessment, error)
}

const entityType = "dispute"

// Manager orchestrates the dispute lifecycle. Stateless per call; safe for
// concurrent use. Racing writes on the same dispute surface as CodeConflict
// rather than silently overwriting.
type Manager struct {
	store         Store
	trail         Auditor
	verifications VerificationSource
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func WithMetrics(mm *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mm }
}

// WithVerificationSource lets new disputes capture the original decision they
// appeal. Without it, the original decision is recorded as UNKNOWN.
func WithVerificationSource(vs VerificationSource) Option {
	return func(m *Manager) { m.verifications = vs }
}

// NewManager builds a dispute manager over the given store and audit trail.
func NewManager(store Store, trail Auditor, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("dispute: store is required")
	}
	if trail == nil {
		return nil, fmt.Errorf("dispute: audit trail is required")
	}
	m := &Manager{store: store, trail: trail, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// CreateRequest opens a dispute against a prior verification decision.
type CreateRequest struct {
	OriginalVerificationID string
	CustomerName           string
	CustomerReason         string
	CustomerSegment        string
	AdditionalDocuments    []string
}

// Create allocates a dispute in INTAKE and seeds its audit trail.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Dispute, error) {
	now := requestcontext.Now(ctx)

	d, err := NewDispute(uuid.New().String(), req.OriginalVerificationID, req.CustomerReason, req.AdditionalDocuments, now)
	if err != nil {
		return nil, err
	}
	d.CustomerName = req.CustomerName
	d.CustomerSegment = req.CustomerSegment

	if m.verifications != nil {
		original, err := m.verifications.Assessment(ctx, req.OriginalVerificationID)
		switch {
		case err == nil:
			d.OriginalDecision = original.Decision
		case dErrors.HasCode(err, dErrors.CodeNotFound):
			// The original may predate this system; the dispute still opens.
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load original assessment")
		}
	}

	if err := m.store.Create(ctx, d); err != nil {
		return nil, m.translateStoreErr(err)
	}

	if _, err := m.trail.LogEvent(ctx, entityType, d.ID, audit.ActionDisputeCreated, map[string]any{
		"original_verification_id": d.OriginalVerificationID,
		"customer_reason":          d.CustomerReason,
		"additional_documents":     len(d.AdditionalDocuments),
	}, requestcontext.ActorID(ctx)); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit dispute creation")
	}

	m.metrics.IncCreated()
	m.logger.InfoContext(ctx, "dispute created",
		"dispute_id", d.ID,
		"verification_id", d.OriginalVerificationID,
		"original_decision", d.OriginalDecision,
	)
	return d, nil
}

// Get returns a dispute by id.
func (m *Manager) Get(ctx context.Context, disputeID string) (*Dispute, error) {
	d, err := m.store.Get(ctx, disputeID)
	if err != nil {
		return nil, m.translateStoreErr(err)
	}
	return d, nil
}

// PerformTriage analyzes the original assessment and determines the path
// forward: RE_VERIFY when the customer supplied additional documents,
// MANUAL_REVIEW otherwise.
func (m *Manager) PerformTriage(ctx context.Context, disputeID string, original risk.Assessment) (*Triage, error) {
	d, err := m.Get(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if err := d.CanTriage(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	var rootCauses []string
	if original.RedFlags > 0 {
		rootCauses = append(rootCauses, fmt.Sprintf("%d RED flag(s) detected", original.RedFlags))
	}
	if original.YellowFlags > 0 {
		rootCauses = append(rootCauses, fmt.Sprintf("%d YELLOW flag(s) detected", original.YellowFlags))
	}

	var specificIssues []string
	for _, mm := range original.Mismatches {
		if mm.Severity != mismatch.SeverityGreen {
			specificIssues = append(specificIssues, mm.Field)
		}
	}

	recommendation := RecommendationManualReview
	if len(d.AdditionalDocuments) > 0 {
		recommendation = RecommendationReVerify
	}

	triage := &Triage{
		DisputeID:      disputeID,
		RootCauses:     rootCauses,
		SpecificIssues: specificIssues,
		Recommendation: recommendation,
		CreatedAt:      now,
	}

	d.ApplyTriage(triage, now)
	if err := m.saveAndAudit(ctx, d, audit.ActionDisputeTriaged, map[string]any{
		"recommendation":  string(recommendation),
		"root_causes":     len(rootCauses),
		"specific_issues": specificIssues,
	}); err != nil {
		return nil, err
	}

	m.metrics.IncTransition(string(StatusTriaged))
	return triage, nil
}

// PerformReVerification re-runs the risk engine over the expanded field sets.
// Extraction quality is assumed full (a human supplied the supporting
// evidence) and the customer's segment still applies.
func (m *Manager) PerformReVerification(ctx context.Context, disputeID string, fields1, fields2 mismatch.FieldMap, newContext string) (*ReVerification, error) {
	d, err := m.Get(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if err := d.CanReVerify(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	segment := d.CustomerSegment
	if segment == "" {
		segment = risk.SegmentGeneral
	}

	mismatches := mismatch.Detect(fields1, fields2)
	assessment := risk.Assess(mismatches, risk.Context{
		OCRQuality:      100,
		CustomerSegment: segment,
	})

	rv := &ReVerification{
		DisputeID:        disputeID,
		OriginalDecision: d.OriginalDecision,
		NewDecision:      assessment.Decision,
		DecisionChanged:  assessment.Decision != d.OriginalDecision,
		NewRiskTier:      assessment.Tier,
		Confidence:       assessment.Confidence,
		Reasoning:        assessment.Reasoning,
		CustomerContext:  newContext,
		CreatedAt:        now,
		Mismatches:       mismatches,
	}

	d.ApplyReVerification(rv, now)
	if err := m.saveAndAudit(ctx, d, audit.ActionDisputeReVerified, map[string]any{
		"new_decision":     string(rv.NewDecision),
		"new_risk_tier":    rv.NewRiskTier,
		"decision_changed": rv.DecisionChanged,
	}); err != nil {
		return nil, err
	}

	m.metrics.IncTransition(string(StatusReVerified))
	if rv.DecisionChanged {
		m.metrics.IncDecisionChanged()
	}
	m.logger.InfoContext(ctx, "dispute re-verified",
		"dispute_id", disputeID,
		"new_decision", rv.NewDecision,
		"decision_changed", rv.DecisionChanged,
	)
	return rv, nil
}

// Resolve closes the dispute with a final decision. RESOLVED is terminal:
// any further lifecycle call fails with an invariant violation.
func (m *Manager) Resolve(ctx context.Context, disputeID string, finalDecision FinalDecision, reason string) (*Resolution, error) {
	if !ValidFinalDecision(finalDecision) {
		return nil, dErrors.New(dErrors.CodeValidation, "final decision must be APPROVED, APPROVED_OVERRIDE or REJECTED_UPHELD")
	}

	d, err := m.Get(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if err := d.CanResolve(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	resolution := &Resolution{
		DisputeID:     disputeID,
		FinalDecision: finalDecision,
		Reason:        reason,
		ResolvedAt:    now,
	}

	d.ApplyResolution(resolution, now)
	if err := m.saveAndAudit(ctx, d, audit.ActionDisputeResolved, map[string]any{
		"final_decision": string(finalDecision),
		"reason":         reason,
	}); err != nil {
		return nil, err
	}

	m.metrics.IncTransition(string(StatusResolved))
	m.metrics.IncResolution(string(finalDecision))
	m.logger.InfoContext(ctx, "dispute resolved",
		"dispute_id", disputeID,
		"final_decision", finalDecision,
	)
	return resolution, nil
}

// Analytics aggregates dispute counts and rates across all disputes. Rates
// are percentages rounded to one decimal and default to 0 when the
// denominator is 0.
type Analytics struct {
	TotalDisputes        int     `json:"total_disputes"`
	ResolvedDisputes     int     `json:"resolved_disputes"`
	PendingDisputes      int     `json:"pending_disputes"`
	ApprovedOnAppeal     int     `json:"approved_on_appeal"`
	RejectedUpheld       int     `json:"rejected_upheld"`
	ApprovalRateOnAppeal float64 `json:"approval_rate_on_appeal"`
	RecoveryRate         float64 `json:"recovery_rate"`
}

// GetAnalytics computes dispute monitoring aggregates.
func (m *Manager) GetAnalytics(ctx context.Context) (Analytics, error) {
	disputes, err := m.store.List(ctx)
	if err != nil {
		return Analytics{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list disputes")
	}

	a := Analytics{TotalDisputes: len(disputes)}
	for _, d := range disputes {
		if d.IsResolved() {
			a.ResolvedDisputes++
		}
		if d.Resolution == nil {
			continue
		}
		switch d.Resolution.FinalDecision {
		case DecisionApproved:
			a.ApprovedOnAppeal++
		case DecisionRejectedUpheld:
			a.RejectedUpheld++
		}
	}
	a.PendingDisputes = a.TotalDisputes - a.ResolvedDisputes

	if a.ResolvedDisputes > 0 {
		a.ApprovalRateOnAppeal = round1(float64(a.ApprovedOnAppeal) / float64(a.ResolvedDisputes) * 100)
	}
	if a.TotalDisputes > 0 {
		a.RecoveryRate = round1(float64(a.ApprovedOnAppeal) / float64(a.TotalDisputes) * 100)
	}
	return a, nil
}

func (m *Manager) saveAndAudit(ctx context.Context, d *Dispute, action string, details map[string]any) error {
	if err := m.store.Save(ctx, d); err != nil {
		return m.translateStoreErr(err)
	}
	if _, err := m.trail.LogEvent(ctx, entityType, d.ID, action, details, requestcontext.ActorID(ctx)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit dispute update")
	}
	return nil
}

func (m *Manager) translateStoreErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "dispute not found")
	case errors.Is(err, sentinel.ErrConflict):
		m.metrics.IncSaveConflict()
		return dErrors.New(dErrors.CodeConflict, "dispute was modified concurrently, retry with fresh state")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "dispute storage failure")
	}
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
