package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"verity/internal/audit"
	"verity/internal/mismatch"
	"verity/internal/risk"
	"verity/internal/verification/metrics"
	dErrors "verity/pkg/domain-errors"
	"verity/pkg/platform/sentinel"
	"verity/pkg/requestcontext"
)

// Auditor records verification events in the tamper-evident trail.
// Satisfied by *audit.Trail.
type Auditor interface {
	LogEvent(ctx context.Context, entityType, entityID, action string, details map[string]any, userID string) (string, error)
}

const entityType = "verification"

// Service runs verifications end to end.
type Service struct {
	store   AssessmentStore
	trail   Auditor
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService builds a verification service over the given store and trail.
func NewService(store AssessmentStore, trail Auditor, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("verification: assessment store is required")
	}
	if trail == nil {
		return nil, fmt.Errorf("verification: audit trail is required")
	}
	s := &Service{store: store, trail: trail, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Verify compares the two extracted field sets, assesses the risk, persists
// the outcome, and writes the audit record the customer can later dispute.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*Verification, error) {
	if len(req.Document1Fields) == 0 || len(req.Document2Fields) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "both document field sets are required")
	}
	start := time.Now()
	now := requestcontext.Now(ctx)

	segment := req.CustomerSegment
	if segment == "" {
		segment = risk.SegmentGeneral
	}

	mismatches := mismatch.Detect(req.Document1Fields, req.Document2Fields)
	assessment := risk.Assess(mismatches, risk.Context{
		OCRQuality:        req.OCRQuality,
		TransactionAmount: req.TransactionAmount,
		CustomerSegment:   segment,
	})

	v := &Verification{
		ID:                uuid.New().String(),
		CustomerName:      req.CustomerName,
		CustomerSegment:   segment,
		OCRQuality:        req.OCRQuality,
		TransactionAmount: req.TransactionAmount,
		Assessment:        assessment,
		CreatedAt:         now,
	}

	if err := s.store.Save(ctx, v); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist verification")
	}

	if _, err := s.trail.LogEvent(ctx, entityType, v.ID, audit.ActionVerificationCompleted, map[string]any{
		"decision":   string(assessment.Decision),
		"tier":       assessment.Tier,
		"confidence": assessment.Confidence,
		"mismatches": len(mismatches),
	}, requestcontext.ActorID(ctx)); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit verification")
	}

	s.metrics.IncVerification(string(assessment.Decision), assessment.Tier)
	for _, m := range mismatches {
		s.metrics.IncMismatch(string(m.Severity))
	}
	s.metrics.ObserveDuration(time.Since(start))

	s.logger.InfoContext(ctx, "verification completed",
		"verification_id", v.ID,
		"decision", assessment.Decision,
		"tier", assessment.Tier,
		"red_flags", assessment.RedFlags,
		"yellow_flags", assessment.YellowFlags,
	)
	return v, nil
}

// Get returns a stored verification outcome.
func (s *Service) Get(ctx context.Context, id string) (*Verification, error) {
	v, err := s.store.Find(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "verification not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "verification lookup failed")
	}
	return v, nil
}

// Assessment returns the risk assessment recorded for a verification.
// Implements dispute.VerificationSource.
func (s *Service) Assessment(ctx context.Context, verificationID string) (*risk.Assessment, error) {
	v, err := s.Get(ctx, verificationID)
	if err != nil {
		return nil, err
	}
	a := v.Assessment
	return &a, nil
}
