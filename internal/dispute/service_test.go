package dispute

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"verity/internal/audit"
	"verity/internal/mismatch"
	"verity/internal/risk"
	dErrors "verity/pkg/domain-errors"
	"verity/pkg/requestcontext"
)

type stubVerifications struct {
	assessments map[string]*risk.Assessment
}

func (s *stubVerifications) Assessment(_ context.Context, id string) (*risk.Assessment, error) {
	a, ok := s.assessments[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "verification not found")
	}
	return a, nil
}

type ManagerSuite struct {
	suite.Suite

	ctx           context.Context
	store         *InMemoryStore
	auditStore    *audit.InMemoryStore
	trail         *audit.Trail
	verifications *stubVerifications
	manager       *Manager
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func (s *ManagerSuite) SetupTest() {
	s.ctx = requestcontext.WithActorID(context.Background(), "ops-1")
	s.store = NewInMemoryStore()
	s.auditStore = audit.NewInMemoryStore()

	var err error
	s.trail, err = audit.NewTrail(s.auditStore)
	s.Require().NoError(err)

	s.verifications = &stubVerifications{assessments: map[string]*risk.Assessment{
		"ver-1": {Tier: 2, Decision: risk.DecisionEscalate, RedFlags: 0, YellowFlags: 2},
	}}

	s.manager, err = NewManager(s.store, s.trail,
		WithVerificationSource(s.verifications),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	s.Require().NoError(err)
}

func (s *ManagerSuite) create(docs ...string) *Dispute {
	d, err := s.manager.Create(s.ctx, CreateRequest{
		OriginalVerificationID: "ver-1",
		CustomerName:           "Sarah Chen",
		CustomerReason:         "my middle name was abbreviated on one document",
		CustomerSegment:        risk.SegmentGeneral,
		AdditionalDocuments:    docs,
	})
	s.Require().NoError(err)
	return d
}

func (s *ManagerSuite) TestCreate() {
	s.Run("captures original decision from verification source", func() {
		d := s.create("passport.pdf")
		s.Equal(StatusIntake, d.Status)
		s.Equal(risk.DecisionEscalate, d.OriginalDecision)
		s.NotEmpty(d.ID)
	})

	s.Run("unknown verification still opens a dispute", func() {
		d, err := s.manager.Create(s.ctx, CreateRequest{
			OriginalVerificationID: "ver-missing",
			CustomerReason:         "decision seems wrong",
		})
		s.Require().NoError(err)
		s.Equal(DecisionUnknown, d.OriginalDecision)
	})

	s.Run("rejects missing reason", func() {
		_, err := s.manager.Create(s.ctx, CreateRequest{OriginalVerificationID: "ver-1"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("writes an audit entry", func() {
		d := s.create()
		entries, err := s.trail.GetTrail(s.ctx, d.ID, audit.Query{})
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(audit.ActionDisputeCreated, entries[0].Action)
		s.Equal("ops-1", entries[0].UserID)
	})
}

func (s *ManagerSuite) TestPerformTriage() {
	original := risk.Assessment{
		Tier: 2, Decision: risk.DecisionEscalate, RedFlags: 1, YellowFlags: 2,
		Mismatches: []mismatch.Mismatch{
			{Field: "name", Severity: mismatch.SeverityYellow},
			{Field: "address", Severity: mismatch.SeverityRed},
			{Field: "postcode", Severity: mismatch.SeverityGreen},
		},
	}

	s.Run("recommends re-verification when additional documents exist", func() {
		d := s.create("utility_bill.pdf")
		triage, err := s.manager.PerformTriage(s.ctx, d.ID, original)
		s.Require().NoError(err)

		s.Equal(RecommendationReVerify, triage.Recommendation)
		s.Equal([]string{"1 RED flag(s) detected", "2 YELLOW flag(s) detected"}, triage.RootCauses)
		s.Equal([]string{"name", "address"}, triage.SpecificIssues)

		stored, err := s.manager.Get(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Equal(StatusTriaged, stored.Status)
	})

	s.Run("recommends manual review without additional documents", func() {
		d := s.create()
		triage, err := s.manager.PerformTriage(s.ctx, d.ID, original)
		s.Require().NoError(err)
		s.Equal(RecommendationManualReview, triage.Recommendation)
	})

	s.Run("fails outside INTAKE", func() {
		d := s.create()
		_, err := s.manager.PerformTriage(s.ctx, d.ID, original)
		s.Require().NoError(err)
		_, err = s.manager.PerformTriage(s.ctx, d.ID, original)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("unknown dispute", func() {
		_, err := s.manager.PerformTriage(s.ctx, "nope", original)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ManagerSuite) triaged(docs ...string) *Dispute {
	d := s.create(docs...)
	_, err := s.manager.PerformTriage(s.ctx, d.ID, risk.Assessment{YellowFlags: 2})
	s.Require().NoError(err)
	return d
}

func (s *ManagerSuite) TestPerformReVerification() {
	s.Run("clean documents flip the decision", func() {
		d := s.triaged("passport.pdf")

		fields := mismatch.FieldMap{"name": "Sarah Chen", "date_of_birth": "1990-03-14"}
		rv, err := s.manager.PerformReVerification(s.ctx, d.ID, fields, fields, "full legal name on new passport")
		s.Require().NoError(err)

		s.Equal(risk.DecisionEscalate, rv.OriginalDecision)
		s.Equal(risk.DecisionApprove, rv.NewDecision)
		s.True(rv.DecisionChanged)
		s.Equal(1, rv.NewRiskTier)
		s.Empty(rv.Mismatches)

		stored, err := s.manager.Get(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Equal(StatusReVerified, stored.Status)
	})

	s.Run("unchanged decision is reported as such", func() {
		d := s.triaged("doc.pdf")

		// two yellow-grade discrepancies keep the escalation in place
		fields1 := mismatch.FieldMap{"name": "Jonathan Smith", "address": "45 George Street Sydney"}
		fields2 := mismatch.FieldMap{"name": "Jonathon Smith", "address": "45 George St Sydney"}
		rv, err := s.manager.PerformReVerification(s.ctx, d.ID, fields1, fields2, "")
		s.Require().NoError(err)

		s.Equal(risk.DecisionEscalate, rv.NewDecision)
		s.False(rv.DecisionChanged)
	})

	s.Run("fails before triage", func() {
		d := s.create("doc.pdf")
		_, err := s.manager.PerformReVerification(s.ctx, d.ID, nil, nil, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *ManagerSuite) resolved(decision FinalDecision) *Dispute {
	d := s.triaged("doc.pdf")
	fields := mismatch.FieldMap{"name": "Sarah Chen"}
	_, err := s.manager.PerformReVerification(s.ctx, d.ID, fields, fields, "")
	s.Require().NoError(err)
	_, err = s.manager.Resolve(s.ctx, d.ID, decision, "re-verification cleared all flags")
	s.Require().NoError(err)
	return d
}

func (s *ManagerSuite) TestResolve() {
	s.Run("closes the dispute and audits the decision", func() {
		d := s.resolved(DecisionApproved)

		stored, err := s.manager.Get(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Equal(StatusResolved, stored.Status)
		s.Equal(DecisionApproved, stored.Resolution.FinalDecision)
		s.False(stored.Resolution.CommunicationSent)

		entries, err := s.trail.GetTrail(s.ctx, d.ID, audit.Query{})
		s.Require().NoError(err)
		s.Require().Len(entries, 4)
		s.Equal(audit.ActionDisputeResolved, entries[3].Action)
	})

	s.Run("rejects an invalid final decision", func() {
		d := s.triaged("doc.pdf")
		_, err := s.manager.Resolve(s.ctx, d.ID, "SHRUG", "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("resolved disputes are terminal", func() {
		d := s.resolved(DecisionRejectedUpheld)
		_, err := s.manager.Resolve(s.ctx, d.ID, DecisionApproved, "second thoughts")
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *ManagerSuite) TestGenerateResolutionCommunication() {
	s.Run("approved letter", func() {
		d := s.resolved(DecisionApproved)
		letter, err := s.manager.GenerateResolutionCommunication(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Contains(letter, "Dear Sarah Chen")
		s.Contains(letter, "APPROVED")
		s.Contains(letter, "Your account is now active and ready to use.")

		stored, err := s.manager.Get(s.ctx, d.ID)
		s.Require().NoError(err)
		s.True(stored.Resolution.CommunicationSent)
	})

	s.Run("override letter acknowledges the discrepancies", func() {
		d := s.resolved(DecisionApprovedOverride)
		letter, err := s.manager.GenerateResolutionCommunication(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Contains(letter, "minor discrepancies")
		s.Contains(letter, "APPROVE your")
	})

	s.Run("upheld letter invites further documentation", func() {
		d := s.resolved(DecisionRejectedUpheld)
		letter, err := s.manager.GenerateResolutionCommunication(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Contains(letter, "uphold our initial decision")
		s.Contains(letter, "provide additional documentation")
	})

	s.Run("unresolved dispute has nothing to communicate", func() {
		d := s.create()
		_, err := s.manager.GenerateResolutionCommunication(s.ctx, d.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *ManagerSuite) TestGetAnalytics() {
	s.Run("empty store yields zero rates", func() {
		a, err := s.manager.GetAnalytics(s.ctx)
		s.Require().NoError(err)
		s.Equal(Analytics{}, a)
	})

	s.Run("rates are percentages rounded to one decimal", func() {
		s.resolved(DecisionApproved)
		s.resolved(DecisionApproved)
		s.resolved(DecisionRejectedUpheld)
		s.create() // pending
		s.create() // pending
		s.create() // pending

		a, err := s.manager.GetAnalytics(s.ctx)
		s.Require().NoError(err)

		s.Equal(6, a.TotalDisputes)
		s.Equal(3, a.ResolvedDisputes)
		s.Equal(3, a.PendingDisputes)
		s.Equal(2, a.ApprovedOnAppeal)
		s.Equal(1, a.RejectedUpheld)
		s.InDelta(66.7, a.ApprovalRateOnAppeal, 0.001)
		s.InDelta(33.3, a.RecoveryRate, 0.001)
	})

}

func (s *ManagerSuite) TestGetAnalytics_OverrideNotCountedAsRecovery() {
	s.resolved(DecisionApprovedOverride)

	a, err := s.manager.GetAnalytics(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, a.ResolvedDisputes)
	s.Equal(0, a.ApprovedOnAppeal)
	s.Zero(a.ApprovalRateOnAppeal)
	s.Zero(a.RecoveryRate)
}

func (s *ManagerSuite) TestConcurrentSaveConflict() {
	d := s.create("doc.pdf")

	// simulate a racing writer bumping the version underneath us
	racing, err := s.store.Get(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Save(s.ctx, racing))

	_, err = s.manager.PerformTriage(s.ctx, d.ID, risk.Assessment{})
	s.Require().NoError(err) // triage re-reads, so it sees the new version

	stale := d.Clone()
	err = s.store.Save(s.ctx, stale)
	s.ErrorContains(err, "conflict")
}

func (s *ManagerSuite) TestDeterministicTimestamps() {
	at := time.Date(2026, 5, 12, 9, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(s.ctx, at)

	d, err := s.manager.Create(ctx, CreateRequest{
		OriginalVerificationID: "ver-1",
		CustomerReason:         "testing timestamps",
	})
	s.Require().NoError(err)
	s.Equal(at, d.CreatedAt)
	s.Equal(at, d.UpdatedAt)
}
