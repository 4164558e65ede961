package dispute

import (
	"context"
	"fmt"

	dErrors "verity/pkg/domain-errors"
	"verity/pkg/requestcontext"
)

const signature = "Customer Verification Team"

// GenerateResolutionCommunication renders the customer-facing resolution
// letter for a resolved dispute and marks the communication as sent.
func (m *Manager) GenerateResolutionCommunication(ctx context.Context, disputeID string) (string, error) {
	d, err := m.Get(ctx, disputeID)
	if err != nil {
		return "", err
	}
	if d.Resolution == nil {
		return "", dErrors.New(dErrors.CodeInvariantViolation, "dispute has no resolution to communicate")
	}

	letter := resolutionLetter(d)

	if !d.Resolution.CommunicationSent {
		if err := d.MarkCommunicationSent(requestcontext.Now(ctx)); err != nil {
			return "", err
		}
		if err := m.store.Save(ctx, d); err != nil {
			return "", m.translateStoreErr(err)
		}
	}
	return letter, nil
}

// resolutionLetter picks the template matching the final decision. Tone is
// professional and respectful regardless of outcome.
func resolutionLetter(d *Dispute) string {
	name := d.CustomerName
	if name == "" {
		name = "Valued Customer"
	}

	switch d.Resolution.FinalDecision {
	case DecisionApproved:
		return fmt.Sprintf(`Dear %s,

Thank you for contacting us regarding your recent verification.

We have reviewed your dispute and your additional documentation. Based on this
complete assessment, we are pleased to inform you that your verification has
been APPROVED.

Your account is now active and ready to use.

We appreciate your patience and apologize for any inconvenience.

Best regards,
%s
`, name, signature)
	case DecisionApprovedOverride:
		return fmt.Sprintf(`Dear %s,

Thank you for contacting us regarding your recent verification dispute.

We have carefully reviewed your case and the additional information you
provided. While there were minor discrepancies in your documentation, we
recognize the context you've provided and have decided to APPROVE your
verification.

Your account is now active. If you have any questions, please don't hesitate
to reach out.

Best regards,
%s
`, name, signature)
	default:
		return fmt.Sprintf(`Dear %s,

We have reviewed your dispute regarding your recent verification result.

After careful consideration of your appeal and the available documentation,
we must respectfully uphold our initial decision.

The concerns identified during verification remain unresolved. If you believe
this is in error, please provide additional documentation that addresses the
specific issues noted.

We remain committed to assisting you.

Best regards,
%s
`, name, signature)
	}
}
