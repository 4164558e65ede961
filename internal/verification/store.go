package verification

import "context"

// AssessmentStore persists verification outcomes keyed by verification id.
// Disputes read back the original assessment from here.
type AssessmentStore interface {
	// Save persists the verification outcome.
	Save(ctx context.Context, v *Verification) error

	// Find returns the verification or sentinel.ErrNotFound.
	Find(ctx context.Context, id string) (*Verification, error)
}
