package dispute

import "context"

// Store is the persistence contract for disputes. Implementations must
// provide optimistic versioning: Save compares the dispute's Version against
// the stored one and returns sentinel.ErrConflict on a lost update, so a
// racing read-modify-write is surfaced to the caller instead of silently
// overwritten.
type Store interface {
	// Create persists a new dispute. Returns sentinel.ErrConflict if the id
	// already exists.
	Create(ctx context.Context, d *Dispute) error

	// Get returns the dispute or sentinel.ErrNotFound.
	Get(ctx context.Context, id string) (*Dispute, error)

	// Save persists an update. The dispute's Version must equal the stored
	// version; on success the stored version (and d.Version) increment.
	// Returns sentinel.ErrNotFound or sentinel.ErrConflict.
	Save(ctx context.Context, d *Dispute) error

	// List returns all disputes in unspecified order.
	List(ctx context.Context) ([]*Dispute, error)
}
