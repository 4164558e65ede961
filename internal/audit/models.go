package audit

import (
	"fmt"
	"time"

	"verity/pkg/platform/canonical"
)

// Entry is one immutable, hash-verifiable record of a state change. Once
// written it is never edited, only superseded by a later entry for the same
// entity.
type Entry struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Action     string         `json:"action"`
	Details    map[string]any `json:"details"`
	UserID     string         `json:"user_id,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Hash       string         `json:"hash"`
}

// Actions recorded by the core. Callers may log additional actions; these are
// the ones the dispute and verification services emit.
const (
	ActionVerificationCompleted = "VERIFICATION_COMPLETED"
	ActionDisputeCreated        = "DISPUTE_CREATED"
	ActionDisputeTriaged        = "DISPUTE_TRIAGED"
	ActionDisputeReVerified     = "DISPUTE_RE_VERIFIED"
	ActionDisputeResolved       = "DISPUTE_RESOLVED"
)

// IntegrityReport is the outcome of re-verifying every stored entry for an
// entity. Corruption is reported as data, never as an error: detection is the
// point of the log, not a failure of the call.
type IntegrityReport struct {
	EntityID              string `json:"entity_id"`
	TotalEntries          int    `json:"total_entries"`
	VerifiedEntries       int    `json:"verified_entries"`
	CorruptedEntries      int    `json:"corrupted_entries"`
	IsIntegrityMaintained bool   `json:"is_integrity_maintained"`
}

// Query narrows a trail scan. Zero values leave the dimension unbounded.
type Query struct {
	EntityType string
	Start      time.Time
	End        time.Time
}

// hashPayload is the canonical input to an entry's integrity hash: every
// stored field except the hash itself, with details pre-canonicalized so the
// digest is stable across encoders.
type hashPayload struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Action     string `json:"action"`
	Details    string `json:"details"`
	UserID     string `json:"user_id"`
	Timestamp  string `json:"timestamp"`
}

// ComputeHash returns the integrity digest an entry with these fields must
// carry. Verification recomputes it from the stored fields and compares.
func ComputeHash(e Entry) (string, error) {
	details, err := canonical.Marshal(e.Details)
	if err != nil {
		return "", fmt.Errorf("canonicalize details: %w", err)
	}
	return canonical.Hash(hashPayload{
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     e.Action,
		Details:    string(details),
		UserID:     e.UserID,
		Timestamp:  e.Timestamp.UTC().Format(time.RFC3339Nano),
	})
}

// entryID derives a practically unique identifier from the entity coordinates
// and timestamp. 16 hex characters; a collision is astronomically unlikely
// and appends never check for one.
func entryID(entityType, entityID string, ts time.Time) string {
	seed := fmt.Sprintf("%s:%s:%s", entityType, entityID, ts.UTC().Format(time.RFC3339Nano))
	return canonical.HashString(seed)[:16]
}
