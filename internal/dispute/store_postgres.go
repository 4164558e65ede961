package dispute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"verity/pkg/platform/sentinel"
)

// PostgresStore implements Store over a disputes table holding the aggregate
// as JSONB plus a version column. The version column carries the optimistic
// lock: updates are conditional on the caller's version and a zero-row update
// distinguishes a lost race from a missing dispute.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Schema creates the disputes table. Called by deployment tooling and
// integration tests; production migrations live with the operator.
const Schema = `
CREATE TABLE IF NOT EXISTS disputes (
	id         TEXT PRIMARY KEY,
	doc        JSONB NOT NULL,
	version    INTEGER NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func (s *PostgresStore) Create(ctx context.Context, d *Dispute) error {
	d.Version = 1
	doc, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode dispute: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO disputes (id, doc, version) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO NOTHING`,
		d.ID, doc, d.Version)
	if err != nil {
		return fmt.Errorf("insert dispute: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Dispute, error) {
	var (
		doc     []byte
		version int
	)
	err := s.pool.QueryRow(ctx,
		`SELECT doc, version FROM disputes WHERE id = $1`, id).Scan(&doc, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select dispute: %w", err)
	}

	var d Dispute
	if err := json.Unmarshal(doc, &d); err != nil {
		return nil, fmt.Errorf("decode dispute: %w", err)
	}
	d.Version = version
	return &d, nil
}

func (s *PostgresStore) Save(ctx context.Context, d *Dispute) error {
	expected := d.Version
	d.Version = expected + 1
	doc, err := json.Marshal(d)
	if err != nil {
		d.Version = expected
		return fmt.Errorf("encode dispute: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE disputes SET doc = $2, version = $3, updated_at = now()
		 WHERE id = $1 AND version = $4`,
		d.ID, doc, d.Version, expected)
	if err != nil {
		d.Version = expected
		return fmt.Errorf("update dispute: %w", err)
	}
	if tag.RowsAffected() == 0 {
		d.Version = expected
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM disputes WHERE id = $1)`, d.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check dispute existence: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Dispute, error) {
	rows, err := s.pool.Query(ctx, `SELECT doc, version FROM disputes`)
	if err != nil {
		return nil, fmt.Errorf("list disputes: %w", err)
	}
	defer rows.Close()

	var out []*Dispute
	for rows.Next() {
		var (
			doc     []byte
			version int
		)
		if err := rows.Scan(&doc, &version); err != nil {
			return nil, fmt.Errorf("scan dispute: %w", err)
		}
		var d Dispute
		if err := json.Unmarshal(doc, &d); err != nil {
			return nil, fmt.Errorf("decode dispute: %w", err)
		}
		d.Version = version
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate disputes: %w", err)
	}
	return out, nil
}
