package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"verity/pkg/platform/sentinel"
)

const verificationKeyPrefix = "verification:"

// DefaultAssessmentTTL bounds how long an assessment stays available for
// dispute lookup. Disputes older than this fall back to UNKNOWN.
const DefaultAssessmentTTL = 90 * 24 * time.Hour

// RedisStore is a Redis-backed AssessmentStore for multi-instance
// deployments where disputes may land on a different instance than the
// verification did.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithTTL overrides the assessment retention window.
func WithTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

// NewRedisStore constructs a Redis-backed assessment store.
func NewRedisStore(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{client: client, ttl: DefaultAssessmentTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) Save(ctx context.Context, v *Verification) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode verification: %w", err)
	}
	if err := s.client.Set(ctx, verificationKeyPrefix+v.ID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store verification: %w", err)
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, id string) (*Verification, error) {
	payload, err := s.client.Get(ctx, verificationKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load verification: %w", err)
	}

	var v Verification
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("decode verification: %w", err)
	}
	return &v, nil
}
