package joincode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	id "homeroom/pkg/domain"
)

const (
	// verificationKeyPrefix namespaces cache entries in Redis.
	verificationKeyPrefix = "codeverify:"

	// DefaultVerificationTTL bounds how long a cached verification may lag
	// a revocation. Regeneration also invalidates the revoked code's entry
	// explicitly, so the full TTL window only applies when the delete is
	// lost.
	DefaultVerificationTTL = 30 * time.Second
)

// Verification is the outcome of a join-code check.
type Verification struct {
	Valid    bool
	SchoolID *id.SchoolID
}

// verificationJSON is the JSON-serializable representation of a Verification.
type verificationJSON struct {
	Valid    bool   `json:"valid"`
	SchoolID string `json:"school_id,omitempty"`
}

// VerificationCache caches verification results in Redis, cache-aside.
// The lifecycle service consults it before the code store and writes
// results back after a miss. A nil *VerificationCache is valid and means
// no caching.
type VerificationCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewVerificationCache constructs a Redis-backed verification cache.
// A zero or negative ttl falls back to DefaultVerificationTTL.
func NewVerificationCache(client *redis.Client, ttl time.Duration) *VerificationCache {
	if ttl <= 0 {
		ttl = DefaultVerificationTTL
	}
	return &VerificationCache{client: client, ttl: ttl}
}

func verificationKey(code string) string {
	return verificationKeyPrefix + code
}

// Get returns the cached verification for a code, or nil on a miss.
// Redis errors are returned so the caller can log them, but callers
// treat any error as a miss and fall through to the store.
func (c *VerificationCache) Get(ctx context.Context, code string) (*Verification, error) {
	data, err := c.client.Get(ctx, verificationKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached verification: %w", err)
	}

	var j verificationJSON
	if err := json.Unmarshal([]byte(data), &j); err != nil {
		return nil, fmt.Errorf("unmarshal cached verification: %w", err)
	}

	v := &Verification{Valid: j.Valid}
	if j.SchoolID != "" {
		parsed, err := uuid.Parse(j.SchoolID)
		if err != nil {
			return nil, fmt.Errorf("parse cached school id: %w", err)
		}
		sid := id.SchoolID(parsed)
		v.SchoolID = &sid
	}
	return v, nil
}

// Put stores a verification result with the configured TTL.
func (c *VerificationCache) Put(ctx context.Context, code string, v Verification) error {
	j := verificationJSON{Valid: v.Valid}
	if v.SchoolID != nil {
		j.SchoolID = v.SchoolID.String()
	}
	data, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	if err := c.client.Set(ctx, verificationKey(code), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache verification: %w", err)
	}
	return nil
}

// Invalidate drops the cached entry for a code. Regeneration calls this
// for the revoked code so stale positives disappear before the TTL.
func (c *VerificationCache) Invalidate(ctx context.Context, code string) error {
	if err := c.client.Del(ctx, verificationKey(code)).Err(); err != nil {
		return fmt.Errorf("invalidate cached verification: %w", err)
	}
	return nil
}
