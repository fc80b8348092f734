package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationSet records tokens invalidated by logout. Implementations only
// store a hash of the token and may forget an entry once the token has
// expired, since expired tokens fail verification anyway.
type RevocationSet interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// TokenHash is the hex SHA-256 digest used as the revocation key.
func TokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// minRetention keeps entries for already expired tokens briefly so that a
// revoke is always observable right after it returns.
const minRetention = time.Minute

func retention(expiresAt, now time.Time, limit time.Duration) time.Duration {
	ttl := expiresAt.Sub(now)
	if ttl < minRetention {
		ttl = minRetention
	}
	if limit > 0 && ttl > limit {
		ttl = limit
	}
	return ttl
}

// MemoryRevocationSet is a process-local set guarded by a RWMutex. It does
// not survive a restart.
type MemoryRevocationSet struct {
	mu      sync.RWMutex
	entries map[string]time.Time // hash -> drop after
	writes  int
	maxTTL  time.Duration
	now     func() time.Time
}

// pruneEvery controls how often Revoke sweeps expired entries.
const pruneEvery = 256

// NewMemoryRevocationSet keeps each entry for at most maxTTL; zero means the
// token's own expiry is trusted.
func NewMemoryRevocationSet(maxTTL time.Duration) *MemoryRevocationSet {
	return &MemoryRevocationSet{entries: make(map[string]time.Time), maxTTL: maxTTL, now: time.Now}
}

func (m *MemoryRevocationSet) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	now := m.now()
	until := now.Add(retention(expiresAt, now, m.maxTTL))
	key := TokenHash(token)

	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.entries[key]; ok && !until.After(cur) {
		return nil
	}
	m.entries[key] = until
	m.writes++
	if m.writes%pruneEvery == 0 {
		for k, exp := range m.entries {
			if exp.Before(now) {
				delete(m.entries, k)
			}
		}
	}
	return nil
}

func (m *MemoryRevocationSet) IsRevoked(_ context.Context, token string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[TokenHash(token)]
	return ok, nil
}

// Len returns the number of tracked entries.
func (m *MemoryRevocationSet) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// RedisRevocationSet shares revocations across processes. Each entry is a
// key with a TTL equal to the token's remaining lifetime.
type RedisRevocationSet struct {
	rdb    redis.Cmdable
	prefix string
	maxTTL time.Duration
	now    func() time.Time
}

// NewRedisRevocationSet stores keys as "<prefix>:<sha256>". maxTTL caps the
// key lifetime and should be the refresh token lifetime.
func NewRedisRevocationSet(rdb redis.Cmdable, prefix string, maxTTL time.Duration) *RedisRevocationSet {
	if prefix == "" {
		prefix = "revoked"
	}
	return &RedisRevocationSet{rdb: rdb, prefix: prefix, maxTTL: maxTTL, now: time.Now}
}

func (r *RedisRevocationSet) key(token string) string { return r.prefix + ":" + TokenHash(token) }

func (r *RedisRevocationSet) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := retention(expiresAt, r.now(), r.maxTTL).Round(time.Second)
	if err := r.rdb.Set(ctx, r.key(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis revoke: %w", err)
	}
	return nil
}

func (r *RedisRevocationSet) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("redis revocation lookup: %w", err)
	}
	return n > 0, nil
}
