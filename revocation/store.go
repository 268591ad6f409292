// Package revocation keeps a deny list of token identifiers ("jti") and
// exposes it as a jwt.Constraint.
//
// Entries live until the revoked token would have expired anyway, so the list
// stays bounded by the token lifetime.
package revocation

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/kbukum/jwtauth/jwt"
	"github.com/kbukum/jwtauth/redis"
)

// Store persists revoked token identifiers.
type Store interface {
	// Revoke denies jti until the given time. Revoking with a time in the
	// past is a no-op.
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	clock   jwt.Clock
}

// NewMemoryStore creates an empty MemoryStore. A nil clock uses the system clock.
func NewMemoryStore(clock jwt.Clock) *MemoryStore {
	if clock == nil {
		clock = jwt.SystemClock{}
	}
	return &MemoryStore{entries: make(map[string]time.Time), clock: clock}
}

// Revoke implements Store.
func (s *MemoryStore) Revoke(_ context.Context, jti string, until time.Time) error {
	if !until.After(s.clock.Now()) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.entries[jti]; !ok || until.After(prev) {
		s.entries[jti] = until
	}
	return nil
}

// IsRevoked implements Store.
func (s *MemoryStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	until, ok := s.entries[jti]
	s.mu.RUnlock()
	return ok && s.clock.Now().Before(until), nil
}

// Purge drops expired entries and returns how many were removed.
func (s *MemoryStore) Purge() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for jti, until := range s.entries {
		if !now.Before(until) {
			delete(s.entries, jti)
			n++
		}
	}
	return n
}

// PurgeEvery calls Purge every interval until ctx is done.
func (s *MemoryStore) PurgeEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Purge()
		}
	}
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

const redisKeyPrefix = "revoked:"

// RedisStore shares the deny list between instances through Redis. Entries
// expire through Redis key TTLs.
type RedisStore struct {
	client *redis.Client
	clock  jwt.Clock
}

// NewRedisStore creates a RedisStore. A nil clock uses the system clock.
func NewRedisStore(client *redis.Client, clock jwt.Clock) *RedisStore {
	if clock == nil {
		clock = jwt.SystemClock{}
	}
	return &RedisStore{client: client, clock: clock}
}

// Revoke implements Store.
func (s *RedisStore) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(s.clock.Now())
	if ttl <= 0 {
		return nil
	}
	// Sub-millisecond TTLs are rejected by Redis.
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	return s.client.Set(ctx, redisKeyPrefix+jti, strconv.FormatInt(until.Unix(), 10), ttl)
}

// IsRevoked implements Store.
func (s *RedisStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return s.client.Exists(ctx, redisKeyPrefix+jti)
}
