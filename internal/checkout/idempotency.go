package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// IdempotencyStore maps a client-supplied Idempotency-Key to the receipt it
// produced, so a retried checkout returns the original receipt.
type IdempotencyStore interface {
	Lookup(ctx context.Context, guestID, key string) (receiptID string, found bool, err error)
	Remember(ctx context.Context, guestID, key, receiptID string) error
}

func idempotencyKey(guestID, key string) string {
	return "checkout:idem:" + guestID + ":" + key
}

type memoryEntry struct {
	receiptID string
	expires   time.Time
}

type MemoryIdempotency struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryIdempotency(ttl time.Duration) *MemoryIdempotency {
	return &MemoryIdempotency{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryIdempotency) Lookup(_ context.Context, guestID, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := idempotencyKey(guestID, key)
	e, ok := m.entries[k]
	if !ok {
		return "", false, nil
	}
	if m.now().After(e.expires) {
		delete(m.entries, k)
		return "", false, nil
	}
	return e.receiptID, true, nil
}

func (m *MemoryIdempotency) Remember(_ context.Context, guestID, key, receiptID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := idempotencyKey(guestID, key)
	if e, ok := m.entries[k]; ok && !m.now().After(e.expires) {
		return nil
	}
	m.entries[k] = memoryEntry{receiptID: receiptID, expires: m.now().Add(m.ttl)}
	return nil
}

// RedisClient is the subset of *redis.Client used for idempotency keys.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

type RedisIdempotency struct {
	rdb RedisClient
	ttl time.Duration
}

func NewRedisIdempotency(rdb RedisClient, ttl time.Duration) *RedisIdempotency {
	return &RedisIdempotency{rdb: rdb, ttl: ttl}
}

func (r *RedisIdempotency) Lookup(ctx context.Context, guestID, key string) (string, bool, error) {
	v, err := r.rdb.Get(ctx, idempotencyKey(guestID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

// Remember keeps the first receipt stored under a key.
func (r *RedisIdempotency) Remember(ctx context.Context, guestID, key, receiptID string) error {
	if err := r.rdb.SetNX(ctx, idempotencyKey(guestID, key), receiptID, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	return nil
}
