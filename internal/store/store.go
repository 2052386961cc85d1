// Package store keeps exported map documents so they can be fetched again
// by name.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrNotFound is returned when no export is stored under a name.
var ErrNotFound = errors.New("export not found")

// ErrInvalidName is returned for names that could escape the key prefix.
var ErrInvalidName = errors.New("invalid export name")

// Exports stores and retrieves export documents by file name.
type Exports interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
}

var (
	_ Exports = (*RedisExports)(nil)
	_ Exports = (*MemoryExports)(nil)
)

// ValidateName rejects empty names and names containing path separators.
func ValidateName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// RedisExports stores exports as plain string keys with a TTL.
type RedisExports struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisExports returns a Redis-backed store. A zero ttl keeps exports
// forever.
func NewRedisExports(client *redis.Client, prefix string, ttl time.Duration) *RedisExports {
	return &RedisExports{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisExports) key(name string) string {
	return r.prefix + name
}

// Put stores data under name
func (r *RedisExports) Put(ctx context.Context, name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(name), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store export %s: %w", name, err)
	}
	log.Printf("Stored export %s (%d bytes)", name, len(data))
	return nil
}

// Get loads the export stored under name
func (r *RedisExports) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	data, err := r.client.Get(ctx, r.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load export %s: %w", name, err)
	}
	return data, nil
}

type memEntry struct {
	data    []byte
	expires time.Time
}

// MemoryExports is an in-process store used when Redis is not configured.
type MemoryExports struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryExports returns an empty in-memory store. A zero ttl keeps
// exports forever.
func NewMemoryExports(ttl time.Duration) *MemoryExports {
	return &MemoryExports{
		entries: make(map[string]memEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stores a copy of data under name
func (m *MemoryExports) Put(_ context.Context, name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	e := memEntry{data: append([]byte(nil), data...)}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = e
	m.sweepLocked()
	return nil
}

// Get returns a copy of the export stored under name
func (m *MemoryExports) Get(_ context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	m.mu.RLock()
	e, ok := m.entries[name]
	m.mu.RUnlock()

	if !ok || m.expired(e) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return append([]byte(nil), e.data...), nil
}

func (m *MemoryExports) expired(e memEntry) bool {
	return !e.expires.IsZero() && !m.now().Before(e.expires)
}

// sweepLocked drops expired entries. Caller holds mu.
func (m *MemoryExports) sweepLocked() {
	for name, e := range m.entries {
		if m.expired(e) {
			delete(m.entries, name)
		}
	}
}
