package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/phuslu/lru"

	"greetd/internal/errors"
)

// Memory is an in-process Client. Expiry has one-second resolution.
type Memory struct {
	lru    *lru.TTLCache[string, string]
	closed atomic.Bool
}

// NewMemory creates a cache holding roughly size entries.
func NewMemory(size int) *Memory {
	return &Memory{lru: lru.NewTTLCache[string, string](size)}
}

// Get returns the value for key, or ErrMiss.
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	if m.closed.Load() {
		return "", ErrClosed
	}
	v, ok := m.lru.Get(key)
	if !ok {
		return "", ErrMiss
	}
	return v, nil
}

// Set stores value under key. A positive ttl is never cut short: the entry
// lives at least ttl and at most ttl plus two seconds.
func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if ttl > 0 {
		ttl = memoryTTL(ttl)
	}
	m.lru.Set(key, value, ttl)
	return nil
}

// Delete removes key. Absent keys are not an error.
func (m *Memory) Delete(_ context.Context, key string) error {
	if m.closed.Load() {
		return ErrClosed
	}
	m.lru.Delete(key)
	return nil
}

// Ping fails only after Close.
func (m *Memory) Ping(_ context.Context) error {
	if m.closed.Load() {
		return errors.New(errors.CacheUnavailable, "cache ping failed", ErrClosed)
	}
	return nil
}

// memoryTTL converts ttl for the lru clock. The clock counts whole seconds,
// so its next tick can land right after the entry is stored: round up, then
// add one tick.
func memoryTTL(ttl time.Duration) time.Duration {
	return (ttl+time.Second-1).Truncate(time.Second) + time.Second
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	return m.lru.Len()
}

// Close marks the client closed; later calls return ErrClosed.
func (m *Memory) Close() error {
	m.closed.Store(true)
	return nil
}
