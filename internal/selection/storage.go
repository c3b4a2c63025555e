package selection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

var (
	// ErrNotFound is returned by a Storage when no value exists for a key.
	ErrNotFound = errors.New("selection: snapshot not found")
	// ErrQuotaExceeded is returned when a snapshot is larger than the backend accepts.
	ErrQuotaExceeded = errors.New("selection: storage quota exceeded")
)

// Storage persists serialized selection snapshots under a key.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// memoryCleanupPeriod bounds how often expired snapshots are swept.
const memoryCleanupPeriod = 10 * time.Minute

// MemoryStorage keeps snapshots in process memory. A positive MaxBytes rejects
// larger values. Snapshots not read or written within the TTL expire.
type MemoryStorage struct {
	MaxBytes int

	ttl   time.Duration
	once  sync.Once
	items *cache.Cache
}

// NewMemoryStorage constructs an empty MemoryStorage whose snapshots never expire.
func NewMemoryStorage(maxBytes int) *MemoryStorage {
	return NewExpiringMemoryStorage(maxBytes, 0)
}

// NewExpiringMemoryStorage constructs an empty MemoryStorage that drops a
// snapshot once it has been idle for ttl. A non-positive ttl disables expiry.
func NewExpiringMemoryStorage(maxBytes int, ttl time.Duration) *MemoryStorage {
	m := &MemoryStorage{MaxBytes: maxBytes, ttl: ttl}
	m.init()
	return m
}

func (m *MemoryStorage) init() {
	m.once.Do(func() {
		if m.ttl <= 0 {
			m.items = cache.New(cache.NoExpiration, 0)
			return
		}
		cleanup := memoryCleanupPeriod
		if m.ttl < cleanup {
			cleanup = m.ttl
		}
		m.items = cache.New(m.ttl, cleanup)
	})
}

// Get implements Storage. A hit restarts the snapshot's TTL.
func (m *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	m.init()
	v, ok := m.items.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	stored := v.([]byte)
	m.items.SetDefault(key, stored)
	out := make([]byte, len(stored))
	copy(out, stored)
	return out, nil
}

// Set implements Storage.
func (m *MemoryStorage) Set(_ context.Context, key string, value []byte) error {
	if m.MaxBytes > 0 && len(value) > m.MaxBytes {
		return fmt.Errorf("%w: %d bytes > %d", ErrQuotaExceeded, len(value), m.MaxBytes)
	}
	m.init()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.items.SetDefault(key, cp)
	return nil
}

// Len reports the number of stored snapshots, including expired ones not yet swept.
func (m *MemoryStorage) Len() int {
	m.init()
	return m.items.ItemCount()
}
