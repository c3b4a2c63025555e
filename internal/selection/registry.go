package selection

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	defaultIdleTTL       = 24 * time.Hour
	defaultCleanupPeriod = 30 * time.Minute
)

// Registry keeps one Store per visitor session. A store is built, and its
// snapshot restored, on the first lookup of a session; idle stores expire.
type Registry struct {
	storage Storage
	prefix  string
	logger  *zap.Logger
	cache   *cache.Cache

	mu sync.Mutex
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// KeyPrefix is joined with the session id to form the storage key.
	KeyPrefix string
	IdleTTL   time.Duration
	Logger    *zap.Logger
}

// NewRegistry constructs a Registry backed by storage.
func NewRegistry(storage Storage, opts RegistryOptions) *Registry {
	ttl := opts.IdleTTL
	if ttl <= 0 {
		ttl = defaultIdleTTL
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = DefaultKey
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		storage: storage,
		prefix:  prefix,
		logger:  logger.With(zap.String("component", "selection")),
		cache:   cache.New(ttl, defaultCleanupPeriod),
	}
}

// StorageKey returns the storage key used for sessionID.
func (r *Registry) StorageKey(sessionID string) string {
	return r.prefix + ":" + sessionID
}

// Store returns the store for sessionID, restoring it from storage on first use.
func (r *Registry) Store(ctx context.Context, sessionID string) *Store {
	if v, ok := r.cache.Get(sessionID); ok {
		s := v.(*Store)
		// sliding expiry
		r.cache.SetDefault(sessionID, s)
		return s
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.cache.Get(sessionID); ok {
		return v.(*Store)
	}
	s := NewStore(ctx, r.storage, r.StorageKey(sessionID), r.logger.With(zap.String("session", shortID(sessionID))))
	r.cache.SetDefault(sessionID, s)
	return s
}

// Len reports the number of live stores.
func (r *Registry) Len() int { return r.cache.ItemCount() }

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
