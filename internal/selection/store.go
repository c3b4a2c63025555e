package selection

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/catalog"
)

// DefaultKey is the storage key holding the serialized selection.
const DefaultKey = "selectedProducts"

// Store is the ordered set of selected product ids for one visitor session.
// Every mutation is written through to Storage before it returns; write failures
// are logged and the in-memory set keeps working.
type Store struct {
	mu      sync.RWMutex
	ids     []string
	storage Storage
	key     string
	logger  *zap.Logger

	lastErr error
}

// NewStore restores the snapshot stored under key. Missing or unreadable
// snapshots yield an empty selection.
func NewStore(ctx context.Context, storage Storage, key string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if key == "" {
		key = DefaultKey
	}
	s := &Store{
		storage: storage,
		key:     key,
		logger:  logger,
	}
	s.ids = s.restore(ctx)
	return s
}

func (s *Store) restore(ctx context.Context) []string {
	if s.storage == nil {
		return nil
	}
	raw, err := s.storage.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("selection restore failed", zap.String("key", s.key), zap.Error(err))
		}
		return nil
	}
	ids, err := decodeSnapshot(raw)
	if err != nil {
		s.logger.Warn("selection snapshot unreadable; starting empty", zap.String("key", s.key), zap.Error(err))
		return nil
	}
	return ids
}

// decodeSnapshot parses a JSON array of ids. Numeric entries are accepted and
// canonicalised; blanks and duplicates are dropped.
func decodeSnapshot(raw []byte) ([]string, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		var id catalog.ID
		if err := id.UnmarshalJSON(e); err != nil {
			return nil, err
		}
		key := string(id)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out, nil
}

// Key returns the storage key of this store.
func (s *Store) Key() string { return s.key }

// Toggle removes id when present, otherwise appends it. It reports whether id is selected afterwards.
func (s *Store) Toggle(ctx context.Context, id any) bool {
	key := catalog.CanonicalID(id)
	if key == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(key); i >= 0 {
		s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
		s.persistLocked(ctx)
		return false
	}
	s.ids = append(s.ids, key)
	s.persistLocked(ctx)
	return true
}

// Remove deletes id when present. Absent ids are a no-op.
func (s *Store) Remove(ctx context.Context, id any) {
	key := catalog.CanonicalID(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(key)
	if i < 0 {
		return
	}
	s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
	s.persistLocked(ctx)
}

// Clear empties the selection.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = nil
	s.persistLocked(ctx)
}

// Retain drops every id for which keep returns false. It reports how many ids were dropped.
func (s *Store) Retain(ctx context.Context, keep func(id string) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.ids[:0:0]
	for _, id := range s.ids {
		if keep(id) {
			kept = append(kept, id)
		}
	}
	dropped := len(s.ids) - len(kept)
	if dropped == 0 {
		return 0
	}
	s.ids = kept
	s.persistLocked(ctx)
	return dropped
}

// Contains reports whether id is selected, comparing canonical forms.
func (s *Store) Contains(id any) bool {
	key := catalog.CanonicalID(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexLocked(key) >= 0
}

// IDs returns a copy of the selected ids in selection order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len returns the number of selected ids.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// LastPersistError returns the error of the most recent write, or nil when it succeeded.
func (s *Store) LastPersistError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Store) indexLocked(key string) int {
	if key == "" {
		return -1
	}
	for i, id := range s.ids {
		if id == key {
			return i
		}
	}
	return -1
}

func (s *Store) persistLocked(ctx context.Context) {
	if s.storage == nil {
		return
	}
	ids := s.ids
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	if err == nil {
		err = s.storage.Set(ctx, s.key, raw)
	}
	s.lastErr = err
	if err != nil {
		s.logger.Warn("selection persist failed; continuing in memory",
			zap.String("key", s.key),
			zap.Int("selected", len(s.ids)),
			zap.Error(err),
		)
	}
}
