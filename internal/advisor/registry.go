package advisor

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Conversations keeps one chat transcript per visitor session.
type Conversations struct {
	mu     sync.Mutex
	cache  *cache.Cache
	ttl    time.Duration
	system string
}

// NewConversations returns a registry whose idle transcripts expire after ttl.
func NewConversations(ttl time.Duration, system string) *Conversations {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Conversations{
		cache:  cache.New(ttl, 30*time.Minute),
		ttl:    ttl,
		system: system,
	}
}

// Get returns the session's transcript, creating it on first use.
func (r *Conversations) Get(sessionID string) *Conversation {
	if v, ok := r.cache.Get(sessionID); ok {
		conv := v.(*Conversation)
		r.cache.Set(sessionID, conv, r.ttl)
		return conv
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.cache.Get(sessionID); ok {
		return v.(*Conversation)
	}
	conv := NewConversation(r.system)
	r.cache.Set(sessionID, conv, r.ttl)
	return conv
}

// Len returns the number of live transcripts.
func (r *Conversations) Len() int { return r.cache.ItemCount() }
