package advisor

import (
	"sync"

	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/completion"
)

// Role identifies the author of a transcript turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of a conversation transcript.
type Turn struct {
	Role    Role
	Content string
}

func (t Turn) message() completion.Message {
	return completion.Message{Role: string(t.Role), Content: t.Content}
}

// Conversation is an append-only chat transcript seeded with the chat system instruction.
type Conversation struct {
	mu    sync.Mutex
	turns []Turn
}

// NewConversation returns a transcript holding only the system instruction.
func NewConversation(system string) *Conversation {
	if system == "" {
		system = ChatInstruction
	}
	return &Conversation{turns: []Turn{{Role: RoleSystem, Content: system}}}
}

func (c *Conversation) append(t Turn) {
	c.mu.Lock()
	c.turns = append(c.turns, t)
	c.mu.Unlock()
}

// Turns returns a copy of the whole transcript, system turn included.
func (c *Conversation) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Visible returns the non-system turns in order.
func (c *Conversation) Visible() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Turn, 0, len(c.turns))
	for _, t := range c.turns {
		if t.Role == RoleSystem {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Len returns the number of turns including the system instruction.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

func (c *Conversation) messages() []completion.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]completion.Message, len(c.turns))
	for i, t := range c.turns {
		out[i] = t.message()
	}
	return out
}
