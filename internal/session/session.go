// Package session keeps in-memory conversation state. Persistence is out of
// scope for the assistant; conversations live for the lifetime of the
// process, keyed by uuid.
package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/koopa0/helpdesk/internal/agent"
)

// ErrNotFound indicates the requested conversation does not exist.
var ErrNotFound = errors.New("conversation not found")

// Message is a single stored conversation message. Metadata carries
// assistant-side annotations such as confidence and sources.
type Message struct {
	Role      agent.Role     `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Conversation is a stored chat thread.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MemoryStore holds conversations behind a mutex. Safe for concurrent use.
// All accessors return copies; callers never share slices with the store.
type MemoryStore struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]*Conversation

	now func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[uuid.UUID]*Conversation),
		now:           time.Now,
	}
}

// GetOrCreate returns the conversation with the given id, creating it when
// id is uuid.Nil or unknown. The returned value is a copy.
func (s *MemoryStore) GetOrCreate(id uuid.UUID, userID string) Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == uuid.Nil {
		id = uuid.New()
	}
	conv, ok := s.conversations[id]
	if !ok {
		now := s.now()
		conv = &Conversation{
			ID:        id,
			UserID:    userID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.conversations[id] = conv
	}
	return copyConversation(conv)
}

// Get returns a copy of the conversation or ErrNotFound.
func (s *MemoryStore) Get(id uuid.UUID) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return Conversation{}, ErrNotFound
	}
	return copyConversation(conv), nil
}

// List returns up to limit conversations, optionally filtered by user,
// most recently updated first.
func (s *MemoryStore) List(userID string, limit int) []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		if userID != "" && conv.UserID != userID {
			continue
		}
		out = append(out, copyConversation(conv))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Append adds a message to the conversation and bumps its timestamp.
func (s *MemoryStore) Append(id uuid.UUID, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return ErrNotFound
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = s.now()
	return nil
}

// History returns the last n messages as turns for the model, oldest first.
func (s *MemoryStore) History(id uuid.UUID, n int) []agent.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil
	}

	msgs := conv.Messages
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}

	turns := make([]agent.Turn, len(msgs))
	for i, msg := range msgs {
		turns[i] = agent.Turn{Role: msg.Role, Content: msg.Content}
	}
	return turns
}

// Delete removes a conversation entirely.
func (s *MemoryStore) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return ErrNotFound
	}
	delete(s.conversations, id)
	return nil
}

// Clear drops all messages from a conversation but keeps the thread.
func (s *MemoryStore) Clear(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return ErrNotFound
	}
	conv.Messages = nil
	conv.UpdatedAt = s.now()
	return nil
}

// Count reports how many conversations are stored.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

func copyConversation(conv *Conversation) Conversation {
	out := *conv
	out.Messages = make([]Message, len(conv.Messages))
	copy(out.Messages, conv.Messages)
	return out
}
