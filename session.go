package civicsense

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChatMessage represents a single chat turn. Assistant messages carry the
// source documents their answer cited.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sources   []string  `json:"sources,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Session holds chat messages with creation time.
type Session struct {
	ID        string        `json:"session_id"`
	CreatedAt time.Time     `json:"created_at"`
	Messages  []ChatMessage `json:"messages"`
}

// SessionStore is an abstraction for session persistence.
type SessionStore interface {
	Create(ctx context.Context) *Session
	Get(ctx context.Context, id string) (*Session, bool)
	Delete(ctx context.Context, id string) bool
	List(ctx context.Context) []*Session
	AddMessage(ctx context.Context, id string, msg ChatMessage) bool
	// ListRange returns sessions from offset with limit, ordered by recency (desc)
	ListRange(ctx context.Context, offset, limit int) []*Session
	// Clean keeps at most max sessions (by recency).
	Clean(ctx context.Context, max int) error
}

// MemSessionStore manages sessions in memory.
type MemSessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemSessionStore() *MemSessionStore {
	return &MemSessionStore{sessions: make(map[string]*Session)}
}

func (m *MemSessionStore) Create(_ context.Context) *Session {
	s := &Session{ID: uuid.NewString(), CreatedAt: time.Now(), Messages: []ChatMessage{}}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

func (m *MemSessionStore) Get(_ context.Context, id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	return s, ok
}

func (m *MemSessionStore) Delete(_ context.Context, id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	return ok
}

func (m *MemSessionStore) List(_ context.Context) []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *MemSessionStore) ListRange(ctx context.Context, offset, limit int) []*Session {
	list := m.List(ctx)
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || offset >= len(list) {
		return []*Session{}
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end]
}

func (m *MemSessionStore) Clean(_ context.Context, max int) error {
	if max <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sessions) <= max {
		return nil
	}
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	for _, s := range out[max:] {
		delete(m.sessions, s.ID)
	}
	return nil
}

func (m *MemSessionStore) AddMessage(_ context.Context, id string, msg ChatMessage) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		s.Messages = append(s.Messages, msg)
	}
	m.mu.Unlock()
	return ok
}
