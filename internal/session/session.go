// Package session loads and saves per-conversation state and serialises
// turns for the same conversation.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/DealerPipe/internal/models"
)

var (
	// ErrNotFound is returned by Load when no session exists for the id.
	ErrNotFound = errors.New("session not found")
	// ErrLockAcquire is returned when a conversation lock cannot be taken.
	ErrLockAcquire = errors.New("failed to acquire conversation lock")
)

// Store persists sessions keyed by conversation id.
type Store interface {
	Load(ctx context.Context, conversationID string) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, conversationID string) error
}

// LoadOrNew returns the stored session or a fresh one when none exists. A
// stored step outside the known set is reset to the main menu.
func LoadOrNew(ctx context.Context, st Store, conversationID string) (*models.Session, error) {
	sess, err := st.Load(ctx, conversationID)
	if errors.Is(err, ErrNotFound) {
		return models.NewSession(conversationID), nil
	}
	if err != nil {
		return nil, err
	}
	if !sess.Step.IsValid() {
		slog.Warn("session.LoadOrNew: unknown stored step, resetting to main menu", "step", sess.Step)
		sess.Step = models.StepMainMenu
	}
	return sess, nil
}

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps sessions in a map. Values are cloned on the way in and
// out so callers can mutate what they load.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*models.Session)}
}

func (m *MemoryStore) Load(_ context.Context, conversationID string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[conversationID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s *models.Session) error {
	s.UpdatedAt = time.Now()
	m.mu.Lock()
	m.sessions[s.ConversationID] = s.Clone()
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, conversationID string) error {
	m.mu.Lock()
	delete(m.sessions, conversationID)
	m.mu.Unlock()
	return nil
}

// Len reports how many sessions are held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
