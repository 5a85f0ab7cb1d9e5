package session

import (
	"context"
	"time"

	"github.com/BTreeMap/DealerPipe/internal/models"
	"github.com/BTreeMap/DealerPipe/internal/store"
)

// Compile-time check that SQLStore implements Store.
var _ Store = (*SQLStore)(nil)

// SQLStore adapts a store.SessionRepo (SQLite, PostgreSQL or in-memory) to
// the Store interface.
type SQLStore struct {
	repo store.SessionRepo
}

// NewSQLStore wraps repo.
func NewSQLStore(repo store.SessionRepo) *SQLStore {
	return &SQLStore{repo: repo}
}

func (s *SQLStore) Load(ctx context.Context, conversationID string) (*models.Session, error) {
	sess, err := s.repo.LoadSession(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *SQLStore) Save(ctx context.Context, sess *models.Session) error {
	sess.UpdatedAt = time.Now()
	return s.repo.SaveSession(ctx, sess)
}

func (s *SQLStore) Delete(ctx context.Context, conversationID string) error {
	return s.repo.DeleteSession(ctx, conversationID)
}
