package session

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/BTreeMap/DealerPipe/internal/models"
)

// DefaultCacheSize is the number of sessions kept by a CachedStore.
const DefaultCacheSize = 1024

// Compile-time check that CachedStore implements Store.
var _ Store = (*CachedStore)(nil)

// CachedStore is a read-through, write-through LRU in front of another Store.
// It holds clones so cached entries never alias a caller's session.
type CachedStore struct {
	next  Store
	cache *lru.Cache[string, *models.Session]
}

// NewCachedStore wraps next with an LRU of the given size.
func NewCachedStore(next Store, size int) (*CachedStore, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *models.Session](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &CachedStore{next: next, cache: cache}, nil
}

func (c *CachedStore) Load(ctx context.Context, conversationID string) (*models.Session, error) {
	if s, ok := c.cache.Get(conversationID); ok {
		return s.Clone(), nil
	}
	s, err := c.next.Load(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	c.cache.Add(conversationID, s.Clone())
	return s, nil
}

func (c *CachedStore) Save(ctx context.Context, s *models.Session) error {
	if err := c.next.Save(ctx, s); err != nil {
		c.cache.Remove(s.ConversationID)
		return err
	}
	c.cache.Add(s.ConversationID, s.Clone())
	return nil
}

func (c *CachedStore) Delete(ctx context.Context, conversationID string) error {
	c.cache.Remove(conversationID)
	if err := c.next.Delete(ctx, conversationID); err != nil {
		slog.Warn("CachedStore.Delete: backing store delete failed", "error", err, "conversationID", conversationID)
		return err
	}
	return nil
}

// Len reports the number of cached sessions.
func (c *CachedStore) Len() int { return c.cache.Len() }
