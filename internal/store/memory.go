package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/DealerPipe/internal/models"
)

// Compile-time check that InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)

// InMemoryStore keeps everything in process memory. It backs tests and
// deployments without a database.
type InMemoryStore struct {
	mu         sync.RWMutex
	cars       []models.Car
	nextCarID  int64
	bookings   []models.TestDriveBooking
	valuations map[int64]models.ValuationRequest
	nextValID  int64
	sessions   map[string][]byte
	receipts   []models.Receipt
	inbound    map[string]*DedupRecord
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		valuations: make(map[int64]models.ValuationRequest),
		sessions:   make(map[string][]byte),
		inbound:    make(map[string]*DedupRecord),
	}
}

func (s *InMemoryStore) DistinctValues(_ context.Context, column models.CarColumn, q models.CarQuery) ([]string, error) {
	if !validColumn(column) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedColumn, column)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, c := range s.cars {
		if !q.Matches(c) {
			continue
		}
		var v string
		switch column {
		case models.ColumnType:
			v = c.Type
		case models.ColumnBrand:
			v = c.Brand
		case models.ColumnModel:
			v = c.Model
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *InMemoryStore) SearchCars(_ context.Context, q models.CarQuery) ([]models.Car, error) {
	return s.filterCars(q.Matches, q.Limit), nil
}

func (s *InMemoryStore) FindCarsByName(_ context.Context, term string) ([]models.Car, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	return s.filterCars(func(c models.Car) bool {
		brand, model := strings.ToLower(c.Brand), strings.ToLower(c.Model)
		return strings.Contains(brand+" "+model, term) || strings.Contains(model, term) || strings.Contains(brand, term)
	}, 0), nil
}

func (s *InMemoryStore) FindCarsByBrand(_ context.Context, brand string, limit int) ([]models.Car, error) {
	brand = strings.TrimSpace(brand)
	return s.filterCars(func(c models.Car) bool { return strings.EqualFold(c.Brand, brand) }, limit), nil
}

// filterCars returns matching cars ordered by price then id, as the SQL
// backends do.
func (s *InMemoryStore) filterCars(match func(models.Car) bool, limit int) []models.Car {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Car
	for _, c := range s.cars {
		if match(c) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Price != out[j].Price {
			return out[i].Price < out[j].Price
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *InMemoryStore) UpsertCars(_ context.Context, cars []models.Car) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cars {
		if c.ID == 0 {
			s.nextCarID++
			c.ID = s.nextCarID
			s.cars = append(s.cars, c)
			continue
		}
		if c.ID > s.nextCarID {
			s.nextCarID = c.ID
		}
		replaced := false
		for i := range s.cars {
			if s.cars[i].ID == c.ID {
				s.cars[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			s.cars = append(s.cars, c)
		}
	}
	return nil
}

func (s *InMemoryStore) SaveTestDrive(_ context.Context, b models.TestDriveBooking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	s.bookings = append(s.bookings, b)
	return nil
}

// TestDrives returns the stored bookings.
func (s *InMemoryStore) TestDrives() []models.TestDriveBooking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.TestDriveBooking(nil), s.bookings...)
}

func (s *InMemoryStore) CreateValuation(_ context.Context, v models.ValuationRequest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextValID++
	v.ID = s.nextValID
	if v.Status == "" {
		v.Status = models.ValuationPending
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	s.valuations[v.ID] = v
	return v.ID, nil
}

func (s *InMemoryStore) UpdateValuationStatus(_ context.Context, id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.valuations[id]
	if !ok {
		return fmt.Errorf("valuation %d not found", id)
	}
	v.Status = status
	s.valuations[id] = v
	return nil
}

// Valuation returns a stored valuation request.
func (s *InMemoryStore) Valuation(id int64) (models.ValuationRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.valuations[id]
	return v, ok
}

// Sessions are stored as JSON so callers never share memory with the store.
func (s *InMemoryStore) LoadSession(_ context.Context, conversationID string) (*models.Session, error) {
	s.mu.RLock()
	data, ok := s.sessions[conversationID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", conversationID, err)
	}
	return &sess, nil
}

func (s *InMemoryStore) SaveSession(_ context.Context, sess *models.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ConversationID, err)
	}
	s.mu.Lock()
	s.sessions[sess.ConversationID] = data
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) DeleteSession(_ context.Context, conversationID string) error {
	s.mu.Lock()
	delete(s.sessions, conversationID)
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) AddReceipt(r models.Receipt) error {
	s.mu.Lock()
	s.receipts = append(s.receipts, r)
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) GetReceipts() ([]models.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Receipt(nil), s.receipts...), nil
}

func (s *InMemoryStore) IsDuplicate(messageID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.inbound[messageID]
	return ok, nil
}

func (s *InMemoryStore) RecordInbound(messageID, conversationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inbound[messageID]; ok {
		return false, nil
	}
	s.inbound[messageID] = &DedupRecord{MessageID: messageID, ConversationID: conversationID, ReceivedAt: time.Now()}
	return true, nil
}

func (s *InMemoryStore) MarkProcessed(messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.inbound[messageID]
	if !ok {
		return fmt.Errorf("message %s not recorded", messageID)
	}
	now := time.Now()
	rec.ProcessedAt = &now
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
