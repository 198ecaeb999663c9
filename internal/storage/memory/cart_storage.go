package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type cartRecord struct {
	payload   []byte
	updatedAt time.Time
}

type cartStorageInMemory struct {
	mu    sync.RWMutex
	items map[string]cartRecord
	now   func() time.Time
}

// NewCartStorage создаёт in-memory реализацию CartStorage.
func NewCartStorage() domain.CartStorage {
	return newCartStorage(func() time.Time { return time.Now().UTC() })
}

func newCartStorage(now func() time.Time) *cartStorageInMemory {
	return &cartStorageInMemory{
		items: make(map[string]cartRecord),
		now:   now,
	}
}

func (s *cartStorageInMemory) Load(key string) ([]byte, error) {
	key = strings.TrimSpace(key)

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.items[key]
	if !ok {
		return nil, domain.ErrCartStateNotFound
	}
	return append([]byte(nil), record.payload...), nil
}

func (s *cartStorageInMemory) Save(key string, payload []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ErrSessionRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = cartRecord{
		payload:   append([]byte(nil), payload...),
		updatedAt: s.now(),
	}
	return nil
}

func (s *cartStorageInMemory) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, strings.TrimSpace(key))
	return nil
}

func (s *cartStorageInMemory) DeleteExpired(before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, record := range s.items {
		if !record.updatedAt.Before(before) {
			continue
		}

		delete(s.items, key)
		removed++
		if limit > 0 && removed >= limit {
			break
		}
	}

	return removed, nil
}

var _ domain.CartStorage = (*cartStorageInMemory)(nil)
