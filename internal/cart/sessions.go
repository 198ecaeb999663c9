package cart

import (
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// KeyFor возвращает ключ хранилища корзины для сессии.
func KeyFor(sessionID string) string {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return DefaultKey
	}
	return DefaultKey + ":" + sessionID
}

type sessionEntry struct {
	store    *Store
	lastSeen time.Time
}

// Sessions — реестр корзин по идентификатору сессии.
// Корзина создаётся и восстанавливается при первом обращении.
type Sessions struct {
	catalog domain.Catalog
	storage domain.CartStorage
	opts    []Option
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*sessionEntry
}

// NewSessions создаёт реестр; opts применяются к каждой новой корзине.
func NewSessions(catalog domain.Catalog, storage domain.CartStorage, opts ...Option) *Sessions {
	return &Sessions{
		catalog: catalog,
		storage: storage,
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
		entries: make(map[string]*sessionEntry),
	}
}

// Get возвращает корзину сессии и обновляет время последнего обращения.
func (s *Sessions) Get(sessionID string) (*Store, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, domain.ErrSessionRequired
	}

	s.mu.Lock()
	if entry, ok := s.entries[sessionID]; ok {
		entry.lastSeen = s.now()
		s.mu.Unlock()
		return entry.store, nil
	}
	s.mu.Unlock()

	// Восстановление ходит в storage, поэтому выполняется без блокировки реестра.
	store := NewStore(s.catalog, s.storage, KeyFor(sessionID), s.opts...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[sessionID]; ok {
		entry.lastSeen = s.now()
		return entry.store, nil
	}
	s.entries[sessionID] = &sessionEntry{store: store, lastSeen: s.now()}
	return store, nil
}

// Evict выгружает из памяти корзины, к которым не обращались с idleBefore.
// Сохранённые данные остаются в storage.
func (s *Sessions) Evict(idleBefore time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, entry := range s.entries {
		if entry.lastSeen.Before(idleBefore) {
			delete(s.entries, id)
			evicted++
		}
	}
	return evicted
}

// TouchActive пересохраняет корзины, к которым обращались начиная с seenSince.
// Возвращает число пересохранённых непустых корзин.
func (s *Sessions) TouchActive(seenSince time.Time) int {
	s.mu.Lock()
	active := make([]*Store, 0, len(s.entries))
	for _, entry := range s.entries {
		if !entry.lastSeen.Before(seenSince) {
			active = append(active, entry.store)
		}
	}
	s.mu.Unlock()

	touched := 0
	for _, store := range active {
		if store.Touch() {
			touched++
		}
	}
	return touched
}

// Len возвращает число корзин в памяти.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
