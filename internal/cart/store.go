// Package cart содержит хранилище корзины: единственный источник правды о
// позициях и видимости панели корзины для одной сессии.
package cart

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// DefaultKey — ключ локального хранилища для корзины без сессии.
const DefaultKey = "cart"

// Операции корзины для метрик и логов.
const (
	OperationAdd    = "add"
	OperationRemove = "remove"
	OperationUpdate = "update"
	OperationClear  = "clear"
	OperationOpen   = "set_open"
)

// Recorder принимает метрики операций корзины. Реализуется пакетом metrics.
type Recorder interface {
	RecordCartOperation(operation string)
	RecordCartPersistFailure(stage string)
	RecordCartRestored(result string)
}

// Snapshot — согласованный срез состояния корзины для наблюдателей и API.
type Snapshot struct {
	Items      []domain.LineItem
	TotalItems int
	Subtotal   int64
	IsOpen     bool
}

// Observer вызывается синхронно после каждого изменения состояния.
type Observer func(Snapshot)

// Option настраивает Store.
type Option func(*Store)

// WithLogger задаёт logger для корзины.
func WithLogger(logger *log.Entry) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder задаёт приёмник метрик.
func WithRecorder(recorder Recorder) Option {
	return func(s *Store) {
		s.recorder = recorder
	}
}

// WithObserver подписывает наблюдателя сразу при создании корзины.
func WithObserver(observer Observer) Option {
	return func(s *Store) {
		if observer != nil {
			s.subscribeLocked(observer)
		}
	}
}

// Store хранит позиции корзины и флаг открытой панели.
// Операции сериализуются мьютексом; наблюдатели вызываются вне блокировки.
type Store struct {
	mu       sync.Mutex
	catalog  domain.Catalog
	storage  domain.CartStorage
	key      string
	logger   *log.Entry
	recorder Recorder

	items  []domain.LineItem
	isOpen bool

	observers      map[uint64]Observer
	nextObserverID uint64
}

// NewStore создаёт корзину и один раз восстанавливает её из storage по key.
// Отсутствующие или повреждённые данные дают пустую корзину.
func NewStore(catalog domain.Catalog, storage domain.CartStorage, key string, opts ...Option) *Store {
	if key == "" {
		key = DefaultKey
	}
	s := &Store{
		catalog:   catalog,
		storage:   storage,
		key:       key,
		logger:    log.WithField("component", "cart-store"),
		observers: make(map[uint64]Observer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithField("cart_key", key)
	s.items = s.restore()
	return s
}

// Key возвращает ключ локального хранилища корзины.
func (s *Store) Key() string {
	return s.key
}

// AddToCart увеличивает количество существующей позиции или добавляет новую в конец.
// Если итоговое количество позиции превысит domain.MaxLineQuantity, корзина не меняется.
func (s *Store) AddToCart(product domain.Product, quantity int) error {
	if product.ID == "" {
		return domain.ErrProductRequired
	}
	if !domain.ValidLineQuantity(quantity) {
		return quantityError(quantity)
	}

	var err error
	s.mutate(OperationAdd, true, func() bool {
		idx := s.indexLocked(product.ID)
		if idx < 0 {
			s.items = append(s.items, domain.LineItem{Product: product, Quantity: quantity})
			return true
		}
		total := s.items[idx].Quantity + quantity
		if total > domain.MaxLineQuantity {
			err = quantityError(total)
			return false
		}
		s.items[idx].Quantity = total
		return true
	})
	return err
}

// RemoveFromCart удаляет позицию; отсутствие позиции не ошибка.
func (s *Store) RemoveFromCart(productID string) {
	s.mutate(OperationRemove, true, func() bool {
		idx := s.indexLocked(productID)
		if idx < 0 {
			return false
		}
		s.items = append(s.items[:idx], s.items[idx+1:]...)
		return true
	})
}

// UpdateQuantity задаёт количество позиции. quantity <= 0 удаляет позицию,
// отсутствующий productID оставляет корзину без изменений.
// Количество больше domain.MaxLineQuantity отклоняется.
func (s *Store) UpdateQuantity(productID string, quantity int) error {
	if quantity > domain.MaxLineQuantity {
		return quantityError(quantity)
	}
	s.mutate(OperationUpdate, true, func() bool {
		idx := s.indexLocked(productID)
		if idx < 0 {
			return false
		}
		if quantity <= 0 {
			s.items = append(s.items[:idx], s.items[idx+1:]...)
			return true
		}
		if s.items[idx].Quantity == quantity {
			return false
		}
		s.items[idx].Quantity = quantity
		return true
	})
	return nil
}

// RemoveOrdered вычитает оформленные позиции. Единицы, добавленные после
// снятия копии для заказа, остаются в корзине.
func (s *Store) RemoveOrdered(ordered []domain.LineItem) {
	s.mutate(OperationClear, true, func() bool {
		changed := false
		for _, line := range ordered {
			idx := s.indexLocked(line.Product.ID)
			if idx < 0 {
				continue
			}
			changed = true
			if left := s.items[idx].Quantity - line.Quantity; left > 0 {
				s.items[idx].Quantity = left
				continue
			}
			s.items = append(s.items[:idx], s.items[idx+1:]...)
		}
		return changed
	})
}

func quantityError(quantity int) error {
	return fmt.Errorf("%w: %d not in 1..%d", domain.ErrQuantityInvalid, quantity, domain.MaxLineQuantity)
}

// Touch пересохраняет непустую корзину без уведомления наблюдателей.
// Обновляет время записи в storage для сессий, которые только читают корзину.
func (s *Store) Touch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return false
	}
	s.persistLocked()
	return true
}

// ClearCart очищает позиции и всегда сохраняет пустое состояние. Флаг панели не меняется.
func (s *Store) ClearCart() {
	s.mutate(OperationClear, true, func() bool {
		s.items = nil
		return true
	})
}

// SetIsCartOpen меняет видимость панели корзины. Флаг не сохраняется в storage.
func (s *Store) SetIsCartOpen(open bool) {
	s.mutate(OperationOpen, false, func() bool {
		if s.isOpen == open {
			return false
		}
		s.isOpen = open
		return true
	})
}

// Items возвращает копию позиций в порядке добавления.
func (s *Store) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemsLocked()
}

// TotalItems — сумма количеств по всем позициям.
func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.TotalItems(s.items)
}

// Subtotal — сумма цена × количество по всем позициям, в центах.
func (s *Store) Subtotal() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Subtotal(s.items)
}

// IsOpen сообщает, открыта ли панель корзины.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isOpen
}

// Snapshot возвращает позиции и агрегаты, посчитанные под одной блокировкой.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe регистрирует наблюдателя и возвращает функцию отписки.
func (s *Store) Subscribe(observer Observer) func() {
	if observer == nil {
		return func() {}
	}

	s.mu.Lock()
	id := s.subscribeLocked(observer)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) subscribeLocked(observer Observer) uint64 {
	s.nextObserverID++
	id := s.nextObserverID
	s.observers[id] = observer
	return id
}

// mutate применяет изменение под блокировкой, сохраняет состояние (если persist)
// и уведомляет наблюдателей после снятия блокировки.
func (s *Store) mutate(operation string, persist bool, apply func() bool) {
	s.mu.Lock()
	if !apply() {
		s.mu.Unlock()
		return
	}
	if persist {
		s.persistLocked()
	}
	snapshot := s.snapshotLocked()
	observers := make([]Observer, 0, len(s.observers))
	for _, id := range s.sortedObserverIDsLocked() {
		observers = append(observers, s.observers[id])
	}
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.RecordCartOperation(operation)
	}
	s.logger.WithFields(log.Fields{
		"operation":   operation,
		"total_items": snapshot.TotalItems,
	}).Debug("cart changed")

	for _, observer := range observers {
		observer(snapshot)
	}
}

func (s *Store) indexLocked(productID string) int {
	for i, item := range s.items {
		if item.Product.ID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) itemsLocked() []domain.LineItem {
	result := make([]domain.LineItem, len(s.items))
	copy(result, s.items)
	return result
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Items:      s.itemsLocked(),
		TotalItems: domain.TotalItems(s.items),
		Subtotal:   domain.Subtotal(s.items),
		IsOpen:     s.isOpen,
	}
}

// sortedObserverIDsLocked сохраняет порядок подписки при уведомлении.
func (s *Store) sortedObserverIDsLocked() []uint64 {
	ids := make([]uint64, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	return ids
}
