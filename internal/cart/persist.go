package cart

import (
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Результаты восстановления корзины для метрик.
const (
	RestoreEmpty     = "empty"
	RestoreRestored  = "restored"
	RestoreMalformed = "malformed"
	RestoreFailed    = "failed"
)

// Стадии сбоев хранилища.
const (
	StageLoad   = "load"
	StageSave   = "save"
	StageEncode = "encode"
)

// EncodeLines сериализует позиции в формат локального хранилища.
func EncodeLines(items []domain.LineItem) ([]byte, error) {
	lines := make([]domain.PersistedLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.PersistedLine{
			ProductID: item.Product.ID,
			Quantity:  item.Quantity,
		})
	}
	payload, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("encode cart lines: %w", err)
	}
	return payload, nil
}

// DecodeLines разбирает сохранённый payload без проверки ссылок на каталог.
func DecodeLines(payload []byte) ([]domain.PersistedLine, error) {
	var lines []domain.PersistedLine
	if err := json.Unmarshal(payload, &lines); err != nil {
		return nil, fmt.Errorf("decode cart lines: %w", err)
	}
	return lines, nil
}

// ResolveLines сопоставляет сохранённые строки с каталогом.
// Неизвестные товары и количества вне 1..MaxLineQuantity отбрасываются,
// повторы одного товара объединяются в первой позиции не выше MaxLineQuantity.
func ResolveLines(catalog domain.Catalog, lines []domain.PersistedLine) (items []domain.LineItem, dropped int) {
	index := make(map[string]int, len(lines))
	for _, line := range lines {
		if !domain.ValidLineQuantity(line.Quantity) {
			dropped++
			continue
		}
		product, ok := catalog.GetProductByID(line.ProductID)
		if !ok {
			dropped++
			continue
		}
		if idx, seen := index[product.ID]; seen {
			items[idx].Quantity = min(items[idx].Quantity+line.Quantity, domain.MaxLineQuantity)
			continue
		}
		index[product.ID] = len(items)
		items = append(items, domain.LineItem{Product: product, Quantity: line.Quantity})
	}
	return items, dropped
}

func (s *Store) restore() []domain.LineItem {
	if s.storage == nil || s.catalog == nil {
		return nil
	}

	payload, err := s.storage.Load(s.key)
	if err != nil {
		if errors.Is(err, domain.ErrCartStateNotFound) {
			s.recordRestore(RestoreEmpty)
			return nil
		}
		s.logger.WithError(err).Warn("failed to load cart, starting empty")
		s.recordFailure(StageLoad)
		s.recordRestore(RestoreFailed)
		return nil
	}

	lines, err := DecodeLines(payload)
	if err != nil {
		s.logger.WithError(err).Warn("malformed cart payload, starting empty")
		s.recordRestore(RestoreMalformed)
		return nil
	}

	items, dropped := ResolveLines(s.catalog, lines)
	if dropped > 0 {
		s.logger.WithField("dropped_lines", dropped).Info("dropped invalid cart lines on restore")
	}
	s.recordRestore(RestoreRestored)
	return items
}

func (s *Store) persistLocked() {
	if s.storage == nil {
		return
	}

	payload, err := EncodeLines(s.items)
	if err != nil {
		s.logger.WithError(err).Error("failed to encode cart")
		s.recordFailure(StageEncode)
		return
	}
	if err := s.storage.Save(s.key, payload); err != nil {
		s.logger.WithFields(log.Fields{
			"payload_bytes": len(payload),
		}).WithError(err).Warn("failed to persist cart")
		s.recordFailure(StageSave)
	}
}

func (s *Store) recordFailure(stage string) {
	if s.recorder != nil {
		s.recorder.RecordCartPersistFailure(stage)
	}
}

func (s *Store) recordRestore(result string) {
	if s.recorder != nil {
		s.recorder.RecordCartRestored(result)
	}
}
