package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const opTimeout = 5 * time.Second

// DBPool — методы *pgxpool.Pool, которые использует хранилище корзин.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

const (
	loadCartSQL   = `SELECT payload FROM cart_states WHERE key = $1`
	saveCartSQL   = `INSERT INTO cart_states (key, payload, updated_at) VALUES ($1, $2, $3) ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`
	deleteCartSQL = `DELETE FROM cart_states WHERE key = $1`
	expireCartSQL = `DELETE FROM cart_states WHERE key IN (SELECT key FROM cart_states WHERE updated_at < $1 ORDER BY updated_at LIMIT NULLIF($2, 0))`
)

type cartStorage struct {
	pool DBPool
	now  func() time.Time
}

// NewCartStorage создаёт PostgreSQL-реализацию CartStorage поверх пула pgx.
func NewCartStorage(store *Store) domain.CartStorage {
	return NewCartStorageWithPool(store.Pool())
}

// NewCartStorageWithPool создаёт хранилище поверх произвольного DBPool.
func NewCartStorageWithPool(pool DBPool) domain.CartStorage {
	return &cartStorage{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *cartStorage) Load(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var payload []byte
	if err := s.pool.QueryRow(ctx, loadCartSQL, strings.TrimSpace(key)).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCartStateNotFound
		}
		return nil, fmt.Errorf("select cart state: %w", err)
	}
	return payload, nil
}

func (s *cartStorage) Save(key string, payload []byte) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ErrSessionRequired
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, saveCartSQL, key, payload, s.now()); err != nil {
		return fmt.Errorf("upsert cart state: %w", err)
	}
	return nil
}

func (s *cartStorage) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, deleteCartSQL, strings.TrimSpace(key)); err != nil {
		return fmt.Errorf("delete cart state: %w", err)
	}
	return nil
}

func (s *cartStorage) DeleteExpired(before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = s.now()
	}
	if limit < 0 {
		limit = 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, expireCartSQL, before, limit)
	if err != nil {
		return 0, fmt.Errorf("delete expired cart states: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

var _ domain.CartStorage = (*cartStorage)(nil)
