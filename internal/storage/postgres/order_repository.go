package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, session_id, status, customer, subtotal_minor, shipping_minor, total_minor, currency, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	insertLineSQL  = `INSERT INTO order_lines (order_id, position, product_id, name, qty, price_minor) VALUES ($1, $2, $3, $4, $5, $6)`
	selectOrderSQL = `SELECT session_id, status, customer, subtotal_minor, shipping_minor, total_minor, currency, created_at FROM orders WHERE id = $1`
	selectLinesSQL = `SELECT product_id, name, qty, price_minor FROM order_lines WHERE order_id = $1 ORDER BY position`

	uniqueViolationCode = "23505"
)

// OrderPool — методы пула pgx, нужные репозиторию заказов.
type OrderPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type orderRepository struct {
	pool OrderPool
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return NewOrderRepositoryWithPool(store.Pool())
}

// NewOrderRepositoryWithPool создаёт репозиторий поверх произвольного OrderPool.
func NewOrderRepositoryWithPool(pool OrderPool) domain.OrderRepository {
	return &orderRepository{pool: pool}
}

// Create пишет заказ и его строки в одной транзакции.
func (r *orderRepository) Create(order domain.Order) (err error) {
	if order.ID == "" {
		return domain.ErrOrderIDRequired
	}
	customer, err := json.Marshal(order.Customer)
	if err != nil {
		return fmt.Errorf("encode order customer: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, insertOrderSQL,
		order.ID, order.SessionID, string(order.Status), customer,
		order.SubtotalMinor, order.ShippingMinor, order.TotalMinor, order.Currency, order.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderAlreadyExists
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for pos, line := range order.Lines {
		if _, err = tx.Exec(ctx, insertLineSQL, order.ID, pos, line.ProductID, line.Name, line.Qty, line.PriceMinor); err != nil {
			return fmt.Errorf("insert order line %d: %w", pos, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

// Get читает заказ со строками в порядке оформления.
func (r *orderRepository) Get(id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	order := domain.Order{ID: id}
	var (
		status   string
		customer []byte
	)
	err := r.pool.QueryRow(ctx, selectOrderSQL, id).Scan(
		&order.SessionID, &status, &customer,
		&order.SubtotalMinor, &order.ShippingMinor, &order.TotalMinor, &order.Currency, &order.CreatedAt,
	)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return domain.Order{}, domain.ErrOrderNotFound
	case err != nil:
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	order.Status = domain.OrderStatus(status)
	order.CreatedAt = order.CreatedAt.UTC()
	if err := json.Unmarshal(customer, &order.Customer); err != nil {
		return domain.Order{}, fmt.Errorf("decode order customer: %w", err)
	}

	rows, err := r.pool.Query(ctx, selectLinesSQL, id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("load order lines: %w", err)
	}
	order.Lines, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OrderLine, error) {
		var line domain.OrderLine
		err := row.Scan(&line.ProductID, &line.Name, &line.Qty, &line.PriceMinor)
		return line, err
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("scan order lines: %w", err)
	}
	return order, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

var _ domain.OrderRepository = (*orderRepository)(nil)
