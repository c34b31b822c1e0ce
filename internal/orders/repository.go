package orders

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/stockflow/stockflow/internal/domain"
)

// OrderRepository owns the order ledger: the linked writes of placement and
// the compensating writes of cancellation, each inside a single transaction.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Place writes the order header, its lines, and the per-line stock
// decrements as one atomic unit. The decrement is conditional on remaining
// stock, so a concurrent placement that would drive quantity negative fails
// here and rolls back everything.
func (r *OrderRepository) Place(ctx context.Context, validated *ValidatedOrder) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	order := &domain.Order{
		ID:        uuid.New().String(),
		CompanyID: validated.CompanyID,
		Total:     validated.Total,
		Status:    domain.OrderStatusConfirmed,
		CreatedAt: time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, company_id, status, total_amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, order.ID, order.CompanyID, order.Status, order.Total, order.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, line := range validated.Lines {
		line.ID = uuid.New().String()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)
		`, line.ID, order.ID, line.ProductID, line.Quantity, line.UnitPrice)
		if err != nil {
			return nil, err
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE products
			SET quantity = quantity - $2, last_updated = NOW()
			WHERE id = $1 AND quantity >= $2
		`, line.ProductID, line.Quantity)
		if err != nil {
			return nil, err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, fmt.Errorf("%w: product %s", ErrInsufficientStock, line.ProductID)
		}

		order.Lines = append(order.Lines, line)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return order, nil
}

// Cancel restores stock from the persisted lines and removes the order as
// one atomic unit. It always works off current database state, never the
// original request payload.
func (r *OrderRepository) Cancel(ctx context.Context, orderID string) (*domain.Order, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	order := &domain.Order{}
	err = tx.QueryRowContext(ctx, `
		SELECT id, company_id, status, total_amount, created_at
		FROM orders
		WHERE id = $1
	`, orderID).Scan(&order.ID, &order.CompanyID, &order.Status, &order.Total, &order.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return nil, 0, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, product_id, quantity, unit_price
		FROM order_items
		WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ID, &line.ProductID, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, 0, err
		}
		order.Lines = append(order.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, line := range order.Lines {
		result, err := tx.ExecContext(ctx, `
			UPDATE products
			SET quantity = quantity + $2, last_updated = NOW()
			WHERE id = $1
		`, line.ProductID, line.Quantity)
		if err != nil {
			return nil, 0, err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, 0, err
		}
		if affected != 1 {
			return nil, 0, fmt.Errorf("restore stock for product %s: product missing", line.ProductID)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		return nil, 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, orderID); err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, err
	}

	order.Status = domain.OrderStatusCancelled
	return order, len(order.Lines), nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, company_id, status, total_amount, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.CompanyID, &order.Status, &order.Total, &order.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, quantity, unit_price
		FROM order_items
		WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ID, &line.ProductID, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, err
		}
		order.Lines = append(order.Lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, company_id, status, total_amount, created_at
		FROM orders
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.CompanyID, &order.Status, &order.Total, &order.CreatedAt); err != nil {
			return nil, err
		}
		order.Lines = []domain.OrderLine{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	lineRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, id, product_id, quantity, unit_price
		FROM order_items
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = lineRows.Close() }()

	for lineRows.Next() {
		var orderID string
		var line domain.OrderLine
		if err := lineRows.Scan(&orderID, &line.ID, &line.ProductID, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Lines = append(order.Lines, line)
	}

	if err := lineRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}
