package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrIllegalTransition  = errors.New("illegal order status transition")
	ErrUnknownOrderStatus = errors.New("unknown order status")
)

const orderCreatedEventType = "order.created"

// CreateOrder commits the order header, every line item and the outbox event
// in one transaction. A reader can never observe a header without its items,
// and an order without its event row cannot exist either.
func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	headerQuery := `INSERT INTO orders (id, customer_id, total_amount, status, created_at, updated_at)
	                VALUES ($1, $2, $3, $4, NOW(), NOW())`
	if _, err := tx.ExecContext(ctx, headerQuery,
		order.ID,
		order.CustomerID,
		order.TotalAmount,
		order.Status,
	); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `INSERT INTO order_items (order_id, product_id, quantity, unit_price)
	              VALUES ($1, $2, $3, $4)`
	for _, item := range order.Items {
		if _, err := tx.ExecContext(ctx, itemQuery,
			order.ID,
			item.ProductID,
			item.Quantity,
			item.UnitPrice,
		); err != nil {
			return fmt.Errorf("insert order item %s: %w", item.ProductID, err)
		}
	}

	payload, err := json.Marshal(map[string]interface{}{
		"order_id":     order.ID,
		"customer_id":  order.CustomerID,
		"items":        order.Items,
		"total_amount": order.TotalAmount,
		"created_at":   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal order event payload: %w", err)
	}

	eventQuery := `INSERT INTO order_events (aggregate_id, event_type, payload, created_at)
	               VALUES ($1, $2, $3, NOW())`
	if _, err := tx.ExecContext(ctx, eventQuery, order.ID, orderCreatedEventType, payload); err != nil {
		return fmt.Errorf("insert order event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order tx: %w", err)
	}
	return nil
}

func (r *Repository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	headerQuery := `SELECT id, customer_id, total_amount, status, created_at, updated_at
	                FROM orders WHERE id = $1`

	var order domain.Order
	err := r.db.QueryRowContext(ctx, headerQuery, id).Scan(
		&order.ID,
		&order.CustomerID,
		&order.TotalAmount,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}

	itemsQuery := `SELECT order_id, product_id, quantity, unit_price
	               FROM order_items WHERE order_id = $1`
	rows, err := r.db.QueryContext(ctx, itemsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return &order, nil
}

func (r *Repository) ListOrdersByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error) {
	query := `SELECT id, customer_id, total_amount, status, created_at, updated_at
	          FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("query orders by customer: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID,
			&order.CustomerID,
			&order.TotalAmount,
			&order.Status,
			&order.CreatedAt,
			&order.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, &order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, nil
}

// UpdateOrderStatus moves an order along the pending -> processing ->
// shipped -> delivered chain (cancellation allowed until shipping). The
// current status is read under lock in the same transaction as the write.
func (r *Repository) UpdateOrderStatus(ctx context.Context, id string, to domain.OrderStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current domain.OrderStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("query order status: %w", err)
	}

	if !domain.CanTransitionTo(current, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, current, to)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`, to, id); err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status tx: %w", err)
	}
	return nil
}
