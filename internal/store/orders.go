package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alextreichler/luxora/internal/models"
)

const orderColumns = `id, ref, product_id, product_name, user_id, first_name, last_name, phone, state, email, address, notes, quantity, unit_price, total_price, status, created_at`

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {
	var o models.Order
	var productID, userID sql.NullInt64
	err := row.Scan(&o.ID, &o.Ref, &productID, &o.ProductName, &userID, &o.FirstName, &o.LastName,
		&o.Phone, &o.State, &o.Email, &o.Address, &o.Notes, &o.Quantity, &o.UnitPrice, &o.TotalPrice,
		&o.Status, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	o.ProductID = productID.Int64
	o.UserID = int64Ptr(userID)
	return &o, nil
}

// CreateOrder inserts the order and, when mirror is non-nil, its product request
// mirror in a single transaction. Neither row is written if either insert fails.
func (s *Store) CreateOrder(ctx context.Context, o *models.Order, mirror *models.ProductRequest) error {
	o.CreatedAt = now()
	return s.inTx(ctx, func(t tx) error {
		err := t.queryRow(ctx, `
			INSERT INTO orders (ref, product_id, product_name, user_id, first_name, last_name, phone, state, email, address, notes, quantity, unit_price, total_price, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			o.Ref, o.ProductID, o.ProductName, nullInt64(o.UserID), o.FirstName, o.LastName, o.Phone, o.State,
			o.Email, o.Address, o.Notes, o.Quantity, o.UnitPrice, o.TotalPrice, o.Status, o.CreatedAt,
		).Scan(&o.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("order ref %s: %w", o.Ref, ErrDuplicate)
			}
			return fmt.Errorf("insert order: %w", err)
		}
		if mirror == nil {
			return nil
		}
		mirror.CreatedAt = o.CreatedAt
		return insertProductRequest(ctx, t, mirror)
	})
}

func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	o, err := scanOrder(s.queryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return o, nil
}

// ListOrders returns orders newest first. A limit of 0 returns all orders.
func (s *Store) ListOrders(ctx context.Context, limit, offset int) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, max(offset, 0))
	}
	return s.listOrders(ctx, query)
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	return s.listOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY id DESC`, userID)
}

func (s *Store) listOrders(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (s *Store) CountOrders(ctx context.Context) (int, error) {
	var count int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status string) error {
	res, err := s.exec(ctx, `UPDATE orders SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
