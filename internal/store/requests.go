package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alextreichler/luxora/internal/models"
)

func insertProductRequest(ctx context.Context, t tx, r *models.ProductRequest) error {
	err := t.queryRow(ctx, `
		INSERT INTO product_requests (product_id, product_name, unit_price, user_name, email, phone, state, address, quantity, message, total_price, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		r.ProductID, r.ProductName, r.UnitPrice, r.UserName, r.Email, r.Phone, r.State, r.Address,
		r.Quantity, r.Message, r.TotalPrice, r.Status, r.CreatedAt,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("insert product request: %w", err)
	}
	return nil
}

func (s *Store) CreateProductRequest(ctx context.Context, r *models.ProductRequest) error {
	r.CreatedAt = now()
	return s.inTx(ctx, func(t tx) error {
		return insertProductRequest(ctx, t, r)
	})
}

// ListProductRequests returns requests newest first.
func (s *Store) ListProductRequests(ctx context.Context) ([]models.ProductRequest, error) {
	rows, err := s.query(ctx, `
		SELECT id, product_id, product_name, unit_price, user_name, email, phone, state, address, quantity, message, total_price, status, created_at
		FROM product_requests
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list product requests: %w", err)
	}
	defer rows.Close()

	var requests []models.ProductRequest
	for rows.Next() {
		var r models.ProductRequest
		var productID sql.NullInt64
		err := rows.Scan(&r.ID, &productID, &r.ProductName, &r.UnitPrice, &r.UserName, &r.Email, &r.Phone,
			&r.State, &r.Address, &r.Quantity, &r.Message, &r.TotalPrice, &r.Status, &r.CreatedAt)
		if err != nil {
			return nil, err
		}
		r.ProductID = productID.Int64
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func (s *Store) UpdateProductRequestStatus(ctx context.Context, id int64, status string) error {
	res, err := s.exec(ctx, `UPDATE product_requests SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update product request status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
