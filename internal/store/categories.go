package store

import (
	"context"
	"fmt"

	"github.com/alextreichler/luxora/internal/models"
)

func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	err := s.queryRow(ctx, `INSERT INTO categories (name, description) VALUES (?, ?) RETURNING id`,
		c.Name, c.Description).Scan(&c.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("category %q: %w", c.Name, ErrDuplicate)
	}
	return err
}

// ListCategories returns all categories by name with their product counts.
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.query(ctx, `
		SELECT c.id, c.name, c.description, COUNT(p.id)
		FROM categories c
		LEFT JOIN products p ON p.category_id = c.id
		GROUP BY c.id, c.name, c.description
		ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.ProductCount); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	var c models.Category
	err := s.queryRow(ctx, `SELECT id, name, description FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Description)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// DeleteCategory removes an unused category. It fails with ErrCategoryInUse
// while any product references it.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(t tx) error {
		var count int
		if err := t.queryRow(ctx, `SELECT COUNT(*) FROM products WHERE category_id = ?`, id).Scan(&count); err != nil {
			return fmt.Errorf("count category products: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("category %d has %d products: %w", id, count, ErrCategoryInUse)
		}

		res, err := t.exec(ctx, `DELETE FROM categories WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
