package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/alextreichler/luxora/internal/models"
)

// ProductFilter narrows and orders the admin product listing.
type ProductFilter struct {
	Search     string // Substring of name or description, case-insensitive
	CategoryID int64  // 0 means any category
	Sort       string // id, name or price
	Order      string // asc or desc
	Limit      int    // 0 means no limit
	Offset     int
}

var sortColumns = map[string]string{"id": "p.id", "name": "p.name", "price": "p.price"}

// OrderBy returns the ORDER BY clause. Unknown sort tokens fall back to id descending.
func (f ProductFilter) OrderBy() string {
	col, ok := sortColumns[strings.ToLower(f.Sort)]
	order := strings.ToUpper(f.Order)
	if !ok || (order != "ASC" && order != "DESC") {
		return "p.id DESC"
	}
	return col + " " + order
}

func (f ProductFilter) where() (string, []any) {
	var clauses []string
	var args []any
	if q := strings.TrimSpace(f.Search); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		clauses = append(clauses, "(LOWER(p.name) LIKE ? OR LOWER(p.description) LIKE ?)")
		args = append(args, like, like)
	}
	if f.CategoryID > 0 {
		clauses = append(clauses, "p.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

const productColumns = `p.id, p.name, p.price, p.description, p.category_id, COALESCE(c.name, '') AS category_name, p.image, p.created_at`

func scanProduct(row interface{ Scan(...any) error }) (*models.Product, error) {
	var p models.Product
	var categoryID sql.NullInt64
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Description, &categoryID, &p.CategoryName, &p.Image, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.CategoryID = int64Ptr(categoryID)
	return &p, nil
}

// ListProducts returns the products matching f and the total number of matches.
func (s *Store) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int, error) {
	where, args := f.where()

	var total int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM products p`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := `SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id` + where + `
		ORDER BY ` + f.OrderBy()
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, max(f.Offset, 0))
	}

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

// GetProductByID returns the product with its category name and images.
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON p.category_id = c.id
		WHERE p.id = ?`
	p, err := scanProduct(s.queryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}

	images, err := s.ListProductImages(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Images = images
	return p, nil
}

func (s *Store) ListProductImages(ctx context.Context, productID int64) ([]models.ProductImage, error) {
	rows, err := s.query(ctx, `SELECT id, product_id, path, is_primary FROM product_images
		WHERE product_id = ? ORDER BY is_primary DESC, id ASC`, productID)
	if err != nil {
		return nil, fmt.Errorf("list product images: %w", err)
	}
	defer rows.Close()

	var images []models.ProductImage
	for rows.Next() {
		var img models.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.Path, &img.IsPrimary); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// CreateProduct inserts p and its images in one transaction. The first image
// becomes primary and is mirrored into products.image.
func (s *Store) CreateProduct(ctx context.Context, p *models.Product, imagePaths []string) error {
	if len(imagePaths) > 0 {
		p.Image = imagePaths[0]
	}
	p.CreatedAt = now()
	return s.inTx(ctx, func(t tx) error {
		err := t.queryRow(ctx, `
			INSERT INTO products (name, price, description, image, category_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id`,
			p.Name, p.Price, p.Description, p.Image, nullInt64(p.CategoryID), p.CreatedAt,
		).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		images, err := insertImages(ctx, t, p.ID, imagePaths)
		if err != nil {
			return err
		}
		p.Images = images
		return nil
	})
}

// UpdateProduct overwrites the editable fields of p. New images are appended,
// the first of them becomes primary and earlier images are demoted. Without new
// images the current primary image is kept.
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product, newImagePaths []string) error {
	return s.inTx(ctx, func(t tx) error {
		query := `UPDATE products SET name = ?, price = ?, description = ?, category_id = ? WHERE id = ?`
		args := []any{p.Name, p.Price, p.Description, nullInt64(p.CategoryID), p.ID}
		if len(newImagePaths) > 0 {
			p.Image = newImagePaths[0]
			query = `UPDATE products SET name = ?, price = ?, description = ?, category_id = ?, image = ? WHERE id = ?`
			args = []any{p.Name, p.Price, p.Description, nullInt64(p.CategoryID), p.Image, p.ID}
		}

		res, err := t.exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		if len(newImagePaths) == 0 {
			return nil
		}
		if _, err := t.exec(ctx, `UPDATE product_images SET is_primary = ? WHERE product_id = ?`, false, p.ID); err != nil {
			return fmt.Errorf("demote product images: %w", err)
		}
		_, err = insertImages(ctx, t, p.ID, newImagePaths)
		return err
	})
}

func insertImages(ctx context.Context, t tx, productID int64, paths []string) ([]models.ProductImage, error) {
	images := make([]models.ProductImage, 0, len(paths))
	for i, path := range paths {
		img := models.ProductImage{ProductID: productID, Path: path, IsPrimary: i == 0}
		err := t.queryRow(ctx, `INSERT INTO product_images (product_id, path, is_primary) VALUES (?, ?, ?) RETURNING id`,
			productID, path, img.IsPrimary).Scan(&img.ID)
		if err != nil {
			return nil, fmt.Errorf("insert product image: %w", err)
		}
		images = append(images, img)
	}
	return images, nil
}

// DeleteProduct removes the product and its images. Ledger rows keep their
// product name snapshot and lose the reference.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
