package store

import (
	"context"

	"github.com/shopspring/decimal"
)

type DashboardStats struct {
	TotalProducts      int
	TotalCategories    int
	TotalOrders        int
	TotalRequests      int
	TotalUsers         int
	Revenue            decimal.Decimal // Sum of delivered order totals
	OrdersByStatus     map[string]int
	RequestsByStatus   map[string]int
	ProductOrderCounts []ProductOrderCount
}

type ProductOrderCount struct {
	ProductID  int64
	Name       string
	OrderCount int
}

func (s *Store) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{
		OrdersByStatus:   make(map[string]int),
		RequestsByStatus: make(map[string]int),
	}

	// 1. Totals
	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM products", &stats.TotalProducts},
		{"SELECT COUNT(*) FROM categories", &stats.TotalCategories},
		{"SELECT COUNT(*) FROM orders", &stats.TotalOrders},
		{"SELECT COUNT(*) FROM product_requests", &stats.TotalRequests},
		{"SELECT COUNT(*) FROM users", &stats.TotalUsers},
	}
	for _, c := range counts {
		if err := s.queryRow(ctx, c.query).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	var revenue decimal.NullDecimal
	if err := s.queryRow(ctx, "SELECT SUM(total_price) FROM orders WHERE status = 'delivered'").Scan(&revenue); err != nil {
		return nil, err
	}
	stats.Revenue = revenue.Decimal

	// 2. Ledger by status
	if err := s.countByStatus(ctx, "SELECT status, COUNT(*) FROM orders GROUP BY status", stats.OrdersByStatus); err != nil {
		return nil, err
	}
	if err := s.countByStatus(ctx, "SELECT status, COUNT(*) FROM product_requests GROUP BY status", stats.RequestsByStatus); err != nil {
		return nil, err
	}

	// 3. Orders per product
	rows, err := s.query(ctx, `
		SELECT p.id, p.name, COUNT(o.id) AS order_count
		FROM products p
		LEFT JOIN orders o ON p.id = o.product_id
		GROUP BY p.id, p.name
		ORDER BY order_count DESC, p.id DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var poc ProductOrderCount
		if err := rows.Scan(&poc.ProductID, &poc.Name, &poc.OrderCount); err != nil {
			return nil, err
		}
		stats.ProductOrderCounts = append(stats.ProductOrderCounts, poc)
	}

	return stats, rows.Err()
}

func (s *Store) countByStatus(ctx context.Context, query string, into map[string]int) error {
	rows, err := s.query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return err
		}
		into[status] = count
	}
	return rows.Err()
}
