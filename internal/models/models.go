package models

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ProductCount int    `json:"product_count"` // Filled by listing queries only
}

type ProductImage struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Path      string `json:"path"` // Relative, e.g. "uploads/<uuid>.jpg"
	IsPrimary bool   `json:"is_primary"`
}

type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Description  string          `json:"description"`
	CategoryID   *int64          `json:"category_id,omitempty"`
	CategoryName string          `json:"category_name,omitempty"` // For display convenience
	Image        string          `json:"image"`                   // Primary image path
	Images       []ProductImage  `json:"images,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Order statuses, settable by admins only.
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

var OrderStatuses = []string{OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled}

type Order struct {
	ID          int64           `json:"id"`
	Ref         string          `json:"ref"`        // Public "A7X9..." reference
	ProductID   int64           `json:"product_id"` // 0 once the product has been deleted
	ProductName string          `json:"product_name"`
	UserID      *int64          `json:"user_id,omitempty"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	Phone       string          `json:"phone"`
	State       string          `json:"state"`
	Email       string          `json:"email"`
	Address     string          `json:"address"`
	Notes       string          `json:"notes"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// FullName joins first and last name the way the request mirror stores it.
func (o *Order) FullName() string {
	if o.LastName == "" {
		return o.FirstName
	}
	return o.FirstName + " " + o.LastName
}

// Product request statuses.
const (
	RequestPending   = "pending"
	RequestApproved  = "approved"
	RequestRejected  = "rejected"
	RequestCompleted = "completed"
	RequestOrdered   = "ordered"
)

var RequestStatuses = []string{RequestPending, RequestApproved, RequestRejected, RequestCompleted, RequestOrdered}

type ProductRequest struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	UserName    string          `json:"user_name"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone"`
	State       string          `json:"state"`
	Address     string          `json:"address"`
	Quantity    int             `json:"quantity"`
	Message     string          `json:"message"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Password  string     `json:"-"` // bcrypt hash
	IsAdmin   bool       `json:"is_admin"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Phone     string     `json:"phone"`
	Address   string     `json:"address"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// ValidStatus reports whether status is one of allowed.
func ValidStatus(status string, allowed []string) bool {
	return slices.Contains(allowed, status)
}

// Basic email validation regex
var emailRegex = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

// IsValidEmail reports whether email looks like an address.
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(strings.ToLower(email))
}
