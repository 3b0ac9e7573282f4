// Package ordering turns customer submissions into ledger records.
//
// Every submission follows the same steps: the product must exist, the
// customer fields must validate, the total is computed once as price times
// quantity, and the records are written atomically.
package ordering

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alextreichler/luxora/internal/apperrors"
	"github.com/alextreichler/luxora/internal/models"
	"github.com/alextreichler/luxora/internal/store"
)

// Products resolves the product a submission refers to.
type Products interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
}

// Ledger persists orders and product requests.
type Ledger interface {
	CreateOrder(ctx context.Context, o *models.Order, mirror *models.ProductRequest) error
	CreateProductRequest(ctx context.Context, r *models.ProductRequest) error
	UpdateOrderStatus(ctx context.Context, id int64, status string) error
	UpdateProductRequestStatus(ctx context.Context, id int64, status string) error
}

type Service struct {
	Products Products
	Ledger   Ledger
	// RequireAddress makes the shipping address mandatory on orders.
	RequireAddress bool
	// NewRef generates public order references. Defaults to GenerateOrderRef.
	NewRef func() string
}

func NewService(products Products, ledger Ledger, requireAddress bool) *Service {
	return &Service{Products: products, Ledger: ledger, RequireAddress: requireAddress}
}

// Submission is a customer order from the web form.
type Submission struct {
	ProductID int64
	UserID    *int64 // Set when the customer is logged in
	FirstName string
	LastName  string
	Phone     string
	State     string
	Email     string
	Address   string
	Notes     string
	Quantity  int
}

// RequestSubmission is a product request from the JSON API.
type RequestSubmission struct {
	ProductID int64  `json:"product_id"`
	UserName  string `json:"user_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	State     string `json:"state"`
	Address   string `json:"address"`
	Quantity  int    `json:"quantity"`
	Message   string `json:"message"`
}

// refAttempts bounds retries when a generated reference collides.
const refAttempts = 3

// PlaceOrder validates s, computes its total and stores the order together
// with its product request mirror.
func (svc *Service) PlaceOrder(ctx context.Context, s Submission) (*models.Order, error) {
	product, err := svc.product(ctx, s.ProductID)
	if err != nil {
		return nil, err
	}

	s.trim()
	fields := make(map[string]string)
	required(fields, "first_name", s.FirstName, "First name is required.")
	required(fields, "phone", s.Phone, "Phone number is required.")
	required(fields, "state", s.State, "State is required.")
	if svc.RequireAddress {
		required(fields, "address", s.Address, "Shipping address is required.")
	}
	checkEmail(fields, s.Email)
	qty := normalizeQuantity(fields, s.Quantity)
	if len(fields) > 0 {
		return nil, apperrors.Validation("invalid order", fields)
	}

	total := product.Price.Mul(decimal.NewFromInt(int64(qty)))
	order := &models.Order{
		ProductID:   product.ID,
		ProductName: product.Name,
		UserID:      s.UserID,
		FirstName:   s.FirstName,
		LastName:    s.LastName,
		Phone:       s.Phone,
		State:       s.State,
		Email:       s.Email,
		Address:     s.Address,
		Notes:       s.Notes,
		Quantity:    qty,
		UnitPrice:   product.Price,
		TotalPrice:  total,
		Status:      models.OrderPending,
	}

	newRef := svc.NewRef
	if newRef == nil {
		newRef = GenerateOrderRef
	}
	for attempt := 1; ; attempt++ {
		order.Ref = newRef()
		mirror := &models.ProductRequest{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			UserName:    order.FullName(),
			Email:       s.Email,
			Phone:       s.Phone,
			State:       s.State,
			Address:     s.Address,
			Quantity:    qty,
			Message:     "Order " + order.Ref + orderNote(s.Notes),
			TotalPrice:  total,
			Status:      models.RequestOrdered,
		}
		err = svc.Ledger.CreateOrder(ctx, order, mirror)
		if err == nil {
			break
		}
		if errors.Is(err, store.ErrDuplicate) && attempt < refAttempts {
			slog.Warn("Order reference collision, retrying", "ref", order.Ref, "attempt", attempt)
			continue
		}
		slog.Error("Failed to create order", "product_id", product.ID, "error", err)
		return nil, apperrors.Persistence("failed to place order", err)
	}

	slog.Info("Order placed", "order_id", order.ID, "ref", order.Ref, "product_id", product.ID, "total", total.StringFixed(2))
	return order, nil
}

// SubmitRequest validates s, computes its total and stores a pending product request.
func (svc *Service) SubmitRequest(ctx context.Context, s RequestSubmission) (*models.ProductRequest, error) {
	product, err := svc.product(ctx, s.ProductID)
	if err != nil {
		return nil, err
	}

	s.UserName = strings.TrimSpace(s.UserName)
	s.Email = strings.TrimSpace(s.Email)
	s.Phone = strings.TrimSpace(s.Phone)
	s.State = strings.TrimSpace(s.State)
	s.Address = strings.TrimSpace(s.Address)
	s.Message = strings.TrimSpace(s.Message)

	fields := make(map[string]string)
	required(fields, "user_name", s.UserName, "Name is required.")
	required(fields, "phone", s.Phone, "Phone number is required.")
	required(fields, "state", s.State, "State is required.")
	checkEmail(fields, s.Email)
	qty := normalizeQuantity(fields, s.Quantity)
	if len(fields) > 0 {
		return nil, apperrors.Validation("invalid product request", fields)
	}

	req := &models.ProductRequest{
		ProductID:   product.ID,
		ProductName: product.Name,
		UnitPrice:   product.Price,
		UserName:    s.UserName,
		Email:       s.Email,
		Phone:       s.Phone,
		State:       s.State,
		Address:     s.Address,
		Quantity:    qty,
		Message:     s.Message,
		TotalPrice:  product.Price.Mul(decimal.NewFromInt(int64(qty))),
		Status:      models.RequestPending,
	}
	if err := svc.Ledger.CreateProductRequest(ctx, req); err != nil {
		slog.Error("Failed to create product request", "product_id", product.ID, "error", err)
		return nil, apperrors.Persistence("failed to save product request", err)
	}

	slog.Info("Product request created", "request_id", req.ID, "product_id", product.ID)
	return req, nil
}

func (svc *Service) UpdateOrderStatus(ctx context.Context, id int64, status string) error {
	if !models.ValidStatus(status, models.OrderStatuses) {
		return apperrors.Validation("Invalid status. Must be one of: "+strings.Join(models.OrderStatuses, ", "),
			map[string]string{"status": "Invalid order status."})
	}
	if err := svc.Ledger.UpdateOrderStatus(ctx, id, status); err != nil {
		return ledgerError("order", err)
	}
	slog.Info("Order status updated", "order_id", id, "status", status)
	return nil
}

func (svc *Service) UpdateRequestStatus(ctx context.Context, id int64, status string) error {
	if !models.ValidStatus(status, models.RequestStatuses) {
		return apperrors.Validation("Invalid status. Must be one of: "+strings.Join(models.RequestStatuses, ", "),
			map[string]string{"status": "Invalid request status."})
	}
	if err := svc.Ledger.UpdateProductRequestStatus(ctx, id, status); err != nil {
		return ledgerError("product request", err)
	}
	slog.Info("Product request status updated", "request_id", id, "status", status)
	return nil
}

func (svc *Service) product(ctx context.Context, id int64) (*models.Product, error) {
	product, err := svc.Products.GetProductByID(ctx, id)
	if err != nil {
		return nil, ledgerError("product", err)
	}
	return product, nil
}

func ledgerError(what string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NotFound(what, err)
	}
	return apperrors.Persistence("failed to update "+what, err)
}

// ParseQuantity reads a quantity form value. Empty means 1.
func ParseQuantity(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, nil
	}
	q, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Validation("invalid quantity", map[string]string{"quantity": "Quantity must be a whole number."})
	}
	return q, nil
}

// normalizeQuantity maps 0 to 1 and records negative quantities as invalid.
func normalizeQuantity(fields map[string]string, q int) int {
	switch {
	case q < 0:
		fields["quantity"] = "Quantity must be at least 1."
		return 0
	case q == 0:
		return 1
	default:
		return q
	}
}

func (s *Submission) trim() {
	s.FirstName = strings.TrimSpace(s.FirstName)
	s.LastName = strings.TrimSpace(s.LastName)
	s.Phone = strings.TrimSpace(s.Phone)
	s.State = strings.TrimSpace(s.State)
	s.Email = strings.TrimSpace(s.Email)
	s.Address = strings.TrimSpace(s.Address)
	s.Notes = strings.TrimSpace(s.Notes)
}

func required(fields map[string]string, name, value, msg string) {
	if value == "" {
		fields[name] = msg
	}
}

func checkEmail(fields map[string]string, email string) {
	if email != "" && !models.IsValidEmail(email) {
		fields["email"] = "Please enter a valid email address."
	}
}

func orderNote(notes string) string {
	if notes == "" {
		return ""
	}
	return ": " + notes
}

// GenerateOrderRef returns an 8 character reference without look-alike characters.
func GenerateOrderRef() string {
	const charset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // Removed I, O, 1, 0 to avoid confusion
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "ORD" + strconv.FormatInt(time.Now().Unix()%100000, 10)
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}
