package ordering

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alextreichler/luxora/internal/apperrors"
	"github.com/alextreichler/luxora/internal/models"
	"github.com/alextreichler/luxora/internal/store"
)

type fakeProducts map[int64]*models.Product

func (f fakeProducts) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	p, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, store.ErrNotFound)
	}
	return p, nil
}

type fakeLedger struct {
	orders   []*models.Order
	requests []*models.ProductRequest
	statuses map[int64]string
	// failures is consumed one error per CreateOrder call.
	failures []error
}

func (l *fakeLedger) CreateOrder(_ context.Context, o *models.Order, mirror *models.ProductRequest) error {
	if len(l.failures) > 0 {
		err := l.failures[0]
		l.failures = l.failures[1:]
		return err
	}
	o.ID = int64(len(l.orders) + 1)
	l.orders = append(l.orders, o)
	if mirror != nil {
		mirror.ID = int64(len(l.requests) + 1)
		l.requests = append(l.requests, mirror)
	}
	return nil
}

func (l *fakeLedger) CreateProductRequest(_ context.Context, r *models.ProductRequest) error {
	if len(l.failures) > 0 {
		return l.failures[0]
	}
	r.ID = int64(len(l.requests) + 1)
	l.requests = append(l.requests, r)
	return nil
}

func (l *fakeLedger) UpdateOrderStatus(_ context.Context, id int64, status string) error {
	return l.setStatus(id, status)
}

func (l *fakeLedger) UpdateProductRequestStatus(_ context.Context, id int64, status string) error {
	return l.setStatus(id, status)
}

func (l *fakeLedger) setStatus(id int64, status string) error {
	if id != 1 {
		return store.ErrNotFound
	}
	if l.statuses == nil {
		l.statuses = make(map[int64]string)
	}
	l.statuses[id] = status
	return nil
}

func newService() (*Service, *fakeLedger) {
	products := fakeProducts{
		1: {ID: 1, Name: "Laptop", Price: decimal.RequireFromString("1500.00")},
		2: {ID: 2, Name: "Sample", Price: decimal.Zero},
	}
	ledger := &fakeLedger{}
	svc := NewService(products, ledger, false)
	svc.NewRef = func() string { return "TESTREF2" }
	return svc, ledger
}

func validSubmission() Submission {
	return Submission{ProductID: 1, FirstName: " Amina ", Phone: "0555 12 34 56", State: "Oran", Quantity: 3}
}

func TestPlaceOrderComputesTotal(t *testing.T) {
	svc, ledger := newService()

	order, err := svc.PlaceOrder(context.Background(), validSubmission())
	require.NoError(t, err)

	assert.Equal(t, int64(1), order.ID)
	assert.Equal(t, "TESTREF2", order.Ref)
	assert.Equal(t, "Amina", order.FirstName)
	assert.Equal(t, "4500.00", order.TotalPrice.StringFixed(2))
	assert.Equal(t, models.OrderPending, order.Status)

	require.Len(t, ledger.requests, 1)
	mirror := ledger.requests[0]
	assert.Equal(t, models.RequestOrdered, mirror.Status)
	assert.True(t, mirror.TotalPrice.Equal(order.TotalPrice))
	assert.Equal(t, "Laptop", mirror.ProductName)
	assert.Contains(t, mirror.Message, "TESTREF2")
}

func TestPlaceOrderUnknownProductBeforeValidation(t *testing.T) {
	svc, ledger := newService()

	_, err := svc.PlaceOrder(context.Background(), Submission{ProductID: 99})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	assert.Empty(t, ledger.orders)
}

func TestPlaceOrderValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Submission)
		field  string
	}{
		{"blank first name", func(s *Submission) { s.FirstName = "   " }, "first_name"},
		{"missing phone", func(s *Submission) { s.Phone = "" }, "phone"},
		{"missing state", func(s *Submission) { s.State = "" }, "state"},
		{"bad email", func(s *Submission) { s.Email = "not-an-email" }, "email"},
		{"negative quantity", func(s *Submission) { s.Quantity = -2 }, "quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, ledger := newService()
			s := validSubmission()
			tt.mutate(&s)

			_, err := svc.PlaceOrder(context.Background(), s)
			require.Error(t, err)
			var appErr *apperrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.KindValidation, appErr.Kind)
			assert.Contains(t, appErr.Fields, tt.field)
			assert.Empty(t, ledger.orders)
		})
	}
}

func TestPlaceOrderRequireAddress(t *testing.T) {
	svc, _ := newService()
	svc.RequireAddress = true

	_, err := svc.PlaceOrder(context.Background(), validSubmission())
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	s := validSubmission()
	s.Address = "12 rue Larbi Ben M'hidi"
	_, err = svc.PlaceOrder(context.Background(), s)
	assert.NoError(t, err)
}

func TestPlaceOrderZeroQuantityMeansOne(t *testing.T) {
	svc, _ := newService()
	s := validSubmission()
	s.Quantity = 0

	order, err := svc.PlaceOrder(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 1, order.Quantity)
	assert.Equal(t, "1500.00", order.TotalPrice.StringFixed(2))
}

func TestPlaceOrderFreeProduct(t *testing.T) {
	svc, _ := newService()
	s := validSubmission()
	s.ProductID = 2

	order, err := svc.PlaceOrder(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, order.TotalPrice.IsZero())
}

func TestPlaceOrderPersistenceFailure(t *testing.T) {
	svc, ledger := newService()
	ledger.failures = []error{errors.New("disk full")}

	_, err := svc.PlaceOrder(context.Background(), validSubmission())
	assert.Equal(t, apperrors.KindPersistence, apperrors.KindOf(err))
	assert.Equal(t, []string{"Something went wrong. Please try again."}, apperrors.UserMessages(err))
	assert.Empty(t, ledger.orders)
	assert.Empty(t, ledger.requests)
}

func TestPlaceOrderRetriesRefCollision(t *testing.T) {
	svc, ledger := newService()
	ledger.failures = []error{fmt.Errorf("order ref: %w", store.ErrDuplicate)}

	order, err := svc.PlaceOrder(context.Background(), validSubmission())
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
}

func TestSubmitRequest(t *testing.T) {
	svc, ledger := newService()

	req, err := svc.SubmitRequest(context.Background(), RequestSubmission{
		ProductID: 1, UserName: "Karim", Phone: "0666", State: "Alger", Quantity: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, req.Status)
	assert.Equal(t, "3000.00", req.TotalPrice.StringFixed(2))
	assert.Len(t, ledger.requests, 1)

	_, err = svc.SubmitRequest(context.Background(), RequestSubmission{ProductID: 1, Phone: "0666", State: "Alger"})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, err = svc.SubmitRequest(context.Background(), RequestSubmission{ProductID: 42, UserName: "Karim"})
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestUpdateStatuses(t *testing.T) {
	svc, ledger := newService()
	ctx := context.Background()

	require.NoError(t, svc.UpdateOrderStatus(ctx, 1, models.OrderShipped))
	assert.Equal(t, models.OrderShipped, ledger.statuses[1])

	assert.True(t, apperrors.Is(svc.UpdateOrderStatus(ctx, 1, "teleported"), apperrors.KindValidation))
	assert.True(t, apperrors.Is(svc.UpdateOrderStatus(ctx, 7, models.OrderShipped), apperrors.KindNotFound))

	// Request statuses are a separate enumeration.
	assert.True(t, apperrors.Is(svc.UpdateRequestStatus(ctx, 1, models.OrderShipped), apperrors.KindValidation))
	require.NoError(t, svc.UpdateRequestStatus(ctx, 1, models.RequestApproved))
	assert.True(t, apperrors.Is(svc.UpdateRequestStatus(ctx, 9, models.RequestApproved), apperrors.KindNotFound))
}

func TestParseQuantity(t *testing.T) {
	q, err := ParseQuantity("")
	require.NoError(t, err)
	assert.Equal(t, 1, q)

	q, err = ParseQuantity(" 4 ")
	require.NoError(t, err)
	assert.Equal(t, 4, q)

	_, err = ParseQuantity("two")
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestGenerateOrderRef(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		ref := GenerateOrderRef()
		assert.Len(t, ref, 8)
		assert.False(t, strings.ContainsAny(ref, "IO10"), ref)
		seen[ref] = true
	}
	assert.Greater(t, len(seen), 45)
}
