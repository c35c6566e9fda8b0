package payment

import (
	"context"
	"errors"
	"time"

	"github.com/antonminaichev/dermamart/internal/auth"
	"github.com/antonminaichev/dermamart/internal/metrics"
	"github.com/antonminaichev/dermamart/internal/storage"
	"github.com/antonminaichev/dermamart/internal/types/payment"
	"github.com/google/uuid"
)

var (
	ErrInvalidMethod   = errors.New("unknown payment method")
	ErrOrderNotPayable = errors.New("order is cancelled or already delivered")
)

type Service struct {
	repo    PaymentRepository
	orders  Orders
	metrics *metrics.Metrics
}

func NewService(repo PaymentRepository, orders Orders, m *metrics.Metrics) *Service {
	return &Service{repo: repo, orders: orders, metrics: m}
}

// Checkout creates the single payment for an order. The amount is a copy
// of the order total at this moment. The payment starts Pending for every
// method; settlement happens only through Complete, after shipment.
func (s *Service) Checkout(ctx context.Context, ident auth.Identity, orderID string, method payment.Method) (*payment.Payment, error) {
	if method == "" {
		method = payment.MethodCashOnDelivery
	}
	if !method.Valid() {
		return nil, ErrInvalidMethod
	}

	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !auth.Can(ident.Role, auth.ActionPaymentCreate, o.UserID == ident.UserID) {
		return nil, auth.ErrAccessDenied
	}
	if o.Status.Terminal() {
		return nil, ErrOrderNotPayable
	}

	// Fail fast on an existing payment; the unique index on order_id
	// closes the race between two concurrent checkouts.
	if _, err := s.repo.FindPaymentByOrder(ctx, orderID); err == nil {
		return nil, storage.ErrPaymentExists
	} else if !errors.Is(err, storage.ErrPaymentNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	p := &payment.Payment{
		ID:          uuid.NewString(),
		OrderID:     o.ID,
		UserID:      o.UserID,
		Method:      method,
		Amount:      o.TotalPrice,
		Status:      payment.StatusPending,
		PaymentDate: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreatePayment(ctx, p); err != nil {
		return nil, err
	}
	s.metrics.PaymentCreated()
	return p, nil
}

// Complete runs the settlement. The storage layer executes it as one
// atomic unit; this method only measures and counts.
func (s *Service) Complete(ctx context.Context, id string) (*payment.Payment, error) {
	start := time.Now()
	p, err := s.repo.SettlePayment(ctx, id)
	if err != nil {
		var stockErr *storage.InsufficientStockError
		if errors.Is(err, storage.ErrPaymentCompleted) ||
			errors.Is(err, storage.ErrOrderNotShipped) ||
			errors.As(err, &stockErr) {
			s.metrics.SettlementRejected()
		}
		return nil, err
	}
	s.metrics.SettlementCompleted(time.Since(start))
	return p, nil
}

func (s *Service) ListMine(ctx context.Context, userID string) ([]payment.View, error) {
	return s.repo.ListPaymentsByUser(ctx, userID)
}

func (s *Service) ListAll(ctx context.Context) ([]payment.View, error) {
	return s.repo.ListPayments(ctx)
}
