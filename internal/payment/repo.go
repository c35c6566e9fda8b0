package payment

import (
	"context"

	"github.com/antonminaichev/dermamart/internal/types/order"
	"github.com/antonminaichev/dermamart/internal/types/payment"
)

type PaymentRepository interface {
	CreatePayment(ctx context.Context, p *payment.Payment) error
	GetPayment(ctx context.Context, id string) (*payment.Payment, error)
	FindPaymentByOrder(ctx context.Context, orderID string) (*payment.Payment, error)
	ListPaymentsByUser(ctx context.Context, userID string) ([]payment.View, error)
	ListPayments(ctx context.Context) ([]payment.View, error)
	// SettlePayment atomically completes the payment, decrements stock
	// for every order line and marks the order delivered. Either every
	// effect applies or none does.
	SettlePayment(ctx context.Context, id string) (*payment.Payment, error)
}

type Orders interface {
	GetOrder(ctx context.Context, id string) (*order.Order, error)
}
