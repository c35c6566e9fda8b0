package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/antonminaichev/dermamart/internal/types/order"
	"github.com/antonminaichev/dermamart/internal/types/payment"
	"github.com/antonminaichev/dermamart/internal/types/product"
	"github.com/antonminaichev/dermamart/internal/types/shipping"
	"github.com/antonminaichev/dermamart/internal/types/user"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("email already registered")
	ErrProductNotFound = errors.New("one or more products not found")
	ErrProductInUse    = errors.New("product is referenced by existing orders")
	ErrPartnerNotFound = errors.New("shipping partner not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrPaymentExists guards the one-payment-per-order invariant.
	ErrPaymentExists = errors.New("payment already exists for this order")
	// ErrPaymentCompleted is the idempotency guard against double settlement.
	ErrPaymentCompleted = errors.New("payment is already completed")
	// ErrOrderNotShipped: settlement is allowed only after the order was shipped.
	ErrOrderNotShipped = errors.New("order must be shipped before payment completion")
)

// InsufficientStockError names the product whose stock check failed
// during settlement.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Stock     int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q: have %d, need %d", e.Name, e.Stock, e.Requested)
}

// UserRepository отвечает за операции над пользователями.
type UserRepository interface {
	CreateUser(ctx context.Context, u *user.User) error
	FindUserByEmail(ctx context.Context, email string) (*user.User, error)
	FindUserByID(ctx context.Context, id string) (*user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	UpdateUserRole(ctx context.Context, id, role string) (*user.User, error)
}

// ProductRepository отвечает за каталог товаров. Stock mutations happen
// only inside SettlePayment.
type ProductRepository interface {
	CreateProduct(ctx context.Context, p *product.Product) error
	GetProduct(ctx context.Context, id string) (*product.Product, error)
	ListProducts(ctx context.Context) ([]product.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]product.Product, error)
	UpdateProduct(ctx context.Context, p *product.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

// PartnerRepository отвечает за службы доставки.
type PartnerRepository interface {
	CreatePartner(ctx context.Context, p *shipping.Partner) error
	GetPartner(ctx context.Context, id string) (*shipping.Partner, error)
	ListPartners(ctx context.Context) ([]shipping.Partner, error)
	UpdatePartner(ctx context.Context, p *shipping.Partner) error
	DeletePartner(ctx context.Context, id string) error
}

// OrderRepository отвечает за заказы.
type OrderRepository interface {
	CreateOrder(ctx context.Context, o *order.Order) error
	GetOrder(ctx context.Context, id string) (*order.Order, error)
	GetOrderView(ctx context.Context, id string) (*order.View, error)
	ListOrders(ctx context.Context) ([]order.View, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]order.View, error)
	UpdateOrder(ctx context.Context, o *order.Order) error
	DeleteOrder(ctx context.Context, id string) error
}

// PaymentRepository отвечает за платежи. SettlePayment is the single
// all-or-nothing step that completes a payment, decrements stock for
// every order line and marks the order delivered.
type PaymentRepository interface {
	CreatePayment(ctx context.Context, p *payment.Payment) error
	GetPayment(ctx context.Context, id string) (*payment.Payment, error)
	FindPaymentByOrder(ctx context.Context, orderID string) (*payment.Payment, error)
	ListPaymentsByUser(ctx context.Context, userID string) ([]payment.View, error)
	ListPayments(ctx context.Context) ([]payment.View, error)
	SettlePayment(ctx context.Context, id string) (*payment.Payment, error)
}

// Storage объединяет все репозитории.
type Storage interface {
	UserRepository
	ProductRepository
	PartnerRepository
	OrderRepository
	PaymentRepository

	// Для управления соединением
	Ping(ctx context.Context) error
	Close() error
}
