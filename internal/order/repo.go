package order

import (
	"context"

	"github.com/antonminaichev/dermamart/internal/types/order"
	"github.com/antonminaichev/dermamart/internal/types/payment"
	"github.com/antonminaichev/dermamart/internal/types/product"
	"github.com/antonminaichev/dermamart/internal/types/shipping"
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, o *order.Order) error
	GetOrder(ctx context.Context, id string) (*order.Order, error)
	GetOrderView(ctx context.Context, id string) (*order.View, error)
	ListOrders(ctx context.Context) ([]order.View, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]order.View, error)
	UpdateOrder(ctx context.Context, o *order.Order) error
	DeleteOrder(ctx context.Context, id string) error
}

// Catalog is the product lookup the ledger needs for price snapshots.
type Catalog interface {
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]product.Product, error)
}

type Partners interface {
	GetPartner(ctx context.Context, id string) (*shipping.Partner, error)
}

// Payments lets the ledger refuse deleting an order that has a payment.
type Payments interface {
	FindPaymentByOrder(ctx context.Context, orderID string) (*payment.Payment, error)
}
