package payment

import (
	"time"

	"github.com/antonminaichev/dermamart/internal/types/order"
)

type Method string

const (
	MethodCashOnDelivery Method = "Cash On Delivery"
	MethodCreditCard     Method = "Credit Card"
)

func (m Method) Valid() bool {
	return m == MethodCashOnDelivery || m == MethodCreditCard
}

type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
)

type Payment struct {
	ID          string    `db:"id" json:"id"`
	OrderID     string    `db:"order_id" json:"order"`
	UserID      string    `db:"user_id" json:"user"`
	Method      Method    `db:"method" json:"method"`
	Amount      float64   `db:"amount" json:"amount"`
	Status      Status    `db:"status" json:"status"`
	PaymentDate time.Time `db:"payment_date" json:"paymentDate"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type OrderSummary struct {
	ID         string       `json:"id"`
	TotalPrice float64      `json:"totalPrice"`
	Status     order.Status `json:"status"`
}

// View is a payment with its order and user references resolved.
type View struct {
	ID          string            `json:"id"`
	Order       OrderSummary      `json:"order"`
	User        order.UserSummary `json:"user"`
	Method      Method            `json:"method"`
	Amount      float64           `json:"amount"`
	Status      Status            `json:"status"`
	PaymentDate time.Time         `json:"paymentDate"`
	CreatedAt   time.Time         `json:"created_at"`
}
