package order

import "time"

type Status string

const (
	StatusPending   Status = "Pending"
	StatusProcessed Status = "Processed"
	StatusShipped   Status = "Shipped"
	StatusDelivered Status = "Delivered"
	StatusCancelled Status = "Cancelled"
)

// Valid reports whether s is one of the known order statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessed, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further mutation of the order is allowed.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentCompleted PaymentStatus = "Completed"
	PaymentFailed    PaymentStatus = "Failed"
)

// Item is a single (product, quantity) line within an order.
type Item struct {
	ProductID string `db:"product_id" json:"product"`
	Quantity  int    `db:"quantity" json:"quantity"`
}

type Order struct {
	ID                string        `db:"id" json:"id"`
	UserID            string        `db:"user_id" json:"user"`
	Items             []Item        `json:"products"`
	TotalPrice        float64       `db:"total_price" json:"totalPrice"`
	Status            Status        `db:"status" json:"status"`
	PaymentStatus     PaymentStatus `db:"payment_status" json:"paymentStatus"`
	ShippingPartnerID *string       `db:"shipping_partner_id" json:"shippingPartner,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}

type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type PartnerSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

type ItemDetail struct {
	ProductID string  `json:"product"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// View is an order with its references resolved, as returned to clients.
type View struct {
	ID              string          `json:"id"`
	User            UserSummary     `json:"user"`
	Products        []ItemDetail    `json:"products"`
	TotalPrice      float64         `json:"totalPrice"`
	Status          Status          `json:"status"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	ShippingPartner *PartnerSummary `json:"shippingPartner,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
