// Package memory holds a mutex-guarded in-memory Storage implementation.
// It mirrors the PostgreSQL behavior, including the all-or-nothing
// settlement, and backs unit tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	storeerr "github.com/antonminaichev/dermamart/internal/storage"
	"github.com/antonminaichev/dermamart/internal/types/order"
	"github.com/antonminaichev/dermamart/internal/types/payment"
	"github.com/antonminaichev/dermamart/internal/types/product"
	"github.com/antonminaichev/dermamart/internal/types/shipping"
	"github.com/antonminaichev/dermamart/internal/types/user"
)

type MemoryStorage struct {
	mu sync.Mutex

	users          map[string]*user.User
	usersByEmail   map[string]string
	products       map[string]*product.Product
	partners       map[string]*shipping.Partner
	orders         map[string]*order.Order
	payments       map[string]*payment.Payment
	paymentByOrder map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:          make(map[string]*user.User),
		usersByEmail:   make(map[string]string),
		products:       make(map[string]*product.Product),
		partners:       make(map[string]*shipping.Partner),
		orders:         make(map[string]*order.Order),
		payments:       make(map[string]*payment.Payment),
		paymentByOrder: make(map[string]string),
	}
}

func (s *MemoryStorage) Ping(ctx context.Context) error { return nil }
func (s *MemoryStorage) Close() error                   { return nil }

// ---------------------------------------------------------------- users

func (s *MemoryStorage) CreateUser(ctx context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.usersByEmail[u.Email]; exists {
		return storeerr.ErrUserExists
	}
	cp := *u
	s.users[u.ID] = &cp
	s.usersByEmail[u.Email] = u.ID
	return nil
}

func (s *MemoryStorage) FindUserByEmail(ctx context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.usersByEmail[email]
	if !ok {
		return nil, storeerr.ErrUserNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *MemoryStorage) FindUserByID(ctx context.Context, id string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, storeerr.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStorage) ListUsers(ctx context.Context) ([]user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStorage) UpdateUserRole(ctx context.Context, id, role string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, storeerr.ErrUserNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	return &cp, nil
}

// ------------------------------------------------------------- products

func (s *MemoryStorage) CreateProduct(ctx context.Context, p *product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *MemoryStorage) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, storeerr.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStorage) ListProducts(ctx context.Context) ([]product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]product.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStorage) GetProductsByIDs(ctx context.Context, ids []string) (map[string]product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]product.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = *p
		}
	}
	return out, nil
}

func (s *MemoryStorage) UpdateProduct(ctx context.Context, p *product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return storeerr.ErrProductNotFound
	}
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *MemoryStorage) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return storeerr.ErrProductNotFound
	}
	for _, o := range s.orders {
		for _, item := range o.Items {
			if item.ProductID == id {
				return storeerr.ErrProductInUse
			}
		}
	}
	delete(s.products, id)
	return nil
}

// ------------------------------------------------------------- partners

func (s *MemoryStorage) CreatePartner(ctx context.Context, p *shipping.Partner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.partners[p.ID] = &cp
	return nil
}

func (s *MemoryStorage) GetPartner(ctx context.Context, id string) (*shipping.Partner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.partners[id]
	if !ok {
		return nil, storeerr.ErrPartnerNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStorage) ListPartners(ctx context.Context) ([]shipping.Partner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]shipping.Partner, 0, len(s.partners))
	for _, p := range s.partners {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStorage) UpdatePartner(ctx context.Context, p *shipping.Partner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.partners[p.ID]; !ok {
		return storeerr.ErrPartnerNotFound
	}
	cp := *p
	s.partners[p.ID] = &cp
	return nil
}

func (s *MemoryStorage) DeletePartner(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.partners[id]; !ok {
		return storeerr.ErrPartnerNotFound
	}
	delete(s.partners, id)
	return nil
}

// --------------------------------------------------------------- orders

func (s *MemoryStorage) CreateOrder(ctx context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	cp.Items = append([]order.Item(nil), o.Items...)
	s.orders[o.ID] = &cp
	return nil
}

func (s *MemoryStorage) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, storeerr.ErrOrderNotFound
	}
	cp := *o
	cp.Items = append([]order.Item(nil), o.Items...)
	return &cp, nil
}

// buildView assumes the lock is held.
func (s *MemoryStorage) buildView(o *order.Order) *order.View {
	v := &order.View{
		ID:            o.ID,
		TotalPrice:    o.TotalPrice,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if u, ok := s.users[o.UserID]; ok {
		v.User = order.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
	} else {
		v.User = order.UserSummary{ID: o.UserID}
	}
	if o.ShippingPartnerID != nil {
		if sp, ok := s.partners[*o.ShippingPartnerID]; ok {
			v.ShippingPartner = &order.PartnerSummary{ID: sp.ID, Name: sp.Name, Phone: sp.Phone}
		}
	}
	v.Products = make([]order.ItemDetail, 0, len(o.Items))
	for _, item := range o.Items {
		d := order.ItemDetail{ProductID: item.ProductID, Quantity: item.Quantity}
		if p, ok := s.products[item.ProductID]; ok {
			d.Name = p.Name
			d.Price = p.Price
		}
		v.Products = append(v.Products, d)
	}
	return v
}

func (s *MemoryStorage) GetOrderView(ctx context.Context, id string) (*order.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, storeerr.ErrOrderNotFound
	}
	return s.buildView(o), nil
}

func (s *MemoryStorage) listViews(match func(*order.Order) bool) []order.View {
	out := make([]order.View, 0)
	for _, o := range s.orders {
		if match(o) {
			out = append(out, *s.buildView(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *MemoryStorage) ListOrders(ctx context.Context) ([]order.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listViews(func(*order.Order) bool { return true }), nil
}

func (s *MemoryStorage) ListOrdersByUser(ctx context.Context, userID string) ([]order.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listViews(func(o *order.Order) bool { return o.UserID == userID }), nil
}

func (s *MemoryStorage) UpdateOrder(ctx context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; !ok {
		return storeerr.ErrOrderNotFound
	}
	cp := *o
	cp.Items = append([]order.Item(nil), o.Items...)
	s.orders[o.ID] = &cp
	return nil
}

func (s *MemoryStorage) DeleteOrder(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[id]; !ok {
		return storeerr.ErrOrderNotFound
	}
	delete(s.orders, id)
	return nil
}

// ------------------------------------------------------------- payments

func (s *MemoryStorage) CreatePayment(ctx context.Context, p *payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.paymentByOrder[p.OrderID]; exists {
		return storeerr.ErrPaymentExists
	}
	cp := *p
	s.payments[p.ID] = &cp
	s.paymentByOrder[p.OrderID] = p.ID
	return nil
}

func (s *MemoryStorage) GetPayment(ctx context.Context, id string) (*payment.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, storeerr.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStorage) FindPaymentByOrder(ctx context.Context, orderID string) (*payment.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.paymentByOrder[orderID]
	if !ok {
		return nil, storeerr.ErrPaymentNotFound
	}
	cp := *s.payments[id]
	return &cp, nil
}

// paymentView assumes the lock is held.
func (s *MemoryStorage) paymentView(p *payment.Payment) payment.View {
	v := payment.View{
		ID:          p.ID,
		Method:      p.Method,
		Amount:      p.Amount,
		Status:      p.Status,
		PaymentDate: p.PaymentDate,
		CreatedAt:   p.CreatedAt,
	}
	if o, ok := s.orders[p.OrderID]; ok {
		v.Order = payment.OrderSummary{ID: o.ID, TotalPrice: o.TotalPrice, Status: o.Status}
	} else {
		v.Order = payment.OrderSummary{ID: p.OrderID}
	}
	if u, ok := s.users[p.UserID]; ok {
		v.User = order.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
	} else {
		v.User = order.UserSummary{ID: p.UserID}
	}
	return v
}

func (s *MemoryStorage) listPaymentViews(match func(*payment.Payment) bool) []payment.View {
	out := make([]payment.View, 0)
	for _, p := range s.payments {
		if match(p) {
			out = append(out, s.paymentView(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaymentDate.After(out[j].PaymentDate) })
	return out
}

func (s *MemoryStorage) ListPaymentsByUser(ctx context.Context, userID string) ([]payment.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listPaymentViews(func(p *payment.Payment) bool { return p.UserID == userID }), nil
}

func (s *MemoryStorage) ListPayments(ctx context.Context) ([]payment.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listPaymentViews(func(*payment.Payment) bool { return true }), nil
}

// SettlePayment mirrors the PostgreSQL settlement: every stock check runs
// before any decrement, so a failing line leaves all counters untouched.
func (s *MemoryStorage) SettlePayment(ctx context.Context, id string) (*payment.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, storeerr.ErrPaymentNotFound
	}
	if p.Status == payment.StatusCompleted {
		return nil, storeerr.ErrPaymentCompleted
	}
	o, ok := s.orders[p.OrderID]
	if !ok {
		return nil, storeerr.ErrOrderNotFound
	}
	if o.Status != order.StatusShipped {
		return nil, storeerr.ErrOrderNotShipped
	}

	// Aggregate per product: the same product may appear on several lines.
	needed := make(map[string]int)
	for _, item := range o.Items {
		needed[item.ProductID] += item.Quantity
	}
	for _, item := range o.Items {
		prod, ok := s.products[item.ProductID]
		if !ok {
			return nil, storeerr.ErrProductNotFound
		}
		if prod.Stock < needed[item.ProductID] {
			return nil, &storeerr.InsufficientStockError{
				ProductID: item.ProductID,
				Name:      prod.Name,
				Stock:     prod.Stock,
				Requested: needed[item.ProductID],
			}
		}
	}

	now := time.Now().UTC()
	for productID, qty := range needed {
		prod := s.products[productID]
		prod.Stock -= qty
		prod.UpdatedAt = now
	}
	p.Status = payment.StatusCompleted
	p.PaymentDate = now
	p.UpdatedAt = now
	o.Status = order.StatusDelivered
	o.PaymentStatus = order.PaymentCompleted
	o.UpdatedAt = now

	cp := *p
	return &cp, nil
}
