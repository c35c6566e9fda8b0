package order

import (
	"context"
	"errors"
	"time"

	"github.com/antonminaichev/dermamart/internal/auth"
	"github.com/antonminaichev/dermamart/internal/metrics"
	"github.com/antonminaichev/dermamart/internal/storage"
	"github.com/antonminaichev/dermamart/internal/types/order"
	"github.com/google/uuid"
)

var (
	ErrEmptyOrder              = errors.New("order must contain at least one product")
	ErrInvalidQuantity         = errors.New("each product must have product id and quantity >= 1")
	ErrOrderFinalized          = errors.New("order is already delivered or cancelled")
	ErrCancelNotAllowed        = errors.New("order can no longer be cancelled")
	ErrPartnerAssignmentClosed = errors.New("shipping partner can only be assigned while the order is pending")
	ErrItemsLocked             = errors.New("order products cannot be changed after shipment")
	ErrInvalidStatus           = errors.New("unknown order status")
	ErrStatusNotAllowed        = errors.New("delivered status is set only by payment settlement")
	ErrOrderHasPayment         = errors.New("order has a registered payment")
)

type Service struct {
	repo     OrderRepository
	catalog  Catalog
	partners Partners
	payments Payments
	metrics  *metrics.Metrics
}

func NewService(repo OrderRepository, catalog Catalog, partners Partners, payments Payments, m *metrics.Metrics) *Service {
	return &Service{repo: repo, catalog: catalog, partners: partners, payments: payments, metrics: m}
}

// priceItems validates line items against the catalog and returns the
// total at current catalog prices. The total is snapshotted on the order
// and never recomputed afterwards.
func (s *Service) priceItems(ctx context.Context, items []order.Item) (float64, error) {
	if len(items) == 0 {
		return 0, ErrEmptyOrder
	}
	ids := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.ProductID == "" || item.Quantity < 1 {
			return 0, ErrInvalidQuantity
		}
		if _, ok := seen[item.ProductID]; !ok {
			seen[item.ProductID] = struct{}{}
			ids = append(ids, item.ProductID)
		}
	}

	products, err := s.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok {
			return 0, storage.ErrProductNotFound
		}
		total += p.Price * float64(item.Quantity)
	}
	return total, nil
}

// Place creates an order in Pending state. Stock is not touched here;
// it is decremented once, at payment settlement.
func (s *Service) Place(ctx context.Context, ident auth.Identity, items []order.Item, partnerID string) (*order.View, error) {
	total, err := s.priceItems(ctx, items)
	if err != nil {
		return nil, err
	}

	var partner *string
	// Only privileged roles may attach a partner at creation; for plain
	// users the field is ignored, as the storefront never sends it.
	if partnerID != "" && auth.Can(ident.Role, auth.ActionOrderUpdate, false) {
		if _, err := s.partners.GetPartner(ctx, partnerID); err != nil {
			return nil, err
		}
		partner = &partnerID
	}

	now := time.Now().UTC()
	o := &order.Order{
		ID:                uuid.NewString(),
		UserID:            ident.UserID,
		Items:             items,
		TotalPrice:        total,
		Status:            order.StatusPending,
		PaymentStatus:     order.PaymentPending,
		ShippingPartnerID: partner,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return nil, err
	}
	s.metrics.OrderCreated()
	return s.repo.GetOrderView(ctx, o.ID)
}

func (s *Service) Get(ctx context.Context, ident auth.Identity, id string) (*order.View, error) {
	v, err := s.repo.GetOrderView(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.Can(ident.Role, auth.ActionOrderRead, v.User.ID == ident.UserID) {
		return nil, auth.ErrAccessDenied
	}
	return v, nil
}

func (s *Service) List(ctx context.Context, ident auth.Identity) ([]order.View, error) {
	if auth.Can(ident.Role, auth.ActionOrderRead, false) {
		return s.repo.ListOrders(ctx)
	}
	return s.repo.ListOrdersByUser(ctx, ident.UserID)
}

// Update carries the admin/pharmacist-editable fields; nil means "leave as is".
type Update struct {
	Status          *order.Status
	ShippingPartner *string
	Products        []order.Item
}

func (s *Service) Update(ctx context.Context, id string, upd Update) (*order.View, error) {
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, ErrOrderFinalized
	}

	if upd.ShippingPartner != nil {
		if o.Status != order.StatusPending {
			return nil, ErrPartnerAssignmentClosed
		}
		if _, err := s.partners.GetPartner(ctx, *upd.ShippingPartner); err != nil {
			return nil, err
		}
		o.ShippingPartnerID = upd.ShippingPartner
	}

	if upd.Products != nil {
		if o.Status == order.StatusShipped {
			return nil, ErrItemsLocked
		}
		total, err := s.priceItems(ctx, upd.Products)
		if err != nil {
			return nil, err
		}
		o.Items = upd.Products
		o.TotalPrice = total
	}

	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		if *upd.Status == order.StatusDelivered {
			return nil, ErrStatusNotAllowed
		}
		o.Status = *upd.Status
	}

	o.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateOrder(ctx, o); err != nil {
		return nil, err
	}
	return s.repo.GetOrderView(ctx, id)
}

// Cancel is the only status transition available to the owning user.
func (s *Service) Cancel(ctx context.Context, ident auth.Identity, id string) (*order.View, error) {
	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.Can(ident.Role, auth.ActionOrderCancel, o.UserID == ident.UserID) {
		return nil, auth.ErrAccessDenied
	}
	if o.Status != order.StatusPending && o.Status != order.StatusProcessed {
		return nil, ErrCancelNotAllowed
	}
	o.Status = order.StatusCancelled
	o.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateOrder(ctx, o); err != nil {
		return nil, err
	}
	s.metrics.OrderCancelled()
	return s.repo.GetOrderView(ctx, id)
}

// Delete hard-removes an order. Orders with a registered payment are kept
// to avoid orphaned payment records.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.GetOrder(ctx, id); err != nil {
		return err
	}
	_, err := s.payments.FindPaymentByOrder(ctx, id)
	if err == nil {
		return ErrOrderHasPayment
	}
	if !errors.Is(err, storage.ErrPaymentNotFound) {
		return err
	}
	return s.repo.DeleteOrder(ctx, id)
}
