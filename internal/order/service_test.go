package order

import (
	"context"
	"testing"

	"github.com/antonminaichev/dermamart/internal/auth"
	"github.com/antonminaichev/dermamart/internal/storage"
	"github.com/antonminaichev/dermamart/internal/types/order"
	"github.com/antonminaichev/dermamart/internal/types/payment"
	"github.com/antonminaichev/dermamart/internal/types/product"
	"github.com/antonminaichev/dermamart/internal/types/shipping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	createOrderFn      func(ctx context.Context, o *order.Order) error
	getOrderFn         func(ctx context.Context, id string) (*order.Order, error)
	getOrderViewFn     func(ctx context.Context, id string) (*order.View, error)
	listOrdersFn       func(ctx context.Context) ([]order.View, error)
	listOrdersByUserFn func(ctx context.Context, userID string) ([]order.View, error)
	updateOrderFn      func(ctx context.Context, o *order.Order) error
	deleteOrderFn      func(ctx context.Context, id string) error
}

func (m *mockRepo) CreateOrder(ctx context.Context, o *order.Order) error {
	return m.createOrderFn(ctx, o)
}
func (m *mockRepo) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	return m.getOrderFn(ctx, id)
}
func (m *mockRepo) GetOrderView(ctx context.Context, id string) (*order.View, error) {
	return m.getOrderViewFn(ctx, id)
}
func (m *mockRepo) ListOrders(ctx context.Context) ([]order.View, error) {
	return m.listOrdersFn(ctx)
}
func (m *mockRepo) ListOrdersByUser(ctx context.Context, userID string) ([]order.View, error) {
	return m.listOrdersByUserFn(ctx, userID)
}
func (m *mockRepo) UpdateOrder(ctx context.Context, o *order.Order) error {
	return m.updateOrderFn(ctx, o)
}
func (m *mockRepo) DeleteOrder(ctx context.Context, id string) error {
	return m.deleteOrderFn(ctx, id)
}

type stubCatalog struct {
	products map[string]product.Product
}

func (c *stubCatalog) GetProductsByIDs(ctx context.Context, ids []string) (map[string]product.Product, error) {
	out := make(map[string]product.Product)
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type stubPartners struct {
	partners map[string]*shipping.Partner
}

func (s *stubPartners) GetPartner(ctx context.Context, id string) (*shipping.Partner, error) {
	if p, ok := s.partners[id]; ok {
		return p, nil
	}
	return nil, storage.ErrPartnerNotFound
}

type stubPayments struct {
	findFn func(ctx context.Context, orderID string) (*payment.Payment, error)
}

func (s *stubPayments) FindPaymentByOrder(ctx context.Context, orderID string) (*payment.Payment, error) {
	return s.findFn(ctx, orderID)
}

func testCatalog() *stubCatalog {
	return &stubCatalog{products: map[string]product.Product{
		"prodA": {ID: "prodA", Name: "Moisturizer", Price: 100, Stock: 10},
		"prodB": {ID: "prodB", Name: "Shampoo", Price: 50, Stock: 5},
	}}
}

func passthroughView(captured **order.Order) func(ctx context.Context, id string) (*order.View, error) {
	return func(ctx context.Context, id string) (*order.View, error) {
		o := *captured
		return &order.View{
			ID:            o.ID,
			User:          order.UserSummary{ID: o.UserID},
			TotalPrice:    o.TotalPrice,
			Status:        o.Status,
			PaymentStatus: o.PaymentStatus,
		}, nil
	}
}

func TestPlaceOrderSnapshotsTotalPrice(t *testing.T) {
	var created *order.Order
	repo := &mockRepo{
		createOrderFn: func(ctx context.Context, o *order.Order) error {
			created = o
			return nil
		},
	}
	repo.getOrderViewFn = passthroughView(&created)
	svc := NewService(repo, testCatalog(), &stubPartners{}, &stubPayments{}, nil)

	ident := auth.Identity{UserID: "u1", Role: auth.RoleUser}
	items := []order.Item{
		{ProductID: "prodA", Quantity: 2},
		{ProductID: "prodB", Quantity: 1},
	}
	v, err := svc.Place(context.Background(), ident, items, "")
	require.NoError(t, err)

	assert.Equal(t, 250.0, v.TotalPrice)
	assert.Equal(t, order.StatusPending, v.Status)
	assert.Equal(t, order.PaymentPending, v.PaymentStatus)
	assert.Equal(t, "u1", created.UserID)
	assert.Len(t, created.Items, 2)
}

func TestPlaceOrderUnknownProduct(t *testing.T) {
	createCalled := false
	repo := &mockRepo{
		createOrderFn: func(ctx context.Context, o *order.Order) error {
			createCalled = true
			return nil
		},
	}
	svc := NewService(repo, testCatalog(), &stubPartners{}, &stubPayments{}, nil)

	ident := auth.Identity{UserID: "u1", Role: auth.RoleUser}
	items := []order.Item{{ProductID: "prodA", Quantity: 1}, {ProductID: "missing", Quantity: 1}}
	_, err := svc.Place(context.Background(), ident, items, "")
	assert.ErrorIs(t, err, storage.ErrProductNotFound)
	assert.False(t, createCalled, "no order must be created when a product is unknown")
}

func TestPlaceOrderValidation(t *testing.T) {
	svc := NewService(&mockRepo{}, testCatalog(), &stubPartners{}, &stubPayments{}, nil)
	ident := auth.Identity{UserID: "u1", Role: auth.RoleUser}

	_, err := svc.Place(context.Background(), ident, nil, "")
	assert.ErrorIs(t, err, ErrEmptyOrder)

	_, err = svc.Place(context.Background(), ident, []order.Item{{ProductID: "prodA", Quantity: 0}}, "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestPlaceOrderIgnoresPartnerForPlainUser(t *testing.T) {
	var created *order.Order
	repo := &mockRepo{
		createOrderFn: func(ctx context.Context, o *order.Order) error {
			created = o
			return nil
		},
	}
	repo.getOrderViewFn = passthroughView(&created)
	svc := NewService(repo, testCatalog(), &stubPartners{}, &stubPayments{}, nil)

	ident := auth.Identity{UserID: "u1", Role: auth.RoleUser}
	_, err := svc.Place(context.Background(), ident, []order.Item{{ProductID: "prodA", Quantity: 1}}, "partner1")
	require.NoError(t, err)
	assert.Nil(t, created.ShippingPartnerID)
}

func cancelFixture(status order.Status) (*Service, *order.Order) {
	o := &order.Order{ID: "o1", UserID: "u1", Status: status, PaymentStatus: order.PaymentPending}
	repo := &mockRepo{
		getOrderFn: func(ctx context.Context, id string) (*order.Order, error) {
			cp := *o
			return &cp, nil
		},
		updateOrderFn: func(ctx context.Context, upd *order.Order) error {
			*o = *upd
			return nil
		},
		getOrderViewFn: func(ctx context.Context, id string) (*order.View, error) {
			return &order.View{ID: o.ID, Status: o.Status}, nil
		},
	}
	return NewService(repo, testCatalog(), &stubPartners{}, &stubPayments{}, nil), o
}

func TestCancelStateMachine(t *testing.T) {
	tests := []struct {
		status  order.Status
		wantErr error
	}{
		{order.StatusPending, nil},
		{order.StatusProcessed, nil},
		{order.StatusShipped, ErrCancelNotAllowed},
		{order.StatusDelivered, ErrCancelNotAllowed},
		{order.StatusCancelled, ErrCancelNotAllowed},
	}
	owner := auth.Identity{UserID: "u1", Role: auth.RoleUser}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			svc, o := cancelFixture(tt.status)
			v, err := svc.Cancel(context.Background(), owner, "o1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.status, o.Status, "state must not change on rejected cancel")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, order.StatusCancelled, v.Status)
		})
	}
}

func TestCancelOwnership(t *testing.T) {
	stranger := auth.Identity{UserID: "u2", Role: auth.RoleUser}
	svc, _ := cancelFixture(order.StatusPending)
	_, err := svc.Cancel(context.Background(), stranger, "o1")
	assert.ErrorIs(t, err, auth.ErrAccessDenied)

	pharmacist := auth.Identity{UserID: "u2", Role: auth.RolePharmacist}
	svc, _ = cancelFixture(order.StatusPending)
	_, err = svc.Cancel(context.Background(), pharmacist, "o1")
	assert.NoError(t, err)
}

func TestGetOwnership(t *testing.T) {
	repo := &mockRepo{
		getOrderViewFn: func(ctx context.Context, id string) (*order.View, error) {
			return &order.View{ID: id, User: order.UserSummary{ID: "u1"}}, nil
		},
	}
	svc := NewService(repo, testCatalog(), &stubPartners{}, &stubPayments{}, nil)

	_, err := svc.Get(context.Background(), auth.Identity{UserID: "u2", Role: auth.RoleUser}, "o1")
	assert.ErrorIs(t, err, auth.ErrAccessDenied)

	_, err = svc.Get(context.Background(), auth.Identity{UserID: "u1", Role: auth.RoleUser}, "o1")
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), auth.Identity{UserID: "u2", Role: auth.RoleAdmin}, "o1")
	assert.NoError(t, err)
}

func updateFixture(status order.Status) (*Service, *order.Order) {
	o := &order.Order{
		ID:            "o1",
		UserID:        "u1",
		Items:         []order.Item{{ProductID: "prodA", Quantity: 1}},
		TotalPrice:    100,
		Status:        status,
		PaymentStatus: order.PaymentPending,
	}
	repo := &mockRepo{
		getOrderFn: func(ctx context.Context, id string) (*order.Order, error) {
			cp := *o
			return &cp, nil
		},
		updateOrderFn: func(ctx context.Context, upd *order.Order) error {
			*o = *upd
			return nil
		},
		getOrderViewFn: func(ctx context.Context, id string) (*order.View, error) {
			return &order.View{ID: o.ID, Status: o.Status, TotalPrice: o.TotalPrice}, nil
		},
	}
	partners := &stubPartners{partners: map[string]*shipping.Partner{
		"partner1": {ID: "partner1", Name: "FastTrack"},
	}}
	return NewService(repo, testCatalog(), partners, &stubPayments{}, nil), o
}

func TestUpdatePartnerOnlyWhilePending(t *testing.T) {
	partnerID := "partner1"

	svc, o := updateFixture(order.StatusPending)
	_, err := svc.Update(context.Background(), "o1", Update{ShippingPartner: &partnerID})
	require.NoError(t, err)
	require.NotNil(t, o.ShippingPartnerID)
	assert.Equal(t, "partner1", *o.ShippingPartnerID)

	svc, _ = updateFixture(order.StatusProcessed)
	_, err = svc.Update(context.Background(), "o1", Update{ShippingPartner: &partnerID})
	assert.ErrorIs(t, err, ErrPartnerAssignmentClosed)
}

func TestUpdateUnknownPartner(t *testing.T) {
	svc, _ := updateFixture(order.StatusPending)
	missing := "nope"
	_, err := svc.Update(context.Background(), "o1", Update{ShippingPartner: &missing})
	assert.ErrorIs(t, err, storage.ErrPartnerNotFound)
}

func TestUpdateItemsRecomputesTotal(t *testing.T) {
	svc, o := updateFixture(order.StatusProcessed)
	_, err := svc.Update(context.Background(), "o1", Update{
		Products: []order.Item{{ProductID: "prodB", Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, 150.0, o.TotalPrice)
}

func TestUpdateItemsLockedAfterShipment(t *testing.T) {
	svc, _ := updateFixture(order.StatusShipped)
	_, err := svc.Update(context.Background(), "o1", Update{
		Products: []order.Item{{ProductID: "prodB", Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrItemsLocked)
}

func TestUpdateStatusRules(t *testing.T) {
	svc, o := updateFixture(order.StatusPending)
	shipped := order.StatusShipped
	_, err := svc.Update(context.Background(), "o1", Update{Status: &shipped})
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, o.Status)

	svc, _ = updateFixture(order.StatusPending)
	delivered := order.StatusDelivered
	_, err = svc.Update(context.Background(), "o1", Update{Status: &delivered})
	assert.ErrorIs(t, err, ErrStatusNotAllowed)

	svc, _ = updateFixture(order.StatusPending)
	bogus := order.Status("Lost")
	_, err = svc.Update(context.Background(), "o1", Update{Status: &bogus})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateFinalizedOrder(t *testing.T) {
	for _, status := range []order.Status{order.StatusCancelled, order.StatusDelivered} {
		svc, _ := updateFixture(status)
		processed := order.StatusProcessed
		_, err := svc.Update(context.Background(), "o1", Update{Status: &processed})
		assert.ErrorIs(t, err, ErrOrderFinalized)
	}
}

func TestDeleteRefusedWhilePaymentExists(t *testing.T) {
	deleted := false
	repo := &mockRepo{
		getOrderFn: func(ctx context.Context, id string) (*order.Order, error) {
			return &order.Order{ID: id}, nil
		},
		deleteOrderFn: func(ctx context.Context, id string) error {
			deleted = true
			return nil
		},
	}
	payments := &stubPayments{findFn: func(ctx context.Context, orderID string) (*payment.Payment, error) {
		return &payment.Payment{ID: "p1", OrderID: orderID}, nil
	}}
	svc := NewService(repo, testCatalog(), &stubPartners{}, payments, nil)

	err := svc.Delete(context.Background(), "o1")
	assert.ErrorIs(t, err, ErrOrderHasPayment)
	assert.False(t, deleted)

	payments.findFn = func(ctx context.Context, orderID string) (*payment.Payment, error) {
		return nil, storage.ErrPaymentNotFound
	}
	err = svc.Delete(context.Background(), "o1")
	assert.NoError(t, err)
	assert.True(t, deleted)
}
