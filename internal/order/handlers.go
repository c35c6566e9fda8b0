package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/antonminaichev/dermamart/internal/auth"
	"github.com/antonminaichev/dermamart/internal/logger"
	"github.com/antonminaichev/dermamart/internal/middleware"
	"github.com/antonminaichev/dermamart/internal/rest"
	"github.com/antonminaichev/dermamart/internal/storage"
	"github.com/antonminaichev/dermamart/internal/types/order"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

type itemReq struct {
	Product  string `json:"product" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

type createOrderReq struct {
	Products        []itemReq `json:"products" validate:"required,min=1,dive"`
	ShippingPartner string    `json:"shippingPartner"`
}

type updateOrderReq struct {
	Status          *string   `json:"status"`
	ShippingPartner *string   `json:"shippingPartner"`
	Products        []itemReq `json:"products" validate:"omitempty,min=1,dive"`
}

func toItems(reqs []itemReq) []order.Item {
	items := make([]order.Item, 0, len(reqs))
	for _, r := range reqs {
		items = append(items, order.Item{ProductID: r.Product, Quantity: r.Quantity})
	}
	return items
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		rest.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rest.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	v, err := h.svc.Place(r.Context(), ident, toItems(req.Products), req.ShippingPartner)
	if err != nil {
		h.writeError(w, err)
		return
	}
	rest.JSON(w, http.StatusCreated, v)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		rest.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	orders, err := h.svc.List(r.Context(), ident)
	if err != nil {
		h.writeError(w, err)
		return
	}
	rest.JSON(w, http.StatusOK, orders)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		rest.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	v, err := h.svc.Get(r.Context(), ident, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	rest.JSON(w, http.StatusOK, v)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rest.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	upd := Update{ShippingPartner: req.ShippingPartner}
	if req.Status != nil {
		st := order.Status(*req.Status)
		upd.Status = &st
	}
	if req.Products != nil {
		upd.Products = toItems(req.Products)
	}

	v, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		h.writeError(w, err)
		return
	}
	rest.JSON(w, http.StatusOK, v)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		rest.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	v, err := h.svc.Cancel(r.Context(), ident, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	rest.JSON(w, http.StatusOK, v)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	rest.JSON(w, http.StatusOK, map[string]string{"message": "order deleted successfully"})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrOrderNotFound),
		errors.Is(err, storage.ErrProductNotFound),
		errors.Is(err, storage.ErrPartnerNotFound):
		rest.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrAccessDenied):
		rest.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrEmptyOrder),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrCancelNotAllowed),
		errors.Is(err, ErrPartnerAssignmentClosed),
		errors.Is(err, ErrItemsLocked),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrStatusNotAllowed):
		rest.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrOrderFinalized),
		errors.Is(err, ErrOrderHasPayment):
		rest.Error(w, http.StatusConflict, err.Error())
	default:
		logger.Log.WithError(err).Error("order operation")
		rest.Error(w, http.StatusInternalServerError, "server error")
	}
}
