package payment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/antonminaichev/dermamart/internal/auth"
	"github.com/antonminaichev/dermamart/internal/logger"
	"github.com/antonminaichev/dermamart/internal/middleware"
	"github.com/antonminaichev/dermamart/internal/rest"
	"github.com/antonminaichev/dermamart/internal/storage"
	"github.com/antonminaichev/dermamart/internal/types/payment"
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

type checkoutReq struct {
	OrderID string `json:"orderId" validate:"required"`
	Method  string `json:"method"`
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		rest.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rest.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.svc.Checkout(r.Context(), ident, req.OrderID, payment.Method(req.Method))
	if err != nil {
		h.writeError(w, err)
		return
	}
	rest.JSON(w, http.StatusCreated, p)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	rest.JSON(w, http.StatusOK, p)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		rest.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	payments, err := h.svc.ListMine(r.Context(), ident.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	rest.JSON(w, http.StatusOK, payments)
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	payments, err := h.svc.ListAll(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	rest.JSON(w, http.StatusOK, payments)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var stockErr *storage.InsufficientStockError
	switch {
	case errors.Is(err, storage.ErrOrderNotFound),
		errors.Is(err, storage.ErrPaymentNotFound):
		rest.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrAccessDenied):
		rest.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidMethod),
		errors.Is(err, ErrOrderNotPayable),
		errors.As(err, &stockErr):
		rest.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrPaymentExists),
		errors.Is(err, storage.ErrPaymentCompleted),
		errors.Is(err, storage.ErrOrderNotShipped):
		rest.Error(w, http.StatusConflict, err.Error())
	default:
		logger.Log.WithError(err).Error("payment operation")
		rest.Error(w, http.StatusInternalServerError, "server error")
	}
}
