package product

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/antonminaichev/dermamart/internal/logger"
	"github.com/antonminaichev/dermamart/internal/rest"
	"github.com/antonminaichev/dermamart/internal/storage"
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

type productReq struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"min=0"`
	Stock       int     `json:"stock" validate:"min=0"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"imageUrl"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rest.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.svc.Create(r.Context(), Input(req))
	if err != nil {
		logger.Log.WithError(err).Error("create product")
		rest.Error(w, http.StatusInternalServerError, "server error")
		return
	}
	rest.JSON(w, http.StatusCreated, p)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	rest.JSON(w, http.StatusOK, p)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	rest.JSON(w, http.StatusOK, products)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rest.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), Input(req))
	if err != nil {
		h.writeError(w, err)
		return
	}
	rest.JSON(w, http.StatusOK, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	rest.JSON(w, http.StatusOK, map[string]string{"message": "product deleted"})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrProductNotFound):
		rest.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrProductInUse):
		rest.Error(w, http.StatusConflict, err.Error())
	default:
		logger.Log.WithError(err).Error("product operation")
		rest.Error(w, http.StatusInternalServerError, "server error")
	}
}
