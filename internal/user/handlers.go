package user

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

type registerReq struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type changeRoleReq struct {
	Role string `json:"role" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rest.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password); err != nil {
		switch {
		case errors.Is(err, ErrPasswordTooShort):
			rest.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, storage.ErrUserExists):
			rest.Error(w, http.StatusConflict, err.Error())
		default:
			logger.Log.WithError(err).Error("register user")
			rest.Error(w, http.StatusInternalServerError, "server error")
		}
		return
	}

	token, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		logger.Log.WithError(err).Error("authenticate after registration")
		rest.Error(w, http.StatusInternalServerError, "server error")
		return
	}

	w.Header().Set("Authorization", "Bearer "+token)
	rest.JSON(w, http.StatusCreated, tokenResponse{Token: token})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rest.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	token, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		rest.Error(w, http.StatusUnauthorized, err.Error())
		return
	}
	w.Header().Set("Authorization", "Bearer "+token)
	rest.JSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("list users")
		rest.Error(w, http.StatusInternalServerError, "server error")
		return
	}
	rest.JSON(w, http.StatusOK, users)
}

func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req changeRoleReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		rest.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.svc.ChangeRole(r.Context(), id, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRole):
			rest.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, storage.ErrUserNotFound):
			rest.Error(w, http.StatusNotFound, err.Error())
		default:
			logger.Log.WithError(err).Error("change user role")
			rest.Error(w, http.StatusInternalServerError, "server error")
		}
		return
	}
	rest.JSON(w, http.StatusOK, u)
}
