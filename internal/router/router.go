package router

import (
	"github.com/antonminaichev/dermamart/internal/auth"
	"github.com/antonminaichev/dermamart/internal/logger"
	"github.com/antonminaichev/dermamart/internal/middleware"
	"github.com/antonminaichev/dermamart/internal/order"
	"github.com/antonminaichev/dermamart/internal/payment"
	"github.com/antonminaichev/dermamart/internal/product"
	"github.com/antonminaichev/dermamart/internal/shipping"
	"github.com/antonminaichev/dermamart/internal/user"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	userH *user.Handler,
	productH *product.Handler,
	shippingH *shipping.Handler,
	orderH *order.Handler,
	paymentH *payment.Handler,
	jwtSecret []byte,
	users middleware.UserDirectory,
) chi.Router {
	r := chi.NewRouter()

	r.Use(logger.WithLogging)
	r.Use(chiMiddleware.Recoverer)

	r.Use(middleware.GzipHandler)

	r.Handle("/metrics", promhttp.Handler())

	// Public surface: registration, login and catalog reads.
	r.Post("/auth/register", userH.Register)
	r.Post("/auth/login", userH.Login)
	r.Get("/products", productH.List)
	r.Get("/products/{id}", productH.Get)

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTMiddleware(jwtSecret, users))

		r.Post("/orders", orderH.Create)
		r.Get("/orders", orderH.List)
		r.Get("/orders/{id}", orderH.Get)
		r.Patch("/orders/{id}/cancel", orderH.Cancel)

		r.Post("/payments/checkout", paymentH.Checkout)
		r.Get("/payments/my-payments", paymentH.ListMine)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleAdmin, auth.RolePharmacist))

			r.Post("/products", productH.Create)
			r.Put("/products/{id}", productH.Update)
			r.Delete("/products/{id}", productH.Delete)

			r.Post("/partners", shippingH.Create)
			r.Get("/partners", shippingH.List)
			r.Get("/partners/{id}", shippingH.Get)
			r.Put("/partners/{id}", shippingH.Update)
			r.Delete("/partners/{id}", shippingH.Delete)

			r.Put("/orders/{id}", orderH.Update)
			r.Patch("/payments/{id}/complete", paymentH.Complete)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleAdmin))

			r.Get("/users", userH.ListUsers)
			r.Patch("/users/{id}/role", userH.ChangeRole)
			r.Delete("/orders/{id}", orderH.Delete)
			r.Get("/payments", paymentH.ListAll)
		})
	})

	return r
}
