// Package httpapi is the HTTP surface of the storefront order service:
// authentication, identity verification and the order-write contract.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fjod/go_storefront/internal/tokens"
)

// NewRouter wires all routes. Order creation stays public: guest checkout is
// a policy decision made on the client, the server accepts either.
func NewRouter(auth *AuthHandler, orders *OrdersHandler, store tokens.Store, timeout time.Duration) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/register", auth.Register)
	r.Post("/login", auth.Login)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(store))
		r.Get("/identity", auth.Identity)
		r.Post("/logout", auth.Logout)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", orders.Create)
		r.Get("/{orderID}", orders.Get)
		r.Get("/customer/{customerID}", orders.ListByCustomer)
		r.Patch("/{orderID}/status", orders.UpdateStatus)
	})

	return r
}
