package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Products *ProductHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
	Staff    *StaffHandler
}

func NewRouter(h Handlers, staffAPIKey string, requestTimeout time.Duration) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", h.Products.Get)
		r.Get("/products/{product_id}", h.Products.GetByID)
		r.Get("/payment-methods", h.Orders.PaymentMethods)

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware)
			r.Use(CustomerMiddleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.GetCart)
				r.Delete("/", h.Cart.ClearCart)
				r.Post("/items", h.Cart.AddItem)
				r.Put("/items", h.Cart.UpdateQuantity)
				r.Delete("/items", h.Cart.RemoveItem)
			})
			r.Post("/checkout", h.Checkout.Checkout)
		})

		r.Group(func(r chi.Router) {
			r.Use(CustomerMiddleware)

			r.Post("/orders", h.Orders.SubmitOrder)
			r.Get("/orders", h.Orders.ListOrders)
			r.Get("/orders/{order_id}", h.Orders.GetOrder)
		})

		r.Route("/staff", func(r chi.Router) {
			r.Use(StaffOnly(staffAPIKey))

			r.Get("/orders", h.Staff.ListQueue)
			r.Post("/orders/{order_id}/advance", h.Staff.Advance)
		})
	})

	return r
}
