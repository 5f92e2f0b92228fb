package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter собирает HTTP-маршруты сервиса корзины.
func NewRouter(h *Handler, jwtSecret []byte) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	identified := IdentityMiddleware(jwtSecret)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{productID}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(identified)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Post("/lines", h.AddCartLine)
				r.Post("/lines/{productID}/decrease", h.DecreaseCartLine)
				r.Delete("/lines/{productID}", h.RemoveCartLine)
				r.Post("/merge", h.MergeCart)
			})

			r.Post("/checkout", h.Checkout)

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.ListOrders)
				r.Get("/{orderID}", h.GetOrder)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(identified)
			r.Use(RequireAdmin)

			r.Put("/admin/products", h.UpsertProduct)
		})
	})

	return r
}
