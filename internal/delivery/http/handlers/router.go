package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	Checkout *CheckoutHandler
	Webhooks *WebhookHandler
	Carts    *CartHandler
	Admin    *AdminHandler
	Gatherer prometheus.Gatherer
	// Ready reports whether the service can take traffic.
	Ready func(ctx context.Context) error
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", rt.healthz)
	if rt.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(rt.Gatherer, promhttp.HandlerOpts{}))
	}

	// provider return URL, also reachable under the API prefix
	r.Get("/order-success", rt.Checkout.OrderSuccess)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/checkout", rt.Checkout.StartCheckout)
		r.Get("/order-success", rt.Checkout.OrderSuccess)

		r.Route("/orders/{orderID}", func(r chi.Router) {
			r.Get("/", rt.Checkout.GetOrder)
			r.Post("/pay", rt.Checkout.Pay)
			r.Post("/check", rt.Checkout.CheckStatus)
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/nowpayments", rt.Webhooks.NowPayments)
			r.Post("/chargily", rt.Webhooks.Chargily)
		})

		r.Route("/carts/{ownerID}", func(r chi.Router) {
			r.Get("/", rt.Carts.GetCart)
			r.Post("/items", rt.Carts.AddItem)
			r.Delete("/items/{itemID}", rt.Carts.RemoveItem)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", rt.Admin.Login)

			r.Group(func(r chi.Router) {
				r.Use(rt.Admin.RequireSession)

				r.Post("/logout", rt.Admin.Logout)
				r.Get("/orders", rt.Admin.ListOrders)
				r.Post("/orders/{orderID}/status", rt.Admin.SetStatus)
				r.Post("/orders/{orderID}/fulfill", rt.Admin.Fulfill)
				r.Post("/items/{itemID}/deliver", rt.Admin.DeliverItem)
				r.Get("/stock", rt.Admin.Stock)
				r.Post("/products/{productID}/codes", rt.Admin.ImportCodes)
			})
		})
	})

	return r
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	if rt.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.Ready(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
