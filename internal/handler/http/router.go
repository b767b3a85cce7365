package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/ShoppingGo/pkg/health"
	"github.com/utafrali/ShoppingGo/pkg/middleware"

	"github.com/utafrali/ShoppingGo/internal/service"
)

const serviceName = "shopping"

// RouterDeps carries everything the router needs.
type RouterDeps struct {
	Carts     *service.CartService
	Inventory *service.InventoryService
	Shopping  *service.ShoppingService
	Health    *health.Handler
	Logger    *slog.Logger
}

// NewRouter builds the service's HTTP routes with the standard middleware
// chain.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.CORS)
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.RequestLogging(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))

	r.Get("/health/live", deps.Health.LivenessHandler())
	r.Get("/health/ready", deps.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	cartHandler := NewCartHandler(deps.Carts, deps.Logger)
	inventoryHandler := NewInventoryHandler(deps.Inventory, deps.Logger)
	shoppingHandler := NewShoppingHandler(deps.Shopping, deps.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/carts/{userID}", func(r chi.Router) {
			r.Get("/", cartHandler.Get)
			r.Post("/items", cartHandler.AddItem)
			r.Delete("/items/{productID}", cartHandler.RemoveItem)
		})

		r.Route("/inventory/{productID}", func(r chi.Router) {
			r.Get("/availability", inventoryHandler.GetAvailability)
			r.Post("/add", inventoryHandler.AddQuantity)
			r.Post("/remove", inventoryHandler.RemoveQuantity)
		})

		r.Route("/shopping/{userID}", func(r chi.Router) {
			r.Get("/cart", shoppingHandler.GetConsolidatedCart)
			r.Post("/reserve", shoppingHandler.ReserveCartItems)
			r.Post("/confirm", shoppingHandler.ConfirmOrder)
			r.Post("/cancel", shoppingHandler.CancelOrder)
		})
	})

	return r
}
