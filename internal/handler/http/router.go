package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/feastly/marketplace/internal/service"
	"github.com/feastly/marketplace/pkg/health"
	"github.com/feastly/marketplace/pkg/middleware"
)

// NewRouter creates a chi router with all marketplace query routes
// registered.
func NewRouter(
	searchService *service.SearchService,
	rankingService *service.RankingService,
	reviewService *service.ReviewService,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("marketplace"))
	r.Use(middleware.Tracing("marketplace-query"))
	r.Use(middleware.Identity())
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	restaurantHandler := NewRestaurantHandler(searchService, rankingService, logger)
	productHandler := NewProductHandler(searchService, logger)
	orderHandler := NewOrderHandler(searchService, logger)
	userHandler := NewUserHandler(searchService, rankingService, logger)
	reviewHandler := NewReviewHandler(reviewService, logger)

	r.Route("/restaurants", func(r chi.Router) {
		r.Get("/search", restaurantHandler.Search)
		r.Get("/top", restaurantHandler.Top)
		r.Get("/topDeliverers", restaurantHandler.TopDeliverers)
		r.Get("/bottomDeliverers", restaurantHandler.BottomDeliverers)
	})

	r.Get("/products/search", productHandler.Search)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(middleware.RoleCustomer))
		r.Get("/orders/search", orderHandler.Search)

		r.Post("/products/{productID}/reviews", reviewHandler.Create)
		r.Put("/products/{productID}/reviews/{reviewID}", reviewHandler.Update)
		r.Delete("/products/{productID}/reviews/{reviewID}", reviewHandler.Delete)
	})

	r.Get("/users/search", userHandler.Search)
	r.Get("/users/top", userHandler.Top)

	return r
}
