// Package storage defines the backend-agnostic adapter boundary. Every
// backend (Postgres, Mongo, in-memory) implements Adapter with identical
// observable semantics: given the same logical data and the same call, each
// backend returns the same normalized result.
package storage

import (
	"context"
	"time"

	"github.com/feastly/marketplace/internal/domain"
)

// Adapter is the storage contract the services depend on. Implementations
// may push filtering and grouping down to the backend, but the services
// apply the final deterministic ordering themselves, so adapters only need
// to return correct sets, not correct orders.
type Adapter interface {
	// SearchRestaurants returns restaurants matching every set filter
	// field. When filter.SortBy requests a duration sort, the adapter
	// populates the matching Avg*Seconds field on each restaurant (nil for
	// restaurants with no qualifying orders).
	SearchRestaurants(ctx context.Context, filter domain.RestaurantFilter) ([]domain.Restaurant, error)

	// SearchProducts returns products whose name or description contains
	// query, case-insensitively. An empty query matches everything.
	SearchProducts(ctx context.Context, query string) ([]domain.Product, error)

	// SearchOrders returns the given user's orders containing at least one
	// line item whose name contains query, case-insensitively. Orders of
	// other users are never returned.
	SearchOrders(ctx context.Context, userID, query string) ([]domain.Order, error)

	// SearchUsers returns customers, restricted to the given postal code
	// when it is non-empty. Owner accounts and credential fields are never
	// returned.
	SearchUsers(ctx context.Context, postalCode string) ([]domain.User, error)

	// TopCustomersBySpend returns up to limit customers ordered by total
	// lifetime spend descending, ties broken by ascending id. Customers
	// with no orders are excluded.
	TopCustomersBySpend(ctx context.Context, limit int) ([]domain.UserSpend, error)

	// RevenueByRestaurantInWindow sums order prices per restaurant over
	// orders created at or after windowStart. Restaurants with no orders in
	// the window are absent from the result.
	RevenueByRestaurantInWindow(ctx context.Context, windowStart time.Time) ([]domain.RestaurantRevenue, error)

	// DeliveryDurations returns one sample per completed delivery
	// (both sentAt and deliveredAt present), keyed by restaurant id. A
	// non-empty restaurantID scopes the result to that restaurant.
	DeliveryDurations(ctx context.Context, restaurantID string) (map[string][]domain.DeliverySample, error)

	// RestaurantsByIDs loads restaurants by id. Missing ids are silently
	// absent from the result.
	RestaurantsByIDs(ctx context.Context, ids []string) (map[string]domain.Restaurant, error)

	// ListRestaurantIDs returns every restaurant id, for startup sweeps.
	ListRestaurantIDs(ctx context.Context) ([]string, error)

	// GetProduct loads a single product. Returns ErrNotFound when absent.
	GetProduct(ctx context.Context, id string) (*domain.Product, error)

	// RecomputeRestaurantAveragePrice recomputes averageProductPrice from
	// the restaurant's current products and persists it. A restaurant with
	// no products gets nil. Returns ErrNotFound when the restaurant does
	// not exist.
	RecomputeRestaurantAveragePrice(ctx context.Context, restaurantID string) error

	// RecomputeProductAverageStars recomputes averageStars from the
	// product's current reviews and persists it. A product with no reviews
	// gets nil, never zero. Returns ErrNotFound when the product does not
	// exist.
	RecomputeProductAverageStars(ctx context.Context, productID string) error

	// GetReview loads a single review. Returns ErrNotFound when absent.
	GetReview(ctx context.Context, productID, reviewID string) (*domain.Review, error)

	// CreateReview persists a new review for the product. Returns
	// ErrNotFound when the product does not exist.
	CreateReview(ctx context.Context, review *domain.Review) error

	// UpdateReview replaces the title, body and stars of an existing
	// review. Returns ErrNotFound when the product or review is absent.
	UpdateReview(ctx context.Context, review *domain.Review) error

	// DeleteReview removes a review. Returns ErrNotFound when the product
	// or review is absent.
	DeleteReview(ctx context.Context, productID, reviewID string) error
}
