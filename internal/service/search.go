package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/feastly/marketplace/internal/domain"
	"github.com/feastly/marketplace/internal/storage"
	apperrors "github.com/feastly/marketplace/pkg/errors"
)

// SearchService implements the search operations. Whatever order a backend
// yields, the service applies a final deterministic ordering so every
// backend produces byte-identical results.
type SearchService struct {
	store  storage.Adapter
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(store storage.Adapter, logger *slog.Logger) *SearchService {
	return &SearchService{
		store:  store,
		logger: logger,
	}
}

// SearchRestaurants returns restaurants matching the filter. Duration sorts
// order ascending by the mean duration with restaurants lacking qualifying
// orders last; every sort breaks ties by ascending id.
func (s *SearchService) SearchRestaurants(ctx context.Context, filter domain.RestaurantFilter) ([]domain.Restaurant, error) {
	restaurants, err := s.store.SearchRestaurants(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search restaurants: %w", err)
	}

	switch filter.SortBy {
	case domain.SortDeliveryTime:
		sortByDuration(restaurants, func(r *domain.Restaurant) *float64 { return r.AvgDeliverySeconds })
	case domain.SortPreparationTime:
		sortByDuration(restaurants, func(r *domain.Restaurant) *float64 { return r.AvgPreparationSeconds })
	default:
		sort.Slice(restaurants, func(i, j int) bool { return restaurants[i].ID < restaurants[j].ID })
	}

	s.logger.DebugContext(ctx, "restaurant search completed",
		slog.Int("count", len(restaurants)),
		slog.String("sort_by", string(filter.SortBy)),
	)

	if restaurants == nil {
		restaurants = []domain.Restaurant{}
	}
	return restaurants, nil
}

// sortByDuration orders ascending on the duration key, nils last, ties by
// ascending id.
func sortByDuration(restaurants []domain.Restaurant, key func(*domain.Restaurant) *float64) {
	sort.Slice(restaurants, func(i, j int) bool {
		a, b := key(&restaurants[i]), key(&restaurants[j])
		switch {
		case a == nil && b == nil:
			return restaurants[i].ID < restaurants[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a < *b
		default:
			return restaurants[i].ID < restaurants[j].ID
		}
	})
}

// SearchProducts returns products whose name or description contains query.
// An empty query matches everything.
func (s *SearchService) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	products, err := s.store.SearchProducts(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}

	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })

	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

// SearchOrders returns the authenticated user's orders, narrowed to those
// with a matching line item when query is non-empty. The user scope is
// mandatory: an empty userID is a query error, never an unscoped search.
func (s *SearchService) SearchOrders(ctx context.Context, userID, query string) ([]domain.Order, error) {
	if userID == "" {
		return nil, apperrors.InvalidQuery("order search requires an authenticated user")
	}

	orders, err := s.store.SearchOrders(ctx, userID, strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("search orders: %w", err)
	}

	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })

	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// SearchUsers returns customers, restricted to a postal code when one is
// given.
func (s *SearchService) SearchUsers(ctx context.Context, postalCode string) ([]domain.User, error) {
	users, err := s.store.SearchUsers(ctx, strings.TrimSpace(postalCode))
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}
