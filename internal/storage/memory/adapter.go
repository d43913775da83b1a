// Package memory is an in-memory implementation of the storage adapter. It
// backs tests and local development, and exercises the exact semantics the
// database adapters must reproduce. Thread-safe via sync.RWMutex.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/feastly/marketplace/internal/domain"
	apperrors "github.com/feastly/marketplace/pkg/errors"
)

// Adapter implements storage.Adapter over in-memory maps.
type Adapter struct {
	mu sync.RWMutex

	categories  map[string]string // category id -> name
	restaurants map[string]domain.Restaurant
	products    map[string]domain.Product
	reviews     map[string]domain.Review // review id -> review
	orders      map[string]domain.Order
	users       map[string]domain.User

	expensiveThreshold float64
}

// NewAdapter creates an empty in-memory storage adapter.
func NewAdapter(expensiveThreshold float64) *Adapter {
	return &Adapter{
		categories:         make(map[string]string),
		restaurants:        make(map[string]domain.Restaurant),
		products:           make(map[string]domain.Product),
		reviews:            make(map[string]domain.Review),
		orders:             make(map[string]domain.Order),
		users:              make(map[string]domain.User),
		expensiveThreshold: expensiveThreshold,
	}
}

// --- Seeding ---

// PutCategory registers a restaurant category.
func (a *Adapter) PutCategory(id, name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.categories[id] = name
}

// PutRestaurant adds or replaces a restaurant.
func (a *Adapter) PutRestaurant(r domain.Restaurant) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.restaurants[r.ID] = r
}

// PutProduct adds or replaces a product.
func (a *Adapter) PutProduct(p domain.Product) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.products[p.ID] = p
}

// PutOrder adds or replaces an order.
func (a *Adapter) PutOrder(o domain.Order) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.orders[o.ID] = o
}

// PutUser adds or replaces a user.
func (a *Adapter) PutUser(u domain.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.users[u.ID] = u
}

// --- Restaurants ---

func (a *Adapter) hasProductAbove(restaurantID string, threshold float64) bool {
	for _, p := range a.products {
		if p.RestaurantID == restaurantID && p.Price > threshold {
			return true
		}
	}
	return false
}

// SearchRestaurants matches restaurants on every set filter field.
func (a *Adapter) SearchRestaurants(_ context.Context, filter domain.RestaurantFilter) ([]domain.Restaurant, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	matched := make([]domain.Restaurant, 0)
	for _, r := range a.restaurants {
		if filter.PostalCode != nil && r.PostalCode != *filter.PostalCode {
			continue
		}
		if filter.CategoryID != nil && r.CategoryID != *filter.CategoryID {
			continue
		}
		if filter.Expensive != nil && a.hasProductAbove(r.ID, a.expensiveThreshold) != *filter.Expensive {
			continue
		}
		r.CategoryName = a.categories[r.CategoryID]
		switch filter.SortBy {
		case domain.SortDeliveryTime:
			r.AvgDeliverySeconds = a.avgDuration(r.ID, func(o domain.Order) (time.Duration, bool) {
				return o.DeliveryDuration()
			})
		case domain.SortPreparationTime:
			r.AvgPreparationSeconds = a.avgDuration(r.ID, func(o domain.Order) (time.Duration, bool) {
				return o.PreparationDuration()
			})
		}
		matched = append(matched, r)
	}

	return matched, nil
}

func (a *Adapter) avgDuration(restaurantID string, sample func(domain.Order) (time.Duration, bool)) *float64 {
	var (
		total time.Duration
		n     int
	)
	for _, o := range a.orders {
		if o.RestaurantID != restaurantID {
			continue
		}
		if d, ok := sample(o); ok {
			total += d
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := total.Seconds() / float64(n)
	return &avg
}

// RestaurantsByIDs loads restaurants by id; missing ids are silently absent.
func (a *Adapter) RestaurantsByIDs(_ context.Context, ids []string) (map[string]domain.Restaurant, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make(map[string]domain.Restaurant, len(ids))
	for _, id := range ids {
		if r, ok := a.restaurants[id]; ok {
			r.CategoryName = a.categories[r.CategoryID]
			result[id] = r
		}
	}
	return result, nil
}

// ListRestaurantIDs returns every restaurant id in ascending order.
func (a *Adapter) ListRestaurantIDs(_ context.Context) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ids := make([]string, 0, len(a.restaurants))
	for id := range a.restaurants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// RevenueByRestaurantInWindow sums order prices per restaurant over orders
// created at or after windowStart. Restaurants without orders in the window
// are absent from the result.
func (a *Adapter) RevenueByRestaurantInWindow(_ context.Context, windowStart time.Time) ([]domain.RestaurantRevenue, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	sums := make(map[string]float64)
	for _, o := range a.orders {
		if o.CreatedAt.Before(windowStart) {
			continue
		}
		sums[o.RestaurantID] += o.Price
	}

	revenues := make([]domain.RestaurantRevenue, 0, len(sums))
	for id, sum := range sums {
		revenues = append(revenues, domain.RestaurantRevenue{RestaurantID: id, Revenue: sum})
	}
	return revenues, nil
}

// DeliveryDurations returns one sample per completed delivery, keyed by
// restaurant id. A non-empty restaurantID scopes the result.
func (a *Adapter) DeliveryDurations(_ context.Context, restaurantID string) (map[string][]domain.DeliverySample, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	samples := make(map[string][]domain.DeliverySample)
	for _, o := range a.orders {
		if o.SentAt == nil || o.DeliveredAt == nil {
			continue
		}
		if restaurantID != "" && o.RestaurantID != restaurantID {
			continue
		}
		samples[o.RestaurantID] = append(samples[o.RestaurantID], domain.DeliverySample{
			SentAt:      *o.SentAt,
			DeliveredAt: *o.DeliveredAt,
		})
	}
	return samples, nil
}

// RecomputeRestaurantAveragePrice recomputes averageProductPrice from the
// restaurant's current products. A restaurant with no products gets nil.
func (a *Adapter) RecomputeRestaurantAveragePrice(_ context.Context, restaurantID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, ok := a.restaurants[restaurantID]
	if !ok {
		return apperrors.NotFound("restaurant", restaurantID)
	}

	var (
		total float64
		n     int
	)
	for _, p := range a.products {
		if p.RestaurantID == restaurantID {
			total += p.Price
			n++
		}
	}

	if n == 0 {
		r.AverageProductPrice = nil
	} else {
		avg := total / float64(n)
		r.AverageProductPrice = &avg
	}
	a.restaurants[restaurantID] = r
	return nil
}

// --- Products ---

// SearchProducts returns products whose name or description contains query,
// case-insensitively.
func (a *Adapter) SearchProducts(_ context.Context, query string) ([]domain.Product, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	queryLower := strings.ToLower(query)
	matched := make([]domain.Product, 0)
	for _, p := range a.products {
		if strings.Contains(strings.ToLower(p.Name), queryLower) ||
			strings.Contains(strings.ToLower(p.Description), queryLower) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// GetProduct loads a single product by id.
func (a *Adapter) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	p, ok := a.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	return &p, nil
}

// RecomputeProductAverageStars recomputes averageStars from the product's
// current reviews. A product with no reviews gets nil, never zero.
func (a *Adapter) RecomputeProductAverageStars(_ context.Context, productID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.products[productID]
	if !ok {
		return apperrors.NotFound("product", productID)
	}

	var (
		total int
		n     int
	)
	for _, r := range a.reviews {
		if r.ProductID == productID {
			total += r.Stars
			n++
		}
	}

	if n == 0 {
		p.AverageStars = nil
	} else {
		avg := float64(total) / float64(n)
		p.AverageStars = &avg
	}
	a.products[productID] = p
	return nil
}

// --- Orders ---

// SearchOrders returns the given user's orders. A non-empty query keeps only
// orders containing at least one line item whose name contains it,
// case-insensitively.
func (a *Adapter) SearchOrders(_ context.Context, userID, query string) ([]domain.Order, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	queryLower := strings.ToLower(query)
	matched := make([]domain.Order, 0)
	for _, o := range a.orders {
		if o.UserID != userID {
			continue
		}
		if query == "" {
			matched = append(matched, o)
			continue
		}
		for _, item := range o.Items {
			if strings.Contains(strings.ToLower(item.Name), queryLower) {
				matched = append(matched, o)
				break
			}
		}
	}
	return matched, nil
}

// --- Users ---

// SearchUsers returns customers, restricted to a postal code when one is
// given.
func (a *Adapter) SearchUsers(_ context.Context, postalCode string) ([]domain.User, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	matched := make([]domain.User, 0)
	for _, u := range a.users {
		if u.UserType != domain.UserTypeCustomer {
			continue
		}
		if postalCode != "" && u.PostalCode != postalCode {
			continue
		}
		matched = append(matched, u)
	}
	return matched, nil
}

// TopCustomersBySpend returns up to limit customers ordered by lifetime
// spend descending, ties broken by ascending id.
func (a *Adapter) TopCustomersBySpend(_ context.Context, limit int) ([]domain.UserSpend, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	sums := make(map[string]float64)
	for _, o := range a.orders {
		sums[o.UserID] += o.Price
	}

	customers := make([]domain.UserSpend, 0, len(sums))
	for userID, sum := range sums {
		u, ok := a.users[userID]
		if !ok || u.UserType != domain.UserTypeCustomer {
			continue
		}
		customers = append(customers, domain.UserSpend{User: u, TotalSpent: sum})
	}

	sort.Slice(customers, func(i, j int) bool {
		if customers[i].TotalSpent != customers[j].TotalSpent {
			return customers[i].TotalSpent > customers[j].TotalSpent
		}
		return customers[i].ID < customers[j].ID
	})
	if len(customers) > limit {
		customers = customers[:limit]
	}
	return customers, nil
}

// --- Reviews ---

// GetReview loads a single review scoped to its product.
func (a *Adapter) GetReview(_ context.Context, productID, reviewID string) (*domain.Review, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	r, ok := a.reviews[reviewID]
	if !ok || r.ProductID != productID {
		return nil, apperrors.NotFound("review", reviewID)
	}
	return &r, nil
}

// CreateReview adds a review to an existing product.
func (a *Adapter) CreateReview(_ context.Context, review *domain.Review) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.products[review.ProductID]; !ok {
		return apperrors.NotFound("product", review.ProductID)
	}
	a.reviews[review.ID] = *review
	return nil
}

// UpdateReview replaces the title, body and stars of an existing review.
func (a *Adapter) UpdateReview(_ context.Context, review *domain.Review) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	existing, ok := a.reviews[review.ID]
	if !ok || existing.ProductID != review.ProductID {
		return apperrors.NotFound("review", review.ID)
	}
	existing.Title = review.Title
	existing.Body = review.Body
	existing.Stars = review.Stars
	a.reviews[review.ID] = existing
	return nil
}

// DeleteReview removes a review scoped to its product.
func (a *Adapter) DeleteReview(_ context.Context, productID, reviewID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	existing, ok := a.reviews[reviewID]
	if !ok || existing.ProductID != productID {
		return apperrors.NotFound("review", reviewID)
	}
	delete(a.reviews, reviewID)
	return nil
}
