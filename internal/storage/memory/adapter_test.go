package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastly/marketplace/internal/domain"
	apperrors "github.com/feastly/marketplace/pkg/errors"
)

func seeded(t *testing.T) *Adapter {
	t.Helper()
	a := NewAdapter(100)

	a.PutCategory("c1", "Spanish")
	a.PutCategory("c2", "Italian")

	a.PutRestaurant(domain.Restaurant{ID: "r1", Name: "Casa Paco", PostalCode: "41010", CategoryID: "c1", Status: domain.RestaurantStatusOnline})
	a.PutRestaurant(domain.Restaurant{ID: "r2", Name: "Trattoria", PostalCode: "41011", CategoryID: "c2", Status: domain.RestaurantStatusOnline})

	a.PutProduct(domain.Product{ID: "p1", RestaurantID: "r1", Name: "Paella mixta", Price: 150})
	a.PutProduct(domain.Product{ID: "p2", RestaurantID: "r1", Name: "Tortilla", Price: 8})
	a.PutProduct(domain.Product{ID: "p3", RestaurantID: "r2", Name: "Pizza margherita", Price: 10})

	a.PutUser(domain.User{ID: "u1", Name: "Ana", PostalCode: "41010", UserType: domain.UserTypeCustomer})
	a.PutUser(domain.User{ID: "u2", Name: "Bea", PostalCode: "41010", UserType: domain.UserTypeCustomer})
	a.PutUser(domain.User{ID: "u3", Name: "Olga", PostalCode: "41010", UserType: domain.UserTypeOwner})

	return a
}

func TestSearchRestaurants_PostalCodeAndCategory(t *testing.T) {
	a := seeded(t)
	pc := "41010"

	restaurants, err := a.SearchRestaurants(context.Background(), domain.RestaurantFilter{PostalCode: &pc})
	require.NoError(t, err)
	require.Len(t, restaurants, 1)
	assert.Equal(t, "r1", restaurants[0].ID)
	assert.Equal(t, "Spanish", restaurants[0].CategoryName)
}

func TestSearchRestaurants_ExpensiveFilter(t *testing.T) {
	a := seeded(t)

	expensive := true
	restaurants, err := a.SearchRestaurants(context.Background(), domain.RestaurantFilter{Expensive: &expensive})
	require.NoError(t, err)
	require.Len(t, restaurants, 1)
	assert.Equal(t, "r1", restaurants[0].ID, "only r1 has a product above the threshold")

	expensive = false
	restaurants, err = a.SearchRestaurants(context.Background(), domain.RestaurantFilter{Expensive: &expensive})
	require.NoError(t, err)
	require.Len(t, restaurants, 1)
	assert.Equal(t, "r2", restaurants[0].ID)
}

func TestSearchRestaurants_DeliveryTimeSortPopulatesAverages(t *testing.T) {
	a := seeded(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sent := created.Add(10 * time.Minute)
	delivered := sent.Add(30 * time.Minute)

	a.PutOrder(domain.Order{ID: "o1", RestaurantID: "r1", UserID: "u1", Price: 20, CreatedAt: created, SentAt: &sent, DeliveredAt: &delivered})
	// r2's order was never delivered, so it must have no average.
	a.PutOrder(domain.Order{ID: "o2", RestaurantID: "r2", UserID: "u1", Price: 15, CreatedAt: created, SentAt: &sent})

	restaurants, err := a.SearchRestaurants(context.Background(), domain.RestaurantFilter{SortBy: domain.SortDeliveryTime})
	require.NoError(t, err)
	require.Len(t, restaurants, 2)

	byID := map[string]domain.Restaurant{}
	for _, r := range restaurants {
		byID[r.ID] = r
	}
	require.NotNil(t, byID["r1"].AvgDeliverySeconds)
	assert.Equal(t, 1800.0, *byID["r1"].AvgDeliverySeconds)
	assert.Nil(t, byID["r2"].AvgDeliverySeconds)
}

func TestSearchProducts_CaseInsensitive(t *testing.T) {
	a := seeded(t)

	products, err := a.SearchProducts(context.Background(), "PAELLA")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ID)
}

func TestSearchProducts_MatchesDescription(t *testing.T) {
	a := seeded(t)
	a.PutProduct(domain.Product{ID: "p4", RestaurantID: "r2", Name: "Calzone", Description: "Folded pizza with ricotta", Price: 12})

	products, err := a.SearchProducts(context.Background(), "ricotta")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p4", products[0].ID)
}

func TestSearchOrders_ScopedToUser(t *testing.T) {
	a := seeded(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a.PutOrder(domain.Order{ID: "o1", RestaurantID: "r1", UserID: "u1", CreatedAt: created,
		Items: []domain.OrderItem{{ProductID: "p1", Name: "Paella mixta", UnitPrice: 9.75, Quantity: 2}}})
	a.PutOrder(domain.Order{ID: "o2", RestaurantID: "r1", UserID: "u2", CreatedAt: created,
		Items: []domain.OrderItem{{ProductID: "p1", Name: "Paella mixta", UnitPrice: 9.75, Quantity: 1}}})

	orders, err := a.SearchOrders(context.Background(), "u1", "paella")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o1", orders[0].ID, "u2's matching order must never leak")
}

func TestSearchOrders_EmptyQueryReturnsAllForUser(t *testing.T) {
	a := seeded(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a.PutOrder(domain.Order{ID: "o1", RestaurantID: "r1", UserID: "u1", CreatedAt: created,
		Items: []domain.OrderItem{{ProductID: "p1", Name: "Paella mixta", UnitPrice: 9.75, Quantity: 2}}})
	// No line items at all: an empty query must still return it.
	a.PutOrder(domain.Order{ID: "o2", RestaurantID: "r1", UserID: "u1", CreatedAt: created})
	a.PutOrder(domain.Order{ID: "o3", RestaurantID: "r1", UserID: "u2", CreatedAt: created})

	orders, err := a.SearchOrders(context.Background(), "u1", "")
	require.NoError(t, err)
	require.Len(t, orders, 2)
}

func TestSearchUsers_ExcludesOwners(t *testing.T) {
	a := seeded(t)

	users, err := a.SearchUsers(context.Background(), "41010")
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.Equal(t, domain.UserTypeCustomer, u.UserType)
	}
}

func TestSearchUsers_EmptyPostalCodeReturnsAllCustomers(t *testing.T) {
	a := seeded(t)
	a.PutUser(domain.User{ID: "u4", Name: "Dora", PostalCode: "41013", UserType: domain.UserTypeCustomer})

	users, err := a.SearchUsers(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, users, 3)
	for _, u := range users {
		assert.Equal(t, domain.UserTypeCustomer, u.UserType)
	}
}

func TestTopCustomersBySpend_OrderAndTieBreak(t *testing.T) {
	a := seeded(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a.PutOrder(domain.Order{ID: "o1", RestaurantID: "r1", UserID: "u1", Price: 50, CreatedAt: created})
	a.PutOrder(domain.Order{ID: "o2", RestaurantID: "r1", UserID: "u2", Price: 30, CreatedAt: created})
	a.PutOrder(domain.Order{ID: "o3", RestaurantID: "r2", UserID: "u2", Price: 20, CreatedAt: created})

	customers, err := a.TopCustomersBySpend(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	// Equal totals: ascending id decides.
	assert.Equal(t, "u1", customers[0].ID)
	assert.Equal(t, "u2", customers[1].ID)
	assert.Equal(t, 50.0, customers[0].TotalSpent)
}

func TestTopCustomersBySpend_NoOrdersNoEntry(t *testing.T) {
	a := seeded(t)

	customers, err := a.TopCustomersBySpend(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, customers)
}

func TestRevenueByRestaurantInWindow_ExcludesOlderOrders(t *testing.T) {
	a := seeded(t)
	windowStart := time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC)

	a.PutOrder(domain.Order{ID: "o1", RestaurantID: "r1", UserID: "u1", Price: 40, CreatedAt: windowStart.Add(time.Hour)})
	a.PutOrder(domain.Order{ID: "o2", RestaurantID: "r1", UserID: "u1", Price: 10, CreatedAt: windowStart})
	a.PutOrder(domain.Order{ID: "o3", RestaurantID: "r2", UserID: "u2", Price: 99, CreatedAt: windowStart.Add(-time.Second)})

	revenues, err := a.RevenueByRestaurantInWindow(context.Background(), windowStart)
	require.NoError(t, err)
	require.Len(t, revenues, 1, "r2's pre-window order excludes it entirely")
	assert.Equal(t, "r1", revenues[0].RestaurantID)
	assert.Equal(t, 50.0, revenues[0].Revenue)
}

func TestRecomputeRestaurantAveragePrice(t *testing.T) {
	a := seeded(t)

	err := a.RecomputeRestaurantAveragePrice(context.Background(), "r1")
	require.NoError(t, err)

	byID, err := a.RestaurantsByIDs(context.Background(), []string{"r1"})
	require.NoError(t, err)
	require.NotNil(t, byID["r1"].AverageProductPrice)
	assert.Equal(t, 79.0, *byID["r1"].AverageProductPrice)
}

func TestRecomputeRestaurantAveragePrice_Idempotent(t *testing.T) {
	a := seeded(t)
	ctx := context.Background()

	require.NoError(t, a.RecomputeRestaurantAveragePrice(ctx, "r1"))
	require.NoError(t, a.RecomputeRestaurantAveragePrice(ctx, "r1"))

	byID, err := a.RestaurantsByIDs(ctx, []string{"r1"})
	require.NoError(t, err)
	assert.Equal(t, 79.0, *byID["r1"].AverageProductPrice)
}

func TestRecomputeRestaurantAveragePrice_NoProductsNil(t *testing.T) {
	a := seeded(t)
	a.PutRestaurant(domain.Restaurant{ID: "r3", Name: "Empty", CategoryID: "c1"})

	require.NoError(t, a.RecomputeRestaurantAveragePrice(context.Background(), "r3"))

	byID, err := a.RestaurantsByIDs(context.Background(), []string{"r3"})
	require.NoError(t, err)
	assert.Nil(t, byID["r3"].AverageProductPrice)
}

func TestRecomputeRestaurantAveragePrice_NotFound(t *testing.T) {
	a := seeded(t)
	err := a.RecomputeRestaurantAveragePrice(context.Background(), "nope")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestReviewLifecycleAndAverageStars(t *testing.T) {
	a := seeded(t)
	ctx := context.Background()

	// No reviews: average is nil, not zero.
	p, err := a.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, p.AverageStars)

	// A zero-star review yields an average of 0, distinct from nil.
	require.NoError(t, a.CreateReview(ctx, &domain.Review{ID: "rev1", ProductID: "p1", UserID: "u1", Stars: 0}))
	require.NoError(t, a.RecomputeProductAverageStars(ctx, "p1"))
	p, err = a.GetProduct(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, p.AverageStars)
	assert.Equal(t, 0.0, *p.AverageStars)

	// Deleting the only review returns the average to nil.
	require.NoError(t, a.DeleteReview(ctx, "p1", "rev1"))
	require.NoError(t, a.RecomputeProductAverageStars(ctx, "p1"))
	p, err = a.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, p.AverageStars)

	// Two reviews average; an update shifts the mean.
	require.NoError(t, a.CreateReview(ctx, &domain.Review{ID: "rev2", ProductID: "p1", UserID: "u1", Stars: 5}))
	require.NoError(t, a.CreateReview(ctx, &domain.Review{ID: "rev3", ProductID: "p1", UserID: "u2", Stars: 2}))
	require.NoError(t, a.RecomputeProductAverageStars(ctx, "p1"))
	p, _ = a.GetProduct(ctx, "p1")
	assert.Equal(t, 3.5, *p.AverageStars)

	require.NoError(t, a.UpdateReview(ctx, &domain.Review{ID: "rev3", ProductID: "p1", Stars: 3}))
	require.NoError(t, a.RecomputeProductAverageStars(ctx, "p1"))
	p, _ = a.GetProduct(ctx, "p1")
	assert.Equal(t, 4.0, *p.AverageStars)

	require.NoError(t, a.DeleteReview(ctx, "p1", "rev3"))
	require.NoError(t, a.RecomputeProductAverageStars(ctx, "p1"))
	p, _ = a.GetProduct(ctx, "p1")
	assert.Equal(t, 5.0, *p.AverageStars)
}

func TestCreateReview_ProductNotFound(t *testing.T) {
	a := seeded(t)
	err := a.CreateReview(context.Background(), &domain.Review{ID: "rev1", ProductID: "missing", Stars: 4})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestUpdateReview_WrongProductScope(t *testing.T) {
	a := seeded(t)
	ctx := context.Background()

	require.NoError(t, a.CreateReview(ctx, &domain.Review{ID: "rev1", ProductID: "p1", Stars: 4}))

	err := a.UpdateReview(ctx, &domain.Review{ID: "rev1", ProductID: "p2", Stars: 1})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestDeliveryDurations_OnlyCompleted(t *testing.T) {
	a := seeded(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sent := created.Add(10 * time.Minute)
	delivered := sent.Add(20 * time.Minute)

	a.PutOrder(domain.Order{ID: "o1", RestaurantID: "r1", UserID: "u1", CreatedAt: created, SentAt: &sent, DeliveredAt: &delivered})
	a.PutOrder(domain.Order{ID: "o2", RestaurantID: "r1", UserID: "u1", CreatedAt: created, SentAt: &sent})

	samples, err := a.DeliveryDurations(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, samples["r1"], 1)
	assert.Equal(t, 20*time.Minute, samples["r1"][0].Duration())

	scoped, err := a.DeliveryDurations(context.Background(), "r2")
	require.NoError(t, err)
	assert.Empty(t, scoped)
}
