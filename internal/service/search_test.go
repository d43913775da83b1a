package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastly/marketplace/internal/domain"
	"github.com/feastly/marketplace/internal/storage/memory"
	apperrors "github.com/feastly/marketplace/pkg/errors"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seededStore(t *testing.T) *memory.Adapter {
	t.Helper()
	store := memory.NewAdapter(100)

	store.PutCategory("c1", "Spanish")
	store.PutCategory("c2", "Italian")

	store.PutRestaurant(domain.Restaurant{ID: "r1", Name: "Casa Paco", PostalCode: "41010", CategoryID: "c1", Status: domain.RestaurantStatusOnline})
	store.PutRestaurant(domain.Restaurant{ID: "r2", Name: "Trattoria", PostalCode: "41010", CategoryID: "c2", Status: domain.RestaurantStatusOnline})
	store.PutRestaurant(domain.Restaurant{ID: "r3", Name: "Burgers", PostalCode: "41011", CategoryID: "c2", Status: domain.RestaurantStatusOffline})

	store.PutProduct(domain.Product{ID: "p1", RestaurantID: "r1", Name: "Paella mixta", Price: 12})
	store.PutProduct(domain.Product{ID: "p2", RestaurantID: "r2", Name: "Pizza paella fusion", Price: 14})
	store.PutProduct(domain.Product{ID: "p3", RestaurantID: "r3", Name: "Cheeseburger", Price: 9})

	store.PutUser(domain.User{ID: "u1", Name: "Ana", PostalCode: "41010", UserType: domain.UserTypeCustomer})
	store.PutUser(domain.User{ID: "u2", Name: "Bea", PostalCode: "41010", UserType: domain.UserTypeCustomer})

	return store
}

func TestSearchRestaurants_DefaultOrderIsAscendingID(t *testing.T) {
	svc := NewSearchService(seededStore(t), newTestLogger())

	restaurants, err := svc.SearchRestaurants(context.Background(), domain.RestaurantFilter{})
	require.NoError(t, err)
	require.Len(t, restaurants, 3)
	assert.Equal(t, "r1", restaurants[0].ID)
	assert.Equal(t, "r2", restaurants[1].ID)
	assert.Equal(t, "r3", restaurants[2].ID)
}

func TestSearchRestaurants_DeliveryTimeSortNilsLast(t *testing.T) {
	store := seededStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	put := func(id, restaurantID string, deliveryMinutes int) {
		sent := created.Add(10 * time.Minute)
		delivered := sent.Add(time.Duration(deliveryMinutes) * time.Minute)
		store.PutOrder(domain.Order{ID: id, RestaurantID: restaurantID, UserID: "u1", CreatedAt: created, SentAt: &sent, DeliveredAt: &delivered})
	}
	put("o1", "r2", 15)
	put("o2", "r1", 45)
	// r3 has no completed deliveries at all.

	svc := NewSearchService(store, newTestLogger())
	restaurants, err := svc.SearchRestaurants(context.Background(), domain.RestaurantFilter{SortBy: domain.SortDeliveryTime})
	require.NoError(t, err)
	require.Len(t, restaurants, 3)
	assert.Equal(t, "r2", restaurants[0].ID, "fastest first")
	assert.Equal(t, "r1", restaurants[1].ID)
	assert.Equal(t, "r3", restaurants[2].ID, "no data ranks last")
	assert.Nil(t, restaurants[2].AvgDeliverySeconds)
}

func TestSearchRestaurants_DurationTieBrokenByID(t *testing.T) {
	store := seededStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sent := created.Add(10 * time.Minute)
	delivered := sent.Add(30 * time.Minute)

	store.PutOrder(domain.Order{ID: "o1", RestaurantID: "r2", UserID: "u1", CreatedAt: created, SentAt: &sent, DeliveredAt: &delivered})
	store.PutOrder(domain.Order{ID: "o2", RestaurantID: "r1", UserID: "u1", CreatedAt: created, SentAt: &sent, DeliveredAt: &delivered})

	svc := NewSearchService(store, newTestLogger())
	restaurants, err := svc.SearchRestaurants(context.Background(), domain.RestaurantFilter{SortBy: domain.SortDeliveryTime})
	require.NoError(t, err)
	assert.Equal(t, "r1", restaurants[0].ID)
	assert.Equal(t, "r2", restaurants[1].ID)
}

func TestSearchProducts_SortedByID(t *testing.T) {
	svc := NewSearchService(seededStore(t), newTestLogger())

	products, err := svc.SearchProducts(context.Background(), "paella")
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "p1", products[0].ID)
	assert.Equal(t, "p2", products[1].ID)
}

func TestSearchProducts_NoMatchesEmptySlice(t *testing.T) {
	svc := NewSearchService(seededStore(t), newTestLogger())

	products, err := svc.SearchProducts(context.Background(), "sushi")
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestSearchOrders_RequiresUser(t *testing.T) {
	svc := NewSearchService(seededStore(t), newTestLogger())

	_, err := svc.SearchOrders(context.Background(), "", "paella")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidQuery))
}

func TestSearchOrders_OnlyOwnOrders(t *testing.T) {
	store := seededStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.PutOrder(domain.Order{ID: "o1", RestaurantID: "r1", UserID: "u1", CreatedAt: created,
		Items: []domain.OrderItem{{ProductID: "p1", Name: "Paella mixta", Quantity: 1}}})
	store.PutOrder(domain.Order{ID: "o2", RestaurantID: "r1", UserID: "u2", CreatedAt: created,
		Items: []domain.OrderItem{{ProductID: "p1", Name: "Paella mixta", Quantity: 2}}})

	svc := NewSearchService(store, newTestLogger())
	orders, err := svc.SearchOrders(context.Background(), "u1", "paella")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o1", orders[0].ID)
}

func TestSearchUsers_EmptyPostalCodeReturnsAllCustomers(t *testing.T) {
	store := seededStore(t)
	store.PutUser(domain.User{ID: "u3", Name: "Carmen", PostalCode: "41013", UserType: domain.UserTypeCustomer})

	svc := NewSearchService(store, newTestLogger())
	users, err := svc.SearchUsers(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "u3", users[2].ID)
}

func TestSearchUsers_SortedByID(t *testing.T) {
	svc := NewSearchService(seededStore(t), newTestLogger())

	users, err := svc.SearchUsers(context.Background(), "41010")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u1", users[0].ID)
	assert.Equal(t, "u2", users[1].ID)
}
