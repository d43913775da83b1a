package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastly/marketplace/internal/domain"
	"github.com/feastly/marketplace/internal/storage"
	apperrors "github.com/feastly/marketplace/pkg/errors"
)

// brokenStarsStore fails every stars recompute, simulating a backend outage
// after the triggering write already persisted.
type brokenStarsStore struct {
	storage.Adapter
}

func (s *brokenStarsStore) RecomputeProductAverageStars(context.Context, string) error {
	return errors.New("connection reset")
}

func newTestMaintainer(store storage.Adapter) *AggregateMaintainer {
	return NewAggregateMaintainer(store, nil, newTestLogger())
}

func TestOnReviewChanged_RefreshesAverage(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateReview(ctx, &domain.Review{ID: "rev1", ProductID: "p1", UserID: "u1", Stars: 4}))

	m := newTestMaintainer(store)
	require.NoError(t, m.OnReviewChanged(ctx, "p1"))

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, p.AverageStars)
	assert.Equal(t, 4.0, *p.AverageStars)
}

func TestOnReviewChanged_MissingProduct(t *testing.T) {
	m := newTestMaintainer(seededStore(t))

	err := m.OnReviewChanged(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.False(t, errors.Is(err, apperrors.ErrRecomputeFailed), "a missing product is not a recompute failure")
}

func TestOnReviewChanged_BackendFailureIsRecomputeFailed(t *testing.T) {
	m := newTestMaintainer(&brokenStarsStore{Adapter: seededStore(t)})

	err := m.OnReviewChanged(context.Background(), "p1")
	assert.True(t, errors.Is(err, apperrors.ErrRecomputeFailed))
}

func TestOnProductChanged_RefreshesAverage(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	m := newTestMaintainer(store)
	require.NoError(t, m.OnProductChanged(ctx, "r1"))

	byID, err := store.RestaurantsByIDs(ctx, []string{"r1"})
	require.NoError(t, err)
	require.NotNil(t, byID["r1"].AverageProductPrice)
	assert.Equal(t, 12.0, *byID["r1"].AverageProductPrice)
}

func TestSweepRestaurants_ConvergesAllAggregates(t *testing.T) {
	store := seededStore(t)
	ctx := context.Background()

	m := newTestMaintainer(store)
	require.NoError(t, m.SweepRestaurants(ctx))

	byID, err := store.RestaurantsByIDs(ctx, []string{"r1", "r2", "r3"})
	require.NoError(t, err)
	for _, id := range []string{"r1", "r2", "r3"} {
		assert.NotNil(t, byID[id].AverageProductPrice, id)
	}
}
