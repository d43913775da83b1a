package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feastly/marketplace/internal/storage"
	apperrors "github.com/feastly/marketplace/pkg/errors"
)

func newReviewService(store storage.Adapter) *ReviewService {
	return NewReviewService(store, NewAggregateMaintainer(store, nil, newTestLogger()), nil, newTestLogger())
}

func TestCreateReview_PersistsAndRefreshesStars(t *testing.T) {
	store := seededStore(t)
	svc := newReviewService(store)
	ctx := context.Background()

	review, err := svc.CreateReview(ctx, "u1", "p1", ReviewInput{Title: "Great", Stars: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, review.ID)
	assert.Equal(t, "u1", review.UserID)

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, p.AverageStars)
	assert.Equal(t, 5.0, *p.AverageStars)
}

func TestCreateReview_ZeroStarsIsValid(t *testing.T) {
	store := seededStore(t)
	svc := newReviewService(store)
	ctx := context.Background()

	_, err := svc.CreateReview(ctx, "u1", "p1", ReviewInput{Title: "Awful", Stars: 0})
	require.NoError(t, err)

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, p.AverageStars, "an average of zero is a value, not an absence")
	assert.Equal(t, 0.0, *p.AverageStars)
}

func TestCreateReview_StarsOutOfRange(t *testing.T) {
	svc := newReviewService(seededStore(t))

	_, err := svc.CreateReview(context.Background(), "u1", "p1", ReviewInput{Stars: 6})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = svc.CreateReview(context.Background(), "u1", "p1", ReviewInput{Stars: -1})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestCreateReview_ProductNotFound(t *testing.T) {
	svc := newReviewService(seededStore(t))

	_, err := svc.CreateReview(context.Background(), "u1", "missing", ReviewInput{Stars: 3})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestCreateReview_RecomputeFailureKeepsReview(t *testing.T) {
	store := seededStore(t)
	broken := &brokenStarsStore{Adapter: store}
	svc := newReviewService(broken)
	ctx := context.Background()

	_, err := svc.CreateReview(ctx, "u1", "p1", ReviewInput{Title: "Kept", Stars: 4})
	require.True(t, errors.Is(err, apperrors.ErrRecomputeFailed))

	// The review survived the failed recompute: a recompute through the
	// healthy store picks it up.
	require.NoError(t, store.RecomputeProductAverageStars(ctx, "p1"))
	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, p.AverageStars)
	assert.Equal(t, 4.0, *p.AverageStars)
}

func TestUpdateReview_OwnershipEnforced(t *testing.T) {
	store := seededStore(t)
	svc := newReviewService(store)
	ctx := context.Background()

	created, err := svc.CreateReview(ctx, "u1", "p1", ReviewInput{Title: "Mine", Stars: 5})
	require.NoError(t, err)

	_, err = svc.UpdateReview(ctx, "u2", "p1", created.ID, ReviewInput{Title: "Hijacked", Stars: 1})
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	updated, err := svc.UpdateReview(ctx, "u1", "p1", created.ID, ReviewInput{Title: "Edited", Stars: 3})
	require.NoError(t, err)
	assert.Equal(t, "Edited", updated.Title)

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3.0, *p.AverageStars)
}

func TestUpdateReview_NotFound(t *testing.T) {
	svc := newReviewService(seededStore(t))

	_, err := svc.UpdateReview(context.Background(), "u1", "p1", "missing", ReviewInput{Stars: 3})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestDeleteReview_ReturnsAverageToNil(t *testing.T) {
	store := seededStore(t)
	svc := newReviewService(store)
	ctx := context.Background()

	created, err := svc.CreateReview(ctx, "u1", "p1", ReviewInput{Title: "Only one", Stars: 2})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteReview(ctx, "u1", "p1", created.ID))

	p, err := store.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, p.AverageStars, "deleting the last review clears the average back to null")
}

func TestDeleteReview_OwnershipEnforced(t *testing.T) {
	store := seededStore(t)
	svc := newReviewService(store)
	ctx := context.Background()

	created, err := svc.CreateReview(ctx, "u1", "p1", ReviewInput{Stars: 4})
	require.NoError(t, err)

	err = svc.DeleteReview(ctx, "u2", "p1", created.ID)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
}
