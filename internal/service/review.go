package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/feastly/marketplace/internal/domain"
	"github.com/feastly/marketplace/internal/event"
	"github.com/feastly/marketplace/internal/storage"
	apperrors "github.com/feastly/marketplace/pkg/errors"
)

// ReviewService implements review writes. Every successful write triggers
// the aggregate maintainer synchronously, so averageStars is already fresh
// when the response goes out.
type ReviewService struct {
	store      storage.Adapter
	maintainer *AggregateMaintainer
	events     *event.Producer
	logger     *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(store storage.Adapter, maintainer *AggregateMaintainer, events *event.Producer, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		store:      store,
		maintainer: maintainer,
		events:     events,
		logger:     logger,
	}
}

// ReviewInput holds the writable fields of a review.
type ReviewInput struct {
	Title string `json:"title" validate:"required,max=255"`
	Body  string `json:"body" validate:"max=4000"`
	Stars int    `json:"stars" validate:"min=0,max=5"`
}

// CreateReview persists a new review by the given user. The review is kept
// even when the subsequent recompute fails; that failure surfaces as
// RecomputeFailed.
func (s *ReviewService) CreateReview(ctx context.Context, userID, productID string, input ReviewInput) (*domain.Review, error) {
	if !domain.ValidStars(input.Stars) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("stars must be between %d and %d", domain.MinStars, domain.MaxStars))
	}

	review := &domain.Review{
		ID:        uuid.New().String(),
		ProductID: productID,
		UserID:    userID,
		Title:     input.Title,
		Body:      input.Body,
		Stars:     input.Stars,
	}

	if err := s.store.CreateReview(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("product_id", productID),
		slog.Int("stars", input.Stars),
	)

	if err := s.events.PublishReviewCreated(ctx, review); err != nil {
		s.logger.WarnContext(ctx, "failed to publish review.created event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.maintainer.OnReviewChanged(ctx, productID); err != nil {
		return nil, err
	}

	return review, nil
}

// UpdateReview replaces the writable fields of the user's own review.
// Editing someone else's review is Forbidden.
func (s *ReviewService) UpdateReview(ctx context.Context, userID, productID, reviewID string, input ReviewInput) (*domain.Review, error) {
	if !domain.ValidStars(input.Stars) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("stars must be between %d and %d", domain.MinStars, domain.MaxStars))
	}

	existing, err := s.store.GetReview(ctx, productID, reviewID)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID {
		return nil, apperrors.Forbidden("review belongs to another user")
	}

	review := &domain.Review{
		ID:        reviewID,
		ProductID: productID,
		UserID:    existing.UserID,
		Title:     input.Title,
		Body:      input.Body,
		Stars:     input.Stars,
	}

	if err := s.store.UpdateReview(ctx, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", reviewID),
		slog.String("product_id", productID),
	)

	if err := s.events.PublishReviewUpdated(ctx, review); err != nil {
		s.logger.WarnContext(ctx, "failed to publish review.updated event",
			slog.String("review_id", reviewID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.maintainer.OnReviewChanged(ctx, productID); err != nil {
		return nil, err
	}

	return review, nil
}

// DeleteReview removes the user's own review.
func (s *ReviewService) DeleteReview(ctx context.Context, userID, productID, reviewID string) error {
	existing, err := s.store.GetReview(ctx, productID, reviewID)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return apperrors.Forbidden("review belongs to another user")
	}

	if err := s.store.DeleteReview(ctx, productID, reviewID); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", reviewID),
		slog.String("product_id", productID),
	)

	if err := s.events.PublishReviewDeleted(ctx, existing); err != nil {
		s.logger.WarnContext(ctx, "failed to publish review.deleted event",
			slog.String("review_id", reviewID),
			slog.String("error", err.Error()),
		)
	}

	return s.maintainer.OnReviewChanged(ctx, productID)
}
