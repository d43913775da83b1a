package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/feastly/marketplace/internal/domain"
	"github.com/feastly/marketplace/pkg/database"
	apperrors "github.com/feastly/marketplace/pkg/errors"
)

// GetReview loads a single review scoped to its product.
func (a *Adapter) GetReview(ctx context.Context, productID, reviewID string) (*domain.Review, error) {
	query := `
		SELECT id, product_id, user_id, title, body, stars
		FROM reviews
		WHERE product_id = $1 AND id = $2`

	ctx, end := database.TraceQuery(ctx, "postgresql", "GetReview", query)
	var r domain.Review
	err := a.pool.QueryRow(ctx, query, productID, reviewID).Scan(
		&r.ID, &r.ProductID, &r.UserID, &r.Title, &r.Body, &r.Stars)
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", reviewID)
		}
		return nil, fmt.Errorf("get review: %w", err)
	}

	return &r, nil
}

// CreateReview inserts a new review. A missing product surfaces as
// ErrNotFound via the foreign key.
func (a *Adapter) CreateReview(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (id, product_id, user_id, title, body, stars)
		VALUES ($1, $2, $3, $4, $5, $6)`

	ctx, end := database.TraceQuery(ctx, "postgresql", "CreateReview", query)
	_, err := a.pool.Exec(ctx, query,
		review.ID, review.ProductID, review.UserID, review.Title, review.Body, review.Stars)
	end(err)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.NotFound("product", review.ProductID)
		}
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// UpdateReview replaces the title, body and stars of an existing review.
func (a *Adapter) UpdateReview(ctx context.Context, review *domain.Review) error {
	query := `
		UPDATE reviews
		SET title = $1, body = $2, stars = $3
		WHERE product_id = $4 AND id = $5`

	ctx, end := database.TraceQuery(ctx, "postgresql", "UpdateReview", query)
	tag, err := a.pool.Exec(ctx, query,
		review.Title, review.Body, review.Stars, review.ProductID, review.ID)
	end(err)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("review", review.ID)
	}

	return nil
}

// DeleteReview removes a review scoped to its product.
func (a *Adapter) DeleteReview(ctx context.Context, productID, reviewID string) error {
	query := `DELETE FROM reviews WHERE product_id = $1 AND id = $2`

	ctx, end := database.TraceQuery(ctx, "postgresql", "DeleteReview", query)
	tag, err := a.pool.Exec(ctx, query, productID, reviewID)
	end(err)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("review", reviewID)
	}

	return nil
}
