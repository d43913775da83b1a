package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/feastly/marketplace/internal/event"
	"github.com/feastly/marketplace/internal/storage"
	apperrors "github.com/feastly/marketplace/pkg/errors"
)

// AggregateMaintainer keeps the derived fields consistent with their source
// records: restaurant.averageProductPrice with the restaurant's products,
// and product.averageStars with the product's reviews. Derived values are
// always recomputed from scratch, never incremented, so a missed trigger
// heals on the next one.
type AggregateMaintainer struct {
	store  storage.Adapter
	events *event.Producer
	logger *slog.Logger
}

// NewAggregateMaintainer creates a new aggregate maintainer.
func NewAggregateMaintainer(store storage.Adapter, events *event.Producer, logger *slog.Logger) *AggregateMaintainer {
	return &AggregateMaintainer{
		store:  store,
		events: events,
		logger: logger,
	}
}

// OnReviewChanged refreshes the product's averageStars after any review
// write. The triggering write has already been persisted; a failure here
// surfaces as RecomputeFailed and never rolls it back.
func (m *AggregateMaintainer) OnReviewChanged(ctx context.Context, productID string) error {
	if err := m.store.RecomputeProductAverageStars(ctx, productID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		m.logger.ErrorContext(ctx, "average stars recompute failed",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		return apperrors.RecomputeFailed("product", productID, err)
	}

	if err := m.events.PublishAggregateRecomputed(ctx, event.AggregateTypeProduct, productID, "review"); err != nil {
		m.logger.WarnContext(ctx, "failed to publish aggregate.recomputed event",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// OnProductChanged refreshes the restaurant's averageProductPrice after any
// product write.
func (m *AggregateMaintainer) OnProductChanged(ctx context.Context, restaurantID string) error {
	if err := m.store.RecomputeRestaurantAveragePrice(ctx, restaurantID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		m.logger.ErrorContext(ctx, "average price recompute failed",
			slog.String("restaurant_id", restaurantID),
			slog.String("error", err.Error()),
		)
		return apperrors.RecomputeFailed("restaurant", restaurantID, err)
	}

	if err := m.events.PublishAggregateRecomputed(ctx, event.AggregateTypeRestaurant, restaurantID, "product"); err != nil {
		m.logger.WarnContext(ctx, "failed to publish aggregate.recomputed event",
			slog.String("restaurant_id", restaurantID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// SweepRestaurants recomputes every restaurant's averageProductPrice. Run at
// startup, it converges any aggregates that drifted while the service was
// down. Individual failures are logged and skipped; the sweep keeps going.
func (m *AggregateMaintainer) SweepRestaurants(ctx context.Context) error {
	ids, err := m.store.ListRestaurantIDs(ctx)
	if err != nil {
		return fmt.Errorf("list restaurants for sweep: %w", err)
	}

	var failed int
	for _, id := range ids {
		if err := m.store.RecomputeRestaurantAveragePrice(ctx, id); err != nil {
			failed++
			m.logger.WarnContext(ctx, "sweep recompute failed",
				slog.String("restaurant_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	m.logger.InfoContext(ctx, "restaurant aggregate sweep completed",
		slog.Int("total", len(ids)),
		slog.Int("failed", failed),
	)

	return nil
}
