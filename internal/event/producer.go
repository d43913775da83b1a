package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/feastly/marketplace/internal/domain"
	pkgkafka "github.com/feastly/marketplace/pkg/kafka"
)

// Kafka topic constants for marketplace domain events.
const (
	TopicReviewCreated       = "marketplace.review.created"
	TopicReviewUpdated       = "marketplace.review.updated"
	TopicReviewDeleted       = "marketplace.review.deleted"
	TopicAggregateRecomputed = "marketplace.aggregate.recomputed"
)

// Aggregate type constants.
const (
	AggregateTypeReview     = "review"
	AggregateTypeRestaurant = "restaurant"
	AggregateTypeProduct    = "product"
)

// Source identifier for events originating from this service.
const SourceMarketplace = "marketplace-query"

// ReviewData is the payload for review lifecycle events.
type ReviewData struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Stars     int    `json:"stars"`
}

// RecomputedData is the payload for an aggregate.recomputed event.
type RecomputedData struct {
	AggregateType string `json:"aggregate_type"`
	AggregateID   string `json:"aggregate_id"`
	Trigger       string `json:"trigger"`
}

// Producer publishes marketplace domain events to Kafka. A nil Producer is
// valid and publishes nothing, so event wiring stays optional in tests and
// local setups.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func (p *Producer) publishReview(ctx context.Context, topic string, review *domain.Review) error {
	if p == nil || p.kafka == nil {
		return nil
	}

	data := ReviewData{
		ID:        review.ID,
		ProductID: review.ProductID,
		UserID:    review.UserID,
		Title:     review.Title,
		Body:      review.Body,
		Stars:     review.Stars,
	}

	event, err := pkgkafka.NewEvent(topic, review.ID, AggregateTypeReview, SourceMarketplace, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published review event",
		slog.String("topic", topic),
		slog.String("review_id", review.ID),
		slog.String("product_id", review.ProductID),
	)

	return nil
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	return p.publishReview(ctx, TopicReviewCreated, review)
}

// PublishReviewUpdated publishes a review.updated event.
func (p *Producer) PublishReviewUpdated(ctx context.Context, review *domain.Review) error {
	return p.publishReview(ctx, TopicReviewUpdated, review)
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, review *domain.Review) error {
	return p.publishReview(ctx, TopicReviewDeleted, review)
}

// PublishAggregateRecomputed publishes an aggregate.recomputed event after a
// derived field has been successfully refreshed.
func (p *Producer) PublishAggregateRecomputed(ctx context.Context, aggregateType, aggregateID, trigger string) error {
	if p == nil || p.kafka == nil {
		return nil
	}

	data := RecomputedData{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Trigger:       trigger,
	}

	event, err := pkgkafka.NewEvent(TopicAggregateRecomputed, aggregateID, aggregateType, SourceMarketplace, data)
	if err != nil {
		return fmt.Errorf("create aggregate.recomputed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicAggregateRecomputed, event); err != nil {
		return fmt.Errorf("publish aggregate.recomputed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published aggregate.recomputed event",
		slog.String("aggregate_type", aggregateType),
		slog.String("aggregate_id", aggregateID),
		slog.String("trigger", trigger),
	)

	return nil
}
