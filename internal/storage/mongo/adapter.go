// Package mongo implements the storage adapter on MongoDB. Products are
// embedded in their restaurant document and reviews in their product, so
// most reads are aggregation pipelines over the restaurants collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/feastly/marketplace/internal/domain"
	"github.com/feastly/marketplace/pkg/database"
	apperrors "github.com/feastly/marketplace/pkg/errors"
)

// Adapter implements storage.Adapter using MongoDB.
type Adapter struct {
	db                 *mongo.Database
	expensiveThreshold float64
}

// NewAdapter creates a MongoDB-backed storage adapter.
func NewAdapter(db *mongo.Database, expensiveThreshold float64) *Adapter {
	return &Adapter{db: db, expensiveThreshold: expensiveThreshold}
}

func (a *Adapter) restaurants() *mongo.Collection { return a.db.Collection(collRestaurants) }
func (a *Adapter) orders() *mongo.Collection      { return a.db.Collection(collOrders) }
func (a *Adapter) users() *mongo.Collection       { return a.db.Collection(collUsers) }

func decodeAll[T any](ctx context.Context, cursor *mongo.Cursor) ([]T, error) {
	defer cursor.Close(ctx)
	var out []T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	return out, nil
}

// SearchRestaurants matches restaurants on the filter and, when a duration
// sort is requested, merges per-restaurant mean durations computed from the
// orders collection.
func (a *Adapter) SearchRestaurants(ctx context.Context, filter domain.RestaurantFilter) ([]domain.Restaurant, error) {
	ctx, end := database.TraceQuery(ctx, "mongodb", "SearchRestaurants", "aggregate restaurants")

	cursor, err := a.restaurants().Aggregate(ctx, searchRestaurantsPipeline(filter, a.expensiveThreshold))
	if err != nil {
		end(err)
		return nil, fmt.Errorf("search restaurants: %w", err)
	}
	docs, err := decodeAll[restaurantDoc](ctx, cursor)
	end(err)
	if err != nil {
		return nil, err
	}

	restaurants := make([]domain.Restaurant, 0, len(docs))
	for i := range docs {
		restaurants = append(restaurants, docs[i].toDomain())
	}

	if filter.SortBy == domain.SortNone {
		return restaurants, nil
	}

	durations, err := a.avgDurations(ctx, filter.SortBy)
	if err != nil {
		return nil, err
	}
	for i := range restaurants {
		if avg, ok := durations[restaurants[i].ID]; ok {
			v := avg
			switch filter.SortBy {
			case domain.SortDeliveryTime:
				restaurants[i].AvgDeliverySeconds = &v
			case domain.SortPreparationTime:
				restaurants[i].AvgPreparationSeconds = &v
			}
		}
	}

	return restaurants, nil
}

func (a *Adapter) avgDurations(ctx context.Context, sortBy domain.RestaurantSort) (map[string]float64, error) {
	fromField, toField := "createdAt", "sentAt"
	if sortBy == domain.SortDeliveryTime {
		fromField, toField = "sentAt", "deliveredAt"
	}

	ctx, end := database.TraceQuery(ctx, "mongodb", "AvgDurations", "aggregate orders")
	cursor, err := a.orders().Aggregate(ctx, avgDurationPipeline(fromField, toField))
	if err != nil {
		end(err)
		return nil, fmt.Errorf("average durations: %w", err)
	}

	type group struct {
		RestaurantID string  `bson:"_id"`
		AvgSeconds   float64 `bson:"avgSeconds"`
	}
	groups, err := decodeAll[group](ctx, cursor)
	end(err)
	if err != nil {
		return nil, err
	}

	durations := make(map[string]float64, len(groups))
	for _, g := range groups {
		durations[g.RestaurantID] = g.AvgSeconds
	}
	return durations, nil
}

// RestaurantsByIDs loads restaurants by id; missing ids are absent from the
// result map.
func (a *Adapter) RestaurantsByIDs(ctx context.Context, ids []string) (map[string]domain.Restaurant, error) {
	if len(ids) == 0 {
		return map[string]domain.Restaurant{}, nil
	}

	ctx, end := database.TraceQuery(ctx, "mongodb", "RestaurantsByIDs", "aggregate restaurants")
	cursor, err := a.restaurants().Aggregate(ctx, restaurantsByIDsPipeline(ids))
	if err != nil {
		end(err)
		return nil, fmt.Errorf("restaurants by ids: %w", err)
	}
	docs, err := decodeAll[restaurantDoc](ctx, cursor)
	end(err)
	if err != nil {
		return nil, err
	}

	result := make(map[string]domain.Restaurant, len(docs))
	for i := range docs {
		result[docs[i].ID] = docs[i].toDomain()
	}
	return result, nil
}

// ListRestaurantIDs returns every restaurant id.
func (a *Adapter) ListRestaurantIDs(ctx context.Context) ([]string, error) {
	ctx, end := database.TraceQuery(ctx, "mongodb", "ListRestaurantIDs", "find restaurants")
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := a.restaurants().Find(ctx, bson.M{}, opts)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("list restaurant ids: %w", err)
	}

	type idDoc struct {
		ID string `bson:"_id"`
	}
	docs, err := decodeAll[idDoc](ctx, cursor)
	end(err)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// RevenueByRestaurantInWindow sums order prices per restaurant over orders
// created at or after windowStart.
func (a *Adapter) RevenueByRestaurantInWindow(ctx context.Context, windowStart time.Time) ([]domain.RestaurantRevenue, error) {
	ctx, end := database.TraceQuery(ctx, "mongodb", "RevenueByRestaurantInWindow", "aggregate orders")
	cursor, err := a.orders().Aggregate(ctx, revenueInWindowPipeline(windowStart))
	if err != nil {
		end(err)
		return nil, fmt.Errorf("revenue by restaurant: %w", err)
	}

	type group struct {
		RestaurantID string  `bson:"_id"`
		Revenue      float64 `bson:"revenue"`
	}
	groups, err := decodeAll[group](ctx, cursor)
	end(err)
	if err != nil {
		return nil, err
	}

	revenues := make([]domain.RestaurantRevenue, 0, len(groups))
	for _, g := range groups {
		revenues = append(revenues, domain.RestaurantRevenue{RestaurantID: g.RestaurantID, Revenue: g.Revenue})
	}
	return revenues, nil
}

// DeliveryDurations returns one sample per completed delivery, keyed by
// restaurant id. A non-empty restaurantID scopes the result.
func (a *Adapter) DeliveryDurations(ctx context.Context, restaurantID string) (map[string][]domain.DeliverySample, error) {
	ctx, end := database.TraceQuery(ctx, "mongodb", "DeliveryDurations", "find orders")
	filter := bson.M{"sentAt": bson.M{"$ne": nil}, "deliveredAt": bson.M{"$ne": nil}}
	if restaurantID != "" {
		filter["restaurantId"] = restaurantID
	}
	opts := options.Find().SetProjection(bson.M{"restaurantId": 1, "sentAt": 1, "deliveredAt": 1})
	cursor, err := a.orders().Find(ctx, filter, opts)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("delivery durations: %w", err)
	}

	type sampleDoc struct {
		RestaurantID string    `bson:"restaurantId"`
		SentAt       time.Time `bson:"sentAt"`
		DeliveredAt  time.Time `bson:"deliveredAt"`
	}
	docs, err := decodeAll[sampleDoc](ctx, cursor)
	end(err)
	if err != nil {
		return nil, err
	}

	samples := make(map[string][]domain.DeliverySample)
	for _, d := range docs {
		samples[d.RestaurantID] = append(samples[d.RestaurantID], domain.DeliverySample{
			SentAt:      d.SentAt,
			DeliveredAt: d.DeliveredAt,
		})
	}
	return samples, nil
}

// SearchProducts returns embedded products whose name or description
// contains query.
func (a *Adapter) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	ctx, end := database.TraceQuery(ctx, "mongodb", "SearchProducts", "aggregate restaurants")
	cursor, err := a.restaurants().Aggregate(ctx, searchProductsPipeline(query))
	if err != nil {
		end(err)
		return nil, fmt.Errorf("search products: %w", err)
	}

	type hit struct {
		RestaurantID string     `bson:"restaurantId"`
		Product      productDoc `bson:"product"`
	}
	hits, err := decodeAll[hit](ctx, cursor)
	end(err)
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(hits))
	for i := range hits {
		products = append(products, hits[i].Product.toDomain(hits[i].RestaurantID))
	}
	return products, nil
}

// GetProduct extracts a single embedded product.
func (a *Adapter) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	ctx, end := database.TraceQuery(ctx, "mongodb", "GetProduct", "aggregate restaurants")
	cursor, err := a.restaurants().Aggregate(ctx, productByIDPipeline(id))
	if err != nil {
		end(err)
		return nil, fmt.Errorf("get product: %w", err)
	}

	type hit struct {
		RestaurantID string     `bson:"restaurantId"`
		Product      productDoc `bson:"product"`
	}
	hits, err := decodeAll[hit](ctx, cursor)
	end(err)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, apperrors.NotFound("product", id)
	}

	p := hits[0].Product.toDomain(hits[0].RestaurantID)
	return &p, nil
}

// SearchOrders returns the given user's orders containing a matching line
// item. The user scope is part of the filter, never the caller's problem.
func (a *Adapter) SearchOrders(ctx context.Context, userID, query string) ([]domain.Order, error) {
	ctx, end := database.TraceQuery(ctx, "mongodb", "SearchOrders", "find orders")
	cursor, err := a.orders().Find(ctx, searchOrdersFilter(userID, query))
	if err != nil {
		end(err)
		return nil, fmt.Errorf("search orders: %w", err)
	}

	docs, err := decodeAll[orderDoc](ctx, cursor)
	end(err)
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(docs))
	for i := range docs {
		orders = append(orders, docs[i].toDomain())
	}
	return orders, nil
}

// SearchUsers returns customers, restricted to a postal code when one is
// given. The projection keeps credential fields out of the wire entirely.
func (a *Adapter) SearchUsers(ctx context.Context, postalCode string) ([]domain.User, error) {
	ctx, end := database.TraceQuery(ctx, "mongodb", "SearchUsers", "find users")
	filter := bson.M{"userType": domain.UserTypeCustomer}
	if postalCode != "" {
		filter["postalCode"] = postalCode
	}
	opts := options.Find().SetProjection(bson.M{"_id": 1, "name": 1, "postalCode": 1, "userType": 1})
	cursor, err := a.users().Find(ctx, filter, opts)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("search users: %w", err)
	}

	docs, err := decodeAll[userDoc](ctx, cursor)
	end(err)
	if err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toDomain())
	}
	return users, nil
}

// TopCustomersBySpend sums spend per customer across the orders collection.
func (a *Adapter) TopCustomersBySpend(ctx context.Context, limit int) ([]domain.UserSpend, error) {
	ctx, end := database.TraceQuery(ctx, "mongodb", "TopCustomersBySpend", "aggregate orders")
	cursor, err := a.orders().Aggregate(ctx, topCustomersPipeline(limit))
	if err != nil {
		end(err)
		return nil, fmt.Errorf("top customers: %w", err)
	}

	type group struct {
		UserID     string  `bson:"_id"`
		TotalSpent float64 `bson:"totalSpent"`
		User       userDoc `bson:"user"`
	}
	groups, err := decodeAll[group](ctx, cursor)
	end(err)
	if err != nil {
		return nil, err
	}

	customers := make([]domain.UserSpend, 0, len(groups))
	for _, g := range groups {
		customers = append(customers, domain.UserSpend{User: g.User.toDomain(), TotalSpent: g.TotalSpent})
	}
	return customers, nil
}

// RecomputeRestaurantAveragePrice recomputes avgProductPrice atomically with
// an update pipeline over the embedded products.
func (a *Adapter) RecomputeRestaurantAveragePrice(ctx context.Context, restaurantID string) error {
	ctx, end := database.TraceQuery(ctx, "mongodb", "RecomputeRestaurantAveragePrice", "update restaurants")
	res, err := a.restaurants().UpdateOne(ctx, bson.M{"_id": restaurantID}, recomputeAvgPriceUpdate())
	end(err)
	if err != nil {
		return fmt.Errorf("recompute restaurant average price: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("restaurant", restaurantID)
	}
	return nil
}

// RecomputeProductAverageStars recomputes the embedded product's avgStars
// atomically with an update pipeline.
func (a *Adapter) RecomputeProductAverageStars(ctx context.Context, productID string) error {
	ctx, end := database.TraceQuery(ctx, "mongodb", "RecomputeProductAverageStars", "update restaurants")
	res, err := a.restaurants().UpdateOne(ctx, bson.M{"products._id": productID}, recomputeAvgStarsUpdate(productID))
	end(err)
	if err != nil {
		return fmt.Errorf("recompute product average stars: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("product", productID)
	}
	return nil
}

// GetReview loads a single review from its embedding product.
func (a *Adapter) GetReview(ctx context.Context, productID, reviewID string) (*domain.Review, error) {
	ctx, end := database.TraceQuery(ctx, "mongodb", "GetReview", "find restaurants")
	filter := bson.M{"products._id": productID}
	opts := options.FindOne().SetProjection(bson.M{"products.$": 1})

	var doc restaurantDoc
	err := a.restaurants().FindOne(ctx, filter, opts).Decode(&doc)
	end(err)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, fmt.Errorf("get review: %w", err)
	}

	for _, p := range doc.Products {
		if p.ID != productID {
			continue
		}
		for _, r := range p.Reviews {
			if r.ID == reviewID {
				return &domain.Review{
					ID:        r.ID,
					ProductID: productID,
					UserID:    r.UserID,
					Title:     r.Title,
					Body:      r.Body,
					Stars:     r.Stars,
				}, nil
			}
		}
	}
	return nil, apperrors.NotFound("review", reviewID)
}

// CreateReview pushes a review onto its product's embedded array.
func (a *Adapter) CreateReview(ctx context.Context, review *domain.Review) error {
	ctx, end := database.TraceQuery(ctx, "mongodb", "CreateReview", "update restaurants")
	doc := reviewDoc{
		ID:     review.ID,
		UserID: review.UserID,
		Title:  review.Title,
		Body:   review.Body,
		Stars:  review.Stars,
	}
	res, err := a.restaurants().UpdateOne(ctx,
		bson.M{"products._id": review.ProductID},
		bson.M{"$push": bson.M{"products.$.reviews": doc}},
	)
	end(err)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("product", review.ProductID)
	}
	return nil
}

// UpdateReview replaces the title, body and stars of an existing review via
// filtered positional operators.
func (a *Adapter) UpdateReview(ctx context.Context, review *domain.Review) error {
	ctx, end := database.TraceQuery(ctx, "mongodb", "UpdateReview", "update restaurants")
	filter := bson.M{"products": bson.M{"$elemMatch": bson.M{
		"_id":         review.ProductID,
		"reviews._id": review.ID,
	}}}
	update := bson.M{"$set": bson.M{
		"products.$[p].reviews.$[r].title": review.Title,
		"products.$[p].reviews.$[r].body":  review.Body,
		"products.$[p].reviews.$[r].stars": review.Stars,
	}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{Filters: []any{
		bson.M{"p._id": review.ProductID},
		bson.M{"r._id": review.ID},
	}})

	res, err := a.restaurants().UpdateOne(ctx, filter, update, opts)
	end(err)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("review", review.ID)
	}
	return nil
}

// DeleteReview pulls a review out of its product's embedded array.
func (a *Adapter) DeleteReview(ctx context.Context, productID, reviewID string) error {
	ctx, end := database.TraceQuery(ctx, "mongodb", "DeleteReview", "update restaurants")
	filter := bson.M{"products": bson.M{"$elemMatch": bson.M{
		"_id":         productID,
		"reviews._id": reviewID,
	}}}
	update := bson.M{"$pull": bson.M{"products.$.reviews": bson.M{"_id": reviewID}}}

	res, err := a.restaurants().UpdateOne(ctx, filter, update)
	end(err)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("review", reviewID)
	}
	return nil
}
