package mongo

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/feastly/marketplace/internal/domain"
)

// Pipeline builders are kept as pure functions so the query shapes can be
// tested without a running server.

// containsRegex builds a case-insensitive substring match. The input is
// quoted so user text matches literally.
func containsRegex(query string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(query), "$options": "i"}
}

// lookupCategoryStages joins the restaurant's category name onto the
// restaurant document.
func lookupCategoryStages() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         collCategories,
			"localField":   "categoryId",
			"foreignField": "_id",
			"as":           "category",
		}}},
		{{Key: "$set", Value: bson.M{
			"categoryName": bson.M{"$first": "$category.name"},
		}}},
		{{Key: "$unset", Value: "category"}},
	}
}

// searchRestaurantsPipeline matches restaurants on every set filter field
// and joins the category name. Duration sorts are resolved by a separate
// orders aggregation, not here.
func searchRestaurantsPipeline(filter domain.RestaurantFilter, expensiveThreshold float64) mongo.Pipeline {
	match := bson.M{}
	if filter.PostalCode != nil {
		match["postalCode"] = *filter.PostalCode
	}
	if filter.CategoryID != nil {
		match["categoryId"] = *filter.CategoryID
	}
	if filter.Expensive != nil {
		elem := bson.M{"$elemMatch": bson.M{"price": bson.M{"$gt": expensiveThreshold}}}
		if *filter.Expensive {
			match["products"] = elem
		} else {
			match["products"] = bson.M{"$not": elem}
		}
	}

	pipeline := mongo.Pipeline{{{Key: "$match", Value: match}}}
	return append(pipeline, lookupCategoryStages()...)
}

// restaurantsByIDsPipeline loads restaurants by id with their category name.
func restaurantsByIDsPipeline(ids []string) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": bson.M{"$in": ids}}}},
	}
	return append(pipeline, lookupCategoryStages()...)
}

// avgDurationPipeline groups orders per restaurant and averages the duration
// between the two timestamp fields, in seconds. Date subtraction yields
// milliseconds, hence the divide.
func avgDurationPipeline(fromField, toField string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			fromField: bson.M{"$ne": nil},
			toField:   bson.M{"$ne": nil},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": "$restaurantId",
			"avgSeconds": bson.M{"$avg": bson.M{
				"$divide": bson.A{
					bson.M{"$subtract": bson.A{"$" + toField, "$" + fromField}},
					1000,
				},
			}},
		}}},
	}
}

// searchProductsPipeline unwinds embedded products and matches on name or
// description.
func searchProductsPipeline(query string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$unwind", Value: "$products"}},
		{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"products.name": containsRegex(query)},
			bson.M{"products.description": containsRegex(query)},
		}}}},
		{{Key: "$project", Value: bson.M{
			"_id":          0,
			"restaurantId": "$_id",
			"product":      "$products",
		}}},
	}
}

// productByIDPipeline extracts a single embedded product.
func productByIDPipeline(productID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"products._id": productID}}},
		{{Key: "$unwind", Value: "$products"}},
		{{Key: "$match", Value: bson.M{"products._id": productID}}},
		{{Key: "$project", Value: bson.M{
			"_id":          0,
			"restaurantId": "$_id",
			"product":      "$products",
		}}},
	}
}

// searchOrdersFilter scopes to the authenticated user and, for a non-empty
// query, requires at least one line item whose name contains it.
func searchOrdersFilter(userID, query string) bson.M {
	filter := bson.M{"userId": userID}
	if query != "" {
		filter["products.name"] = containsRegex(query)
	}
	return filter
}

// topCustomersPipeline sums order prices per user, keeps customers only, and
// orders by spend descending with ascending id ties.
func topCustomersPipeline(limit int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":        "$userId",
			"totalSpent": bson.M{"$sum": "$price"},
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         collUsers,
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "user",
		}}},
		{{Key: "$unwind", Value: "$user"}},
		{{Key: "$match", Value: bson.M{"user.userType": domain.UserTypeCustomer}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "totalSpent", Value: -1},
			{Key: "_id", Value: 1},
		}}},
		{{Key: "$limit", Value: limit}},
	}
}

// revenueInWindowPipeline sums order prices per restaurant for orders
// created at or after windowStart. Restaurants without orders in the window
// simply produce no group.
func revenueInWindowPipeline(windowStart time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdAt": bson.M{"$gte": windowStart}}}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$restaurantId",
			"revenue": bson.M{"$sum": "$price"},
		}}},
	}
}

// recomputeAvgPriceUpdate is an update pipeline that recomputes
// avgProductPrice from the restaurant's current products. $avg of an empty
// array is null, which leaves the field unset.
func recomputeAvgPriceUpdate() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"avgProductPrice": bson.M{"$avg": "$products.price"},
		}}},
	}
}

// recomputeAvgStarsUpdate is an update pipeline that recomputes the matching
// product's avgStars from its current reviews. A product with no reviews
// gets an explicit null, never zero.
func recomputeAvgStarsUpdate(productID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"products": bson.M{"$map": bson.M{
				"input": "$products",
				"as":    "p",
				"in": bson.M{"$cond": bson.A{
					bson.M{"$eq": bson.A{"$$p._id", productID}},
					bson.M{"$mergeObjects": bson.A{
						"$$p",
						bson.M{"avgStars": bson.M{"$avg": "$$p.reviews.stars"}},
					}},
					"$$p",
				}},
			}},
		}}},
	}
}
