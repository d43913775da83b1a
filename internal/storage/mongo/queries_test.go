package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/feastly/marketplace/internal/domain"
)

func stageValue(t *testing.T, stage bson.D, key string) any {
	t.Helper()
	require.Len(t, stage, 1)
	require.Equal(t, key, stage[0].Key)
	return stage[0].Value
}

func TestContainsRegex_QuotesMetaCharacters(t *testing.T) {
	m := containsRegex("100% (beef)")
	assert.Equal(t, `100% \(beef\)`, m["$regex"])
	assert.Equal(t, "i", m["$options"])
}

func TestSearchRestaurantsPipeline_EmptyFilter(t *testing.T) {
	pipeline := searchRestaurantsPipeline(domain.RestaurantFilter{}, 100)

	match := stageValue(t, pipeline[0], "$match").(bson.M)
	assert.Empty(t, match)

	// Category lookup follows the match.
	lookup := stageValue(t, pipeline[1], "$lookup").(bson.M)
	assert.Equal(t, collCategories, lookup["from"])
}

func TestSearchRestaurantsPipeline_AllFilters(t *testing.T) {
	pc, cat, exp := "41010", "c1", true
	pipeline := searchRestaurantsPipeline(domain.RestaurantFilter{
		PostalCode: &pc,
		CategoryID: &cat,
		Expensive:  &exp,
	}, 100)

	match := stageValue(t, pipeline[0], "$match").(bson.M)
	assert.Equal(t, "41010", match["postalCode"])
	assert.Equal(t, "c1", match["categoryId"])
	assert.Equal(t,
		bson.M{"$elemMatch": bson.M{"price": bson.M{"$gt": 100.0}}},
		match["products"])
}

func TestSearchRestaurantsPipeline_NotExpensiveNegatesElemMatch(t *testing.T) {
	exp := false
	pipeline := searchRestaurantsPipeline(domain.RestaurantFilter{Expensive: &exp}, 100)

	match := stageValue(t, pipeline[0], "$match").(bson.M)
	products := match["products"].(bson.M)
	_, hasNot := products["$not"]
	assert.True(t, hasNot, "cheap filter must negate the elemMatch, not invert the comparison")
}

func TestAvgDurationPipeline_DividesMillisToSeconds(t *testing.T) {
	pipeline := avgDurationPipeline("sentAt", "deliveredAt")

	match := stageValue(t, pipeline[0], "$match").(bson.M)
	assert.Contains(t, match, "sentAt")
	assert.Contains(t, match, "deliveredAt")

	group := stageValue(t, pipeline[1], "$group").(bson.M)
	assert.Equal(t, "$restaurantId", group["_id"])
	avg := group["avgSeconds"].(bson.M)["$avg"].(bson.M)
	divide := avg["$divide"].(bson.A)
	assert.Equal(t,
		bson.M{"$subtract": bson.A{"$deliveredAt", "$sentAt"}},
		divide[0])
	assert.Equal(t, 1000, divide[1])
}

func TestSearchProductsPipeline_UnwindsAndMatches(t *testing.T) {
	pipeline := searchProductsPipeline("paella")

	assert.Equal(t, "$products", stageValue(t, pipeline[0], "$unwind"))
	match := stageValue(t, pipeline[1], "$match").(bson.M)
	assert.Equal(t, bson.A{
		bson.M{"products.name": containsRegex("paella")},
		bson.M{"products.description": containsRegex("paella")},
	}, match["$or"])

	project := stageValue(t, pipeline[2], "$project").(bson.M)
	assert.Equal(t, "$_id", project["restaurantId"])
}

func TestProductByIDPipeline_MatchesBeforeAndAfterUnwind(t *testing.T) {
	pipeline := productByIDPipeline("p1")
	require.Len(t, pipeline, 4)

	pre := stageValue(t, pipeline[0], "$match").(bson.M)
	post := stageValue(t, pipeline[2], "$match").(bson.M)
	assert.Equal(t, "p1", pre["products._id"])
	assert.Equal(t, "p1", post["products._id"])
}

func TestSearchOrdersFilter_ScopesToUser(t *testing.T) {
	filter := searchOrdersFilter("u1", "burger")
	assert.Equal(t, "u1", filter["userId"])
	assert.Equal(t, containsRegex("burger"), filter["products.name"])
}

func TestSearchOrdersFilter_EmptyQueryMatchesAllOfUser(t *testing.T) {
	filter := searchOrdersFilter("u1", "")
	assert.Equal(t, bson.M{"userId": "u1"}, filter)
}

func TestTopCustomersPipeline_CustomersOnlyDeterministicOrder(t *testing.T) {
	pipeline := topCustomersPipeline(5)
	require.Len(t, pipeline, 6)

	match := stageValue(t, pipeline[3], "$match").(bson.M)
	assert.Equal(t, domain.UserTypeCustomer, match["user.userType"])

	sort := stageValue(t, pipeline[4], "$sort").(bson.D)
	require.Len(t, sort, 2)
	assert.Equal(t, bson.E{Key: "totalSpent", Value: -1}, sort[0])
	assert.Equal(t, bson.E{Key: "_id", Value: 1}, sort[1])

	assert.Equal(t, 5, stageValue(t, pipeline[5], "$limit"))
}

func TestRevenueInWindowPipeline(t *testing.T) {
	start := time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC)
	pipeline := revenueInWindowPipeline(start)

	match := stageValue(t, pipeline[0], "$match").(bson.M)
	assert.Equal(t, bson.M{"$gte": start}, match["createdAt"])

	group := stageValue(t, pipeline[1], "$group").(bson.M)
	assert.Equal(t, "$restaurantId", group["_id"])
	assert.Equal(t, bson.M{"$sum": "$price"}, group["revenue"])
}

func TestRecomputeAvgPriceUpdate_AvgOverProducts(t *testing.T) {
	pipeline := recomputeAvgPriceUpdate()
	set := stageValue(t, pipeline[0], "$set").(bson.M)
	assert.Equal(t, bson.M{"$avg": "$products.price"}, set["avgProductPrice"])
}

func TestRecomputeAvgStarsUpdate_TargetsOnlyTheProduct(t *testing.T) {
	pipeline := recomputeAvgStarsUpdate("p1")
	set := stageValue(t, pipeline[0], "$set").(bson.M)
	mp := set["products"].(bson.M)["$map"].(bson.M)
	assert.Equal(t, "$products", mp["input"])

	cond := mp["in"].(bson.M)["$cond"].(bson.A)
	assert.Equal(t, bson.M{"$eq": bson.A{"$$p._id", "p1"}}, cond[0])
	// Untouched products pass through unchanged.
	assert.Equal(t, "$$p", cond[2])
}
