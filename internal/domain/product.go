package domain

// Product is the canonical product DTO. AverageStars is derived from the
// product's reviews; it is nil (not zero) while the product has no reviews,
// because a review average of 0 stars is a valid value.
type Product struct {
	ID           string   `json:"id"`
	RestaurantID string   `json:"restaurantId"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Price        float64  `json:"price"`
	CategoryName string   `json:"categoryName"`
	AverageStars *float64 `json:"averageStars"`
}
