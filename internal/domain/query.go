package domain

import (
	"time"

	apperrors "github.com/feastly/marketplace/pkg/errors"
)

// RestaurantSort selects the ordering of a restaurant search. Both values
// sort ascending on a per-restaurant mean duration; restaurants without
// qualifying orders rank last.
type RestaurantSort string

const (
	// SortNone leaves the backend's natural order; the search engine still
	// applies the deterministic id ordering on top.
	SortNone RestaurantSort = ""
	// SortDeliveryTime orders by mean(deliveredAt-sentAt).
	SortDeliveryTime RestaurantSort = "deliveryTime"
	// SortPreparationTime orders by mean(sentAt-createdAt).
	SortPreparationTime RestaurantSort = "preparationTime"
)

// ParseRestaurantSort validates a raw sortBy parameter.
func ParseRestaurantSort(raw string) (RestaurantSort, error) {
	switch RestaurantSort(raw) {
	case SortNone, SortDeliveryTime, SortPreparationTime:
		return RestaurantSort(raw), nil
	default:
		return SortNone, apperrors.InvalidQuery("sortBy must be one of: deliveryTime, preparationTime")
	}
}

// RestaurantFilter is the canonical restaurant search specification. Nil
// fields are "no constraint". Expensive selects restaurants having at least
// one product above the configured price threshold (true) or none above it
// (false).
type RestaurantFilter struct {
	PostalCode *string
	CategoryID *string
	Expensive  *bool
	SortBy     RestaurantSort
}

// RestaurantRevenue is a per-restaurant revenue sum within a ranking window.
type RestaurantRevenue struct {
	RestaurantID string  `json:"restaurantId"`
	Revenue      float64 `json:"revenue"`
}

// DeliverySample is one completed delivery, used to compute mean delivery
// durations.
type DeliverySample struct {
	SentAt      time.Time `json:"sentAt"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

// Duration returns the delivery duration of the sample.
func (s DeliverySample) Duration() time.Duration {
	return s.DeliveredAt.Sub(s.SentAt)
}

// RevenueRank is a ranked restaurant with its window revenue.
type RevenueRank struct {
	Restaurant
	Revenue float64 `json:"revenue"`
}

// TopRestaurants groups the three independent revenue windows, each capped
// at five restaurants.
type TopRestaurants struct {
	TopLastWeekRestaurants  []RevenueRank `json:"topLastWeekRestaurants"`
	TopLastMonthRestaurants []RevenueRank `json:"topLastMonthRestaurants"`
	TopLastYearRestaurants  []RevenueRank `json:"topLastYearRestaurants"`
}

// DelivererRank is a restaurant ranked by its mean delivery duration.
type DelivererRank struct {
	Restaurant
	AvgDeliverySeconds float64 `json:"avgDeliverySeconds"`
}
