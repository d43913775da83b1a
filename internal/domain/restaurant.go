package domain

// Restaurant status constants.
const (
	RestaurantStatusOnline            = "online"
	RestaurantStatusOffline           = "offline"
	RestaurantStatusClosed            = "closed"
	RestaurantStatusTemporarilyClosed = "temporarilyClosed"
)

// Restaurant is the canonical restaurant DTO returned by every storage
// backend. AverageProductPrice is derived from the restaurant's products and
// is nil while it has none.
type Restaurant struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Description         string   `json:"description,omitempty"`
	PostalCode          string   `json:"postalCode"`
	CategoryID          string   `json:"categoryId"`
	CategoryName        string   `json:"categoryName"`
	ShippingCost        float64  `json:"shippingCost"`
	AverageProductPrice *float64 `json:"averageProductPrice"`
	Status              string   `json:"status"`

	// AvgDeliverySeconds and AvgPreparationSeconds are populated by the
	// storage adapter only when a restaurant search requests the matching
	// sort; nil means the restaurant has no qualifying orders and ranks
	// last.
	AvgDeliverySeconds    *float64 `json:"avgDeliverySeconds,omitempty"`
	AvgPreparationSeconds *float64 `json:"avgPreparationSeconds,omitempty"`
}
