package domain

// Review star bounds.
const (
	MinStars = 0
	MaxStars = 5
)

// Review is a customer review of a product. Multiple reviews per
// (product, user) pair are permitted.
type Review struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	UserID    string `json:"userId"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Stars     int    `json:"stars"`
}

// ValidStars reports whether the given star value is within bounds.
func ValidStars(stars int) bool {
	return stars >= MinStars && stars <= MaxStars
}
