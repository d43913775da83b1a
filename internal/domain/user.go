package domain

// User types.
const (
	UserTypeCustomer = "customer"
	UserTypeOwner    = "owner"
)

// User is the canonical user DTO. Credential fields never appear here; the
// storage adapters are responsible for keeping them out.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PostalCode string `json:"postalCode"`
	UserType   string `json:"userType"`
}

// UserSpend pairs a customer with their lifetime spend across all orders.
type UserSpend struct {
	User
	TotalSpent float64 `json:"totalSpent"`
}
