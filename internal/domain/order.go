package domain

import "time"

// Order is the canonical order DTO. The lifecycle timestamps are monotonic
// when present: createdAt <= startedAt <= sentAt <= deliveredAt.
type Order struct {
	ID           string      `json:"id"`
	RestaurantID string      `json:"restaurantId"`
	UserID       string      `json:"userId"`
	Address      string      `json:"address"`
	Price        float64     `json:"price"`
	ShippingCost float64     `json:"shippingCost"`
	CreatedAt    time.Time   `json:"createdAt"`
	StartedAt    *time.Time  `json:"startedAt"`
	SentAt       *time.Time  `json:"sentAt"`
	DeliveredAt  *time.Time  `json:"deliveredAt"`
	Items        []OrderItem `json:"products"`
}

// OrderItem is a line item within an order. Name and UnitPrice are copied
// from the product at order time.
type OrderItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

// LineTotal returns the total price for this line item.
func (i *OrderItem) LineTotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// TimestampsMonotonic reports whether the order's lifecycle timestamps are
// non-decreasing across the present ones.
func (o *Order) TimestampsMonotonic() bool {
	prev := o.CreatedAt
	for _, ts := range []*time.Time{o.StartedAt, o.SentAt, o.DeliveredAt} {
		if ts == nil {
			continue
		}
		if ts.Before(prev) {
			return false
		}
		prev = *ts
	}
	return true
}

// DeliveryDuration returns deliveredAt-sentAt, or false when either
// timestamp is missing.
func (o *Order) DeliveryDuration() (time.Duration, bool) {
	if o.SentAt == nil || o.DeliveredAt == nil {
		return 0, false
	}
	return o.DeliveredAt.Sub(*o.SentAt), true
}

// PreparationDuration returns sentAt-createdAt, or false when sentAt is
// missing.
func (o *Order) PreparationDuration() (time.Duration, bool) {
	if o.SentAt == nil {
		return 0, false
	}
	return o.SentAt.Sub(o.CreatedAt), true
}
