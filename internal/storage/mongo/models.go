package mongo

import (
	"time"

	"github.com/feastly/marketplace/internal/domain"
)

// Collection names.
const (
	collRestaurants = "restaurants"
	collCategories  = "restaurantCategories"
	collOrders      = "orders"
	collUsers       = "users"
)

// restaurantDoc is the document shape: products are embedded in their
// restaurant, and reviews in their product. avgProductPrice is unset while
// the restaurant has no products; avgStars is an explicit null while a
// product has no reviews, because 0 is a valid review average.
type restaurantDoc struct {
	ID              string       `bson:"_id"`
	Name            string       `bson:"name"`
	Description     string       `bson:"description,omitempty"`
	PostalCode      string       `bson:"postalCode"`
	CategoryID      string       `bson:"categoryId"`
	CategoryName    string       `bson:"categoryName,omitempty"`
	ShippingCost    float64      `bson:"shippingCost"`
	AvgProductPrice *float64     `bson:"avgProductPrice,omitempty"`
	Status          string       `bson:"status"`
	Products        []productDoc `bson:"products"`
}

type productDoc struct {
	ID           string      `bson:"_id"`
	Name         string      `bson:"name"`
	Description  string      `bson:"description"`
	Price        float64     `bson:"price"`
	CategoryName string      `bson:"categoryName"`
	AvgStars     *float64    `bson:"avgStars"`
	Reviews      []reviewDoc `bson:"reviews"`
}

type reviewDoc struct {
	ID     string `bson:"_id"`
	UserID string `bson:"userId"`
	Title  string `bson:"title"`
	Body   string `bson:"body"`
	Stars  int    `bson:"stars"`
}

type orderDoc struct {
	ID           string         `bson:"_id"`
	RestaurantID string         `bson:"restaurantId"`
	UserID       string         `bson:"userId"`
	Address      string         `bson:"address"`
	Price        float64        `bson:"price"`
	ShippingCost float64        `bson:"shippingCost"`
	CreatedAt    time.Time      `bson:"createdAt"`
	StartedAt    *time.Time     `bson:"startedAt"`
	SentAt       *time.Time     `bson:"sentAt"`
	DeliveredAt  *time.Time     `bson:"deliveredAt"`
	Items        []orderItemDoc `bson:"products"`
}

type orderItemDoc struct {
	ProductID string  `bson:"productId"`
	Name      string  `bson:"name"`
	UnitPrice float64 `bson:"unitPrice"`
	Quantity  int     `bson:"quantity"`
}

type userDoc struct {
	ID         string `bson:"_id"`
	Name       string `bson:"name"`
	PostalCode string `bson:"postalCode"`
	UserType   string `bson:"userType"`
}

func (d *restaurantDoc) toDomain() domain.Restaurant {
	return domain.Restaurant{
		ID:                  d.ID,
		Name:                d.Name,
		Description:         d.Description,
		PostalCode:          d.PostalCode,
		CategoryID:          d.CategoryID,
		CategoryName:        d.CategoryName,
		ShippingCost:        d.ShippingCost,
		AverageProductPrice: d.AvgProductPrice,
		Status:              d.Status,
	}
}

func (d *productDoc) toDomain(restaurantID string) domain.Product {
	return domain.Product{
		ID:           d.ID,
		RestaurantID: restaurantID,
		Name:         d.Name,
		Description:  d.Description,
		Price:        d.Price,
		CategoryName: d.CategoryName,
		AverageStars: d.AvgStars,
	}
}

func (d *orderDoc) toDomain() domain.Order {
	items := make([]domain.OrderItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	return domain.Order{
		ID:           d.ID,
		RestaurantID: d.RestaurantID,
		UserID:       d.UserID,
		Address:      d.Address,
		Price:        d.Price,
		ShippingCost: d.ShippingCost,
		CreatedAt:    d.CreatedAt,
		StartedAt:    d.StartedAt,
		SentAt:       d.SentAt,
		DeliveredAt:  d.DeliveredAt,
		Items:        items,
	}
}

func (d *userDoc) toDomain() domain.User {
	return domain.User{
		ID:         d.ID,
		Name:       d.Name,
		PostalCode: d.PostalCode,
		UserType:   d.UserType,
	}
}
