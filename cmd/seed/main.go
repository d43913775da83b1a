// Command seed populates the configured storage backend with sample
// marketplace data. It writes the same logical dataset to Postgres or
// MongoDB, including precomputed aggregates, so query results match across
// backends out of the box.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/feastly/marketplace/internal/config"
	"github.com/feastly/marketplace/migrations"
	"github.com/feastly/marketplace/pkg/database"
	"github.com/feastly/marketplace/pkg/logger"
)

type category struct {
	ID   string
	Name string
}

type review struct {
	ID     string
	UserID string
	Title  string
	Body   string
	Stars  int
}

type product struct {
	ID           string
	Name         string
	Description  string
	Price        float64
	CategoryID   string
	CategoryName string
	Reviews      []review
}

type restaurant struct {
	ID           string
	Name         string
	Description  string
	PostalCode   string
	CategoryID   string
	ShippingCost float64
	Status       string
	Products     []product
}

type user struct {
	ID         string
	Name       string
	PostalCode string
	UserType   string
}

type orderItem struct {
	ProductID string
	Name      string
	UnitPrice float64
	Quantity  int
}

type order struct {
	ID           string
	RestaurantID string
	UserID       string
	Address      string
	Price        float64
	ShippingCost float64
	CreatedAt    time.Time
	StartedAt    *time.Time
	SentAt       *time.Time
	DeliveredAt  *time.Time
	Items        []orderItem
}

type dataset struct {
	RestaurantCategories []category
	ProductCategories    []category
	Restaurants          []restaurant
	Users                []user
	Orders               []order
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New("marketplace-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	data := buildDataset(time.Now().UTC())

	switch cfg.StorageTechnology {
	case config.StoragePostgres:
		pgCfg := cfg.PostgresConfig()
		pool, err := database.NewPostgresPool(ctx, &pgCfg, log)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		if err := seedPostgres(ctx, pool, data); err != nil {
			return err
		}
	case config.StorageMongo:
		mCfg := cfg.MongoConfig()
		client, err := database.NewMongoClient(ctx, &mCfg, log)
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		if err := seedMongo(ctx, client.Database(mCfg.Database), data); err != nil {
			return err
		}
	default:
		return fmt.Errorf("seeding is not supported for storage technology %q", cfg.StorageTechnology)
	}

	log.Info("seed complete",
		"restaurants", len(data.Restaurants),
		"users", len(data.Users),
		"orders", len(data.Orders),
	)
	return nil
}

// buildDataset produces a deterministic sample dataset. Orders are spread
// across the past year so the week, month and year revenue rankings all
// produce non-trivial output.
func buildDataset(now time.Time) dataset {
	rng := rand.New(rand.NewSource(42))

	restaurantCategories := []category{
		{ID: "rc-1", Name: "Italian"},
		{ID: "rc-2", Name: "Japanese"},
		{ID: "rc-3", Name: "Burgers"},
	}
	productCategories := []category{
		{ID: "pc-1", Name: "Mains"},
		{ID: "pc-2", Name: "Sides"},
		{ID: "pc-3", Name: "Drinks"},
	}

	users := []user{
		{ID: "user-1", Name: "Ada Marsh", PostalCode: "1011", UserType: "customer"},
		{ID: "user-2", Name: "Ben Okafor", PostalCode: "1011", UserType: "customer"},
		{ID: "user-3", Name: "Carla Diaz", PostalCode: "2022", UserType: "customer"},
		{ID: "user-4", Name: "Dmitri Volkov", PostalCode: "2022", UserType: "customer"},
		{ID: "user-5", Name: "Elin Berg", PostalCode: "3033", UserType: "customer"},
		{ID: "user-6", Name: "Feastly Ops", PostalCode: "1011", UserType: "employee"},
	}

	restaurants := []restaurant{
		{
			ID: "rest-1", Name: "Trattoria Lucia", Description: "Neapolitan classics",
			PostalCode: "1011", CategoryID: "rc-1", ShippingCost: 3.5, Status: "online",
			Products: []product{
				{ID: "prod-1", Name: "Margherita", Price: 11.5, CategoryID: "pc-1", CategoryName: "Mains",
					Reviews: []review{
						{ID: "rev-1", UserID: "user-1", Title: "Perfect crust", Body: "Would order again.", Stars: 5},
						{ID: "rev-2", UserID: "user-3", Title: "Solid", Body: "", Stars: 4},
					}},
				{ID: "prod-2", Name: "Tiramisu", Price: 6.0, CategoryID: "pc-2", CategoryName: "Sides"},
			},
		},
		{
			ID: "rest-2", Name: "Sora Sushi", Description: "Omakase and rolls",
			PostalCode: "1011", CategoryID: "rc-2", ShippingCost: 5.0, Status: "online",
			Products: []product{
				{ID: "prod-3", Name: "Dragon Roll", Price: 14.0, CategoryID: "pc-1", CategoryName: "Mains",
					Reviews: []review{
						{ID: "rev-3", UserID: "user-2", Title: "Fresh", Body: "Great fish.", Stars: 5},
					}},
				{ID: "prod-4", Name: "Omakase Set", Price: 120.0, CategoryID: "pc-1", CategoryName: "Mains"},
				{ID: "prod-5", Name: "Green Tea", Price: 3.0, CategoryID: "pc-3", CategoryName: "Drinks"},
			},
		},
		{
			ID: "rest-3", Name: "Patty Palace", Description: "Smash burgers",
			PostalCode: "2022", CategoryID: "rc-3", ShippingCost: 2.0, Status: "online",
			Products: []product{
				{ID: "prod-6", Name: "Double Smash", Price: 9.5, CategoryID: "pc-1", CategoryName: "Mains",
					Reviews: []review{
						{ID: "rev-4", UserID: "user-4", Title: "Greasy in a good way", Body: "", Stars: 4},
						{ID: "rev-5", UserID: "user-5", Title: "Cold on arrival", Body: "Took too long.", Stars: 2},
					}},
				{ID: "prod-7", Name: "Truffle Fries", Price: 5.5, CategoryID: "pc-2", CategoryName: "Sides"},
			},
		},
		{
			ID: "rest-4", Name: "Quiet Corner", Description: "New opening, no orders yet",
			PostalCode: "3033", CategoryID: "rc-1", ShippingCost: 4.0, Status: "online",
			Products: []product{
				{ID: "prod-8", Name: "Lasagna", Price: 12.0, CategoryID: "pc-1", CategoryName: "Mains"},
			},
		},
	}

	// Orders: a handful per active restaurant. Offsets place some orders
	// inside the last week, more inside the last month, the rest only in the
	// last year. rest-4 gets none so zero-revenue exclusion is visible.
	offsets := []int{1, 2, 3, 5, 10, 20, 45, 120, 300}
	customerIDs := []string{"user-1", "user-2", "user-3", "user-4", "user-5"}

	var orders []order
	n := 0
	for _, r := range restaurants[:3] {
		for _, daysAgo := range offsets {
			n++
			p := r.Products[n%len(r.Products)]
			qty := 1 + rng.Intn(3)
			created := now.AddDate(0, 0, -daysAgo).Add(-time.Duration(rng.Intn(6)) * time.Hour)
			started := created.Add(time.Duration(2+rng.Intn(5)) * time.Minute)
			sent := started.Add(time.Duration(8+rng.Intn(20)) * time.Minute)
			delivered := sent.Add(time.Duration(10+rng.Intn(40)) * time.Minute)

			orders = append(orders, order{
				ID:           fmt.Sprintf("order-%d", n),
				RestaurantID: r.ID,
				UserID:       customerIDs[n%len(customerIDs)],
				Address:      fmt.Sprintf("%s Main Street %d", r.PostalCode, n),
				Price:        p.Price*float64(qty) + r.ShippingCost,
				ShippingCost: r.ShippingCost,
				CreatedAt:    created,
				StartedAt:    &started,
				SentAt:       &sent,
				DeliveredAt:  &delivered,
				Items: []orderItem{
					{ProductID: p.ID, Name: p.Name, UnitPrice: p.Price, Quantity: qty},
				},
			})
		}
	}

	return dataset{
		RestaurantCategories: restaurantCategories,
		ProductCategories:    productCategories,
		Restaurants:          restaurants,
		Users:                users,
		Orders:               orders,
	}
}

// avgPrice returns the mean product price, or nil when there are no products.
func avgPrice(products []product) *float64 {
	if len(products) == 0 {
		return nil
	}
	var sum float64
	for _, p := range products {
		sum += p.Price
	}
	avg := sum / float64(len(products))
	return &avg
}

// avgStars returns the mean star rating, or nil when there are no reviews.
func avgStars(reviews []review) *float64 {
	if len(reviews) == 0 {
		return nil
	}
	var sum float64
	for _, r := range reviews {
		sum += float64(r.Stars)
	}
	avg := sum / float64(len(reviews))
	return &avg
}

func seedPostgres(ctx context.Context, pool *pgxpool.Pool, data dataset) error {
	exec := func(sql string, args ...any) error {
		_, err := pool.Exec(ctx, sql, args...)
		return err
	}

	for _, c := range data.RestaurantCategories {
		if err := exec(`INSERT INTO restaurant_categories (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, c.ID, c.Name); err != nil {
			return fmt.Errorf("insert restaurant category %s: %w", c.ID, err)
		}
	}
	for _, c := range data.ProductCategories {
		if err := exec(`INSERT INTO product_categories (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, c.ID, c.Name); err != nil {
			return fmt.Errorf("insert product category %s: %w", c.ID, err)
		}
	}
	for _, u := range data.Users {
		if err := exec(`INSERT INTO users (id, name, postal_code, user_type) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
			u.ID, u.Name, u.PostalCode, u.UserType); err != nil {
			return fmt.Errorf("insert user %s: %w", u.ID, err)
		}
	}

	for _, r := range data.Restaurants {
		if err := exec(`
			INSERT INTO restaurants (id, name, description, postal_code, category_id, shipping_cost, avg_product_price, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING`,
			r.ID, r.Name, r.Description, r.PostalCode, r.CategoryID, r.ShippingCost, avgPrice(r.Products), r.Status); err != nil {
			return fmt.Errorf("insert restaurant %s: %w", r.ID, err)
		}
		for _, p := range r.Products {
			if err := exec(`
				INSERT INTO products (id, restaurant_id, name, description, price, category_id, avg_stars)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (id) DO NOTHING`,
				p.ID, r.ID, p.Name, p.Description, p.Price, p.CategoryID, avgStars(p.Reviews)); err != nil {
				return fmt.Errorf("insert product %s: %w", p.ID, err)
			}
			for _, rv := range p.Reviews {
				if err := exec(`
					INSERT INTO reviews (id, product_id, user_id, title, body, stars)
					VALUES ($1, $2, $3, $4, $5, $6)
					ON CONFLICT (id) DO NOTHING`,
					rv.ID, p.ID, rv.UserID, rv.Title, rv.Body, rv.Stars); err != nil {
					return fmt.Errorf("insert review %s: %w", rv.ID, err)
				}
			}
		}
	}

	for _, o := range data.Orders {
		if err := exec(`
			INSERT INTO orders (id, restaurant_id, user_id, address, price, shipping_cost, created_at, started_at, sent_at, delivered_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO NOTHING`,
			o.ID, o.RestaurantID, o.UserID, o.Address, o.Price, o.ShippingCost, o.CreatedAt, o.StartedAt, o.SentAt, o.DeliveredAt); err != nil {
			return fmt.Errorf("insert order %s: %w", o.ID, err)
		}
		for _, it := range o.Items {
			if err := exec(`
				INSERT INTO order_items (order_id, product_id, name, unit_price, quantity)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (order_id, product_id) DO NOTHING`,
				o.ID, it.ProductID, it.Name, it.UnitPrice, it.Quantity); err != nil {
				return fmt.Errorf("insert order item %s/%s: %w", o.ID, it.ProductID, err)
			}
		}
	}

	return nil
}

func seedMongo(ctx context.Context, db *mongodriver.Database, data dataset) error {
	for _, c := range data.RestaurantCategories {
		if err := upsertByID(ctx, db, "restaurantCategories", c.ID, bson.M{"_id": c.ID, "name": c.Name}); err != nil {
			return err
		}
	}
	for _, u := range data.Users {
		doc := bson.M{"_id": u.ID, "name": u.Name, "postalCode": u.PostalCode, "userType": u.UserType}
		if err := upsertByID(ctx, db, "users", u.ID, doc); err != nil {
			return err
		}
	}

	for _, r := range data.Restaurants {
		products := make([]bson.M, 0, len(r.Products))
		for _, p := range r.Products {
			reviews := make([]bson.M, 0, len(p.Reviews))
			for _, rv := range p.Reviews {
				reviews = append(reviews, bson.M{
					"_id": rv.ID, "userId": rv.UserID, "title": rv.Title, "body": rv.Body, "stars": rv.Stars,
				})
			}
			products = append(products, bson.M{
				"_id":          p.ID,
				"name":         p.Name,
				"description":  p.Description,
				"price":        p.Price,
				"categoryName": p.CategoryName,
				"avgStars":     avgStars(p.Reviews),
				"reviews":      reviews,
			})
		}
		doc := bson.M{
			"_id":          r.ID,
			"name":         r.Name,
			"description":  r.Description,
			"postalCode":   r.PostalCode,
			"categoryId":   r.CategoryID,
			"shippingCost": r.ShippingCost,
			"status":       r.Status,
			"products":     products,
		}
		if ap := avgPrice(r.Products); ap != nil {
			doc["avgProductPrice"] = *ap
		}
		if err := upsertByID(ctx, db, "restaurants", r.ID, doc); err != nil {
			return err
		}
	}

	for _, o := range data.Orders {
		items := make([]bson.M, 0, len(o.Items))
		for _, it := range o.Items {
			items = append(items, bson.M{
				"productId": it.ProductID, "name": it.Name, "unitPrice": it.UnitPrice, "quantity": it.Quantity,
			})
		}
		doc := bson.M{
			"_id":          o.ID,
			"restaurantId": o.RestaurantID,
			"userId":       o.UserID,
			"address":      o.Address,
			"price":        o.Price,
			"shippingCost": o.ShippingCost,
			"createdAt":    o.CreatedAt,
			"startedAt":    o.StartedAt,
			"sentAt":       o.SentAt,
			"deliveredAt":  o.DeliveredAt,
			"products":     items,
		}
		if err := upsertByID(ctx, db, "orders", o.ID, doc); err != nil {
			return err
		}
	}

	return nil
}

func upsertByID(ctx context.Context, db *mongodriver.Database, coll, id string, doc bson.M) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := db.Collection(coll).ReplaceOne(ctx, bson.M{"_id": id}, doc, opts); err != nil {
		return fmt.Errorf("upsert %s/%s: %w", coll, id, err)
	}
	return nil
}
