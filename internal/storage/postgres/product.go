package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/feastly/marketplace/internal/domain"
	"github.com/feastly/marketplace/pkg/database"
	apperrors "github.com/feastly/marketplace/pkg/errors"
)

const productColumns = `
	p.id, p.restaurant_id, p.name, p.description, p.price, pc.name, p.avg_stars`

// SearchProducts returns products whose name or description contains query,
// case-insensitively.
func (a *Adapter) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	sqlQuery := fmt.Sprintf(`
		SELECT %s
		FROM products p
		JOIN product_categories pc ON pc.id = p.category_id
		WHERE (p.name ILIKE $1 OR p.description ILIKE $1)`, productColumns)

	pattern := "%" + escapeLike(query) + "%"

	ctx, end := database.TraceQuery(ctx, "postgresql", "SearchProducts", sqlQuery)
	rows, err := a.pool.Query(ctx, sqlQuery, pattern)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.RestaurantID, &p.Name, &p.Description, &p.Price, &p.CategoryName, &p.AverageStars); err != nil {
			end(err)
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	end(rows.Err())
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

// GetProduct loads a single product by id.
func (a *Adapter) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		JOIN product_categories pc ON pc.id = p.category_id
		WHERE p.id = $1`, productColumns)

	ctx, end := database.TraceQuery(ctx, "postgresql", "GetProduct", query)
	var p domain.Product
	err := a.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.RestaurantID, &p.Name, &p.Description, &p.Price, &p.CategoryName, &p.AverageStars)
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return &p, nil
}

// RecomputeProductAverageStars recomputes averageStars from the product's
// current reviews and persists it. A product with no reviews gets NULL,
// never zero.
func (a *Adapter) RecomputeProductAverageStars(ctx context.Context, productID string) error {
	query := `
		UPDATE products
		SET avg_stars = (SELECT AVG(stars::float8) FROM reviews WHERE product_id = $1)
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "postgresql", "RecomputeProductAverageStars", query)
	tag, err := a.pool.Exec(ctx, query, productID)
	end(err)
	if err != nil {
		return fmt.Errorf("recompute product average stars: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("product", productID)
	}

	return nil
}
