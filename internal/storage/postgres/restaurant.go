package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/feastly/marketplace/internal/domain"
	"github.com/feastly/marketplace/pkg/database"
	apperrors "github.com/feastly/marketplace/pkg/errors"
)

const restaurantColumns = `
	r.id, r.name, r.description, r.postal_code, r.category_id, rc.name,
	r.shipping_cost, r.avg_product_price, r.status`

func scanRestaurantColumns(row interface{ Scan(dest ...any) error }, r *domain.Restaurant) error {
	return row.Scan(
		&r.ID,
		&r.Name,
		&r.Description,
		&r.PostalCode,
		&r.CategoryID,
		&r.CategoryName,
		&r.ShippingCost,
		&r.AverageProductPrice,
		&r.Status,
	)
}

// SearchRestaurants returns restaurants matching every set filter field.
// Duration sorts join a per-restaurant mean computed from completed orders;
// the final ordering is applied by the search engine, not here.
func (a *Adapter) SearchRestaurants(ctx context.Context, filter domain.RestaurantFilter) ([]domain.Restaurant, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.PostalCode != nil {
		conditions = append(conditions, fmt.Sprintf("r.postal_code = $%d", argIndex))
		args = append(args, *filter.PostalCode)
		argIndex++
	}

	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("r.category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}

	if filter.Expensive != nil {
		op := "EXISTS"
		if !*filter.Expensive {
			op = "NOT EXISTS"
		}
		conditions = append(conditions, fmt.Sprintf(
			"%s (SELECT 1 FROM products p WHERE p.restaurant_id = r.id AND p.price > $%d)", op, argIndex))
		args = append(args, a.expensiveThreshold)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	selectCols := restaurantColumns
	joinClause := "JOIN restaurant_categories rc ON rc.id = r.category_id"

	switch filter.SortBy {
	case domain.SortDeliveryTime:
		selectCols += ", d.avg_seconds"
		joinClause += `
			LEFT JOIN (
				SELECT restaurant_id, AVG(EXTRACT(EPOCH FROM (delivered_at - sent_at))) AS avg_seconds
				FROM orders
				WHERE sent_at IS NOT NULL AND delivered_at IS NOT NULL
				GROUP BY restaurant_id
			) d ON d.restaurant_id = r.id`
	case domain.SortPreparationTime:
		selectCols += ", d.avg_seconds"
		joinClause += `
			LEFT JOIN (
				SELECT restaurant_id, AVG(EXTRACT(EPOCH FROM (sent_at - created_at))) AS avg_seconds
				FROM orders
				WHERE sent_at IS NOT NULL
				GROUP BY restaurant_id
			) d ON d.restaurant_id = r.id`
	}

	query := fmt.Sprintf("SELECT %s FROM restaurants r %s %s", selectCols, joinClause, whereClause)

	ctx, end := database.TraceQuery(ctx, "postgresql", "SearchRestaurants", query)
	rows, err := a.pool.Query(ctx, query, args...)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("search restaurants: %w", err)
	}
	defer rows.Close()

	var restaurants []domain.Restaurant
	for rows.Next() {
		var (
			r          domain.Restaurant
			avgSeconds *float64
		)
		dest := []any{
			&r.ID, &r.Name, &r.Description, &r.PostalCode, &r.CategoryID, &r.CategoryName,
			&r.ShippingCost, &r.AverageProductPrice, &r.Status,
		}
		if filter.SortBy != domain.SortNone {
			dest = append(dest, &avgSeconds)
		}
		if err := rows.Scan(dest...); err != nil {
			end(err)
			return nil, fmt.Errorf("scan restaurant: %w", err)
		}
		switch filter.SortBy {
		case domain.SortDeliveryTime:
			r.AvgDeliverySeconds = avgSeconds
		case domain.SortPreparationTime:
			r.AvgPreparationSeconds = avgSeconds
		}
		restaurants = append(restaurants, r)
	}
	end(rows.Err())
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate restaurants: %w", err)
	}

	return restaurants, nil
}

// RestaurantsByIDs loads restaurants by id; missing ids are absent from the
// result map.
func (a *Adapter) RestaurantsByIDs(ctx context.Context, ids []string) (map[string]domain.Restaurant, error) {
	if len(ids) == 0 {
		return map[string]domain.Restaurant{}, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM restaurants r
		JOIN restaurant_categories rc ON rc.id = r.category_id
		WHERE r.id = ANY($1)`, restaurantColumns)

	ctx, end := database.TraceQuery(ctx, "postgresql", "RestaurantsByIDs", query)
	rows, err := a.pool.Query(ctx, query, ids)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("restaurants by ids: %w", err)
	}
	defer rows.Close()

	result := make(map[string]domain.Restaurant, len(ids))
	for rows.Next() {
		var r domain.Restaurant
		if err := scanRestaurantColumns(rows, &r); err != nil {
			end(err)
			return nil, fmt.Errorf("scan restaurant: %w", err)
		}
		result[r.ID] = r
	}
	end(rows.Err())
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate restaurants: %w", err)
	}

	return result, nil
}

// ListRestaurantIDs returns every restaurant id.
func (a *Adapter) ListRestaurantIDs(ctx context.Context) ([]string, error) {
	query := `SELECT id FROM restaurants ORDER BY id`

	ctx, end := database.TraceQuery(ctx, "postgresql", "ListRestaurantIDs", query)
	rows, err := a.pool.Query(ctx, query)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("list restaurant ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			end(err)
			return nil, fmt.Errorf("scan restaurant id: %w", err)
		}
		ids = append(ids, id)
	}
	end(rows.Err())
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate restaurant ids: %w", err)
	}

	return ids, nil
}

// RevenueByRestaurantInWindow sums order prices per restaurant over orders
// created at or after windowStart. Restaurants with no orders in the window
// are absent, never reported as zero.
func (a *Adapter) RevenueByRestaurantInWindow(ctx context.Context, windowStart time.Time) ([]domain.RestaurantRevenue, error) {
	query := `
		SELECT restaurant_id, SUM(price)
		FROM orders
		WHERE created_at >= $1
		GROUP BY restaurant_id`

	ctx, end := database.TraceQuery(ctx, "postgresql", "RevenueByRestaurantInWindow", query)
	rows, err := a.pool.Query(ctx, query, windowStart)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("revenue by restaurant: %w", err)
	}
	defer rows.Close()

	var revenues []domain.RestaurantRevenue
	for rows.Next() {
		var rev domain.RestaurantRevenue
		if err := rows.Scan(&rev.RestaurantID, &rev.Revenue); err != nil {
			end(err)
			return nil, fmt.Errorf("scan revenue: %w", err)
		}
		revenues = append(revenues, rev)
	}
	end(rows.Err())
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revenues: %w", err)
	}

	return revenues, nil
}

// DeliveryDurations returns one sample per completed delivery, keyed by
// restaurant id. A non-empty restaurantID scopes the result.
func (a *Adapter) DeliveryDurations(ctx context.Context, restaurantID string) (map[string][]domain.DeliverySample, error) {
	query := `
		SELECT restaurant_id, sent_at, delivered_at
		FROM orders
		WHERE sent_at IS NOT NULL AND delivered_at IS NOT NULL`

	var args []any
	if restaurantID != "" {
		query += " AND restaurant_id = $1"
		args = append(args, restaurantID)
	}

	ctx, end := database.TraceQuery(ctx, "postgresql", "DeliveryDurations", query)
	rows, err := a.pool.Query(ctx, query, args...)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("delivery durations: %w", err)
	}
	defer rows.Close()

	samples := make(map[string][]domain.DeliverySample)
	for rows.Next() {
		var (
			restaurantID string
			s            domain.DeliverySample
		)
		if err := rows.Scan(&restaurantID, &s.SentAt, &s.DeliveredAt); err != nil {
			end(err)
			return nil, fmt.Errorf("scan delivery sample: %w", err)
		}
		samples[restaurantID] = append(samples[restaurantID], s)
	}
	end(rows.Err())
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delivery samples: %w", err)
	}

	return samples, nil
}

// RecomputeRestaurantAveragePrice recomputes averageProductPrice from the
// restaurant's current products and persists it. A restaurant with no
// products gets NULL.
func (a *Adapter) RecomputeRestaurantAveragePrice(ctx context.Context, restaurantID string) error {
	query := `
		UPDATE restaurants
		SET avg_product_price = (SELECT AVG(price) FROM products WHERE restaurant_id = $1)
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "postgresql", "RecomputeRestaurantAveragePrice", query)
	tag, err := a.pool.Exec(ctx, query, restaurantID)
	end(err)
	if err != nil {
		return fmt.Errorf("recompute restaurant average price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("restaurant", restaurantID)
	}

	return nil
}
