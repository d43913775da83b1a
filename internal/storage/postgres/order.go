package postgres

import (
	"context"
	"fmt"

	"github.com/feastly/marketplace/internal/domain"
	"github.com/feastly/marketplace/pkg/database"
)

// SearchOrders returns the given user's orders containing at least one line
// item whose name contains query, case-insensitively. The user scope is
// enforced here; orders of other users can never match.
func (a *Adapter) SearchOrders(ctx context.Context, userID, query string) ([]domain.Order, error) {
	orderQuery := `
		SELECT o.id, o.restaurant_id, o.user_id, o.address, o.price, o.shipping_cost,
			o.created_at, o.started_at, o.sent_at, o.delivered_at
		FROM orders o
		WHERE o.user_id = $1`

	args := []any{userID}
	if query != "" {
		orderQuery += `
		  AND EXISTS (
			SELECT 1 FROM order_items oi
			WHERE oi.order_id = o.id AND oi.name ILIKE $2
		  )`
		args = append(args, "%"+escapeLike(query)+"%")
	}

	ctx, end := database.TraceQuery(ctx, "postgresql", "SearchOrders", orderQuery)
	rows, err := a.pool.Query(ctx, orderQuery, args...)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("search orders: %w", err)
	}

	var (
		orders   []domain.Order
		orderIDs []string
	)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID, &o.RestaurantID, &o.UserID, &o.Address, &o.Price, &o.ShippingCost,
			&o.CreatedAt, &o.StartedAt, &o.SentAt, &o.DeliveredAt,
		); err != nil {
			rows.Close()
			end(err)
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
		orderIDs = append(orderIDs, o.ID)
	}
	rows.Close()
	end(rows.Err())
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	// Batch-load line items for all matched orders in one query.
	itemsByOrder, err := a.orderItems(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = itemsByOrder[orders[i].ID]
	}

	return orders, nil
}

func (a *Adapter) orderItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	query := `
		SELECT order_id, product_id, name, unit_price, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, product_id`

	ctx, end := database.TraceQuery(ctx, "postgresql", "OrderItems", query)
	rows, err := a.pool.Query(ctx, query, orderIDs)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			item    domain.OrderItem
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &item.UnitPrice, &item.Quantity); err != nil {
			end(err)
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items[orderID] = append(items[orderID], item)
	}
	end(rows.Err())
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}
