package postgres

import (
	"context"
	"fmt"

	"github.com/feastly/marketplace/internal/domain"
	"github.com/feastly/marketplace/pkg/database"
)

// SearchUsers returns customers, restricted to a postal code when one is
// given. Owner accounts and credential columns are never selected.
func (a *Adapter) SearchUsers(ctx context.Context, postalCode string) ([]domain.User, error) {
	query := `
		SELECT id, name, postal_code, user_type
		FROM users
		WHERE user_type = $1`

	args := []any{domain.UserTypeCustomer}
	if postalCode != "" {
		query += " AND postal_code = $2"
		args = append(args, postalCode)
	}

	ctx, end := database.TraceQuery(ctx, "postgresql", "SearchUsers", query)
	rows, err := a.pool.Query(ctx, query, args...)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.PostalCode, &u.UserType); err != nil {
			end(err)
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	end(rows.Err())
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// TopCustomersBySpend returns up to limit customers ordered by lifetime
// spend descending, ties broken by ascending id. Customers with no orders
// never appear.
func (a *Adapter) TopCustomersBySpend(ctx context.Context, limit int) ([]domain.UserSpend, error) {
	query := `
		SELECT u.id, u.name, u.postal_code, u.user_type, SUM(o.price) AS total_spent
		FROM users u
		JOIN orders o ON o.user_id = u.id
		WHERE u.user_type = $1
		GROUP BY u.id, u.name, u.postal_code, u.user_type
		ORDER BY total_spent DESC, u.id ASC
		LIMIT $2`

	ctx, end := database.TraceQuery(ctx, "postgresql", "TopCustomersBySpend", query)
	rows, err := a.pool.Query(ctx, query, domain.UserTypeCustomer, limit)
	if err != nil {
		end(err)
		return nil, fmt.Errorf("top customers: %w", err)
	}
	defer rows.Close()

	var customers []domain.UserSpend
	for rows.Next() {
		var c domain.UserSpend
		if err := rows.Scan(&c.ID, &c.Name, &c.PostalCode, &c.UserType, &c.TotalSpent); err != nil {
			end(err)
			return nil, fmt.Errorf("scan top customer: %w", err)
		}
		customers = append(customers, c)
	}
	end(rows.Err())
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate top customers: %w", err)
	}

	return customers, nil
}
