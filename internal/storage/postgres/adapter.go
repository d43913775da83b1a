// Package postgres implements the storage adapter on PostgreSQL via pgx.
package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/feastly/marketplace/pkg/database"
)

// Adapter implements storage.Adapter using PostgreSQL.
type Adapter struct {
	pool database.DBTX

	// expensiveThreshold is the product price above which a restaurant
	// counts as expensive.
	expensiveThreshold float64
}

// NewAdapter creates a PostgreSQL-backed storage adapter.
func NewAdapter(pool database.DBTX, expensiveThreshold float64) *Adapter {
	return &Adapter{pool: pool, expensiveThreshold: expensiveThreshold}
}

// escapeLike escapes LIKE/ILIKE metacharacters so user input matches
// literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
