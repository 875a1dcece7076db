package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ResolveLatestDatasetDBName returns the newest dataset database for a city:
// the db_name with the latest imported_at in latest_dataset_imports whose
// name contains city, ignoring case. meta is usually the cluster's
// 'postgres' database.
func ResolveLatestDatasetDBName(ctx context.Context, meta Querier, city string) (string, error) {
	city = strings.ToLower(strings.TrimSpace(city))
	if city == "" {
		return "", fmt.Errorf("city is required")
	}
	q := `
SELECT db_name
FROM latest_dataset_imports
WHERE lower(db_name) LIKE '%' || $1 || '%'
ORDER BY imported_at DESC
LIMIT 1`
	var dbName sql.NullString
	if err := meta.QueryRowContext(ctx, q, city).Scan(&dbName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("no dataset database found for city like %q", city)
		}
		return "", fmt.Errorf("resolve dataset database for %q: %w", city, err)
	}
	if !dbName.Valid || dbName.String == "" {
		return "", fmt.Errorf("empty db_name for city like %q", city)
	}
	return dbName.String, nil
}
