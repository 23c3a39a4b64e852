package records

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"
	_ "modernc.org/sqlite"
)

// Supported database/sql drivers for LoadSQL.
const (
	DriverSQLite = "sqlite"
	DriverDuckDB = "duckdb"
)

// DefaultQuery selects UserScore rows from a users table.
const DefaultQuery = "SELECT id, like_count, follow_count, comment_count FROM users ORDER BY id"

// LoadSQL runs query against the database at dsn and scans each row into a
// UserScore. The query must return four columns: id, like, follow and
// comment. An empty query means DefaultQuery.
func LoadSQL(ctx context.Context, driver, dsn, query string) ([]UserScore, error) {
	switch driver {
	case DriverSQLite, DriverDuckDB:
	default:
		return nil, fmt.Errorf("records: unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("records: open %s: %w", driver, err)
	}
	defer db.Close()
	return QuerySQL(ctx, db, query)
}

// QuerySQL is LoadSQL over an already open database.
func QuerySQL(ctx context.Context, db *sql.DB, query string) ([]UserScore, error) {
	if query == "" {
		query = DefaultQuery
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("records: query: %w", err)
	}
	defer rows.Close()

	var users []UserScore
	for rows.Next() {
		var (
			u  UserScore
			id sql.NullString
		)
		if err := rows.Scan(&id, &u.Like, &u.Follow, &u.Comment); err != nil {
			return nil, fmt.Errorf("records: scan row %d: %w", len(users)+1, err)
		}
		u.ID = id.String
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("records: read rows: %w", err)
	}
	log.Debugf("loaded %d users via %q", len(users), query)
	return users, nil
}
