// Package warehouse ensures the destination table exists and loads record
// batches into it over database/sql.
package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// ErrInvalidTable is returned for table names that are not plain identifiers.
var ErrInvalidTable = errors.New("warehouse: invalid table name")

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Dialect captures the statement differences between supported sinks.
type Dialect struct {
	Name         string
	DriverName   string
	IdentityType string
	Placeholder  func(n int) string
}

var (
	SQLite = Dialect{
		Name:         "sqlite",
		DriverName:   "sqlite",
		IdentityType: "INTEGER PRIMARY KEY AUTOINCREMENT",
		Placeholder:  func(int) string { return "?" },
	}
	LibSQL = Dialect{
		Name:         "libsql",
		DriverName:   "libsql",
		IdentityType: "INTEGER PRIMARY KEY AUTOINCREMENT",
		Placeholder:  func(int) string { return "?" },
	}
	Postgres = Dialect{
		Name:         "pgx",
		DriverName:   "pgx",
		IdentityType: "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY",
		Placeholder:  func(n int) string { return fmt.Sprintf("$%d", n) },
	}
)

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case "sqlite":
		return SQLite, nil
	case "libsql":
		return LibSQL, nil
	case "pgx", "postgres":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported sink driver %q", name)
	}
}

func (d Dialect) createTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id %s,
	title TEXT NOT NULL,
	authors TEXT,
	price TEXT,
	rating TEXT
)`, table, d.IdentityType)
}

func (d Dialect) insertSQL(table string) string {
	placeholders := make([]string, 4)
	for i := range placeholders {
		placeholders[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (title, authors, price, rating) VALUES (%s)",
		table, strings.Join(placeholders, ", "))
}

// Open connects to the sink and verifies the connection.
func Open(ctx context.Context, d Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s sink: %w", d.Name, err)
	}
	if d.Name == SQLite.Name {
		// A single connection keeps :memory: databases shared and serialises writers.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s sink: %w", d.Name, err)
	}
	return db, nil
}
