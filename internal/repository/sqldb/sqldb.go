// Package sqldb implements the repository interfaces on top of database/sql.
//
// The same queries serve two engines:
//
//   - SQLite through modernc.org/sqlite, a pure Go port, so no C compiler is
//     needed and ":memory:" gives every test a throwaway database.
//   - PostgreSQL through the pgx stdlib driver, for production deployments.
//
// Queries are written with "?" placeholders and rebound to "$1, $2, ..." for
// PostgreSQL. The few places where the engines disagree (column types, JSON
// array functions, case-insensitive LIKE, error codes) live in the dialect.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"github.com/sakif/memory-journal/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// dialect captures what differs between SQLite and PostgreSQL.
type dialect struct {
	name     string
	driver   string
	numbered bool // "$n" placeholders instead of "?"
	like     string
	schema   []string
	// jsonElements yields one row per string in a JSON array column, as "value".
	jsonElements func(column string) string
	isUnique     func(err error) bool
}

var sqliteDialect = dialect{
	name:   "sqlite",
	driver: "sqlite",
	like:   "LIKE", // already case-insensitive for ASCII
	schema: sqliteSchema,
	jsonElements: func(column string) string {
		return "SELECT value FROM json_each(" + column + ")"
	},
	isUnique: func(err error) bool {
		return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
	},
}

var postgresDialect = dialect{
	name:     "postgres",
	driver:   "pgx",
	numbered: true,
	like:     "ILIKE",
	schema:   postgresSchema,
	jsonElements: func(column string) string {
		return "SELECT value FROM jsonb_array_elements_text(" + column + ")"
	},
	isUnique: func(err error) bool {
		var pgErr *pgconn.PgError
		return errors.As(err, &pgErr) && pgErr.Code == "23505"
	},
}

// DB wraps a sql.DB connection pool and implements repository.Store.
type DB struct {
	conn    *sql.DB
	dialect dialect
}

// OpenSQLite opens (or creates) a SQLite database file and runs migrations.
// Use ":memory:" for a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*DB, error) {
	conn, err := sql.Open(sqliteDialect.driver, path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// SQLite serialises writers anyway. One connection also keeps PRAGMAs
	// (which are per connection) in force and makes ":memory:" a single database
	// instead of one per pooled connection.
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	return open(ctx, conn, sqliteDialect)
}

// OpenPostgres connects to PostgreSQL using a URL or keyword/value DSN.
func OpenPostgres(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}
	return open(ctx, conn, postgresDialect)
}

func open(ctx context.Context, conn *sql.DB, d dialect) (*DB, error) {
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: pinging database: %w", d.name, err)
	}

	db := &DB{conn: conn, dialect: d}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: running migrations: %w", d.name, err)
	}
	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables and indexes that don't exist yet, then seeds the
// prompt table if it is empty. Every statement is idempotent.
func (db *DB) migrate(ctx context.Context) error {
	for _, stmt := range db.dialect.schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing %q: %w", firstLine(stmt), err)
		}
	}
	return db.seedPrompts(ctx)
}

// q rewrites "?" placeholders for the active dialect.
func (db *DB) q(query string) string {
	if !db.dialect.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) name() string { return db.dialect.name }

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// placeholders returns "?, ?, ?" with n entries.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
