package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"                 // Postgres driver
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/ports"
	_ "modernc.org/sqlite" // Local SQLite driver
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// Repository is the document store behind links, usernames and principals.
// One type serves local SQLite files, Turso (libsql) and Postgres.
type Repository struct {
	db      *sql.DB
	dialect dialect
}

func New(dbURL string) (*Repository, error) {
	driverName, d := driverFor(dbURL)

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	if driverName == "sqlite" {
		// A single connection serializes writers and keeps :memory: databases alive.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driverName, err)
	}

	r := &Repository{db: db, dialect: d}
	if err := r.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func driverFor(dbURL string) (string, dialect) {
	switch {
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		return "pgx", dialectPostgres
	case strings.Contains(dbURL, "libsql://"), strings.Contains(dbURL, "wss://"):
		return "libsql", dialectSQLite
	}
	return "sqlite", dialectSQLite
}

func (r *Repository) migrate(ctx context.Context) error {
	seq := "seq INTEGER PRIMARY KEY AUTOINCREMENT"
	bigint := "INTEGER"
	if r.dialect == dialectPostgres {
		seq = "seq BIGSERIAL PRIMARY KEY"
		bigint = "BIGINT"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS links (
			` + seq + `,
			id TEXT NOT NULL UNIQUE,
			principal_id TEXT NOT NULL,
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			sort_order ` + bigint + ` NOT NULL,
			created_at ` + bigint + ` NOT NULL,
			updated_at ` + bigint + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_links_principal_order ON links(principal_id, sort_order)`,
		`CREATE TABLE IF NOT EXISTS usernames (
			principal_id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			updated_at ` + bigint + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS principals (
			id TEXT PRIMARY KEY,
			created_at ` + bigint + ` NOT NULL
		)`,
	}

	// libsql over HTTP rejects multi-statement batches, so run them one by one.
	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (r *Repository) rebind(query string) string {
	if r.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// Ensure interface compliance
var (
	_ ports.LinkRepository     = (*Repository)(nil)
	_ ports.UsernameRepository = (*Repository)(nil)
)
