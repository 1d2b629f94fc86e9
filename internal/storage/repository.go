// Package storage persists resolution reports.
//
// Reports live in one table of a SQL database: SQLite for local use, PostgreSQL
// when several machines share a history.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	// Database drivers
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/canonica-labs/chkconf/internal/errors"
	"github.com/canonica-labs/chkconf/pkg/models"
)

// ReportRepository defines the interface for report persistence.
// All implementations must be:
// - Thread-safe
// - Context-aware (respecting cancellation/timeout)
// - Explicit about errors (never swallow)
type ReportRepository interface {
	// Save stores a report. An empty ID is filled with a new UUID and a
	// zero CreatedAt with the current time.
	// Returns an error if:
	// - A report with the same ID exists
	// - Context is cancelled
	Save(ctx context.Context, report *models.Report) error

	// Get retrieves a report by ID.
	// Returns ErrReportNotFound if the report does not exist.
	Get(ctx context.Context, id string) (*models.Report, error)

	// List returns matching reports, newest first.
	// Returns empty slice (not nil) if nothing matches.
	List(ctx context.Context, filter models.ReportFilter) ([]*models.Report, error)

	// CheckConnectivity verifies database connectivity.
	CheckConnectivity(ctx context.Context) error
}

// Dialect is the SQL flavor of a database.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect parses a store driver name.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pq":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported store driver: %s (valid: sqlite, postgres)", driver)
	}
}

// Rebind rewrites ? placeholders to the dialect's form.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
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

// Open connects to the database, verifies connectivity and applies pending
// migrations.
func Open(ctx context.Context, driver, dsn string) (*SQLRepository, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, errors.NewStorage("open", err)
	}
	if dialect == DialectSQLite {
		// One writer; also keeps ":memory:" databases on a single connection.
		db.SetMaxOpenConns(1)
	}

	repo := NewSQLRepository(db, dialect)
	if err := repo.CheckConnectivity(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := NewMigrationRunner(db, dialect).Run(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}
