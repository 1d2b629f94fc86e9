package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/canonica-labs/chkconf/internal/errors"
	"github.com/canonica-labs/chkconf/migrations"
)

// MigrationRunner handles database schema migrations.
type MigrationRunner struct {
	db      *sql.DB
	dialect Dialect
	files   fs.FS
}

// NewMigrationRunner creates a runner over the embedded migrations.
func NewMigrationRunner(db *sql.DB, dialect Dialect) *MigrationRunner {
	return &MigrationRunner{db: db, dialect: dialect, files: migrations.FS}
}

// Run executes all pending migrations in version order and returns the
// number applied.
func (r *MigrationRunner) Run(ctx context.Context) (int, error) {
	// Create migrations tracking table if it doesn't exist
	if err := r.ensureMigrationsTable(ctx); err != nil {
		return 0, errors.NewStorage("migrate", fmt.Errorf("failed to create migrations table: %w", err))
	}

	// Get list of applied migrations
	applied, err := r.Applied(ctx)
	if err != nil {
		return 0, errors.NewStorage("migrate", fmt.Errorf("failed to get applied migrations: %w", err))
	}

	// Get list of migration files
	pending, err := r.migrationFiles()
	if err != nil {
		return 0, errors.NewStorage("migrate", fmt.Errorf("failed to read migration files: %w", err))
	}

	n := 0
	for _, m := range pending {
		if applied[m.version] {
			continue
		}
		if err := r.applyMigration(ctx, m); err != nil {
			return n, errors.NewStorage("migrate "+m.name, err)
		}
		n++
	}
	return n, nil
}

type migration struct {
	version string
	name    string
	content string
}

func (r *MigrationRunner) ensureMigrationsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at BIGINT NOT NULL
		)
	`
	_, err := r.db.ExecContext(ctx, query)
	return err
}

// Applied returns the versions already applied.
func (r *MigrationRunner) Applied(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (r *MigrationRunner) migrationFiles() ([]migration, error) {
	entries, err := fs.ReadDir(r.files, ".")
	if err != nil {
		return nil, err
	}

	var list []migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}

		// 000001_create_reports.up.sql
		version, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		content, err := fs.ReadFile(r.files, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		list = append(list, migration{
			version: version,
			name:    strings.TrimSuffix(name, ".up.sql"),
			content: string(content),
		})
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].version < list[j].version
	})
	return list, nil
}

func (r *MigrationRunner) applyMigration(ctx context.Context, m migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Execute one statement at a time; not every driver accepts a batch.
	for _, stmt := range statements(m.content) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	// Record migration
	if _, err := tx.ExecContext(ctx,
		r.dialect.Rebind(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`),
		m.version, time.Now().UTC().UnixNano(),
	); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

// statements splits a migration on semicolons and drops comment-only parts.
func statements(content string) []string {
	var out []string
	for _, part := range strings.Split(content, ";") {
		var lines []string
		for _, line := range strings.Split(part, "\n") {
			if t := strings.TrimSpace(line); t == "" || strings.HasPrefix(t, "--") {
				continue
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			out = append(out, strings.Join(lines, "\n"))
		}
	}
	return out
}
