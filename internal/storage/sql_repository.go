package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/canonica-labs/chkconf/internal/errors"
	"github.com/canonica-labs/chkconf/pkg/models"
)

// SQLRepository implements ReportRepository over database/sql.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLRepository creates a repository on an open database. The schema must
// already be migrated.
func NewSQLRepository(db *sql.DB, dialect Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

// DB returns the underlying database handle.
func (r *SQLRepository) DB() *sql.DB {
	return r.db
}

// Close closes the database.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

const reportColumns = `id, created_at, ruleset, platform, mode, passes, bound,
	outcome, error_message, flags_json, changes_json, diagnostics_json`

// Save stores a report.
func (r *SQLRepository) Save(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	flagsJSON, err := json.Marshal(nonNil(report.Flags))
	if err != nil {
		return fmt.Errorf("failed to encode flags: %w", err)
	}
	changesJSON, err := json.Marshal(nonNil(report.Changes))
	if err != nil {
		return fmt.Errorf("failed to encode changes: %w", err)
	}
	diagnosticsJSON, err := json.Marshal(nonNil(report.Diagnostics))
	if err != nil {
		return fmt.Errorf("failed to encode diagnostics: %w", err)
	}

	// Start transaction
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorage("save", err)
	}
	defer tx.Rollback()

	// Check if report already exists
	var count int
	err = tx.QueryRowContext(ctx,
		r.dialect.Rebind("SELECT COUNT(*) FROM reports WHERE id = ?"),
		report.ID,
	).Scan(&count)
	if err != nil {
		return errors.NewStorage("save", err)
	}
	if count > 0 {
		return errors.NewStorage("save", fmt.Errorf("report %s already exists", report.ID))
	}

	_, err = tx.ExecContext(ctx, r.dialect.Rebind(`
		INSERT INTO reports (`+reportColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		report.ID,
		report.CreatedAt.UnixNano(),
		report.RuleSet,
		report.Platform,
		report.Mode,
		report.Passes,
		report.Bound,
		report.Outcome,
		nullableString(report.Error),
		string(flagsJSON),
		string(changesJSON),
		string(diagnosticsJSON),
	)
	if err != nil {
		return errors.NewStorage("save", err)
	}

	// Commit transaction
	if err := tx.Commit(); err != nil {
		return errors.NewStorage("save", err)
	}
	return nil
}

// Get retrieves a report by ID.
func (r *SQLRepository) Get(ctx context.Context, id string) (*models.Report, error) {
	row := r.db.QueryRowContext(ctx,
		r.dialect.Rebind("SELECT "+reportColumns+" FROM reports WHERE id = ?"), id)

	report, err := scanReport(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewReportNotFound(id)
	}
	if err != nil {
		return nil, errors.NewStorage("get", err)
	}
	return report, nil
}

// List returns matching reports, newest first.
func (r *SQLRepository) List(ctx context.Context, filter models.ReportFilter) ([]*models.Report, error) {
	query := "SELECT " + reportColumns + " FROM reports WHERE 1 = 1"
	var args []interface{}
	if filter.Platform != "" {
		query += " AND platform = ?"
		args = append(args, filter.Platform)
	}
	if filter.Outcome != "" {
		query += " AND outcome = ?"
		args = append(args, filter.Outcome)
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, errors.NewStorage("list", err)
	}
	defer rows.Close()

	result := make([]*models.Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, errors.NewStorage("list", err)
		}
		result = append(result, report)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorage("list", err)
	}
	return result, nil
}

// CheckConnectivity verifies database connectivity.
func (r *SQLRepository) CheckConnectivity(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return errors.NewStorage("connect", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(s scanner) (*models.Report, error) {
	var report models.Report
	var createdAt int64
	var errMsg sql.NullString
	var flagsJSON, changesJSON, diagnosticsJSON string
	err := s.Scan(
		&report.ID,
		&createdAt,
		&report.RuleSet,
		&report.Platform,
		&report.Mode,
		&report.Passes,
		&report.Bound,
		&report.Outcome,
		&errMsg,
		&flagsJSON,
		&changesJSON,
		&diagnosticsJSON,
	)
	if err != nil {
		return nil, err
	}

	report.CreatedAt = time.Unix(0, createdAt).UTC()
	report.Error = errMsg.String
	if err := json.Unmarshal([]byte(flagsJSON), &report.Flags); err != nil {
		return nil, fmt.Errorf("failed to decode flags of report %s: %w", report.ID, err)
	}
	if err := json.Unmarshal([]byte(changesJSON), &report.Changes); err != nil {
		return nil, fmt.Errorf("failed to decode changes of report %s: %w", report.ID, err)
	}
	if err := json.Unmarshal([]byte(diagnosticsJSON), &report.Diagnostics); err != nil {
		return nil, fmt.Errorf("failed to decode diagnostics of report %s: %w", report.ID, err)
	}
	return &report, nil
}

// nullableString converts empty strings to nil for SQL NULL.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
