package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/canonica-labs/chkconf/internal/errors"
	"github.com/canonica-labs/chkconf/pkg/models"
)

// MemoryRepository is an in-memory ReportRepository for tests and for runs
// with the store disabled. It is thread-safe and respects context
// cancellation.
type MemoryRepository struct {
	mu      sync.RWMutex
	reports map[string]*models.Report

	// connectivityFailure simulates an unreachable database
	connectivityFailure bool
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		reports: make(map[string]*models.Report),
	}
}

// SetConnectivityFailure makes CheckConnectivity fail.
func (r *MemoryRepository) SetConnectivityFailure(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectivityFailure = fail
}

// Save stores a copy of report.
func (r *MemoryRepository) Save(ctx context.Context, report *models.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	if _, exists := r.reports[report.ID]; exists {
		return errors.NewStorage("save", fmt.Errorf("report %s already exists", report.ID))
	}

	cp := *report
	r.reports[report.ID] = &cp
	return nil
}

// Get retrieves a report by ID.
func (r *MemoryRepository) Get(ctx context.Context, id string) (*models.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	report, ok := r.reports[id]
	if !ok {
		return nil, errors.NewReportNotFound(id)
	}
	cp := *report
	return &cp, nil
}

// List returns matching reports, newest first.
func (r *MemoryRepository) List(ctx context.Context, filter models.ReportFilter) ([]*models.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Report, 0, len(r.reports))
	for _, report := range r.reports {
		if filter.Matches(report) {
			cp := *report
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// CheckConnectivity succeeds unless a failure was simulated.
func (r *MemoryRepository) CheckConnectivity(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.connectivityFailure {
		return errors.NewStorage("connect", fmt.Errorf("connectivity failure (simulated)"))
	}
	return nil
}
