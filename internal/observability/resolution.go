package observability

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/canonica-labs/chkconf/internal/errors"
)

// Outcomes of a resolution run.
const (
	OutcomeResolved   = "resolved"
	OutcomeConflict   = "conflict"
	OutcomeDivergence = "divergence"
	OutcomeInvalid    = "invalid"
	OutcomeError      = "error"
)

// OutcomeOf classifies the error returned by a resolution. nil is resolved.
func OutcomeOf(err error) string {
	if err == nil {
		return OutcomeResolved
	}
	var c interface{ ErrorCode() errors.ErrorCode }
	if !stderrors.As(err, &c) {
		return OutcomeError
	}
	switch c.ErrorCode() {
	case errors.CodeConflict:
		return OutcomeConflict
	case errors.CodeDivergence:
		return OutcomeDivergence
	case errors.CodeValidation:
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

// ResolutionEntry contains the fields logged for every resolution run.
type ResolutionEntry struct {
	// RunID is the unique identifier for this run.
	// Required.
	RunID string

	// Platform is the target platform.
	// Required.
	Platform string

	// Mode is the conflict mode the run used.
	Mode string

	// Passes is the number of propagation passes, zero when the run failed.
	Passes int

	// Changes is the number of change log entries.
	Changes int

	// Warnings is the number of warning diagnostics.
	Warnings int

	// Outcome is one of the Outcome constants.
	Outcome string

	// Error contains the error message if the run failed.
	Error string

	// Duration is how long the run took. Must be non-negative.
	Duration time.Duration
}

// Validate checks that all required fields are present.
func (e *ResolutionEntry) Validate() error {
	if e.RunID == "" {
		return fmt.Errorf("observability: run_id is required")
	}
	if e.Platform == "" {
		return fmt.Errorf("observability: platform is required")
	}
	if e.Duration < 0 {
		return fmt.Errorf("observability: duration cannot be negative")
	}
	return nil
}

// ResolutionLogger records resolution runs.
type ResolutionLogger interface {
	// LogResolution logs one run.
	// Returns an error if logging fails or the entry is invalid.
	LogResolution(ctx context.Context, entry ResolutionEntry) error

	// Summary returns aggregated statistics over the runs logged so far.
	Summary() *ResolutionSummary
}

// ResolutionSummary aggregates logged runs.
type ResolutionSummary struct {
	Resolved    int           `json:"resolved"`
	Failed      int           `json:"failed"`
	Warnings    int           `json:"warnings"`
	TopFailures []FailureStat `json:"top_failures"`
}

// FailureStat counts runs failing with one outcome.
type FailureStat struct {
	Outcome string `json:"outcome"`
	Count   int    `json:"count"`
}

// tally tracks entries for Summary.
type tally struct {
	mu      sync.RWMutex
	entries []ResolutionEntry
}

func (t *tally) add(e ResolutionEntry) {
	t.mu.Lock()
	t.entries = append(t.entries, e)
	t.mu.Unlock()
}

func (t *tally) summary() *ResolutionSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := &ResolutionSummary{TopFailures: []FailureStat{}}
	failures := make(map[string]int)
	for _, e := range t.entries {
		s.Warnings += e.Warnings
		if e.Error == "" {
			s.Resolved++
			continue
		}
		s.Failed++
		failures[e.Outcome]++
	}

	for outcome, count := range failures {
		s.TopFailures = append(s.TopFailures, FailureStat{Outcome: outcome, Count: count})
	}
	sort.Slice(s.TopFailures, func(i, j int) bool {
		if s.TopFailures[i].Count != s.TopFailures[j].Count {
			return s.TopFailures[i].Count > s.TopFailures[j].Count
		}
		return s.TopFailures[i].Outcome < s.TopFailures[j].Outcome
	})
	return s
}

// prepare checks ctx and the entry and fills in the outcome.
func prepare(ctx context.Context, entry *ResolutionEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.Outcome == "" {
		entry.Outcome = OutcomeResolved
		if entry.Error != "" {
			entry.Outcome = OutcomeError
		}
	}
	return nil
}

func level(entry ResolutionEntry) string {
	switch {
	case entry.Error != "":
		return "error"
	case entry.Warnings > 0:
		return "warn"
	default:
		return "info"
	}
}

// lockedWriter serializes writes of one logger so records never interleave.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) write(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.w.Write(data)
	return err
}
