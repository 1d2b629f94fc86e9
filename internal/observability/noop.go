package observability

import "context"

// NoopLogger is a logger that discards all runs.
// Useful for testing or when run logging is disabled.
type NoopLogger struct{}

// NewNoopLogger creates a new no-op logger.
func NewNoopLogger() *NoopLogger {
	return &NoopLogger{}
}

// LogResolution does nothing and always succeeds.
func (l *NoopLogger) LogResolution(ctx context.Context, entry ResolutionEntry) error {
	return nil
}

// Summary returns an empty summary.
func (l *NoopLogger) Summary() *ResolutionSummary {
	return &ResolutionSummary{TopFailures: []FailureStat{}}
}
