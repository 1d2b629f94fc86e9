package observability

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-logfmt/logfmt"
)

// LogfmtLogger implements ResolutionLogger with one logfmt record per line,
// for terminals and line-oriented log collectors.
type LogfmtLogger struct {
	out   lockedWriter
	tally tally
}

// NewLogfmtLogger creates a logger writing logfmt records to w.
func NewLogfmtLogger(w io.Writer) *LogfmtLogger {
	return &LogfmtLogger{out: lockedWriter{w: w}}
}

// LogResolution logs a run as one logfmt record.
func (l *LogfmtLogger) LogResolution(ctx context.Context, entry ResolutionEntry) error {
	if err := prepare(ctx, &entry); err != nil {
		return err
	}

	keyvals := []interface{}{
		"ts", time.Now().UTC().Format(time.RFC3339),
		"level", level(entry),
		"run_id", entry.RunID,
		"platform", entry.Platform,
		"mode", entry.Mode,
		"passes", entry.Passes,
		"changes", entry.Changes,
		"warnings", entry.Warnings,
		"outcome", entry.Outcome,
	}
	if entry.Error != "" {
		keyvals = append(keyvals, "error", entry.Error)
	}
	keyvals = append(keyvals, "duration_ms", entry.Duration.Milliseconds())

	// Encode the whole record first so it reaches w in one Write.
	var buf bytes.Buffer
	enc := logfmt.NewEncoder(&buf)
	if err := enc.EncodeKeyvals(keyvals...); err != nil {
		return fmt.Errorf("observability: failed to encode log: %w", err)
	}
	if err := enc.EndRecord(); err != nil {
		return fmt.Errorf("observability: failed to encode log: %w", err)
	}
	if err := l.out.write(buf.Bytes()); err != nil {
		return fmt.Errorf("observability: failed to write log: %w", err)
	}

	l.tally.add(entry)
	return nil
}

// Summary returns aggregated statistics.
func (l *LogfmtLogger) Summary() *ResolutionSummary {
	return l.tally.summary()
}
