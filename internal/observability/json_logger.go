package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// jsonLogOutput is the structured format for JSON logs.
type jsonLogOutput struct {
	Timestamp  string `json:"timestamp"`
	Level      string `json:"level"`
	RunID      string `json:"run_id"`
	Platform   string `json:"platform"`
	Mode       string `json:"mode,omitempty"`
	Passes     int    `json:"passes"`
	Changes    int    `json:"changes"`
	Warnings   int    `json:"warnings"`
	Outcome    string `json:"outcome"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// JSONLogger implements ResolutionLogger with one JSON object per line.
type JSONLogger struct {
	out   lockedWriter
	tally tally
}

// NewJSONLogger creates a new JSON logger writing to the given writer.
func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{out: lockedWriter{w: w}}
}

// LogResolution logs a run as JSON.
func (l *JSONLogger) LogResolution(ctx context.Context, entry ResolutionEntry) error {
	if err := prepare(ctx, &entry); err != nil {
		return err
	}

	output := jsonLogOutput{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Level:      level(entry),
		RunID:      entry.RunID,
		Platform:   entry.Platform,
		Mode:       entry.Mode,
		Passes:     entry.Passes,
		Changes:    entry.Changes,
		Warnings:   entry.Warnings,
		Outcome:    entry.Outcome,
		Error:      entry.Error,
		DurationMs: entry.Duration.Milliseconds(),
	}

	data, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("observability: failed to marshal log: %w", err)
	}
	if err := l.out.write(append(data, '\n')); err != nil {
		return fmt.Errorf("observability: failed to write log: %w", err)
	}

	l.tally.add(entry)
	return nil
}

// Summary returns aggregated statistics.
func (l *JSONLogger) Summary() *ResolutionSummary {
	return l.tally.summary()
}
