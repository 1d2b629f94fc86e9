package observability

import "log/slog"

// Component names the subsystem emitting a record.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// RunID identifies one resolution run.
func RunID(id string) slog.Attr {
	return slog.String("run_id", id)
}

// Platform names the target platform of a run.
func Platform(name string) slog.Attr {
	return slog.String("platform", name)
}

// Error records err under the "error" key. A nil error yields an empty attr,
// which slog handlers drop.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}
