package application

import "log/slog"

// ResolveLogger falls back to the process default so use cases and workers
// can be constructed without explicit logger wiring.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
