package testutil

import "log/slog"

// DiscardLogger returns a slog.Logger that drops all output. Prefer
// log.NewNop() in packages that already depend on internal/log; this helper
// exists for packages that take *slog.Logger directly.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
