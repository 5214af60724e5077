// Package logging provides structured logging for the chardev host.
//
// It wraps log/slog with configuration-driven level, format, and output
// selection, plus default service fields. The chardev core itself never
// logs; components that want lifecycle logging receive a Logger (or the
// chardev.Logger interface) from the host.
package logging
