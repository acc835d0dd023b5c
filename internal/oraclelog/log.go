// Package oraclelog provides the shared logging backend used across the
// oracle core, following the same UseLogger hook pattern demonstrated by
// blockchain/difficulty.go's log.Debugf calls in the teacher codebase: each
// package that does logging defines its own package-level log variable
// defaulting to a no-op logger, and exposes its own UseLogger(slog.Logger)
// so a caller can wire in a concrete backend. This package exists only to
// avoid every package re-declaring the same Disabled default and to give
// callers one place to wire every package-level logger at once.
//
// Logging is purely observational: no code path in this module branches on
// whether logging is enabled, and nothing logged is derived from anything
// that is not already part of the deterministic computation.
package oraclelog

import "github.com/decred/slog"

// Disabled is the default logger every oracle package starts with.
var Disabled = slog.Disabled

// Backend is the minimal interface a package's UseLogger hook satisfies.
type Backend interface {
	UseLogger(logger slog.Logger)
}

// UseLoggers wires logger into every backend provided, so callers can set
// up logging for the whole module in one call instead of visiting each
// package's UseLogger individually.
func UseLoggers(logger slog.Logger, backends ...Backend) {
	for _, b := range backends {
		b.UseLogger(logger)
	}
}
