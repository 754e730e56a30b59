// Package logging assembles structured slog loggers and formatting helpers used
// across cherrycake.
//
// It owns the console and JSON handlers, the fan-out handler that mirrors
// contact events into their own JSON file, and context helpers that tag log lines with request IDs and the visualization
// being served. The package also provides a no-op logger for tests, a progress
// sampler for plain-text loop output, and log retention pruning.
package logging
