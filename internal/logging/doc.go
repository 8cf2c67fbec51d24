// Package logging builds the process-wide slog logger and provides the
// standardized attribute keys used across components. The console handler
// renders a compact single-line format; the JSON handler is for machine
// consumption.
package logging
