// Package config loads, normalizes, and validates the spool configuration
// file. Configuration is read once at startup; components receive the
// resulting value and never observe later edits to the file.
package config
