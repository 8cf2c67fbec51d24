// Package services defines the shared error taxonomy used across the
// download pipeline. Components tag failures with one of the exported
// sentinel errors so callers can classify outcomes with errors.Is without
// depending on component internals.
package services
