package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed queue or item input, rejected before any
	// state mutation.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks invalid policy or run parameters. A run carrying
	// this error aborts before processing any item.
	ErrConfiguration = errors.New("configuration error")
	// ErrConcurrentRun marks a second run attempted on a queue that already
	// has an active run.
	ErrConcurrentRun = errors.New("queue run already in progress")
	// ErrTransient marks an extraction failure expected to succeed on retry
	// (network, timeout, rate limiting).
	ErrTransient = errors.New("transient failure")
	// ErrPermanent marks an extraction failure not expected to succeed on
	// retry (content removed, private, region blocked).
	ErrPermanent = errors.New("permanent failure")
	// ErrStore marks a failure to read or write persisted state. Fatal to the
	// current run.
	ErrStore = errors.New("state store error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRunFatal reports whether an error must abort the surrounding run rather
// than be recorded against a single item.
func IsRunFatal(err error) bool {
	return errors.Is(err, ErrStore) ||
		errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrConcurrentRun)
}

// FailureKind returns the persisted error classification for an item-level
// failure: "permanent" when the error carries the permanent marker, otherwise
// "transient".
func FailureKind(err error) string {
	if errors.Is(err, ErrPermanent) {
		return "permanent"
	}
	return "transient"
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
