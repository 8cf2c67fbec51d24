// Package notifications delivers queue lifecycle events to a Slack incoming
// webhook. When no webhook is configured a noop implementation is returned,
// so callers never need to nil-check.
package notifications
