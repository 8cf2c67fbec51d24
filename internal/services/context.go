package services

import "context"

type contextKey string

const (
	queueIDKey contextKey = "queue_id"
	itemIDKey  contextKey = "item_id"
	attemptKey contextKey = "attempt"
)

// WithQueueID stores the queue identifier in the context.
func WithQueueID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, queueIDKey, id)
}

// QueueIDFromContext extracts the queue identifier if present.
func QueueIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(queueIDKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// WithItemID stores the queue item identifier in the context.
func WithItemID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, itemIDKey, id)
}

// ItemIDFromContext extracts the queue item identifier if present.
func ItemIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(itemIDKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// WithAttempt stores the zero-based attempt index in the context.
func WithAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, attemptKey, attempt)
}

// AttemptFromContext extracts the attempt index if present.
func AttemptFromContext(ctx context.Context) (int, bool) {
	if ctx == nil {
		return 0, false
	}
	attempt, ok := ctx.Value(attemptKey).(int)
	return attempt, ok
}
