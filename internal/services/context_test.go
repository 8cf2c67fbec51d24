package services_test

import (
	"context"
	"testing"

	"spool/internal/services"
)

func TestContextCarriers(t *testing.T) {
	ctx := services.WithQueueID(context.Background(), "q-1")
	ctx = services.WithItemID(ctx, "item-7")
	ctx = services.WithAttempt(ctx, 3)

	if id, ok := services.QueueIDFromContext(ctx); !ok || id != "q-1" {
		t.Fatalf("queue id = %q, %v", id, ok)
	}
	if id, ok := services.ItemIDFromContext(ctx); !ok || id != "item-7" {
		t.Fatalf("item id = %q, %v", id, ok)
	}
	if attempt, ok := services.AttemptFromContext(ctx); !ok || attempt != 3 {
		t.Fatalf("attempt = %d, %v", attempt, ok)
	}
}

func TestContextCarriersAbsent(t *testing.T) {
	ctx := context.Background()
	if _, ok := services.QueueIDFromContext(ctx); ok {
		t.Fatal("unexpected queue id")
	}
	if _, ok := services.ItemIDFromContext(ctx); ok {
		t.Fatal("unexpected item id")
	}
	if _, ok := services.AttemptFromContext(ctx); ok {
		t.Fatal("unexpected attempt")
	}
}
