package pacing_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"spool/internal/pacing"
)

func TestValidateProxiesReportsReachability(t *testing.T) {
	// A plain HTTP server doubles as a permissive forward proxy for GET.
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer proxy.Close()

	results := pacing.ValidateProxies(context.Background(),
		[]string{proxy.URL, "http://127.0.0.1:1"},
		pacing.ValidateOptions{
			ProbeURL: "http://example.invalid/ip",
			Timeout:  2 * time.Second,
			Workers:  2,
		})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Proxy != proxy.URL || !results[0].OK {
		t.Fatalf("working proxy reported bad: %+v", results[0])
	}
	if results[1].OK {
		t.Fatalf("unreachable proxy reported ok: %+v", results[1])
	}
	if results[1].Err == nil {
		t.Fatal("unreachable proxy missing error")
	}
}

func TestValidateProxiesHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	proxies := make([]string, 20)
	for i := range proxies {
		proxies[i] = "http://127.0.0.1:1"
	}

	done := make(chan struct{})
	go func() {
		pacing.ValidateProxies(ctx, proxies, pacing.ValidateOptions{
			ProbeURL: "http://example.invalid/ip",
			Timeout:  30 * time.Second,
			Workers:  1,
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("validation did not stop after cancellation")
	}
}
