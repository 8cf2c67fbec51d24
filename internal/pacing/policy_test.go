package pacing_test

import (
	"errors"
	"testing"
	"time"

	"spool/internal/config"
	"spool/internal/pacing"
	"spool/internal/services"
)

func basePacing() config.Pacing {
	cfg := config.Default()
	return cfg.Pacing
}

func TestRotationWalksProxyListInBlocks(t *testing.T) {
	cfg := basePacing()
	cfg.Proxies = []string{"http://a:8080", "http://b:8080", "http://c:8080"}
	cfg.RotationEnabled = true
	cfg.RotationFrequency = 10

	policy, err := pacing.NewPolicy(cfg)
	if err != nil {
		t.Fatalf("NewPolicy failed: %v", err)
	}

	for attempt := 0; attempt < 60; attempt++ {
		directive := policy.Next(attempt)
		want := cfg.Proxies[(attempt/10)%3]
		if directive.Proxy != want {
			t.Fatalf("attempt %d routed through %q, want %q", attempt, directive.Proxy, want)
		}
		if directive.Delay != 0 {
			t.Fatalf("attempt %d has delay %v with proxies configured", attempt, directive.Delay)
		}
	}
}

func TestRotationDisabledPinsFirstProxy(t *testing.T) {
	cfg := basePacing()
	cfg.Proxies = []string{"http://a:8080", "http://b:8080"}
	cfg.RotationEnabled = false

	policy, err := pacing.NewPolicy(cfg)
	if err != nil {
		t.Fatalf("NewPolicy failed: %v", err)
	}

	for _, attempt := range []int{0, 1, 25, 999} {
		directive := policy.Next(attempt)
		if directive.Proxy != "http://a:8080" {
			t.Fatalf("attempt %d routed through %q, want first proxy", attempt, directive.Proxy)
		}
	}
}

func TestNoProxiesDelaysWithinRange(t *testing.T) {
	cfg := basePacing()
	cfg.Proxies = nil
	cfg.MinDelaySeconds = 1
	cfg.MaxDelaySeconds = 3

	policy, err := pacing.NewPolicy(cfg)
	if err != nil {
		t.Fatalf("NewPolicy failed: %v", err)
	}

	for attempt := 0; attempt < 50; attempt++ {
		directive := policy.Next(attempt)
		if directive.Proxy != "" {
			t.Fatalf("attempt %d unexpectedly proxied: %q", attempt, directive.Proxy)
		}
		if directive.Delay < time.Second || directive.Delay > 3*time.Second {
			t.Fatalf("attempt %d delay %v outside [1s, 3s]", attempt, directive.Delay)
		}
	}
}

func TestZeroDelayRange(t *testing.T) {
	cfg := basePacing()
	cfg.Proxies = nil
	cfg.MinDelaySeconds = 0
	cfg.MaxDelaySeconds = 0

	policy, err := pacing.NewPolicy(cfg)
	if err != nil {
		t.Fatalf("NewPolicy failed: %v", err)
	}
	if directive := policy.Next(0); directive.Delay != 0 {
		t.Fatalf("expected no delay, got %v", directive.Delay)
	}
}

func TestNewPolicyRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Pacing)
	}{
		{"zero frequency", func(cfg *config.Pacing) { cfg.RotationFrequency = 0 }},
		{"negative frequency", func(cfg *config.Pacing) { cfg.RotationFrequency = -1 }},
		{"negative min delay", func(cfg *config.Pacing) { cfg.MinDelaySeconds = -1 }},
		{"inverted range", func(cfg *config.Pacing) {
			cfg.MinDelaySeconds = 10
			cfg.MaxDelaySeconds = 2
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := basePacing()
			tc.mutate(&cfg)
			if _, err := pacing.NewPolicy(cfg); !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestPolicySnapshotIsolation(t *testing.T) {
	cfg := basePacing()
	proxies := []string{"http://a:8080"}
	cfg.Proxies = proxies

	policy, err := pacing.NewPolicy(cfg)
	if err != nil {
		t.Fatalf("NewPolicy failed: %v", err)
	}

	// Mutating the source slice must not affect the snapshot.
	proxies[0] = "http://mutated:9999"
	if directive := policy.Next(0); directive.Proxy != "http://a:8080" {
		t.Fatalf("snapshot leaked mutation: %q", directive.Proxy)
	}
}
