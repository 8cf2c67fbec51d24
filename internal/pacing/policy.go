package pacing

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"spool/internal/config"
	"spool/internal/services"
)

// Directive tells the executor how to route one download attempt.
type Directive struct {
	// Proxy is the proxy URL for this attempt, empty for a direct connection.
	Proxy string
	// Delay is how long to wait before starting the attempt.
	Delay time.Duration
}

// Policy computes the pacing directive for each attempt of a run. It is
// immutable after construction and safe for concurrent use.
type Policy struct {
	proxies         []string
	rotationEnabled bool
	frequency       int
	minDelay        time.Duration
	maxDelay        time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPolicy builds a policy from the pacing configuration. Invalid settings
// fail here, before any item is touched.
func NewPolicy(cfg config.Pacing) (*Policy, error) {
	if cfg.RotationFrequency <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "pacing", "build policy",
			fmt.Sprintf("rotation frequency must be positive, got %d", cfg.RotationFrequency), nil)
	}
	if cfg.MinDelaySeconds < 0 {
		return nil, services.Wrap(services.ErrConfiguration, "pacing", "build policy",
			"minimum delay must not be negative", nil)
	}
	if cfg.MinDelaySeconds > cfg.MaxDelaySeconds {
		return nil, services.Wrap(services.ErrConfiguration, "pacing", "build policy",
			fmt.Sprintf("minimum delay %.1fs exceeds maximum %.1fs", cfg.MinDelaySeconds, cfg.MaxDelaySeconds), nil)
	}

	proxies := make([]string, len(cfg.Proxies))
	copy(proxies, cfg.Proxies)

	return &Policy{
		proxies:         proxies,
		rotationEnabled: cfg.RotationEnabled,
		frequency:       cfg.RotationFrequency,
		minDelay:        time.Duration(cfg.MinDelaySeconds * float64(time.Second)),
		maxDelay:        time.Duration(cfg.MaxDelaySeconds * float64(time.Second)),
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Next returns the directive for the given zero-based attempt index within
// the run. Attempt indices are gapless: skipped or already-completed items do
// not consume one.
func (p *Policy) Next(attempt int) Directive {
	if attempt < 0 {
		attempt = 0
	}

	if p.rotationEnabled && len(p.proxies) > 0 {
		index := (attempt / p.frequency) % len(p.proxies)
		return Directive{Proxy: p.proxies[index]}
	}
	if len(p.proxies) > 0 {
		return Directive{Proxy: p.proxies[0]}
	}
	return Directive{Delay: p.randomDelay()}
}

// HasProxies reports whether the policy routes through any proxy.
func (p *Policy) HasProxies() bool {
	return len(p.proxies) > 0
}

// ProxyCount returns the number of proxies in the snapshot.
func (p *Policy) ProxyCount() int {
	return len(p.proxies)
}

func (p *Policy) randomDelay() time.Duration {
	if p.maxDelay <= p.minDelay {
		return p.minDelay
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	span := p.maxDelay - p.minDelay
	return p.minDelay + time.Duration(p.rng.Int63n(int64(span)+1))
}
