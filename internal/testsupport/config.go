package testsupport

import (
	"path/filepath"
	"testing"

	"spool/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Pacing.MinDelaySeconds = 0
	cfg.Pacing.MaxDelaySeconds = 0

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithProxies sets the inline proxy list on the test config.
func WithProxies(proxies ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pacing.Proxies = proxies
	}
}

// WithRotation enables proxy rotation with the given frequency.
func WithRotation(frequency int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pacing.RotationEnabled = true
		cfg.Pacing.RotationFrequency = frequency
	}
}

// WithDelays sets the inter-item delay range on the test config.
func WithDelays(minSeconds, maxSeconds float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pacing.MinDelaySeconds = minSeconds
		cfg.Pacing.MaxDelaySeconds = maxSeconds
	}
}
