package pacing

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"spool/internal/logging"
)

// ProbeResult is the outcome of probing one proxy.
type ProbeResult struct {
	Proxy   string
	OK      bool
	Latency time.Duration
	Err     error
}

// ValidateOptions controls proxy probing.
type ValidateOptions struct {
	// ProbeURL is fetched through each proxy to confirm it works.
	ProbeURL string
	// Timeout bounds each individual probe.
	Timeout time.Duration
	// Workers caps concurrent probes.
	Workers int
	Logger  *slog.Logger
}

// ValidateProxies probes each proxy concurrently and reports which ones can
// reach the probe URL. Results preserve the input order.
func ValidateProxies(ctx context.Context, proxies []string, opts ValidateOptions) []ProbeResult {
	if opts.Workers <= 0 {
		opts.Workers = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	logger := logging.NewComponentLogger(opts.Logger, "pacing")

	results := make([]ProbeResult, len(proxies))
	sem := make(chan struct{}, opts.Workers)
	var wg sync.WaitGroup

	for i, proxy := range proxies {
		wg.Add(1)
		go func(index int, proxy string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[index] = ProbeResult{Proxy: proxy, Err: ctx.Err()}
				return
			}
			results[index] = probeProxy(ctx, proxy, opts)
			if results[index].OK {
				logger.Debug("proxy ok",
					logging.String(logging.FieldProxy, proxy),
					logging.Duration("latency", results[index].Latency))
			} else {
				logger.Debug("proxy failed",
					logging.String(logging.FieldProxy, proxy),
					logging.Error(results[index].Err))
			}
		}(i, proxy)
	}
	wg.Wait()
	return results
}

func probeProxy(ctx context.Context, proxy string, opts ValidateOptions) ProbeResult {
	proxyURL, err := url.Parse(proxy)
	if err != nil {
		return ProbeResult{Proxy: proxy, Err: err}
	}

	client := &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.ProbeURL, nil)
	if err != nil {
		return ProbeResult{Proxy: proxy, Err: err}
	}

	started := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return ProbeResult{Proxy: proxy, Err: err}
	}
	defer resp.Body.Close()

	latency := time.Since(started)
	if resp.StatusCode >= 400 {
		return ProbeResult{Proxy: proxy, Latency: latency,
			Err: fmt.Errorf("probe %s: unexpected status %d", opts.ProbeURL, resp.StatusCode)}
	}
	return ProbeResult{Proxy: proxy, OK: true, Latency: latency}
}
