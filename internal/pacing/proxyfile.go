package pacing

import (
	"encoding/csv"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"spool/internal/config"
	"spool/internal/services"
)

var supportedProxySchemes = map[string]struct{}{
	"http":   {},
	"https":  {},
	"socks5": {},
}

// LoadProxies reads a proxy list from disk. Plain text files hold one proxy
// per line with # comments; CSV files use either a "proxy" column or the
// first column. Entries without a scheme default to http.
func LoadProxies(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pacing", "load proxies", "read proxy file", err)
	}

	var raw []string
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		raw, err = parseProxyCSV(data)
		if err != nil {
			return nil, err
		}
	} else {
		raw = parseProxyLines(string(data))
	}

	proxies := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, entry := range raw {
		normalized, err := NormalizeProxy(entry)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		proxies = append(proxies, normalized)
	}
	return proxies, nil
}

func parseProxyLines(content string) []string {
	var entries []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	return entries
}

func parseProxyCSV(data []byte) ([]string, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pacing", "load proxies", "parse csv", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	column := 0
	start := 0
	for i, header := range records[0] {
		if strings.EqualFold(strings.TrimSpace(header), "proxy") {
			column = i
			start = 1
			break
		}
	}

	var entries []string
	for _, record := range records[start:] {
		if column >= len(record) {
			continue
		}
		value := strings.TrimSpace(record[column])
		if value == "" {
			continue
		}
		entries = append(entries, value)
	}
	return entries, nil
}

// SaveProxies writes a proxy list in the plain text format LoadProxies
// reads back, one proxy per line.
func SaveProxies(path string, proxies []string) error {
	var b strings.Builder
	for _, proxy := range proxies {
		b.WriteString(proxy)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "pacing", "save proxies", "write proxy file", err)
	}
	return nil
}

// EffectiveProxies returns the full proxy list for a run: the inline
// configured proxies followed by the entries of the proxy file, normalized
// and de-duplicated.
func EffectiveProxies(cfg config.Pacing) ([]string, error) {
	proxies := make([]string, 0, len(cfg.Proxies))
	seen := make(map[string]struct{}, len(cfg.Proxies))

	for _, entry := range cfg.Proxies {
		normalized, err := NormalizeProxy(entry)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		proxies = append(proxies, normalized)
	}

	if cfg.ProxyFile != "" {
		fromFile, err := LoadProxies(cfg.ProxyFile)
		if err != nil {
			return nil, err
		}
		for _, proxy := range fromFile {
			if _, dup := seen[proxy]; dup {
				continue
			}
			seen[proxy] = struct{}{}
			proxies = append(proxies, proxy)
		}
	}

	return proxies, nil
}

// NormalizeProxy validates a single proxy entry and applies the default
// scheme when missing.
func NormalizeProxy(entry string) (string, error) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return "", services.Wrap(services.ErrConfiguration, "pacing", "load proxies", "empty proxy entry", nil)
	}
	if !strings.Contains(entry, "://") {
		entry = "http://" + entry
	}

	parsed, err := url.Parse(entry)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "pacing", "load proxies",
			fmt.Sprintf("invalid proxy %q", entry), err)
	}
	if _, ok := supportedProxySchemes[parsed.Scheme]; !ok {
		return "", services.Wrap(services.ErrConfiguration, "pacing", "load proxies",
			fmt.Sprintf("unsupported proxy scheme %q", parsed.Scheme), nil)
	}
	if parsed.Host == "" {
		return "", services.Wrap(services.ErrConfiguration, "pacing", "load proxies",
			fmt.Sprintf("proxy %q has no host", entry), nil)
	}
	return parsed.String(), nil
}
