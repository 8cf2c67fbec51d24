package pacing_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"spool/internal/config"
	"spool/internal/pacing"
	"spool/internal/services"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadProxiesText(t *testing.T) {
	path := writeFile(t, "proxies.txt", `
# pool A
http://a:8080
socks5://b:1080

c.example.com:3128
http://a:8080
`)
	proxies, err := pacing.LoadProxies(path)
	if err != nil {
		t.Fatalf("LoadProxies failed: %v", err)
	}
	want := []string{"http://a:8080", "socks5://b:1080", "http://c.example.com:3128"}
	if len(proxies) != len(want) {
		t.Fatalf("got %v, want %v", proxies, want)
	}
	for i := range want {
		if proxies[i] != want[i] {
			t.Fatalf("proxy %d = %q, want %q", i, proxies[i], want[i])
		}
	}
}

func TestLoadProxiesCSVWithHeader(t *testing.T) {
	path := writeFile(t, "proxies.csv", `region,proxy,notes
us,http://a:8080,primary
eu,https://b:8443,backup
`)
	proxies, err := pacing.LoadProxies(path)
	if err != nil {
		t.Fatalf("LoadProxies failed: %v", err)
	}
	if len(proxies) != 2 || proxies[0] != "http://a:8080" || proxies[1] != "https://b:8443" {
		t.Fatalf("unexpected proxies: %v", proxies)
	}
}

func TestLoadProxiesCSVFirstColumn(t *testing.T) {
	path := writeFile(t, "proxies.csv", "http://a:8080\nhttp://b:8080\n")
	proxies, err := pacing.LoadProxies(path)
	if err != nil {
		t.Fatalf("LoadProxies failed: %v", err)
	}
	if len(proxies) != 2 {
		t.Fatalf("unexpected proxies: %v", proxies)
	}
}

func TestLoadProxiesRejectsUnsupportedScheme(t *testing.T) {
	path := writeFile(t, "proxies.txt", "ftp://a:21\n")
	if _, err := pacing.LoadProxies(path); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLoadProxiesMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.txt")
	if _, err := pacing.LoadProxies(missing); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestEffectiveProxiesMergesFileAndInline(t *testing.T) {
	path := writeFile(t, "proxies.txt", "http://b:8080\nhttp://c:8080\n")
	proxies, err := pacing.EffectiveProxies(config.Pacing{
		Proxies:   []string{"http://a:8080", "b:8080"},
		ProxyFile: path,
	})
	if err != nil {
		t.Fatalf("EffectiveProxies failed: %v", err)
	}
	// Inline entries first, file entries appended, duplicates dropped.
	want := []string{"http://a:8080", "http://b:8080", "http://c:8080"}
	if len(proxies) != len(want) {
		t.Fatalf("got %v, want %v", proxies, want)
	}
	for i := range want {
		if proxies[i] != want[i] {
			t.Fatalf("proxy %d = %q, want %q", i, proxies[i], want[i])
		}
	}
}

func TestEffectiveProxiesWithoutFile(t *testing.T) {
	proxies, err := pacing.EffectiveProxies(config.Pacing{Proxies: []string{"host:3128"}})
	if err != nil {
		t.Fatalf("EffectiveProxies failed: %v", err)
	}
	if len(proxies) != 1 || proxies[0] != "http://host:3128" {
		t.Fatalf("unexpected proxies: %v", proxies)
	}
}

func TestSaveProxiesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.txt")
	want := []string{"http://a:8080", "socks5://b:1080"}
	if err := pacing.SaveProxies(path, want); err != nil {
		t.Fatalf("SaveProxies failed: %v", err)
	}

	proxies, err := pacing.LoadProxies(path)
	if err != nil {
		t.Fatalf("LoadProxies failed: %v", err)
	}
	if len(proxies) != len(want) || proxies[0] != want[0] || proxies[1] != want[1] {
		t.Fatalf("round trip mismatch: %v", proxies)
	}
}

func TestNormalizeProxy(t *testing.T) {
	normalized, err := pacing.NormalizeProxy("  host:3128 ")
	if err != nil {
		t.Fatalf("NormalizeProxy failed: %v", err)
	}
	if normalized != "http://host:3128" {
		t.Fatalf("normalized = %q", normalized)
	}
	if _, err := pacing.NormalizeProxy(""); err == nil {
		t.Fatal("expected error for empty entry")
	}
}
