package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// writeTestConfig drops a config file pointing every path at a temp
// directory and returns its location.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "spool.toml")
	content := fmt.Sprintf(`[paths]
download_dir = %q
state_dir = %q
log_dir = %q

[pacing]
min_delay_seconds = 0.0
max_delay_seconds = 0.0
`,
		filepath.Join(base, "downloads"),
		filepath.Join(base, "state"),
		filepath.Join(base, "logs"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
