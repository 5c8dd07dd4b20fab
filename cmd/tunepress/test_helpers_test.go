package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig persists a minimal config file rooted in a temp directory
// and returns its path.
func writeTestConfig(t *testing.T) (configPath, baseDir string) {
	t.Helper()

	baseDir = t.TempDir()
	configPath = filepath.Join(baseDir, "config.toml")
	content := fmt.Sprintf(`[paths]
work_dir = %q
log_dir = %q

[workflow]
max_concurrency = 2
`,
		filepath.Join(baseDir, "work"),
		filepath.Join(baseDir, "logs"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return configPath, baseDir
}

func runCLI(t *testing.T, args []string, configPath string) (stdout, stderr string, err error) {
	t.Helper()

	cmd := newRootCommand()
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	var outBuf, errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}
