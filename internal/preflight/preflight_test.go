package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tunepress/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()

	result := CheckDirectoryAccess("Work directory", dir)
	if !result.Passed {
		t.Fatalf("expected pass for writable dir, got %#v", result)
	}

	result = CheckDirectoryAccess("Work directory", filepath.Join(dir, "missing"))
	if result.Passed {
		t.Fatalf("expected failure for missing dir, got %#v", result)
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Errorf("detail = %q", result.Detail)
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	result = CheckDirectoryAccess("Work directory", file)
	if result.Passed {
		t.Fatalf("expected failure for non-directory, got %#v", result)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	orig := statfs
	t.Cleanup(func() { statfs = orig })

	statfs = func(string) (uint64, error) { return 4 << 30, nil }
	result := CheckFreeSpace("Work filesystem", "/work", MinFreeBytes)
	if !result.Passed {
		t.Fatalf("expected pass with 4 GiB free, got %#v", result)
	}

	statfs = func(string) (uint64, error) { return 1 << 20, nil }
	result = CheckFreeSpace("Work filesystem", "/work", MinFreeBytes)
	if result.Passed {
		t.Fatalf("expected failure with 1 MiB free, got %#v", result)
	}

	statfs = func(string) (uint64, error) { return 0, errors.New("mount gone") }
	result = CheckFreeSpace("Work filesystem", "/work", MinFreeBytes)
	if result.Passed {
		t.Fatalf("expected failure on statfs error, got %#v", result)
	}
}

func TestRunAllReportsMissingBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	cfg.Tools.YtDlp = "definitely-not-a-real-binary"

	results := RunAll(context.Background(), cfg)
	failed := Failed(results)

	var sawYtDlp bool
	for _, result := range failed {
		if result.Name == "yt-dlp" {
			sawYtDlp = true
		}
	}
	if !sawYtDlp {
		t.Fatalf("expected yt-dlp failure in %#v", failed)
	}
}

func TestRunAllPassesWithStubbedBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	orig := statfs
	t.Cleanup(func() { statfs = orig })
	statfs = func(string) (uint64, error) { return 8 << 30, nil }

	results := RunAll(context.Background(), cfg)
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, failures: %#v", failed)
	}
}
