package workspace_test

import (
	"os"
	"path/filepath"
	"testing"

	"tunepress/internal/workspace"
)

func TestScopeLifecycle(t *testing.T) {
	base := t.TempDir()
	scope, err := workspace.NewScope(base, "token-1")
	if err != nil {
		t.Fatalf("NewScope failed: %v", err)
	}

	if filepath.Dir(scope.Dir()) != base {
		t.Fatalf("scope not under base: %q", scope.Dir())
	}
	inner := scope.Join("artifact.mp3")
	if err := os.WriteFile(inner, []byte("data"), 0o644); err != nil {
		t.Fatalf("write inside scope: %v", err)
	}

	if err := scope.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(scope.Dir()); !os.IsNotExist(err) {
		t.Fatal("expected scope directory removed")
	}
}

func TestScopeCloseIsIdempotent(t *testing.T) {
	scope, err := workspace.NewScope(t.TempDir(), "token-2")
	if err != nil {
		t.Fatalf("NewScope failed: %v", err)
	}
	if err := scope.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := scope.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestNewScopeRequiresInputs(t *testing.T) {
	if _, err := workspace.NewScope("", "token"); err == nil {
		t.Fatal("expected error for empty base dir")
	}
	if _, err := workspace.NewScope(t.TempDir(), " "); err == nil {
		t.Fatal("expected error for empty token")
	}
}
