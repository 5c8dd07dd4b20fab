// Package workspace manages the per-task scratch directory. A Scope is owned
// by exactly one worker and is removed when that worker exits the pipeline,
// whatever the outcome.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Scope is a uniquely named temporary directory bound to one task.
type Scope struct {
	dir string

	closeOnce sync.Once
	closeErr  error
}

// NewScope creates the scratch directory for a task under baseDir.
func NewScope(baseDir, taskToken string) (*Scope, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("workspace: base directory required")
	}
	if strings.TrimSpace(taskToken) == "" {
		return nil, fmt.Errorf("workspace: task token required")
	}

	dir := filepath.Join(baseDir, "task-"+taskToken)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: create scope: %w", err)
	}
	return &Scope{dir: dir}, nil
}

// Dir returns the scope's directory path.
func (s *Scope) Dir() string {
	return s.dir
}

// Join returns a path inside the scope.
func (s *Scope) Join(elem ...string) string {
	return filepath.Join(append([]string{s.dir}, elem...)...)
}

// Close removes the scope directory and everything in it. It is idempotent
// and safe to defer alongside an explicit call on the success path.
func (s *Scope) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.closeErr = os.RemoveAll(s.dir)
	})
	return s.closeErr
}
