package testsupport

import (
	"context"
	"testing"

	"tunepress/internal/config"
	"tunepress/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewTask adds a queued task for tests using the provided store.
func NewTask(t testing.TB, store *queue.Store, link, outputDir string) *queue.Task {
	t.Helper()

	task, err := store.Add(context.Background(), link, outputDir)
	if err != nil {
		t.Fatalf("store.Add: %v", err)
	}
	return task
}
