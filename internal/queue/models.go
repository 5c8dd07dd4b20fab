package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a task.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusDispatched  Status = "dispatched"
	StatusDownloading Status = "downloading"
	StatusProcessing  Status = "processing"
	StatusFinalizing  Status = "finalizing"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// InterruptedReason is the error message set on non-terminal leftovers when a
// new run starts.
const InterruptedReason = "interrupted by restart"

var allStatuses = []Status{
	StatusQueued,
	StatusDispatched,
	StatusDownloading,
	StatusProcessing,
	StatusFinalizing,
	StatusCompleted,
	StatusFailed,
}

var statusRank = func() map[Status]int {
	ranks := make(map[Status]int, len(allStatuses))
	for i, status := range allStatuses {
		ranks[status] = i
	}
	return ranks
}()

// Task is one unit of work: an input link bound to a destination directory.
// A task is mutated only by the worker that owns it; the store serializes
// persistence.
type Task struct {
	ID           int64
	Token        string
	Link         string
	OutputDir    string
	Status       Status
	Filename     string
	FinalFile    string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusRank[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status is final and immutable.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from one status to another respects
// the monotonic forward progression of the task state machine. Failure is
// reachable from any non-terminal state; terminal states have no exits.
func CanTransition(from, to Status) bool {
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	if from.IsTerminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	return toRank > fromRank && to != StatusFailed
}

// IsTerminal reports whether the task reached a final state.
func (t Task) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// SetFailed marks the task as failed with the given error message.
func (t *Task) SetFailed(message string) {
	t.Status = StatusFailed
	t.ErrorMessage = message
}
