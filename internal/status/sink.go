package status

import (
	"sync"
	"time"

	"tunepress/internal/queue"
)

// EventType classifies messages emitted during task execution.
type EventType string

const (
	EventTypeStatus   EventType = "status"
	EventTypeFilename EventType = "filename"
	EventTypeWarning  EventType = "warning"
	EventTypeError    EventType = "error"
)

// Event is a sequenced progress update for one task.
type Event struct {
	Seq       int64
	Timestamp time.Time
	TaskToken string
	Type      EventType
	Status    queue.Status
	Message   string
}

// Observer receives drained events one at a time, in publish order.
type Observer func(Event)

// Sink fans progress events from many workers into a single observer.
//
// Publish never blocks on the observer: events land in an unbounded queue
// guarded by a condition variable, and one drain goroutine hands them to the
// observer in sequence. Close stops intake, waits for the backlog to drain,
// and returns once the observer has seen every published event.
type Sink struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []Event
	nextSeq int64
	closed  bool
	done    chan struct{}
}

// NewSink starts the drain goroutine and returns a ready sink.
func NewSink(observer Observer) *Sink {
	s := &Sink{done: make(chan struct{})}
	s.cond = sync.NewCond(&s.mu)
	go s.drain(observer)
	return s
}

// Publish enqueues one event. It assigns sequence and timestamp, never
// blocks on the observer, and reports false once the sink is closed.
func (s *Sink) Publish(event Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	s.nextSeq++
	event.Seq = s.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	s.pending = append(s.pending, event)
	s.cond.Signal()
	return true
}

// PublishStatus is a convenience wrapper for status-change events.
func (s *Sink) PublishStatus(token string, status queue.Status) bool {
	return s.Publish(Event{TaskToken: token, Type: EventTypeStatus, Status: status})
}

// PublishFilename reports the artifact name chosen for a task.
func (s *Sink) PublishFilename(token, filename string) bool {
	return s.Publish(Event{TaskToken: token, Type: EventTypeFilename, Message: filename})
}

// PublishWarning reports a non-fatal condition worth surfacing.
func (s *Sink) PublishWarning(token, message string) bool {
	return s.Publish(Event{TaskToken: token, Type: EventTypeWarning, Message: message})
}

// PublishError reports the failure message for a task.
func (s *Sink) PublishError(token, message string) bool {
	return s.Publish(Event{TaskToken: token, Type: EventTypeError, Message: message})
}

// Close stops intake and blocks until the backlog has been delivered.
// It is safe to call more than once.
func (s *Sink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		s.cond.Signal()
	}
	s.mu.Unlock()

	<-s.done
}

func (s *Sink) drain(observer Observer) {
	defer close(s.done)

	for {
		s.mu.Lock()
		for len(s.pending) == 0 && !s.closed {
			s.cond.Wait()
		}
		batch := s.pending
		s.pending = nil
		closed := s.closed
		s.mu.Unlock()

		for _, event := range batch {
			if observer != nil {
				observer(event)
			}
		}

		if closed && len(batch) == 0 {
			return
		}
	}
}
