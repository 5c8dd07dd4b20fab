// Package dispatch admits queued tasks to workers under a concurrency cap.
//
// A single scheduling loop claims the oldest queued task whenever a slot is
// free, marks it dispatched, and hands it to a worker goroutine. Shutdown
// stops admissions immediately and waits for in-flight workers; it never
// interrupts a running task.
package dispatch
