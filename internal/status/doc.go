// Package status delivers task progress events to a single observer.
//
// Workers publish from many goroutines; the Sink serializes everything onto
// one drain goroutine so the observer sees events one at a time, in publish
// order, without any worker blocking on a slow consumer.
package status
