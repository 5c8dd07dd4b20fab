// Package preflight validates the environment before any task is admitted:
// external binaries resolve, directories are writable, and the work
// filesystem has headroom for intermediate downloads.
package preflight
