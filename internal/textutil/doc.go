// Package textutil provides filename sanitation helpers for artifacts named
// by external tools.
package textutil
