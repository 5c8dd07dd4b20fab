// Package ffprobe shells out to ffprobe for structured media inspection. The
// transform stage uses it to decide whether an artifact carries embedded
// artwork before attempting extraction.
package ffprobe
