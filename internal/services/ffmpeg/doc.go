// Package ffmpeg wraps the three ffmpeg operations the transform stage needs:
// extracting embedded artwork, cropping it square, and remuxing it back with
// the original audio stream. The Client interface exists so the pipeline can
// be exercised in tests without spawning processes.
package ffmpeg
