package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExternalTool is the root marker for any subprocess failure.
	ErrExternalTool = errors.New("external tool error")

	// ErrNoArtifact marks an acquisition that exited cleanly but produced nothing.
	ErrNoArtifact = errors.New("no artifact produced")

	// ErrAmbiguousArtifacts is advisory: acquisition left more than one
	// candidate artifact and the first (sorted) one was used.
	ErrAmbiguousArtifacts = errors.New("ambiguous artifacts")

	// ErrAcquisition marks a failed acquisition subprocess.
	ErrAcquisition = errors.New("acquisition failed")

	// ErrNoEmbeddedArt is not a failure: the artifact carries no embedded
	// artwork and the transform stage is skipped.
	ErrNoEmbeddedArt = errors.New("no embedded artwork")

	// ErrArtExtraction marks a failed artwork extraction.
	ErrArtExtraction = errors.New("artwork extraction failed")

	// ErrArtCrop marks a failed artwork crop.
	ErrArtCrop = errors.New("artwork crop failed")

	// ErrRemux marks a failed audio/artwork remux.
	ErrRemux = errors.New("remux failed")

	// ErrWorkerFault marks a panic caught at the worker boundary.
	ErrWorkerFault = errors.New("unexpected worker fault")
)

// DiagnosticLimit bounds the subprocess output carried in status events.
const DiagnosticLimit = 512

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification via errors.Is.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Diagnostic condenses raw subprocess output into a bounded, single-line
// summary suitable for status events.
func Diagnostic(output []byte) string {
	text := strings.TrimSpace(string(output))
	if text == "" {
		return ""
	}
	text = strings.Join(strings.Fields(text), " ")
	return Truncate(text, DiagnosticLimit)
}

// Truncate shortens s to at most max runes, appending an ellipsis marker when
// content was cut.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
