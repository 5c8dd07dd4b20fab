package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"tunepress/internal/logging"
)

func TestConsoleHandlerFormatsAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger = logging.NewComponentLogger(logger, "dispatcher")
	logger.Info("task admitted",
		logging.String(logging.FieldTask, "abc123"),
		logging.Int("active", 2),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO dispatcher: task admitted") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "task=abc123") || !strings.Contains(line, "active=2") {
		t.Fatalf("missing attrs in line: %q", line)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Error("stage failed", logging.Error(errors.New("exit status 1: no stream")))
	if !strings.Contains(buf.String(), `error="exit status 1: no stream"`) {
		t.Fatalf("expected quoted error value, got %q", buf.String())
	}
}

func TestJSONHandlerEmitsParseableRecords(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("stage started", logging.String(logging.FieldStage, "acquire"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if record["msg"] != "stage started" {
		t.Fatalf("unexpected msg: %v", record["msg"])
	}
	if record["stage"] != "acquire" {
		t.Fatalf("unexpected stage: %v", record["stage"])
	}
	if record["level"] != "info" {
		t.Fatalf("unexpected level: %v", record["level"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "logfmt"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("should be dropped")
	logger.Warn("should appear")

	if strings.Contains(buf.String(), "should be dropped") {
		t.Fatalf("info line not filtered: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "should appear") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}
