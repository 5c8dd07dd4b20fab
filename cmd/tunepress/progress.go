package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"tunepress/internal/queue"
	"tunepress/internal/status"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// progressPrinter renders status sink events as console lines. It labels
// each line with a short per-task tag instead of the full token.
type progressPrinter struct {
	out      io.Writer
	colorize bool
	labels   map[string]string
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{
		out:      out,
		colorize: shouldColorize(out),
		labels:   make(map[string]string),
	}
}

func (p *progressPrinter) label(token string) string {
	if label, ok := p.labels[token]; ok {
		return label
	}
	label := fmt.Sprintf("#%d", len(p.labels)+1)
	p.labels[token] = label
	return label
}

// Observe is the status sink observer. The sink serializes calls, so no
// locking is needed here.
func (p *progressPrinter) Observe(event status.Event) {
	label := p.label(event.TaskToken)
	switch event.Type {
	case status.EventTypeStatus:
		p.printLine(statusColor(event.Status), label, string(event.Status))
	case status.EventTypeFilename:
		p.printLine(ansiBlue, label, fmt.Sprintf("file: %s", event.Message))
	case status.EventTypeWarning:
		p.printLine(ansiYellow, label, fmt.Sprintf("warning: %s", event.Message))
	case status.EventTypeError:
		p.printLine(ansiRed, label, fmt.Sprintf("error: %s", event.Message))
	}
}

func (p *progressPrinter) printLine(color, label, message string) {
	line := fmt.Sprintf("%-4s %s", label, message)
	if p.colorize && color != "" {
		line = color + line + ansiReset
	}
	fmt.Fprintln(p.out, line)
}

func statusColor(s queue.Status) string {
	switch s {
	case queue.StatusCompleted:
		return ansiGreen
	case queue.StatusFailed:
		return ansiRed
	default:
		return ""
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
