package ytdlp

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"

	"tunepress/internal/services"
)

var commandContext = exec.CommandContext

// Client defines audio acquisition behaviour.
type Client interface {
	// Download fetches the audio for one link, writing the resulting
	// artifact into destDir using the configured output template.
	Download(ctx context.Context, link, destDir string) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithAudioFormat sets the forced audio container format.
func WithAudioFormat(format string) Option {
	return func(c *CLI) {
		if format != "" {
			c.audioFormat = format
		}
	}
}

// WithAudioQuality sets the yt-dlp audio quality value (0 best to 10 worst).
func WithAudioQuality(quality string) Option {
	return func(c *CLI) {
		if quality != "" {
			c.audioQuality = quality
		}
	}
}

// WithOutputTemplate sets the yt-dlp output naming template.
func WithOutputTemplate(template string) Option {
	return func(c *CLI) {
		if template != "" {
			c.template = template
		}
	}
}

// WithEmbedThumbnail controls whether available artwork is embedded at
// acquisition time.
func WithEmbedThumbnail(enabled bool) Option {
	return func(c *CLI) {
		c.embedThumbnail = enabled
	}
}

// CLI wraps the yt-dlp command-line downloader.
type CLI struct {
	binary         string
	audioFormat    string
	audioQuality   string
	template       string
	embedThumbnail bool
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{
		binary:         "yt-dlp",
		audioFormat:    "mp3",
		audioQuality:   "0",
		template:       "%(channel)s - %(title)s.%(ext)s",
		embedThumbnail: true,
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Download runs yt-dlp for a single link, directing output into destDir.
func (c *CLI) Download(ctx context.Context, link, destDir string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return errors.New("link required")
	}
	if strings.TrimSpace(destDir) == "" {
		return errors.New("destination directory required")
	}

	cmd := commandContext(ctx, c.binary, c.buildArgs(link, destDir)...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return services.Wrap(services.ErrAcquisition, "acquire", "yt-dlp", services.Diagnostic(output), err)
	}
	return nil
}

func (c *CLI) buildArgs(link, destDir string) []string {
	args := []string{
		"-f", "bestaudio/best",
		"-q",
		"--no-simulate",
		"--no-playlist",
		"--extract-audio",
		"--audio-format", c.audioFormat,
		"--audio-quality", c.audioQuality,
		"-o", filepath.Join(destDir, c.template),
	}
	if c.embedThumbnail {
		args = append(args, "--embed-thumbnail")
	}
	return append(args, link)
}

var _ Client = (*CLI)(nil)
