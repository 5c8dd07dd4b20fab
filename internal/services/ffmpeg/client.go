package ffmpeg

import (
	"context"
	"os/exec"
	"strings"

	"tunepress/internal/services"
)

var commandContext = exec.CommandContext

// noStreamMarker appears in ffmpeg diagnostics when asked to write an image
// from a container that has no embedded picture stream.
const noStreamMarker = "does not contain any stream"

// Client defines the transform operations used by the pipeline.
type Client interface {
	// ExtractArt writes the artifact's embedded artwork to imagePath.
	// Returns an error matching services.ErrNoEmbeddedArt when the artifact
	// carries no artwork.
	ExtractArt(ctx context.Context, artifactPath, imagePath string) error
	// CropSquare crops an image to a 1:1 aspect ratio.
	CropSquare(ctx context.Context, srcPath, dstPath string) error
	// Remux merges the artifact's audio stream with the given image into a
	// new artifact at outputPath, carrying metadata over from the source.
	Remux(ctx context.Context, artifactPath, imagePath, outputPath string) error
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

// CLI wraps the ffmpeg command-line tool.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// ExtractArt extracts the embedded artwork from an artifact.
func (c *CLI) ExtractArt(ctx context.Context, artifactPath, imagePath string) error {
	args := baseArgs("-i", artifactPath, imagePath)
	if output, err := c.run(ctx, args); err != nil {
		if strings.Contains(strings.ToLower(string(output)), noStreamMarker) {
			return services.Wrap(services.ErrNoEmbeddedArt, "transform", "extract", "", nil)
		}
		return services.Wrap(services.ErrArtExtraction, "transform", "extract", services.Diagnostic(output), err)
	}
	return nil
}

// CropSquare crops an image to a square using the shorter dimension as height.
func (c *CLI) CropSquare(ctx context.Context, srcPath, dstPath string) error {
	args := baseArgs("-i", srcPath, "-vf", "crop=ih:ih", dstPath)
	if output, err := c.run(ctx, args); err != nil {
		return services.Wrap(services.ErrArtCrop, "transform", "crop", services.Diagnostic(output), err)
	}
	return nil
}

// Remux merges an artifact's audio stream with an image stream into a new
// artifact, mapping metadata through from the source.
func (c *CLI) Remux(ctx context.Context, artifactPath, imagePath, outputPath string) error {
	args := baseArgs(
		"-i", artifactPath,
		"-i", imagePath,
		"-map_metadata", "0",
		"-map_metadata:s:1", "0:s:1",
		"-map", "0:a",
		"-map", "1",
		"-acodec", "copy",
		outputPath,
	)
	if output, err := c.run(ctx, args); err != nil {
		return services.Wrap(services.ErrRemux, "transform", "remux", services.Diagnostic(output), err)
	}
	return nil
}

func (c *CLI) run(ctx context.Context, args []string) ([]byte, error) {
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

func baseArgs(args ...string) []string {
	return append([]string{"-hide_banner", "-loglevel", "error", "-y"}, args...)
}

var _ Client = (*CLI)(nil)
