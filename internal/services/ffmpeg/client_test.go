package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tunepress/internal/services"
)

func writeStub(t *testing.T, script string) string {
	t.Helper()
	stub := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return stub
}

func TestExtractArtClassifiesMissingArtwork(t *testing.T) {
	stub := writeStub(t, "#!/bin/sh\necho 'Output file #0 does not contain any stream' >&2\nexit 1\n")
	cli := NewCLI(WithBinary(stub))

	err := cli.ExtractArt(context.Background(), "in.mp3", "out.jpg")
	if !errors.Is(err, services.ErrNoEmbeddedArt) {
		t.Fatalf("expected ErrNoEmbeddedArt, got %v", err)
	}
}

func TestExtractArtWrapsOtherFailures(t *testing.T) {
	stub := writeStub(t, "#!/bin/sh\necho 'in.mp3: No such file or directory' >&2\nexit 1\n")
	cli := NewCLI(WithBinary(stub))

	err := cli.ExtractArt(context.Background(), "in.mp3", "out.jpg")
	if !errors.Is(err, services.ErrArtExtraction) {
		t.Fatalf("expected ErrArtExtraction, got %v", err)
	}
	if errors.Is(err, services.ErrNoEmbeddedArt) {
		t.Fatal("unrelated failure must not classify as missing artwork")
	}
}

func TestCropSquareWrapsFailure(t *testing.T) {
	stub := writeStub(t, "#!/bin/sh\nexit 1\n")
	cli := NewCLI(WithBinary(stub))

	err := cli.CropSquare(context.Background(), "a.jpg", "b.jpg")
	if !errors.Is(err, services.ErrArtCrop) {
		t.Fatalf("expected ErrArtCrop, got %v", err)
	}
}

func TestRemuxArgsRecorded(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	stub := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\necho \"$@\" > " + argsFile + "\nexit 0\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	cli := NewCLI(WithBinary(stub))

	if err := cli.Remux(context.Background(), "track.mp3", "cover.jpg", "out.mp3"); err != nil {
		t.Fatalf("Remux failed: %v", err)
	}

	recorded, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read recorded args: %v", err)
	}
	for _, want := range []string{"-map 0:a", "-map 1", "-acodec copy", "-map_metadata 0", "track.mp3", "cover.jpg", "out.mp3"} {
		if !strings.Contains(string(recorded), want) {
			t.Fatalf("expected %q in recorded args %q", want, recorded)
		}
	}
}
