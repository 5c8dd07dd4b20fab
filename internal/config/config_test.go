package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"tunepress/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	if cfg.Tools.YtDlp != "yt-dlp" {
		t.Fatalf("unexpected ytdlp default: %q", cfg.Tools.YtDlp)
	}
	if cfg.Workflow.MaxConcurrency != 4 {
		t.Fatalf("unexpected max_concurrency default: %d", cfg.Workflow.MaxConcurrency)
	}
	if !cfg.Output.EmbedThumbnail {
		t.Fatal("expected embed_thumbnail default to be true")
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := `
[paths]
work_dir = "` + filepath.Join(base, "work") + `"

[tools]
ytdlp = "/opt/yt-dlp"

[workflow]
max_concurrency = 2
stage_timeout = 30

[logging]
format = "JSON"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Paths.WorkDir != filepath.Join(base, "work") {
		t.Fatalf("work dir not applied: %q", cfg.Paths.WorkDir)
	}
	if cfg.Tools.YtDlp != "/opt/yt-dlp" {
		t.Fatalf("ytdlp override not applied: %q", cfg.Tools.YtDlp)
	}
	if cfg.Workflow.MaxConcurrency != 2 {
		t.Fatalf("max_concurrency override not applied: %d", cfg.Workflow.MaxConcurrency)
	}
	if cfg.Workflow.StageTimeout != 30 {
		t.Fatalf("stage_timeout override not applied: %d", cfg.Workflow.StageTimeout)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized log format json, got %q", cfg.Logging.Format)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero concurrency", func(c *config.Config) { c.Workflow.MaxConcurrency = -1 }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "yaml" }},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "trace" }},
		{"template without fields", func(c *config.Config) { c.Output.OutputTemplate = "track.mp3" }},
		{"negative stage timeout", func(c *config.Config) { c.Workflow.StageTimeout = -5 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected sample config content")
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist", dir)
		}
	}
}
