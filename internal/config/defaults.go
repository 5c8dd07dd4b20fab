package config

const (
	defaultWorkDir           = "~/.local/share/tunepress/work"
	defaultLogDir            = "~/.local/share/tunepress/logs"
	defaultYtDlpBinary       = "yt-dlp"
	defaultFFmpegBinary      = "ffmpeg"
	defaultFFprobeBinary     = "ffprobe"
	defaultAudioFormat       = "mp3"
	defaultAudioQuality      = "0"
	defaultOutputTemplate    = "%(channel)s - %(title)s.%(ext)s"
	defaultMaxConcurrency    = 4
	defaultQueuePollInterval = 1
	defaultStageTimeout      = 0
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		Tools: Tools{
			YtDlp:   defaultYtDlpBinary,
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
		},
		Output: Output{
			AudioFormat:    defaultAudioFormat,
			AudioQuality:   defaultAudioQuality,
			OutputTemplate: defaultOutputTemplate,
			EmbedThumbnail: true,
		},
		Workflow: Workflow{
			MaxConcurrency:    defaultMaxConcurrency,
			QueuePollInterval: defaultQueuePollInterval,
			StageTimeout:      defaultStageTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
