package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"tunepress/internal/config"
	"tunepress/internal/fileutil"
	"tunepress/internal/logging"
	"tunepress/internal/media/ffprobe"
	"tunepress/internal/queue"
	"tunepress/internal/services"
	"tunepress/internal/services/ffmpeg"
	"tunepress/internal/services/ytdlp"
	"tunepress/internal/status"
	"tunepress/internal/textutil"
	"tunepress/internal/workspace"
)

// ProbeFunc inspects a media file for embedded artwork.
type ProbeFunc func(ctx context.Context, path string) (ffprobe.Result, error)

// Runner drives one task through acquire, transform, and finalize.
type Runner struct {
	cfg           *config.Config
	store         *queue.Store
	sink          *status.Sink
	downloader    ytdlp.Client
	transformer   ffmpeg.Client
	probe         ProbeFunc
	logger        *slog.Logger
	skipTransform bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithDownloader overrides the acquisition client.
func WithDownloader(client ytdlp.Client) Option {
	return func(r *Runner) {
		if client != nil {
			r.downloader = client
		}
	}
}

// WithTransformer overrides the transform client.
func WithTransformer(client ffmpeg.Client) Option {
	return func(r *Runner) {
		if client != nil {
			r.transformer = client
		}
	}
}

// WithProbe overrides embedded artwork detection. A nil probe disables the
// detection shortcut and falls back to attempting extraction directly.
func WithProbe(probe ProbeFunc) Option {
	return func(r *Runner) {
		r.probe = probe
	}
}

// WithSkipTransform bypasses the transform stage entirely.
func WithSkipTransform(skip bool) Option {
	return func(r *Runner) {
		r.skipTransform = skip
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logging.NewComponentLogger(logger, "pipeline")
		}
	}
}

// NewRunner builds a Runner with clients derived from the config. Options
// replace individual collaborators, which tests use to stub subprocesses.
func NewRunner(cfg *config.Config, store *queue.Store, sink *status.Sink, opts ...Option) *Runner {
	runner := &Runner{
		cfg:   cfg,
		store: store,
		sink:  sink,
		downloader: ytdlp.NewCLI(
			ytdlp.WithBinary(cfg.Tools.YtDlp),
			ytdlp.WithAudioFormat(cfg.Output.AudioFormat),
			ytdlp.WithAudioQuality(cfg.Output.AudioQuality),
			ytdlp.WithOutputTemplate(cfg.Output.OutputTemplate),
			ytdlp.WithEmbedThumbnail(cfg.Output.EmbedThumbnail),
		),
		transformer: ffmpeg.NewCLI(ffmpeg.WithBinary(cfg.Tools.FFmpeg)),
		logger:      logging.NewNop(),
	}
	runner.probe = func(ctx context.Context, path string) (ffprobe.Result, error) {
		return ffprobe.Inspect(ctx, cfg.Tools.FFprobe, path)
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Run executes the task to a terminal state. The returned error reflects the
// task outcome; the terminal status has already been persisted and published
// by the time Run returns.
func (r *Runner) Run(ctx context.Context, task *queue.Task) (err error) {
	logger := r.logger.With(
		logging.String(logging.FieldTask, task.Token),
		logging.String(logging.FieldLink, task.Link),
	)

	defer func() {
		if recovered := recover(); recovered != nil {
			err = services.Wrap(services.ErrWorkerFault, "", "", fmt.Sprintf("%v", recovered), nil)
		}
		if err != nil {
			r.fail(ctx, task, logger, err)
		}
	}()

	scope, scopeErr := workspace.NewScope(r.cfg.Paths.WorkDir, task.Token)
	if scopeErr != nil {
		return fmt.Errorf("create task scope: %w", scopeErr)
	}
	defer func() {
		if closeErr := scope.Close(); closeErr != nil {
			logger.Warn("scratch cleanup failed", logging.Args(logging.Error(closeErr))...)
		}
	}()

	destination, err := r.acquire(ctx, task, scope, logger)
	if err != nil {
		return err
	}

	if !r.skipTransform {
		if err := r.transform(ctx, task, scope, destination, logger); err != nil {
			return err
		}
	}

	return r.finalize(ctx, task, scope, logger)
}

// acquire downloads into the scope, then moves the artifact into the task's
// destination directory and records the chosen filename.
func (r *Runner) acquire(ctx context.Context, task *queue.Task, scope *workspace.Scope, logger *slog.Logger) (string, error) {
	if err := r.advance(ctx, task, queue.StatusDownloading); err != nil {
		return "", err
	}

	stageCtx, cancel := r.stageContext(ctx)
	defer cancel()

	logger.Info("acquiring artifact", logging.Args(logging.String(logging.FieldStage, "acquire"))...)
	if err := r.downloader.Download(stageCtx, task.Link, scope.Dir()); err != nil {
		return "", err
	}

	artifact, err := r.findArtifact(task, scope)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(task.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	destination := filepath.Join(task.OutputDir, textutil.SanitizeFileName(filepath.Base(artifact)))
	if err := fileutil.MoveFile(artifact, destination); err != nil {
		return "", fmt.Errorf("move artifact into place: %w", err)
	}

	task.Filename = filepath.Base(destination)
	task.FinalFile = destination
	if err := r.store.Update(ctx, task); err != nil {
		return "", fmt.Errorf("persist filename: %w", err)
	}
	r.sink.PublishFilename(task.Token, task.Filename)
	return destination, nil
}

// findArtifact locates the downloaded audio file. More than one candidate is
// tolerated: the lexicographically first wins and a warning is published.
func (r *Runner) findArtifact(task *queue.Task, scope *workspace.Scope) (string, error) {
	pattern := scope.Join("*." + r.cfg.Output.AudioFormat)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("scan artifacts: %w", err)
	}
	if len(matches) == 0 {
		return "", services.Wrap(services.ErrNoArtifact, "acquire", "scan",
			fmt.Sprintf("no %s artifact in scratch directory", r.cfg.Output.AudioFormat), nil)
	}
	sort.Strings(matches)
	if len(matches) > 1 {
		r.sink.PublishWarning(task.Token,
			fmt.Sprintf("%d artifacts produced, using %s", len(matches), filepath.Base(matches[0])))
	}
	return matches[0], nil
}

// transform embeds square cover art into the destination artifact. All
// intermediate files live in the scope; the destination is only touched by
// the final atomic replace, so a failure part-way leaves it intact. An
// artifact without embedded artwork passes through unchanged.
func (r *Runner) transform(ctx context.Context, task *queue.Task, scope *workspace.Scope, destination string, logger *slog.Logger) error {
	if err := r.advance(ctx, task, queue.StatusProcessing); err != nil {
		return err
	}

	stageCtx, cancel := r.stageContext(ctx)
	defer cancel()

	if r.probe != nil {
		result, probeErr := r.probe(stageCtx, destination)
		if probeErr != nil {
			logger.Warn("artwork probe failed, attempting extraction anyway",
				logging.Args(logging.Error(probeErr))...)
		} else if !result.HasAttachedPicture() {
			r.sink.PublishWarning(task.Token, "no embedded artwork, skipping art processing")
			return nil
		}
	}

	rawArt := scope.Join("cover_raw.jpg")
	err := r.transformer.ExtractArt(stageCtx, destination, rawArt)
	if errors.Is(err, services.ErrNoEmbeddedArt) {
		r.sink.PublishWarning(task.Token, "no embedded artwork, skipping art processing")
		return nil
	}
	if err != nil {
		return err
	}

	squareArt := scope.Join("cover.jpg")
	if err := r.transformer.CropSquare(stageCtx, rawArt, squareArt); err != nil {
		return err
	}

	remuxed := scope.Join("remuxed." + r.cfg.Output.AudioFormat)
	if err := r.transformer.Remux(stageCtx, destination, squareArt, remuxed); err != nil {
		return err
	}
	if err := fileutil.MoveFile(remuxed, destination); err != nil {
		return fmt.Errorf("replace artifact with remuxed copy: %w", err)
	}
	return nil
}

func (r *Runner) finalize(ctx context.Context, task *queue.Task, scope *workspace.Scope, logger *slog.Logger) error {
	if err := r.advance(ctx, task, queue.StatusFinalizing); err != nil {
		return err
	}

	if err := scope.Close(); err != nil {
		return fmt.Errorf("release task scope: %w", err)
	}

	if err := r.advance(ctx, task, queue.StatusCompleted); err != nil {
		return err
	}
	logger.Info("task completed", logging.Args(logging.String("final_file", task.FinalFile))...)
	return nil
}

// advance moves the task forward one status, persists it, and publishes the
// change. Transitions that would move backwards or exit a terminal state are
// programming errors and surface as failures.
func (r *Runner) advance(ctx context.Context, task *queue.Task, next queue.Status) error {
	if !queue.CanTransition(task.Status, next) {
		return fmt.Errorf("illegal status transition %s -> %s", task.Status, next)
	}
	task.Status = next
	if err := r.store.Update(ctx, task); err != nil {
		return fmt.Errorf("persist status %s: %w", next, err)
	}
	r.sink.PublishStatus(task.Token, next)
	return nil
}

func (r *Runner) fail(ctx context.Context, task *queue.Task, logger *slog.Logger, cause error) {
	if task.IsTerminal() {
		return
	}
	task.SetFailed(services.Truncate(cause.Error(), services.DiagnosticLimit))
	if err := r.store.Update(ctx, task); err != nil {
		logger.Error("persist failure state", logging.Args(logging.Error(err))...)
	}
	r.sink.PublishError(task.Token, task.ErrorMessage)
	r.sink.PublishStatus(task.Token, queue.StatusFailed)
	logger.Error("task failed", logging.Args(logging.Error(cause))...)
}

func (r *Runner) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.Workflow.StageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(r.cfg.Workflow.StageTimeout)*time.Second)
}
