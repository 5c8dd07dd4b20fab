package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"tunepress/internal/dispatch"
	"tunepress/internal/logging"
	"tunepress/internal/pipeline"
	"tunepress/internal/preflight"
	"tunepress/internal/queue"
	"tunepress/internal/status"
)

func newRunCommand(cmdCtx *commandContext) *cobra.Command {
	var linksFile string
	var outputDir string
	var concurrency int
	var skipTransform bool

	cmd := &cobra.Command{
		Use:   "run [links...]",
		Short: "Download the given links and process them through the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			links, err := collectLinks(args, linksFile)
			if err != nil {
				return err
			}
			if len(links) == 0 {
				return errors.New("no links provided; pass them as arguments or via --links")
			}

			destination, err := filepath.Abs(strings.TrimSpace(outputDir))
			if err != nil {
				return fmt.Errorf("resolve output directory: %w", err)
			}

			if concurrency > 0 {
				cfg.Workflow.MaxConcurrency = concurrency
			}

			lock := flock.New(filepath.Join(cfg.Paths.WorkDir, "tunepress.lock"))
			held, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire instance lock: %w", err)
			}
			if !held {
				return errors.New("another tunepress run is already active against this work directory")
			}
			defer func() { _ = lock.Unlock() }()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			results := preflight.RunAll(ctx, cfg)
			if failed := preflight.Failed(results); len(failed) > 0 {
				for _, result := range failed {
					fmt.Fprintf(cmd.ErrOrStderr(), "preflight: %s: %s\n", result.Name, result.Detail)
				}
				return fmt.Errorf("%d preflight check(s) failed", len(failed))
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open queue: %w", err)
			}
			defer store.Close()

			printer := newProgressPrinter(cmd.OutOrStdout())
			sink := status.NewSink(printer.Observe)

			runner := pipeline.NewRunner(cfg, store, sink,
				pipeline.WithSkipTransform(skipTransform),
				pipeline.WithLogger(logger),
			)
			dispatcher := dispatch.New(cfg, store, sink, runner, dispatch.WithLogger(logger))
			if err := dispatcher.Start(ctx); err != nil {
				sink.Close()
				return err
			}

			tokens := make([]string, 0, len(links))
			for _, link := range links {
				task, err := dispatcher.Submit(ctx, link, destination)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "submit %s: %v\n", link, err)
					continue
				}
				tokens = append(tokens, task.Token)
			}

			if err := dispatcher.Drain(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("drain interrupted", logging.Args(logging.Error(err))...)
			}
			if err := dispatcher.Shutdown(context.Background()); err != nil {
				return err
			}
			sink.Close()

			return printSummary(cmd, store, printer, tokens)
		},
	}

	cmd.Flags().StringVarP(&linksFile, "links", "l", "", "File containing one link per line")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Directory receiving the finished files")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Override the configured worker cap")
	cmd.Flags().BoolVar(&skipTransform, "skip-transform", false, "Skip cover art processing and keep artifacts as downloaded")
	return cmd
}

// collectLinks merges command-line links with the optional links file.
// Blank lines and #-comments in the file are ignored.
func collectLinks(args []string, linksFile string) ([]string, error) {
	links := make([]string, 0, len(args))
	seen := make(map[string]struct{})

	appendLink := func(link string) {
		link = strings.TrimSpace(link)
		if link == "" {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}

	for _, arg := range args {
		appendLink(arg)
	}

	if path := strings.TrimSpace(linksFile); path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open links file: %w", err)
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			appendLink(line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read links file: %w", err)
		}
	}

	return links, nil
}

func printSummary(cmd *cobra.Command, store *queue.Store, printer *progressPrinter, tokens []string) error {
	ctx := context.Background()
	rows := make([][]string, 0, len(tokens))
	var failures int

	for _, token := range tokens {
		task, err := store.GetByToken(ctx, token)
		if err != nil {
			return fmt.Errorf("load task summary: %w", err)
		}
		if task == nil {
			continue
		}

		detail := task.FinalFile
		if task.Status == queue.StatusFailed {
			failures++
			detail = task.ErrorMessage
		}
		rows = append(rows, []string{
			printer.label(token),
			task.Link,
			string(task.Status),
			detail,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]string{"Task", "Link", "Status", "Result"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
	))

	if failures > 0 {
		return fmt.Errorf("%d of %d task(s) failed", failures, len(tokens))
	}
	return nil
}
