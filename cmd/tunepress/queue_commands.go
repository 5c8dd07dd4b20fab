package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tunepress/internal/queue"
	"tunepress/internal/services"
)

func newQueueCommand(cmdCtx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the task queue",
	}

	queueCmd.AddCommand(newQueueListCommand(cmdCtx))
	queueCmd.AddCommand(newQueueStatsCommand(cmdCtx))
	queueCmd.AddCommand(newQueueClearCommand(cmdCtx))

	return queueCmd
}

func newQueueListCommand(cmdCtx *commandContext) *cobra.Command {
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmdCtx, func(store *queue.Store) error {
				var statuses []queue.Status
				if trimmed := strings.TrimSpace(statusFilter); trimmed != "" {
					parsed, ok := queue.ParseStatus(trimmed)
					if !ok {
						return fmt.Errorf("unknown status %q (one of: %s)", trimmed, statusNames())
					}
					statuses = append(statuses, parsed)
				}

				tasks, err := store.List(context.Background(), statuses...)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(tasks) == 0 {
					fmt.Fprintln(out, "Queue is empty.")
					return nil
				}

				rows := make([][]string, 0, len(tasks))
				for _, task := range tasks {
					detail := task.FinalFile
					if task.Status == queue.StatusFailed {
						detail = services.Truncate(task.ErrorMessage, 80)
					}
					rows = append(rows, []string{
						fmt.Sprintf("%d", task.ID),
						services.Truncate(task.Link, 60),
						string(task.Status),
						detail,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Link", "Status", "Result"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&statusFilter, "status", "s", "", "Only list tasks with this status")
	return cmd
}

func newQueueStatsCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmdCtx, func(store *queue.Store) error {
				stats, err := store.Stats(context.Background())
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(stats))
				total := 0
				for _, status := range queue.AllStatuses() {
					count, ok := stats[status]
					if !ok {
						continue
					}
					total += count
					rows = append(rows, []string{string(status), fmt.Sprintf("%d", count)})
				}
				rows = append(rows, []string{"total", fmt.Sprintf("%d", total)})

				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Status", "Count"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}

func newQueueClearCommand(cmdCtx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished tasks from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !clearCompleted && !clearFailed && !clearAll {
				return fmt.Errorf("nothing to clear; pass --completed, --failed, or --all")
			}
			return withStore(cmdCtx, func(store *queue.Store) error {
				ctx := context.Background()
				var removed int64

				switch {
				case clearAll:
					n, err := store.Clear(ctx)
					if err != nil {
						return err
					}
					removed = n
				default:
					if clearCompleted {
						n, err := store.ClearCompleted(ctx)
						if err != nil {
							return err
						}
						removed += n
					}
					if clearFailed {
						n, err := store.ClearFailed(ctx)
						if err != nil {
							return err
						}
						removed += n
					}
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d task(s).\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove completed tasks")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove failed tasks")
	cmd.Flags().BoolVar(&clearAll, "all", false, "Remove every task regardless of status")
	return cmd
}

func withStore(cmdCtx *commandContext, fn func(*queue.Store) error) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func statusNames() string {
	statuses := queue.AllStatuses()
	names := make([]string, len(statuses))
	for i, status := range statuses {
		names[i] = string(status)
	}
	return strings.Join(names, ", ")
}
