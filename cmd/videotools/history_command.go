package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/duyyudus/video-tools/internal/history"
)

type historyView struct {
	ID           int64  `json:"id"`
	RunID        string `json:"run_id"`
	Kind         string `json:"kind"`
	Source       string `json:"source"`
	Output       string `json:"output,omitempty"`
	Status       string `json:"status"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	ExitCode     int    `json:"exit_code,omitempty"`
	Command      string `json:"command,omitempty"`
	StartedAt    string `json:"started_at"`
	DurationMS   int64  `json:"duration_ms"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit int
		runID string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently processed jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			var records []history.Record
			if runID != "" {
				records, err = store.ByRun(cmd.Context(), runID)
			} else {
				records, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			if ctx.jsonEnabled() {
				views := make([]historyView, 0, len(records))
				for _, rec := range records {
					views = append(views, newHistoryView(rec))
				}
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No jobs recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Run", "Kind", "Source", "Status", "Started", "Time", "Error"},
				buildHistoryRows(records, time.Now()),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show every job of one batch run")

	cmd.AddCommand(newHistoryStatsCommand(ctx))
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	cmd.AddCommand(newHistoryClearCommand(ctx))
	return cmd
}

func newHistoryView(rec history.Record) historyView {
	return historyView{
		ID:           rec.ID,
		RunID:        rec.RunID,
		Kind:         rec.Kind,
		Source:       rec.Source,
		Output:       rec.Output,
		Status:       string(rec.Status),
		ErrorKind:    rec.ErrorKind,
		ErrorMessage: rec.ErrorMessage,
		ExitCode:     rec.ExitCode,
		Command:      rec.Command,
		StartedAt:    rec.StartedAt.UTC().Format(time.RFC3339),
		DurationMS:   rec.Duration.Milliseconds(),
	}
}

func buildHistoryRows(records []history.Record, now time.Time) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		started := "-"
		if !rec.StartedAt.IsZero() {
			started = humanize.RelTime(rec.StartedAt, now, "ago", "from now")
		}
		detail := rec.ErrorKind
		if rec.ExitCode != 0 {
			detail = fmt.Sprintf("%s (exit %d)", rec.ErrorKind, rec.ExitCode)
		}
		rows = append(rows, []string{
			strconv.FormatInt(rec.ID, 10),
			shortRunID(rec.RunID),
			rec.Kind,
			filepath.Base(rec.Source),
			formatStatusLabel(string(rec.Status)),
			started,
			formatDuration(rec.Duration),
			detail,
		})
	}
	return rows
}

func newHistoryStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count recorded jobs by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonEnabled() {
				return writeJSON(cmd, stats)
			}
			rows := make([][]string, 0, len(stats))
			for _, status := range history.AllStatuses() {
				rows = append(rows, []string{formatStatusLabel(string(status)), humanize.Comma(int64(stats[status]))})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Status", "Jobs"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete jobs older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.PruneBefore(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d jobs older than %s\n", removed, olderThan)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age cutoff, e.g. 720h")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded job",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d jobs\n", removed)
			return nil
		},
	}
}
