package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/duyyudus/video-tools/internal/batch"
	"github.com/duyyudus/video-tools/internal/faults"
	"github.com/duyyudus/video-tools/internal/history"
)

type jobView struct {
	Index      int      `json:"index"`
	Kind       string   `json:"kind"`
	Source     string   `json:"source"`
	Status     string   `json:"status"`
	Output     string   `json:"output,omitempty"`
	OutputSize int64    `json:"output_size,omitempty"`
	ErrorKind  string   `json:"error_kind,omitempty"`
	Error      string   `json:"error,omitempty"`
	ExitCode   int      `json:"exit_code,omitempty"`
	Command    string   `json:"command,omitempty"`
	Tail       []string `json:"tail,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

type batchView struct {
	RunID      string    `json:"run_id"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Rejected   int       `json:"rejected"`
	Cancelled  int       `json:"cancelled"`
	DurationMS int64     `json:"duration_ms"`
	Aborted    string    `json:"aborted,omitempty"`
	Jobs       []jobView `json:"jobs"`
}

// runBatch executes items and renders the summary. It returns an error when
// the batch was aborted or any item did not succeed, so the exit status
// reflects the whole batch.
func runBatch(cmd *cobra.Command, ctx *commandContext, items []batch.Item) error {
	errOut := cmd.ErrOrStderr()
	interactive := shouldColorize(errOut) && !ctx.verboseEnabled()
	progress := newBatchProgress(errOut, len(items), interactive, ctx.jsonEnabled())

	proc, release, err := ctx.newProcessor(cmd, progress, progress.encoderProgress)
	if err != nil {
		return err
	}
	defer release()

	summary, runErr := proc.Run(cmd.Context(), items)
	progress.finish()

	view := buildBatchView(summary, runErr)
	if ctx.jsonEnabled() {
		if err := writeJSON(cmd, view); err != nil {
			return err
		}
	} else if len(view.Jobs) > 0 {
		printBatchSummary(cmd.OutOrStdout(), view, shouldColorize(cmd.OutOrStdout()))
	}

	if runErr != nil {
		return runErr
	}
	if !summary.OK() {
		return fmt.Errorf("%d of %d jobs did not succeed", len(summary.Results)-summary.Count(history.StatusSucceeded), len(summary.Results))
	}
	return nil
}

func buildBatchView(summary batch.Summary, runErr error) batchView {
	view := batchView{
		RunID:      summary.RunID,
		Succeeded:  summary.Count(history.StatusSucceeded),
		Failed:     summary.Count(history.StatusFailed),
		Rejected:   summary.Count(history.StatusRejected),
		Cancelled:  summary.Count(history.StatusCancelled),
		DurationMS: summary.Duration.Milliseconds(),
		Jobs:       make([]jobView, 0, len(summary.Results)),
	}
	if runErr != nil {
		view.Aborted = runErr.Error()
	}
	for _, res := range summary.Results {
		job := jobView{
			Index:      res.Item.Index,
			Kind:       string(res.Item.Spec.Kind),
			Source:     res.Item.Spec.Source,
			Status:     string(res.Status),
			ExitCode:   res.Outcome.ExitCode,
			Command:    res.Command,
			Warnings:   res.Warnings,
			DurationMS: res.Duration.Milliseconds(),
		}
		if res.Status == history.StatusSucceeded {
			job.Output = res.Output
			if info, err := os.Stat(res.Output); err == nil {
				job.OutputSize = info.Size()
			}
		}
		if res.Err != nil {
			job.ErrorKind = string(faults.Classify(res.Err))
			job.Error = res.Err.Error()
			job.Tail = res.Outcome.Tail
		}
		view.Jobs = append(view.Jobs, job)
	}
	return view
}

func printBatchSummary(out io.Writer, view batchView, colorize bool) {
	rows := make([][]string, 0, len(view.Jobs))
	for _, job := range view.Jobs {
		detail := job.Output
		size := ""
		if job.Error != "" {
			detail = job.Error
		} else if job.OutputSize > 0 {
			size = humanize.Bytes(uint64(job.OutputSize))
		}
		rows = append(rows, []string{
			strconv.Itoa(job.Index + 1),
			job.Kind,
			filepath.Base(job.Source),
			formatStatusLabel(job.Status),
			formatDuration(time.Duration(job.DurationMS) * time.Millisecond),
			size,
			detail,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Kind", "Source", "Status", "Time", "Size", "Output / Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))

	kind := statusOK
	switch {
	case view.Aborted != "":
		kind = statusError
	case view.Failed > 0:
		kind = statusError
	case view.Rejected > 0 || view.Cancelled > 0:
		kind = statusWarn
	}
	message := fmt.Sprintf("%d succeeded, %d failed, %d rejected, %d cancelled", view.Succeeded, view.Failed, view.Rejected, view.Cancelled)
	fmt.Fprintln(out, renderStatusLine("Batch "+shortRunID(view.RunID), kind, message, colorize))

	for _, job := range view.Jobs {
		for _, warning := range job.Warnings {
			fmt.Fprintln(out, renderStatusLine(filepath.Base(job.Source), statusWarn, warning, colorize))
		}
		if len(job.Tail) > 0 {
			fmt.Fprintf(out, "\nLast encoder output for %s:\n", filepath.Base(job.Source))
			for _, line := range job.Tail {
				fmt.Fprintf(out, "%s%s\n", statusIndent, line)
			}
		}
	}
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
