package main

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/duyyudus/video-tools/internal/batch"
	"github.com/duyyudus/video-tools/internal/history"
	"github.com/duyyudus/video-tools/internal/jobrun"
)

// batchProgress reports job boundaries. On a terminal it drives a progress
// bar across items; otherwise it prints one status line per finished job.
type batchProgress struct {
	out      io.Writer
	total    int
	colorize bool
	quiet    bool

	mu      sync.Mutex
	bar     *progressbar.ProgressBar
	current string
}

func newBatchProgress(out io.Writer, total int, interactive, quiet bool) *batchProgress {
	p := &batchProgress{out: out, total: total, colorize: interactive, quiet: quiet}
	if interactive && !quiet {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription("starting"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerHead:    "█",
				SaucerPadding: "░",
				BarStart:      "▐",
				BarEnd:        "▌",
			}),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionClearOnFinish(),
		)
	}
	return p
}

func (p *batchProgress) JobStarted(item batch.Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = fmt.Sprintf("[%d/%d] %s %s", item.Index+1, p.total, item.Spec.Kind, filepath.Base(item.Spec.Source))
	if p.bar != nil {
		p.bar.Describe(p.current)
	}
}

func (p *batchProgress) JobFinished(item batch.Item, res batch.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Add(1)
		return
	}
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, renderStatusLine(p.current, statusKindFor(res.Status), resultMessage(res), p.colorize))
}

// encoderProgress shows the encoder's time= position next to the current item.
func (p *batchProgress) encoderProgress(progress jobrun.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil || progress.Position <= 0 {
		return
	}
	p.bar.Describe(p.current + " " + progress.Position.Truncate(time.Second).String())
}

func (p *batchProgress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

func statusKindFor(status history.Status) statusKind {
	switch status {
	case history.StatusSucceeded:
		return statusOK
	case history.StatusRejected, history.StatusCancelled:
		return statusWarn
	case history.StatusFailed:
		return statusError
	default:
		return statusInfo
	}
}

func resultMessage(res batch.Result) string {
	if res.Err != nil {
		return res.Err.Error()
	}
	return res.Output
}
