package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/duyyudus/video-tools/internal/config"
	"github.com/duyyudus/video-tools/internal/deps"
	"github.com/duyyudus/video-tools/internal/encoding"
	"github.com/duyyudus/video-tools/internal/faults"
	"github.com/duyyudus/video-tools/internal/history"
	"github.com/duyyudus/video-tools/internal/jobrun"
	"github.com/duyyudus/video-tools/internal/logging"
	"github.com/duyyudus/video-tools/internal/sequence"
	"github.com/duyyudus/video-tools/internal/staging"
	"github.com/duyyudus/video-tools/internal/workspace"
)

// ErrBatchLocked is returned when another batch holds the state lock.
var ErrBatchLocked = errors.New("another videotools batch is already running")

// Processor runs batches against one configuration.
type Processor struct {
	cfg      *config.Config
	logger   *slog.Logger
	runner   *jobrun.Runner
	history  *history.Store
	observer Observer
	builder  workspace.Builder
}

// Option customizes a Processor.
type Option func(*Processor)

// WithObserver registers job boundary callbacks.
func WithObserver(o Observer) Option {
	return func(p *Processor) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithHistory records every settled item in store.
func WithHistory(store *history.Store) Option {
	return func(p *Processor) { p.history = store }
}

// WithRunner replaces the default job runner.
func WithRunner(r *jobrun.Runner) Option {
	return func(p *Processor) {
		if r != nil {
			p.runner = r
		}
	}
}

// New builds a Processor for cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Processor {
	logger = logging.NewComponentLogger(logger, "batch")
	p := &Processor{
		cfg:      cfg,
		logger:   logger,
		runner:   jobrun.New(cfg, logger),
		observer: nopObserver{},
		builder:  workspace.Builder{Root: cfg.Paths.ScratchDir},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) encoderOptions() encoding.Options {
	return encoding.Options{
		Binary:                p.cfg.Encoder.FFmpegBinary,
		AllowCustomResolution: p.cfg.Encoder.AllowCustomResolution,
		NVENCPreset:           p.cfg.Encoder.NVENCPreset,
	}
}

// Run processes items in order. The returned error is non-nil only when the
// batch as a whole could not run or was aborted by an environment failure;
// per-item failures are reported in the Summary.
func (p *Processor) Run(ctx context.Context, items []Item) (Summary, error) {
	started := time.Now()
	summary := Summary{RunID: uuid.NewString()}
	if len(items) == 0 {
		return summary, faults.Wrap(faults.ErrValidation, "batch", "run", "no items to process", nil)
	}

	if err := p.cfg.EnsureDirectories(); err != nil {
		return summary, faults.Wrap(faults.ErrEnvironment, "batch", "prepare directories", "", err)
	}
	lockPath := p.cfg.LockPath()
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return summary, fmt.Errorf("acquire batch lock %s: %w", lockPath, err)
	}
	if !ok {
		return summary, faults.Wrap(faults.ErrEnvironment, "batch", "acquire lock", lockPath, ErrBatchLocked)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			p.logger.Warn("failed to release batch lock", logging.String("lock", lockPath), logging.Error(err))
		}
	}()

	ctx = logging.ContextWithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, p.logger)

	if hours := p.cfg.Paths.ScratchMaxAgeHours; hours > 0 {
		staging.CleanStale(ctx, p.cfg.Paths.ScratchDir, time.Duration(hours)*time.Hour, logger)
	}

	if err := deps.Require(deps.CheckBinaries([]deps.Requirement{deps.Encoder(p.cfg)})); err != nil {
		logging.ErrorWithContext(logger, "encoder unavailable", "encoder_missing",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "install ffmpeg or set encoder.ffmpeg_binary"),
		)
		return summary, err
	}

	logger.Info("batch started",
		logging.Int("items", len(items)),
		logging.String(logging.FieldEventType, "batch_started"),
	)

	for i, item := range items {
		if ctx.Err() != nil {
			summary.Results = append(summary.Results, p.cancelRemaining(ctx, items[i:], ctx.Err())...)
			break
		}
		p.observer.JobStarted(item)
		res := p.process(ctx, item)
		p.record(ctx, summary.RunID, res)
		p.observer.JobFinished(item, res)
		summary.Results = append(summary.Results, res)
		if faults.AbortsBatch(res.Err) {
			summary.Results = append(summary.Results, p.cancelRemaining(ctx, items[i+1:], res.Err)...)
			summary.Duration = time.Since(started)
			return summary, res.Err
		}
	}

	summary.Duration = time.Since(started)
	logger.Info("batch finished",
		logging.Int("succeeded", summary.Count(history.StatusSucceeded)),
		logging.Int("failed", summary.Count(history.StatusFailed)),
		logging.Int("rejected", summary.Count(history.StatusRejected)),
		logging.Int("cancelled", summary.Count(history.StatusCancelled)),
		logging.Duration("duration", summary.Duration.Round(time.Millisecond)),
		logging.String(logging.FieldEventType, "batch_finished"),
	)
	return summary, nil
}

func (p *Processor) cancelRemaining(ctx context.Context, items []Item, cause error) []Result {
	results := make([]Result, 0, len(items))
	runID, _ := logging.RunIDFromContext(ctx)
	for _, item := range items {
		res := Result{
			Item:   item,
			Status: history.StatusCancelled,
			Err:    fmt.Errorf("not started: %w", cause),
		}
		p.record(ctx, runID, res)
		results = append(results, res)
	}
	return results
}

// process settles one item. It never panics on bad input; every failure is
// folded into the Result.
func (p *Processor) process(ctx context.Context, item Item) Result {
	started := time.Now()
	spec := normalizeSpec(item.Spec)
	item.Spec = spec
	res := Result{Item: item, Output: spec.OutputPath()}
	logger := logging.WithContext(ctx, p.logger).With(
		logging.String(logging.FieldJobKind, string(spec.Kind)),
		logging.String(logging.FieldSource, spec.Source),
	)

	finish := func(err error) Result {
		res.Duration = time.Since(started)
		res.Err = err
		switch {
		case err == nil:
			res.Status = history.StatusSucceeded
			logger.Info("job succeeded",
				logging.String(logging.FieldOutput, res.Output),
				logging.Duration("duration", res.Duration.Round(time.Millisecond)),
				logging.String(logging.FieldEventType, "job_succeeded"),
			)
		case isRejection(err):
			res.Status = history.StatusRejected
			logging.WarnWithContext(logger, "job rejected", "job_rejected",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix the source folder or options and re-run"),
				logging.String(logging.FieldImpact, "item skipped, batch continues"),
			)
		default:
			res.Status = history.StatusFailed
			logging.ErrorWithContext(logger, "job failed", "job_failed",
				logging.Error(err),
				logging.Int("exit_code", res.Outcome.ExitCode),
			)
		}
		return res
	}

	opts := p.encoderOptions()
	if err := encoding.Validate(spec, opts); err != nil {
		return finish(err)
	}
	if strings.TrimSpace(spec.OutputDir) != "" {
		if err := spec.EnsureOutputDir(); err != nil {
			return finish(err)
		}
	}
	if err := p.builder.CheckOutside(spec.OutputDir); err != nil {
		return finish(faults.Wrap(faults.ErrConfiguration, "batch", "check scratch location", "", err))
	}

	var (
		ws  workspace.Workspace
		err error
	)
	switch spec.Kind {
	case encoding.KindImages:
		ws, err = p.prepareSequence(ctx, logger, &res, spec, p.cfg.Images.Extensions, p.builder.Links)
	case encoding.KindMerge:
		ws, err = p.prepareMerge(ctx, logger, &res, &spec)
	case encoding.KindRotate, encoding.KindAspect:
		err = p.prepareFile(ctx, logger, &spec)
	}
	if err != nil {
		p.discard(logger, ws)
		return finish(err)
	}

	job, err := encoding.Compile(spec, ws, opts)
	if err != nil {
		p.discard(logger, ws)
		return finish(err)
	}
	res.Command = job.CommandLine()
	logger.Info("running encoder",
		logging.String("command", res.Command),
		logging.String(logging.FieldEventType, "job_started"),
	)
	outcome, err := p.runner.Run(ctx, job)
	res.Outcome = outcome
	return finish(err)
}

type buildFunc func(context.Context, sequence.Result) (workspace.Workspace, error)

func (p *Processor) prepareSequence(ctx context.Context, logger *slog.Logger, res *Result, spec encoding.JobSpec, extensions []string, build buildFunc) (workspace.Workspace, error) {
	folder, err := sequence.Scan(spec.Source, sequence.ScanOptions{Extensions: extensions})
	if err != nil {
		return workspace.Workspace{}, err
	}
	validated := sequence.Validate(folder)
	if err := validated.Err(); err != nil {
		return workspace.Workspace{}, err
	}
	if len(validated.Unnumbered) > 0 {
		logging.WarnWithContext(logger, "unnumbered files ignored", "unnumbered_files",
			logging.Strings("paths", validated.Unnumbered),
			logging.String(logging.FieldErrorHint, "rename the files with an index to include them"),
			logging.String(logging.FieldImpact, "files left out of the output"),
		)
		for _, path := range validated.Unnumbered {
			res.Warnings = append(res.Warnings, "unnumbered file ignored: "+path)
		}
	}
	logger.Debug("sequence accepted",
		logging.Int("entries", len(validated.Entries)),
		logging.Int("padding", validated.Padding),
		logging.String("extension", validated.Extension),
	)
	ws, err := build(ctx, validated)
	if ws.Copied {
		res.Warnings = append(res.Warnings, "symlinks unsupported, files were copied into the workspace")
	}
	return ws, err
}

func (p *Processor) prepareMerge(ctx context.Context, logger *slog.Logger, res *Result, spec *encoding.JobSpec) (workspace.Workspace, error) {
	build := func(ctx context.Context, validated sequence.Result) (workspace.Workspace, error) {
		if strings.TrimSpace(spec.Resolution) == "" && p.cfg.Merge.ProbeResolution {
			target, warnings := p.mergeResolution(ctx, logger, validated.Entries)
			res.Warnings = append(res.Warnings, warnings...)
			if target != "" {
				spec.Resolution = target
			}
		}
		return p.builder.Manifest(ctx, validated)
	}
	return p.prepareSequence(ctx, logger, res, *spec, p.cfg.Merge.Extensions, build)
}

func (p *Processor) prepareFile(ctx context.Context, logger *slog.Logger, spec *encoding.JobSpec) error {
	info, err := os.Stat(spec.Source)
	if err != nil {
		return faults.Wrap(faults.ErrValidation, "batch", "check source", spec.Source+" does not exist", err)
	}
	if !info.Mode().IsRegular() {
		return faults.Wrap(faults.ErrValidation, "batch", "check source", spec.Source+" is not a regular file", nil)
	}
	if spec.Kind == encoding.KindAspect && p.cfg.Aspect.ProbeBitrate {
		spec.BitRate = p.sourceBitRate(ctx, logger, spec.Source)
	}
	return nil
}

// discard removes workspace artifacts of a job that never reached the runner.
func (p *Processor) discard(logger *slog.Logger, ws workspace.Workspace) {
	for _, path := range ws.CleanupPaths() {
		if err := os.RemoveAll(path); err != nil {
			logger.Warn("failed to remove workspace", logging.String("path", path), logging.Error(err))
		}
	}
}

func (p *Processor) record(ctx context.Context, runID string, res Result) {
	if p.history == nil {
		return
	}
	rec := history.Record{
		RunID:     runID,
		Kind:      string(res.Item.Spec.Kind),
		Source:    res.Item.Spec.Source,
		Status:    res.Status,
		ExitCode:  res.Outcome.ExitCode,
		Command:   res.Command,
		StartedAt: time.Now().Add(-res.Duration),
		Duration:  res.Duration,
	}
	if res.Status == history.StatusSucceeded {
		rec.Output = res.Output
	}
	if res.Err != nil {
		rec.ErrorKind = string(faults.Classify(res.Err))
		rec.ErrorMessage = res.Err.Error()
	}
	if _, err := p.history.Add(context.WithoutCancel(ctx), rec); err != nil {
		logging.WarnWithContext(p.logger, "failed to record job history", "history_write_failed",
			logging.String(logging.FieldSource, rec.Source),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.state_dir permissions"),
			logging.String(logging.FieldImpact, "job missing from videotools history"),
		)
	}
}

func isRejection(err error) bool {
	return errors.Is(err, faults.ErrValidation) || errors.Is(err, faults.ErrConfiguration)
}

// normalizeSpec makes source and output paths absolute.
func normalizeSpec(spec encoding.JobSpec) encoding.JobSpec {
	if spec.Source != "" {
		if abs, err := config.ExpandPath(spec.Source); err == nil {
			spec.Source = abs
		}
	}
	if spec.OutputDir != "" {
		if abs, err := config.ExpandPath(spec.OutputDir); err == nil {
			spec.OutputDir = abs
		}
	}
	return spec
}
