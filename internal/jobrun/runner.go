package jobrun

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/duyyudus/video-tools/internal/config"
	"github.com/duyyudus/video-tools/internal/deps"
	"github.com/duyyudus/video-tools/internal/encoding"
	"github.com/duyyudus/video-tools/internal/faults"
	"github.com/duyyudus/video-tools/internal/fileutil"
	"github.com/duyyudus/video-tools/internal/logging"
)

// DefaultTailLines is the diagnostic tail size when none is configured.
const DefaultTailLines = 20

// The child is deliberately not bound to a context.
var command = exec.Command

// Progress is reported for every ffmpeg status line carrying a time= field.
type Progress struct {
	Position time.Duration
	Line     string
}

// Outcome summarizes one finished job.
type Outcome struct {
	Success  bool
	Output   string
	ExitCode int
	Tail     []string
	Duration time.Duration
}

// ExitError reports a nonzero encoder exit.
type ExitError struct {
	Binary string
	Source string
	Code   int
	Tail   []string
}

func (e *ExitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s exited with code %d", e.Binary, e.Code)
	if e.Source != "" {
		fmt.Fprintf(&b, " while processing %s", e.Source)
	}
	if len(e.Tail) > 0 {
		b.WriteString("; last output:\n  ")
		b.WriteString(strings.Join(e.Tail, "\n  "))
	}
	return b.String()
}

// Is matches faults.ErrExecution.
func (e *ExitError) Is(target error) bool {
	return target == faults.ErrExecution
}

// Runner executes compiled jobs one at a time.
type Runner struct {
	TailLines int
	// Verbose receives every encoder stderr line when set.
	Verbose  io.Writer
	Progress func(Progress)
	Logger   *slog.Logger
}

// New builds a Runner from cfg.
func New(cfg *config.Config, logger *slog.Logger) *Runner {
	r := &Runner{Logger: logging.NewComponentLogger(logger, "jobrun")}
	if cfg != nil {
		r.TailLines = cfg.Encoder.LogTailLines
	}
	return r
}

// Run executes job and settles its files. The returned error is an
// *ExitError for encoder failures and an *deps.EnvironmentError when the
// binary cannot be started.
func (r *Runner) Run(ctx context.Context, job encoding.CompiledJob) (Outcome, error) {
	logger := logging.WithContext(ctx, r.logger())
	started := time.Now()
	outcome := Outcome{Output: job.Target}

	defer removePaths(logger, job.Cleanup)

	logger.Debug("starting encoder",
		logging.String("command", job.CommandLine()),
		logging.String("dir", job.Dir),
	)

	tail := newTailBuffer(r.TailLines)
	code, err := r.execute(job, tail)
	outcome.Duration = time.Since(started)
	outcome.Tail = tail.snapshot()
	outcome.ExitCode = code
	if err != nil {
		if !errors.Is(err, faults.ErrEnvironment) {
			removePaths(logger, []string{job.Output})
		}
		return outcome, err
	}
	if code != 0 {
		removePaths(logger, []string{job.Output})
		return outcome, &ExitError{Binary: job.Binary, Source: job.Source, Code: code, Tail: outcome.Tail}
	}

	if err := checkOutput(job.Output); err != nil {
		removePaths(logger, []string{job.Output})
		return outcome, faults.Wrap(faults.ErrExecution, "jobrun", "verify output", "encoder exited 0 without usable output", err)
	}
	if rep := job.Replacement; rep != nil {
		if err := fileutil.ReplaceFile(rep.Temp, rep.Target); err != nil {
			removePaths(logger, []string{rep.Temp})
			return outcome, faults.Wrap(faults.ErrExecution, "jobrun", "replace source", rep.Target, err)
		}
	}

	outcome.Success = true
	logger.Debug("encoder finished",
		logging.String(logging.FieldOutput, outcome.Output),
		logging.Duration("duration", outcome.Duration),
	)
	return outcome, nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return logging.NewNop()
	}
	return r.Logger
}

// execute runs the child and returns its exit code. A non-nil error means the
// process could not be started or its stream could not be read.
func (r *Runner) execute(job encoding.CompiledJob, tail *tailBuffer) (int, error) {
	if job.Dir != "" {
		if info, err := os.Stat(job.Dir); err != nil || !info.IsDir() {
			if err == nil {
				err = fmt.Errorf("%s is not a directory", job.Dir)
			}
			return -1, faults.Wrap(faults.ErrExecution, "jobrun", "working directory", job.Dir, err)
		}
	}
	cmd := command(job.Binary, job.Args...) //nolint:gosec
	cmd.Dir = job.Dir
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		if isMissingBinary(err) {
			return -1, &deps.EnvironmentError{Missing: []deps.Status{{
				Name:    "FFmpeg",
				Command: job.Binary,
				Detail:  err.Error(),
			}}}
		}
		return -1, fmt.Errorf("start %s: %w", job.Binary, err)
	}

	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanEncoderLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tail.add(line)
		if r.Verbose != nil {
			fmt.Fprintln(r.Verbose, line)
		}
		if r.Progress != nil {
			if pos, ok := parseProgressTime(line); ok {
				r.Progress(Progress{Position: pos, Line: line})
			}
		}
	}
	scanErr := scanner.Err()
	// The child blocks on a full pipe unless stderr is read to EOF.
	_, _ = io.Copy(io.Discard, stderr)

	waitErr := cmd.Wait()
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("wait %s: %w", job.Binary, waitErr)
	}
	if scanErr != nil {
		return 0, fmt.Errorf("read %s output: %w", job.Binary, scanErr)
	}
	return 0, nil
}

// isMissingBinary reports start failures caused by the encoder binary itself.
// The working directory has already been checked, so a path error from
// Start names the binary.
func isMissingBinary(err error) bool {
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return true
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Op != "chdir"
	}
	return false
}

func checkOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	return nil
}

func removePaths(logger *slog.Logger, paths []string) {
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			logging.WarnWithContext(logger, "failed to remove job artifact", "cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the path manually"),
				logging.String(logging.FieldImpact, "stale file left on disk"),
			)
		}
	}
}
