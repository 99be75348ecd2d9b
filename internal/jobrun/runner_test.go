package jobrun

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/duyyudus/video-tools/internal/deps"
	"github.com/duyyudus/video-tools/internal/encoding"
	"github.com/duyyudus/video-tools/internal/faults"
	"github.com/duyyudus/video-tools/internal/testsupport"
	"github.com/duyyudus/video-tools/internal/workspace"
)

func rotateJob(t *testing.T, binary, source string) encoding.CompiledJob {
	t.Helper()
	spec := encoding.JobSpec{
		Kind:         encoding.KindRotate,
		Source:       source,
		Rotation:     encoding.Clockwise,
		Acceleration: true,
	}
	job, err := encoding.Compile(spec, workspace.Workspace{}, encoding.Options{Binary: binary})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return job
}

func TestRunRotateInPlaceReplacesSource(t *testing.T) {
	enc := testsupport.NewFakeEncoder(t, testsupport.EncoderBehavior{StderrLines: 3})
	dir := t.TempDir()
	source := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(source, []byte("original"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	job := rotateJob(t, enc.Path, source)
	runner := &Runner{TailLines: 2}
	outcome, err := runner.Run(context.Background(), job)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !outcome.Success || outcome.Output != source {
		t.Fatalf("outcome = %+v", outcome)
	}
	data, err := os.ReadFile(source)
	if err != nil {
		t.Fatalf("read source: %v", err)
	}
	if string(data) != "encoded" {
		t.Fatalf("source content = %q, want encoded", data)
	}
	if _, err := os.Stat(filepath.Join(dir, "clip.rotating.mp4")); !os.IsNotExist(err) {
		t.Fatalf("temp output should be gone, stat err = %v", err)
	}
	if len(outcome.Tail) != 2 || outcome.Tail[1] != "encoder line 3" {
		t.Fatalf("tail = %v", outcome.Tail)
	}

	calls := enc.Invocations(t)
	if len(calls) != 1 {
		t.Fatalf("expected 1 invocation, got %d", len(calls))
	}
	if last := calls[0][len(calls[0])-1]; last != filepath.Join(dir, "clip.rotating.mp4") {
		t.Fatalf("encoder wrote %s, want temp path", last)
	}
}

func TestRunFailureKeepsOriginalIntact(t *testing.T) {
	enc := testsupport.NewFakeEncoder(t, testsupport.EncoderBehavior{ExitCode: 3, StderrLines: 30})
	dir := t.TempDir()
	source := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(source, []byte("original"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	job := rotateJob(t, enc.Path, source)
	outcome, err := (&Runner{}).Run(context.Background(), job)
	if err == nil {
		t.Fatalf("expected failure")
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %T: %v", err, err)
	}
	if exitErr.Code != 3 || outcome.ExitCode != 3 {
		t.Fatalf("exit code = %d / %d", exitErr.Code, outcome.ExitCode)
	}
	if len(exitErr.Tail) != DefaultTailLines || exitErr.Tail[len(exitErr.Tail)-1] != "encoder line 30" {
		t.Fatalf("tail = %v", exitErr.Tail)
	}
	if !errors.Is(err, faults.ErrExecution) {
		t.Fatalf("expected ErrExecution match")
	}
	if !strings.Contains(err.Error(), "code 3") || !strings.Contains(err.Error(), source) {
		t.Fatalf("error lacks detail: %v", err)
	}

	data, readErr := os.ReadFile(source)
	if readErr != nil || string(data) != "original" {
		t.Fatalf("source changed: %q (%v)", data, readErr)
	}
	if _, err := os.Stat(filepath.Join(dir, "clip.rotating.mp4")); !os.IsNotExist(err) {
		t.Fatalf("temp output should be removed on failure, stat err = %v", err)
	}
}

func TestRunEmptyOutputIsFailure(t *testing.T) {
	enc := testsupport.NewFakeEncoder(t, testsupport.EncoderBehavior{EmptyOutput: true})
	dir := t.TempDir()
	source := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(source, []byte("original"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	_, err := (&Runner{}).Run(context.Background(), rotateJob(t, enc.Path, source))
	if !errors.Is(err, faults.ErrExecution) {
		t.Fatalf("expected execution error, got %v", err)
	}
	data, _ := os.ReadFile(source)
	if string(data) != "original" {
		t.Fatalf("source changed to %q", data)
	}
}

func TestRunMissingBinaryIsEnvironmentError(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(source, []byte("original"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	job := rotateJob(t, filepath.Join(dir, "no-such-ffmpeg"), source)
	_, err := (&Runner{}).Run(context.Background(), job)
	var envErr *deps.EnvironmentError
	if !errors.As(err, &envErr) {
		t.Fatalf("expected EnvironmentError, got %T: %v", err, err)
	}
	if !faults.AbortsBatch(err) {
		t.Fatalf("missing encoder must abort the batch")
	}
}

func TestRunMissingWorkingDirIsItemFailure(t *testing.T) {
	enc := testsupport.NewFakeEncoder(t, testsupport.EncoderBehavior{})
	out := filepath.Join(t.TempDir(), "out.mp4")
	job := encoding.CompiledJob{
		Binary: enc.Path,
		Args:   []string{out},
		Dir:    filepath.Join(t.TempDir(), "seq-gone"),
		Output: out,
		Target: out,
	}
	_, err := (&Runner{}).Run(context.Background(), job)
	if err == nil {
		t.Fatal("expected error for missing working directory")
	}
	var envErr *deps.EnvironmentError
	if errors.As(err, &envErr) {
		t.Fatalf("missing working directory reported as environment error: %v", err)
	}
	if !errors.Is(err, faults.ErrExecution) || faults.AbortsBatch(err) {
		t.Fatalf("expected item-level execution error, got %v", err)
	}
	if len(enc.Invocations(t)) != 0 {
		t.Fatal("encoder should not start without its working directory")
	}
}

func TestRunSurvivesUnbrokenStderr(t *testing.T) {
	enc := testsupport.NewFakeEncoder(t, testsupport.EncoderBehavior{StderrBytes: 3_000_000})
	out := filepath.Join(t.TempDir(), "out.mp4")
	job := encoding.CompiledJob{Binary: enc.Path, Args: []string{out}, Output: out, Target: out}

	type result struct {
		outcome Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := (&Runner{TailLines: 2}).Run(context.Background(), job)
		done <- result{outcome, err}
	}()

	select {
	case res := <-done:
		if res.err != nil || !res.outcome.Success {
			t.Fatalf("Run = %+v, %v", res.outcome, res.err)
		}
		if len(res.outcome.Tail) != 2 {
			t.Fatalf("tail lines = %d, want 2", len(res.outcome.Tail))
		}
	case <-time.After(20 * time.Second):
		t.Fatal("Run did not return while the encoder wrote a long unbroken line")
	}
}

func TestRunRemovesCleanupPathsOnEveryPath(t *testing.T) {
	for _, code := range []int{0, 1} {
		enc := testsupport.NewFakeEncoder(t, testsupport.EncoderBehavior{ExitCode: code})
		scratch := t.TempDir()
		wsDir := filepath.Join(scratch, "seq-1")
		if err := os.MkdirAll(wsDir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		manifest := filepath.Join(scratch, "concat-1.txt")
		if err := os.WriteFile(manifest, []byte("file 'a'\n"), 0o644); err != nil {
			t.Fatalf("write manifest: %v", err)
		}
		out := filepath.Join(t.TempDir(), "out.mp4")
		job := encoding.CompiledJob{
			Binary:  enc.Path,
			Args:    []string{"-i", manifest, out},
			Dir:     wsDir,
			Output:  out,
			Target:  out,
			Cleanup: []string{wsDir, manifest},
		}
		_, _ = (&Runner{}).Run(context.Background(), job)
		for _, p := range job.Cleanup {
			if _, err := os.Stat(p); !os.IsNotExist(err) {
				t.Fatalf("exit %d: %s should be removed, stat err = %v", code, p, err)
			}
		}
		dirs := enc.WorkingDirs(t)
		if len(dirs) != 1 || !strings.HasSuffix(dirs[0], "seq-1") {
			t.Fatalf("working dirs = %v", dirs)
		}
		if code != 0 {
			if _, err := os.Stat(out); !os.IsNotExist(err) {
				t.Fatalf("partial output should be removed on failure")
			}
		}
	}
}

func TestRunTeesVerboseOutput(t *testing.T) {
	enc := testsupport.NewFakeEncoder(t, testsupport.EncoderBehavior{StderrLines: 2})
	out := filepath.Join(t.TempDir(), "out.mp4")
	job := encoding.CompiledJob{Binary: enc.Path, Args: []string{out}, Output: out, Target: out}

	var buf bytes.Buffer
	runner := &Runner{Verbose: &buf}
	if _, err := runner.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if buf.String() != "encoder line 1\nencoder line 2\n" {
		t.Fatalf("verbose output = %q", buf.String())
	}
}

func TestRunIgnoresCancelledContext(t *testing.T) {
	enc := testsupport.NewFakeEncoder(t, testsupport.EncoderBehavior{})
	out := filepath.Join(t.TempDir(), "out.mp4")
	job := encoding.CompiledJob{Binary: enc.Path, Args: []string{out}, Output: out, Target: out}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome, err := (&Runner{}).Run(ctx, job)
	if err != nil || !outcome.Success {
		t.Fatalf("running encode should finish despite cancellation: %+v %v", outcome, err)
	}
}

func TestTailBufferKeepsLastLines(t *testing.T) {
	buf := newTailBuffer(3)
	for _, line := range []string{"a", "b", "c", "d", "e"} {
		buf.add(line)
	}
	got := strings.Join(buf.snapshot(), ",")
	if got != "c,d,e" {
		t.Fatalf("tail = %s", got)
	}
}

func TestParseProgressTime(t *testing.T) {
	line := "frame=  240 fps= 60 q=28.0 size=    1024kB time=00:01:02.50 bitrate=1000.0kbits/s speed=2x"
	got, ok := parseProgressTime(line)
	if !ok {
		t.Fatalf("expected progress time")
	}
	want := time.Minute + 2500*time.Millisecond
	if got != want {
		t.Fatalf("position = %s, want %s", got, want)
	}
	if _, ok := parseProgressTime("Input #0, concat"); ok {
		t.Fatalf("unexpected match")
	}
}

func TestScanEncoderLinesSplitsCarriageReturns(t *testing.T) {
	data := []byte("frame=1 time=00:00:01.00\rframe=2 time=00:00:02.00\nlast")
	var lines []string
	for len(data) > 0 {
		advance, token, err := scanEncoderLines(data, true)
		if err != nil {
			t.Fatalf("split: %v", err)
		}
		lines = append(lines, string(token))
		data = data[advance:]
	}
	if len(lines) != 3 || lines[2] != "last" {
		t.Fatalf("lines = %q", lines)
	}
}

func TestScanEncoderLinesCapsLongTokens(t *testing.T) {
	data := bytes.Repeat([]byte("a"), maxEncoderLine+10)
	advance, token, err := scanEncoderLines(data, false)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if advance != maxEncoderLine || len(token) != maxEncoderLine {
		t.Fatalf("advance = %d, token = %d bytes", advance, len(token))
	}
}
