package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const invocationSeparator = "--- invocation ---"

// EncoderBehavior controls what a FakeEncoder does when invoked.
type EncoderBehavior struct {
	ExitCode    int
	StderrLines int
	// StderrBytes writes that many bytes to stderr without any line break.
	StderrBytes int
	// SkipOutput leaves the output path (the last argument) untouched.
	SkipOutput bool
	// EmptyOutput creates the output file with zero bytes.
	EmptyOutput bool
}

// FakeEncoder is a shell script standing in for ffmpeg. It records every
// argument vector and working directory, prints numbered stderr lines, writes
// the output file, and exits with the configured code.
type FakeEncoder struct {
	Path    string
	argvLog string
	cwdLog  string
}

// NewFakeEncoder writes the script into a fresh temp directory.
func NewFakeEncoder(t testing.TB, behavior EncoderBehavior) *FakeEncoder {
	t.Helper()

	dir := t.TempDir()
	enc := &FakeEncoder{
		Path:    filepath.Join(dir, "ffmpeg"),
		argvLog: filepath.Join(dir, "argv.log"),
		cwdLog:  filepath.Join(dir, "cwd.log"),
	}

	var script strings.Builder
	script.WriteString("#!/bin/sh\n")
	fmt.Fprintf(&script, "echo '%s' >> '%s'\n", invocationSeparator, enc.argvLog)
	fmt.Fprintf(&script, "for a in \"$@\"; do printf '%%s\\n' \"$a\" >> '%s'; done\n", enc.argvLog)
	fmt.Fprintf(&script, "pwd >> '%s'\n", enc.cwdLog)
	if behavior.StderrLines > 0 {
		fmt.Fprintf(&script, "i=1; while [ $i -le %d ]; do echo \"encoder line $i\" >&2; i=$((i+1)); done\n", behavior.StderrLines)
	}
	if behavior.StderrBytes > 0 {
		fmt.Fprintf(&script, "head -c %d /dev/zero | tr '\\0' a >&2\n", behavior.StderrBytes)
	}
	if !behavior.SkipOutput {
		script.WriteString("for last; do :; done\n")
		if behavior.EmptyOutput {
			script.WriteString(": > \"$last\"\n")
		} else {
			script.WriteString("printf 'encoded' > \"$last\"\n")
		}
	}
	fmt.Fprintf(&script, "exit %d\n", behavior.ExitCode)

	if err := os.WriteFile(enc.Path, []byte(script.String()), 0o755); err != nil {
		t.Fatalf("write fake encoder: %v", err)
	}
	return enc
}

// Invocations returns the argument vectors recorded so far, oldest first.
func (e *FakeEncoder) Invocations(t testing.TB) [][]string {
	t.Helper()

	data, err := os.ReadFile(e.argvLog)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read argv log: %v", err)
	}
	var out [][]string
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line == invocationSeparator {
			out = append(out, []string{})
			continue
		}
		if len(out) == 0 {
			continue
		}
		out[len(out)-1] = append(out[len(out)-1], line)
	}
	return out
}

// WorkingDirs returns the working directory of each invocation.
func (e *FakeEncoder) WorkingDirs(t testing.TB) []string {
	t.Helper()

	data, err := os.ReadFile(e.cwdLog)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read cwd log: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

// WriteProber writes a stub ffprobe that prints the given JSON payload.
func WriteProber(t testing.TB, payload string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ffprobe")
	script := fmt.Sprintf("#!/bin/sh\ncat <<'JSON'\n%s\nJSON\n", payload)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake prober: %v", err)
	}
	return path
}
