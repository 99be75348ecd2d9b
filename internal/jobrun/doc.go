// Package jobrun executes compiled encoder invocations.
//
// The runner starts the encoder as a child process, keeps a bounded tail of
// its error stream for diagnostics, and owns the job's lifecycle on disk:
// scratch artifacts are removed on every exit path, partial outputs are
// removed on failure, and in-place jobs rename their temp output over the
// source only after the encoder succeeded and produced a non-empty file.
//
// Once started, an encode is allowed to finish even if the caller's context
// is cancelled; batch cancellation takes effect between jobs.
package jobrun
