// Package preflight runs environment checks before a batch starts: encoder
// binaries on PATH, scratch and output directory permissions, and free space.
//
// Results are plain values so the CLI can render them as a table and the batch
// processor can refuse to start when a required check fails.
package preflight
