// Package workspace materializes accepted sequences as scratch artifacts the
// encoder can read: a directory of uniformly named symlinks for image
// sequences, or a concat demuxer manifest for clip merges.
//
// The builder never deletes what it creates; the job runner owns cleanup.
package workspace
