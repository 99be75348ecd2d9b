// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect executes ffprobe and returns a parsed Result. Helper methods expose
// the pieces the batch layer needs: the first video stream's resolution for
// merge planning and its bitrate for aspect ratio re-encodes.
package ffprobe
