package preflight

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"github.com/duyyudus/video-tools/internal/config"
	"github.com/duyyudus/video-tools/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least min bytes available.
func CheckFreeSpace(name, path string, min uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	detail := fmt.Sprintf("%s free on %s", humanize.IBytes(free), path)
	if free < min {
		return Result{Name: name, Detail: fmt.Sprintf("%s (need at least %s)", detail, humanize.IBytes(min))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckEncoders reports whether ffmpeg was built with libx264 and h264_nvenc.
// Both are optional: a missing NVENC only matters when acceleration is requested.
func CheckEncoders(ctx context.Context, cfg *config.Config) []Result {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	names := []string{"libx264", "h264_nvenc"}
	encoders, err := deps.ListEncoders(checkCtx, cfg.Encoder.FFmpegBinary)
	results := make([]Result, 0, len(names))
	for _, encoder := range names {
		result := Result{Name: "Encoder " + encoder, Optional: true}
		switch {
		case err != nil:
			result.Detail = fmt.Sprintf("could not list encoders (%v)", err)
		default:
			if _, ok := encoders[encoder]; ok {
				result.Passed = true
				result.Detail = "available"
			} else {
				result.Detail = "not compiled into ffmpeg"
			}
		}
		results = append(results, result)
	}
	return results
}
