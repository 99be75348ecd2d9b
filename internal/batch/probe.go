package batch

import (
	"context"
	"log/slog"
	"slices"
	"strconv"

	"github.com/duyyudus/video-tools/internal/logging"
	"github.com/duyyudus/video-tools/internal/media/ffprobe"
	"github.com/duyyudus/video-tools/internal/sequence"
)

// probeFunc is swapped in tests.
var probeFunc = ffprobe.Inspect

// mergeResolution returns the resolution a merge must re-encode at when its
// clips disagree, or "" when they share one (or nothing could be probed).
// Probe failures are logged and skipped.
func (p *Processor) mergeResolution(ctx context.Context, logger *slog.Logger, entries []sequence.Entry) (string, []string) {
	var (
		seen     []string
		warnings []string
	)
	for _, entry := range entries {
		result, err := probeFunc(ctx, p.cfg.Encoder.FFprobeBinary, entry.Path)
		if err != nil {
			logging.WarnWithContext(logger, "clip probe failed", "merge_probe_failed",
				logging.String("path", entry.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that ffprobe is installed and the clip is readable"),
				logging.String(logging.FieldImpact, "clip excluded from resolution detection"),
			)
			warnings = append(warnings, "probe failed for "+entry.Path)
			continue
		}
		res, ok := result.VideoResolution()
		if !ok {
			continue
		}
		if !slices.Contains(seen, res) {
			seen = append(seen, res)
		}
	}
	if len(seen) <= 1 {
		return "", warnings
	}
	fallback := p.cfg.Merge.MixedResolutionFallback
	logger.Info("mixed clip resolutions detected",
		logging.Strings("resolutions", seen),
		logging.String("target", fallback),
		logging.String(logging.FieldEventType, "merge_mixed_resolution"),
	)
	warnings = append(warnings, "mixed resolutions, re-encoding at "+fallback)
	return fallback, warnings
}

// sourceBitRate returns the video bitrate of path in bits per second, or ""
// when it cannot be determined.
func (p *Processor) sourceBitRate(ctx context.Context, logger *slog.Logger, path string) string {
	result, err := probeFunc(ctx, p.cfg.Encoder.FFprobeBinary, path)
	if err != nil {
		logger.Debug("bitrate probe failed", logging.String("path", path), logging.Error(err))
		return ""
	}
	rate := result.VideoBitRate()
	if rate <= 0 {
		return ""
	}
	return strconv.FormatInt(rate, 10)
}
