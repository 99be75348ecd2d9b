package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEncoder()
	c.Images.Extensions = normalizeExtensions(c.Images.Extensions, defaultImageExtensions)
	c.Images.Resolution = strings.ToLower(strings.TrimSpace(c.Images.Resolution))
	c.Merge.Extensions = normalizeExtensions(c.Merge.Extensions, defaultVideoExtensions)
	c.Merge.Resolution = strings.ToLower(strings.TrimSpace(c.Merge.Resolution))
	c.Merge.MixedResolutionFallback = strings.ToLower(strings.TrimSpace(c.Merge.MixedResolutionFallback))
	if c.Merge.MixedResolutionFallback == "" {
		c.Merge.MixedResolutionFallback = defaultMixedResolutionFallback
	}
	c.Rotate.Preset = strings.TrimSpace(c.Rotate.Preset)
	c.Aspect.Preset = strings.TrimSpace(c.Aspect.Preset)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir()
	}
	if c.Paths.ScratchDir, err = expandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEncoder() {
	if value, ok := os.LookupEnv("VIDEOTOOLS_FFMPEG"); ok && strings.TrimSpace(value) != "" {
		c.Encoder.FFmpegBinary = value
	}
	if value, ok := os.LookupEnv("VIDEOTOOLS_FFPROBE"); ok && strings.TrimSpace(value) != "" {
		c.Encoder.FFprobeBinary = value
	}
	c.Encoder.FFmpegBinary = strings.TrimSpace(c.Encoder.FFmpegBinary)
	if c.Encoder.FFmpegBinary == "" {
		c.Encoder.FFmpegBinary = defaultFFmpegBinary
	}
	c.Encoder.FFprobeBinary = strings.TrimSpace(c.Encoder.FFprobeBinary)
	if c.Encoder.FFprobeBinary == "" {
		c.Encoder.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Encoder.LogTailLines == 0 {
		c.Encoder.LogTailLines = defaultLogTailLines
	}
	c.Encoder.NVENCPreset = strings.TrimSpace(c.Encoder.NVENCPreset)
	if c.Encoder.NVENCPreset == "" {
		c.Encoder.NVENCPreset = defaultNVENCPreset
	}
}

// normalizeExtensions lower-cases, dot-prefixes, and dedupes an extension list.
func normalizeExtensions(values []string, fallback []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
