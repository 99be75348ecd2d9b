package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validateImages(); err != nil {
		return err
	}
	if err := c.validateMerge(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.ScratchDir == "" {
		return errors.New("paths.scratch_dir must be set")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Paths.ScratchMaxAgeHours < 0 {
		return errors.New("paths.scratch_max_age_hours must be zero or positive")
	}
	return nil
}

func (c *Config) validateEncoder() error {
	if c.Encoder.LogTailLines <= 0 {
		return errors.New("encoder.log_tail_lines must be positive")
	}
	return nil
}

func (c *Config) validateImages() error {
	if c.Images.FrameRate <= 0 {
		return fmt.Errorf("images.frame_rate must be positive (got %d)", c.Images.FrameRate)
	}
	if c.Images.Resolution != "" && !wellFormedResolution(c.Images.Resolution) {
		return fmt.Errorf("images.resolution %q must look like WIDTHxHEIGHT", c.Images.Resolution)
	}
	return nil
}

func (c *Config) validateMerge() error {
	if c.Merge.Resolution != "" && !wellFormedResolution(c.Merge.Resolution) {
		return fmt.Errorf("merge.resolution %q must look like WIDTHxHEIGHT", c.Merge.Resolution)
	}
	if !wellFormedResolution(c.Merge.MixedResolutionFallback) {
		return fmt.Errorf("merge.mixed_resolution_fallback %q must look like WIDTHxHEIGHT", c.Merge.MixedResolutionFallback)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}

// wellFormedResolution only checks shape; the encoding package owns the recognized set.
func wellFormedResolution(value string) bool {
	width, height, ok := strings.Cut(value, "x")
	if !ok {
		return false
	}
	w, err := strconv.Atoi(width)
	if err != nil || w <= 0 {
		return false
	}
	h, err := strconv.Atoi(height)
	return err == nil && h > 0
}
