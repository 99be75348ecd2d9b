// Package config loads, normalizes, and validates videotools configuration.
//
// It supplies defaults that match the original batch tools (2 fps image
// sequences at 3840x2160, NVENC preset p4), expands user paths including tilde
// shortcuts, reads TOML files, and honours the VIDEOTOOLS_FFMPEG and
// VIDEOTOOLS_FFPROBE environment overrides.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, lower-cased extension lists, and clear validation errors.
package config
