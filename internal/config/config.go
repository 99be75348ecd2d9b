package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/duyyudus/video-tools/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains scratch, state, and log directory configuration.
type Paths struct {
	ScratchDir         string `toml:"scratch_dir"`
	StateDir           string `toml:"state_dir"`
	LogDir             string `toml:"log_dir"`
	ScratchMaxAgeHours int    `toml:"scratch_max_age_hours"`
}

// Encoder contains settings shared by every ffmpeg invocation.
type Encoder struct {
	FFmpegBinary          string `toml:"ffmpeg_binary"`
	FFprobeBinary         string `toml:"ffprobe_binary"`
	LogTailLines          int    `toml:"log_tail_lines"`
	AllowCustomResolution bool   `toml:"allow_custom_resolution"`
	NVENCPreset           string `toml:"nvenc_preset"`
}

// Images contains defaults for image-sequence encodes.
type Images struct {
	FrameRate  int      `toml:"frame_rate"`
	Resolution string   `toml:"resolution"`
	Extensions []string `toml:"extensions"`
}

// Merge contains defaults for clip concatenation.
type Merge struct {
	Resolution              string   `toml:"resolution"`
	ProbeResolution         bool     `toml:"probe_resolution"`
	MixedResolutionFallback string   `toml:"mixed_resolution_fallback"`
	Extensions              []string `toml:"extensions"`
}

// Rotate contains defaults for in-place rotation.
type Rotate struct {
	Preset string `toml:"preset"`
}

// Aspect contains defaults for aspect ratio adjustment.
type Aspect struct {
	Preset       string `toml:"preset"`
	ProbeBitrate bool   `toml:"probe_bitrate"`
}

// History controls the SQLite job ledger.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for videotools.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Encoder Encoder `toml:"encoder"`
	Images  Images  `toml:"images"`
	Merge   Merge   `toml:"merge"`
	Rotate  Rotate  `toml:"rotate"`
	Aspect  Aspect  `toml:"aspect"`
	History History `toml:"history"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the scratch, state, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ScratchDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath is the SQLite job ledger location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath is the batch exclusivity lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "batch.lock")
}

// VideoExtensions is the accepted clip extension set for merge, rotate, and aspect sources.
func (c *Config) VideoExtensions() []string {
	return append([]string(nil), c.Merge.Extensions...)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if err := fileutil.WriteFileAtomic(filepath.Dir(path), filepath.Base(path), []byte(sampleConfig)); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
