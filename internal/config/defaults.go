package config

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigPath              = "~/.config/videotools/config.toml"
	projectConfigName              = "videotools.toml"
	defaultStateDir                = "~/.local/share/videotools"
	defaultLogDir                  = "~/.local/share/videotools/logs"
	defaultScratchMaxAgeHours      = 24
	defaultFFmpegBinary            = "ffmpeg"
	defaultFFprobeBinary           = "ffprobe"
	defaultLogTailLines            = 20
	defaultNVENCPreset             = "p4"
	defaultImageFrameRate          = 2
	defaultImageResolution         = "3840x2160"
	defaultMixedResolutionFallback = "1920x1080"
	defaultAspectPreset            = "p7"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

var (
	defaultImageExtensions = []string{".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp", ".webp"}
	defaultVideoExtensions = []string{".mp4", ".mov", ".mkv", ".avi", ".m4v", ".webm", ".mpg", ".mpeg", ".mts", ".m2ts", ".ts"}
)

func defaultScratchDir() string {
	return filepath.Join(os.TempDir(), "videotools")
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ScratchDir:         defaultScratchDir(),
			StateDir:           defaultStateDir,
			LogDir:             defaultLogDir,
			ScratchMaxAgeHours: defaultScratchMaxAgeHours,
		},
		Encoder: Encoder{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			LogTailLines:  defaultLogTailLines,
			NVENCPreset:   defaultNVENCPreset,
		},
		Images: Images{
			FrameRate:  defaultImageFrameRate,
			Resolution: defaultImageResolution,
			Extensions: append([]string(nil), defaultImageExtensions...),
		},
		Merge: Merge{
			ProbeResolution:         true,
			MixedResolutionFallback: defaultMixedResolutionFallback,
			Extensions:              append([]string(nil), defaultVideoExtensions...),
		},
		Aspect: Aspect{
			Preset:       defaultAspectPreset,
			ProbeBitrate: true,
		},
		History: History{Enabled: true},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
