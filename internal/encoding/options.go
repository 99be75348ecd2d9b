package encoding

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/duyyudus/video-tools/internal/faults"
)

const (
	codecLibx264       = "libx264"
	codecH264NVENC     = "h264_nvenc"
	defaultNVENCPreset = "p4"
)

// Options carries the encoder settings shared by every job in a batch.
type Options struct {
	Binary                string
	AllowCustomResolution bool
	// NVENCPreset is used when an nvenc job names no preset.
	NVENCPreset string
}

// Resolution is a parsed WIDTHxHEIGHT value.
type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// AspectRatio returns width divided by height.
func (r Resolution) AspectRatio() float64 {
	return float64(r.Width) / float64(r.Height)
}

var resolutionPattern = regexp.MustCompile(`^(\d+)x(\d+)$`)

// landscape resolutions from 360p to 8K; portrait variants are derived.
var standardResolutions = []Resolution{
	{640, 360},
	{854, 480},
	{1280, 720},
	{1920, 1080},
	{2560, 1440},
	{3840, 2160},
	{4096, 2160},
	{7680, 4320},
}

// RecognizedResolutions lists every accepted resolution, landscape first.
func RecognizedResolutions() []string {
	out := make([]string, 0, len(standardResolutions)*2)
	for _, r := range standardResolutions {
		out = append(out, r.String())
	}
	for _, r := range standardResolutions {
		out = append(out, Resolution{Width: r.Height, Height: r.Width}.String())
	}
	return out
}

// ParseResolution parses value and checks it against the recognized set
// unless allowCustom is set.
func ParseResolution(value string, allowCustom bool) (Resolution, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	m := resolutionPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return Resolution{}, &ConfigError{Kind: UnsupportedResolution, Value: value, Reason: "expected WIDTHxHEIGHT"}
	}
	w, errW := strconv.Atoi(m[1])
	h, errH := strconv.Atoi(m[2])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return Resolution{}, &ConfigError{Kind: UnsupportedResolution, Value: value, Reason: "width and height must be positive integers"}
	}
	res := Resolution{Width: w, Height: h}
	if allowCustom {
		return res, nil
	}
	allowed := RecognizedResolutions()
	if !slices.Contains(allowed, res.String()) {
		return Resolution{}, &ConfigError{Kind: UnsupportedResolution, Value: value, Allowed: allowed}
	}
	return res, nil
}

// ResolveCodec maps the user codec choice and acceleration flag to an ffmpeg
// encoder name. An empty codec follows the acceleration flag.
func ResolveCodec(codec Codec, acceleration bool) (string, error) {
	switch Codec(strings.ToLower(strings.TrimSpace(string(codec)))) {
	case "":
		if acceleration {
			return codecH264NVENC, nil
		}
		return codecLibx264, nil
	case CodecNVENC:
		return codecH264NVENC, nil
	case CodecSoftware:
		if acceleration {
			return "", &ConfigError{
				Kind:    UnsupportedCodec,
				Value:   string(codec),
				Allowed: []string{string(CodecNVENC)},
				Reason:  "software codec conflicts with acceleration",
			}
		}
		return codecLibx264, nil
	default:
		return "", &ConfigError{
			Kind:    UnsupportedCodec,
			Value:   string(codec),
			Allowed: []string{string(CodecSoftware), string(CodecNVENC)},
		}
	}
}

var nvencPresetPattern = regexp.MustCompile(`^p[1-7]$`)

// PresetFor returns the -preset value for encoder, or "" when none applies.
// NVENC tiers (p1..p7) are dropped for software encodes.
func PresetFor(encoder, preset, nvencDefault string) string {
	preset = strings.TrimSpace(preset)
	if encoder == codecH264NVENC {
		if preset != "" {
			return preset
		}
		if d := strings.TrimSpace(nvencDefault); d != "" {
			return d
		}
		return defaultNVENCPreset
	}
	if nvencPresetPattern.MatchString(strings.ToLower(preset)) {
		return ""
	}
	return preset
}

var aspectRatios = map[string]string{
	"16:9": "16/9",
	"4:3":  "4/3",
	"1:1":  "1/1",
	"9:16": "9/16",
}

// AspectRatios lists the accepted aspect ratio values.
func AspectRatios() []string {
	return []string{"16:9", "4:3", "1:1", "9:16"}
}

func aspectExpr(value string) (string, error) {
	expr, ok := aspectRatios[strings.TrimSpace(value)]
	if !ok {
		return "", &ConfigError{Kind: UnsupportedAspectRatio, Value: value, Allowed: AspectRatios()}
	}
	return expr, nil
}

func transposeValue(r Rotation) (string, error) {
	switch Rotation(strings.ToLower(strings.TrimSpace(string(r)))) {
	case Clockwise:
		return "1", nil
	case CounterClockwise:
		return "2", nil
	default:
		return "", &ConfigError{
			Kind:    UnsupportedRotation,
			Value:   string(r),
			Allowed: []string{string(Clockwise), string(CounterClockwise)},
		}
	}
}

// Validate checks every option of spec without touching the filesystem.
func Validate(spec JobSpec, opts Options) error {
	switch spec.Kind {
	case KindImages, KindMerge, KindRotate, KindAspect:
	default:
		return &ConfigError{
			Kind:    UnsupportedKind,
			Value:   string(spec.Kind),
			Allowed: []string{string(KindImages), string(KindMerge), string(KindRotate), string(KindAspect)},
		}
	}
	if strings.TrimSpace(spec.Source) == "" {
		return faults.Wrap(faults.ErrConfiguration, "encoding", "validate", fmt.Sprintf("%s job: source is required", spec.Kind), nil)
	}
	if _, err := ResolveCodec(spec.Codec, spec.Acceleration); err != nil {
		return err
	}
	if strings.TrimSpace(spec.Resolution) != "" {
		if _, err := ParseResolution(spec.Resolution, opts.AllowCustomResolution); err != nil {
			return err
		}
	}
	switch spec.Kind {
	case KindImages:
		if spec.FrameRate <= 0 {
			return &ConfigError{Kind: InvalidFrameRate, Value: strconv.Itoa(spec.FrameRate), Reason: "frame rate must be a positive integer"}
		}
		if strings.TrimSpace(spec.OutputDir) == "" {
			return faults.Wrap(faults.ErrConfiguration, "encoding", "validate", "images job: output directory is required", nil)
		}
	case KindMerge:
		if strings.TrimSpace(spec.OutputDir) == "" {
			return faults.Wrap(faults.ErrConfiguration, "encoding", "validate", "merge job: output directory is required", nil)
		}
	case KindRotate:
		if _, err := transposeValue(spec.Rotation); err != nil {
			return err
		}
	case KindAspect:
		if _, err := aspectExpr(spec.AspectRatio); err != nil {
			return err
		}
	}
	return nil
}
