package encoding

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind selects what a job produces.
type Kind string

const (
	KindImages Kind = "images"
	KindMerge  Kind = "merge"
	KindRotate Kind = "rotate"
	KindAspect Kind = "aspect"
)

// Codec is the user-facing codec choice.
type Codec string

const (
	CodecSoftware Codec = "software"
	CodecNVENC    Codec = "nvenc"
)

// Rotation is a quarter-turn direction.
type Rotation string

const (
	Clockwise        Rotation = "clockwise"
	CounterClockwise Rotation = "counter-clockwise"
)

// DefaultContainer is used when JobSpec.Container is empty.
const DefaultContainer = ".mp4"

// JobSpec describes one encode request.
type JobSpec struct {
	Kind Kind
	// Source is a folder for images and merge, a video file for rotate and aspect.
	Source string
	// OutputDir may be empty for rotate and aspect, meaning replace the source.
	OutputDir    string
	Codec        Codec
	Preset       string
	Resolution   string
	FrameRate    int
	Rotation     Rotation
	AspectRatio  string
	Acceleration bool
	Container    string
	// BitRate is passed as -b:v for aspect jobs when set.
	BitRate string
}

func (s JobSpec) container() string {
	c := strings.TrimSpace(s.Container)
	if c == "" {
		return DefaultContainer
	}
	if !strings.HasPrefix(c, ".") {
		c = "." + c
	}
	return strings.ToLower(c)
}

// OutputPath returns where the finished file lands.
func (s JobSpec) OutputPath() string {
	switch s.Kind {
	case KindRotate, KindAspect:
		if strings.TrimSpace(s.OutputDir) == "" {
			return filepath.Clean(s.Source)
		}
		return filepath.Join(s.OutputDir, filepath.Base(s.Source))
	default:
		base := filepath.Base(filepath.Clean(s.Source))
		return filepath.Join(s.OutputDir, base+s.container())
	}
}

// InPlace reports whether the output replaces the source file.
func (s JobSpec) InPlace() bool {
	if s.Kind != KindRotate && s.Kind != KindAspect {
		return false
	}
	out, err := filepath.Abs(s.OutputPath())
	if err != nil {
		return false
	}
	src, err := filepath.Abs(s.Source)
	if err != nil {
		return false
	}
	return out == src
}

// EnsureOutputDir creates the parent directory of OutputPath.
func (s JobSpec) EnsureOutputDir() error {
	dir := filepath.Dir(s.OutputPath())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return nil
}

// tempSuffix is inserted before the extension of in-place temp outputs.
func (s JobSpec) tempSuffix() string {
	if s.Kind == KindAspect {
		return ".processing"
	}
	return ".rotating"
}

// TempPath is the sibling file written during an in-place job.
func (s JobSpec) TempPath() string {
	target := s.OutputPath()
	ext := filepath.Ext(target)
	stem := strings.TrimSuffix(filepath.Base(target), ext)
	return filepath.Join(filepath.Dir(target), stem+s.tempSuffix()+ext)
}
