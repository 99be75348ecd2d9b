package encoding

import (
	"fmt"
	"strings"

	"github.com/duyyudus/video-tools/internal/faults"
)

// ConfigErrorKind names the option that failed validation.
type ConfigErrorKind string

const (
	UnsupportedResolution  ConfigErrorKind = "UnsupportedResolution"
	UnsupportedCodec       ConfigErrorKind = "UnsupportedCodec"
	InvalidFrameRate       ConfigErrorKind = "InvalidFrameRate"
	UnsupportedRotation    ConfigErrorKind = "UnsupportedRotation"
	UnsupportedAspectRatio ConfigErrorKind = "UnsupportedAspectRatio"
	UnsupportedKind        ConfigErrorKind = "UnsupportedKind"
)

// ConfigError reports an option value outside its allowed set.
type ConfigError struct {
	Kind    ConfigErrorKind
	Value   string
	Allowed []string
	Reason  string
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %q", e.Kind, e.Value)
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if len(e.Allowed) > 0 {
		b.WriteString(" (allowed: ")
		b.WriteString(strings.Join(e.Allowed, ", "))
		b.WriteString(")")
	}
	return b.String()
}

// Is matches faults.ErrConfiguration.
func (e *ConfigError) Is(target error) bool {
	return target == faults.ErrConfiguration
}
