package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/duyyudus/video-tools/internal/config"
	"github.com/duyyudus/video-tools/internal/faults"
)

// Requirement defines an external binary videotools relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			if _, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}

// Encoder returns the ffmpeg requirement for cfg.
func Encoder(cfg *config.Config) Requirement {
	return Requirement{
		Name:        "FFmpeg",
		Command:     cfg.Encoder.FFmpegBinary,
		Description: "Encodes image sequences and video clips",
	}
}

// Prober returns the ffprobe requirement for cfg. It is optional because
// probing only refines merge and aspect jobs.
func Prober(cfg *config.Config) Requirement {
	return Requirement{
		Name:        "FFprobe",
		Command:     cfg.Encoder.FFprobeBinary,
		Description: "Detects clip resolution and bitrate",
		Optional:    true,
	}
}

// EnvironmentError reports required binaries that are not available.
type EnvironmentError struct {
	Missing []Status
}

func (e *EnvironmentError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, status := range e.Missing {
		parts = append(parts, fmt.Sprintf("%s (%s)", status.Name, status.Detail))
	}
	return "missing required dependencies: " + strings.Join(parts, ", ")
}

func (e *EnvironmentError) Is(target error) bool {
	return target == faults.ErrEnvironment
}

// Require returns an *EnvironmentError when any non-optional status is unavailable.
func Require(statuses []Status) error {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &EnvironmentError{Missing: missing}
}
