package preflight

import (
	"context"
	"strings"

	"github.com/duyyudus/video-tools/internal/config"
	"github.com/duyyudus/video-tools/internal/deps"
)

// minScratchFree is the headroom required in the scratch directory for
// manifests and copy-fallback workspaces.
const minScratchFree = 64 << 20

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config.
// outputDirs are checked for access when they already exist.
func RunAll(ctx context.Context, cfg *config.Config, outputDirs ...string) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range CheckSystemDeps(cfg) {
		detail := status.Detail
		if status.Available {
			detail = status.Command
		}
		results = append(results, Result{
			Name:     status.Name,
			Passed:   status.Available,
			Optional: status.Optional,
			Detail:   detail,
		})
	}
	results = append(results, CheckEncoders(ctx, cfg)...)

	results = append(results, CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir))
	results = append(results, CheckFreeSpace("Scratch free space", cfg.Paths.ScratchDir, minScratchFree))
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))

	for _, dir := range outputDirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		results = append(results, CheckDirectoryAccess("Output directory", dir))
	}
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}

// CheckSystemDeps evaluates the external binaries for the given config.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{deps.Encoder(cfg), deps.Prober(cfg)})
}
