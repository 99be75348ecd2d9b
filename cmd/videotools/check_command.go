package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/duyyudus/video-tools/internal/preflight"
)

type checkView struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Optional bool   `json:"optional"`
	Detail   string `json:"detail"`
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var outputs []string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify ffmpeg, ffprobe, and working directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, outputs...)
			failed := preflight.Failed(results)

			if ctx.jsonEnabled() {
				views := make([]checkView, 0, len(results))
				for _, r := range results {
					views = append(views, checkView{Name: r.Name, Passed: r.Passed, Optional: r.Optional, Detail: r.Detail})
				}
				if err := writeJSON(cmd, views); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("Environment", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, r := range results {
					fmt.Fprintln(out, renderStatusLine(r.Name, checkStatusKind(r), r.Detail, colorize))
				}
			}

			if len(failed) > 0 {
				names := make([]string, 0, len(failed))
				for _, r := range failed {
					names = append(names, r.Name)
				}
				return fmt.Errorf("%d required checks failed: %s", len(failed), strings.Join(names, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&outputs, "output", "o", nil, "Output directories to check for write access")
	return cmd
}

func checkStatusKind(r preflight.Result) statusKind {
	switch {
	case r.Passed:
		return statusOK
	case r.Optional:
		return statusWarn
	default:
		return statusError
	}
}
