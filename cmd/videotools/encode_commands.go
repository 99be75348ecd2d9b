package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/duyyudus/video-tools/internal/batch"
	"github.com/duyyudus/video-tools/internal/encoding"
)

// encodeFlags holds the options shared by the encode commands. Flags left
// unset fall back to the config section of the command.
type encodeFlags struct {
	output     string
	codec      string
	preset     string
	resolution string
	container  string
	frameRate  int
	accel      bool
}

func (f *encodeFlags) options() batch.Options {
	return batch.Options{
		Codec:        encoding.Codec(strings.ToLower(strings.TrimSpace(f.codec))),
		Preset:       strings.TrimSpace(f.preset),
		Resolution:   strings.TrimSpace(f.resolution),
		FrameRate:    f.frameRate,
		Acceleration: f.accel,
		Container:    strings.TrimSpace(f.container),
	}
}

func (f *encodeFlags) registerCodec(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.codec, "codec", "", "Video encoder: software or nvenc (default follows --accel)")
	cmd.Flags().StringVar(&f.preset, "preset", "", "Encoder preset passed through to ffmpeg")
	cmd.Flags().BoolVar(&f.accel, "accel", false, "Use NVIDIA hardware encoding (and CUDA scaling for merges)")
}

func newImagesCommand(ctx *commandContext) *cobra.Command {
	var flags encodeFlags
	cmd := &cobra.Command{
		Use:   "images FOLDER...",
		Short: "Encode numbered image sequences into videos",
		Long: "Encode every FOLDER of numbered images into <output>/<folder>.mp4.\n\n" +
			"Folders must hold one extension, a consistent zero padding, and a gap-free\n" +
			"index range. A folder that fails validation is skipped and the batch continues.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := flags.options()
			if !cmd.Flags().Changed("frame-rate") {
				opts.FrameRate = cfg.Images.FrameRate
			}
			if !cmd.Flags().Changed("resolution") {
				opts.Resolution = cfg.Images.Resolution
			}
			return runBatch(cmd, ctx, batch.ImageItems(args, flags.output, opts))
		},
	}
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Directory for the encoded videos")
	cmd.Flags().IntVarP(&flags.frameRate, "frame-rate", "r", 0, "Frames per second (default images.frame_rate)")
	cmd.Flags().StringVar(&flags.resolution, "resolution", "", "Letterbox into WIDTHxHEIGHT; empty keeps the source size (default images.resolution)")
	flags.registerCodec(cmd)
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var flags encodeFlags
	cmd := &cobra.Command{
		Use:   "merge FOLDER...",
		Short: "Concatenate numbered clips into one video per folder",
		Long: "Concatenate the numbered clips of every FOLDER into <output>/<folder><container>.\n\n" +
			"Without --resolution the clips are stream copied, unless probing finds mixed\n" +
			"resolutions, in which case they are re-encoded at merge.mixed_resolution_fallback.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := flags.options()
			if !cmd.Flags().Changed("resolution") {
				opts.Resolution = cfg.Merge.Resolution
			}
			return runBatch(cmd, ctx, batch.MergeItems(args, flags.output, opts))
		},
	}
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Directory for the merged videos")
	cmd.Flags().StringVar(&flags.resolution, "resolution", "", "Re-encode at WIDTHxHEIGHT (default merge.resolution)")
	cmd.Flags().StringVar(&flags.container, "container", encoding.DefaultContainer, "Output container extension")
	flags.registerCodec(cmd)
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newRotateCommand(ctx *commandContext) *cobra.Command {
	var (
		flags     encodeFlags
		direction string
	)
	cmd := &cobra.Command{
		Use:   "rotate PATH...",
		Short: "Rotate videos a quarter turn",
		Long: "Rotate every video named by PATH (files or folders of videos).\n\n" +
			"Without --output each source is replaced in place once the encode succeeds.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := flags.options()
			opts.Rotation = encoding.Rotation(strings.ToLower(strings.TrimSpace(direction)))
			if !cmd.Flags().Changed("preset") {
				opts.Preset = cfg.Rotate.Preset
			}
			items, err := batch.VideoItems(encoding.KindRotate, args, cfg.VideoExtensions(), flags.output, opts)
			if err != nil {
				return err
			}
			return runBatch(cmd, ctx, items)
		},
	}
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write rotated copies here instead of replacing the sources")
	cmd.Flags().StringVarP(&direction, "direction", "d", string(encoding.Clockwise),
		fmt.Sprintf("Rotation direction: %s or %s", encoding.Clockwise, encoding.CounterClockwise))
	flags.registerCodec(cmd)
	return cmd
}

func newAspectCommand(ctx *commandContext) *cobra.Command {
	var (
		flags encodeFlags
		ratio string
	)
	cmd := &cobra.Command{
		Use:   "aspect PATH...",
		Short: "Stretch or squash videos to a display aspect ratio",
		Long: "Rescale the width of every video named by PATH so it displays at --ratio.\n\n" +
			"Without --output each source is replaced in place once the encode succeeds.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := flags.options()
			opts.AspectRatio = strings.TrimSpace(ratio)
			if !cmd.Flags().Changed("preset") {
				opts.Preset = cfg.Aspect.Preset
			}
			items, err := batch.VideoItems(encoding.KindAspect, args, cfg.VideoExtensions(), flags.output, opts)
			if err != nil {
				return err
			}
			return runBatch(cmd, ctx, items)
		},
	}
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write adjusted copies here instead of replacing the sources")
	cmd.Flags().StringVar(&ratio, "ratio", "", "Target ratio: "+strings.Join(encoding.AspectRatios(), ", "))
	flags.registerCodec(cmd)
	_ = cmd.MarkFlagRequired("ratio")
	return cmd
}
