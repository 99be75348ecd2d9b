package encoding

import (
	"errors"
	"strconv"
	"strings"

	"github.com/duyyudus/video-tools/internal/workspace"
)

// DefaultBinary is invoked when Options.Binary is empty.
const DefaultBinary = "ffmpeg"

// Replacement describes an in-place job: the encoder writes Temp, and the
// runner renames it over Target once the encode succeeded.
type Replacement struct {
	Temp   string
	Target string
}

// CompiledJob is a ready-to-run encoder invocation.
type CompiledJob struct {
	Kind   Kind
	Source string
	Binary string
	Args   []string
	// Dir is the working directory for the child process; empty inherits.
	Dir string
	// Output is the file the encoder writes, which is the temp file for
	// in-place jobs.
	Output string
	// Target is where the result ends up once the job completes.
	Target      string
	Cleanup     []string
	Replacement *Replacement
}

// CommandLine renders the invocation for logs.
func (j CompiledJob) CommandLine() string {
	parts := make([]string, 0, len(j.Args)+1)
	parts = append(parts, quoteArg(j.Binary))
	for _, arg := range j.Args {
		parts = append(parts, quoteArg(arg))
	}
	return strings.Join(parts, " ")
}

func quoteArg(arg string) string {
	if arg == "" || strings.ContainsAny(arg, " \t\n'\"\\$`|&;()<>*?") {
		return strconv.Quote(arg)
	}
	return arg
}

// Compile validates spec and builds the encoder invocation. ws must come from
// workspace.Builder.Links for images and workspace.Builder.Manifest for merge;
// rotate and aspect jobs read the source file directly and ignore it.
func Compile(spec JobSpec, ws workspace.Workspace, opts Options) (CompiledJob, error) {
	if err := Validate(spec, opts); err != nil {
		return CompiledJob{}, err
	}
	encoder, err := ResolveCodec(spec.Codec, spec.Acceleration)
	if err != nil {
		return CompiledJob{}, err
	}
	preset := PresetFor(encoder, spec.Preset, opts.NVENCPreset)

	var res *Resolution
	if strings.TrimSpace(spec.Resolution) != "" {
		parsed, err := ParseResolution(spec.Resolution, opts.AllowCustomResolution)
		if err != nil {
			return CompiledJob{}, err
		}
		res = &parsed
	}

	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = DefaultBinary
	}

	job := CompiledJob{
		Kind:    spec.Kind,
		Source:  spec.Source,
		Binary:  binary,
		Target:  spec.OutputPath(),
		Cleanup: ws.CleanupPaths(),
	}
	job.Output = job.Target
	if spec.InPlace() {
		job.Output = spec.TempPath()
		job.Replacement = &Replacement{Temp: job.Output, Target: job.Target}
	}

	args := []string{"-hide_banner", "-nostdin", "-y"}
	switch spec.Kind {
	case KindImages:
		if ws.Pattern == "" {
			return CompiledJob{}, errors.New("images job: workspace has no input pattern")
		}
		start := ws.StartNumber
		if start <= 0 {
			start = 1
		}
		job.Dir = ws.Dir
		args = append(args,
			"-framerate", strconv.Itoa(spec.FrameRate),
			"-start_number", strconv.Itoa(start),
			"-i", ws.Pattern,
		)
		if res != nil {
			args = append(args, "-vf", letterboxFilter(*res))
		}
		args = appendCodec(args, encoder, preset)
		args = append(args, "-pix_fmt", "yuv420p")
	case KindMerge:
		if ws.Manifest == "" {
			return CompiledJob{}, errors.New("merge job: workspace has no concat manifest")
		}
		if res == nil {
			args = append(args, "-f", "concat", "-safe", "0", "-i", ws.Manifest, "-c", "copy")
			break
		}
		// acceleration implies nvenc here; ResolveCodec rejects software+acceleration.
		if spec.Acceleration {
			args = append(args, "-hwaccel", "cuda", "-hwaccel_output_format", "cuda")
		}
		args = append(args, "-f", "concat", "-safe", "0", "-i", ws.Manifest)
		args = appendCodec(args, encoder, preset)
		if spec.Acceleration {
			args = append(args, "-vf", cudaMergeScaleFilter(*res))
		} else {
			args = append(args, "-vf", mergeScaleFilter(*res))
		}
		args = appendSoftwarePixFmt(args, encoder)
		args = append(args, "-c:a", "copy")
	case KindRotate:
		value, err := transposeValue(spec.Rotation)
		if err != nil {
			return CompiledJob{}, err
		}
		args = append(args, "-i", spec.Source, "-vf", transposeFilter(value))
		args = appendCodec(args, encoder, preset)
		args = appendSoftwarePixFmt(args, encoder)
		args = append(args, "-c:a", "copy")
	case KindAspect:
		expr, err := aspectExpr(spec.AspectRatio)
		if err != nil {
			return CompiledJob{}, err
		}
		args = append(args, "-i", spec.Source, "-vf", aspectFilter(expr))
		args = appendCodec(args, encoder, preset)
		if br := strings.TrimSpace(spec.BitRate); br != "" {
			args = append(args, "-b:v", br)
		}
		args = appendSoftwarePixFmt(args, encoder)
		args = append(args, "-c:a", "copy")
	}
	job.Args = append(args, job.Output)
	return job, nil
}

func appendCodec(args []string, encoder, preset string) []string {
	args = append(args, "-c:v", encoder)
	if preset != "" {
		args = append(args, "-preset", preset)
	}
	return args
}

func appendSoftwarePixFmt(args []string, encoder string) []string {
	if encoder == codecH264NVENC {
		return args
	}
	return append(args, "-pix_fmt", "yuv420p")
}
