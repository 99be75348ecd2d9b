package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"github.com/duyyudus/video-tools/internal/encoding"
	"github.com/duyyudus/video-tools/internal/faults"
	"github.com/duyyudus/video-tools/internal/history"
	"github.com/duyyudus/video-tools/internal/logging"
	"github.com/duyyudus/video-tools/internal/media/ffprobe"
	"github.com/duyyudus/video-tools/internal/testsupport"
)

func newProcessor(t *testing.T, behavior testsupport.EncoderBehavior, opts ...Option) (*Processor, *testsupport.FakeEncoder, *history.Store) {
	t.Helper()
	enc := testsupport.NewFakeEncoder(t, behavior)
	cfg := testsupport.NewConfig(t, testsupport.WithEncoder(enc))
	store := testsupport.MustOpenHistory(t, cfg)
	opts = append([]Option{WithHistory(store)}, opts...)
	return New(cfg, logging.NewNop(), opts...), enc, store
}

func sequenceFolder(t *testing.T, name string, files ...string) string {
	t.Helper()
	return testsupport.WriteFiles(t, filepath.Join(t.TempDir(), name), files...)
}

func softwareOptions() Options {
	return Options{Codec: encoding.CodecSoftware, FrameRate: 24}
}

func TestRunImagesSucceeds(t *testing.T) {
	proc, enc, store := newProcessor(t, testsupport.EncoderBehavior{})
	folder := sequenceFolder(t, "shots", "shot_001.png", "shot_002.png", "shot_003.png")
	outDir := filepath.Join(t.TempDir(), "out")

	summary, err := proc.Run(context.Background(), ImageItems([]string{folder}, outDir, softwareOptions()))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.OK() {
		t.Fatalf("expected success, got %+v", summary.Results)
	}
	want := filepath.Join(outDir, "shots.mp4")
	if summary.Results[0].Output != want {
		t.Fatalf("output = %s, want %s", summary.Results[0].Output, want)
	}
	data, err := os.ReadFile(want)
	if err != nil || string(data) != "encoded" {
		t.Fatalf("expected encoded output, got %q (%v)", data, err)
	}

	calls := enc.Invocations(t)
	if len(calls) != 1 {
		t.Fatalf("expected one encoder call, got %d", len(calls))
	}
	argv := calls[0]
	if i := slices.Index(argv, "-framerate"); i < 0 || argv[i+1] != "24" {
		t.Fatalf("missing frame rate in %v", argv)
	}
	if i := slices.Index(argv, "-c:v"); i < 0 || argv[i+1] != "libx264" {
		t.Fatalf("expected libx264 in %v", argv)
	}

	rows, err := store.ByRun(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("ByRun: %v", err)
	}
	if len(rows) != 1 || rows[0].Status != history.StatusSucceeded || rows[0].Output != want {
		t.Fatalf("unexpected history rows: %+v", rows)
	}
	if rows[0].Command == "" || rows[0].Command != summary.Results[0].Command {
		t.Fatalf("history command = %q, result command = %q", rows[0].Command, summary.Results[0].Command)
	}
	if !strings.Contains(rows[0].Command, "-framerate 24") || !strings.Contains(rows[0].Command, want) {
		t.Fatalf("history command %q lacks encoder arguments", rows[0].Command)
	}
}

func TestRunRejectsMixedExtensionsAndContinues(t *testing.T) {
	proc, enc, store := newProcessor(t, testsupport.EncoderBehavior{})
	bad := sequenceFolder(t, "bad", "f_001.png", "f_002.jpg")
	good := sequenceFolder(t, "good", "f_001.png", "f_002.png")
	outDir := t.TempDir()

	summary, err := proc.Run(context.Background(), ImageItems([]string{bad, good}, outDir, softwareOptions()))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(summary.Results))
	}
	first := summary.Results[0]
	if first.Status != history.StatusRejected || !errors.Is(first.Err, faults.ErrValidation) {
		t.Fatalf("expected rejection, got %s (%v)", first.Status, first.Err)
	}
	if !strings.Contains(first.Err.Error(), "MixedExtensions") {
		t.Fatalf("expected mixed extension defect, got %v", first.Err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "bad.mp4")); !os.IsNotExist(err) {
		t.Fatalf("rejected item must not produce output, stat err=%v", err)
	}
	if summary.Results[1].Status != history.StatusSucceeded {
		t.Fatalf("second item should still run, got %s (%v)", summary.Results[1].Status, summary.Results[1].Err)
	}
	if calls := enc.Invocations(t); len(calls) != 1 {
		t.Fatalf("expected only the good folder to reach the encoder, got %d calls", len(calls))
	}

	scratch, err := os.ReadDir(proc.cfg.Paths.ScratchDir)
	if err != nil {
		t.Fatalf("read scratch: %v", err)
	}
	if len(scratch) != 0 {
		t.Fatalf("expected empty scratch dir, found %d entries", len(scratch))
	}

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[history.StatusRejected] != 1 || stats[history.StatusSucceeded] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestRunFailedEncodeDoesNotAbort(t *testing.T) {
	proc, enc, store := newProcessor(t, testsupport.EncoderBehavior{ExitCode: 1, StderrLines: 3})
	a := sequenceFolder(t, "a", "1.png", "2.png")
	b := sequenceFolder(t, "b", "1.png", "2.png")
	outDir := t.TempDir()

	summary, err := proc.Run(context.Background(), ImageItems([]string{a, b}, outDir, softwareOptions()))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := summary.Count(history.StatusFailed); got != 2 {
		t.Fatalf("expected 2 failures, got %d", got)
	}
	res := summary.Results[0]
	if !errors.Is(res.Err, faults.ErrExecution) || res.Outcome.ExitCode != 1 {
		t.Fatalf("expected execution failure with exit 1, got %v (exit %d)", res.Err, res.Outcome.ExitCode)
	}
	if len(res.Outcome.Tail) != 3 {
		t.Fatalf("expected 3 tail lines, got %v", res.Outcome.Tail)
	}
	if _, err := os.Stat(filepath.Join(outDir, "a.mp4")); !os.IsNotExist(err) {
		t.Fatalf("failed output should be removed, stat err=%v", err)
	}
	if len(enc.Invocations(t)) != 2 {
		t.Fatal("expected both items to reach the encoder")
	}
	rows, err := store.ByRun(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("ByRun: %v", err)
	}
	for _, row := range rows {
		if row.Status != history.StatusFailed || row.ExitCode != 1 || !strings.HasPrefix(row.Command, enc.Path) {
			t.Fatalf("unexpected failed row: %+v", row)
		}
	}
}

func TestRunAbortsWhenEncoderMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Encoder.FFmpegBinary = filepath.Join(t.TempDir(), "ffmpeg-missing")
	proc := New(cfg, logging.NewNop())
	folder := sequenceFolder(t, "shots", "1.png")

	summary, err := proc.Run(context.Background(), ImageItems([]string{folder}, t.TempDir(), softwareOptions()))
	if !errors.Is(err, faults.ErrEnvironment) {
		t.Fatalf("expected environment error, got %v", err)
	}
	if len(summary.Results) != 0 {
		t.Fatalf("no item should run, got %d results", len(summary.Results))
	}
}

func TestRunAbortsOnEncoderVanishingMidBatch(t *testing.T) {
	var enc *testsupport.FakeEncoder
	obs := ObserverFuncs{Finished: func(item Item, _ Result) {
		if item.Index == 0 {
			_ = os.Remove(enc.Path)
		}
	}}
	proc, fake, _ := newProcessor(t, testsupport.EncoderBehavior{}, WithObserver(obs))
	enc = fake
	folders := []string{
		sequenceFolder(t, "a", "1.png"),
		sequenceFolder(t, "b", "1.png"),
		sequenceFolder(t, "c", "1.png"),
	}

	summary, err := proc.Run(context.Background(), ImageItems(folders, t.TempDir(), softwareOptions()))
	if !errors.Is(err, faults.ErrEnvironment) {
		t.Fatalf("expected environment abort, got %v", err)
	}
	statuses := make([]history.Status, 0, len(summary.Results))
	for _, r := range summary.Results {
		statuses = append(statuses, r.Status)
	}
	want := []history.Status{history.StatusSucceeded, history.StatusFailed, history.StatusCancelled}
	if !slices.Equal(statuses, want) {
		t.Fatalf("statuses = %v, want %v", statuses, want)
	}
}

func TestRunCancellationStopsBetweenItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var started, finished int
	obs := ObserverFuncs{
		Started: func(Item) { started++ },
		Finished: func(Item, Result) {
			finished++
			cancel()
		},
	}
	proc, enc, store := newProcessor(t, testsupport.EncoderBehavior{}, WithObserver(obs))
	folders := []string{sequenceFolder(t, "a", "1.png"), sequenceFolder(t, "b", "1.png")}

	summary, err := proc.Run(ctx, ImageItems(folders, t.TempDir(), softwareOptions()))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Results[0].Status != history.StatusSucceeded {
		t.Fatalf("in-flight item should finish, got %s", summary.Results[0].Status)
	}
	if summary.Results[1].Status != history.StatusCancelled || !errors.Is(summary.Results[1].Err, context.Canceled) {
		t.Fatalf("expected cancelled second item, got %s (%v)", summary.Results[1].Status, summary.Results[1].Err)
	}
	if started != 1 || finished != 1 {
		t.Fatalf("observer saw started=%d finished=%d", started, finished)
	}
	if len(enc.Invocations(t)) != 1 {
		t.Fatal("cancelled item must not reach the encoder")
	}
	rows, err := store.ByRun(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("ByRun: %v", err)
	}
	if len(rows) != 2 || rows[1].Status != history.StatusCancelled {
		t.Fatalf("unexpected history rows: %+v", rows)
	}
}

func TestRunRefusesWhenLocked(t *testing.T) {
	proc, enc, _ := newProcessor(t, testsupport.EncoderBehavior{})
	if err := proc.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	held := flock.New(proc.cfg.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("pre-lock failed: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	_, err = proc.Run(context.Background(), ImageItems([]string{sequenceFolder(t, "a", "1.png")}, t.TempDir(), softwareOptions()))
	if !errors.Is(err, ErrBatchLocked) || !errors.Is(err, faults.ErrEnvironment) {
		t.Fatalf("expected lock error, got %v", err)
	}
	if len(enc.Invocations(t)) != 0 {
		t.Fatal("locked batch must not invoke the encoder")
	}
}

func TestRunEmptyBatch(t *testing.T) {
	proc, _, _ := newProcessor(t, testsupport.EncoderBehavior{})
	if _, err := proc.Run(context.Background(), nil); !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMergeMixedResolutionsReencodeAtFallback(t *testing.T) {
	sizes := map[string][2]int{"clip_01.mp4": {1920, 1080}, "clip_02.mp4": {1280, 720}}
	orig := probeFunc
	probeFunc = func(_ context.Context, _ string, path string) (ffprobe.Result, error) {
		wh := sizes[filepath.Base(path)]
		return ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video", Width: wh[0], Height: wh[1]}}}, nil
	}
	t.Cleanup(func() { probeFunc = orig })

	proc, enc, _ := newProcessor(t, testsupport.EncoderBehavior{})
	proc.cfg.Merge.ProbeResolution = true
	folder := sequenceFolder(t, "trip", "clip_01.mp4", "clip_02.mp4")
	outDir := t.TempDir()

	res, err := proc.MergeClips(context.Background(), folder, outDir, Options{Codec: encoding.CodecSoftware})
	if err != nil {
		t.Fatalf("MergeClips: %v", err)
	}
	if !res.Success || res.Output != filepath.Join(outDir, "trip.mp4") {
		t.Fatalf("unexpected outcome: %+v", res)
	}
	argv := enc.Invocations(t)[0]
	i := slices.Index(argv, "-vf")
	if i < 0 || !strings.HasPrefix(argv[i+1], "scale=1920:1080:") {
		t.Fatalf("expected fallback scale filter, got %v", argv)
	}
	if slices.Contains(argv, "copy") && !slices.Contains(argv, "-c:a") {
		t.Fatalf("mixed clips must not be stream copied: %v", argv)
	}
}

func TestMergeMatchingResolutionsStreamCopy(t *testing.T) {
	orig := probeFunc
	probeFunc = func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video", Width: 1920, Height: 1080}}}, nil
	}
	t.Cleanup(func() { probeFunc = orig })

	proc, enc, _ := newProcessor(t, testsupport.EncoderBehavior{})
	proc.cfg.Merge.ProbeResolution = true
	folder := sequenceFolder(t, "trip", "1.mp4", "2.mp4")

	if _, err := proc.MergeClips(context.Background(), folder, t.TempDir(), Options{}); err != nil {
		t.Fatalf("MergeClips: %v", err)
	}
	argv := enc.Invocations(t)[0]
	if i := slices.Index(argv, "-c"); i < 0 || argv[i+1] != "copy" {
		t.Fatalf("expected stream copy, got %v", argv)
	}
}

func TestRotateInPlace(t *testing.T) {
	proc, enc, _ := newProcessor(t, testsupport.EncoderBehavior{})
	dir := t.TempDir()
	video := filepath.Join(dir, "holiday.mp4")
	if err := os.WriteFile(video, []byte("original"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	res, err := proc.Rotate(context.Background(), video, "", Options{Rotation: encoding.Clockwise})
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if res.Output != video {
		t.Fatalf("output = %s, want %s", res.Output, video)
	}
	data, err := os.ReadFile(video)
	if err != nil || string(data) != "encoded" {
		t.Fatalf("expected replaced source, got %q (%v)", data, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp file left behind: %d entries", len(entries))
	}
	argv := enc.Invocations(t)[0]
	if !slices.Contains(argv, "transpose=1") {
		t.Fatalf("expected clockwise transpose, got %v", argv)
	}
}

func TestAspectRejectsUnknownRatio(t *testing.T) {
	proc, enc, _ := newProcessor(t, testsupport.EncoderBehavior{})
	video := filepath.Join(t.TempDir(), "clip.mp4")
	testsupport.WriteFile(t, video, 64)

	_, err := proc.AdjustAspect(context.Background(), video, "", Options{AspectRatio: "5:3"})
	var cfgErr *encoding.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Kind != encoding.UnsupportedAspectRatio {
		t.Fatalf("expected aspect ratio config error, got %v", err)
	}
	if len(enc.Invocations(t)) != 0 {
		t.Fatal("rejected job must not reach the encoder")
	}
}

func TestVideoItemsExpandsFolders(t *testing.T) {
	dir := testsupport.WriteFiles(t, t.TempDir(), "b.mp4", "a.MOV", "notes.txt")
	items, err := VideoItems(encoding.KindRotate, []string{dir}, []string{".mp4", ".mov"}, "", Options{Rotation: encoding.CounterClockwise})
	if err != nil {
		t.Fatalf("VideoItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if filepath.Base(items[0].Spec.Source) != "a.MOV" || items[1].Index != 1 {
		t.Fatalf("unexpected items: %+v", items)
	}
	if items[0].Spec.Kind != encoding.KindRotate || items[0].Spec.Rotation != encoding.CounterClockwise {
		t.Fatalf("options not carried: %+v", items[0].Spec)
	}
}
