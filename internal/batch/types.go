package batch

import (
	"time"

	"github.com/duyyudus/video-tools/internal/encoding"
	"github.com/duyyudus/video-tools/internal/history"
	"github.com/duyyudus/video-tools/internal/jobrun"
)

// Item is one unit of batch work.
type Item struct {
	Index int
	Spec  encoding.JobSpec
}

// Result is the settled state of one item.
type Result struct {
	Item     Item
	Status   history.Status
	Output   string
	// Command is the encoder invocation, set once the job compiled.
	Command  string
	Outcome  jobrun.Outcome
	Err      error
	Warnings []string
	Duration time.Duration
}

// Observer receives job boundary notifications. Items cancelled before they
// start produce no callbacks.
type Observer interface {
	JobStarted(Item)
	JobFinished(Item, Result)
}

// ObserverFuncs adapts plain functions to Observer.
type ObserverFuncs struct {
	Started  func(Item)
	Finished func(Item, Result)
}

func (o ObserverFuncs) JobStarted(item Item) {
	if o.Started != nil {
		o.Started(item)
	}
}

func (o ObserverFuncs) JobFinished(item Item, res Result) {
	if o.Finished != nil {
		o.Finished(item, res)
	}
}

type nopObserver struct{}

func (nopObserver) JobStarted(Item)          {}
func (nopObserver) JobFinished(Item, Result) {}

// Summary collects every result of one batch run.
type Summary struct {
	RunID    string
	Results  []Result
	Duration time.Duration
}

// Count returns how many results ended in status.
func (s Summary) Count(status history.Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// OK reports whether every item succeeded.
func (s Summary) OK() bool {
	return len(s.Results) > 0 && s.Count(history.StatusSucceeded) == len(s.Results)
}

// Options are the per-request choices shared by the entry points.
type Options struct {
	Codec        encoding.Codec
	Preset       string
	Resolution   string
	FrameRate    int
	Rotation     encoding.Rotation
	AspectRatio  string
	Acceleration bool
	Container    string
}

func (o Options) spec(kind encoding.Kind, source, outputDir string) encoding.JobSpec {
	return encoding.JobSpec{
		Kind:         kind,
		Source:       source,
		OutputDir:    outputDir,
		Codec:        o.Codec,
		Preset:       o.Preset,
		Resolution:   o.Resolution,
		FrameRate:    o.FrameRate,
		Rotation:     o.Rotation,
		AspectRatio:  o.AspectRatio,
		Acceleration: o.Acceleration,
		Container:    o.Container,
	}
}
