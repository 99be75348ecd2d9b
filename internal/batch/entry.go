package batch

import (
	"context"

	"github.com/duyyudus/video-tools/internal/encoding"
	"github.com/duyyudus/video-tools/internal/jobrun"
)

// ImageItems builds one images item per folder.
func ImageItems(folders []string, outputDir string, opts Options) []Item {
	return folderItems(encoding.KindImages, folders, outputDir, opts)
}

// MergeItems builds one merge item per folder.
func MergeItems(folders []string, outputDir string, opts Options) []Item {
	return folderItems(encoding.KindMerge, folders, outputDir, opts)
}

func folderItems(kind encoding.Kind, folders []string, outputDir string, opts Options) []Item {
	items := make([]Item, 0, len(folders))
	for i, folder := range folders {
		items = append(items, Item{Index: i, Spec: opts.spec(kind, folder, outputDir)})
	}
	return items
}

// VideoItems expands files and folders into one rotate or aspect item per
// video file. An empty outputDir replaces each source in place.
func VideoItems(kind encoding.Kind, sources []string, extensions []string, outputDir string, opts Options) ([]Item, error) {
	files, err := ExpandVideoSources(sources, extensions)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(files))
	for i, file := range files {
		items = append(items, Item{Index: i, Spec: opts.spec(kind, file, outputDir)})
	}
	return items, nil
}

// ImagesToVideo encodes one image-sequence folder into <outputDir>/<folder>.mp4.
func (p *Processor) ImagesToVideo(ctx context.Context, folder, outputDir string, opts Options) (jobrun.Outcome, error) {
	return p.single(ctx, Item{Spec: opts.spec(encoding.KindImages, folder, outputDir)})
}

// MergeClips concatenates the numbered clips of folder into one video.
func (p *Processor) MergeClips(ctx context.Context, folder, outputDir string, opts Options) (jobrun.Outcome, error) {
	return p.single(ctx, Item{Spec: opts.spec(encoding.KindMerge, folder, outputDir)})
}

// Rotate turns one video a quarter turn. An empty outputDir replaces file.
func (p *Processor) Rotate(ctx context.Context, file, outputDir string, opts Options) (jobrun.Outcome, error) {
	return p.single(ctx, Item{Spec: opts.spec(encoding.KindRotate, file, outputDir)})
}

// AdjustAspect stretches or squashes one video to opts.AspectRatio.
func (p *Processor) AdjustAspect(ctx context.Context, file, outputDir string, opts Options) (jobrun.Outcome, error) {
	return p.single(ctx, Item{Spec: opts.spec(encoding.KindAspect, file, outputDir)})
}

func (p *Processor) single(ctx context.Context, item Item) (jobrun.Outcome, error) {
	summary, err := p.Run(ctx, []Item{item})
	if err != nil {
		return jobrun.Outcome{}, err
	}
	res := summary.Results[0]
	return res.Outcome, res.Err
}
