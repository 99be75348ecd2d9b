package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/duyyudus/video-tools/internal/sequence"
	"github.com/duyyudus/video-tools/internal/staging"
)

// minLinkWidth is the narrowest index width used for link names.
const minLinkWidth = 4

// Builder creates scratch artifacts under Root.
type Builder struct {
	Root string
}

// Workspace describes the artifacts produced for one job.
type Workspace struct {
	// Dir holds the numbered links for image sequences.
	Dir string
	// Pattern is the printf-style input pattern for the encoder, e.g. <Dir>/%04d.png.
	Pattern     string
	StartNumber int
	Names       []string
	// Manifest is the concat demuxer listing for clip merges.
	Manifest string
	// Copied is set when the platform refused symlinks and files were copied.
	Copied bool
}

// CleanupPaths lists what the runner must remove after the job.
func (w Workspace) CleanupPaths() []string {
	var paths []string
	if w.Dir != "" {
		paths = append(paths, w.Dir)
	}
	if w.Manifest != "" {
		paths = append(paths, w.Manifest)
	}
	return paths
}

// CheckOutside fails when the scratch root lives inside outputDir.
func (b Builder) CheckOutside(outputDir string) error {
	if strings.TrimSpace(outputDir) == "" {
		return nil
	}
	root, err := filepath.Abs(b.Root)
	if err != nil {
		return err
	}
	out, err := filepath.Abs(outputDir)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(out, root)
	if err != nil {
		return nil
	}
	if rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)) {
		return fmt.Errorf("scratch directory %s must not be inside output directory %s", root, out)
	}
	return nil
}

func (b Builder) ensureRoot() error {
	if strings.TrimSpace(b.Root) == "" {
		return errors.New("workspace: scratch root not configured")
	}
	if err := os.MkdirAll(b.Root, 0o755); err != nil {
		return fmt.Errorf("create scratch root %s: %w", b.Root, err)
	}
	return nil
}

func accepted(result sequence.Result) error {
	if err := result.Err(); err != nil {
		return err
	}
	if len(result.Entries) == 0 {
		return errors.New("workspace: no entries to link")
	}
	return nil
}

// Links creates a fresh seq-* directory under Root populated with numbered
// links to result's entries. On error the returned Workspace still names the
// directory so the caller can clean it up.
func (b Builder) Links(ctx context.Context, result sequence.Result) (Workspace, error) {
	if err := accepted(result); err != nil {
		return Workspace{}, err
	}
	if err := b.ensureRoot(); err != nil {
		return Workspace{}, err
	}
	dir, err := os.MkdirTemp(b.Root, staging.SequencePrefix+"*")
	if err != nil {
		return Workspace{}, fmt.Errorf("create workspace: %w", err)
	}
	ws, err := linksInto(ctx, dir, result)
	ws.Dir = dir
	return ws, err
}

// Manifest writes a concat-*.txt listing of result's entries under Root.
func (b Builder) Manifest(ctx context.Context, result sequence.Result) (Workspace, error) {
	if err := accepted(result); err != nil {
		return Workspace{}, err
	}
	if err := ctx.Err(); err != nil {
		return Workspace{}, err
	}
	if err := b.ensureRoot(); err != nil {
		return Workspace{}, err
	}
	file, err := os.CreateTemp(b.Root, staging.ManifestPrefix+"*.txt")
	if err != nil {
		return Workspace{}, fmt.Errorf("create manifest: %w", err)
	}
	ws := Workspace{Manifest: file.Name()}
	if _, err := file.Write(RenderManifest(result.Entries)); err != nil {
		_ = file.Close()
		return ws, fmt.Errorf("write manifest %s: %w", ws.Manifest, err)
	}
	if err := file.Close(); err != nil {
		return ws, fmt.Errorf("close manifest %s: %w", ws.Manifest, err)
	}
	return ws, nil
}

// RenderManifest returns the concat demuxer listing for entries in order.
func RenderManifest(entries []sequence.Entry) []byte {
	var buf strings.Builder
	for _, e := range entries {
		buf.WriteString("file '")
		buf.WriteString(strings.ReplaceAll(e.Path, "'", `'\''`))
		buf.WriteString("'\n")
	}
	return []byte(buf.String())
}
