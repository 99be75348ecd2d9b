package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"testing"

	"github.com/duyyudus/video-tools/internal/faults"
	"github.com/duyyudus/video-tools/internal/sequence"
	"github.com/duyyudus/video-tools/internal/testsupport"
)

func acceptedFolder(t *testing.T, names ...string) sequence.Result {
	t.Helper()
	dir := testsupport.WriteFiles(t, t.TempDir(), names...)
	folder, err := sequence.Scan(dir, sequence.ScanOptions{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	result := sequence.Validate(folder)
	if !result.Accepted() {
		t.Fatalf("fixture not accepted: %v", result.Err())
	}
	return result
}

func TestLinkWidth(t *testing.T) {
	cases := []struct{ padding, count, want int }{
		{0, 3, 4},
		{2, 10, 4},
		{6, 10, 6},
		{0, 123456, 6},
	}
	for _, tc := range cases {
		if got := LinkWidth(tc.padding, tc.count); got != tc.want {
			t.Fatalf("LinkWidth(%d, %d) = %d, want %d", tc.padding, tc.count, got, tc.want)
		}
	}
}

func TestLinksCreatesNumberedSymlinks(t *testing.T) {
	result := acceptedFolder(t, "shot7.png", "shot8.png", "shot9.png")
	builder := Builder{Root: t.TempDir()}

	ws, err := builder.Links(context.Background(), result)
	if err != nil {
		t.Fatalf("Links: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(ws.Dir), "seq-") {
		t.Fatalf("unexpected workspace dir %s", ws.Dir)
	}
	if ws.Pattern != filepath.Join(ws.Dir, "%04d.png") || ws.StartNumber != 1 {
		t.Fatalf("unexpected pattern %q start %d", ws.Pattern, ws.StartNumber)
	}
	want := []string{"0001.png", "0002.png", "0003.png"}
	if !slices.Equal(ws.Names, want) {
		t.Fatalf("unexpected names %v", ws.Names)
	}
	for i, name := range want {
		target, err := os.Readlink(filepath.Join(ws.Dir, name))
		if err != nil {
			t.Fatalf("readlink %s: %v", name, err)
		}
		if target != result.Entries[i].Path {
			t.Fatalf("%s points at %s, want %s", name, target, result.Entries[i].Path)
		}
	}
	if ws.Copied {
		t.Fatal("did not expect copy fallback")
	}
	if !slices.Equal(ws.CleanupPaths(), []string{ws.Dir}) {
		t.Fatalf("unexpected cleanup paths %v", ws.CleanupPaths())
	}
}

func TestLinksIntoIsIdempotent(t *testing.T) {
	result := acceptedFolder(t, "a_01.jpg", "a_02.jpg")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "0099.jpg"), []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	first, err := LinksInto(dir, result)
	if err != nil {
		t.Fatalf("first LinksInto: %v", err)
	}
	second, err := LinksInto(dir, result)
	if err != nil {
		t.Fatalf("second LinksInto: %v", err)
	}
	if !slices.Equal(first.Names, second.Names) {
		t.Fatalf("names differ: %v vs %v", first.Names, second.Names)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if !slices.Equal(names, second.Names) {
		t.Fatalf("expected stale entries removed, dir has %v", names)
	}
}

func TestLinksFallsBackToCopy(t *testing.T) {
	orig := symlinkFunc
	t.Cleanup(func() { symlinkFunc = orig })
	symlinkFunc = func(oldname, newname string) error {
		return &os.LinkError{Op: "symlink", Old: oldname, New: newname, Err: syscall.EPERM}
	}

	result := acceptedFolder(t, "f1.tif", "f2.tif")
	ws, err := Builder{Root: t.TempDir()}.Links(context.Background(), result)
	if err != nil {
		t.Fatalf("Links: %v", err)
	}
	if !ws.Copied {
		t.Fatal("expected copy fallback")
	}
	info, err := os.Lstat(filepath.Join(ws.Dir, "0001.tif"))
	if err != nil {
		t.Fatal(err)
	}
	if !info.Mode().IsRegular() {
		t.Fatalf("expected regular file, got %v", info.Mode())
	}
}

func TestLinksRejectsDefectiveResult(t *testing.T) {
	dir := testsupport.WriteFiles(t, t.TempDir(), "clip_001.mp4", "clip_002.mov")
	folder, err := sequence.Scan(dir, sequence.ScanOptions{})
	if err != nil {
		t.Fatal(err)
	}
	root := t.TempDir()
	builder := Builder{Root: root}

	if _, err := builder.Links(context.Background(), sequence.Validate(folder)); !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := builder.Manifest(context.Background(), sequence.Validate(folder)); !errors.Is(err, faults.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("no scratch artifact may be created, found %d", len(entries))
	}
}

func TestManifestIsIdempotentAndQuoted(t *testing.T) {
	result := acceptedFolder(t, "clip_001.mp4", "clip_002.mp4", "bob's clip_003.mp4")
	builder := Builder{Root: t.TempDir()}

	first, err := builder.Manifest(context.Background(), result)
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}
	second, err := builder.Manifest(context.Background(), result)
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}
	a, err := os.ReadFile(first.Manifest)
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(second.Manifest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) || !bytes.Equal(a, RenderManifest(result.Entries)) {
		t.Fatalf("manifest not idempotent:\n%s\n%s", a, b)
	}

	lines := strings.Split(strings.TrimSuffix(string(a), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %q", a)
	}
	quoted := strings.ReplaceAll(result.Entries[2].Path, "'", `'\''`)
	if lines[2] != fmt.Sprintf("file '%s'", quoted) {
		t.Fatalf("unexpected escaped line %q", lines[2])
	}
	if !strings.HasPrefix(filepath.Base(first.Manifest), "concat-") {
		t.Fatalf("unexpected manifest name %s", first.Manifest)
	}
}

func TestCheckOutside(t *testing.T) {
	out := t.TempDir()
	if err := (Builder{Root: filepath.Join(out, "scratch")}).CheckOutside(out); err == nil {
		t.Fatal("expected nested scratch root to be rejected")
	}
	if err := (Builder{Root: out}).CheckOutside(out); err == nil {
		t.Fatal("expected identical scratch root to be rejected")
	}
	if err := (Builder{Root: t.TempDir()}).CheckOutside(out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Builder{Root: out + "-scratch"}).CheckOutside(out); err != nil {
		t.Fatalf("sibling with shared prefix must pass: %v", err)
	}
}
