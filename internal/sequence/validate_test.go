package sequence

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/duyyudus/video-tools/internal/faults"
	"github.com/duyyudus/video-tools/internal/testsupport"
)

func folderOf(t *testing.T, names ...string) Folder {
	t.Helper()
	dir := testsupport.WriteFiles(t, t.TempDir(), names...)
	folder, err := Scan(dir, ScanOptions{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return folder
}

func defectOf(t *testing.T, r Result, kind DefectKind) Defect {
	t.Helper()
	for _, d := range r.Defects {
		if d.Kind == kind {
			return d
		}
	}
	t.Fatalf("expected %s defect, got %+v", kind, r.Defects)
	return Defect{}
}

func TestWellFormedSequencesAreAccepted(t *testing.T) {
	for _, n := range []int{1, 2, 9, 10, 11, 120} {
		names := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			names = append(names, fmt.Sprintf("img_%04d.png", i))
		}
		result := Validate(folderOf(t, names...))
		if !result.Accepted() {
			t.Fatalf("n=%d: expected accepted, got %+v", n, result.Defects)
		}
		if len(result.Entries) != n {
			t.Fatalf("n=%d: expected %d entries, got %d", n, n, len(result.Entries))
		}
		for i, e := range result.Entries {
			if e.Index != i+1 {
				t.Fatalf("n=%d: entry %d has index %d", n, i, e.Index)
			}
		}
		if result.Padding != 4 || result.Extension != ".png" {
			t.Fatalf("n=%d: unexpected inference padding=%d ext=%q", n, result.Padding, result.Extension)
		}
		if result.Err() != nil {
			t.Fatalf("n=%d: accepted result must not carry an error", n)
		}
	}
}

func TestSequenceMayStartAnywhere(t *testing.T) {
	result := Validate(folderOf(t, "f7.png", "f8.png", "f9.png", "f10.png"))
	if !result.Accepted() {
		t.Fatalf("expected accepted, got %+v", result.Defects)
	}
	if result.Padding != 0 {
		t.Fatalf("expected no padding, got %d", result.Padding)
	}
}

func TestMissingIndexIsReported(t *testing.T) {
	const n = 8
	for k := 2; k < n; k++ {
		var names []string
		for i := 1; i <= n; i++ {
			if i != k {
				names = append(names, fmt.Sprintf("s_%03d.jpg", i))
			}
		}
		result := Validate(folderOf(t, names...))
		gap := defectOf(t, result, GapInSequence)
		if !slices.Equal(gap.Indices, []int{k}) {
			t.Fatalf("k=%d: expected gap indices [%d], got %v", k, k, gap.Indices)
		}
		if !strings.Contains(gap.Detail, fmt.Sprintf("missing %d", k)) {
			t.Fatalf("k=%d: detail does not reference k: %q", k, gap.Detail)
		}
	}
}

func TestDuplicateIndexListsEveryPath(t *testing.T) {
	folder := folderOf(t, "a_01.png", "a_02.png", "b_02.png", "a_03.png")
	result := Validate(folder)

	dup := defectOf(t, result, DuplicateIndex)
	if len(dup.Paths) != 2 {
		t.Fatalf("expected 2 duplicate paths, got %v", dup.Paths)
	}
	for _, name := range []string{"a_02.png", "b_02.png"} {
		if !slices.Contains(dup.Paths, filepath.Join(folder.Path, name)) {
			t.Fatalf("expected %s in %v", name, dup.Paths)
		}
	}
	if !slices.Equal(dup.Indices, []int{2}) {
		t.Fatalf("expected duplicate index 2, got %v", dup.Indices)
	}
	defectOf(t, result, GapInSequence)
}

func TestMixedExtensionsScenario(t *testing.T) {
	folder := folderOf(t, "clip_001.mp4", "clip_002.mov")
	result := Validate(folder)
	if result.Accepted() {
		t.Fatal("expected rejection")
	}
	mixed := defectOf(t, result, MixedExtensions)
	for _, name := range []string{"clip_001.mp4", "clip_002.mov"} {
		if !slices.Contains(mixed.Paths, filepath.Join(folder.Path, name)) {
			t.Fatalf("expected %s in %v", name, mixed.Paths)
		}
	}
	if !strings.Contains(mixed.Detail, ".mov x1") || !strings.Contains(mixed.Detail, ".mp4 x1") {
		t.Fatalf("expected per-extension counts, got %q", mixed.Detail)
	}
}

func TestInconsistentPadding(t *testing.T) {
	cases := [][]string{
		{"f_0001.png", "f_02.png", "f_0003.png"},
		{"f_01.png", "f_2.png", "f_03.png"},
	}
	for _, names := range cases {
		result := Validate(folderOf(t, names...))
		pad := defectOf(t, result, InconsistentPadding)
		if len(pad.Paths) != 1 {
			t.Fatalf("%v: expected one offender, got %v", names, pad.Paths)
		}
		if !strings.Contains(pad.Detail, "expected") || !strings.Contains(pad.Detail, "has width") {
			t.Fatalf("%v: detail must name expected vs actual width: %q", names, pad.Detail)
		}
	}
}

func TestUnpaddedOverflowPastPaddedWidthIsFine(t *testing.T) {
	names := make([]string, 0, 12)
	for i := 1; i <= 12; i++ {
		names = append(names, fmt.Sprintf("f_%02d.png", i))
	}
	result := Validate(folderOf(t, names...))
	if !result.Accepted() {
		t.Fatalf("expected accepted, got %+v", result.Defects)
	}

	wide := Validate(folderOf(t, "f_098.png", "f_099.png", "f_100.png", "f_101.png"))
	if !wide.Accepted() {
		t.Fatalf("expected accepted, got %+v", wide.Defects)
	}
}

func TestEmptySourceIncludesUnnumbered(t *testing.T) {
	result := Validate(folderOf(t, "cover.png", "notes.txt"))
	empty := defectOf(t, result, EmptySource)
	if len(empty.Paths) != 2 {
		t.Fatalf("expected unnumbered paths surfaced, got %v", empty.Paths)
	}
	if !strings.Contains(empty.Detail, "2 without a number") {
		t.Fatalf("unexpected detail %q", empty.Detail)
	}
}

func TestEmptyDirectoryIsRejected(t *testing.T) {
	folder, err := Scan(t.TempDir(), ScanOptions{})
	if err != nil {
		t.Fatal(err)
	}
	result := Validate(folder)
	if result.Accepted() {
		t.Fatal("empty folder must be rejected")
	}
	if len(result.Defects) != 1 || result.Defects[0].Kind != EmptySource {
		t.Fatalf("expected only EmptySource, got %+v", result.Defects)
	}
}

func TestAllRulesAggregate(t *testing.T) {
	result := Validate(folderOf(t, "x_0001.png", "x_01.jpg", "x_0001b.png", "x_0005.png"))
	err := result.Err()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := []DefectKind{MixedExtensions, InconsistentPadding, GapInSequence, DuplicateIndex}
	if !slices.Equal(verr.Kinds(), want) {
		t.Fatalf("expected %v, got %v", want, verr.Kinds())
	}
	if !errors.Is(err, faults.ErrValidation) {
		t.Fatal("validation error must match faults.ErrValidation")
	}
	if faults.Classify(err) != faults.KindValidation {
		t.Fatalf("unexpected classification %q", faults.Classify(err))
	}
	if !strings.Contains(err.Error(), "4 defects") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestLargeGapIsSummarized(t *testing.T) {
	result := Validate(folderOf(t, "f1.png", "f100.png"))
	gap := defectOf(t, result, GapInSequence)
	if !strings.Contains(gap.Detail, "and 78 more") {
		t.Fatalf("expected summarized gap, got %q", gap.Detail)
	}
	if len(gap.Indices) != 98 {
		t.Fatalf("expected 98 recorded indices, got %d", len(gap.Indices))
	}
}

func TestUnnumberedDoesNotAffectAcceptance(t *testing.T) {
	result := Validate(folderOf(t, "f1.png", "f2.png", "thumbs.db"))
	if !result.Accepted() {
		t.Fatalf("expected accepted, got %+v", result.Defects)
	}
	if len(result.Unnumbered) != 1 {
		t.Fatalf("expected unnumbered warning, got %v", result.Unnumbered)
	}
}
