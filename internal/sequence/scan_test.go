package sequence

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/duyyudus/video-tools/internal/testsupport"
)

func TestParseEntry(t *testing.T) {
	cases := []struct {
		name   string
		ok     bool
		index  int
		width  int
		padded bool
		ext    string
	}{
		{"img_0001.png", true, 1, 4, true, ".png"},
		{"frame10.JPG", true, 10, 2, false, ".jpg"},
		{"0.tif", true, 0, 1, false, ".tif"},
		{"shot2_take7.png", true, 2, 1, false, ".png"},
		{"cover.png", false, 0, 0, false, ""},
		{"99999999999999999999999.png", false, 0, 0, false, ""},
		{"clip.001", false, 0, 0, false, ""},
	}
	for _, tc := range cases {
		entry, ok := ParseEntry(filepath.Join("/src", tc.name))
		if ok != tc.ok {
			t.Fatalf("%s: ok=%v want %v", tc.name, ok, tc.ok)
		}
		if !ok {
			continue
		}
		if entry.Index != tc.index || entry.Width != tc.width || entry.Padded != tc.padded || entry.Ext != tc.ext {
			t.Fatalf("%s: unexpected entry %+v", tc.name, entry)
		}
	}
}

func TestScanOrdersNumerically(t *testing.T) {
	dir := testsupport.WriteFiles(t, t.TempDir(), "f10.png", "f9.png", "f1.png", "f2.png")

	folder, err := Scan(dir, ScanOptions{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	got := make([]int, 0, len(folder.Entries))
	for _, e := range folder.Entries {
		got = append(got, e.Index)
	}
	if !slices.Equal(got, []int{1, 2, 9, 10}) {
		t.Fatalf("expected numeric order, got %v", got)
	}
	for _, e := range folder.Entries {
		if !filepath.IsAbs(e.Path) {
			t.Fatalf("expected absolute paths, got %s", e.Path)
		}
	}
}

func TestScanClassifiesFiles(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFiles(t, dir, "a_001.png", "a_002.png", "notes.png", "a_003.txt", ".hidden_004.png")
	if err := os.Mkdir(filepath.Join(dir, "sub_005"), 0o755); err != nil {
		t.Fatal(err)
	}

	folder, err := Scan(dir, ScanOptions{Extensions: []string{".png"}})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(folder.Entries) != 2 {
		t.Fatalf("expected 2 numbered entries, got %+v", folder.Entries)
	}
	if len(folder.Unnumbered) != 1 || filepath.Base(folder.Unnumbered[0]) != "notes.png" {
		t.Fatalf("expected notes.png to be unnumbered, got %v", folder.Unnumbered)
	}
	if len(folder.Skipped) != 1 || filepath.Base(folder.Skipped[0]) != "a_003.txt" {
		t.Fatalf("expected a_003.txt to be skipped, got %v", folder.Skipped)
	}
}

func TestScanMissingDirectoryIsEmpty(t *testing.T) {
	folder, err := Scan(filepath.Join(t.TempDir(), "nope"), ScanOptions{})
	if err != nil {
		t.Fatalf("missing directory must not error: %v", err)
	}
	if len(folder.Entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(folder.Entries))
	}
}

func TestScanRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file_01.png")
	testsupport.WriteFile(t, path, 1)
	if _, err := Scan(path, ScanOptions{}); err == nil {
		t.Fatal("expected error when scanning a regular file")
	}
}

func TestSortEntriesBreaksTiesByName(t *testing.T) {
	entries := []Entry{
		{Path: "/s/b_1.png", Index: 1},
		{Path: "/s/a_01.png", Index: 1},
		{Path: "/s/c_0.png", Index: 0},
	}
	SortEntries(entries)
	want := []string{"c_0.png", "a_01.png", "b_1.png"}
	for i, e := range entries {
		if e.Name() != want[i] {
			t.Fatalf("position %d: got %s want %s", i, e.Name(), want[i])
		}
	}
}
