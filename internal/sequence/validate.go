package sequence

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const (
	// maxListedIndices caps how many missing indices a gap detail spells out.
	maxListedIndices = 20
	// maxRecordedIndices caps Defect.Indices for pathological gaps.
	maxRecordedIndices = 1000
)

// Result is the outcome of validating a Folder. It is Accepted when Defects
// is empty.
type Result struct {
	Folder  string
	Entries []Entry
	// Padding is the zero-padded digit width, or 0 when no entry is padded.
	Padding    int
	Extension  string
	Unnumbered []string
	Skipped    []string
	Defects    []Defect
}

// Accepted reports whether the folder passed every rule.
func (r Result) Accepted() bool {
	return len(r.Defects) == 0
}

// Err returns a *ValidationError when the result was rejected.
func (r Result) Err() error {
	if r.Accepted() {
		return nil
	}
	return &ValidationError{Folder: r.Folder, Defects: append([]Defect(nil), r.Defects...)}
}

// Validate applies every rule to folder, in order, without stopping at the
// first failure.
func Validate(folder Folder) Result {
	entries := append([]Entry(nil), folder.Entries...)
	SortEntries(entries)

	result := Result{
		Folder:     folder.Path,
		Entries:    entries,
		Unnumbered: append([]string(nil), folder.Unnumbered...),
		Skipped:    append([]string(nil), folder.Skipped...),
	}

	if d, ok := checkEmpty(folder); ok {
		result.Defects = append(result.Defects, d)
	}
	ext, d, ok := checkExtensions(entries)
	result.Extension = ext
	if ok {
		result.Defects = append(result.Defects, d)
	}
	padding, d, ok := checkPadding(entries)
	result.Padding = padding
	if ok {
		result.Defects = append(result.Defects, d)
	}
	result.Defects = append(result.Defects, checkContiguity(entries)...)
	return result
}

func checkEmpty(folder Folder) (Defect, bool) {
	if len(folder.Entries) > 0 {
		return Defect{}, false
	}
	detail := fmt.Sprintf("no numbered files in %s", folder.Path)
	var extra []string
	if n := len(folder.Unnumbered); n > 0 {
		extra = append(extra, fmt.Sprintf("%d without a number", n))
	}
	if n := len(folder.Skipped); n > 0 {
		extra = append(extra, fmt.Sprintf("%d with an unsupported extension", n))
	}
	if len(extra) > 0 {
		detail += " (" + strings.Join(extra, ", ") + ")"
	}
	paths := append(append([]string(nil), folder.Unnumbered...), folder.Skipped...)
	return Defect{Kind: EmptySource, Detail: detail, Paths: paths}, true
}

func checkExtensions(entries []Entry) (string, Defect, bool) {
	counts := make(map[string]int)
	for _, e := range entries {
		counts[e.Ext]++
	}
	exts := make([]string, 0, len(counts))
	for ext := range counts {
		exts = append(exts, ext)
	}
	slices.Sort(exts)

	dominant := ""
	for _, ext := range exts {
		if dominant == "" || counts[ext] > counts[dominant] {
			dominant = ext
		}
	}
	if len(exts) <= 1 {
		return dominant, Defect{}, false
	}

	parts := make([]string, 0, len(exts))
	for _, ext := range exts {
		label := ext
		if label == "" {
			label = "(none)"
		}
		parts = append(parts, fmt.Sprintf("%s x%d", label, counts[ext]))
	}
	return dominant, Defect{
		Kind:   MixedExtensions,
		Detail: fmt.Sprintf("expected one extension, found %d: %s", len(exts), strings.Join(parts, ", ")),
		Paths:  entryPaths(entries),
	}, true
}

// checkPadding infers the padded width from entries with a leading zero.
// Every padded entry must use that width, and unpadded entries may not be
// narrower than it.
func checkPadding(entries []Entry) (int, Defect, bool) {
	widths := make(map[int]int)
	for _, e := range entries {
		if e.Padded {
			widths[e.Width]++
		}
	}
	if len(widths) == 0 {
		return 0, Defect{}, false
	}
	expected := 0
	for w, n := range widths {
		if expected == 0 || n > widths[expected] || (n == widths[expected] && w < expected) {
			expected = w
		}
	}

	var offenders []Entry
	for _, e := range entries {
		if (e.Padded && e.Width != expected) || (!e.Padded && e.Width < expected) {
			offenders = append(offenders, e)
		}
	}
	if len(offenders) == 0 {
		return expected, Defect{}, false
	}

	parts := make([]string, 0, len(offenders))
	for _, e := range offenders {
		parts = append(parts, fmt.Sprintf("%s has width %d", e.Name(), e.Width))
	}
	return expected, Defect{
		Kind:   InconsistentPadding,
		Detail: fmt.Sprintf("expected %d-digit padding: %s", expected, strings.Join(parts, ", ")),
		Paths:  entryPaths(offenders),
	}, true
}

func checkContiguity(entries []Entry) []Defect {
	if len(entries) < 2 {
		return nil
	}

	var (
		missing    []int
		missCount  int
		gapPaths   []string
		gapNotes   []string
		dupIndices []int
		dupPaths   []string
		dupNotes   []string
	)
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		step := cur.Index - prev.Index
		switch {
		case step == 1:
			continue
		case step == 0:
			if len(dupIndices) == 0 || dupIndices[len(dupIndices)-1] != cur.Index {
				dupIndices = append(dupIndices, cur.Index)
				group := sameIndex(entries, i-1)
				names := make([]string, 0, len(group))
				for _, e := range group {
					dupPaths = append(dupPaths, e.Path)
					names = append(names, e.Name())
				}
				dupNotes = append(dupNotes, fmt.Sprintf("index %d shared by %s", cur.Index, strings.Join(names, ", ")))
				gapNotes = append(gapNotes, fmt.Sprintf("index %d repeats", cur.Index))
			}
		default:
			missCount += step - 1
			for k := prev.Index + 1; k < cur.Index && len(missing) < maxRecordedIndices; k++ {
				missing = append(missing, k)
			}
			gapNotes = append(gapNotes, fmt.Sprintf("between %s and %s", prev.Name(), cur.Name()))
		}
		gapPaths = appendUnique(gapPaths, prev.Path, cur.Path)
	}

	var defects []Defect
	if len(gapNotes) > 0 {
		detail := "indices are not contiguous"
		if missCount > 0 {
			detail += ": missing " + formatIndices(missing, missCount)
		}
		detail += " (" + strings.Join(gapNotes, "; ") + ")"
		defects = append(defects, Defect{Kind: GapInSequence, Detail: detail, Paths: gapPaths, Indices: missing})
	}
	if len(dupIndices) > 0 {
		defects = append(defects, Defect{
			Kind:    DuplicateIndex,
			Detail:  strings.Join(dupNotes, "; "),
			Paths:   dupPaths,
			Indices: dupIndices,
		})
	}
	return defects
}

// sameIndex returns the run of entries starting at i that share its index.
func sameIndex(entries []Entry, i int) []Entry {
	j := i
	for j < len(entries) && entries[j].Index == entries[i].Index {
		j++
	}
	return entries[i:j]
}

func formatIndices(indices []int, total int) string {
	shown := indices
	if len(shown) > maxListedIndices {
		shown = shown[:maxListedIndices]
	}
	parts := make([]string, 0, len(shown)+1)
	for _, k := range shown {
		parts = append(parts, strconv.Itoa(k))
	}
	if rest := total - len(shown); rest > 0 {
		parts = append(parts, fmt.Sprintf("and %d more", rest))
	}
	return strings.Join(parts, ", ")
}

func entryPaths(entries []Entry) []string {
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	return paths
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}

// Names returns the base names of the accepted entries.
func (r Result) Names() []string {
	names := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		names = append(names, filepath.Base(e.Path))
	}
	return names
}
