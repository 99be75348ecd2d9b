package sequence

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Entry is one numbered file of a folder.
type Entry struct {
	Path   string
	Index  int
	Width  int
	Padded bool
	Ext    string
}

// Name returns the file's base name.
func (e Entry) Name() string {
	return filepath.Base(e.Path)
}

// Folder is the scan of one source directory. It is never mutated after
// validation; re-scan to observe changes.
type Folder struct {
	Path       string
	Entries    []Entry
	Unnumbered []string
	Skipped    []string
}

// ScanOptions restricts which files participate in a scan.
type ScanOptions struct {
	// Extensions is the allowed set (lower-case, with dot). Empty accepts any.
	Extensions []string
}

func (o ScanOptions) allows(ext string) bool {
	return len(o.Extensions) == 0 || slices.Contains(o.Extensions, ext)
}

// Scan reads dir and returns its numbered entries ordered by index. An empty
// or missing directory yields an empty Folder; validation reports it.
func Scan(dir string, opts ScanOptions) (Folder, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Folder{}, fmt.Errorf("resolve %s: %w", dir, err)
	}
	folder := Folder{Path: abs}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return folder, nil
		}
		return Folder{}, fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return Folder{}, fmt.Errorf("scan %s: not a directory", abs)
	}

	dirEntries, err := os.ReadDir(abs)
	if err != nil {
		return Folder{}, fmt.Errorf("read %s: %w", abs, err)
	}

	for _, de := range dirEntries {
		name := de.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(abs, name)
		if isDir(de, path) {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if !opts.allows(ext) {
			folder.Skipped = append(folder.Skipped, path)
			continue
		}
		entry, ok := ParseEntry(path)
		if !ok {
			folder.Unnumbered = append(folder.Unnumbered, path)
			continue
		}
		folder.Entries = append(folder.Entries, entry)
	}

	SortEntries(folder.Entries)
	return folder, nil
}

func isDir(de fs.DirEntry, path string) bool {
	if de.IsDir() {
		return true
	}
	if de.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// ParseEntry extracts the index from the first digit run of path's stem.
// Stems without digits, or with a run too large for int, are unnumbered.
func ParseEntry(path string) (Entry, bool) {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	run := firstDigitRun(strings.TrimSuffix(name, ext))
	if run == "" {
		return Entry{}, false
	}
	index, err := strconv.Atoi(run)
	if err != nil {
		return Entry{}, false
	}
	return Entry{
		Path:   path,
		Index:  index,
		Width:  len(run),
		Padded: len(run) > 1 && run[0] == '0',
		Ext:    strings.ToLower(ext),
	}, true
}

func firstDigitRun(s string) string {
	start := -1
	for i := 0; i < len(s); i++ {
		digit := s[i] >= '0' && s[i] <= '9'
		switch {
		case digit && start < 0:
			start = i
		case !digit && start >= 0:
			return s[start:i]
		}
	}
	if start >= 0 {
		return s[start:]
	}
	return ""
}

// SortEntries orders entries by index, breaking ties by file name.
func SortEntries(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(a.Index, b.Index); c != 0 {
			return c
		}
		return strings.Compare(a.Name(), b.Name())
	})
}
