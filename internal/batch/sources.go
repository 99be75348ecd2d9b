package batch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/duyyudus/video-tools/internal/config"
	"github.com/duyyudus/video-tools/internal/faults"
)

// ExpandVideoSources resolves a mix of video files and folders into absolute
// file paths. Folders contribute their matching files sorted by name; explicit
// files must carry an allowed extension. Duplicates keep their first position.
func ExpandVideoSources(paths []string, extensions []string) ([]string, error) {
	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}
	matches := func(name string) bool {
		_, ok := allowed[strings.ToLower(filepath.Ext(name))]
		return ok
	}

	var (
		out  []string
		seen = make(map[string]struct{})
		errs []error
	)
	add := func(path string) {
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}

	for _, raw := range paths {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		expanded, err := config.ExpandPath(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		info, err := os.Stat(abs)
		if err != nil {
			errs = append(errs, faults.Wrap(faults.ErrValidation, "batch", "expand sources", abs+" does not exist", err))
			continue
		}
		if info.IsDir() {
			files, err := folderVideos(abs, matches)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			for _, f := range files {
				add(f)
			}
			continue
		}
		if !info.Mode().IsRegular() {
			errs = append(errs, faults.Wrap(faults.ErrValidation, "batch", "expand sources", abs+" is not a regular file", nil))
			continue
		}
		if !matches(abs) {
			errs = append(errs, faults.Wrap(faults.ErrValidation, "batch", "expand sources",
				fmt.Sprintf("%s does not have a supported extension (allowed: %s)", abs, strings.Join(extensions, ", ")), nil))
			continue
		}
		add(abs)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if len(out) == 0 {
		return nil, faults.Wrap(faults.ErrValidation, "batch", "expand sources", "no video files with supported extensions were found", nil)
	}
	return out, nil
}

func folderVideos(dir string, matches func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !entry.Type().IsRegular() {
			continue
		}
		if matches(name) {
			files = append(files, filepath.Join(dir, name))
		}
	}
	slices.Sort(files)
	return files, nil
}
