package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/duyyudus/video-tools/internal/fileutil"
	"github.com/duyyudus/video-tools/internal/sequence"
)

// symlinkFunc is swapped in tests to simulate filesystems without symlinks.
var symlinkFunc = os.Symlink

// LinkWidth is the index width used for link names: the inferred padding,
// widened to fit the entry count, never below four digits.
func LinkWidth(padding, count int) int {
	return max(padding, len(strconv.Itoa(count)), minLinkWidth)
}

// LinkName returns the link name for the 1-based position i.
func LinkName(width, i int, ext string) string {
	return fmt.Sprintf("%0*d%s", width, i, ext)
}

// LinksInto populates an existing dir with numbered links, replacing links
// from a previous run so the result is identical every time.
func LinksInto(dir string, result sequence.Result) (Workspace, error) {
	if err := accepted(result); err != nil {
		return Workspace{}, err
	}
	ws, err := linksInto(context.Background(), dir, result)
	ws.Dir = dir
	return ws, err
}

func linksInto(ctx context.Context, dir string, result sequence.Result) (Workspace, error) {
	width := LinkWidth(result.Padding, len(result.Entries))
	ws := Workspace{
		Pattern:     filepath.Join(dir, "%0"+strconv.Itoa(width)+"d"+result.Extension),
		StartNumber: 1,
		Names:       make([]string, 0, len(result.Entries)),
	}

	wanted := make(map[string]struct{}, len(result.Entries))
	for i, entry := range result.Entries {
		if err := ctx.Err(); err != nil {
			return ws, err
		}
		name := LinkName(width, i+1, result.Extension)
		wanted[name] = struct{}{}
		target := filepath.Join(dir, name)

		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return ws, fmt.Errorf("replace %s: %w", target, err)
		}
		copied, err := link(entry.Path, target)
		if err != nil {
			return ws, err
		}
		ws.Copied = ws.Copied || copied
		ws.Names = append(ws.Names, name)
	}

	existing, err := os.ReadDir(dir)
	if err != nil {
		return ws, fmt.Errorf("read workspace %s: %w", dir, err)
	}
	for _, de := range existing {
		if _, ok := wanted[de.Name()]; ok {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, de.Name())); err != nil {
			return ws, fmt.Errorf("remove stale link %s: %w", de.Name(), err)
		}
	}
	return ws, nil
}

// link symlinks target to source, copying when symlinks are unsupported.
func link(source, target string) (bool, error) {
	err := symlinkFunc(source, target)
	if err == nil {
		return false, nil
	}
	if !symlinkUnsupported(err) {
		return false, fmt.Errorf("link %s -> %s: %w", target, source, err)
	}
	if err := fileutil.CopyFileVerified(source, target); err != nil {
		return true, fmt.Errorf("copy %s -> %s: %w", source, target, err)
	}
	return true, nil
}

func symlinkUnsupported(err error) bool {
	return errors.Is(err, errors.ErrUnsupported) ||
		errors.Is(err, syscall.EPERM) ||
		errors.Is(err, syscall.ENOTSUP) ||
		errors.Is(err, syscall.EOPNOTSUPP) ||
		errors.Is(err, syscall.ENOSYS)
}
