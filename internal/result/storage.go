package result

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// DefaultPattern matches Serpent result files (foo_res.m, res_10.m).
const DefaultPattern = "*.m"

// ListFiles returns the absolute paths of the regular files in dir whose
// base name matches pattern, sorted by name. Symlinks are followed; dangling
// links and other entries are ignored.
func ListFiles(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("bad file pattern %q: %w", pattern, err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving run dir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, abs)
		}
		return nil, fmt.Errorf("reading run dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNotFound, abs)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("reading run dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if ok, _ := filepath.Match(pattern, e.Name()); !ok {
			continue
		}
		path := filepath.Join(abs, e.Name())
		mode := e.Type()
		if mode&fs.ModeSymlink != 0 {
			target, err := os.Stat(path)
			if err != nil {
				continue
			}
			mode = target.Mode()
		}
		if mode.IsRegular() {
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files, nil
}
