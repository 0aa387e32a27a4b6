package archive

import (
	"os"
	"path/filepath"
	"strings"

	perr "sift/internal/platform/errors"
)

// DefaultExtensions are matched when scanning a directory
var DefaultExtensions = []string{".zst"}

// Discover resolves an input path to the files to process
// A file is returned as-is; a directory is scanned non-recursively, sorted by name,
// keeping entries whose extension matches exts (case-insensitive)
func Discover(path string, exts []string) ([]string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, perr.FileIO(err, "stat", path)
	}
	if !fi.IsDir() {
		return []string{path}, nil
	}
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	entries, err := os.ReadDir(path) // sorted by filename
	if err != nil {
		return nil, perr.FileIO(err, "readdir", path)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !hasExt(e.Name(), exts) {
			continue
		}
		out = append(out, filepath.Join(path, e.Name()))
	}
	if len(out) == 0 {
		return nil, perr.NotFoundf("no input files matching %v in %s", exts, path)
	}
	return out, nil
}

func hasExt(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if strings.HasSuffix(lower, e) {
			return true
		}
	}
	return false
}
