// Package filex holds small path helpers shared by the picker and the
// stage handlers.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileScheme is the local-URI prefix some pickers put in front of paths.
const FileScheme = "file://"

// EnsureSubdDir creates dirName under the current working directory if it
// does not exist and returns its absolute path. An absolute dirName is used
// as is.
func EnsureSubdDir(dirName string) (string, error) {
	dir := dirName
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dirName)
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// NormalizeURI turns a picker URI into a plain filesystem path by stripping
// the file:// scheme and cleaning the result.
func NormalizeURI(uri string) string {
	p := strings.TrimSpace(uri)
	if len(p) >= len(FileScheme) && strings.EqualFold(p[:len(FileScheme)], FileScheme) {
		p = p[len(FileScheme):]
	}
	if p == "" {
		return ""
	}
	return filepath.Clean(p)
}

// SiblingPath places the base name of src into dir with suffix appended,
// e.g. ("/out", "/home/a/photo.jpg", ".enc") -> "/out/photo.jpg.enc".
func SiblingPath(dir, src, suffix string) string {
	return filepath.Join(dir, filepath.Base(src)+suffix)
}
