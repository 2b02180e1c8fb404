// internal/util/util.go
package util

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// ComputeBaseHref calculates the relative path to the site root
// so that CSS/JS links work correctly for pages at any depth.
// For example, a page at posts/a/b.html would get a BaseHref of "../../".
func ComputeBaseHref(relPath string) string {
	dir := filepath.Dir(filepath.FromSlash(relPath))
	if dir == "." {
		return ""
	}
	depth := strings.Count(dir, string(os.PathSeparator)) + 1
	return strings.Repeat("../", depth)
}

// WriteFile replaces path with data in one step: readers see either the old
// file or the complete new one, never a truncated write.
func WriteFile(path string, data []byte) error {
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return err
	}
	// atomic creates its temp file with 0600.
	return os.Chmod(path, 0644)
}

// URLPath converts an OS path into a forward-slash URL path segment.
func URLPath(p string) string {
	return strings.ReplaceAll(filepath.ToSlash(p), `\`, "/")
}
