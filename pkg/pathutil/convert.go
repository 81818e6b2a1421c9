// Package pathutil converts between the absolute paths the watcher tracks and the
// root-relative, slash-separated paths that globs and users see.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts absPath to a path relative to rootDir. Paths that are already
// relative, that lie outside rootDir, or that cannot be converted are returned as is.
//
//	ToRelative("/inbox/pages/a.json", "/inbox") → "pages/a.json"
//	ToRelative("/elsewhere/a.json", "/inbox")   → "/elsewhere/a.json"
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" || !filepath.IsAbs(absPath) {
		return absPath
	}
	rel, err := filepath.Rel(filepath.Clean(rootDir), filepath.Clean(absPath))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return absPath
	}
	return rel
}

// GlobPath returns path relative to rootDir with forward slashes, the form include
// and exclude globs are written against.
func GlobPath(path, rootDir string) string {
	return filepath.ToSlash(ToRelative(path, rootDir))
}
