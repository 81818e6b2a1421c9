package pathutil

import (
	"path/filepath"
	"runtime"
	"testing"
)

func TestToRelative(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}
	tests := []struct {
		name     string
		absPath  string
		rootDir  string
		expected string
	}{
		{name: "nested file", absPath: "/inbox/pages/a.json", rootDir: "/inbox", expected: "pages/a.json"},
		{name: "root level file", absPath: "/inbox/a.json", rootDir: "/inbox", expected: "a.json"},
		{name: "same directory", absPath: "/inbox", rootDir: "/inbox", expected: "."},
		{name: "already relative", absPath: "pages/a.json", rootDir: "/inbox", expected: "pages/a.json"},
		{name: "outside root", absPath: "/other/a.json", rootDir: "/inbox", expected: "/other/a.json"},
		{name: "dotdot prefixed name", absPath: "/inbox/..cache/a.json", rootDir: "/inbox", expected: "..cache/a.json"},
		{name: "empty root", absPath: "/inbox/a.json", rootDir: "", expected: "/inbox/a.json"},
		{name: "unclean paths", absPath: "/inbox//pages/../a.json", rootDir: "/inbox/", expected: "a.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToRelative(tt.absPath, tt.rootDir); got != tt.expected {
				t.Errorf("ToRelative(%q, %q) = %q, want %q", tt.absPath, tt.rootDir, got, tt.expected)
			}
		})
	}
}

func TestGlobPath(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "pages", "x", "a.json")
	if got := GlobPath(path, root); got != "pages/x/a.json" {
		t.Errorf("GlobPath() = %q, want %q", got, "pages/x/a.json")
	}
}
