package fsutil

import (
	"path/filepath"
	"strings"
)

// BuiltinPrefix marks library paths served from inside the process.
const BuiltinPrefix = "builtin:"

// ResolveLibraryPath turns a configured library path into one the platform
// loader accepts. Host configuration is usually written with Windows
// separators, so backslashes are accepted everywhere. Relative paths are
// anchored at root; built-in paths are returned untouched.
func ResolveLibraryPath(root, path string) string {
	if path == "" || strings.HasPrefix(path, BuiltinPrefix) {
		return path
	}
	p := filepath.FromSlash(strings.ReplaceAll(path, `\`, "/"))
	if filepath.IsAbs(p) || root == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}
