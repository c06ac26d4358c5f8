// Package pathutil provides path representation helpers.
//
// Architecture Pattern:
// cmi keeps absolute paths internally for consistency; user-facing output
// (CLI listings, diagnostics, MCP responses) uses workspace-relative paths
// for readability. This package is the conversion layer between the two
// representations, plus the separator normalization the resolver applies to
// every resolved expression.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails or path is already relative.
//
// Examples:
//   - ToRelative("/home/user/project/src/CMakeLists.txt", "/home/user/project") → "src/CMakeLists.txt"
//   - ToRelative("/other/location/file.cmake", "/home/user/project") → "/other/location/file.cmake" (outside root)
//   - ToRelative("src/CMakeLists.txt", "/home/user/project") → "src/CMakeLists.txt" (already relative)
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		// different drives on Windows and similar
		return absPath
	}

	// outside the root; the absolute form is clearer
	if strings.HasPrefix(relPath, "..") {
		return absPath
	}

	return relPath
}

// NormalizeSeparators rewrites every backslash to a forward slash. This is a
// textual transform, not filesystem-aware: it is applied to resolved
// expressions so output is uniform across platforms.
func NormalizeSeparators(s string) string {
	return strings.ReplaceAll(s, "\\", "/")
}
