package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProjectFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestDetectBuildDirs_Presets(t *testing.T) {
	dir := t.TempDir()
	writeProjectFile(t, dir, "CMakePresets.json", `{
  "version": 6,
  "configurePresets": [
    {"name": "default", "binaryDir": "${sourceDir}/build/${presetName}"},
    {"name": "msvc", "binaryDir": "${sourceDir}/out/build/${presetName}"},
    {"name": "external", "binaryDir": "/tmp/elsewhere/${presetName}"}
  ]
}`)

	patterns := NewBuildDirDetector(dir).DetectBuildDirs()

	assert.Contains(t, patterns, "**/build/**")
	assert.Contains(t, patterns, "**/out/build/**")
	// Absolute binaryDir outside the tree contributes nothing
	assert.Len(t, patterns, 2)
}

func TestDetectBuildDirs_UserPresets(t *testing.T) {
	dir := t.TempDir()
	writeProjectFile(t, dir, "CMakeUserPresets.json", `{
  "configurePresets": [
    {"name": "local", "binaryDir": "${sourceDir}/stage"}
  ]
}`)

	patterns := NewBuildDirDetector(dir).DetectBuildDirs()

	assert.Equal(t, []string{"**/stage/**"}, patterns)
}

func TestDetectBuildDirs_ScikitBuild(t *testing.T) {
	dir := t.TempDir()
	writeProjectFile(t, dir, "pyproject.toml", `
[build-system]
requires = ["scikit-build-core"]

[tool.scikit-build]
build-dir = "build/{wheel_tag}"
`)

	patterns := NewBuildDirDetector(dir).DetectBuildDirs()

	assert.Equal(t, []string{"**/build/**"}, patterns)
}

func TestDetectBuildDirs_MalformedFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	writeProjectFile(t, dir, "CMakePresets.json", `{not json`)
	writeProjectFile(t, dir, "pyproject.toml", `= broken toml`)

	patterns := NewBuildDirDetector(dir).DetectBuildDirs()

	assert.Empty(t, patterns)
}

func TestDetectBuildDirs_NoFiles(t *testing.T) {
	patterns := NewBuildDirDetector(t.TempDir()).DetectBuildDirs()
	assert.Empty(t, patterns)
}

func TestBinaryDirPattern(t *testing.T) {
	tests := []struct {
		name      string
		binaryDir string
		want      string
		ok        bool
	}{
		{"source relative", "${sourceDir}/build/${presetName}", "**/build/**", true},
		{"nested", "${sourceDir}/out/build/${presetName}", "**/out/build/**", true},
		{"no macros", "${sourceDir}/build", "**/build/**", true},
		{"plain relative", "build", "**/build/**", true},
		{"backslashes", "${sourceDir}\\build\\${presetName}", "**/build/**", true},
		{"absolute", "/tmp/out", "", false},
		{"windows absolute", "C:/builds/out", "", false},
		{"only macros", "${sourceDir}/${presetName}", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := binaryDirPattern(tt.binaryDir)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeduplicatePatterns(t *testing.T) {
	in := []string{"**/build/**", "**/out/**", "**/build/**"}
	out := DeduplicatePatterns(in)
	assert.Equal(t, []string{"**/build/**", "**/out/**"}, out)
}
