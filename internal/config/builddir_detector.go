// Build directory detection from CMake-adjacent configuration files
// Parses CMakePresets.json and pyproject.toml to find binary output directories
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// BuildDirDetector finds configured binary output directories
type BuildDirDetector struct {
	projectRoot string
}

// NewBuildDirDetector creates a new build directory detector
func NewBuildDirDetector(projectRoot string) *BuildDirDetector {
	return &BuildDirDetector{projectRoot: projectRoot}
}

// DetectBuildDirs scans preset and packaging files and extracts binary directories
// Returns glob patterns to exclude (e.g., "**/build/**", "**/out/build/**")
func (d *BuildDirDetector) DetectBuildDirs() []string {
	var patterns []string

	// CMake presets: CMakePresets.json, CMakeUserPresets.json
	patterns = append(patterns, d.detectPresetBinaryDirs()...)

	// Python wheels built via scikit-build-core: pyproject.toml
	patterns = append(patterns, d.detectScikitBuildDirs()...)

	return patterns
}

// cmakePresets models the subset of the preset schema we read
type cmakePresets struct {
	ConfigurePresets []struct {
		Name      string `json:"name"`
		BinaryDir string `json:"binaryDir"`
	} `json:"configurePresets"`
}

// detectPresetBinaryDirs reads binaryDir from configure presets
func (d *BuildDirDetector) detectPresetBinaryDirs() []string {
	var patterns []string

	for _, name := range []string{"CMakePresets.json", "CMakeUserPresets.json"} {
		data, err := os.ReadFile(filepath.Join(d.projectRoot, name))
		if err != nil {
			continue
		}

		var presets cmakePresets
		if json.Unmarshal(data, &presets) != nil {
			continue // Malformed presets never fail the scan
		}

		for _, p := range presets.ConfigurePresets {
			if pattern, ok := binaryDirPattern(p.BinaryDir); ok {
				patterns = append(patterns, pattern)
			}
		}
	}

	return patterns
}

// binaryDirPattern converts a preset binaryDir into an exclusion glob.
// The ${sourceDir} prefix is stripped and the directory is truncated at the
// first remaining macro, so "${sourceDir}/out/build/${presetName}" yields
// "**/out/build/**". Absolute directories outside the source tree produce
// no pattern.
func binaryDirPattern(binaryDir string) (string, bool) {
	dir := strings.ReplaceAll(strings.TrimSpace(binaryDir), "\\", "/")
	if dir == "" {
		return "", false
	}

	insideSource := false
	if strings.HasPrefix(dir, "${sourceDir}") {
		dir = strings.TrimPrefix(dir, "${sourceDir}")
		insideSource = true
	}

	// Truncate at the first remaining macro reference
	if idx := strings.Index(dir, "${"); idx != -1 {
		dir = dir[:idx]
	}
	if idx := strings.Index(dir, "$env{"); idx != -1 {
		dir = dir[:idx]
	}

	if !insideSource && (strings.HasPrefix(dir, "/") || strings.Contains(dir, ":")) {
		return "", false
	}

	dir = strings.Trim(dir, "/")
	if dir == "" || dir == "." {
		return "", false
	}

	return "**/" + dir + "/**", true
}

// detectScikitBuildDirs reads [tool.scikit-build] build-dir from pyproject.toml
func (d *BuildDirDetector) detectScikitBuildDirs() []string {
	data, err := os.ReadFile(filepath.Join(d.projectRoot, "pyproject.toml"))
	if err != nil {
		return nil
	}

	var pyproject map[string]interface{}
	if toml.Unmarshal(data, &pyproject) != nil {
		return nil
	}

	tool, ok := pyproject["tool"].(map[string]interface{})
	if !ok {
		return nil
	}
	sk, ok := tool["scikit-build"].(map[string]interface{})
	if !ok {
		return nil
	}
	buildDir, ok := sk["build-dir"].(string)
	if !ok {
		return nil
	}

	// scikit-build-core templates placeholders like {wheel_tag}
	if idx := strings.Index(buildDir, "{"); idx != -1 {
		buildDir = buildDir[:idx]
	}
	buildDir = strings.Trim(strings.ReplaceAll(buildDir, "\\", "/"), "/")
	if buildDir == "" {
		return nil
	}

	return []string{"**/" + buildDir + "/**"}
}

// DeduplicatePatterns removes duplicate exclusion patterns
func DeduplicatePatterns(patterns []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(patterns))

	for _, pattern := range patterns {
		if !seen[pattern] {
			seen[pattern] = true
			result = append(result, pattern)
		}
	}

	return result
}
