package config

import (
	"os"
	"path/filepath"

	"github.com/standardbeagle/cmi/internal/types"
)

const (
	// ConfigFileName is the per-project and global configuration file name.
	ConfigFileName = ".cmi.kdl"

	// DefaultVarsFile holds user-defined variables and environment overrides.
	DefaultVarsFile = ".cmi-vars.yaml"
)

type Config struct {
	Version int
	Project Project
	Index   Index
	Resolve Resolve
	Include []string
	Exclude []string
}

type Project struct {
	Root string
	Name string
}

type Index struct {
	MaxFileSize     int64
	WatchMode       bool // Enable file system watching for automatic reparsing
	WatchDebounceMs int  // Debounce time for file change events
}

type Resolve struct {
	MaxDepth int    // Maximum substitution passes per resolution
	VarsFile string // Path to the custom variables file, relative to root
}

// Load loads configuration from the current directory.
func Load() (*Config, error) {
	return LoadWithRoot("")
}

// LoadWithRoot loads configuration for the given workspace root. The global
// ~/.cmi.kdl is loaded first and a project-local .cmi.kdl is merged over it;
// project values win but exclusions from both are kept.
func LoadWithRoot(rootDir string) (*Config, error) {
	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	}

	// Step 1: Load global base config from ~/.cmi.kdl (if exists)
	homeDir, err := os.UserHomeDir()
	var baseConfig *Config
	if err == nil {
		if globalCfg, err := LoadKDL(homeDir); err == nil && globalCfg != nil {
			baseConfig = globalCfg
		}
	}

	// Step 2: Load project-specific config from project directory
	var projectConfig *Config
	if kdlCfg, err := LoadKDL(searchDir); err == nil && kdlCfg != nil {
		projectConfig = kdlCfg
	} else if err != nil {
		return nil, err
	}

	// Step 3: Merge configs (project overrides base, but preserve base exclusions)
	var cfg *Config
	switch {
	case baseConfig != nil && projectConfig != nil:
		cfg = mergeConfigs(baseConfig, projectConfig)
	case projectConfig != nil:
		cfg = projectConfig
	case baseConfig != nil:
		// Use base config but update project root
		baseConfig.Project.Root = absOrSelf(searchDir)
		cfg = baseConfig
	default:
		cfg = defaultConfig()
		if rootDir != "" {
			cfg.Project.Root = absOrSelf(searchDir)
		}
	}

	// Enrich exclusions with configured binary directories once the root is final
	cfg.EnrichExclusionsWithBuildDirs()

	return cfg, nil
}

// defaultConfig returns the built-in configuration used when no .cmi.kdl
// exists and as the baseline merged under every parsed file.
func defaultConfig() *Config {
	// Use current working directory as absolute path for consistency
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "." // Fallback to relative if we can't get absolute
	}

	return &Config{
		Version: 1,
		Project: Project{
			Root: cwd,
		},
		Index: Index{
			MaxFileSize:     types.DefaultMaxFileSize,
			WatchMode:       true,
			WatchDebounceMs: types.DefaultWatchDebounceMs,
		},
		Resolve: Resolve{
			MaxDepth: types.DefaultMaxResolveDepth,
			VarsFile: DefaultVarsFile,
		},
		Include: defaultInclude(),
		Exclude: defaultExclude(),
	}
}

// defaultInclude names the file shapes the workspace scan ingests.
func defaultInclude() []string {
	return []string{
		"**/CMakeLists.txt",
		"**/*.cmake",
	}
}

// defaultExclude keeps generated trees out of the scan. Binary directories
// matter most: their CMakeCache and generated lists would shadow the real
// source definitions.
func defaultExclude() []string {
	return []string{
		"**/build/**",
		"**/.git/**",
		"**/out/**",
		"**/cmake-build-*/**",
		"**/node_modules/**",
		"**/.cache/**",
	}
}

// mergeConfigs merges a base config with a project config
// Project config takes precedence, but base exclusions are preserved
func mergeConfigs(base, project *Config) *Config {
	// Start with a copy of the project config
	merged := *project

	// Merge exclusions: base patterns first, then project additions
	if len(base.Exclude) > 0 {
		combined := make([]string, 0, len(base.Exclude)+len(project.Exclude))
		combined = append(combined, base.Exclude...)
		combined = append(combined, project.Exclude...)
		merged.Exclude = DeduplicatePatterns(combined)
	}

	// Merge inclusions: project overrides base completely if specified
	if len(project.Include) == 0 && len(base.Include) > 0 {
		merged.Include = base.Include
	}

	// Use project settings for everything else (already copied above)

	return &merged
}

// EnrichExclusionsWithBuildDirs detects configured binary directories and
// adds them to the exclusion list
func (c *Config) EnrichExclusionsWithBuildDirs() {
	if c.Project.Root == "" {
		return // No project root set, skip detection
	}

	detector := NewBuildDirDetector(c.Project.Root)
	detectedPatterns := detector.DetectBuildDirs()

	if len(detectedPatterns) > 0 {
		c.Exclude = append(c.Exclude, detectedPatterns...)
		c.Exclude = DeduplicatePatterns(c.Exclude)
	}
}

func absOrSelf(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}
