package config

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	cmierrors "github.com/standardbeagle/cmi/internal/errors"
	"github.com/standardbeagle/cmi/internal/types"
)

// Validator validates configuration and sets smart defaults
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and applies smart defaults
// Returns an error if validation fails
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateProjectConfig(&cfg.Project); err != nil {
		return cmierrors.NewConfigError("project", "", err)
	}

	if err := v.validateIndexConfig(&cfg.Index); err != nil {
		return cmierrors.NewConfigError("index", "", err)
	}

	if err := v.validateResolveConfig(&cfg.Resolve); err != nil {
		return cmierrors.NewConfigError("resolve", "", err)
	}

	if err := v.validatePatterns(cfg); err != nil {
		return err
	}

	v.setSmartDefaults(cfg)
	return nil
}

// validateProjectConfig validates project configuration
func (v *Validator) validateProjectConfig(project *Project) error {
	if project.Root == "" {
		return errors.New("project root cannot be empty")
	}

	// Name is optional; the scan discovers it from project() commands.
	return nil
}

// validateIndexConfig validates index configuration
func (v *Validator) validateIndexConfig(index *Index) error {
	if index.MaxFileSize <= 0 {
		return fmt.Errorf("MaxFileSize must be positive, got %d", index.MaxFileSize)
	}

	if index.MaxFileSize > 100*1024*1024 {
		return fmt.Errorf("MaxFileSize should not exceed 100MB, got %d", index.MaxFileSize)
	}

	if index.WatchDebounceMs < 0 {
		return fmt.Errorf("WatchDebounceMs cannot be negative, got %d", index.WatchDebounceMs)
	}

	return nil
}

// validateResolveConfig validates resolution configuration
func (v *Validator) validateResolveConfig(resolve *Resolve) error {
	// MaxDepth: 0 means use the default (set by smart defaults)
	if resolve.MaxDepth < 0 {
		return fmt.Errorf("MaxDepth cannot be negative, got %d", resolve.MaxDepth)
	}

	if resolve.MaxDepth > 1000 {
		return fmt.Errorf("MaxDepth should not exceed 1000, got %d", resolve.MaxDepth)
	}

	return nil
}

// validatePatterns checks every include and exclude glob against the
// doublestar syntax before the scanner ever sees them
func (v *Validator) validatePatterns(cfg *Config) error {
	for _, pattern := range cfg.Include {
		if !doublestar.ValidatePattern(pattern) {
			return cmierrors.NewConfigError("include", pattern, errors.New("invalid glob pattern"))
		}
	}

	for _, pattern := range cfg.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return cmierrors.NewConfigError("exclude", pattern, errors.New("invalid glob pattern"))
		}
	}

	return nil
}

// setSmartDefaults applies defaults for fields left at their zero value
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Index.WatchDebounceMs == 0 {
		cfg.Index.WatchDebounceMs = types.DefaultWatchDebounceMs
	}

	if cfg.Resolve.MaxDepth == 0 {
		cfg.Resolve.MaxDepth = types.DefaultMaxResolveDepth
	}

	if cfg.Resolve.VarsFile == "" {
		cfg.Resolve.VarsFile = DefaultVarsFile
	}

	// An empty include list would scan nothing
	if len(cfg.Include) == 0 {
		cfg.Include = defaultInclude()
	}
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	validator := NewValidator()
	return validator.ValidateAndSetDefaults(cfg)
}
