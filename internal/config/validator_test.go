package config

import (
	"testing"
)

func validConfig() *Config {
	return &Config{
		Project: Project{
			Root: "/test/root",
			Name: "engine",
		},
		Index: Index{
			MaxFileSize:     1024 * 1024,
			WatchDebounceMs: 500,
		},
		Resolve: Resolve{
			MaxDepth: 10,
			VarsFile: ".cmi-vars.yaml",
		},
		Include: []string{"**/CMakeLists.txt"},
		Exclude: []string{"**/build/**"},
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Index.WatchDebounceMs = 0 // Should be set to 500
	cfg.Resolve.MaxDepth = 0      // Should be set to 10
	cfg.Resolve.VarsFile = ""     // Should be set to .cmi-vars.yaml

	validator := NewValidator()
	err := validator.ValidateAndSetDefaults(cfg)
	if err != nil {
		t.Fatalf("ValidateAndSetDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Index.WatchDebounceMs != 500 {
		t.Errorf("WatchDebounceMs should have been set to 500, got %d", cfg.Index.WatchDebounceMs)
	}

	if cfg.Resolve.MaxDepth != 10 {
		t.Errorf("MaxDepth should have been set to 10, got %d", cfg.Resolve.MaxDepth)
	}

	if cfg.Resolve.VarsFile != ".cmi-vars.yaml" {
		t.Errorf("VarsFile should have a default value, got %q", cfg.Resolve.VarsFile)
	}
}

func TestValidateProjectConfig(t *testing.T) {
	validator := NewValidator()

	// Valid config
	err := validator.validateProjectConfig(&Project{
		Root: "/test/root",
		Name: "engine",
	})
	if err != nil {
		t.Errorf("Expected no error for valid config, got %v", err)
	}

	// Empty name is fine - the scan discovers it
	err = validator.validateProjectConfig(&Project{
		Root: "/test/root",
		Name: "",
	})
	if err != nil {
		t.Errorf("Expected no error for empty name, got %v", err)
	}

	// Empty root
	err = validator.validateProjectConfig(&Project{
		Root: "",
		Name: "engine",
	})
	if err == nil {
		t.Errorf("Expected error for empty root")
	}
}

func TestValidateIndexConfig(t *testing.T) {
	validator := NewValidator()

	// Valid config
	err := validator.validateIndexConfig(&Index{
		MaxFileSize:     1024 * 1024,
		WatchDebounceMs: 500,
	})
	if err != nil {
		t.Errorf("Expected no error for valid config, got %v", err)
	}

	// Invalid MaxFileSize
	err = validator.validateIndexConfig(&Index{
		MaxFileSize: 0,
	})
	if err == nil {
		t.Errorf("Expected error for zero MaxFileSize")
	}

	// MaxFileSize too large
	err = validator.validateIndexConfig(&Index{
		MaxFileSize: 200 * 1024 * 1024, // 200MB
	})
	if err == nil {
		t.Errorf("Expected error for MaxFileSize > 100MB")
	}

	// Negative debounce
	err = validator.validateIndexConfig(&Index{
		MaxFileSize:     1024 * 1024,
		WatchDebounceMs: -1,
	})
	if err == nil {
		t.Errorf("Expected error for negative WatchDebounceMs")
	}
}

func TestValidateResolveConfig(t *testing.T) {
	validator := NewValidator()

	// Valid config
	err := validator.validateResolveConfig(&Resolve{MaxDepth: 10})
	if err != nil {
		t.Errorf("Expected no error for valid config, got %v", err)
	}

	// MaxDepth = 0 is valid (means use default)
	err = validator.validateResolveConfig(&Resolve{MaxDepth: 0})
	if err != nil {
		t.Errorf("Expected no error for MaxDepth = 0 (default), got %v", err)
	}

	// Negative MaxDepth
	err = validator.validateResolveConfig(&Resolve{MaxDepth: -1})
	if err == nil {
		t.Errorf("Expected error for negative MaxDepth")
	}

	// Absurd MaxDepth
	err = validator.validateResolveConfig(&Resolve{MaxDepth: 5000})
	if err == nil {
		t.Errorf("Expected error for MaxDepth > 1000")
	}
}

func TestValidatePatterns(t *testing.T) {
	validator := NewValidator()

	cfg := validConfig()
	if err := validator.validatePatterns(cfg); err != nil {
		t.Errorf("Expected no error for valid patterns, got %v", err)
	}

	cfg = validConfig()
	cfg.Exclude = append(cfg.Exclude, "**/[unclosed/**")
	if err := validator.validatePatterns(cfg); err == nil {
		t.Errorf("Expected error for invalid exclude pattern")
	}

	cfg = validConfig()
	cfg.Include = []string{"[bad"}
	if err := validator.validatePatterns(cfg); err == nil {
		t.Errorf("Expected error for invalid include pattern")
	}
}

func TestValidateConfig(t *testing.T) {
	// Test convenience function
	cfg := validConfig()
	err := ValidateConfig(cfg)
	if err != nil {
		t.Fatalf("ValidateConfig failed: %v", err)
	}

	// Test with invalid config
	invalidCfg := &Config{
		Project: Project{
			Root: "", // Invalid
		},
	}

	err = ValidateConfig(invalidCfg)
	if err == nil {
		t.Errorf("Expected error for invalid config")
	}
}

func TestSetSmartDefaults(t *testing.T) {
	cfg := &Config{
		Project: Project{
			Root: "/test/root",
		},
		Index: Index{
			MaxFileSize: 1024 * 1024,
		},
	}

	validator := NewValidator()
	validator.setSmartDefaults(cfg)

	// These should have been set
	if cfg.Index.WatchDebounceMs == 0 {
		t.Errorf("WatchDebounceMs should have been set")
	}

	if cfg.Resolve.MaxDepth == 0 {
		t.Errorf("MaxDepth should have been set")
	}

	if cfg.Resolve.VarsFile == "" {
		t.Errorf("VarsFile should have been set")
	}

	if len(cfg.Include) == 0 {
		t.Errorf("Include should have been set")
	}
}

func BenchmarkValidateAndSetDefaults(b *testing.B) {
	cfg := validConfig()

	validator := NewValidator()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		// Create a fresh config for each iteration
		testCfg := *cfg
		_ = validator.ValidateAndSetDefaults(&testCfg)
	}
}
