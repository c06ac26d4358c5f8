package service

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings is the on-disk shape of the variables file. Both maps are
// optional; a missing file behaves like an empty one.
type Settings struct {
	Variables   map[string]string `yaml:"variables"`
	Environment map[string]string `yaml:"environment"`
}

// LoadSettingsFile reads a variables file. A missing file is not an error;
// a file that exists but does not parse is.
func LoadSettingsFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("failed to read variables file %s: %w", path, err)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse variables file %s: %w", path, err)
	}
	return &settings, nil
}

// settingsPath resolves the configured variables file against the project
// root when it is relative.
func (s *Service) settingsPath() string {
	path := s.cfg.Resolve.VarsFile
	if path == "" {
		return ""
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.cfg.Project.Root, path)
	}
	return path
}
