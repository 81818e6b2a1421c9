package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// LoadTOML applies dir/memex.toml to cfg. Keys absent from the file keep their
// current values. It reports false when the file is absent.
func LoadTOML(dir string, cfg *Config) (bool, error) {
	path := filepath.Join(dir, TOMLFileName)
	if !fileExists(path) {
		return false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", TOMLFileName, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return false, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return true, nil
}
