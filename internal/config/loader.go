package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/aleister1102/filesentry/internal/errorwrapper"
	"gopkg.in/yaml.v3"
)

// maxConfigFileSize guards against accidentally pointing the loader at
// a huge file.
const maxConfigFileSize = 10 * 1024 * 1024

// LoadGlobalConfig loads the configuration from a file. Supports both
// JSON and YAML formats; YAML is used if the file extension is .yaml
// or .yml. An empty path returns the default configuration.
func LoadGlobalConfig(providedPath string) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()

	if providedPath == "" {
		return cfg, nil
	}

	info, err := os.Stat(providedPath)
	if os.IsNotExist(err) {
		return nil, errorwrapper.NewValidationError("config_file", providedPath, "config file does not exist")
	}
	if err != nil {
		return nil, errorwrapper.WrapError(err, "failed to stat config file")
	}
	if info.Size() > maxConfigFileSize {
		return nil, errorwrapper.NewValidationError("config_file", providedPath, "config file exceeds maximum size")
	}

	data, err := os.ReadFile(providedPath)
	if err != nil {
		return nil, errorwrapper.WrapError(err, "failed to read config file")
	}

	if err := parseConfigContent(data, providedPath, cfg); err != nil {
		return nil, errorwrapper.WrapError(err, "failed to parse config content")
	}

	return cfg, nil
}

// parseConfigContent parses the config content based on file extension
func parseConfigContent(data []byte, filePath string, cfg *GlobalConfig) error {
	ext := filepath.Ext(filePath)
	if isYAMLFile(ext) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return errorwrapper.NewError("failed to unmarshal YAML from '%s': %w", filePath, err)
		}
		return nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return errorwrapper.NewError("failed to unmarshal JSON from '%s': %w", filePath, err)
	}
	return nil
}

// isYAMLFile checks if the file extension indicates a YAML file
func isYAMLFile(ext string) bool {
	return ext == ".yaml" || ext == ".yml"
}
