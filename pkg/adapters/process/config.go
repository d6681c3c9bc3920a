package process

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProcessConfig declares a local command the executor may call as a tool.
type ProcessConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`

	// Parameters are the string arguments the model must supply, keyed by
	// name, with their descriptions.
	Parameters map[string]string `yaml:"parameters" json:"parameters"`
}

// ConfigFile represents the structure of tools.yaml
type ConfigFile struct {
	Tools []ProcessConfig `yaml:"tools" json:"tools"`
}

// LoadTools reads a tools file (YAML, or JSON by extension).
// A missing file means no tools are configured.
func LoadTools(path string) ([]ProcessConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tools config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	var errs []error
	seen := make(map[string]bool, len(cfg.Tools))
	tools := make([]ProcessConfig, 0, len(cfg.Tools))
	for i, tool := range cfg.Tools {
		switch {
		case tool.Name == "":
			errs = append(errs, fmt.Errorf("tools[%d]: name is required", i))
		case tool.Command == "":
			errs = append(errs, fmt.Errorf("tool %s: command is required", tool.Name))
		case seen[tool.Name]:
			errs = append(errs, fmt.Errorf("tool %s: declared twice", tool.Name))
		default:
			seen[tool.Name] = true
			tools = append(tools, tool)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return tools, nil
}
