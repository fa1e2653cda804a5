package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Spec describes an external process started alongside a session, such as
// the media bot that joins the guest's call.
type Spec struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
}

// ConfigFile represents the structure of processes.yaml.
type ConfigFile struct {
	Processes []Spec `yaml:"processes" json:"processes"`
}

// LoadSpecs reads a configuration file (YAML or JSON) and returns the
// process specs by name. A missing file means no processes are configured.
func LoadSpecs(path string) (map[string]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Spec{}, nil
		}
		return nil, fmt.Errorf("failed to read process config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	specs := make(map[string]Spec)
	for _, s := range cfg.Processes {
		if s.Name == "" || s.Command == "" {
			continue
		}
		specs[s.Name] = s
	}
	return specs, nil
}
