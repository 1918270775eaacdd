package process

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidatorConfig describes an external command used as a custom validator.
type ValidatorConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
	// Timeout bounds a single run, e.g. "2s". Zero uses the runner default.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// ConfigFile represents the structure of validators.yaml.
type ConfigFile struct {
	Validators []ValidatorConfig `yaml:"validators" json:"validators"`
}

// LoadValidators reads a configuration file (YAML or JSON) and returns the
// validators by name. A missing file means no validators are configured.
func LoadValidators(path string) (map[string]ValidatorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]ValidatorConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read validators config: %w", err)
	}

	// JSON is valid YAML, and the YAML decoder understands duration strings.
	var cfg ConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse validators config %s: %w", path, err)
	}

	validators := make(map[string]ValidatorConfig)
	for _, v := range cfg.Validators {
		if v.Name == "" || v.Command == "" {
			continue
		}
		if _, dup := validators[v.Name]; dup {
			return nil, fmt.Errorf("validator %q is configured twice", v.Name)
		}
		validators[v.Name] = v
	}
	return validators, nil
}
