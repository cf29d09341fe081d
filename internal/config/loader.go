package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the normalizer YAML at path. ${VAR} references are expanded
// from the environment before parsing so credentials can stay out of the
// file.
func Load(path string) (*NormalizerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read normalizer config: %w", err)
	}

	var cfg NormalizerConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse normalizer config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadWithDefaults is Load followed by filling unset service, request,
// schedule and database settings.
func LoadWithDefaults(path string) (*NormalizerConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate is LoadWithDefaults followed by Validate. It is what
// the normalizer binary uses at startup.
func LoadAndValidate(path string) (*NormalizerConfig, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid normalizer config %s: %w", path, err)
	}
	return cfg, nil
}
