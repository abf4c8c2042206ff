// Package config provides configuration loading and management for the
// reflection-data engine. It handles loading configuration from YAML files
// and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the engine configuration loaded from YAML
type Config struct {
	// Grid parameters for assembly and Fourier transforms
	Grid struct {
		// SampleRate oversamples the minimal grid size for map calculation
		SampleRate float64 `yaml:"sampleRate"`

		// HalfL selects Hermitian-compressed (l >= 0 only) storage
		HalfL bool `yaml:"halfL"`

		// AxisOrder is "XYZ" (h fastest) or "ZYX" (l fastest)
		AxisOrder string `yaml:"axisOrder"`

		// Workers is the number of goroutines used for grid assembly
		Workers int `yaml:"workers"`
	} `yaml:"grid"`

	// Merging parameters
	Merging struct {
		// DataType is "mean" or "anomalous"
		DataType string `yaml:"dataType"`

		// Weighting selects the statistics weighting scheme: X, Y or U
		Weighting string `yaml:"weighting"`
	} `yaml:"merging"`

	// Binning parameters for resolution shells
	Binning struct {
		// Bins is the number of resolution shells
		Bins int `yaml:"bins"`

		// Method is "dstar3" (equal reciprocal volume) or "dstar2"
		Method string `yaml:"method"`
	} `yaml:"binning"`

	// Scaling parameters
	Scaling struct {
		// MaxIterations bounds the nonlinear refinement
		MaxIterations int `yaml:"maxIterations"`
	} `yaml:"scaling"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Grid.SampleRate = 1.5
	cfg.Grid.HalfL = false
	cfg.Grid.AxisOrder = "XYZ"
	cfg.Grid.Workers = runtime.NumCPU()

	cfg.Merging.DataType = "anomalous"
	cfg.Merging.Weighting = "Y"

	cfg.Binning.Bins = 10
	cfg.Binning.Method = "dstar3"

	cfg.Scaling.MaxIterations = 20

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
