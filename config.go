package glyphview

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AAConfig selects an antialiasing strategy and its level. Level meaning
// is strategy-specific; for supersampling, level 2 is horizontal-only and
// any other level is full 2x2.
type AAConfig struct {
	Kind  string `yaml:"kind"`
	Level int    `yaml:"level"`
}

// Strategy parses the config into a strategy kind and level.
func (c AAConfig) Strategy() (AAKind, int, error) {
	kind, err := ParseAAKind(c.Kind)
	if err != nil {
		return AANone, 0, err
	}
	level := c.Level
	if level <= 0 {
		level = 1
	}
	return kind, level, nil
}

// Config holds the host-facing settings a deployment can place next to the
// application.
type Config struct {
	// Antialiasing selects the startup strategy.
	Antialiasing AAConfig `yaml:"antialiasing"`

	// ShaderBaseURL is the directory URL shader sources are fetched from.
	ShaderBaseURL string `yaml:"shader_base_url"`

	// MeshURL is the partitioning service endpoint.
	MeshURL string `yaml:"mesh_url"`

	// PixelRatio overrides the device pixel ratio. Zero means use the
	// host's value.
	PixelRatio float64 `yaml:"pixel_ratio"`
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() Config {
	return Config{
		Antialiasing:  AAConfig{Kind: "none", Level: 1},
		ShaderBaseURL: "/shaders",
		MeshURL:       "/partition",
	}
}

// LoadConfig reads a YAML config file, filling unset fields from
// DefaultConfig. A missing file yields the defaults without error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("glyphview: reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("glyphview: parsing config: %w", err)
	}
	if cfg.Antialiasing.Kind == "" {
		cfg.Antialiasing.Kind = "none"
	}
	return cfg, nil
}
