// Package config loads the service configuration from an optional TOML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds the mosaic3d service configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `toml:"addr"`

	// PresetPath points at the JSON preset file loaded at startup.
	PresetPath string `toml:"preset_path"`

	// TilesDir is the caller-supplied tile directory, probed first in the
	// asset search order.
	TilesDir string `toml:"tiles_dir"`

	// TileSearchPaths, when non-empty, replaces the conventional search
	// order entirely so deployments needn't match the default layout.
	TileSearchPaths []string `toml:"tile_search_paths"`

	// BodyLimit caps the request body size, in echo's human-readable form
	// ("20M", "512K").
	BodyLimit string `toml:"body_limit"`

	// CORSOrigins lists the allowed CORS origins. Defaults to "*" to match
	// the open policy of the original deployment.
	CORSOrigins []string `toml:"cors_origins"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// LogFormat is "json" or "text".
	LogFormat string `toml:"log_format"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() *Config {
	return &Config{
		Addr:        ":8080",
		PresetPath:  "preset.json",
		TilesDir:    "tiles",
		BodyLimit:   "20M",
		CORSOrigins: []string{"*"},
		LogLevel:    "info",
		LogFormat:   "json",
	}
}

// Load builds the configuration: defaults, then the TOML file at path (if
// path is non-empty), then MOSAIC3D_* environment overrides. The file must
// exist when a path is given.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.Addr = getEnv("MOSAIC3D_ADDR", cfg.Addr)
	cfg.PresetPath = getEnv("MOSAIC3D_PRESET", cfg.PresetPath)
	cfg.TilesDir = getEnv("MOSAIC3D_TILES_DIR", cfg.TilesDir)
	cfg.BodyLimit = getEnv("MOSAIC3D_BODY_LIMIT", cfg.BodyLimit)
	cfg.LogLevel = getEnv("MOSAIC3D_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("MOSAIC3D_LOG_FORMAT", cfg.LogFormat)
	if origins := os.Getenv("MOSAIC3D_CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	if paths := os.Getenv("MOSAIC3D_TILE_SEARCH_PATHS"); paths != "" {
		cfg.TileSearchPaths = splitList(paths)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr cannot be empty")
	}
	if c.PresetPath == "" {
		return fmt.Errorf("preset_path cannot be empty")
	}
	if c.BodyLimit == "" {
		return fmt.Errorf("body_limit cannot be empty")
	}
	if len(c.CORSOrigins) == 0 {
		return fmt.Errorf("cors_origins cannot be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("log_format must be json or text, got %q", c.LogFormat)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
