// Package config handles loading and saving evomap configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/evomap/config.yaml
//   - Data:    ~/.local/share/evomap/ (exported snapshots)
//   - State:   ~/.local/state/evomap/ (selection history database)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Backend holds the connection settings for the Evolution Mapper backend.
type Backend struct {
	URL    string `yaml:"url,omitempty"`
	APIKey string `yaml:"api_key,omitempty"`
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	SilhouetteSize int    `yaml:"silhouette_size,omitempty"` // Pixel size for fetched silhouettes
	ExportDir      string `yaml:"export_dir,omitempty"`      // Where tree snapshots are written
	AutoExpand     *bool  `yaml:"auto_expand,omitempty"`     // Staged reveal after generation (default on)
}

// Config is the top-level configuration for evomap.
type Config struct {
	Backend Backend  `yaml:"backend,omitempty"`
	UI      UIConfig `yaml:"ui,omitempty"`
}

// DefaultBackendURL is used when no URL is configured anywhere.
const DefaultBackendURL = "http://localhost:8000"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend: Backend{URL: DefaultBackendURL},
		UI: UIConfig{
			SilhouetteSize: 64,
		},
	}
}

// AutoExpandEnabled resolves the auto-expand flag, defaulting to true.
func (c Config) AutoExpandEnabled() bool {
	return c.UI.AutoExpand == nil || *c.UI.AutoExpand
}

// Complete reports whether the config carries enough to reach a backend.
func (c Config) Complete() bool {
	return c.Backend.URL != "" && c.Backend.APIKey != ""
}

// ConfigDir returns the XDG config directory for evomap.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "evomap")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "evomap")
}

// DataDir returns the XDG data directory for evomap.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "evomap")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "evomap")
}

// StateDir returns the XDG state directory for evomap.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "evomap")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "evomap")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory and applies
// environment overrides. Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return applyEnv(DefaultConfig()), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path and applies environment
// overrides. Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnv(cfg), nil
		}
		return applyEnv(cfg), fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return applyEnv(cfg), fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Backend.URL == "" {
		cfg.Backend.URL = DefaultBackendURL
	}
	if cfg.UI.SilhouetteSize <= 0 {
		cfg.UI.SilhouetteSize = 64
	}
	cfg.UI.ExportDir = expandHome(cfg.UI.ExportDir)

	return applyEnv(cfg), nil
}

// applyEnv overlays EVOMAP_BACKEND_URL and EVOMAP_API_KEY. Environment
// values win over file values so scripts can redirect a session without
// touching the config file.
func applyEnv(cfg Config) Config {
	if v := os.Getenv("EVOMAP_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("EVOMAP_API_KEY"); v != "" {
		cfg.Backend.APIKey = v
	}
	return cfg
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path. The file is created with
// 0600 since it carries the API key.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// ExportDirOrDefault resolves the snapshot export directory, falling back
// to the XDG data dir when unset.
func (c Config) ExportDirOrDefault() string {
	if c.UI.ExportDir != "" {
		return c.UI.ExportDir
	}
	dir := DataDir()
	if dir == "" {
		return "."
	}
	return filepath.Join(dir, "exports")
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
