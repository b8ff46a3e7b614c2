package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Backend.URL != DefaultBackendURL {
		t.Errorf("expected default backend URL %q, got %q", DefaultBackendURL, cfg.Backend.URL)
	}
	if cfg.UI.SilhouetteSize != 64 {
		t.Errorf("expected silhouette size 64, got %d", cfg.UI.SilhouetteSize)
	}
	if !cfg.AutoExpandEnabled() {
		t.Error("expected auto-expand to default on")
	}
	if cfg.Complete() {
		t.Error("default config should not be complete without an API key")
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	t.Setenv("EVOMAP_BACKEND_URL", "")
	t.Setenv("EVOMAP_API_KEY", "")

	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.Backend.URL != DefaultBackendURL {
		t.Errorf("expected default config, got backend URL %q", cfg.Backend.URL)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	t.Setenv("EVOMAP_BACKEND_URL", "")
	t.Setenv("EVOMAP_API_KEY", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
backend:
  url: https://evomap.example.org
  api_key: secret123

ui:
  silhouette_size: 96
  export_dir: ~/evomap-exports
  auto_expand: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Backend.URL != "https://evomap.example.org" {
		t.Errorf("expected configured URL, got %q", cfg.Backend.URL)
	}
	if cfg.Backend.APIKey != "secret123" {
		t.Errorf("expected configured API key, got %q", cfg.Backend.APIKey)
	}
	if cfg.UI.SilhouetteSize != 96 {
		t.Errorf("expected silhouette size 96, got %d", cfg.UI.SilhouetteSize)
	}
	if cfg.AutoExpandEnabled() {
		t.Error("expected auto-expand disabled")
	}
	if !cfg.Complete() {
		t.Error("expected config with URL and key to be complete")
	}

	// Export dir should have ~ expanded.
	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, "evomap-exports")
	if cfg.UI.ExportDir != expected {
		t.Errorf("expected expanded export dir %q, got %q", expected, cfg.UI.ExportDir)
	}
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
backend:
  url: https://file.example.org
  api_key: filekey
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("EVOMAP_BACKEND_URL", "https://env.example.org")
	t.Setenv("EVOMAP_API_KEY", "envkey")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.URL != "https://env.example.org" {
		t.Errorf("expected env URL to win, got %q", cfg.Backend.URL)
	}
	if cfg.Backend.APIKey != "envkey" {
		t.Errorf("expected env key to win, got %q", cfg.Backend.APIKey)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("backend: [not: valid"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	t.Setenv("EVOMAP_BACKEND_URL", "")
	t.Setenv("EVOMAP_API_KEY", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Backend.URL = "https://rt.example.org"
	cfg.Backend.APIKey = "rtkey"

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	// The file carries the API key and must not be world-readable.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected mode 0600, got %o", perm)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.Backend.URL != cfg.Backend.URL {
		t.Errorf("round-trip URL mismatch: %q", loaded.Backend.URL)
	}
	if loaded.Backend.APIKey != cfg.Backend.APIKey {
		t.Errorf("round-trip key mismatch: %q", loaded.Backend.APIKey)
	}
}

func TestExportDirOrDefault(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdgdata")

	cfg := DefaultConfig()
	if got := cfg.ExportDirOrDefault(); got != "/tmp/xdgdata/evomap/exports" {
		t.Errorf("expected data-dir fallback, got %q", got)
	}

	cfg.UI.ExportDir = "/custom/exports"
	if got := cfg.ExportDirOrDefault(); got != "/custom/exports" {
		t.Errorf("expected configured dir, got %q", got)
	}
}
