package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/midgard-shadows/internal/shadow"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test shadow defaults
	if cfg.Shadows.MaxDistance != 100 {
		t.Errorf("expected max distance 100, got %g", cfg.Shadows.MaxDistance)
	}
	if cfg.Shadows.Directional.CascadeCount != 4 {
		t.Errorf("expected 4 cascades, got %d", cfg.Shadows.Directional.CascadeCount)
	}
	if cfg.Shadows.Directional.AtlasSize != 1024 {
		t.Errorf("expected directional atlas 1024, got %d", cfg.Shadows.Directional.AtlasSize)
	}
	if cfg.Platform.ReversedZ {
		t.Error("expected reversed-Z to be off by default")
	}

	// Test window defaults
	if cfg.Window.Width != 1280 || cfg.Window.Height != 720 {
		t.Errorf("expected 1280x720, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if !cfg.Window.Hidden {
		t.Error("expected hidden window by default")
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "shadows.yaml")

	yamlContent := `
shadows:
  max_distance: 150
  shadowmask_mode: shadowmask
  directional:
    atlas_size: 2048
    filter: pcf5x5
    cascade_count: 2
    cascade_blend: dither
  other:
    filter: pcf3x3

platform:
  reversed_z: true

window:
  width: 800
  height: 600

logging:
  level: "debug"
  log_file: "shadows.log"

scene:
  path: "courtyard.yaml"
  frames: 3
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if cfg.Shadows.MaxDistance != 150 {
		t.Errorf("expected max distance 150, got %g", cfg.Shadows.MaxDistance)
	}
	if cfg.Shadows.ShadowmaskMode != shadow.ShadowmaskAlways {
		t.Errorf("expected shadowmask mode, got %v", cfg.Shadows.ShadowmaskMode)
	}
	d := cfg.Shadows.Directional
	if d.AtlasSize != 2048 || d.Filter != shadow.FilterPCF5x5 || d.CascadeCount != 2 {
		t.Errorf("unexpected directional settings %+v", d)
	}
	if d.CascadeBlend != shadow.CascadeBlendDither {
		t.Errorf("expected dither blend, got %v", d.CascadeBlend)
	}
	// Unset fields keep their defaults.
	if d.CascadeRatio1 != 0.1 || d.CascadeFade != 0.1 {
		t.Errorf("expected default ratio and fade, got %g %g", d.CascadeRatio1, d.CascadeFade)
	}
	if cfg.Shadows.Other.AtlasSize != 1024 || cfg.Shadows.Other.Filter != shadow.FilterPCF3x3 {
		t.Errorf("unexpected other settings %+v", cfg.Shadows.Other)
	}

	if !cfg.Platform.ReversedZ {
		t.Error("expected reversed-Z")
	}
	if !cfg.Capabilities().ReversedZ {
		t.Error("expected reversed-Z capability")
	}
	if cfg.Window.Width != 800 || cfg.Window.Height != 600 {
		t.Errorf("expected 800x600, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "shadows.log" {
		t.Errorf("expected log file 'shadows.log', got %s", cfg.Logging.LogFile)
	}
	if cfg.Scene.Path != "courtyard.yaml" || cfg.Scene.Frames != 3 {
		t.Errorf("unexpected scene config %+v", cfg.Scene)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", "shadows:\n  max_distance: not a number\n  invalid syntax here\n"},
		{"filter name", "shadows:\n  directional:\n    filter: pcf9x9\n"},
		{"blend name", "shadows:\n  directional:\n    cascade_blend: smooth\n"},
		{"unknown key", "shadows:\n  max_distanse: 80\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "invalid.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			cfg := Default()
			if err := loadFromFile(cfg, configPath); err == nil {
				t.Error("expected error loading invalid YAML, got nil")
			}
		})
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/shadows.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestLoadFromFileEmpty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "shadows.yaml")
	if err := os.WriteFile(configPath, nil, 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("empty config should load, got %v", err)
	}
	if cfg.Shadows != shadow.DefaultSettings() {
		t.Errorf("empty config changed shadow settings: %+v", cfg.Shadows)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"cascade count", func(c *Config) { c.Shadows.Directional.CascadeCount = 5 }},
		{"atlas size", func(c *Config) { c.Shadows.Other.AtlasSize = 1000 }},
		{"window", func(c *Config) { c.Window.Width = 0 }},
		{"frames", func(c *Config) { c.Scene.Frames = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}

	cfg := Default()
	cfg.Shadows.MaxDistance = -1
	if err := cfg.Validate(); !errors.Is(err, shadow.ErrInvalidSettings) {
		t.Errorf("expected ErrInvalidSettings, got %v", err)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Just verify it returns a non-empty path
	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}

	// Verify path is absolute
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	// Point the OS config dir somewhere empty
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	// Create shadows.yaml in current directory
	if err := os.WriteFile("shadows.yaml", []byte("window:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	// Should find it now
	path = findConfigFile()
	if path == "" {
		t.Error("expected to find shadows.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name: "debug flag",
			setup: func() {
				*flagDebug = true
			},
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() {
				*flagDebug = false
			},
		},
		{
			name: "reversed-z flag",
			setup: func() {
				*flagReversedZ = true
			},
			verify: func(cfg *Config) {
				if !cfg.Platform.ReversedZ {
					t.Error("expected reversed-Z with flag")
				}
			},
			teardown: func() {
				*flagReversedZ = false
			},
		},
		{
			name: "atlas flags",
			setup: func() {
				*flagCascades = 2
				*flagDirAtlas = 4096
				*flagOtherAtlas = 512
			},
			verify: func(cfg *Config) {
				if cfg.Shadows.Directional.CascadeCount != 2 {
					t.Errorf("expected 2 cascades, got %d", cfg.Shadows.Directional.CascadeCount)
				}
				if cfg.Shadows.Directional.AtlasSize != 4096 {
					t.Errorf("expected directional atlas 4096, got %d", cfg.Shadows.Directional.AtlasSize)
				}
				if cfg.Shadows.Other.AtlasSize != 512 {
					t.Errorf("expected other atlas 512, got %d", cfg.Shadows.Other.AtlasSize)
				}
			},
			teardown: func() {
				*flagCascades = 0
				*flagDirAtlas = 0
				*flagOtherAtlas = 0
			},
		},
		{
			name: "scene flags",
			setup: func() {
				*flagScene = "other.yaml"
				*flagFrames = 5
				*flagOut = "out"
			},
			verify: func(cfg *Config) {
				if cfg.Scene.Path != "other.yaml" || cfg.Scene.Frames != 5 || cfg.Scene.OutputDir != "out" {
					t.Errorf("unexpected scene config %+v", cfg.Scene)
				}
			},
			teardown: func() {
				*flagScene = ""
				*flagFrames = 0
				*flagOut = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			tt.setup()
			defer tt.teardown()

			// Apply flags to default config
			cfg := Default()
			applyFlags(cfg)

			// Verify
			tt.verify(cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "shadows.yaml")

	yamlContent := `
shadows:
  directional:
    atlas_size: 2048
    cascade_count: 3
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flag to override config file
	*flagConfig = configPath
	*flagCascades = 1
	defer func() {
		*flagConfig = ""
		*flagCascades = 0
	}()

	// Load config
	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Cascade count should be from flag (1), not file (3)
	if cfg.Shadows.Directional.CascadeCount != 1 {
		t.Errorf("expected 1 cascade from flag, got %d", cfg.Shadows.Directional.CascadeCount)
	}

	// Atlas size should be from file (2048) since no flag override
	if cfg.Shadows.Directional.AtlasSize != 2048 {
		t.Errorf("expected atlas 2048 from file, got %d", cfg.Shadows.Directional.AtlasSize)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "shadows.yaml")
	if err := os.WriteFile(configPath, []byte("shadows:\n  directional:\n    atlas_size: 1000\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); !errors.Is(err, shadow.ErrInvalidSettings) {
		t.Errorf("expected ErrInvalidSettings, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "env.yaml")
	if err := os.WriteFile(configPath, []byte("scene:\n  frames: 5\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv(EnvConfigPath, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Scene.Frames != 5 {
		t.Errorf("expected 5 frames from env config, got %d", cfg.Scene.Frames)
	}
	if cfg.Source != configPath {
		t.Errorf("expected source %s, got %s", configPath, cfg.Source)
	}
}

func TestLoadExplicitMissing(t *testing.T) {
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected missing file error, got %v", err)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(EnvConfigPath, "")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}
	if cfg.Source != "" {
		t.Errorf("expected no source, got %s", cfg.Source)
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "shadows.yaml")

	cfg := Default()
	cfg.Shadows.Directional.Filter = shadow.FilterPCF7x7
	cfg.Platform.ReversedZ = true
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if loaded.Shadows.Directional.Filter != shadow.FilterPCF7x7 {
		t.Errorf("expected pcf7x7 after reload, got %v", loaded.Shadows.Directional.Filter)
	}
	if !loaded.Platform.ReversedZ {
		t.Error("expected reversed-Z after reload")
	}
}

func TestSaveToSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shadows.yaml")

	cfg := Default()
	cfg.Source = path
	cfg.Scene.Frames = 7
	if err := cfg.Save(); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if loaded.Scene.Frames != 7 {
		t.Errorf("expected 7 frames after reload, got %d", loaded.Scene.Frames)
	}
}
