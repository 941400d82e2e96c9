// Package config handles shadow tool configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/midgard-shadows/internal/shadow"
)

// Config holds all settings of the shadow tools.
type Config struct {
	Shadows  shadow.Settings `yaml:"shadows"`
	Platform PlatformConfig  `yaml:"platform"`
	Window   WindowConfig    `yaml:"window"`
	Logging  LoggingConfig   `yaml:"logging"`
	Scene    SceneConfig     `yaml:"scene"`

	// Source is the file the config was read from, empty for defaults.
	Source string `yaml:"-"`
}

// PlatformConfig holds properties of the target graphics platform.
type PlatformConfig struct {
	ReversedZ bool `yaml:"reversed_z"` // depth buffer maps near to 1
}

// WindowConfig holds display settings for the capture tool.
type WindowConfig struct {
	Width  int  `yaml:"width"`
	Height int  `yaml:"height"`
	VSync  bool `yaml:"vsync"`
	Hidden bool `yaml:"hidden"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// SceneConfig selects the scene and how it is run.
type SceneConfig struct {
	Path   string `yaml:"path"`
	Frames int    `yaml:"frames"`
	// OutputDir receives layout and depth images. Empty disables them.
	OutputDir string `yaml:"output_dir"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Shadows: shadow.DefaultSettings(),
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			VSync:  true,
			Hidden: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Scene: SceneConfig{
			Path:   "scene.yaml",
			Frames: 1,
		},
	}
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if err := c.Shadows.Validate(); err != nil {
		return err
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("invalid window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Scene.Frames < 1 {
		return fmt.Errorf("scene frames must be at least 1, got %d", c.Scene.Frames)
	}
	return nil
}

// Capabilities returns the platform capabilities for the shadow
// controller.
func (c *Config) Capabilities() shadow.Capabilities {
	return shadow.Capabilities{ReversedZ: c.Platform.ReversedZ}
}
