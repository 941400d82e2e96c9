package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagReversedZ  = flag.Bool("reversed-z", false, "Target a reversed-Z depth buffer")
	flagCascades   = flag.Int("cascades", 0, "Directional cascade count (1-4)")
	flagDirAtlas   = flag.Int("dir-atlas", 0, "Directional shadow atlas size")
	flagOtherAtlas = flag.Int("other-atlas", 0, "Spot/point shadow atlas size")
	flagScene      = flag.String("scene", "", "Path to scene file")
	flagFrames     = flag.Int("frames", 0, "Number of frames to run")
	flagOut        = flag.String("out", "", "Directory for debug images")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagReversedZ {
		cfg.Platform.ReversedZ = true
	}
	if *flagCascades > 0 {
		cfg.Shadows.Directional.CascadeCount = *flagCascades
	}
	if *flagDirAtlas > 0 {
		cfg.Shadows.Directional.AtlasSize = *flagDirAtlas
	}
	if *flagOtherAtlas > 0 {
		cfg.Shadows.Other.AtlasSize = *flagOtherAtlas
	}
	if *flagScene != "" {
		cfg.Scene.Path = *flagScene
	}
	if *flagFrames > 0 {
		cfg.Scene.Frames = *flagFrames
	}
	if *flagOut != "" {
		cfg.Scene.OutputDir = *flagOut
	}
}
