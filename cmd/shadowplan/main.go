// Package main plans the shadow atlases of a scene without a GPU and logs
// what the shading stage would receive.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/backend/record"
	"github.com/Faultbox/midgard-shadows/internal/config"
	"github.com/Faultbox/midgard-shadows/internal/debug"
	"github.com/Faultbox/midgard-shadows/internal/lighting"
	"github.com/Faultbox/midgard-shadows/internal/logger"
	"github.com/Faultbox/midgard-shadows/internal/scene"
	"github.com/Faultbox/midgard-shadows/internal/shadow"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}

	logger.Info("=== Midgard Shadow Planner ===")
	if cfg.Source != "" {
		logger.Info("loaded config", zap.String("path", cfg.Source))
	}
	logger.Sugar.Debugf("Config: %+v", cfg)

	if err := run(cfg); err != nil {
		logger.Error("shadow planning failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run(cfg *config.Config) error {
	sc, err := scene.Load(cfg.Scene.Path)
	if err != nil {
		return err
	}

	backend := record.New()
	ctrl, err := shadow.NewController(cfg.Shadows, cfg.Capabilities(), backend)
	if err != nil {
		return fmt.Errorf("creating shadow controller: %w", err)
	}
	stage := lighting.New(ctrl)
	culler := sc.Culler(cfg.Shadows.MaxDistance)
	lights := sc.VisibleLights()

	for frame := 0; frame < cfg.Scene.Frames; frame++ {
		backend.Reset()

		g, err := stage.Setup(culler, lights)
		if err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}
		logFrame(frame, sc, g, backend)

		if frame == cfg.Scene.Frames-1 && cfg.Scene.OutputDir != "" {
			if err := writeLayouts(cfg, backend); err != nil {
				_ = stage.Cleanup()
				return err
			}
		}

		if err := stage.Cleanup(); err != nil {
			return fmt.Errorf("frame %d cleanup: %w", frame, err)
		}
	}

	logger.Info("planning finished",
		zap.Int("frames", cfg.Scene.Frames),
		zap.Int("liveTargets", backend.Live()),
	)
	return nil
}

// logFrame logs the per-light shadow data in light order and the
// published globals.
func logFrame(frame int, sc *scene.Scene, g *lighting.Globals, backend *record.Backend) {
	dir, other := 0, 0
	for _, l := range sc.Lights {
		var data []float32
		switch l.Visible.Shadow.Type {
		case shadow.LightDirectional:
			if dir >= g.DirectionalCount {
				continue
			}
			data = g.DirectionalShadowData[dir][:]
			dir++
		default:
			if other >= g.OtherCount {
				continue
			}
			data = g.OtherShadowData[other][:]
			other++
		}
		logger.Info("light shadow data",
			zap.Int("frame", frame),
			zap.String("name", l.Name),
			zap.Stringer("id", l.ID),
			zap.Stringer("type", l.Visible.Shadow.Type),
			zap.Float32s("shadowData", data),
		)
	}

	pg := backend.Globals
	if pg == nil {
		return
	}
	logger.Info("shadow globals",
		zap.Int("frame", frame),
		zap.Int("draws", len(backend.Draws())),
		zap.Int("cascadeCount", pg.CascadeCount),
		zap.Float32s("atlasSizes", pg.AtlasSizes[:]),
		zap.Float32s("distanceFade", pg.DistanceFade[:]),
		zap.Strings("keywords", pg.Variants.Keywords()),
		zap.Bool("sharedAtlas", pg.OtherAtlas == pg.DirectionalAtlas),
	)
	for i := 0; i < pg.CascadeCount; i++ {
		logger.Debug("cascade",
			zap.Int("cascade", i),
			zap.Float32s("cullingSphere", pg.CascadeCullingSpheres[i][:]),
			zap.Float32s("data", pg.CascadeData[i][:]),
		)
	}
	for _, req := range backend.Draws() {
		logger.Debug("shadow draw",
			zap.Stringer("atlas", req.Atlas),
			zap.Int("light", req.VisibleLight),
			zap.Int("slice", req.Slice),
			zap.Int("tile", req.Tile),
			zap.Any("viewport", req.Viewport),
		)
	}
}

func writeLayouts(cfg *config.Config, backend *record.Backend) error {
	draws := backend.Draws()
	for _, atlas := range []struct {
		kind shadow.AtlasKind
		size int
	}{
		{shadow.AtlasDirectional, cfg.Shadows.Directional.AtlasSize},
		{shadow.AtlasOther, cfg.Shadows.Other.AtlasSize},
	} {
		path := filepath.Join(cfg.Scene.OutputDir, atlas.kind.String()+"_layout.png")
		if err := debug.SavePNG(path, debug.AtlasLayout(draws, atlas.kind, atlas.size)); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		logger.Info("wrote atlas layout", zap.String("path", path))
	}
	return nil
}
