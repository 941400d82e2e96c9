// Package main renders the shadow atlases of a scene with OpenGL, shades
// the scene through them and writes out the depth and shaded images.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/backend/glbackend"
	"github.com/Faultbox/midgard-shadows/internal/config"
	"github.com/Faultbox/midgard-shadows/internal/debug"
	"github.com/Faultbox/midgard-shadows/internal/lighting"
	"github.com/Faultbox/midgard-shadows/internal/logger"
	"github.com/Faultbox/midgard-shadows/internal/scene"
	"github.com/Faultbox/midgard-shadows/internal/shadow"
	"github.com/Faultbox/midgard-shadows/internal/window"
)

// previewSize is the edge length of the written depth images.
const previewSize = 1024

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

	logger.Info("=== Midgard Shadow Capture ===")
	if cfg.Source != "" {
		logger.Info("loaded config", zap.String("path", cfg.Source))
	}

	if err := run(cfg); err != nil {
		logger.Error("shadow capture failed", zap.Error(err))
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

	win, err := window.New(window.Config{
		Title:  "Midgard Shadows - " + filepath.Base(cfg.Scene.Path),
		Width:  cfg.Window.Width,
		Height: cfg.Window.Height,
		VSync:  cfg.Window.VSync,
		Hidden: cfg.Window.Hidden,
	})
	if err != nil {
		return fmt.Errorf("creating window: %w", err)
	}
	defer win.Close()

	backend, err := glbackend.New(sc.Casters, glbackend.Options{ReversedZ: cfg.Platform.ReversedZ})
	if err != nil {
		return err
	}
	defer backend.Destroy()

	receiver, err := glbackend.NewReceiver(backend, cfg.Window.Width, cfg.Window.Height)
	if err != nil {
		return err
	}
	defer receiver.Destroy()

	ctrl, err := shadow.NewController(cfg.Shadows, cfg.Capabilities(), backend)
	if err != nil {
		return fmt.Errorf("creating shadow controller: %w", err)
	}
	stage := lighting.New(ctrl)
	culler := sc.Culler(cfg.Shadows.MaxDistance)
	lights := sc.VisibleLights()

	outDir := cfg.Scene.OutputDir
	if outDir == "" {
		outDir = "."
	}

	for frame := 0; ; frame++ {
		lightGlobals, err := stage.Setup(culler, lights)
		if err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}

		if err := receiver.Draw(sc.Camera, culler.Casters(), lightGlobals); err != nil {
			return errors.Join(fmt.Errorf("frame %d: %w", frame, err), stage.Cleanup())
		}

		if frame == cfg.Scene.Frames-1 {
			if err := capture(backend, receiver, outDir, cfg.Platform.ReversedZ); err != nil {
				return errors.Join(err, stage.Cleanup())
			}
		}

		if err := stage.Cleanup(); err != nil {
			return fmt.Errorf("frame %d cleanup: %w", frame, err)
		}

		if cfg.Window.Hidden && frame >= cfg.Scene.Frames-1 {
			return nil
		}
		if !cfg.Window.Hidden {
			w, h := win.GetSize()
			gl.Viewport(0, 0, int32(w), int32(h))
			receiver.Present(w, h)
			win.SwapBuffers()
			if win.PollQuit() {
				return nil
			}
		}
	}
}

// capture writes the published atlases as depth images and the shaded
// scene as a color image.
func capture(backend *glbackend.Backend, receiver *glbackend.Receiver, outDir string, reversedZ bool) error {
	g := backend.Globals()
	if g == nil {
		return errors.New("no shadow globals published")
	}

	type atlasTarget struct {
		name string
		id   shadow.TargetID
	}
	atlases := []atlasTarget{{"directional", g.DirectionalAtlas}}
	if g.OtherAtlas != g.DirectionalAtlas {
		atlases = append(atlases, atlasTarget{"other", g.OtherAtlas})
	}

	for _, atlas := range atlases {
		depth, w, h, err := backend.ReadDepth(atlas.id)
		if err != nil {
			return fmt.Errorf("reading %s atlas: %w", atlas.name, err)
		}
		img, err := debug.DepthImage(depth, w, h, min(previewSize, w), reversedZ)
		if err != nil {
			return err
		}
		path := filepath.Join(outDir, atlas.name+"_depth.png")
		if err := debug.SavePNG(path, img); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		logger.Info("wrote depth image",
			zap.String("path", path),
			zap.Int("width", w),
			zap.Int("height", h),
		)
	}

	pixels, w, h := receiver.Pixels()
	img, err := debug.ColorImage(pixels, w, h)
	if err != nil {
		return err
	}
	path := filepath.Join(outDir, "scene.png")
	if err := debug.SavePNG(path, img); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	logger.Info("wrote shaded scene", zap.String("path", path))
	return nil
}
