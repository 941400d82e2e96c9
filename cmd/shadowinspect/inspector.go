package main

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"path/filepath"

	"github.com/AllenDang/cimgui-go/backend"
	"github.com/AllenDang/cimgui-go/backend/sdlbackend"
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/backend/glbackend"
	"github.com/Faultbox/midgard-shadows/internal/config"
	"github.com/Faultbox/midgard-shadows/internal/debug"
	"github.com/Faultbox/midgard-shadows/internal/lighting"
	"github.com/Faultbox/midgard-shadows/internal/logger"
	"github.com/Faultbox/midgard-shadows/internal/scene"
	"github.com/Faultbox/midgard-shadows/internal/shadow"
)

const (
	panelWidth  = 340
	previewSize = 512
)

// tracingBackend keeps the draw requests of the last frame for the
// layout view.
type tracingBackend struct {
	*glbackend.Backend
	draws []shadow.DrawRequest
}

func (t *tracingBackend) SubmitShadowDraws(req shadow.DrawRequest) error {
	t.draws = append(t.draws, req)
	return t.Backend.SubmitShadowDraws(req)
}

// Inspector is the ImGui application.
type Inspector struct {
	cfg     *config.Config
	backend backend.Backend[sdlbackend.SDLWindowFlags]

	shadows *tracingBackend
	ctrl    *shadow.Controller
	stage   *lighting.Lighting
	scene   *scene.Scene

	// UI state mirrored into settings on change.
	cascades    int32
	dirFilter   int32
	otherFilter int32
	blend       int32
	dirAtlasExp int32
	showLayout  bool

	dirty      bool
	lastErr    error
	lastLights *lighting.Globals
	textures   [2]uint32

	// Scene paths picked in the file dialog, applied on the UI thread.
	pendingScene chan string
}

// NewInspector creates the window, GL resources and the first scene.
func NewInspector(cfg *config.Config) (*Inspector, error) {
	app := &Inspector{
		cfg:          cfg,
		cascades:     int32(cfg.Shadows.Directional.CascadeCount),
		dirFilter:    int32(cfg.Shadows.Directional.Filter),
		otherFilter:  int32(cfg.Shadows.Other.Filter),
		blend:        int32(cfg.Shadows.Directional.CascadeBlend),
		dirAtlasExp:  int32(log2(cfg.Shadows.Directional.AtlasSize)),
		dirty:        true,
		pendingScene: make(chan string, 1),
	}

	var err error
	app.backend, err = backend.CreateBackend(sdlbackend.NewSDLBackend())
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}
	app.backend.SetBgColor(imgui.NewVec4(0.1, 0.1, 0.12, 1.0))
	app.backend.CreateWindow("Midgard Shadow Inspector", cfg.Window.Width, cfg.Window.Height)

	// Initialize OpenGL
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("init opengl: %w", err)
	}

	if err := app.loadScene(cfg.Scene.Path); err != nil {
		return nil, err
	}
	return app, nil
}

// loadScene replaces the scene and its GL backend.
func (app *Inspector) loadScene(path string) error {
	sc, err := scene.Load(path)
	if err != nil {
		return err
	}

	gb, err := glbackend.New(sc.Casters, glbackend.Options{ReversedZ: app.cfg.Platform.ReversedZ})
	if err != nil {
		return err
	}
	tb := &tracingBackend{Backend: gb}
	ctrl, err := shadow.NewController(app.cfg.Shadows, app.cfg.Capabilities(), tb)
	if err != nil {
		gb.Destroy()
		return err
	}

	if app.shadows != nil {
		app.shadows.Destroy()
	}
	app.scene = sc
	app.shadows = tb
	app.ctrl = ctrl
	app.stage = lighting.New(ctrl)
	app.cfg.Scene.Path = path
	app.backend.SetWindowTitle(fmt.Sprintf("Midgard Shadow Inspector - %s", filepath.Base(path)))
	app.dirty = true
	return nil
}

// Close releases GL resources.
func (app *Inspector) Close() {
	for i := range app.textures {
		if app.textures[i] != 0 {
			gl.DeleteTextures(1, &app.textures[i])
			app.textures[i] = 0
		}
	}
	if app.shadows != nil {
		app.shadows.Destroy()
		app.shadows = nil
	}
}

// Run starts the main render loop.
func (app *Inspector) Run() {
	app.backend.Run(app.render)
}

func (app *Inspector) render() {
	select {
	case path := <-app.pendingScene:
		if err := app.loadScene(path); err != nil {
			app.lastErr = err
			logger.Error("failed to load scene", zap.String("path", path), zap.Error(err))
		}
	default:
	}

	if app.dirty {
		app.dirty = false
		app.lastErr = app.renderShadows()
		if app.lastErr != nil {
			logger.Error("shadow frame failed", zap.Error(app.lastErr))
		}
	}

	viewport := imgui.MainViewport()
	workPos := viewport.WorkPos()
	workSize := viewport.WorkSize()
	flags := imgui.WindowFlagsNoMove | imgui.WindowFlagsNoResize | imgui.WindowFlagsNoCollapse

	imgui.SetNextWindowPos(imgui.NewVec2(workPos.X, workPos.Y))
	imgui.SetNextWindowSize(imgui.NewVec2(panelWidth, workSize.Y))
	if imgui.BeginV("Settings", nil, flags) {
		app.renderSettings()
		imgui.Separator()
		app.renderLights()
	}
	imgui.End()

	imgui.SetNextWindowPos(imgui.NewVec2(workPos.X+panelWidth, workPos.Y))
	imgui.SetNextWindowSize(imgui.NewVec2(workSize.X-panelWidth, workSize.Y))
	if imgui.BeginV("Atlases", nil, flags|imgui.WindowFlagsHorizontalScrollbar) {
		app.renderAtlases()
	}
	imgui.End()
}

// renderShadows runs one shadow frame and refreshes the preview textures.
func (app *Inspector) renderShadows() error {
	if err := app.ctrl.SetSettings(app.cfg.Shadows); err != nil {
		return err
	}
	app.shadows.draws = app.shadows.draws[:0]

	g, err := app.stage.Setup(app.scene.Culler(app.cfg.Shadows.MaxDistance), app.scene.VisibleLights())
	if err != nil {
		return err
	}
	app.lastLights = g

	var errs []error
	published := app.shadows.Globals()
	atlases := []struct {
		id   shadow.TargetID
		kind shadow.AtlasKind
		size int
	}{
		{published.DirectionalAtlas, shadow.AtlasDirectional, app.cfg.Shadows.Directional.AtlasSize},
		{published.OtherAtlas, shadow.AtlasOther, app.cfg.Shadows.Other.AtlasSize},
	}
	for i, atlas := range atlases {
		img, err := app.preview(atlas.id, atlas.kind, atlas.size)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		app.textures[i] = uploadRGBA(app.textures[i], img)
	}

	errs = append(errs, app.stage.Cleanup())
	return errors.Join(errs...)
}

func (app *Inspector) preview(id shadow.TargetID, kind shadow.AtlasKind, size int) (*image.RGBA, error) {
	if app.showLayout {
		layout := debug.AtlasLayout(app.shadows.draws, kind, size)
		return scaleDown(layout, previewSize), nil
	}
	depth, w, h, err := app.shadows.ReadDepth(id)
	if err != nil {
		return nil, err
	}
	grey, err := debug.DepthImage(depth, w, h, min(previewSize, w), app.cfg.Platform.ReversedZ)
	if err != nil {
		return nil, err
	}
	return toRGBA(grey), nil
}

func (app *Inspector) renderSettings() {
	imgui.Text(fmt.Sprintf("Scene: %s", filepath.Base(app.cfg.Scene.Path)))
	if imgui.ButtonV("Open Scene...", imgui.NewVec2(-1, 0)) {
		app.openSceneDialog()
	}
	imgui.Spacing()

	s := &app.cfg.Shadows
	changed := false
	if imgui.SliderIntV("Cascades", &app.cascades, 1, shadow.MaxCascades, "%d", imgui.SliderFlagsNone) {
		s.Directional.CascadeCount = int(app.cascades)
		changed = true
	}
	if imgui.SliderIntV("Dir atlas", &app.dirAtlasExp, 8, 13, fmt.Sprintf("%d", 1<<app.dirAtlasExp), imgui.SliderFlagsNone) {
		s.Directional.AtlasSize = 1 << app.dirAtlasExp
		changed = true
	}
	if imgui.SliderIntV("Dir filter", &app.dirFilter, 0, 3, shadow.FilterMode(app.dirFilter).String(), imgui.SliderFlagsNone) {
		s.Directional.Filter = shadow.FilterMode(app.dirFilter)
		changed = true
	}
	if imgui.SliderIntV("Other filter", &app.otherFilter, 0, 3, shadow.FilterMode(app.otherFilter).String(), imgui.SliderFlagsNone) {
		s.Other.Filter = shadow.FilterMode(app.otherFilter)
		changed = true
	}
	if imgui.SliderIntV("Blend", &app.blend, 0, 2, shadow.CascadeBlendMode(app.blend).String(), imgui.SliderFlagsNone) {
		s.Directional.CascadeBlend = shadow.CascadeBlendMode(app.blend)
		changed = true
	}
	if imgui.SliderFloatV("Max distance", &s.MaxDistance, 10, 500, "%.0f", imgui.SliderFlagsNone) {
		changed = true
	}
	if imgui.Checkbox("Show tile layout", &app.showLayout) {
		changed = true
	}
	if changed {
		app.dirty = true
	}

	if app.lastErr != nil {
		imgui.TextColored(imgui.NewVec4(1, 0.4, 0.4, 1), app.lastErr.Error())
	}
	if imgui.ButtonV("Save Settings", imgui.NewVec2(-1, 0)) {
		if err := app.cfg.Save(); err != nil {
			app.lastErr = err
		}
	}
}

func (app *Inspector) renderLights() {
	g := app.lastLights
	if g == nil {
		imgui.TextDisabled("No frame rendered")
		return
	}
	imgui.Text(fmt.Sprintf("Directional shadows: %d", app.ctrl.DirectionalCount()))
	imgui.Text(fmt.Sprintf("Other tiles: %d / %d", app.ctrl.OtherTileCount(), shadow.MaxOtherTiles))
	imgui.Spacing()

	dir, other := 0, 0
	for _, l := range app.scene.Lights {
		var v [4]float32
		if l.Visible.Shadow.Type == shadow.LightDirectional {
			if dir >= g.DirectionalCount {
				continue
			}
			v = g.DirectionalShadowData[dir]
			dir++
		} else {
			if other >= g.OtherCount {
				continue
			}
			v = g.OtherShadowData[other]
			other++
		}
		imgui.Text(fmt.Sprintf("%s (%s)", l.Name, l.Visible.Shadow.Type))
		imgui.TextDisabled(fmt.Sprintf("  %.2f %.0f %.2f %.0f", v[0], v[1], v[2], v[3]))
	}
}

func (app *Inspector) renderAtlases() {
	for i, name := range []string{"Directional", "Other"} {
		if app.textures[i] == 0 {
			continue
		}
		imgui.BeginGroup()
		imgui.Text(name)
		texRef := imgui.NewTextureRefTextureID(imgui.TextureID(app.textures[i]))
		imgui.ImageWithBgV(
			*texRef,
			imgui.NewVec2(previewSize, previewSize),
			imgui.NewVec2(0, 0),
			imgui.NewVec2(1, 1),
			imgui.NewVec4(0.15, 0.15, 0.15, 1.0), // Dark background
			imgui.NewVec4(1, 1, 1, 1),            // White tint (no tint)
		)
		imgui.EndGroup()
		if i == 0 {
			imgui.SameLine()
		}
	}
}

// openSceneDialog shows a native file dialog to select a scene file.
func (app *Inspector) openSceneDialog() {
	// The dialog blocks, so it runs off the UI thread; the path is applied
	// in render()
	go func() {
		filename, err := dialog.File().
			Filter("Scene Files", "yaml", "yml").
			Filter("All Files", "*").
			Title("Open Scene").
			Load()
		if err != nil {
			if !errors.Is(err, dialog.ErrCancelled) {
				logger.Warn("file dialog error", zap.Error(err))
			}
			return
		}
		select {
		case app.pendingScene <- filename:
		default:
		}
	}()
}

// uploadRGBA creates or updates a texture with img.
func uploadRGBA(texID uint32, img *image.RGBA) uint32 {
	if texID == 0 {
		gl.GenTextures(1, &texID)
	}
	b := img.Bounds()
	gl.BindTexture(gl.TEXTURE_2D, texID)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(b.Dx()), int32(b.Dy()), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return texID
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

func scaleDown(img *image.RGBA, size int) *image.RGBA {
	if img.Bounds().Dx() <= size {
		return img
	}
	return debug.Scale(img, size)
}

func log2(n int) int {
	e := 0
	for n > 1 {
		n >>= 1
		e++
	}
	return e
}
