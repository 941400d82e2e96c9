// Package shadow plans and renders shadow atlases for a real-time
// renderer: it reserves atlas tiles for lights, renders cascades, spot
// and cube-face shadow maps through a backend, and publishes the sampling
// matrices and filter parameters the shading stage consumes.
package shadow

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/logger"
)

// State is the frame lifecycle state of a Controller.
type State int

const (
	StateIdle State = iota
	StateReserving
	StateRendering
	StatePublished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReserving:
		return "reserving"
	case StateRendering:
		return "rendering"
	case StatePublished:
		return "published"
	}
	return "unknown"
}

// Capabilities are platform properties resolved once at startup.
type Capabilities struct {
	// ReversedZ is set when the depth buffer maps near to 1 and far to 0.
	ReversedZ bool
}

// frameData is the scratch state of one frame.
type frameData struct {
	directionalMatrices   [MaxDirectionalLights * MaxCascades]mgl32.Mat4
	otherMatrices         [MaxOtherTiles]mgl32.Mat4
	otherTiles            [MaxOtherTiles]mgl32.Vec4
	cascadeCullingSpheres [MaxCascades]mgl32.Vec4
	cascadeData           [MaxCascades]mgl32.Vec4
	atlasSizes            mgl32.Vec4

	directionalAtlas TargetID
	otherAtlas       TargetID
}

// Controller owns the shadow state of one camera. It is not safe for
// concurrent use; a frame runs Begin, reservations, Render, Cleanup.
type Controller struct {
	settings Settings
	caps     Capabilities
	backend  Backend

	state  State
	culler Culler
	ledger ledger
	frame  frameData
}

// NewController validates settings and returns an idle controller.
func NewController(settings Settings, caps Capabilities, backend Backend) (*Controller, error) {
	if backend == nil {
		return nil, errors.New("shadow: nil backend")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Controller{
		settings: settings,
		caps:     caps,
		backend:  backend,
	}, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// Settings returns the active settings.
func (c *Controller) Settings() Settings {
	return c.settings
}

// SetSettings replaces the settings between frames.
func (c *Controller) SetSettings(s Settings) error {
	if c.state != StateIdle {
		return fmt.Errorf("%w: settings changed while %s", ErrInvalidState, c.state)
	}
	if err := s.Validate(); err != nil {
		return err
	}
	c.settings = s
	return nil
}

// DirectionalCount returns the number of directional lights holding tiles.
func (c *Controller) DirectionalCount() int {
	return c.ledger.directionalCount
}

// OtherTileCount returns the number of other-light tiles in use.
func (c *Controller) OtherTileCount() int {
	return c.ledger.otherCount
}

// Begin starts a frame with the given culling results.
func (c *Controller) Begin(culler Culler) error {
	if c.state != StateIdle {
		return fmt.Errorf("%w: begin while %s", ErrInvalidState, c.state)
	}
	if culler == nil {
		return errors.New("shadow: nil culler")
	}
	c.culler = culler
	c.ledger.reset()
	c.frame = frameData{}
	c.state = StateReserving
	return nil
}

// ReserveDirectional reserves cascade tiles for a directional light.
func (c *Controller) ReserveDirectional(light Light, visibleLight int) (Reservation, error) {
	if c.state != StateReserving {
		return disabledReservation(), fmt.Errorf("%w: reserve while %s", ErrInvalidState, c.state)
	}
	return c.ledger.reserveDirectional(light, visibleLight, c.settings.Directional.CascadeCount, c.culler), nil
}

// ReserveOther reserves one tile for a spot light or six for a point light.
func (c *Controller) ReserveOther(light Light, visibleLight int) (Reservation, error) {
	if c.state != StateReserving {
		return disabledReservation(), fmt.Errorf("%w: reserve while %s", ErrInvalidState, c.state)
	}
	return c.ledger.reserveOther(light, visibleLight, c.culler), nil
}

// Render draws both atlases and publishes the frame's globals. On error
// every target allocated this frame is released and the controller
// returns to idle.
func (c *Controller) Render() error {
	if c.state != StateReserving {
		return fmt.Errorf("%w: render while %s", ErrInvalidState, c.state)
	}
	c.state = StateRendering

	if err := c.render(); err != nil {
		if relErr := c.release(); relErr != nil {
			err = errors.Join(err, relErr)
		}
		c.state = StateIdle
		return err
	}
	c.state = StatePublished
	return nil
}

func (c *Controller) render() error {
	if c.ledger.directionalCount > 0 {
		if err := c.renderDirectionalAtlas(); err != nil {
			return err
		}
	} else {
		// Keeps the shader's atlas binding valid at no cost.
		id, err := c.allocate(1, 1)
		if err != nil {
			return err
		}
		c.frame.directionalAtlas = id
	}

	if c.ledger.otherCount > 0 {
		if err := c.renderOtherAtlas(); err != nil {
			return err
		}
	}

	g := c.globals()
	if err := c.backend.Publish(&g); err != nil {
		return fmt.Errorf("publishing shadow globals: %w", err)
	}
	return nil
}

func (c *Controller) allocate(width, height int) (TargetID, error) {
	id, err := c.backend.AllocateDepthTarget(width, height, DepthBits)
	if err != nil {
		return 0, fmt.Errorf("%w: %dx%d: %w", ErrAllocation, width, height, err)
	}
	return id, nil
}

func (c *Controller) renderDirectionalAtlas() error {
	atlasSize := c.settings.Directional.AtlasSize
	c.frame.atlasSizes[0] = float32(atlasSize)
	c.frame.atlasSizes[1] = 1 / float32(atlasSize)

	id, err := c.allocate(atlasSize, atlasSize)
	if err != nil {
		return err
	}
	c.frame.directionalAtlas = id

	tiles := c.ledger.directionalCount * c.settings.Directional.CascadeCount
	split := PlanSplit(tiles)
	tileSize := atlasSize / split
	logger.Debug("rendering directional shadow atlas",
		zap.Int("lights", c.ledger.directionalCount),
		zap.Int("tiles", tiles),
		zap.Int("split", split),
		zap.Int("tileSize", tileSize),
	)

	for i := 0; i < c.ledger.directionalCount; i++ {
		if err := c.renderDirectionalLight(id, i, split, tileSize); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) renderOtherAtlas() error {
	atlasSize := c.settings.Other.AtlasSize
	c.frame.atlasSizes[2] = float32(atlasSize)
	c.frame.atlasSizes[3] = 1 / float32(atlasSize)

	id, err := c.allocate(atlasSize, atlasSize)
	if err != nil {
		return err
	}
	c.frame.otherAtlas = id

	tiles := c.ledger.otherCount
	split := PlanSplit(tiles)
	tileSize := atlasSize / split
	logger.Debug("rendering other shadow atlas",
		zap.Int("tiles", tiles),
		zap.Int("split", split),
		zap.Int("tileSize", tileSize),
	)

	for i := 0; i < c.ledger.otherCount; {
		if c.ledger.other[i].isPoint {
			if err := c.renderPointLight(id, i, split, tileSize); err != nil {
				return err
			}
			i += CubeFaceCount
		} else {
			if err := c.renderSpotLight(id, i, split, tileSize); err != nil {
				return err
			}
			i++
		}
	}
	return nil
}

func (c *Controller) globals() Globals {
	g := Globals{
		DirectionalAtlas:      c.frame.directionalAtlas,
		OtherAtlas:            c.frame.otherAtlas,
		DirectionalMatrices:   c.frame.directionalMatrices,
		OtherMatrices:         c.frame.otherMatrices,
		OtherTiles:            c.frame.otherTiles,
		CascadeCullingSpheres: c.frame.cascadeCullingSpheres,
		CascadeData:           c.frame.cascadeData,
		AtlasSizes:            c.frame.atlasSizes,
		DistanceFade:          distanceFade(c.settings),
		Variants:              SelectVariants(c.settings, c.ledger.useShadowMask),
	}
	if g.OtherAtlas == 0 {
		g.OtherAtlas = g.DirectionalAtlas
	}
	if c.ledger.directionalCount > 0 {
		g.CascadeCount = c.settings.Directional.CascadeCount
	}
	return g
}

// distanceFade returns (1/maxDistance, 1/distanceFade, 1/(1-f²)) where f is
// the inverse cascade fade, as expected by the shader's fade terms.
func distanceFade(s Settings) mgl32.Vec4 {
	f := 1 - s.Directional.CascadeFade
	return mgl32.Vec4{
		1 / s.MaxDistance,
		1 / s.DistanceFade,
		1 / (1 - f*f),
		0,
	}
}

// Cleanup releases the frame's atlases back to the backend.
func (c *Controller) Cleanup() error {
	err := c.release()
	c.state = StateIdle
	c.culler = nil
	return err
}

func (c *Controller) release() error {
	var errs []error
	if c.frame.directionalAtlas != 0 {
		if err := c.backend.ReleaseTarget(c.frame.directionalAtlas); err != nil {
			errs = append(errs, fmt.Errorf("releasing directional atlas: %w", err))
		}
		c.frame.directionalAtlas = 0
	}
	if c.frame.otherAtlas != 0 {
		if err := c.backend.ReleaseTarget(c.frame.otherAtlas); err != nil {
			errs = append(errs, fmt.Errorf("releasing other atlas: %w", err))
		}
		c.frame.otherAtlas = 0
	}
	return errors.Join(errs...)
}
