// Package glbackend renders shadow atlases with OpenGL 4.1.
//
// All methods must be called from the thread that owns the GL context.
package glbackend

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-shadows/internal/culling"
	"github.com/Faultbox/midgard-shadows/internal/logger"
	"github.com/Faultbox/midgard-shadows/internal/shadow"
)

// ErrUnknownTarget is returned for a target id that is not allocated.
var ErrUnknownTarget = errors.New("glbackend: unknown or released target")

// Options configures a Backend.
type Options struct {
	// ReversedZ renders near depth as 1 and compares with GEQUAL.
	ReversedZ bool
}

// Backend implements shadow.Backend on the current GL context, drawing
// the scene's caster boxes.
type Backend struct {
	opts    Options
	casters []culling.AABB

	program     uint32
	locViewProj int32
	locModel    int32
	vao, vbo    uint32
	vertexCount int32

	targets map[shadow.TargetID]*depthMap
	nextID  shadow.TargetID

	// Culling sphere of the last slice drawn per light, for blend culling.
	spheres map[sliceKey]mgl32.Vec4

	globals *shadow.Globals
	// DrawnCasters counts caster draws since the last Publish.
	DrawnCasters int
}

// New creates the depth program and caster geometry.
// Must be called after the OpenGL context is created.
func New(casters []culling.AABB, opts Options) (*Backend, error) {
	program, err := CompileProgram(depthVertexShader, depthFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("compiling depth program: %w", err)
	}

	b := &Backend{
		opts:        opts,
		casters:     casters,
		program:     program,
		locViewProj: uniform(program, "uViewProj"),
		locModel:    uniform(program, "uModel"),
		vertexCount: int32(len(cubeVertices) / 3),
		targets:     make(map[shadow.TargetID]*depthMap),
		spheres:     make(map[sliceKey]mgl32.Vec4),
	}

	gl.GenVertexArrays(1, &b.vao)
	gl.BindVertexArray(b.vao)
	gl.GenBuffers(1, &b.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(cubeVertices)*4, gl.Ptr(cubeVertices), gl.STATIC_DRAW)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 3*4, 0)
	gl.EnableVertexAttribArray(0)
	gl.BindVertexArray(0)

	logger.Debug("GL shadow backend ready",
		zap.Int("casters", len(casters)),
		zap.Bool("reversedZ", opts.ReversedZ),
	)
	return b, nil
}

func (b *Backend) farDepth() float32 {
	if b.opts.ReversedZ {
		return 0
	}
	return 1
}

// AllocateDepthTarget implements shadow.Backend. Released targets of the
// same size are reused.
func (b *Backend) AllocateDepthTarget(width, height, depthBits int) (shadow.TargetID, error) {
	if depthBits != shadow.DepthBits {
		return 0, fmt.Errorf("unsupported depth precision %d", depthBits)
	}
	for id, dm := range b.targets {
		if !dm.inUse && dm.width == int32(width) && dm.height == int32(height) {
			dm.inUse = true
			dm.clear(b.farDepth())
			return id, nil
		}
	}

	dm, err := newDepthMap(int32(width), int32(height), b.opts.ReversedZ)
	if err != nil {
		return 0, err
	}
	dm.inUse = true
	dm.clear(b.farDepth())
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	b.nextID++
	b.targets[b.nextID] = dm
	logger.Debug("allocated depth target",
		zap.Uint32("id", uint32(b.nextID)),
		zap.Int("width", width),
		zap.Int("height", height),
	)
	return b.nextID, nil
}

// ReleaseTarget implements shadow.Backend.
func (b *Backend) ReleaseTarget(id shadow.TargetID) error {
	dm, ok := b.targets[id]
	if !ok || !dm.inUse {
		return fmt.Errorf("%w: %d", ErrUnknownTarget, id)
	}
	dm.inUse = false
	return nil
}

// SubmitShadowDraws implements shadow.Backend.
func (b *Backend) SubmitShadowDraws(req shadow.DrawRequest) error {
	dm, ok := b.targets[req.Target]
	if !ok || !dm.inUse {
		return fmt.Errorf("%w: %d", ErrUnknownTarget, req.Target)
	}
	vp := req.Viewport
	if vp.X < 0 || vp.Y < 0 || int32(vp.X+vp.Width) > dm.width || int32(vp.Y+vp.Height) > dm.height {
		return fmt.Errorf("viewport %+v outside %dx%d target", vp, dm.width, dm.height)
	}

	key := sliceKey{atlas: req.Atlas, light: req.VisibleLight}
	var previous mgl32.Vec4
	if req.Atlas == shadow.AtlasDirectional && req.Slice > 0 {
		previous = b.spheres[key]
	}
	b.spheres[key] = req.Split.CullingSphere
	selected := culling.SelectCasters(req.Split, previous, b.casters)

	gl.BindFramebuffer(gl.FRAMEBUFFER, dm.fbo)
	gl.Viewport(int32(vp.X), int32(vp.Y), int32(vp.Width), int32(vp.Height))

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthMask(true)
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)

	slope, constant := req.Bias.SlopeScale, req.Bias.Constant
	if b.opts.ReversedZ {
		gl.DepthFunc(gl.GREATER)
		slope, constant = -slope, -constant
	} else {
		gl.DepthFunc(gl.LESS)
	}
	gl.Enable(gl.POLYGON_OFFSET_FILL)
	gl.PolygonOffset(slope, constant)

	if req.Pancaking {
		gl.Enable(gl.DEPTH_CLAMP)
	} else {
		gl.Disable(gl.DEPTH_CLAMP)
	}

	gl.UseProgram(b.program)
	viewProj := viewProjection(req, b.opts.ReversedZ)
	gl.UniformMatrix4fv(b.locViewProj, 1, false, &viewProj[0])
	gl.BindVertexArray(b.vao)
	for _, i := range selected {
		model := casterModel(b.casters[i])
		gl.UniformMatrix4fv(b.locModel, 1, false, &model[0])
		gl.DrawArrays(gl.TRIANGLES, 0, b.vertexCount)
	}
	b.DrawnCasters += len(selected)

	gl.BindVertexArray(0)
	gl.Disable(gl.POLYGON_OFFSET_FILL)
	gl.Disable(gl.DEPTH_CLAMP)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	if glErr := gl.GetError(); glErr != gl.NO_ERROR {
		return fmt.Errorf("shadow draw for light %d tile %d: GL error 0x%x", req.VisibleLight, req.Tile, glErr)
	}
	return nil
}

// Publish implements shadow.Backend. The globals are applied to shading
// programs with ApplyUniforms.
func (b *Backend) Publish(g *shadow.Globals) error {
	published := *g
	b.globals = &published
	logger.Debug("published shadow globals",
		zap.Int("cascades", g.CascadeCount),
		zap.Int("casterDraws", b.DrawnCasters),
		zap.Strings("keywords", g.Variants.Keywords()),
	)
	b.DrawnCasters = 0
	clear(b.spheres)
	return nil
}

// Globals returns the last published globals, or nil.
func (b *Backend) Globals() *shadow.Globals {
	return b.globals
}

// Texture returns the GL depth texture of a target.
func (b *Backend) Texture(id shadow.TargetID) (uint32, bool) {
	dm, ok := b.targets[id]
	if !ok {
		return 0, false
	}
	return dm.texture, true
}

// ReadDepth reads back a target's depth values, bottom row first.
func (b *Backend) ReadDepth(id shadow.TargetID) (depth []float32, width, height int, err error) {
	dm, ok := b.targets[id]
	if !ok || !dm.inUse {
		return nil, 0, 0, fmt.Errorf("%w: %d", ErrUnknownTarget, id)
	}
	return dm.read(), int(dm.width), int(dm.height), nil
}

// Destroy releases all GPU resources.
func (b *Backend) Destroy() {
	for id, dm := range b.targets {
		dm.destroy()
		delete(b.targets, id)
	}
	if b.vbo != 0 {
		gl.DeleteBuffers(1, &b.vbo)
		b.vbo = 0
	}
	if b.vao != 0 {
		gl.DeleteVertexArrays(1, &b.vao)
		b.vao = 0
	}
	if b.program != 0 {
		gl.DeleteProgram(b.program)
		b.program = 0
	}
}
