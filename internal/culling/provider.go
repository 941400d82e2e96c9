// Package culling computes shadow view matrices and caster bounds for a
// camera, a set of visible lights and a set of shadow-caster boxes.
package culling

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-shadows/internal/shadow"
)

// Camera describes the viewing frustum shadows are fitted to.
type Camera struct {
	Position mgl32.Vec3
	Forward  mgl32.Vec3
	Up       mgl32.Vec3
	FOV      float32 // vertical, degrees
	Aspect   float32
	Near     float32
	Far      float32
}

// View returns the camera's world-to-view matrix.
func (c Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Forward), c.Up)
}

// Projection returns the camera's perspective projection.
func (c Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.Aspect, c.Near, c.Far)
}

// Light is the geometric part of a visible light.
type Light struct {
	Type shadow.LightType
	// Direction is the direction the light travels. Directional and spot.
	Direction mgl32.Vec3
	Position  mgl32.Vec3
	Range     float32
	// SpotAngle is the full outer cone angle in degrees.
	SpotAngle float32
	NearPlane float32
}

// minNearPlane keeps perspective shadow projections well conditioned.
const minNearPlane = 0.01

// Provider implements shadow.Culler.
type Provider struct {
	camera      Camera
	lights      []Light
	casters     []AABB
	maxDistance float32
}

// New returns a provider for one frame of one camera. maxDistance is the
// shadow distance; it is clamped to the camera's far plane.
func New(camera Camera, lights []Light, casters []AABB, maxDistance float32) *Provider {
	return &Provider{
		camera:      camera,
		lights:      lights,
		casters:     casters,
		maxDistance: min(maxDistance, camera.Far),
	}
}

// Casters returns the caster boxes the provider culls against.
func (p *Provider) Casters() []AABB {
	return p.casters
}

func (p *Provider) light(i int) (Light, bool) {
	if i < 0 || i >= len(p.lights) {
		return Light{}, false
	}
	return p.lights[i], true
}

// influence is the sphere a light can cast shadows into.
func (p *Provider) influence(l Light) mgl32.Vec4 {
	if l.Type == shadow.LightDirectional {
		return p.camera.Position.Vec4(p.maxDistance)
	}
	return l.Position.Vec4(l.Range)
}

// ShadowCasterBounds implements shadow.Culler.
func (p *Provider) ShadowCasterBounds(visibleLight int) (shadow.Bounds, bool) {
	l, ok := p.light(visibleLight)
	if !ok {
		return shadow.Bounds{}, false
	}
	sphere := p.influence(l)

	var bounds AABB
	found := false
	for _, c := range p.casters {
		if !c.IntersectsSphere(sphere) {
			continue
		}
		if !found {
			bounds, found = c, true
			continue
		}
		bounds = bounds.Union(c)
	}
	return bounds.Bounds(), found
}

// cascadeRange returns the view-space depth range of a cascade.
func (p *Provider) cascadeRange(cascade, count int, ratios mgl32.Vec3) (float32, float32) {
	d := p.maxDistance
	near := p.camera.Near
	if cascade > 0 {
		near = ratios[cascade-1] * d
	}
	far := d
	if cascade < count-1 {
		far = ratios[cascade] * d
	}
	return near, far
}

// sliceSphere returns a bounding sphere of the frustum slice between view
// depths n and f. The centre lies on the view axis, so the radius does not
// change when the camera rotates.
func (p *Provider) sliceSphere(n, f float32) (mgl32.Vec3, float32) {
	cam := p.camera
	tanV := math.Tan(float64(mgl32.DegToRad(cam.FOV)) / 2)
	tanH := tanV * float64(cam.Aspect)
	k2 := float32(tanV*tanV + tanH*tanH)

	c := (f + n) * (1 + k2) / 2
	if c > f {
		c = f
	}
	r := float32(math.Sqrt(float64((f-c)*(f-c) + f*f*k2)))
	center := cam.Position.Add(cam.Forward.Normalize().Mul(c))
	return center, r
}

// lightBasis returns the light's right and up axes. The up hint avoids
// being parallel to the light direction.
func lightBasis(dir mgl32.Vec3) (right, up mgl32.Vec3) {
	hint := mgl32.Vec3{0, 1, 0}
	if abs32(dir.Y()) > 0.99 {
		hint = mgl32.Vec3{0, 0, 1}
	}
	right = dir.Cross(hint).Normalize()
	up = right.Cross(dir)
	return right, up
}

// DirectionalCascade implements shadow.Culler. The sphere centre is
// snapped to whole shadow texels in light space so shadows do not shimmer
// while the camera moves.
func (p *Provider) DirectionalCascade(visibleLight, cascade, cascadeCount int, ratios mgl32.Vec3, tileSize int, nearPlaneOffset float32) (shadow.Matrices, bool) {
	l, ok := p.light(visibleLight)
	if !ok || l.Type != shadow.LightDirectional || tileSize <= 0 {
		return identityMatrices(), false
	}

	n, f := p.cascadeRange(cascade, cascadeCount, ratios)
	center, r := p.sliceSphere(n, f)

	dir := l.Direction.Normalize()
	right, up := lightBasis(dir)
	texel := 2 * r / float32(tileSize)
	cx, cy := center.Dot(right), center.Dot(up)
	center = center.
		Add(right.Mul(snap(cx, texel) - cx)).
		Add(up.Mul(snap(cy, texel) - cy))

	back := r + nearPlaneOffset
	eye := center.Sub(dir.Mul(back))
	return shadow.Matrices{
		View:       mgl32.LookAtV(eye, center, up),
		Projection: mgl32.Ortho(-r, r, -r, r, 0, back+r),
		Split:      shadow.SplitData{CullingSphere: center.Vec4(r)},
	}, true
}

func snap(v, step float32) float32 {
	return float32(math.Floor(float64(v/step))) * step
}

// SpotMatrices implements shadow.Culler.
func (p *Provider) SpotMatrices(visibleLight int) (shadow.Matrices, bool) {
	l, ok := p.light(visibleLight)
	if !ok || l.Type != shadow.LightSpot {
		return identityMatrices(), false
	}
	near := max(l.NearPlane, minNearPlane)
	if l.Range <= near {
		return identityMatrices(), false
	}

	dir := l.Direction.Normalize()
	_, up := lightBasis(dir)
	return shadow.Matrices{
		View:       mgl32.LookAtV(l.Position, l.Position.Add(dir), up),
		Projection: mgl32.Perspective(mgl32.DegToRad(l.SpotAngle), 1, near, l.Range),
		Split:      shadow.SplitData{CullingSphere: l.Position.Vec4(l.Range)},
	}, true
}

// Cube face look directions and up vectors, cube-map convention. The up
// vectors render each face upside down.
var cubeFaces = [shadow.CubeFaceCount]struct{ dir, up mgl32.Vec3 }{
	shadow.FacePositiveX: {mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, -1, 0}},
	shadow.FaceNegativeX: {mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, -1, 0}},
	shadow.FacePositiveY: {mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1}},
	shadow.FaceNegativeY: {mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, 0, -1}},
	shadow.FacePositiveZ: {mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, -1, 0}},
	shadow.FaceNegativeZ: {mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, -1, 0}},
}

// CubeFaceMatrices implements shadow.Culler. fovBias widens the 90° face
// frustum, in degrees.
func (p *Provider) CubeFaceMatrices(visibleLight int, face shadow.CubeFace, fovBias float32) (shadow.Matrices, bool) {
	l, ok := p.light(visibleLight)
	if !ok || l.Type != shadow.LightPoint || face < 0 || int(face) >= shadow.CubeFaceCount {
		return identityMatrices(), false
	}
	near := max(l.NearPlane, minNearPlane)
	if l.Range <= near {
		return identityMatrices(), false
	}

	cf := cubeFaces[face]
	return shadow.Matrices{
		View:       mirrorFaceView(mgl32.LookAtV(l.Position, l.Position.Add(cf.dir), cf.up)),
		Projection: mgl32.Perspective(mgl32.DegToRad(90+fovBias), 1, near, l.Range),
		Split:      shadow.SplitData{CullingSphere: l.Position.Vec4(l.Range)},
	}, true
}

// mirrorFaceView negates the view's Y row. Cube-map face views are
// reflections; the frame controller flips the row back before drawing.
func mirrorFaceView(view mgl32.Mat4) mgl32.Mat4 {
	view.SetRow(1, view.Row(1).Mul(-1))
	return view
}

func identityMatrices() shadow.Matrices {
	return shadow.Matrices{View: mgl32.Ident4(), Projection: mgl32.Ident4()}
}
