package shadow

import "github.com/go-gl/mathgl/mgl32"

// TargetID is an opaque handle to a backend depth target. Zero is never a
// valid target.
type TargetID uint32

// DepthBits is the depth precision requested for shadow atlases.
const DepthBits = 32

// Bounds is an axis-aligned box in world space.
type Bounds struct {
	Min, Max mgl32.Vec3
}

// SplitData is the culling data for one cascade or cube face.
type SplitData struct {
	// CullingSphere holds the centre in XYZ and the radius in W.
	CullingSphere mgl32.Vec4
	// BlendCullingFactor scales the previous cascade's sphere when
	// deciding which casters it already fully covers. Directional only.
	BlendCullingFactor float32
}

// Matrices is what the culling provider returns for one shadow view.
type Matrices struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Split      SplitData
}

// CubeFace indexes the six faces of a point light shadow.
type CubeFace int

const (
	FacePositiveX CubeFace = iota
	FaceNegativeX
	FacePositiveY
	FaceNegativeY
	FacePositiveZ
	FaceNegativeZ
)

// CubeFaceCount is the number of tiles a point light occupies.
const CubeFaceCount = 6

// Culler is the per-frame culling provider. The index arguments are
// visible-light indices as passed to the reservation calls.
type Culler interface {
	ShadowCasterBounds(visibleLight int) (Bounds, bool)
	DirectionalCascade(visibleLight, cascade, cascadeCount int, ratios mgl32.Vec3, tileSize int, nearPlaneOffset float32) (Matrices, bool)
	SpotMatrices(visibleLight int) (Matrices, bool)
	CubeFaceMatrices(visibleLight int, face CubeFace, fovBias float32) (Matrices, bool)
}

// AtlasKind distinguishes the two shadow atlases.
type AtlasKind int

const (
	AtlasDirectional AtlasKind = iota
	AtlasOther
)

func (k AtlasKind) String() string {
	if k == AtlasDirectional {
		return "directional"
	}
	return "other"
}

// ProjectionKind is the projection used by a shadow draw.
type ProjectionKind int

const (
	ProjectionOrthographic ProjectionKind = iota
	ProjectionPerspective
)

// Rect is a viewport in atlas pixels.
type Rect struct {
	X, Y, Width, Height int
}

// DepthBias is applied while rasterizing casters.
type DepthBias struct {
	Constant   float32
	SlopeScale float32
}

// DrawRequest asks the backend to render the shadow casters of one light
// into one atlas tile.
type DrawRequest struct {
	Target       TargetID
	Atlas        AtlasKind
	VisibleLight int
	// Slice is the cascade index for directional lights, the face index for
	// point lights and zero for spot lights.
	Slice      int
	Tile       int
	Viewport   Rect
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Kind       ProjectionKind
	Split      SplitData
	Bias       DepthBias
	// Pancaking clamps casters behind the near plane onto it. Only valid
	// for orthographic projections.
	Pancaking bool
}

// Backend executes the commands issued by the frame controller.
type Backend interface {
	AllocateDepthTarget(width, height, depthBits int) (TargetID, error)
	ReleaseTarget(id TargetID) error
	SubmitShadowDraws(req DrawRequest) error
	Publish(g *Globals) error
}

// Globals is the per-frame state consumed by the shading stage.
type Globals struct {
	DirectionalAtlas TargetID
	// OtherAtlas equals DirectionalAtlas when no other light has shadows.
	OtherAtlas TargetID

	DirectionalMatrices [MaxDirectionalLights * MaxCascades]mgl32.Mat4
	OtherMatrices       [MaxOtherTiles]mgl32.Mat4
	OtherTiles          [MaxOtherTiles]mgl32.Vec4

	CascadeCount          int
	CascadeCullingSpheres [MaxCascades]mgl32.Vec4
	CascadeData           [MaxCascades]mgl32.Vec4

	// AtlasSizes is (dirSize, 1/dirSize, otherSize, 1/otherSize).
	AtlasSizes   mgl32.Vec4
	DistanceFade mgl32.Vec4
	Variants     Variants
}
