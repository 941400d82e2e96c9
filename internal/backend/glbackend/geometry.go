package glbackend

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-shadows/internal/culling"
	"github.com/Faultbox/midgard-shadows/internal/shadow"
)

// cubeVertices is a unit cube centred on the origin, counter-clockwise
// when seen from outside.
var cubeVertices = []float32{
	// +X
	0.5, -0.5, -0.5, 0.5, 0.5, -0.5, 0.5, 0.5, 0.5,
	0.5, -0.5, -0.5, 0.5, 0.5, 0.5, 0.5, -0.5, 0.5,
	// -X
	-0.5, -0.5, 0.5, -0.5, 0.5, 0.5, -0.5, 0.5, -0.5,
	-0.5, -0.5, 0.5, -0.5, 0.5, -0.5, -0.5, -0.5, -0.5,
	// +Y
	-0.5, 0.5, -0.5, -0.5, 0.5, 0.5, 0.5, 0.5, 0.5,
	-0.5, 0.5, -0.5, 0.5, 0.5, 0.5, 0.5, 0.5, -0.5,
	// -Y
	-0.5, -0.5, 0.5, -0.5, -0.5, -0.5, 0.5, -0.5, -0.5,
	-0.5, -0.5, 0.5, 0.5, -0.5, -0.5, 0.5, -0.5, 0.5,
	// +Z
	-0.5, -0.5, 0.5, 0.5, -0.5, 0.5, 0.5, 0.5, 0.5,
	-0.5, -0.5, 0.5, 0.5, 0.5, 0.5, -0.5, 0.5, 0.5,
	// -Z
	0.5, -0.5, -0.5, -0.5, -0.5, -0.5, -0.5, 0.5, -0.5,
	0.5, -0.5, -0.5, -0.5, 0.5, -0.5, 0.5, 0.5, -0.5,
}

// casterModel maps the unit cube onto box.
func casterModel(box culling.AABB) mgl32.Mat4 {
	c := box.Center()
	size := box.Max.Sub(box.Min)
	return mgl32.Translate3D(c.X(), c.Y(), c.Z()).Mul4(mgl32.Scale3D(size.X(), size.Y(), size.Z()))
}

// depthFlip maps GL clip depth [-1, 1] onto [1, -1] so near lands on 1
// in the depth buffer.
var depthFlip = mgl32.Scale3D(1, 1, -1)

// viewProjection returns the matrix a shadow draw rasterizes with.
func viewProjection(req shadow.DrawRequest, reversedZ bool) mgl32.Mat4 {
	vp := req.Projection.Mul4(req.View)
	if reversedZ {
		vp = depthFlip.Mul4(vp)
	}
	return vp
}

// Defines returns the #define lines that enable the shading variants,
// to be inserted after the #version line of a shading program.
func Defines(v shadow.Variants) string {
	var sb strings.Builder
	for _, kw := range v.Keywords() {
		sb.WriteString("#define ")
		sb.WriteString(kw)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// withDefines inserts defines after the #version line of src.
func withDefines(src, defines string) string {
	version, body, ok := strings.Cut(src, "\n")
	if !ok || !strings.HasPrefix(version, "#version") {
		return defines + src
	}
	return version + "\n" + defines + body
}

// sliceKey identifies the shadow views of one light in one atlas.
type sliceKey struct {
	atlas shadow.AtlasKind
	light int
}
