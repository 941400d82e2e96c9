package shadow

import "github.com/go-gl/mathgl/mgl32"

// ToAtlasMatrix converts a clip-space view-projection matrix into one that
// maps world space straight to atlas UV and depth in [0, 1] for the tile at
// grid offset (in tiles) with the given scale (1/split).
func ToAtlasMatrix(m mgl32.Mat4, offset mgl32.Vec2, scale float32, reversedZ bool) mgl32.Mat4 {
	if reversedZ {
		m.SetRow(2, m.Row(2).Mul(-1))
	}
	w := m.Row(3)
	m.SetRow(0, m.Row(0).Add(w).Mul(0.5).Add(w.Mul(offset.X())).Mul(scale))
	m.SetRow(1, m.Row(1).Add(w).Mul(0.5).Add(w.Mul(offset.Y())).Mul(scale))
	// Depth does not depend on tile placement.
	m.SetRow(2, m.Row(2).Add(w).Mul(0.5))
	return m
}

// otherTileData packs the sampling window of an other-light tile. border
// is shaved off both edges so a filter kernel never reaches a
// neighbouring tile.
func otherTileData(offset mgl32.Vec2, scale, border, bias float32) mgl32.Vec4 {
	return mgl32.Vec4{
		offset.X()*scale + border,
		offset.Y()*scale + border,
		scale - border - border,
		bias,
	}
}
