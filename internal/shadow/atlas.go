package shadow

import "github.com/go-gl/mathgl/mgl32"

// PlanSplit returns the grid split factor for tiles shadow maps: the
// smallest of 1, 2 and 4 whose square holds them all.
func PlanSplit(tiles int) int {
	switch {
	case tiles <= 1:
		return 1
	case tiles <= 4:
		return 2
	default:
		return 4
	}
}

// TileOffset returns the tile's grid position. Multiplied by 1/split it is
// the tile's normalized atlas offset.
func TileOffset(index, split int) mgl32.Vec2 {
	return mgl32.Vec2{float32(index % split), float32(index / split)}
}

// TileViewport returns the pixel rectangle of tile index.
func TileViewport(index, split, tileSize int) Rect {
	return Rect{
		X:      index % split * tileSize,
		Y:      index / split * tileSize,
		Width:  tileSize,
		Height: tileSize,
	}
}
