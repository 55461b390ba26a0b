package octree

import (
	"errors"

	"github.com/Faultbox/lightgraph/pkg/math"
)

// ErrDegenerateArea is returned when the geometry has no extent to build over.
var ErrDegenerateArea = errors.New("octree: degenerate lighting area")

// areaPadding grows the cube slightly so geometry on the bounds lies strictly inside.
const areaPadding = 1.01

// Area is the cubical lighting area at the root of the octree.
type Area struct {
	Center   math.Vec3
	HalfSize float32
}

// AreaFromBounds returns the cube enclosing b, centered on b.
func AreaFromBounds(b math.AABB) (Area, error) {
	if b.IsEmpty() {
		return Area{}, ErrDegenerateArea
	}
	extent := b.Size().MaxComponent()
	if extent <= 0 {
		return Area{}, ErrDegenerateArea
	}
	return Area{
		Center:   b.Center(),
		HalfSize: extent / 2 * areaPadding,
	}, nil
}

// Min returns the lowest corner of the cube.
func (a Area) Min() math.Vec3 {
	return a.Center.Sub(math.Splat(a.HalfSize))
}

// Max returns the highest corner of the cube.
func (a Area) Max() math.Vec3 {
	return a.Center.Add(math.Splat(a.HalfSize))
}

// Size returns the edge length of the cube.
func (a Area) Size() float32 {
	return 2 * a.HalfSize
}

// Bounds returns the cube as an AABB.
func (a Area) Bounds() math.AABB {
	return math.AABB{Min: a.Min(), Max: a.Max()}
}

// Valid reports whether the area encloses any volume.
func (a Area) Valid() bool {
	return a.HalfSize > 0
}
