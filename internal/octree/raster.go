package octree

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/lightgraph/pkg/math"
)

// Triangle is a world-space triangle to rasterize into the index.
type Triangle [3]math.Vec3

// triBoxOverlap is the separating axis test between a triangle and an
// axis-aligned box given by center and half extents (Akenine-Möller).
// Touching counts as overlap.
func triBoxOverlap(center, half math.Vec3, tri Triangle) bool {
	v0 := tri[0].Sub(center)
	v1 := tri[1].Sub(center)
	v2 := tri[2].Sub(center)

	// Box face normals: triangle AABB against the box
	for axis := 0; axis < 3; axis++ {
		a, b, c := v0.Axis(axis), v1.Axis(axis), v2.Axis(axis)
		h := half.Axis(axis)
		if min3(a, b, c) > h || max3(a, b, c) < -h {
			return false
		}
	}

	edges := [3]math.Vec3{v1.Sub(v0), v2.Sub(v1), v0.Sub(v2)}
	boxAxes := [3]math.Vec3{{X: 1}, {Y: 1}, {Z: 1}}

	// Nine cross-product axes
	for _, e := range edges {
		for _, b := range boxAxes {
			axis := b.Cross(e)
			p0, p1, p2 := axis.Dot(v0), axis.Dot(v1), axis.Dot(v2)
			r := half.X*math32.Abs(axis.X) + half.Y*math32.Abs(axis.Y) + half.Z*math32.Abs(axis.Z)
			if min3(p0, p1, p2) > r || max3(p0, p1, p2) < -r {
				return false
			}
		}
	}

	normal := edges[0].Cross(edges[1])
	return planeBoxOverlap(normal, v0, half)
}

func planeBoxOverlap(normal, vert, half math.Vec3) bool {
	var vmin, vmax math.Vec3
	for axis := 0; axis < 3; axis++ {
		v := vert.Axis(axis)
		h := half.Axis(axis)
		lo, hi := -h-v, h-v
		if normal.Axis(axis) <= 0 {
			lo, hi = hi, lo
		}
		setAxis(&vmin, axis, lo)
		setAxis(&vmax, axis, hi)
	}
	if normal.Dot(vmin) > 0 {
		return false
	}
	return normal.Dot(vmax) >= 0
}

func setAxis(v *math.Vec3, axis int, value float32) {
	switch axis {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	default:
		v.Z = value
	}
}

func min3(a, b, c float32) float32 {
	return math32.Min(a, math32.Min(b, c))
}

func max3(a, b, c float32) float32 {
	return math32.Max(a, math32.Max(b, c))
}
