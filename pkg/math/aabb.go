package math

import "github.com/chewxy/math32"

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min Vec3
	Max Vec3
}

// NewAABB creates an AABB from two corners, handling swapped components.
func NewAABB(a, b Vec3) AABB {
	return AABB{Min: a.Min(b), Max: a.Max(b)}
}

// EmptyAABB returns an inverted box that any Extend call will replace.
func EmptyAABB() AABB {
	return AABB{
		Min: Splat(math32.MaxFloat32),
		Max: Splat(-math32.MaxFloat32),
	}
}

// IsEmpty reports whether the box contains no points.
func (b AABB) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extend grows the box to include p.
func (b AABB) Extend(p Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Union returns the smallest box containing both boxes.
func (b AABB) Union(other AABB) AABB {
	if other.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return other
	}
	return AABB{Min: b.Min.Min(other.Min), Max: b.Max.Max(other.Max)}
}

// Size returns the extent along each axis.
func (b AABB) Size() Vec3 {
	if b.IsEmpty() {
		return Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the box.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Contains reports whether p lies inside or on the box.
func (b AABB) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Distance returns the gap between two boxes (0 when they touch or overlap).
func (b AABB) Distance(other AABB) float32 {
	dx := math32.Max(0, math32.Max(other.Min.X-b.Max.X, b.Min.X-other.Max.X))
	dy := math32.Max(0, math32.Max(other.Min.Y-b.Max.Y, b.Min.Y-other.Max.Y))
	dz := math32.Max(0, math32.Max(other.Min.Z-b.Max.Z, b.Min.Z-other.Max.Z))
	return Vec3{dx, dy, dz}.Length()
}

// Transform returns the world-space box enclosing all 8 transformed corners.
func (b AABB) Transform(m Mat4) AABB {
	if b.IsEmpty() {
		return b
	}
	out := EmptyAABB()
	for i := 0; i < 8; i++ {
		corner := Vec3{b.Min.X, b.Min.Y, b.Min.Z}
		if i&4 != 0 {
			corner.X = b.Max.X
		}
		if i&2 != 0 {
			corner.Y = b.Max.Y
		}
		if i&1 != 0 {
			corner.Z = b.Max.Z
		}
		out = out.Extend(m.TransformPoint(corner))
	}
	return out
}

// IntersectSegment tests the segment from a to b against the box using the slab
// method. Returns the entry and exit parameters in [0, 1] and whether they overlap.
func (b AABB) IntersectSegment(a, c Vec3) (tEnter, tExit float32, hit bool) {
	tEnter, tExit = 0, 1
	dir := c.Sub(a)

	for axis := 0; axis < 3; axis++ {
		o := a.Axis(axis)
		d := dir.Axis(axis)
		lo := b.Min.Axis(axis)
		hi := b.Max.Axis(axis)

		if d == 0 {
			// Parallel to slab
			if o < lo || o > hi {
				return 0, 0, false
			}
			continue
		}

		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tEnter {
			tEnter = t1
		}
		if t2 < tExit {
			tExit = t2
		}
		if tEnter > tExit {
			return 0, 0, false
		}
	}
	return tEnter, tExit, true
}
