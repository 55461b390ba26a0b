// Package scene defines what the lighting core consumes from the surrounding
// scene system: renderable meshes, emitters, and a sink for computed energy.
package scene

import (
	"github.com/Faultbox/lightgraph/pkg/math"
)

// Color is an RGBA color with float components.
type Color struct {
	R, G, B, A float32
}

// White is the color used when a mesh carries no vertex colors.
var White = Color{1, 1, 1, 1}

// RGB drops the alpha channel.
func (c Color) RGB() math.Vec3 {
	return math.Vec3{X: c.R, Y: c.G, Z: c.B}
}

// Clamp limits every channel to [0,1].
func (c Color) Clamp() Color {
	return Color{clamp01(c.R), clamp01(c.G), clamp01(c.B), clamp01(c.A)}
}

func clamp01(v float32) float32 {
	return min(max(v, 0), 1)
}

// Mesh holds per-vertex attributes in object-local space.
// Indices is a triangle list; a mesh without indices is treated as a point set.
type Mesh struct {
	Positions []math.Vec3
	Normals   []math.Vec3
	Colors    []Color
	Indices   []uint32
}

// VertexCount returns the number of vertices with position data.
func (m *Mesh) VertexCount() int {
	if m == nil {
		return 0
	}
	return len(m.Positions)
}

// Normal returns the normal of vertex i, or the zero vector when absent.
func (m *Mesh) Normal(i int) math.Vec3 {
	if i < len(m.Normals) {
		return m.Normals[i]
	}
	return math.Vec3{}
}

// Color returns the color of vertex i clamped to [0,1], or White when absent.
func (m *Mesh) Color(i int) Color {
	if i < len(m.Colors) {
		return m.Colors[i].Clamp()
	}
	return White
}

// Bounds returns the local-space bounding box.
func (m *Mesh) Bounds() math.AABB {
	b := math.EmptyAABB()
	if m == nil {
		return b
	}
	for _, p := range m.Positions {
		b = b.Extend(p)
	}
	return b
}

// Triangles calls fn with the local-space corners of every valid triangle.
// Triangles referencing out-of-range vertices are skipped.
func (m *Mesh) Triangles(fn func(a, b, c math.Vec3)) {
	if m == nil {
		return
	}
	n := uint32(len(m.Positions))
	for i := 0; i+2 < len(m.Indices); i += 3 {
		i0, i1, i2 := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		if i0 >= n || i1 >= n || i2 >= n {
			continue
		}
		fn(m.Positions[i0], m.Positions[i1], m.Positions[i2])
	}
}
