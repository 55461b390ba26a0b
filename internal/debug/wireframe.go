// Package debug builds read-only visualization data for the lighting core:
// wireframes of occupied octree cells and line lists of graph edges.
package debug

import (
	"github.com/Faultbox/lightgraph/pkg/math"
)

// BoxWireframeVertexCount is the number of vertices for a box wireframe (12 edges × 2).
const BoxWireframeVertexCount = 24

// AppendBoxWireframe appends the line vertices of a box to dst.
// Format: [x, y, z] per vertex, two vertices per edge.
func AppendBoxWireframe(dst []float32, b math.AABB) []float32 {
	minX, minY, minZ := b.Min.X, b.Min.Y, b.Min.Z
	maxX, maxY, maxZ := b.Max.X, b.Max.Y, b.Max.Z
	return append(dst,
		// Bottom face
		minX, minY, minZ, maxX, minY, minZ,
		maxX, minY, minZ, maxX, minY, maxZ,
		maxX, minY, maxZ, minX, minY, maxZ,
		minX, minY, maxZ, minX, minY, minZ,
		// Top face
		minX, maxY, minZ, maxX, maxY, minZ,
		maxX, maxY, minZ, maxX, maxY, maxZ,
		maxX, maxY, maxZ, minX, maxY, maxZ,
		minX, maxY, maxZ, minX, maxY, minZ,
		// Vertical edges
		minX, minY, minZ, minX, maxY, minZ,
		maxX, minY, minZ, maxX, maxY, minZ,
		maxX, minY, maxZ, maxX, maxY, maxZ,
		minX, minY, maxZ, minX, maxY, maxZ,
	)
}

// BoxWireframe returns the 24 line vertices of a single box.
func BoxWireframe(b math.AABB) []float32 {
	return AppendBoxWireframe(make([]float32, 0, BoxWireframeVertexCount*3), b)
}

// OctreeWireframe returns line vertices for every box, shrunk by inset on
// all sides so neighbouring cells stay distinguishable. Boxes that an inset
// would invert are drawn without it.
func OctreeWireframe(boxes []math.AABB, inset float32) []float32 {
	out := make([]float32, 0, len(boxes)*BoxWireframeVertexCount*3)
	for _, b := range boxes {
		if inset > 0 && b.Size().MaxComponent() > 2*inset {
			pad := math.Splat(inset)
			b = math.AABB{Min: b.Min.Add(pad), Max: b.Max.Sub(pad)}
		}
		out = AppendBoxWireframe(out, b)
	}
	return out
}
