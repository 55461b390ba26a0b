package debug

import (
	"github.com/Faultbox/lightgraph/internal/graph"
	"github.com/Faultbox/lightgraph/pkg/math"
)

// Line is one graph edge in world space.
type Line struct {
	From   math.Vec3
	To     math.Vec3
	Weight math.Vec3
}

// EdgeLines converts a graph snapshot into lines, skipping edges whose
// strongest channel is below minWeight.
func EdgeLines(snap graph.Snapshot, minWeight float32) []Line {
	lines := make([]Line, 0, len(snap.Edges))
	for _, e := range snap.Edges {
		if e.Weight.MaxComponent() < minWeight {
			continue
		}
		if e.Source < 0 || e.Source >= len(snap.Nodes) || e.Target < 0 || e.Target >= len(snap.Nodes) {
			continue
		}
		lines = append(lines, Line{
			From:   snap.Nodes[e.Source].Position,
			To:     snap.Nodes[e.Target].Position,
			Weight: e.Weight,
		})
	}
	return lines
}

// LineVertices flattens lines into [x, y, z, r, g, b] per vertex, colored by
// edge weight.
func LineVertices(lines []Line) []float32 {
	out := make([]float32, 0, len(lines)*12)
	for _, l := range lines {
		w := l.Weight
		out = append(out,
			l.From.X, l.From.Y, l.From.Z, w.X, w.Y, w.Z,
			l.To.X, l.To.Y, l.To.Z, w.X, w.Y, w.Z,
		)
	}
	return out
}

// Frame is the debug output of one activation.
type Frame struct {
	// Octree holds wireframe vertices of occupied cells; empty unless requested.
	Octree []float32
	// Cells is the number of boxes in Octree.
	Cells int
	Edges []Line
}
