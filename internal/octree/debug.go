package octree

import (
	"github.com/Faultbox/lightgraph/pkg/math"
)

// OccupiedBounds returns the world-space cube of every opaque cell, for debug
// visualization. The result is a snapshot and does not alias the index.
func (ix *Index) OccupiedBounds() []math.AABB {
	if ix.IsEmpty() {
		return nil
	}
	out := make([]math.AABB, 0, ix.stats.OpaqueLeaves)
	ix.walk(0, ix.area.Min(), ix.area.Size(), func(min math.Vec3, size float32) {
		out = append(out, math.AABB{Min: min, Max: min.Add(math.Splat(size))})
	})
	return out
}

func (ix *Index) walk(node uint32, min math.Vec3, size float32, opaque func(min math.Vec3, size float32)) {
	half := size / 2
	for child := 0; child < 8; child++ {
		cmin := childMin(min, half, child)
		switch v := ix.store.get(int(node)*SlotsPerNode + child); v {
		case slotEmpty:
		case slotOpaque:
			opaque(cmin, half)
		default:
			ix.walk(v, cmin, half, opaque)
		}
	}
}
