package octree

import (
	gomath "math"

	"github.com/Faultbox/lightgraph/pkg/math"
)

// Parametric octree ray traversal (Revelles, Ureña, Lastra 2000).
//
// The segment a->b is written as a + t*(b-a), so t=0 is a and t=1 is b.
// Negative direction components are mirrored through the root cube's center
// and recorded in a mask; octant indices are xor-ed with that mask when a
// child slot is read, so the traversal logic itself only handles positive
// directions. Octant bits are x=4, y=2, z=1.
//
// Axes with a zero direction component never cross a plane. Their parameters
// are pinned to -inf/+inf and the side of each midplane is chosen from the
// origin with the same >= rule NodeID uses, so a segment lying in a cell
// boundary plane visits the same cells in both directions.

// endOctant is the sentinel transition meaning "exits the parent cube".
const endOctant = 8

// nextOctant is the transition table: for the current octant, the octant
// entered next when the ray crosses the exit plane of x, y or z respectively.
var nextOctant = [8][3]int{
	{4, 2, 1},
	{5, 3, endOctant},
	{6, endOctant, 3},
	{7, endOctant, endOctant},
	{endOctant, 6, 5},
	{endOctant, 7, endOctant},
	{endOctant, endOctant, 7},
	{endOctant, endOctant, endOctant},
}

var axisBit = [3]int{4, 2, 1}

type vec3d [3]float64

type traversalResult int

const (
	resultContinue traversalResult = iota
	resultOccluded
	resultDone
)

type traversal struct {
	ix        *Index
	mask      int
	flat      [3]bool
	origin    math.Vec3
	startSlot int
	endSlot   int
}

// IsOccluded reports whether an opaque cell lies on the segment from a to b.
// The cells containing a and b themselves are ignored, since both endpoints
// normally sit on surfaces. A zero-length segment is never occluded.
func (ix *Index) IsOccluded(a, b math.Vec3) bool {
	if ix.IsEmpty() || a == b {
		return false
	}
	if _, _, hit := ix.area.Bounds().IntersectSegment(a, b); !hit {
		return false
	}

	lo := ix.area.Min()
	hi := ix.area.Max()
	dir := b.Sub(a)

	tr := traversal{
		ix:        ix,
		origin:    a,
		startSlot: ix.NodeID(a),
		endSlot:   ix.NodeID(b),
	}

	var t0, t1 vec3d
	for axis := 0; axis < 3; axis++ {
		o := float64(a.Axis(axis))
		d := float64(dir.Axis(axis))
		if d == 0 {
			tr.flat[axis] = true
			t0[axis], t1[axis] = gomath.Inf(-1), gomath.Inf(1)
			continue
		}
		if d < 0 {
			o = float64(lo.Axis(axis)) + float64(hi.Axis(axis)) - o
			d = -d
			tr.mask |= axisBit[axis]
		}
		t0[axis] = (float64(lo.Axis(axis)) - o) / d
		t1[axis] = (float64(hi.Axis(axis)) - o) / d
	}

	if maxComponent(t0) >= minComponent(t1) {
		return false
	}
	return tr.subtree(t0, t1, 0, lo, ix.area.Size()) == resultOccluded
}

// subtree walks the children of node in ray order. min and size give the
// node's cube in world space.
func (tr *traversal) subtree(t0, t1 vec3d, node uint32, min math.Vec3, size float32) traversalResult {
	if t1[0] < 0 || t1[1] < 0 || t1[2] < 0 {
		return resultContinue
	}

	half := size / 2
	var tm vec3d
	for axis := 0; axis < 3; axis++ {
		switch {
		case !tr.flat[axis]:
			tm[axis] = 0.5 * (t0[axis] + t1[axis])
		case tr.origin.Axis(axis) >= min.Axis(axis)+half:
			// Upper half: the midplane is already behind the ray.
			tm[axis] = gomath.Inf(-1)
		default:
			tm[axis] = gomath.Inf(1)
		}
	}

	cur := firstNode(t0, tm)
	for cur < endOctant {
		var c0, c1, exitPlane vec3d
		for axis := 0; axis < 3; axis++ {
			if cur&axisBit[axis] != 0 {
				c0[axis], c1[axis] = tm[axis], t1[axis]
			} else {
				c0[axis], c1[axis] = t0[axis], tm[axis]
			}
			exitPlane[axis] = c1[axis]
		}

		child := cur ^ tr.mask
		res := tr.visit(int(node)*SlotsPerNode+child, c0, c1, childMin(min, half, child), half)
		if res != resultContinue {
			return res
		}

		next := nextOctant[cur]
		cur = newNode(exitPlane[0], next[0], exitPlane[1], next[1], exitPlane[2], next[2])
	}
	return resultContinue
}

// visit tests one child slot whose cube spans [c0, c1] in ray parameters.
func (tr *traversal) visit(slot int, c0, c1 vec3d, min math.Vec3, size float32) traversalResult {
	if maxComponent(c0) > 1 {
		// Entered past b; every later sibling is further along the ray.
		return resultDone
	}
	if c1[0] < 0 || c1[1] < 0 || c1[2] < 0 {
		return resultContinue
	}

	switch v := tr.ix.store.get(slot); v {
	case slotEmpty:
		return resultContinue
	case slotOpaque:
		if slot == tr.startSlot || slot == tr.endSlot {
			return resultContinue
		}
		return resultOccluded
	default:
		return tr.subtree(c0, c1, v, min, size)
	}
}

// firstNode picks the first child octant entered. The largest component of t0
// names the entry plane; the midpoints of the other two axes decide the octant.
func firstNode(t0, tm vec3d) int {
	answer := 0
	if t0[0] > t0[1] {
		if t0[0] > t0[2] {
			// entry plane YZ
			if tm[1] < t0[0] {
				answer |= 2
			}
			if tm[2] < t0[0] {
				answer |= 1
			}
			return answer
		}
	} else if t0[1] > t0[2] {
		// entry plane XZ
		if tm[0] < t0[1] {
			answer |= 4
		}
		if tm[2] < t0[1] {
			answer |= 1
		}
		return answer
	}
	// entry plane XY
	if tm[0] < t0[2] {
		answer |= 4
	}
	if tm[1] < t0[2] {
		answer |= 2
	}
	return answer
}

// newNode returns the transition for whichever exit plane is crossed first.
func newNode(tx float64, nx int, ty float64, ny int, tz float64, nz int) int {
	if tx < ty {
		if tx < tz {
			return nx
		}
	} else if ty < tz {
		return ny
	}
	return nz
}

func maxComponent(v vec3d) float64 {
	return max(v[0], v[1], v[2])
}

func minComponent(v vec3d) float64 {
	return min(v[0], v[1], v[2])
}
