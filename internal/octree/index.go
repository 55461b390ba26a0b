// Package octree implements the sparse voxel occupancy index used for
// line-of-sight tests between light nodes.
package octree

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/lightgraph/pkg/math"
)

// InvalidNode is returned by NodeID for points outside the lighting area.
const InvalidNode = -1

// cancelCheckInterval is how many primitives are inserted between context checks.
const cancelCheckInterval = 256

// BuildOptions configures index construction.
type BuildOptions struct {
	MaxDepth int
	PageSize int
	MaxPages int
	// Area overrides the lighting area; when nil it is computed from the geometry.
	Area   *Area
	Logger *zap.Logger
}

// Geometry is the occupancy input: triangles and loose points in world space.
type Geometry struct {
	Triangles []Triangle
	Points    []math.Vec3
}

// Bounds returns the union bounds of all primitives.
func (g Geometry) Bounds() math.AABB {
	b := math.EmptyAABB()
	for _, t := range g.Triangles {
		b = b.Extend(t[0]).Extend(t[1]).Extend(t[2])
	}
	for _, p := range g.Points {
		b = b.Extend(p)
	}
	return b
}

// Stats describes a built index.
type Stats struct {
	Nodes        int
	OpaqueLeaves int
	// Truncated counts slots marked opaque early because node capacity ran out.
	Truncated int
	Bytes     int
}

// Index is a fixed-depth sparse octree over the lighting area. It is immutable
// once built and safe for concurrent readers.
type Index struct {
	area     Area
	maxDepth int
	store    *store
	stats    Stats
}

// Empty returns an index with no occupancy; every query reports free space.
func Empty() *Index {
	return &Index{}
}

// Build rasterizes geometry into a new index. The index is assembled privately
// and only returned on success; on cancellation it returns nil and ctx.Err().
// Degenerate geometry yields an empty index together with ErrDegenerateArea.
func Build(ctx context.Context, opts BuildOptions, geom Geometry) (*Index, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxDepth < 1 {
		return nil, fmt.Errorf("octree: max depth must be >= 1, got %d", opts.MaxDepth)
	}

	var area Area
	if opts.Area != nil {
		area = *opts.Area
	} else {
		a, err := AreaFromBounds(geom.Bounds())
		if err != nil {
			log.Warn("no geometry extent, lighting area is empty",
				zap.Int("triangles", len(geom.Triangles)),
				zap.Int("points", len(geom.Points)))
			return Empty(), err
		}
		area = a
	}
	if !area.Valid() {
		return Empty(), ErrDegenerateArea
	}

	ix := &Index{
		area:     area,
		maxDepth: opts.MaxDepth,
		store:    newStore(opts.PageSize, opts.MaxPages),
	}
	if _, ok := ix.store.alloc(); !ok {
		return nil, fmt.Errorf("octree: page size %d too small for a root node", opts.PageSize)
	}

	size := area.Size()
	origin := area.Min()
	n := 0
	for _, tri := range geom.Triangles {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		n++
		ix.insert(0, origin, size, 0, func(min math.Vec3, s float32) bool {
			half := math.Splat(s / 2)
			return triBoxOverlap(min.Add(half), half, tri)
		})
	}
	for _, p := range geom.Points {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		n++
		ix.insert(0, origin, size, 0, func(min math.Vec3, s float32) bool {
			return math.AABB{Min: min, Max: min.Add(math.Splat(s))}.Contains(p)
		})
	}

	ix.stats.Nodes = ix.store.nodes
	ix.stats.Bytes = ix.store.bytes()

	log.Debug("voxel octree built",
		zap.Int("depth", ix.maxDepth),
		zap.Float32("areaSize", size),
		zap.Int("nodes", ix.stats.Nodes),
		zap.Int("opaqueLeaves", ix.stats.OpaqueLeaves),
		zap.Int("truncated", ix.stats.Truncated),
		zap.Int("bytes", ix.stats.Bytes))
	if ix.stats.Truncated > 0 {
		log.Warn("octree node capacity exhausted, coarse cells treated as opaque",
			zap.Int("truncated", ix.stats.Truncated),
			zap.Int("capacity", ix.store.capacity()))
	}

	return ix, nil
}

// insert marks every cell below node that hit reports as intersected.
// min and size describe the node's cube.
func (ix *Index) insert(node uint32, min math.Vec3, size float32, depth int, hit func(min math.Vec3, size float32) bool) {
	half := size / 2
	for child := 0; child < 8; child++ {
		cmin := childMin(min, half, child)
		if !hit(cmin, half) {
			continue
		}

		slot := int(node)*SlotsPerNode + child
		v := ix.store.get(slot)
		if v == slotOpaque {
			continue
		}
		if depth+1 >= ix.maxDepth {
			ix.store.set(slot, slotOpaque)
			ix.stats.OpaqueLeaves++
			continue
		}
		if v == slotEmpty {
			id, ok := ix.store.alloc()
			if !ok {
				ix.store.set(slot, slotOpaque)
				ix.stats.OpaqueLeaves++
				ix.stats.Truncated++
				continue
			}
			ix.store.set(slot, id)
			v = id
		}
		ix.insert(v, cmin, half, depth+1, hit)
	}
}

// childMin returns the lowest corner of child octant c (x=4, y=2, z=1).
func childMin(min math.Vec3, half float32, c int) math.Vec3 {
	if c&4 != 0 {
		min.X += half
	}
	if c&2 != 0 {
		min.Y += half
	}
	if c&1 != 0 {
		min.Z += half
	}
	return min
}

// IsEmpty reports whether the index holds no occupancy data.
func (ix *Index) IsEmpty() bool {
	return ix == nil || ix.store == nil
}

// Area returns the lighting area.
func (ix *Index) Area() Area {
	if ix == nil {
		return Area{}
	}
	return ix.area
}

// MaxDepth returns the configured subdivision depth.
func (ix *Index) MaxDepth() int {
	if ix == nil {
		return 0
	}
	return ix.maxDepth
}

// LeafSize returns the edge length of the finest cells.
func (ix *Index) LeafSize() float32 {
	if ix.IsEmpty() {
		return 0
	}
	return ix.area.Size() / float32(int(1)<<ix.maxDepth)
}

// Stats returns build statistics.
func (ix *Index) Stats() Stats {
	if ix == nil {
		return Stats{}
	}
	return ix.stats
}

// NodeID resolves p to the linear slot index of the deepest cell containing it,
// or InvalidNode when p lies outside the lighting area.
func (ix *Index) NodeID(p math.Vec3) int {
	if ix.IsEmpty() || !ix.area.Bounds().Contains(p) {
		return InvalidNode
	}

	node := uint32(0)
	min := ix.area.Min()
	size := ix.area.Size()
	for {
		half := size / 2
		child := childOffset(min.Add(math.Splat(half)), p)
		slot := int(node)*SlotsPerNode + child
		v := ix.store.get(slot)
		if v == slotEmpty || v == slotOpaque {
			return slot
		}
		node = v
		min = childMin(min, half, child)
		size = half
	}
}

// Opaque reports whether the cell a NodeID result refers to is occupied.
func (ix *Index) Opaque(slot int) bool {
	if ix.IsEmpty() || slot < 0 {
		return false
	}
	return ix.store.get(slot) == slotOpaque
}

// childOffset returns the octant of target relative to a cube's midpoint.
func childOffset(mid, target math.Vec3) int {
	c := 0
	if target.X >= mid.X {
		c |= 4
	}
	if target.Y >= mid.Y {
		c |= 2
	}
	if target.Z >= mid.Z {
		c |= 1
	}
	return c
}
