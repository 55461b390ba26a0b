// Package gi coordinates the indirect lighting pipeline: it builds the voxel
// occupancy index, samples light nodes, connects them into a light graph,
// and propagates energy into a sink.
package gi

import (
	"context"
	"fmt"
	"image"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/Faultbox/lightgraph/internal/config"
	"github.com/Faultbox/lightgraph/internal/debug"
	"github.com/Faultbox/lightgraph/internal/graph"
	"github.com/Faultbox/lightgraph/internal/lighting"
	"github.com/Faultbox/lightgraph/internal/octree"
	"github.com/Faultbox/lightgraph/internal/propagation"
	"github.com/Faultbox/lightgraph/internal/sampler"
	"github.com/Faultbox/lightgraph/internal/scene"
	"github.com/Faultbox/lightgraph/pkg/math"
)

// surfaceOffsetCells is how many octree leaves edge endpoints are lifted off
// their surface before occlusion tests.
const surfaceOffsetCells = 1.5

// linearTolerance is the largest rotation or scale change, per matrix entry,
// that the threshold policy treats as unchanged.
const linearTolerance = 1e-4

// debugEdgeMinWeight hides near-zero edges from debug output.
const debugEdgeMinWeight = 0.01

// Coordinator owns one activated scene at a time. Queries are safe from any
// goroutine; Activate, NotifyTransformed, Propagate and Deactivate are
// serialized internally.
type Coordinator struct {
	cfg *config.Config
	log *zap.Logger
	sim *propagation.Simulator

	mu    sync.Mutex
	state atomic.Pointer[state]
}

// state is everything built by one activation. builder, anchors and energies
// are guarded by Coordinator.mu; index is immutable.
type state struct {
	index    *octree.Index
	builder  *graph.Builder
	anchors  map[string]math.Mat4
	energies propagation.Energies
}

// Stats summarizes the active scene.
type Stats struct {
	Objects int
	Sources int
	Nodes   int
	Edges   int
	Octree  octree.Stats
}

// New creates an inactive coordinator.
func New(cfg *config.Config, log *zap.Logger) *Coordinator {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		cfg: cfg,
		log: log,
		sim: propagation.NewSimulator(cfg.Lighting.Workers, log.Named("propagation")),
	}
}

// Phase returns the simulator phase. Activation leaves it Idle, so Active
// tells an activated scene apart from an inactive coordinator.
func (c *Coordinator) Phase() propagation.Phase {
	return c.sim.Phase()
}

// Active reports whether a scene is activated.
func (c *Coordinator) Active() bool {
	return c.state.Load() != nil
}

// Activate builds the lighting data for src and publishes it. The phase is
// Building while it runs and Idle afterwards; propagation is a separate step
// started by Propagate. On failure or cancellation the previously active
// scene, if any, stays in place. A scene
// without emitters or without spatial extent fails with ErrLightingInactive.
func (c *Coordinator) Activate(ctx context.Context, src scene.Source) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sim.Transition(propagation.Building); err != nil {
		return err
	}
	st, err := c.build(ctx, src)
	if terr := c.sim.Transition(propagation.Idle); terr != nil && err == nil {
		err = terr
	}
	if err != nil {
		c.log.Warn("Lighting activation failed", zap.Error(err))
		return err
	}

	c.state.Store(st)
	stats := st.stats()
	c.log.Info("Lighting activated",
		zap.Int("objects", stats.Objects),
		zap.Int("sources", stats.Sources),
		zap.Int("nodes", stats.Nodes),
		zap.Int("edges", stats.Edges),
		zap.Int("octreeNodes", stats.Octree.Nodes))
	return nil
}

func (c *Coordinator) build(ctx context.Context, src scene.Source) (*state, error) {
	emitters := lighting.NormalizeAll(src.Emitters())
	if len(emitters) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrLightingInactive, ErrNoEmitters)
	}

	area, err := octree.AreaFromBounds(scene.Bounds(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLightingInactive, err)
	}

	geom, err := staticGeometry(src)
	if err != nil {
		return nil, err
	}
	index, err := octree.Build(ctx, octree.BuildOptions{
		MaxDepth: c.cfg.Octree.Depth,
		PageSize: c.cfg.Octree.PageSize,
		MaxPages: c.cfg.Octree.MaxPages,
		Area:     &area,
		Logger:   c.log.Named("octree"),
	}, geom)
	if err != nil {
		return nil, fmt.Errorf("build octree: %w", err)
	}

	samples, err := sampler.SampleAll(ctx, src, sampler.FromConfig(c.cfg.Sampling), c.cfg.Lighting.Workers)
	if err != nil {
		return nil, fmt.Errorf("sample nodes: %w", err)
	}

	gc := c.cfg.Graph
	offset := surfaceOffsetCells * index.LeafSize()
	builder := graph.NewBuilder(graph.Options{
		Node: graph.ConnectOptions{
			MaxLength:       gc.MaxEdgeLength,
			MinWeight:       gc.MinEdgeWeight,
			CheckVisibility: gc.CheckVisibility,
			UseNormals:      gc.UseNormals,
			SurfaceOffset:   offset,
			Occluder:        index,
			Workers:         c.cfg.Lighting.Workers,
		},
		Light: graph.ConnectOptions{
			MaxLength:       gc.MaxEdgeLengthLight,
			MinWeight:       gc.MinEdgeWeightLight,
			CheckVisibility: gc.CheckVisibility,
			UseNormals:      gc.UseNormals,
			SurfaceOffset:   offset,
			Occluder:        index,
			Workers:         c.cfg.Lighting.Workers,
		},
		Logger: c.log.Named("graph"),
	})

	anchors := make(map[string]math.Mat4, len(samples))
	for _, s := range samples {
		builder.AddObject(s.Object.ID, s.Object.Static, s.Object.Transform, s.Nodes)
		anchors[s.Object.ID] = s.Object.Transform
	}
	for _, e := range emitters {
		builder.AddSource(e)
	}
	if err := builder.Build(ctx); err != nil {
		return nil, fmt.Errorf("build light graph: %w", err)
	}

	return &state{index: index, builder: builder, anchors: anchors}, nil
}

// staticGeometry collects the world-space triangles of static renderables.
// Meshes without indices contribute their vertices as points.
func staticGeometry(src scene.Source) (octree.Geometry, error) {
	var geom octree.Geometry
	err := src.Renderables(func(r *scene.Renderable) error {
		if !r.Static {
			return nil
		}
		if len(r.Mesh.Indices) == 0 {
			for _, p := range r.Mesh.Positions {
				geom.Points = append(geom.Points, r.Transform.TransformPoint(p))
			}
			return nil
		}
		r.Mesh.Triangles(func(a, b, c math.Vec3) {
			geom.Triangles = append(geom.Triangles, octree.Triangle{
				r.Transform.TransformPoint(a),
				r.Transform.TransformPoint(b),
				r.Transform.TransformPoint(c),
			})
		})
		return nil
	})
	return geom, err
}

// NotifyTransformed reports a new transform for a dynamic object. Depending on
// the dynamic policy the object's external edges are scheduled for
// recomputation on the next Propagate; it reports whether that happened.
// Under the threshold policy any rotation or scale change counts as a move,
// while translations within MovementThreshold of the last accepted transform
// are ignored.
func (c *Coordinator) NotifyTransformed(objectID string, transform math.Mat4) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state.Load()
	if st == nil {
		return false, ErrNotActive
	}

	if c.cfg.Dynamic.Policy == config.PolicyThreshold {
		anchor, ok := st.anchors[objectID]
		if !ok {
			return false, fmt.Errorf("%w: %s", graph.ErrUnknownObject, objectID)
		}
		moved := transform.Translation().Distance(anchor.Translation())
		if moved <= c.cfg.Dynamic.MovementThreshold && transform.LinearDiff(anchor) <= linearTolerance {
			return false, nil
		}
	}

	if err := st.builder.MarkMoved(objectID, transform); err != nil {
		return false, err
	}
	st.anchors[objectID] = transform
	return true, nil
}

// Propagate recomputes the edges of moved objects, runs the configured number
// of propagation cycles and writes the node energies to sink, which may be nil.
func (c *Coordinator) Propagate(ctx context.Context, sink scene.Sink) (propagation.Energies, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state.Load()
	if st == nil {
		return nil, ErrNotActive
	}

	rebuilt, err := st.builder.RebuildDirty(ctx)
	if err != nil {
		return nil, fmt.Errorf("rebuild dynamic edges: %w", err)
	}
	if rebuilt > 0 {
		c.log.Debug("Rebuilt moved objects", zap.Int("objects", rebuilt))
	}

	energies, err := c.sim.Run(ctx, st.builder.Graph(), c.cfg.Lighting.PropagationCycles, sink)
	if err != nil {
		return nil, err
	}
	st.energies = energies
	return energies, nil
}

// IsOccluded tests the segment a-b against the static occupancy index.
// Without an active scene nothing is occluded.
func (c *Coordinator) IsOccluded(a, b math.Vec3) bool {
	st := c.state.Load()
	if st == nil {
		return false
	}
	return st.index.IsOccluded(a, b)
}

// NodeEnergy returns the last propagated energy of a node of an object.
func (c *Coordinator) NodeEnergy(objectID string, nodeID int) (math.Vec3, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state.Load()
	if st == nil || nodeID < 0 || nodeID >= len(st.energies) {
		return math.Vec3{}, false
	}
	owner, ok := st.builder.Graph().Owner(nodeID)
	if !ok || owner != objectID {
		return math.Vec3{}, false
	}
	return st.energies[nodeID], true
}

// Nodes returns the IDs of the light nodes sampled from an object.
func (c *Coordinator) Nodes(objectID string) []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state.Load()
	if st == nil {
		return nil
	}
	m, ok := st.builder.Graph().Map(objectID)
	if !ok {
		return nil
	}
	return append([]int(nil), m.Nodes...)
}

// Stats describes the active scene.
func (c *Coordinator) Stats() (Stats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state.Load()
	if st == nil {
		return Stats{}, false
	}
	return st.stats(), true
}

func (st *state) stats() Stats {
	g := st.builder.Graph()
	return Stats{
		Objects: len(g.Maps),
		Sources: len(g.Sources),
		Nodes:   g.NodeCount(),
		Edges:   g.EdgeCount(),
		Octree:  st.index.Stats(),
	}
}

// Debug returns the debug artifacts enabled in the config.
func (c *Coordinator) Debug() (debug.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state.Load()
	if st == nil {
		return debug.Frame{}, ErrNotActive
	}

	var f debug.Frame
	if c.cfg.Debug.ShowOctree {
		cells := st.index.OccupiedBounds()
		f.Octree = debug.OctreeWireframe(cells, st.index.LeafSize()*0.05)
		f.Cells = len(cells)
	}
	if c.cfg.Debug.ShowEdges {
		f.Edges = debug.EdgeLines(st.builder.Graph().Snapshot(), debugEdgeMinWeight)
	}
	return f, nil
}

// EnergyImage renders the last propagated energy of every object node as a
// top-down image. Before the first Propagate all nodes are black.
func (c *Coordinator) EnergyImage(size int) (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state.Load()
	if st == nil {
		return nil, ErrNotActive
	}

	g := st.builder.Graph()
	points := make([]debug.EnergyPoint, 0, g.NodeCount())
	for id, n := range g.Nodes {
		if _, ok := g.Owner(id); !ok {
			continue
		}
		p := debug.EnergyPoint{Position: n.Position}
		if id < len(st.energies) {
			p.Energy = st.energies[id]
		}
		points = append(points, p)
	}
	return debug.EnergyImage(points, size), nil
}

// Deactivate releases the active scene.
func (c *Coordinator) Deactivate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Swap(nil) == nil {
		return
	}
	if c.sim.Phase() != propagation.Idle {
		_ = c.sim.Transition(propagation.Idle)
	}
	c.log.Info("Lighting deactivated")
}
