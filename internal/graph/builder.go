package graph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/lightgraph/internal/lighting"
	"github.com/Faultbox/lightgraph/internal/scene"
	"github.com/Faultbox/lightgraph/pkg/math"
)

// Options configures a Builder. Node limits apply between surface nodes,
// Light limits between a light source and surface nodes.
type Options struct {
	Node   ConnectOptions
	Light  ConnectOptions
	Logger *zap.Logger
}

// Builder assembles a Graph from object node maps and light sources and
// keeps the dynamic part of it up to date. It is not safe for concurrent use.
type Builder struct {
	opts  Options
	log   *zap.Logger
	graph *Graph
}

// NewBuilder creates a builder with an empty arena.
func NewBuilder(opts Options) *Builder {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{opts: opts, log: log, graph: &Graph{}}
}

// Graph returns the graph being built.
func (b *Builder) Graph() *Graph {
	return b.graph
}

// AddObject adds the nodes sampled from one object. Nodes are given in object
// space; they receive consecutive arena IDs and are placed with transform.
func (b *Builder) AddObject(objectID string, static bool, transform math.Mat4, local []LightNode) *LightNodeMap {
	g := b.graph
	m := &LightNodeMap{
		ObjectID:  objectID,
		Static:    static,
		Transform: transform,
		Local:     append([]LightNode(nil), local...),
		Nodes:     make([]int, len(local)),
		index:     len(g.Maps),
	}
	for i := range local {
		id := len(g.Nodes)
		g.Nodes = append(g.Nodes, LightNode{ID: id})
		g.owners = append(g.owners, m)
		m.Nodes[i] = id
		m.Local[i].ID = id
	}
	b.place(m)
	g.Maps = append(g.Maps, m)
	return m
}

// AddSource adds an emitter as an omnidirectional light node.
func (b *Builder) AddSource(e lighting.Emitter) *LightSourceMap {
	g := b.graph
	id := len(g.Nodes)
	g.Nodes = append(g.Nodes, LightNode{
		ID:       id,
		Position: e.Position,
		Color:    scene.Color{R: e.Color.X, G: e.Color.Y, B: e.Color.Z, A: 1},
	})
	g.owners = append(g.owners, nil)

	src := &LightSourceMap{Emitter: e, Node: id, Edges: make(map[string][]Edge)}
	g.Sources = append(g.Sources, src)
	return src
}

// Build computes every edge from scratch: internal edges per map, connections
// per map pair in both directions, and first-hop edges from each light source.
func (b *Builder) Build(ctx context.Context) error {
	g := b.graph

	internal := make([][]Edge, len(g.Maps))
	for i, m := range g.Maps {
		nodes := g.worldNodes(m)
		edges, err := Connect(ctx, nodes, nodes, b.opts.Node)
		if err != nil {
			return fmt.Errorf("internal edges of %s: %w", m.ObjectID, err)
		}
		internal[i] = edges
	}

	var conns []*Connection
	for i, a := range g.Maps {
		for _, o := range g.Maps[i+1:] {
			c, err := b.connectMaps(ctx, a, o)
			if err != nil {
				return err
			}
			if c != nil {
				conns = append(conns, c)
			}
		}
	}

	sourceEdges := make([]map[string][]Edge, len(g.Sources))
	for i, src := range g.Sources {
		sourceEdges[i] = make(map[string][]Edge)
		for _, m := range g.Maps {
			edges, err := b.connectSource(ctx, src, m)
			if err != nil {
				return err
			}
			if len(edges) > 0 {
				sourceEdges[i][m.ObjectID] = edges
			}
		}
	}

	g.static, g.dynamic = nil, nil
	for i, m := range g.Maps {
		m.Internal = internal[i]
		m.ExternalStatic, m.ExternalDynamic = nil, nil
		m.dirty = false
	}
	for _, c := range conns {
		g.attach(c)
	}
	for i, src := range g.Sources {
		src.Edges = sourceEdges[i]
	}

	b.log.Info("Light graph built",
		zap.Int("maps", len(g.Maps)),
		zap.Int("sources", len(g.Sources)),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("static_connections", len(g.static)),
		zap.Int("dynamic_connections", len(g.dynamic)),
		zap.Int("edges", g.EdgeCount()))
	return nil
}

// MarkMoved records a new transform for a dynamic object, re-places its nodes,
// and flags its external and light edges for recomputation.
func (b *Builder) MarkMoved(objectID string, transform math.Mat4) error {
	m, ok := b.graph.Map(objectID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownObject, objectID)
	}
	if m.Static {
		return fmt.Errorf("%w: %s", ErrStaticObject, objectID)
	}
	m.Transform = transform
	b.place(m)
	m.dirty = true
	return nil
}

// Dirty reports whether any map waits for RebuildDirty.
func (b *Builder) Dirty() bool {
	for _, m := range b.graph.Maps {
		if m.dirty {
			return true
		}
	}
	return false
}

// RebuildDirty recomputes the dynamic connections and light edges of every
// moved map and returns how many maps were rebuilt. Internal edges move
// rigidly with their object and static-static connections never change.
// The graph is left untouched if the context is cancelled.
func (b *Builder) RebuildDirty(ctx context.Context) (int, error) {
	g := b.graph

	var dirty []*LightNodeMap
	for _, m := range g.Maps {
		if m.dirty {
			dirty = append(dirty, m)
		}
	}
	if len(dirty) == 0 {
		return 0, nil
	}

	var conns []*Connection
	for _, d := range dirty {
		for _, o := range g.Maps {
			if o == d || (o.dirty && o.index < d.index) {
				continue
			}
			a, c := d, o
			if c.index < a.index {
				a, c = c, a
			}
			conn, err := b.connectMaps(ctx, a, c)
			if err != nil {
				return 0, err
			}
			if conn != nil {
				conns = append(conns, conn)
			}
		}
	}

	type sourceUpdate struct {
		src    *LightSourceMap
		target *LightNodeMap
		edges  []Edge
	}
	var updates []sourceUpdate
	for _, src := range g.Sources {
		for _, d := range dirty {
			edges, err := b.connectSource(ctx, src, d)
			if err != nil {
				return 0, err
			}
			updates = append(updates, sourceUpdate{src: src, target: d, edges: edges})
		}
	}

	g.dynamic = dropTouching(g.dynamic, func(c *Connection) bool {
		return c.A.dirty || c.B.dirty
	})
	for _, m := range g.Maps {
		m.ExternalDynamic = dropTouching(m.ExternalDynamic, func(c *Connection) bool {
			return c.A.dirty || c.B.dirty
		})
	}
	for _, c := range conns {
		g.attach(c)
	}
	for _, u := range updates {
		if len(u.edges) == 0 {
			delete(u.src.Edges, u.target.ObjectID)
			continue
		}
		u.src.Edges[u.target.ObjectID] = u.edges
	}
	for _, d := range dirty {
		d.dirty = false
	}

	b.log.Debug("Dynamic light edges rebuilt",
		zap.Int("maps", len(dirty)),
		zap.Int("connections", len(conns)))
	return len(dirty), nil
}

func (b *Builder) place(m *LightNodeMap) {
	g := b.graph
	for i, id := range m.Nodes {
		n := m.Local[i]
		g.Nodes[id] = LightNode{
			ID:       id,
			Position: m.Transform.TransformPoint(n.Position),
			Normal:   m.Transform.TransformDirection(n.Normal).Normalize(),
			Color:    n.Color,
		}
	}
}

func (b *Builder) connectMaps(ctx context.Context, a, o *LightNodeMap) (*Connection, error) {
	g := b.graph
	if len(a.Nodes) == 0 || len(o.Nodes) == 0 {
		return nil, nil
	}
	if g.mapBounds(a).Distance(g.mapBounds(o)) > b.opts.Node.MaxLength {
		return nil, nil
	}

	wa, wo := g.worldNodes(a), g.worldNodes(o)
	forward, err := Connect(ctx, wa, wo, b.opts.Node)
	if err != nil {
		return nil, fmt.Errorf("connect %s -> %s: %w", a.ObjectID, o.ObjectID, err)
	}
	backward, err := Connect(ctx, wo, wa, b.opts.Node)
	if err != nil {
		return nil, fmt.Errorf("connect %s -> %s: %w", o.ObjectID, a.ObjectID, err)
	}
	if len(forward)+len(backward) == 0 {
		return nil, nil
	}
	return &Connection{A: a, B: o, Edges: append(forward, backward...)}, nil
}

func (b *Builder) connectSource(ctx context.Context, src *LightSourceMap, m *LightNodeMap) ([]Edge, error) {
	g := b.graph
	if len(m.Nodes) == 0 {
		return nil, nil
	}

	opts := b.opts.Light
	if r := src.Emitter.Range; r > 0 && r < opts.MaxLength {
		opts.MaxLength = r
	}
	p := g.Nodes[src.Node].Position
	if g.mapBounds(m).Distance(math.NewAABB(p, p)) > opts.MaxLength {
		return nil, nil
	}

	edges, err := Connect(ctx, []LightNode{g.Nodes[src.Node]}, g.worldNodes(m), opts)
	if err != nil {
		return nil, fmt.Errorf("light %s -> %s: %w", src.Emitter.ID, m.ObjectID, err)
	}
	return edges, nil
}

func (g *Graph) attach(c *Connection) {
	if c.A.Static && c.B.Static {
		g.static = append(g.static, c)
		c.A.ExternalStatic = append(c.A.ExternalStatic, c)
		c.B.ExternalStatic = append(c.B.ExternalStatic, c)
		return
	}
	g.dynamic = append(g.dynamic, c)
	c.A.ExternalDynamic = append(c.A.ExternalDynamic, c)
	c.B.ExternalDynamic = append(c.B.ExternalDynamic, c)
}

func dropTouching(conns []*Connection, drop func(*Connection) bool) []*Connection {
	out := conns[:0]
	for _, c := range conns {
		if !drop(c) {
			out = append(out, c)
		}
	}
	for i := len(out); i < len(conns); i++ {
		conns[i] = nil
	}
	return out
}
