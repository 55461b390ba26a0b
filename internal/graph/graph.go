package graph

import (
	"github.com/Faultbox/lightgraph/internal/lighting"
	"github.com/Faultbox/lightgraph/pkg/math"
)

// LightNodeMap holds the nodes sampled from one object and the edges that
// start or end on them.
type LightNodeMap struct {
	ObjectID  string
	Static    bool
	Transform math.Mat4
	// Nodes are the arena IDs of this map's nodes, in sampling order.
	Nodes []int
	// Local are the sampled nodes in object space; they are re-placed into
	// the arena whenever the transform changes.
	Local    []LightNode
	Internal []Edge
	// ExternalStatic links this map to other static maps and never changes.
	ExternalStatic []*Connection
	// ExternalDynamic links this map to any map when either side is dynamic.
	ExternalDynamic []*Connection

	index int
	dirty bool
}

// Dirty reports whether the map moved since its connections were computed.
func (m *LightNodeMap) Dirty() bool {
	return m.dirty
}

// Connection holds the edges between two maps in both directions.
type Connection struct {
	A, B  *LightNodeMap
	Edges []Edge
}

// Touches reports whether m is one of the connection's endpoints.
func (c *Connection) Touches(m *LightNodeMap) bool {
	return c.A == m || c.B == m
}

// Other returns the endpoint that is not m.
func (c *Connection) Other(m *LightNodeMap) *LightNodeMap {
	if c.A == m {
		return c.B
	}
	return c.A
}

// LightSourceMap wraps one emitter as a single light node with first-hop
// edges into the object maps.
type LightSourceMap struct {
	Emitter lighting.Emitter
	Node    int
	// Edges are keyed by the target map's object ID.
	Edges map[string][]Edge
}

// Graph is the node arena plus every map and connection built over it.
type Graph struct {
	Nodes   []LightNode
	owners  []*LightNodeMap // nil for light source nodes
	Maps    []*LightNodeMap
	Sources []*LightSourceMap
	static  []*Connection
	dynamic []*Connection
}

// NodeCount returns the size of the arena.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// Node returns the world-space node with the given ID.
func (g *Graph) Node(id int) (LightNode, bool) {
	if id < 0 || id >= len(g.Nodes) {
		return LightNode{}, false
	}
	return g.Nodes[id], true
}

// Owner returns the object ID a node was sampled from. Light source nodes
// have no owner.
func (g *Graph) Owner(id int) (string, bool) {
	if id < 0 || id >= len(g.owners) || g.owners[id] == nil {
		return "", false
	}
	return g.owners[id].ObjectID, true
}

// Map returns the node map of an object.
func (g *Graph) Map(objectID string) (*LightNodeMap, bool) {
	for _, m := range g.Maps {
		if m.ObjectID == objectID {
			return m, true
		}
	}
	return nil, false
}

// Seeds returns the energy each light source injects per cycle.
func (g *Graph) Seeds() []Seed {
	seeds := make([]Seed, 0, len(g.Sources))
	for _, src := range g.Sources {
		seeds = append(seeds, Seed{Node: src.Node, Energy: src.Emitter.Seed()})
	}
	return seeds
}

// Edges flattens every edge in a fixed order: source edges per source in map
// order, then internal edges per map, then static and dynamic connections.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, src := range g.Sources {
		for _, m := range g.Maps {
			out = append(out, src.Edges[m.ObjectID]...)
		}
	}
	for _, m := range g.Maps {
		out = append(out, m.Internal...)
	}
	for _, c := range g.static {
		out = append(out, c.Edges...)
	}
	for _, c := range g.dynamic {
		out = append(out, c.Edges...)
	}
	return out
}

// EdgeCount returns len(Edges()) without building the slice.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, src := range g.Sources {
		for _, edges := range src.Edges {
			n += len(edges)
		}
	}
	for _, m := range g.Maps {
		n += len(m.Internal)
	}
	for _, c := range g.static {
		n += len(c.Edges)
	}
	for _, c := range g.dynamic {
		n += len(c.Edges)
	}
	return n
}

// Snapshot is a read-only copy of the graph for debug display.
type Snapshot struct {
	Nodes []LightNode
	Edges []Edge
}

// Snapshot copies the current nodes and edges.
func (g *Graph) Snapshot() Snapshot {
	nodes := make([]LightNode, len(g.Nodes))
	copy(nodes, g.Nodes)
	return Snapshot{Nodes: nodes, Edges: g.Edges()}
}

func (g *Graph) worldNodes(m *LightNodeMap) []LightNode {
	out := make([]LightNode, len(m.Nodes))
	for i, id := range m.Nodes {
		out[i] = g.Nodes[id]
	}
	return out
}

func (g *Graph) mapBounds(m *LightNodeMap) math.AABB {
	b := math.EmptyAABB()
	for _, id := range m.Nodes {
		b = b.Extend(g.Nodes[id].Position)
	}
	return b
}
