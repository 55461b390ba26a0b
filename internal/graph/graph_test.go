package graph

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/lightgraph/internal/lighting"
	"github.com/Faultbox/lightgraph/internal/scene"
	"github.com/Faultbox/lightgraph/pkg/math"
)

type occluderFunc func(a, b math.Vec3) bool

func (f occluderFunc) IsOccluded(a, b math.Vec3) bool { return f(a, b) }

func node(id int, pos, normal math.Vec3) LightNode {
	return LightNode{ID: id, Position: pos, Normal: normal, Color: scene.White}
}

// grid returns n*n object-space nodes on the z=0 plane.
func grid(n int, normal math.Vec3) []LightNode {
	var nodes []LightNode
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			p := math.Vec3{X: float32(i) - float32(n-1)/2, Y: float32(j) - float32(n-1)/2}
			nodes = append(nodes, node(0, p, normal))
		}
	}
	return nodes
}

func defaultOptions() Options {
	return Options{
		Node:  ConnectOptions{MaxLength: 10, MinWeight: 0.001, UseNormals: true},
		Light: ConnectOptions{MaxLength: 50, MinWeight: 0.0001, UseNormals: true},
	}
}

var (
	up   = math.Vec3{Z: 1}
	down = math.Vec3{Z: -1}
)

func TestWeight(t *testing.T) {
	a := node(0, math.Vec3{}, up)
	b := node(1, math.Vec3{Z: 5}, down)
	away := node(2, math.Vec3{Z: 5}, up)
	bare := node(3, math.Vec3{Z: 5}, math.Vec3{})

	tests := []struct {
		name       string
		s, t       LightNode
		useNormals bool
		want       float32
	}{
		{"distance only", a, b, false, 0.5},
		{"facing", a, b, true, 0.5},
		{"target facing away", a, away, true, 0},
		{"zero normal skips factor", a, bare, true, 0.5},
		{"beyond max length", a, node(4, math.Vec3{Z: 11}, down), false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Weight(tt.s, tt.t, 10, tt.useNormals), 1e-6)
		})
	}
}

func TestConnectFilters(t *testing.T) {
	from := []LightNode{node(0, math.Vec3{}, up)}
	to := []LightNode{
		node(1, math.Vec3{Z: 2}, down),  // kept
		node(2, math.Vec3{Z: 20}, down), // too far
		node(3, math.Vec3{Z: 9.99}, down),
		node(0, math.Vec3{Z: 1}, down), // same id
	}

	edges, err := Connect(context.Background(), from, to, ConnectOptions{MaxLength: 10, MinWeight: 0.01})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, 0, edges[0].Source)
	assert.Equal(t, 1, edges[0].Target)
	assert.InDelta(t, 0.8, edges[0].Weight.X, 1e-6)
}

func TestConnectAppliesTargetColor(t *testing.T) {
	from := []LightNode{node(0, math.Vec3{}, math.Vec3{})}
	red := node(1, math.Vec3{X: 5}, math.Vec3{})
	red.Color = scene.Color{R: 1, G: 0.5, B: 0, A: 1}

	edges, err := Connect(context.Background(), from, []LightNode{red}, ConnectOptions{MaxLength: 10})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, math.Vec3{X: 0.5, Y: 0.25, Z: 0}, edges[0].Weight)
}

func TestConnectWeightsAreNonNegative(t *testing.T) {
	from := []LightNode{node(0, math.Vec3{}, math.Vec3{})}
	odd := node(1, math.Vec3{X: 1}, math.Vec3{})
	odd.Color = scene.Color{R: -1, G: 1, B: 1, A: 1}

	edges, err := Connect(context.Background(), from, []LightNode{odd}, ConnectOptions{MaxLength: 10, MinWeight: 0.01})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, float32(0), edges[0].Weight.X)
	assert.InDelta(t, 0.9, edges[0].Weight.Y, 1e-6)
	assert.InDelta(t, 0.9, edges[0].Weight.Z, 1e-6)
}

func TestConnectVisibility(t *testing.T) {
	// A wall on the x=0 plane.
	wall := occluderFunc(func(a, b math.Vec3) bool {
		return (a.X < 0) != (b.X < 0)
	})
	from := []LightNode{node(0, math.Vec3{X: -1}, math.Vec3{})}
	to := []LightNode{
		node(1, math.Vec3{X: 1}, math.Vec3{}),
		node(2, math.Vec3{X: -2}, math.Vec3{}),
	}

	opts := ConnectOptions{MaxLength: 10, Occluder: wall}
	edges, err := Connect(context.Background(), from, to, opts)
	require.NoError(t, err)
	assert.Len(t, edges, 2, "visibility is only checked on request")

	opts.CheckVisibility = true
	edges, err = Connect(context.Background(), from, to, opts)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, 2, edges[0].Target)
}

func TestConnectLiftsEndpoints(t *testing.T) {
	var gotA, gotB math.Vec3
	occ := occluderFunc(func(a, b math.Vec3) bool {
		gotA, gotB = a, b
		return false
	})
	from := []LightNode{node(0, math.Vec3{}, up)}
	to := []LightNode{node(1, math.Vec3{Z: 4}, down)}

	_, err := Connect(context.Background(), from, to, ConnectOptions{
		MaxLength: 10, CheckVisibility: true, SurfaceOffset: 0.5, Occluder: occ, Workers: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, math.Vec3{Z: 0.5}, gotA)
	assert.Equal(t, math.Vec3{Z: 3.5}, gotB)
}

func TestConnectOrderIndependentOfWorkers(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	nodes := make([]LightNode, 120)
	for i := range nodes {
		p := math.Vec3{X: r.Float32() * 10, Y: r.Float32() * 10, Z: r.Float32() * 10}
		n := math.Vec3{X: r.Float32() - 0.5, Y: r.Float32() - 0.5, Z: r.Float32() - 0.5}.Normalize()
		nodes[i] = node(i, p, n)
	}

	opts := ConnectOptions{MaxLength: 8, MinWeight: 0.01, UseNormals: true, Workers: 1}
	serial, err := Connect(context.Background(), nodes, nodes, opts)
	require.NoError(t, err)
	require.NotEmpty(t, serial)

	opts.Workers = 8
	parallel, err := Connect(context.Background(), nodes, nodes, opts)
	require.NoError(t, err)
	if diff := cmp.Diff(serial, parallel); diff != "" {
		t.Errorf("edges differ (-serial +parallel):\n%s", diff)
	}

	for i := 1; i < len(serial); i++ {
		prev, cur := serial[i-1], serial[i]
		assert.True(t, prev.Source < cur.Source || (prev.Source == cur.Source && prev.Target < cur.Target),
			"edge %d out of order", i)
	}
}

func TestConnectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	nodes := grid(3, up)
	for i := range nodes {
		nodes[i].ID = i
	}
	_, err := Connect(ctx, nodes, nodes, ConnectOptions{MaxLength: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

// facingScene builds two static planes facing each other at z=0 and z=2, a
// dynamic plane facing down at z=4, and a light between the static planes.
func facingScene(t *testing.T) (*Builder, *LightNodeMap, *LightNodeMap, *LightNodeMap) {
	t.Helper()
	b := NewBuilder(defaultOptions())
	floor := b.AddObject("floor", true, math.Identity(), grid(3, up))
	ceiling := b.AddObject("ceiling", true, math.Translate(0, 0, 2), grid(3, down))
	drone := b.AddObject("drone", false, math.Translate(0, 0, 4), grid(2, down))
	b.AddSource(lighting.Emitter{ID: "lamp", Position: math.Vec3{Z: 1}, Color: math.Vec3{X: 1, Y: 1, Z: 1}, Intensity: 1})
	require.NoError(t, b.Build(context.Background()))
	return b, floor, ceiling, drone
}

func TestBuilderAssignsArenaIDs(t *testing.T) {
	b, floor, ceiling, drone := facingScene(t)
	g := b.Graph()

	assert.Equal(t, 9+9+4+1, g.NodeCount())
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8}, floor.Nodes)
	assert.Equal(t, 9, ceiling.Nodes[0])
	assert.Equal(t, 18, drone.Nodes[0])

	owner, ok := g.Owner(10)
	require.True(t, ok)
	assert.Equal(t, "ceiling", owner)

	_, ok = g.Owner(22)
	assert.False(t, ok, "light source nodes have no owner")

	n, ok := g.Node(9)
	require.True(t, ok)
	assert.InDelta(t, 2, n.Position.Z, 1e-6)
	assert.InDelta(t, -1, n.Normal.Z, 1e-6)
}

func TestBuilderSplitsStaticAndDynamic(t *testing.T) {
	b, floor, ceiling, drone := facingScene(t)
	g := b.Graph()

	require.Len(t, floor.ExternalStatic, 1)
	assert.Same(t, floor.ExternalStatic[0], ceiling.ExternalStatic[0])
	assert.Same(t, ceiling, floor.ExternalStatic[0].Other(floor))

	// Only the floor faces the drone.
	require.Len(t, drone.ExternalDynamic, 1)
	assert.True(t, drone.ExternalDynamic[0].Touches(floor))
	assert.Empty(t, ceiling.ExternalDynamic)

	for _, m := range g.Maps {
		assert.Empty(t, m.Internal, "coplanar nodes do not light each other")
	}

	src := g.Sources[0]
	assert.Len(t, src.Edges["floor"], 9)
	assert.Len(t, src.Edges["ceiling"], 9)
	assert.Len(t, src.Edges["drone"], 4)

	assert.Len(t, g.Edges(), g.EdgeCount())
	assert.Equal(t, []Seed{{Node: 22, Energy: math.Vec3{X: 1, Y: 1, Z: 1}}}, g.Seeds())
}

func TestBuildIsRepeatable(t *testing.T) {
	b, _, _, _ := facingScene(t)
	before := b.Graph().Edges()

	require.NoError(t, b.Build(context.Background()))
	if diff := cmp.Diff(before, b.Graph().Edges()); diff != "" {
		t.Errorf("rebuild changed edges:\n%s", diff)
	}
}

func TestMarkMovedErrors(t *testing.T) {
	b, _, _, _ := facingScene(t)

	assert.ErrorIs(t, b.MarkMoved("floor", math.Identity()), ErrStaticObject)
	assert.ErrorIs(t, b.MarkMoved("ghost", math.Identity()), ErrUnknownObject)
	assert.False(t, b.Dirty())
}

func TestRebuildDirty(t *testing.T) {
	b, floor, ceiling, drone := facingScene(t)
	g := b.Graph()
	before := g.Edges()
	static := floor.ExternalStatic[0]

	n, err := b.RebuildDirty(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "nothing moved")

	require.NoError(t, b.MarkMoved("drone", math.Translate(1000, 0, 4)))
	assert.True(t, b.Dirty())
	assert.True(t, drone.Dirty())

	n, err = b.RebuildDirty(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, b.Dirty())
	assert.Empty(t, drone.ExternalDynamic)
	assert.Empty(t, floor.ExternalDynamic)
	assert.Same(t, static, floor.ExternalStatic[0])
	assert.Same(t, static, ceiling.ExternalStatic[0])

	moved, ok := g.Node(drone.Nodes[0])
	require.True(t, ok)
	assert.InDelta(t, 1000, moved.Position.X, 1)

	require.NoError(t, b.MarkMoved("drone", math.Translate(0, 0, 4)))
	_, err = b.RebuildDirty(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff(before, g.Edges()); diff != "" {
		t.Errorf("moving back did not restore edges:\n%s", diff)
	}
}

func TestRebuildDirtyCancelledKeepsGraph(t *testing.T) {
	b, _, _, drone := facingScene(t)
	before := b.Graph().Edges()

	require.NoError(t, b.MarkMoved("drone", math.Translate(0, 0, 5)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.RebuildDirty(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, drone.Dirty())
	if diff := cmp.Diff(before, b.Graph().Edges()); diff != "" {
		t.Errorf("cancelled rebuild changed edges:\n%s", diff)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	b, _, _, _ := facingScene(t)
	snap := b.Graph().Snapshot()
	snap.Nodes[0].Position = math.Vec3{X: 99}

	n, _ := b.Graph().Node(0)
	assert.NotEqual(t, float32(99), n.Position.X)
	assert.Len(t, snap.Edges, b.Graph().EdgeCount())
}
