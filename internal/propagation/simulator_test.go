package propagation

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/lightgraph/internal/graph"
	"github.com/Faultbox/lightgraph/internal/scene"
	"github.com/Faultbox/lightgraph/pkg/math"
)

type network struct {
	nodes  int
	edges  []graph.Edge
	seeds  []graph.Seed
	owners map[int]string
}

func (n *network) NodeCount() int      { return n.nodes }
func (n *network) Edges() []graph.Edge { return n.edges }
func (n *network) Seeds() []graph.Seed { return n.seeds }
func (n *network) Owner(id int) (string, bool) {
	o, ok := n.owners[id]
	return o, ok
}

var white = math.Splat(1)

// single is one light source feeding one surface node through a 0.5 edge.
func single() *network {
	return &network{
		nodes:  2,
		edges:  []graph.Edge{{Source: 0, Target: 1, Weight: math.Splat(0.5)}},
		seeds:  []graph.Seed{{Node: 0, Energy: white}},
		owners: map[int]string{1: "wall"},
	}
}

func TestSingleEdgeEnergy(t *testing.T) {
	for _, cycles := range []int{1, 2, 5} {
		e, err := Propagate(context.Background(), single(), cycles, 1)
		require.NoError(t, err)
		assert.Equal(t, math.Splat(0.5), e[1], "cycles=%d", cycles)
	}
}

func TestChainAttenuates(t *testing.T) {
	net := &network{
		nodes: 3,
		edges: []graph.Edge{
			{Source: 0, Target: 1, Weight: math.Splat(0.5)},
			{Source: 1, Target: 2, Weight: math.Splat(0.5)},
		},
		seeds: []graph.Seed{{Node: 0, Energy: white}},
	}

	e, err := Propagate(context.Background(), net, 1, 1)
	require.NoError(t, err)
	assert.True(t, e[2].IsZero(), "one cycle reaches one hop")

	e, err = Propagate(context.Background(), net, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, math.Splat(0.25), e[2])
}

func TestPerChannelWeights(t *testing.T) {
	net := single()
	net.edges[0].Weight = math.Vec3{X: 1, Y: 0.5, Z: 0}
	net.seeds[0].Energy = math.Vec3{X: 2, Y: 2, Z: 2}

	e, err := Propagate(context.Background(), net, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, math.Vec3{X: 2, Y: 1, Z: 0}, e[1])
}

func TestNoSourcesIsDark(t *testing.T) {
	net := single()
	net.seeds = nil

	e, err := Propagate(context.Background(), net, 5, 1)
	require.NoError(t, err)
	for i, v := range e {
		assert.True(t, v.IsZero(), "node %d", i)
	}
}

func randomNetwork(r *rand.Rand, nodes, edges int) *network {
	net := &network{nodes: nodes}
	for i := 0; i < edges; i++ {
		net.edges = append(net.edges, graph.Edge{
			Source: r.Intn(nodes),
			Target: r.Intn(nodes),
			Weight: math.Vec3{X: r.Float32() * 0.3, Y: r.Float32() * 0.3, Z: r.Float32() * 0.3},
		})
	}
	for i := 0; i < 5; i++ {
		net.seeds = append(net.seeds, graph.Seed{Node: r.Intn(nodes), Energy: white})
	}
	return net
}

func TestDeterministicAcrossWorkers(t *testing.T) {
	net := randomNetwork(rand.New(rand.NewSource(3)), 3000, 30000)

	serial, err := Propagate(context.Background(), net, 4, 1)
	require.NoError(t, err)
	parallel, err := Propagate(context.Background(), net, 4, 8)
	require.NoError(t, err)
	again, err := Propagate(context.Background(), net, 4, 8)
	require.NoError(t, err)

	if diff := cmp.Diff(serial, parallel); diff != "" {
		t.Errorf("parallel result differs:\n%s", diff)
	}
	assert.Equal(t, parallel, again)
}

func TestOutOfRangeEdge(t *testing.T) {
	net := single()
	net.edges = append(net.edges, graph.Edge{Source: 0, Target: 7})

	_, err := Propagate(context.Background(), net, 1, 1)
	assert.Error(t, err)
}

func TestPropagateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Propagate(ctx, single(), 3, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunWritesSink(t *testing.T) {
	sim := NewSimulator(2, nil)
	sink := scene.NewEnergyMap()

	_, err := sim.Run(context.Background(), single(), 3, sink)
	require.NoError(t, err)

	assert.Equal(t, Done, sim.Phase())
	cycle, cycles := sim.Progress()
	assert.Equal(t, 3, cycle)
	assert.Equal(t, 3, cycles)

	e, ok := sink.Energy("wall", 1)
	require.True(t, ok)
	assert.Equal(t, math.Splat(0.5), e)
	assert.Equal(t, []string{"wall"}, sink.ObjectIDs(), "light source nodes are not written")

	_, err = sim.Run(context.Background(), single(), 1, nil)
	assert.NoError(t, err, "a finished simulator can run again")
}

func TestRunFailureReturnsToIdle(t *testing.T) {
	sim := NewSimulator(1, nil)
	net := single()
	net.edges[0].Target = 9

	_, err := sim.Run(context.Background(), net, 1, nil)
	require.Error(t, err)
	assert.Equal(t, Idle, sim.Phase())
}

func TestTransitions(t *testing.T) {
	sim := NewSimulator(1, nil)
	assert.Equal(t, Idle, sim.Phase())

	assert.ErrorIs(t, sim.Transition(Done), ErrInvalidTransition)
	require.NoError(t, sim.Transition(Building))
	assert.ErrorIs(t, sim.Transition(Building), ErrInvalidTransition)
	require.NoError(t, sim.Transition(Propagating))

	_, err := sim.Run(context.Background(), single(), 1, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition, "only one run at a time")

	require.NoError(t, sim.Transition(Done))
	require.NoError(t, sim.Transition(Idle))
	assert.Equal(t, "idle", sim.Phase().String())
}
