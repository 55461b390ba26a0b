package gi

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Faultbox/lightgraph/internal/config"
	"github.com/Faultbox/lightgraph/internal/graph"
	"github.com/Faultbox/lightgraph/internal/lighting"
	"github.com/Faultbox/lightgraph/internal/octree"
	"github.com/Faultbox/lightgraph/internal/propagation"
	"github.com/Faultbox/lightgraph/internal/scene"
	"github.com/Faultbox/lightgraph/pkg/math"
)

// room is a floor and a downward facing ceiling 4 units apart with a lamp
// between them and a dynamic crate on the floor.
func room() *scene.Scene {
	return &scene.Scene{
		Objects: []*scene.Renderable{
			{ID: "floor", Mesh: scene.Plane(10, 4, scene.White), Transform: math.Identity(), Static: true},
			{ID: "ceiling", Mesh: scene.Plane(10, 4, scene.White), Transform: math.TRS(math.Vec3{Y: 4}, 0, math.Vec3{X: 1, Y: -1, Z: 1}), Static: true},
			{ID: "crate", Mesh: scene.Box(math.Splat(1), 1, scene.White), Transform: math.Translate(3, 0.5, 3)},
		},
		Lights: []lighting.Emitter{
			{ID: "lamp", Position: math.Vec3{Y: 2}, Color: math.Splat(1), Intensity: 1},
		},
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Octree.Depth = 6
	cfg.Sampling.Percent = 1
	cfg.Lighting.PropagationCycles = 3
	return cfg
}

func activated(t *testing.T, cfg *config.Config) *Coordinator {
	t.Helper()
	c := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, c.Activate(context.Background(), room()))
	return c
}

func TestActivate(t *testing.T) {
	c := activated(t, testConfig())

	assert.True(t, c.Active())
	assert.Equal(t, propagation.Idle, c.Phase())

	stats, ok := c.Stats()
	require.True(t, ok)
	assert.Equal(t, 3, stats.Objects)
	assert.Equal(t, 1, stats.Sources)
	assert.Equal(t, 25+25+24+1, stats.Nodes)
	assert.Positive(t, stats.Edges)
	assert.Positive(t, stats.Octree.OpaqueLeaves)

	assert.Len(t, c.Nodes("floor"), 25)
	assert.Nil(t, c.Nodes("ghost"))
}

func TestActivateWithoutEmitters(t *testing.T) {
	c := New(testConfig(), nil)

	dark := room()
	dark.Lights = []lighting.Emitter{{Position: math.Vec3{Y: 2}, Color: math.Splat(1), Intensity: 0}}

	err := c.Activate(context.Background(), dark)
	assert.ErrorIs(t, err, ErrLightingInactive)
	assert.ErrorIs(t, err, ErrNoEmitters)
	assert.False(t, c.Active())
	assert.Equal(t, propagation.Idle, c.Phase())
}

func TestActivateEmptyScene(t *testing.T) {
	c := New(testConfig(), nil)

	empty := room()
	empty.Objects = nil

	err := c.Activate(context.Background(), empty)
	assert.ErrorIs(t, err, ErrLightingInactive)
	assert.ErrorIs(t, err, octree.ErrDegenerateArea)
}

func TestFailedActivationKeepsPreviousScene(t *testing.T) {
	c := activated(t, testConfig())

	dark := room()
	dark.Lights = nil
	require.Error(t, c.Activate(context.Background(), dark))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, c.Activate(ctx, room()), context.Canceled)

	assert.True(t, c.Active())
	_, err := c.Propagate(context.Background(), nil)
	assert.NoError(t, err)
}

func TestPropagateLightsTheRoom(t *testing.T) {
	c := activated(t, testConfig())
	sink := scene.NewEnergyMap()

	first, err := c.Propagate(context.Background(), sink)
	require.NoError(t, err)
	assert.Equal(t, propagation.Done, c.Phase())

	floor := sink.Total("floor")
	ceiling := sink.Total("ceiling")
	assert.Positive(t, floor.X)
	assert.Positive(t, ceiling.X)
	assert.Equal(t, 25, sink.NodeCount("floor"))

	second, err := c.Propagate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, first, second, "propagation is deterministic")

	lit := 0
	for _, id := range c.Nodes("floor") {
		e, ok := c.NodeEnergy("floor", id)
		require.True(t, ok)
		if !e.IsZero() {
			lit++
		}
	}
	assert.Positive(t, lit)

	_, ok := c.NodeEnergy("ceiling", c.Nodes("floor")[0])
	assert.False(t, ok, "node belongs to another object")
}

func TestIsOccluded(t *testing.T) {
	c := New(testConfig(), nil)
	assert.False(t, c.IsOccluded(math.Vec3{X: 1, Y: -1, Z: 1}, math.Vec3{X: 1, Y: 1, Z: 1}))

	require.NoError(t, c.Activate(context.Background(), room()))
	assert.True(t, c.IsOccluded(math.Vec3{X: 1, Y: -1, Z: 1}, math.Vec3{X: 1, Y: 1, Z: 1}), "through the floor")
	assert.False(t, c.IsOccluded(math.Vec3{X: 1, Y: 1, Z: 1}, math.Vec3{X: -1, Y: 3, Z: -1}), "inside the room")
}

func TestNotifyTransformedThreshold(t *testing.T) {
	c := activated(t, testConfig())

	moved, err := c.NotifyTransformed("crate", math.Translate(3.1, 0.5, 3))
	require.NoError(t, err)
	assert.False(t, moved, "below the movement threshold")

	moved, err = c.NotifyTransformed("crate", math.Translate(-3, 0.5, -3))
	require.NoError(t, err)
	assert.True(t, moved)

	_, err = c.Propagate(context.Background(), nil)
	require.NoError(t, err)

	moved, err = c.NotifyTransformed("crate", math.TRS(math.Vec3{X: -3, Y: 0.5, Z: -3}, 0.5, math.Splat(1)))
	require.NoError(t, err)
	assert.True(t, moved, "rotation in place")

	moved, err = c.NotifyTransformed("crate", math.TRS(math.Vec3{X: -3, Y: 0.5, Z: -3}, 0.5, math.Splat(2)))
	require.NoError(t, err)
	assert.True(t, moved, "scale in place")

	moved, err = c.NotifyTransformed("crate", math.TRS(math.Vec3{X: -3.1, Y: 0.5, Z: -3}, 0.5, math.Splat(2)))
	require.NoError(t, err)
	assert.False(t, moved)

	_, err = c.Propagate(context.Background(), nil)
	require.NoError(t, err)

	_, err = c.NotifyTransformed("ghost", math.Identity())
	assert.ErrorIs(t, err, graph.ErrUnknownObject)
	_, err = c.NotifyTransformed("floor", math.Translate(0, 5, 0))
	assert.ErrorIs(t, err, graph.ErrStaticObject)
}

func TestNotifyTransformedAlways(t *testing.T) {
	cfg := testConfig()
	cfg.Dynamic.Policy = config.PolicyAlways
	c := activated(t, cfg)

	moved, err := c.NotifyTransformed("crate", math.Translate(3.01, 0.5, 3))
	require.NoError(t, err)
	assert.True(t, moved)
}

func TestMovingCrateChangesItsLight(t *testing.T) {
	cfg := testConfig()
	cfg.Dynamic.Policy = config.PolicyAlways
	c := activated(t, cfg)

	sink := scene.NewEnergyMap()
	_, err := c.Propagate(context.Background(), sink)
	require.NoError(t, err)
	near := sink.Total("crate")

	// Far outside every edge length: the crate goes dark.
	_, err = c.NotifyTransformed("crate", math.Translate(500, 0.5, 500))
	require.NoError(t, err)
	_, err = c.Propagate(context.Background(), sink)
	require.NoError(t, err)

	assert.Positive(t, near.X)
	assert.True(t, sink.Total("crate").IsZero())
}

func TestDebugFrame(t *testing.T) {
	c := activated(t, testConfig())
	f, err := c.Debug()
	require.NoError(t, err)
	assert.Empty(t, f.Octree)
	assert.Empty(t, f.Edges)

	cfg := testConfig()
	cfg.Debug.ShowOctree = true
	cfg.Debug.ShowEdges = true
	c = activated(t, cfg)

	f, err = c.Debug()
	require.NoError(t, err)
	assert.Positive(t, f.Cells)
	assert.Len(t, f.Octree, f.Cells*24*3)
	assert.NotEmpty(t, f.Edges)
}

func TestEnergyImage(t *testing.T) {
	c := New(testConfig(), nil)
	_, err := c.EnergyImage(64)
	assert.ErrorIs(t, err, ErrNotActive)

	require.NoError(t, c.Activate(context.Background(), room()))
	before, err := c.EnergyImage(64)
	require.NoError(t, err)

	_, err = c.Propagate(context.Background(), nil)
	require.NoError(t, err)
	after, err := c.EnergyImage(64)
	require.NoError(t, err)

	brightness := func(img *image.RGBA) int {
		sum := 0
		for i := 0; i < len(img.Pix); i += 4 {
			sum += int(img.Pix[i]) + int(img.Pix[i+1]) + int(img.Pix[i+2])
		}
		return sum
	}
	assert.Zero(t, brightness(before))
	assert.Positive(t, brightness(after))
}

func TestDeactivate(t *testing.T) {
	c := activated(t, testConfig())
	_, err := c.Propagate(context.Background(), nil)
	require.NoError(t, err)

	c.Deactivate()
	assert.False(t, c.Active())
	assert.Equal(t, propagation.Idle, c.Phase())

	_, err = c.Propagate(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotActive)
	_, err = c.NotifyTransformed("crate", math.Identity())
	assert.ErrorIs(t, err, ErrNotActive)
	_, err = c.Debug()
	assert.ErrorIs(t, err, ErrNotActive)

	c.Deactivate()
	require.NoError(t, c.Activate(context.Background(), room()))
}
