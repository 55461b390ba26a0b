// Package sampler turns renderable meshes into light nodes.
package sampler

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/lightgraph/internal/config"
	"github.com/Faultbox/lightgraph/internal/graph"
	"github.com/Faultbox/lightgraph/internal/scene"
)

// Options selects the sampling method.
type Options struct {
	Method string // config.SamplingPercent or config.SamplingRandom
	// Percent is the fraction of vertices for the percent method and the
	// per-vertex probability for the random method.
	Percent float64
	Seed    int64
}

// FromConfig converts the sampling section of the config.
func FromConfig(c config.SamplingConfig) Options {
	return Options{Method: c.Method, Percent: c.Percent, Seed: c.Seed}
}

// ByPercentage deterministically selects floor(V*percent) vertices spread
// evenly over the vertex list: vertex i is taken when floor((i+1)p) > floor(ip),
// i.e. every 1/p-th vertex. Nodes are in object-local space with unassigned IDs.
func ByPercentage(mesh *scene.Mesh, percent float64) []graph.LightNode {
	n := mesh.VertexCount()
	if n == 0 || !(percent > 0) {
		return nil
	}
	if percent > 1 {
		percent = 1
	}

	nodes := make([]graph.LightNode, 0, int(math.Floor(float64(n)*percent)))
	for i := 0; i < n; i++ {
		if math.Floor(float64(i+1)*percent) > math.Floor(float64(i)*percent) {
			nodes = append(nodes, nodeFromVertex(mesh, i))
		}
	}
	return nodes
}

// ByRandom keeps each vertex independently with the given probability.
// The same seed always yields the same selection.
func ByRandom(mesh *scene.Mesh, probability float64, seed int64) []graph.LightNode {
	n := mesh.VertexCount()
	if n == 0 || !(probability > 0) {
		return nil
	}

	r := rand.New(rand.NewSource(seed))
	var nodes []graph.LightNode
	for i := 0; i < n; i++ {
		if r.Float64() < probability {
			nodes = append(nodes, nodeFromVertex(mesh, i))
		}
	}
	return nodes
}

// Sample dispatches on opts.Method. objectID feeds the random seed so every
// object gets its own reproducible stream.
func Sample(objectID string, mesh *scene.Mesh, opts Options) ([]graph.LightNode, error) {
	switch opts.Method {
	case config.SamplingPercent, "":
		return ByPercentage(mesh, opts.Percent), nil
	case config.SamplingRandom:
		return ByRandom(mesh, opts.Percent, objectSeed(opts.Seed, objectID)), nil
	default:
		return nil, fmt.Errorf("sampler: unknown method %q", opts.Method)
	}
}

// Result holds the nodes sampled from one renderable.
type Result struct {
	Object *scene.Renderable
	Nodes  []graph.LightNode
}

// SampleAll samples every renderable of src in parallel. Results keep the
// source's iteration order.
func SampleAll(ctx context.Context, src scene.Source, opts Options, workers int) ([]Result, error) {
	var objects []*scene.Renderable
	if err := src.Renderables(func(r *scene.Renderable) error {
		objects = append(objects, r)
		return nil
	}); err != nil {
		return nil, err
	}

	results := make([]Result, len(objects))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, obj := range objects {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			nodes, err := Sample(obj.ID, obj.Mesh, opts)
			if err != nil {
				return fmt.Errorf("object %s: %w", obj.ID, err)
			}
			results[i] = Result{Object: obj, Nodes: nodes}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func nodeFromVertex(mesh *scene.Mesh, i int) graph.LightNode {
	return graph.LightNode{
		Position: mesh.Positions[i],
		Normal:   mesh.Normal(i).Normalize(),
		Color:    mesh.Color(i),
	}
}

func objectSeed(seed int64, objectID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(objectID))
	return seed ^ int64(h.Sum64())
}
