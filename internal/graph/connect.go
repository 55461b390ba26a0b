package graph

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/lightgraph/pkg/math"
)

// ConnectOptions controls which node pairs become edges.
type ConnectOptions struct {
	MaxLength       float32
	MinWeight       float32
	CheckVisibility bool
	UseNormals      bool
	// SurfaceOffset lifts both endpoints along their normals before the
	// occlusion test so a surface does not block its own rays.
	SurfaceOffset float32
	Occluder      Occluder
	Workers       int // 0 = GOMAXPROCS
}

// minChunk is the smallest number of source nodes handed to one worker.
const minChunk = 16

// Connect returns the edges from every node in from to every node in to that
// pass the length, weight and visibility filters. Pairs sharing an ID are
// skipped. Edges come out source-major, target-minor regardless of Workers,
// and are not deduplicated.
func Connect(ctx context.Context, from, to []LightNode, opts ConnectOptions) ([]Edge, error) {
	if len(from) == 0 || len(to) == 0 || !(opts.MaxLength > 0) {
		return nil, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := (len(from) + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}

	parts := make([][]Edge, (len(from)+chunk-1)/chunk)
	g, ctx := errgroup.WithContext(ctx)
	for p := range parts {
		lo := p * chunk
		hi := min(lo+chunk, len(from))
		g.Go(func() error {
			var edges []Edge
			for _, s := range from[lo:hi] {
				if err := ctx.Err(); err != nil {
					return err
				}
				for _, t := range to {
					if s.ID == t.ID {
						continue
					}
					if e, ok := link(s, t, opts); ok {
						edges = append(edges, e)
					}
				}
			}
			parts[p] = edges
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	n := 0
	for _, part := range parts {
		n += len(part)
	}
	out := make([]Edge, 0, n)
	for _, part := range parts {
		out = append(out, part...)
	}
	return out, nil
}

// Weight is the scalar transfer factor from s to t before the receiver's
// color is applied: 1 - d/maxLength, optionally scaled by the cosines between
// the connecting direction and both normals. Zero normals skip their factor.
func Weight(s, t LightNode, maxLength float32, useNormals bool) float32 {
	d := s.Position.Distance(t.Position)
	if d > maxLength {
		return 0
	}
	w := 1 - d/maxLength
	if !useNormals {
		return w
	}

	dir := t.Position.Sub(s.Position).Normalize()
	if !s.Normal.IsZero() {
		w *= max(0, s.Normal.Dot(dir))
	}
	if !t.Normal.IsZero() {
		w *= max(0, -t.Normal.Dot(dir))
	}
	return w
}

func link(s, t LightNode, opts ConnectOptions) (Edge, bool) {
	w := Weight(s, t, opts.MaxLength, opts.UseNormals)
	if w <= 0 {
		return Edge{}, false
	}
	weight := t.Color.RGB().Scale(w).Max(math.Vec3{})
	if weight.IsZero() || weight.MaxComponent() < opts.MinWeight {
		return Edge{}, false
	}

	if opts.CheckVisibility && opts.Occluder != nil {
		a := lift(s, opts.SurfaceOffset)
		b := lift(t, opts.SurfaceOffset)
		if opts.Occluder.IsOccluded(a, b) {
			return Edge{}, false
		}
	}
	return Edge{Source: s.ID, Target: t.ID, Weight: weight}, true
}

func lift(n LightNode, offset float32) math.Vec3 {
	if offset == 0 {
		return n.Position
	}
	return n.Position.Add(n.Normal.Scale(offset))
}
