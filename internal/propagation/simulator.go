// Package propagation runs multi-bounce light transfer over a light graph.
package propagation

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/lightgraph/internal/graph"
	"github.com/Faultbox/lightgraph/internal/scene"
	"github.com/Faultbox/lightgraph/pkg/math"
)

// Network is the read-only graph view propagation needs.
type Network interface {
	NodeCount() int
	Edges() []graph.Edge
	Seeds() []graph.Seed
	// Owner maps a node to the object it belongs to; light source nodes
	// report false and are not written to the sink.
	Owner(node int) (string, bool)
}

// Energies holds the accumulated energy per node, indexed by node ID.
type Energies []math.Vec3

// Simulator tracks the propagation lifecycle and runs cycles on request.
// Phase and progress can be read from any goroutine.
type Simulator struct {
	phase   *atomic.Int32
	cycle   *atomic.Int32
	cycles  *atomic.Int32
	workers int
	log     *zap.Logger
}

// NewSimulator creates an idle simulator. workers <= 0 uses GOMAXPROCS.
func NewSimulator(workers int, log *zap.Logger) *Simulator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Simulator{
		phase:   atomic.NewInt32(int32(Idle)),
		cycle:   atomic.NewInt32(0),
		cycles:  atomic.NewInt32(0),
		workers: workers,
		log:     log,
	}
}

// Phase returns the current lifecycle phase.
func (s *Simulator) Phase() Phase {
	return Phase(s.phase.Load())
}

// Progress returns the last completed cycle and the requested cycle count.
func (s *Simulator) Progress() (cycle, cycles int) {
	return int(s.cycle.Load()), int(s.cycles.Load())
}

// Transition moves the simulator to phase to, failing with
// ErrInvalidTransition if the move is not legal from the current phase.
func (s *Simulator) Transition(to Phase) error {
	for {
		from := Phase(s.phase.Load())
		if !allowed(from, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
		}
		if s.phase.CompareAndSwap(int32(from), int32(to)) {
			s.log.Debug("Propagation phase changed",
				zap.Stringer("from", from),
				zap.Stringer("to", to))
			return nil
		}
	}
}

// Run propagates light for the given number of cycles and writes the energy
// of every object node to sink. The simulator ends in Done on success and in
// Idle on failure. A second Run while one is in progress fails with
// ErrInvalidTransition.
func (s *Simulator) Run(ctx context.Context, net Network, cycles int, sink scene.Sink) (Energies, error) {
	if err := s.Transition(Propagating); err != nil {
		return nil, err
	}
	s.cycle.Store(0)
	s.cycles.Store(int32(cycles))

	energies, err := propagate(ctx, net, cycles, s.workers, func(k int) {
		s.cycle.Store(int32(k))
	})
	if err != nil {
		_ = s.Transition(Idle)
		return nil, err
	}

	if sink != nil {
		for id, e := range energies {
			if objectID, ok := net.Owner(id); ok {
				sink.SetNodeEnergy(objectID, id, e)
			}
		}
	}

	s.log.Debug("Propagation finished",
		zap.Int("cycles", cycles),
		zap.Int("nodes", len(energies)))
	return energies, s.Transition(Done)
}

// Propagate runs cycles of light transfer over net without lifecycle
// tracking. Every cycle resets the source nodes to their seed, zeroes the
// next buffer, adds cur[source]*weight into next[target] for every edge, and
// swaps the buffers. Sums per target follow edge order, so the result does
// not depend on the worker count.
func Propagate(ctx context.Context, net Network, cycles, workers int) (Energies, error) {
	return propagate(ctx, net, cycles, workers, nil)
}

func propagate(ctx context.Context, net Network, cycles, workers int, progress func(int)) (Energies, error) {
	n := net.NodeCount()
	in, err := incoming(n, net.Edges())
	if err != nil {
		return nil, err
	}
	seeds := net.Seeds()
	for _, sd := range seeds {
		if sd.Node < 0 || sd.Node >= n {
			return nil, fmt.Errorf("propagation: seed node %d out of range [0,%d)", sd.Node, n)
		}
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := max((n+workers-1)/workers, minChunk)

	cur := make(Energies, n)
	next := make(Energies, n)
	for k := 1; k <= cycles; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, sd := range seeds {
			cur[sd.Node] = sd.Energy
		}

		g, gctx := errgroup.WithContext(ctx)
		for lo := 0; lo < n; lo += chunk {
			hi := min(lo+chunk, n)
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				in.gather(cur, next, lo, hi)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		cur, next = next, cur
		if progress != nil {
			progress(k)
		}
	}
	return cur, nil
}

// minChunk is the smallest number of target nodes handed to one worker.
const minChunk = 256

// csr groups edges by target: the incoming edges of node t are
// sources[offsets[t]:offsets[t+1]] with matching weights, in edge order.
type csr struct {
	offsets []int
	sources []int
	weights []math.Vec3
}

func incoming(n int, edges []graph.Edge) (*csr, error) {
	c := &csr{
		offsets: make([]int, n+1),
		sources: make([]int, len(edges)),
		weights: make([]math.Vec3, len(edges)),
	}
	for _, e := range edges {
		if e.Source < 0 || e.Source >= n || e.Target < 0 || e.Target >= n {
			return nil, fmt.Errorf("propagation: edge %d->%d out of range [0,%d)", e.Source, e.Target, n)
		}
		c.offsets[e.Target+1]++
	}
	for t := 0; t < n; t++ {
		c.offsets[t+1] += c.offsets[t]
	}

	fill := make([]int, n)
	copy(fill, c.offsets[:n])
	for _, e := range edges {
		i := fill[e.Target]
		c.sources[i] = e.Source
		c.weights[i] = e.Weight
		fill[e.Target]++
	}
	return c, nil
}

// gather writes next[t] for targets in [lo, hi) from cur.
func (c *csr) gather(cur, next Energies, lo, hi int) {
	for t := lo; t < hi; t++ {
		var sum math.Vec3
		for i := c.offsets[t]; i < c.offsets[t+1]; i++ {
			sum = sum.Add(cur[c.sources[i]].Mul(c.weights[i]))
		}
		next[t] = sum
	}
}
