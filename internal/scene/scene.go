package scene

import (
	"github.com/Faultbox/lightgraph/internal/lighting"
	"github.com/Faultbox/lightgraph/pkg/math"
)

// Renderable is one object with mesh data placed in the world.
type Renderable struct {
	ID        string
	Mesh      *Mesh
	Transform math.Mat4
	// Static objects contribute to the occupancy index and keep their
	// cross-object edges for the lifetime of the graph.
	Static bool
}

// WorldBounds returns the world-space bounding box of the mesh.
func (r *Renderable) WorldBounds() math.AABB {
	return r.Mesh.Bounds().Transform(r.Transform)
}

// Source is the capability the lighting core needs from a scene: iterate
// renderable objects with mesh data and enumerate active emitters.
type Source interface {
	Renderables(fn func(*Renderable) error) error
	Emitters() []lighting.Emitter
}

// Scene is an in-memory Source.
type Scene struct {
	Objects []*Renderable
	Lights  []lighting.Emitter
}

// Renderables iterates objects in declaration order, stopping at the first error.
func (s *Scene) Renderables(fn func(*Renderable) error) error {
	for _, obj := range s.Objects {
		if obj == nil || obj.Mesh == nil {
			continue
		}
		if err := fn(obj); err != nil {
			return err
		}
	}
	return nil
}

// Emitters returns the scene lights.
func (s *Scene) Emitters() []lighting.Emitter {
	return s.Lights
}

// Object looks up a renderable by ID.
func (s *Scene) Object(id string) (*Renderable, bool) {
	for _, obj := range s.Objects {
		if obj != nil && obj.ID == id {
			return obj, true
		}
	}
	return nil, false
}

// Bounds returns the union of all renderable world bounds.
func Bounds(src Source) math.AABB {
	b := math.EmptyAABB()
	_ = src.Renderables(func(r *Renderable) error {
		b = b.Union(r.WorldBounds())
		return nil
	})
	return b
}
