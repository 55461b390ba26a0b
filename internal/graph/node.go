// Package graph connects light nodes into a weighted, directed edge graph.
package graph

import (
	"errors"

	"github.com/Faultbox/lightgraph/internal/scene"
	"github.com/Faultbox/lightgraph/pkg/math"
)

var (
	// ErrUnknownObject is returned when an object ID has no node map.
	ErrUnknownObject = errors.New("graph: unknown object")
	// ErrStaticObject is returned when a static object is reported as moved.
	ErrStaticObject = errors.New("graph: object is static")
)

// LightNode is a sampled surface point. ID indexes the graph arena and the
// propagation buffers; it is assigned when the node is added to a Builder.
type LightNode struct {
	ID       int
	Position math.Vec3
	Normal   math.Vec3
	Color    scene.Color
}

// Edge carries energy from Source to Target scaled per channel by Weight.
type Edge struct {
	Source int
	Target int
	Weight math.Vec3
}

// Seed is energy injected at a node every propagation cycle.
type Seed struct {
	Node   int
	Energy math.Vec3
}

// Occluder answers line-of-sight queries. *octree.Index implements it.
type Occluder interface {
	IsOccluded(a, b math.Vec3) bool
}
