// Package lighting describes the light emitters that seed propagation.
package lighting

import (
	"github.com/google/uuid"

	"github.com/Faultbox/lightgraph/pkg/math"
)

// DefaultRange is used when an emitter declares no positive range.
const DefaultRange = 100.0

// Emitter is a point light source.
type Emitter struct {
	ID        string
	Position  math.Vec3
	Color     math.Vec3 // RGB (0-1 range)
	Intensity float32
	Range     float32 // reach of the light; caps the length of its light edges
}

// Seed returns the energy the emitter injects every propagation cycle.
func (e Emitter) Seed() math.Vec3 {
	return e.Color.Scale(e.Intensity)
}

// Normalize clamps the emitter into a usable state: color in [0,1], non-negative
// intensity, positive range, and a generated ID when none was given.
func Normalize(e Emitter) Emitter {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	e.Color = math.Vec3{X: clamp01(e.Color.X), Y: clamp01(e.Color.Y), Z: clamp01(e.Color.Z)}

	if e.Intensity < 0 {
		e.Intensity = 0
	}
	if e.Range <= 0 {
		e.Range = DefaultRange
	}
	return e
}

// NormalizeAll normalizes every emitter and drops the ones that emit nothing.
func NormalizeAll(emitters []Emitter) []Emitter {
	out := make([]Emitter, 0, len(emitters))
	for _, e := range emitters {
		e = Normalize(e)
		if e.Seed().IsZero() {
			continue
		}
		out = append(out, e)
	}
	return out
}

func clamp01(v float32) float32 {
	if v > 1.0 {
		return 1.0
	}
	if v < 0.0 {
		return 0.0
	}
	return v
}
