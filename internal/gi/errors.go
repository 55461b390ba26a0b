package gi

import "errors"

var (
	// ErrLightingInactive is returned when activation finds nothing to light.
	// It wraps the concrete cause.
	ErrLightingInactive = errors.New("gi: lighting inactive")
	// ErrNoEmitters means the scene has no emitter with positive energy.
	ErrNoEmitters = errors.New("gi: no emitters")
	// ErrNotActive is returned by operations that need an activated scene.
	ErrNotActive = errors.New("gi: not active")
)
