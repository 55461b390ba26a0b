package propagation

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a phase change is not allowed from
// the current phase.
var ErrInvalidTransition = errors.New("propagation: invalid phase transition")

// Phase is the simulator lifecycle state.
type Phase int32

const (
	Idle Phase = iota
	Building
	Propagating
	Done
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Building:
		return "building"
	case Propagating:
		return "propagating"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// transitions lists the legal next phases for each phase.
var transitions = map[Phase][]Phase{
	Idle:        {Building, Propagating},
	Building:    {Idle, Propagating},
	Propagating: {Idle, Done},
	Done:        {Idle, Building, Propagating},
}

func allowed(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}
