package qnode

import "fmt"

/*
State is one of the fixed set of conditions a Node can be in.
*/
type State string

const (
	StateIdle       State = "idle"
	StateActive     State = "active"
	StateProcessing State = "processing"
	StateEntangled  State = "entangled"
	StateError      State = "error"
)

// States lists every valid State in a stable order.
var States = []State{
	StateActive,
	StateProcessing,
	StateEntangled,
	StateIdle,
	StateError,
}

// Valid reports whether s is a member of the enumerated set.
func (s State) Valid() bool {
	for _, known := range States {
		if s == known {
			return true
		}
	}
	return false
}

func (s State) String() string {
	return string(s)
}

// ParseState converts a raw string into a State.
func ParseState(raw string) (State, error) {
	s := State(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidState, raw)
	}
	return s, nil
}

// otherStates returns every valid State except current, preserving order.
func otherStates(current State) []State {
	out := make([]State, 0, len(States)-1)
	for _, s := range States {
		if s != current {
			out = append(out, s)
		}
	}
	return out
}
