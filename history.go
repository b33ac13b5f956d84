package qnode

/*
Transition is an immutable record of a state change. A node's history is an
ordered ledger of these, seeded with the initial state at timestamp 0.0, so
the full evolution of the node can be replayed in order.
*/
type Transition struct {
	Timestamp float64
	State     State
}

/*
Replay walks the ledger from the first recorded change onward and hands each
consecutive pair of states to fn. The seed entry has no predecessor and is
skipped.
*/
func Replay(history []Transition, fn func(from, to Transition)) {
	for i := 1; i < len(history); i++ {
		fn(history[i-1], history[i])
	}
}
