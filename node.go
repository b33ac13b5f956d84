package qnode

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/theapemachine/errnie"
)

// DefaultChangeProbability is the chance per step that a node changes state.
const DefaultChangeProbability = 0.10

// Vector is a position in 3D space.
type Vector struct {
	X, Y, Z float64
}

/*
Node is a single unit of the cluster. It carries an identity, a state, a
position, the ids of the peers it links to, and a ledger of every state
change it has gone through.

Connections are plain ids. Resolving them to nodes is the job of the Cluster
that owns the lookup table, so nodes never hold pointers to each other.

Thread-safe: every mutation, including the random draw behind
SimulateActivity, is serialized per node.
*/
type Node struct {
	mu sync.RWMutex

	ID       string
	state    State
	position Vector

	connections []string
	history     []Transition

	rng         RandomSource
	probability float64

	// OnStateChange is called after every recorded change, outside the lock.
	OnStateChange func(node *Node, from, to State, timestamp float64)
}

// validProbability also rejects NaN, which fails every comparison.
func validProbability(p float64) bool {
	return p >= 0 && p <= 1
}

// NodeOption configures a Node at construction time.
type NodeOption func(*Node)

func WithID(id string) NodeOption {
	return func(n *Node) {
		n.ID = id
	}
}

func WithInitialState(state State) NodeOption {
	return func(n *Node) {
		n.state = state
	}
}

func WithPosition(position Vector) NodeOption {
	return func(n *Node) {
		n.position = position
	}
}

// WithRand injects the random source used by SimulateActivity. A source
// shared between nodes must be safe for concurrent use, see Synchronized.
func WithRand(src RandomSource) NodeOption {
	return func(n *Node) {
		n.rng = src
	}
}

func WithChangeProbability(p float64) NodeOption {
	return func(n *Node) {
		n.probability = p
	}
}

func WithStateObserver(fn func(node *Node, from, to State, timestamp float64)) NodeOption {
	return func(n *Node) {
		n.OnStateChange = fn
	}
}

/*
NewNode creates a node. Without options it gets a generated UUID, starts
idle at the origin, and draws from the global random source.

The history is seeded with the initial state at timestamp 0.0.
*/
func NewNode(opts ...NodeOption) (*Node, error) {
	n := &Node{
		state:       StateIdle,
		rng:         globalSource{},
		probability: DefaultChangeProbability,
		connections: make([]string, 0),
	}

	for _, opt := range opts {
		opt(n)
	}

	if n.ID == "" {
		n.ID = uuid.New().String()
	}

	if !n.state.Valid() {
		return nil, fmt.Errorf("node %s: %w: %q", n.ID, ErrInvalidState, n.state)
	}

	if !validProbability(n.probability) {
		return nil, fmt.Errorf("node %s: %w: %v", n.ID, ErrInvalidProbability, n.probability)
	}

	if n.rng == nil {
		n.rng = globalSource{}
	}

	n.history = []Transition{{Timestamp: 0.0, State: n.state}}

	errnie.Info("initialized node %s at position %v", n.ID, n.position)
	return n, nil
}

/*
UpdateState moves the node into a new state and records the change.

Setting the state the node is already in is a no-op and leaves the history
untouched. Unknown states are rejected, as are NaN timestamps and timestamps
earlier than the last recorded change.
*/
func (n *Node) UpdateState(state State, timestamp float64) error {
	if !state.Valid() {
		return fmt.Errorf("node %s: %w: %q", n.ID, ErrInvalidState, state)
	}

	n.mu.Lock()
	from, changed, err := n.updateState(state, timestamp)
	observer := n.OnStateChange
	n.mu.Unlock()

	if err != nil || !changed {
		return err
	}

	n.notify(observer, from, state, timestamp)
	return nil
}

// updateState applies a change with n.mu held. It reports whether the
// history grew.
func (n *Node) updateState(state State, timestamp float64) (State, bool, error) {
	if state == n.state {
		return n.state, false, nil
	}

	last := n.history[len(n.history)-1]
	if math.IsNaN(timestamp) || timestamp < last.Timestamp {
		return n.state, false, fmt.Errorf(
			"node %s: %w: %v < %v", n.ID, ErrTimestampRegression, timestamp, last.Timestamp,
		)
	}

	from := n.state
	n.state = state
	n.history = append(n.history, Transition{Timestamp: timestamp, State: state})
	return from, true, nil
}

// notify runs outside n.mu so observers may read the node.
func (n *Node) notify(
	observer func(node *Node, from, to State, timestamp float64),
	from, to State,
	timestamp float64,
) {
	errnie.Info("timestamp %v: node %s updated state to %s", timestamp, n.ID, to)

	if observer != nil {
		observer(n, from, to, timestamp)
	}
}

// AddConnection links this node to a peer by id. Adding a known peer again
// does nothing.
func (n *Node) AddConnection(id string) error {
	if id == "" {
		return fmt.Errorf("node %s: %w", n.ID, ErrEmptyID)
	}

	if id == n.ID {
		return fmt.Errorf("node %s: %w", n.ID, ErrSelfConnection)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if slices.Contains(n.connections, id) {
		return nil
	}

	n.connections = append(n.connections, id)
	errnie.Info("node %s connected to %s", n.ID, id)
	return nil
}

/*
SimulateActivity gives the node a chance to change state at the given
timestamp. With the configured probability it jumps to a state picked
uniformly from every state other than its current one.

The draw and the decision happen under the node lock, so the excluded state
is always the one being replaced.
*/
func (n *Node) SimulateActivity(timestamp float64) error {
	n.mu.Lock()

	if n.rng.Float64() >= n.probability {
		n.mu.Unlock()
		return nil
	}

	candidates := otherStates(n.state)
	next := candidates[n.rng.IntN(len(candidates))]

	from, changed, err := n.updateState(next, timestamp)
	observer := n.OnStateChange
	n.mu.Unlock()

	if err != nil || !changed {
		return err
	}

	n.notify(observer, from, next, timestamp)
	return nil
}

// Info is a read-only snapshot of a node.
type Info struct {
	ID            string   `yaml:"id"`
	State         State    `yaml:"state"`
	Position      Vector   `yaml:"position,flow"`
	Connections   []string `yaml:"connections,flow"`
	HistoryLength int      `yaml:"history_length"`
}

func (n *Node) Info() Info {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return Info{
		ID:            n.ID,
		State:         n.state,
		Position:      n.position,
		Connections:   slices.Clone(n.connections),
		HistoryLength: len(n.history),
	}
}

func (n *Node) State() State {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

func (n *Node) Position() Vector {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.position
}

func (n *Node) SetPosition(position Vector) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.position = position
}

func (n *Node) Connections() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return slices.Clone(n.connections)
}

// History returns a copy of the state change ledger.
func (n *Node) History() []Transition {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return slices.Clone(n.history)
}
