package qnode

import (
	"fmt"
	"math"
)

/*
Cluster is a fixed collection of nodes plus the lookup table that resolves
their connection ids. The cluster owns the nodes; nodes only refer to each
other by id.
*/
type Cluster struct {
	nodes  []*Node
	lookup map[string]*Node
}

// NewCluster assembles a cluster from existing nodes, rejecting duplicate ids.
func NewCluster(nodes ...*Node) (*Cluster, error) {
	c := &Cluster{
		nodes:  make([]*Node, 0, len(nodes)),
		lookup: make(map[string]*Node, len(nodes)),
	}

	for i, node := range nodes {
		if node == nil {
			return nil, fmt.Errorf("%w: position %d", ErrNilNode, i)
		}
		if _, exists := c.lookup[node.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, node.ID)
		}
		c.nodes = append(c.nodes, node)
		c.lookup[node.ID] = node
	}

	return c, nil
}

type clusterConfig struct {
	nodeOpts []NodeOption
}

// ClusterOption configures every node BuildCluster creates.
type ClusterOption func(*clusterConfig)

// WithClusterRand shares one random source across all nodes. Draws on it are
// serialized.
func WithClusterRand(src RandomSource) ClusterOption {
	shared := Synchronized(src)
	return func(c *clusterConfig) {
		c.nodeOpts = append(c.nodeOpts, WithRand(shared))
	}
}

func WithClusterChangeProbability(p float64) ClusterOption {
	return func(c *clusterConfig) {
		c.nodeOpts = append(c.nodeOpts, WithChangeProbability(p))
	}
}

func WithClusterObserver(fn func(node *Node, from, to State, timestamp float64)) ClusterOption {
	return func(c *clusterConfig) {
		c.nodeOpts = append(c.nodeOpts, WithStateObserver(fn))
	}
}

/*
BuildCluster creates n nodes named QN-1 through QN-n, spaces them evenly on a
circle of the given radius in the XY plane, and links each node to its
successor so the whole cluster forms a single ring.

A cluster of one node has no links, since a node may not connect to itself.
*/
func BuildCluster(n int, radius float64, opts ...ClusterOption) (*Cluster, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}

	if !validRadius(radius) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRadius, radius)
	}

	cfg := &clusterConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	nodes := make([]*Node, n)
	for i := range nodes {
		nodeOpts := append([]NodeOption{
			WithID(fmt.Sprintf("QN-%d", i+1)),
			WithPosition(ringPosition(i, n, radius)),
		}, cfg.nodeOpts...)

		node, err := NewNode(nodeOpts...)
		if err != nil {
			return nil, err
		}
		nodes[i] = node
	}

	cluster, err := NewCluster(nodes...)
	if err != nil {
		return nil, err
	}

	if n > 1 {
		for i, node := range nodes {
			if err := node.AddConnection(nodes[(i+1)%n].ID); err != nil {
				return nil, err
			}
		}
	}

	return cluster, nil
}

func validRadius(radius float64) bool {
	return radius >= 0 && !math.IsInf(radius, 1)
}

func ringPosition(i, n int, radius float64) Vector {
	angle := 2 * math.Pi * float64(i) / float64(n)
	return Vector{
		X: radius * math.Cos(angle),
		Y: radius * math.Sin(angle),
		Z: 0,
	}
}

// Reposition places the nodes evenly on a circle of a new radius, keeping
// their order and links.
func (c *Cluster) Reposition(radius float64) error {
	if !validRadius(radius) {
		return fmt.Errorf("%w: %v", ErrInvalidRadius, radius)
	}

	for i, node := range c.nodes {
		node.SetPosition(ringPosition(i, len(c.nodes), radius))
	}
	return nil
}

// Nodes returns the nodes in cluster order.
func (c *Cluster) Nodes() []*Node {
	out := make([]*Node, len(c.nodes))
	copy(out, c.nodes)
	return out
}

func (c *Cluster) Len() int {
	return len(c.nodes)
}

func (c *Cluster) Get(id string) (*Node, bool) {
	node, ok := c.lookup[id]
	return node, ok
}

// Neighbors resolves the connection ids of a node through the lookup table.
// Ids that do not belong to this cluster are skipped.
func (c *Cluster) Neighbors(id string) ([]*Node, error) {
	node, ok := c.lookup[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}

	connections := node.Connections()
	out := make([]*Node, 0, len(connections))
	for _, peer := range connections {
		if resolved, ok := c.lookup[peer]; ok {
			out = append(out, resolved)
		}
	}
	return out, nil
}

// Infos snapshots every node in cluster order.
func (c *Cluster) Infos() []Info {
	out := make([]Info, len(c.nodes))
	for i, node := range c.nodes {
		out[i] = node.Info()
	}
	return out
}
