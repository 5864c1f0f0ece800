package cluster

import (
	"fmt"
)

// HealthState represents the last observed readiness of a node
type HealthState string

const (
	HealthUnknown HealthState = "unknown"
	HealthPolling HealthState = "polling"
	HealthHealthy HealthState = "healthy"
	HealthDown    HealthState = "down"
)

// Node is one storage instance of the cluster under test. It is addressed
// by two ports derived from its index: the transport port the workload
// driver writes to, and the REST port exposing the metrics endpoint.
type Node struct {
	Index         int
	Host          string
	TransportPort int
	RestPort      int

	// ContainerID is resolved lazily against the container runtime and is
	// only valid until the container is restarted.
	ContainerID string

	health HealthState
}

// Health returns the last observed health state
func (n *Node) Health() HealthState {
	if n.health == "" {
		return HealthUnknown
	}
	return n.health
}

// SetHealth records an observed health state
func (n *Node) SetHealth(state HealthState) {
	n.health = state
}

// MetricsURL returns the node's metrics endpoint
func (n *Node) MetricsURL() string {
	return fmt.Sprintf("http://%s:%d/metrics", n.Host, n.RestPort)
}

// Addr returns the node's transport address as host:port
func (n *Node) Addr() string {
	return fmt.Sprintf("%s:%d", n.Host, n.TransportPort)
}

// Topology is the ordered set of nodes for one certification run. Ports are
// assigned contiguously from the two base ports, so the port set is unique
// by construction as long as the ranges do not overlap.
type Topology struct {
	nodes []*Node
}

// NewTopology builds the node set for a cluster of the given size
func NewTopology(host string, nodesAmount, transportMinPort, restMinPort int) (*Topology, error) {
	if nodesAmount < 1 {
		return nil, fmt.Errorf("nodes amount must be positive, got %d", nodesAmount)
	}

	if overlap(transportMinPort, restMinPort, nodesAmount) {
		return nil, fmt.Errorf("transport port range %d-%d overlaps rest port range %d-%d",
			transportMinPort, transportMinPort+nodesAmount-1,
			restMinPort, restMinPort+nodesAmount-1)
	}

	nodes := make([]*Node, nodesAmount)
	for i := 0; i < nodesAmount; i++ {
		nodes[i] = &Node{
			Index:         i,
			Host:          host,
			TransportPort: transportMinPort + i,
			RestPort:      restMinPort + i,
		}
	}

	return &Topology{nodes: nodes}, nil
}

func overlap(aMin, bMin, n int) bool {
	aMax := aMin + n - 1
	bMax := bMin + n - 1
	return aMin <= bMax && bMin <= aMax
}

// Nodes returns all nodes in index order
func (t *Topology) Nodes() []*Node {
	return t.nodes
}

// Node returns the node with the given index
func (t *Topology) Node(index int) (*Node, error) {
	if index < 0 || index >= len(t.nodes) {
		return nil, fmt.Errorf("node index %d out of range [0, %d)", index, len(t.nodes))
	}
	return t.nodes[index], nil
}

// Last returns the highest-index node, the target of the final verification
func (t *Topology) Last() *Node {
	return t.nodes[len(t.nodes)-1]
}

// Size returns the number of nodes
func (t *Topology) Size() int {
	return len(t.nodes)
}

// InvalidateContainers clears all resolved container handles. Required
// after a full cluster restart, when the runtime may have reassigned them.
func (t *Topology) InvalidateContainers() {
	for _, n := range t.nodes {
		n.ContainerID = ""
	}
}
