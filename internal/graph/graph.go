// Package graph connects nodes and runs them as one processing pass.
package graph

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pixelgraph/internal/debug/timing"
	"pixelgraph/internal/logger"
	"pixelgraph/internal/nodes"
	"pixelgraph/internal/preview"
)

var (
	ErrUnknownNode = errors.New("node is not part of the graph")
	ErrInvalidSlot = nodes.ErrInvalidSlot
)

// Mode selects how Run orders work.
type Mode int

const (
	// ModeInsertionOrder processes every node, then propagates every edge,
	// then renders every node.
	ModeInsertionOrder Mode = iota
	// ModeTopological processes nodes in dependency order, feeding each
	// node its inputs right before it runs.
	ModeTopological
)

func (m Mode) String() string {
	switch m {
	case ModeInsertionOrder:
		return "insertion"
	case ModeTopological:
		return "topological"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "insertion", "insertion-order":
		return ModeInsertionOrder, nil
	case "topological", "topo":
		return ModeTopological, nil
	}
	return ModeInsertionOrder, fmt.Errorf("unknown run mode %q", s)
}

// Connection feeds From's output into slot Slot of To.
type Connection struct {
	From nodes.Node
	To   nodes.Node
	Slot int
}

type RunStats struct {
	Nodes        int
	Edges        int
	EmptyOutputs int
	Duration     time.Duration
}

type Graph struct {
	nodes       []nodes.Node
	connections []Connection
	mode        Mode
	sink        preview.Sink
	timing      *timing.Tracker
	logger      logger.Logger
}

func New(log logger.Logger) *Graph {
	return &Graph{
		sink:   preview.Nop{},
		timing: timing.NewTracker(),
		logger: logger.OrNop(log),
	}
}

func (g *Graph) SetMode(mode Mode) {
	g.mode = mode
}

func (g *Graph) Mode() Mode {
	return g.mode
}

// SetSink installs the display used by Run. nil disables display.
func (g *Graph) SetSink(sink preview.Sink) {
	if sink == nil {
		sink = preview.Nop{}
	}
	g.sink = sink
}

// Timing exposes per-node processing durations keyed by node ID.
func (g *Graph) Timing() *timing.Tracker {
	return g.timing
}

// AddNode appends n. Adding the same node twice is not detected.
func (g *Graph) AddNode(n nodes.Node) {
	g.nodes = append(g.nodes, n)
}

// RemoveNode drops n and every connection touching it. The node is not closed.
func (g *Graph) RemoveNode(n nodes.Node) error {
	idx := g.indexOf(n)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownNode, nodeLabel(n))
	}
	g.nodes = append(g.nodes[:idx], g.nodes[idx+1:]...)

	kept := g.connections[:0]
	for _, c := range g.connections {
		if c.From != n && c.To != n {
			kept = append(kept, c)
		}
	}
	g.connections = kept
	return nil
}

// Connect feeds from's output into to's primary input.
func (g *Graph) Connect(from, to nodes.Node) error {
	return g.ConnectAt(from, to, 0)
}

// ConnectAt feeds from's output into the given input slot of to. Unknown
// endpoints or slots are logged and leave the graph unchanged.
func (g *Graph) ConnectAt(from, to nodes.Node, slot int) error {
	if g.indexOf(from) < 0 || g.indexOf(to) < 0 {
		err := fmt.Errorf("%w: cannot connect %s -> %s", ErrUnknownNode, nodeLabel(from), nodeLabel(to))
		g.logger.Warning("Graph", "connection rejected", map[string]interface{}{
			"from":  nodeLabel(from),
			"to":    nodeLabel(to),
			"error": err.Error(),
		})
		return err
	}

	if slot != 0 {
		multi, ok := to.(nodes.MultiInput)
		if !ok || slot < 0 || slot >= multi.InputSlots() {
			err := fmt.Errorf("%w: %s slot %d", ErrInvalidSlot, to.ID(), slot)
			g.logger.Warning("Graph", "connection rejected", map[string]interface{}{
				"from":  from.ID(),
				"to":    to.ID(),
				"slot":  slot,
				"error": err.Error(),
			})
			return err
		}
	}

	g.connections = append(g.connections, Connection{From: from, To: to, Slot: slot})
	g.logger.Debug("Graph", "nodes connected", map[string]interface{}{
		"from": from.ID(),
		"to":   to.ID(),
		"slot": slot,
	})
	return nil
}

// Nodes returns the nodes in insertion order. The slice is a copy.
func (g *Graph) Nodes() []nodes.Node {
	out := make([]nodes.Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Connections returns the edges in insertion order. The slice is a copy.
func (g *Graph) Connections() []Connection {
	out := make([]Connection, len(g.connections))
	copy(out, g.connections)
	return out
}

// Node looks a node up by ID.
func (g *Graph) Node(id string) (nodes.Node, bool) {
	for _, n := range g.nodes {
		if n.ID() == id {
			return n, true
		}
	}
	return nil, false
}

// Clear closes every node and empties the graph.
func (g *Graph) Clear() {
	for _, n := range g.nodes {
		n.Close()
	}
	g.nodes = nil
	g.connections = nil
	g.timing.Reset("")
}

func (g *Graph) indexOf(n nodes.Node) int {
	if n == nil {
		return -1
	}
	for i, candidate := range g.nodes {
		if candidate == n {
			return i
		}
	}
	return -1
}

func nodeLabel(n nodes.Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.ID()
}
