package graph

import (
	"time"

	"pixelgraph/internal/nodes"
)

// Run executes one pass over the graph in the configured mode, renders every
// node on the sink and blocks until the sink is dismissed.
func (g *Graph) Run() RunStats {
	start := time.Now()

	g.logger.Info("Graph", "run started", map[string]interface{}{
		"mode":  g.mode.String(),
		"nodes": len(g.nodes),
		"edges": len(g.connections),
	})

	switch g.mode {
	case ModeTopological:
		g.runTopological()
	default:
		g.runInsertionOrder()
	}

	for _, n := range g.nodes {
		n.Render(g.sink)
	}

	stats := RunStats{
		Nodes:    len(g.nodes),
		Edges:    len(g.connections),
		Duration: time.Since(start),
	}
	for _, n := range g.nodes {
		out := n.Output()
		if out.Empty() {
			stats.EmptyOutputs++
		}
		out.Close()
	}

	g.logger.Info("Graph", "run finished", map[string]interface{}{
		"mode":          g.mode.String(),
		"empty_outputs": stats.EmptyOutputs,
		"duration_ms":   stats.Duration.Milliseconds(),
	})

	g.sink.Wait()
	return stats
}

func (g *Graph) runInsertionOrder() {
	for _, n := range g.nodes {
		g.process(n)
	}
	for _, c := range g.connections {
		g.propagate(c)
	}
}

func (g *Graph) runTopological() {
	order, leftover := g.topologicalOrder()

	if len(leftover) > 0 {
		ids := make([]string, len(leftover))
		for i, n := range leftover {
			ids[i] = n.ID()
		}
		g.logger.Warning("Graph", "cycle detected, processing remaining nodes in insertion order", map[string]interface{}{
			"nodes": ids,
		})
	}

	for _, n := range append(order, leftover...) {
		for _, c := range g.connections {
			if c.To == n {
				g.propagate(c)
			}
		}
		g.process(n)
	}
}

// topologicalOrder runs Kahn's algorithm, always taking the ready node that
// was added first. Nodes on a cycle are returned separately in insertion order.
func (g *Graph) topologicalOrder() (order, leftover []nodes.Node) {
	indegree := make([]int, len(g.nodes))
	for _, c := range g.connections {
		indegree[g.indexOf(c.To)]++
	}

	done := make([]bool, len(g.nodes))
	for len(order) < len(g.nodes) {
		next := -1
		for i := range g.nodes {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			break
		}

		done[next] = true
		n := g.nodes[next]
		order = append(order, n)
		for _, c := range g.connections {
			if c.From == n {
				indegree[g.indexOf(c.To)]--
			}
		}
	}

	for i, n := range g.nodes {
		if !done[i] {
			leftover = append(leftover, n)
		}
	}
	return order, leftover
}

func (g *Graph) process(n nodes.Node) {
	ctx := g.timing.StartTiming(n.ID())
	n.Process()
	elapsed := g.timing.EndTiming(ctx)

	g.logger.Debug("Graph", "node processed", map[string]interface{}{
		"node":        n.ID(),
		"kind":        n.Kind().String(),
		"duration_ms": float64(elapsed.Microseconds()) / 1000,
	})
}

func (g *Graph) propagate(c Connection) {
	out := c.From.Output()
	defer out.Close()

	if out.Empty() {
		g.logger.Debug("Graph", "propagating empty output", map[string]interface{}{
			"from": c.From.ID(),
			"to":   c.To.ID(),
		})
	}

	if c.Slot == 0 {
		c.To.SetInput(out)
		return
	}
	if multi, ok := c.To.(nodes.MultiInput); ok {
		if err := multi.SetInputAt(c.Slot, out); err != nil {
			g.logger.Error("Graph", err, map[string]interface{}{
				"from": c.From.ID(),
				"to":   c.To.ID(),
				"slot": c.Slot,
			})
		}
	}
}
