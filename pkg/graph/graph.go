package graph

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/aretw0/replan/pkg/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/aretw0/replan/pkg/graph"

// Graph is a compiled, immutable workflow. It holds no per-run state, so
// independent runs may execute concurrently on the same Graph.
type Graph struct {
	entry  string
	order  []string
	nodes  map[string]*compiledNode
	logger *slog.Logger
	hooks  domain.LifecycleHooks
	tracer trace.Tracer
}

type compiledNode struct {
	name    string
	handler Handler
	next    string  // unconditional successor
	router  *router // conditional routing; nil when next is set
}

// route selects the successor of n from the post-merge state.
func (n *compiledNode) route(state domain.RunState) (string, error) {
	if n.router == nil {
		return n.next, nil
	}
	key := n.router.decide(state)
	target, ok := n.router.branches[key]
	if !ok {
		return "", &domain.RoutingKeyError{Node: n.name, Key: string(key)}
	}
	return target, nil
}

// Entry returns the name of the node every run starts at.
func (g *Graph) Entry() string {
	return g.entry
}

// Edge is one routing-table entry as seen by Describe.
type Edge struct {
	From   string    `json:"from"`
	To     string    `json:"to"`
	Branch BranchKey `json:"branch,omitempty"` // empty for unconditional edges
}

// Topology is a read-only description of a compiled graph.
type Topology struct {
	Entry string   `json:"entry"`
	Nodes []string `json:"nodes"` // registration order
	Edges []Edge   `json:"edges"`
}

// Describe returns the nodes and edges of the graph for visualisation.
// Conditional branches are listed in key order.
func (g *Graph) Describe() Topology {
	t := Topology{Entry: g.entry, Nodes: slices.Clone(g.order)}
	for _, name := range g.order {
		node := g.nodes[name]
		if node.router == nil {
			t.Edges = append(t.Edges, Edge{From: name, To: node.next})
			continue
		}
		for _, key := range slices.Sorted(maps.Keys(node.router.branches)) {
			t.Edges = append(t.Edges, Edge{From: name, To: node.router.branches[key], Branch: key})
		}
	}
	return t
}

// superStep invokes one node, merges its output and consults the routing
// table. A node that sets the final answer always routes to End.
func (g *Graph) superStep(ctx context.Context, node *compiledNode, step int, state domain.RunState, cfg domain.RunConfig) (string, domain.RunState, error) {
	ctx, span := g.tracer.Start(ctx, "graph.node",
		trace.WithAttributes(
			attribute.String("graph.node", node.name),
			attribute.Int("graph.step", step),
		),
	)
	defer span.End()

	started := time.Now()
	event := &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: started, Type: domain.EventNodeEnter, RunID: cfg.RunID},
		Node:      node.name,
		Step:      step,
	}
	if g.hooks.OnNodeEnter != nil {
		g.hooks.OnNodeEnter(ctx, event)
	}

	next, merged, err := g.apply(ctx, node, state, cfg)

	if g.hooks.OnNodeLeave != nil {
		leave := *event
		leave.Timestamp = time.Now()
		leave.Type = domain.EventNodeLeave
		leave.Duration = time.Since(started)
		leave.Next = next
		leave.Err = err
		g.hooks.OnNodeLeave(ctx, &leave)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", state, err
	}
	span.SetAttributes(attribute.String("graph.next", next))
	return next, merged, nil
}

func (g *Graph) apply(ctx context.Context, node *compiledNode, state domain.RunState, cfg domain.RunConfig) (string, domain.RunState, error) {
	patch, err := node.handler(ctx, state.Clone(), cfg)
	if err != nil {
		return "", state, &domain.NodeExecutionError{Node: node.name, Cause: err}
	}

	merged := domain.Merge(state, patch)
	if merged.Done() {
		return End, merged, nil
	}

	next, err := node.route(merged)
	if err != nil {
		return "", state, err
	}
	return next, merged, nil
}
