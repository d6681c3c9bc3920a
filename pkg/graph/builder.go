package graph

import (
	"context"
	"fmt"
	"maps"

	"github.com/aretw0/replan/pkg/domain"
)

// End is the terminal sentinel. Routing a node to End finishes the run;
// no handler ever executes for it.
const End = "__end__"

// Handler consumes the current state and produces a partial update.
type Handler func(ctx context.Context, state domain.RunState, cfg domain.RunConfig) (domain.Patch, error)

// BranchKey is the value a decision function selects. Every key a decision
// may return must appear in the branch table it is registered with.
type BranchKey string

// Decide inspects the post-merge state and selects a branch.
type Decide func(state domain.RunState) BranchKey

// Branches maps each branch key to a node name or End.
type Branches map[BranchKey]string

type router struct {
	decide   Decide
	branches Branches
}

type routes struct {
	edges   []string
	routers []router
}

// Builder manages the graph construction: the node registry and the
// routing table. Problems are collected and reported by Compile.
type Builder struct {
	nodes  map[string]*NodeBuilder
	order  []string
	routes map[string]*routes
	entry  string
	errs   []error
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		nodes:  make(map[string]*NodeBuilder),
		routes: make(map[string]*routes),
	}
}

// AddNode registers a handler under a unique name.
// Registering the same name twice is reported by Compile as ErrDuplicateNode;
// the first registration is kept and returned.
func (b *Builder) AddNode(name string, handler Handler) *NodeBuilder {
	if name == "" || name == End {
		b.errs = append(b.errs, fmt.Errorf("%w: %q", domain.ErrReservedName, name))
		return &NodeBuilder{name: name, builder: b}
	}
	if nb, ok := b.nodes[name]; ok {
		b.errs = append(b.errs, fmt.Errorf("%w: %q", domain.ErrDuplicateNode, name))
		return nb
	}
	nb := &NodeBuilder{
		name:    name,
		handler: handler,
		builder: b,
	}
	b.nodes[name] = nb
	b.order = append(b.order, name)
	return nb
}

// AddEdge adds an unconditional transition. Endpoints are checked by Compile.
func (b *Builder) AddEdge(from, to string) *Builder {
	r := b.routesOf(from)
	r.edges = append(r.edges, to)
	return b
}

// AddConditionalEdges routes from a node through a decision function.
// Endpoints are checked by Compile; unknown keys fail at run time.
func (b *Builder) AddConditionalEdges(from string, decide Decide, branches Branches) *Builder {
	r := b.routesOf(from)
	r.routers = append(r.routers, router{decide: decide, branches: maps.Clone(branches)})
	return b
}

// SetEntry designates the node every run starts at.
func (b *Builder) SetEntry(name string) *Builder {
	b.entry = name
	return b
}

func (b *Builder) routesOf(name string) *routes {
	r, ok := b.routes[name]
	if !ok {
		r = &routes{}
		b.routes[name] = r
	}
	return r
}

// NodeBuilder provides a fluent API for configuring a node's routing.
type NodeBuilder struct {
	name    string
	handler Handler
	builder *Builder
}

// Name returns the registered node name.
func (n *NodeBuilder) Name() string {
	return n.name
}

// Go adds an unconditional transition to the target node (or End).
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.builder.AddEdge(n.name, target)
	return n
}

// Branch adds conditional transitions selected by decide.
func (n *NodeBuilder) Branch(decide Decide, branches Branches) *NodeBuilder {
	n.builder.AddConditionalEdges(n.name, decide, branches)
	return n
}

// Entry marks the node as the run's starting point.
func (n *NodeBuilder) Entry() *NodeBuilder {
	n.builder.SetEntry(n.name)
	return n
}
