package graph

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/aretw0/replan/pkg/domain"
	"go.opentelemetry.io/otel"
)

// Compile validates the registry and routing table and produces an
// immutable, runnable Graph. Every problem found is reported at once in a
// *domain.CompileError; no partial graph is ever returned.
//
// Checks:
//   - an entry node is designated and registered;
//   - every edge source and target (other than End) is a registered node;
//   - no node has more than one way out (ErrAmbiguousRouting);
//   - every node has a way out (ErrNoRoute);
//   - every node is reachable from the entry node.
func (b *Builder) Compile(opts ...Option) (*Graph, error) {
	errs := slices.Clone(b.errs)

	for _, name := range b.order {
		if b.nodes[name].handler == nil {
			errs = append(errs, fmt.Errorf("%w: node %q", domain.ErrNilHandler, name))
		}
	}

	switch {
	case b.entry == "":
		errs = append(errs, domain.ErrNoEntryNode)
	case b.entry == End:
		errs = append(errs, fmt.Errorf("%w: %q cannot be the entry node", domain.ErrReservedName, End))
	case b.nodes[b.entry] == nil:
		errs = append(errs, fmt.Errorf("%w: entry %q", domain.ErrUnknownNode, b.entry))
	}

	known := func(target string) bool {
		return target == End || b.nodes[target] != nil
	}

	for _, from := range slices.Sorted(maps.Keys(b.routes)) {
		r := b.routes[from]
		if b.nodes[from] == nil {
			errs = append(errs, fmt.Errorf("%w: edge source %q", domain.ErrUnknownNode, from))
			continue
		}

		switch {
		case len(r.edges) > 0 && len(r.routers) > 0:
			errs = append(errs, fmt.Errorf("%w: node %q has both an unconditional edge and conditional edges", domain.ErrAmbiguousRouting, from))
		case len(r.edges) > 1:
			errs = append(errs, fmt.Errorf("%w: node %q has %d unconditional edges", domain.ErrAmbiguousRouting, from, len(r.edges)))
		case len(r.routers) > 1:
			errs = append(errs, fmt.Errorf("%w: node %q has %d sets of conditional edges", domain.ErrAmbiguousRouting, from, len(r.routers)))
		}

		for _, to := range r.edges {
			if !known(to) {
				errs = append(errs, fmt.Errorf("%w: edge %q -> %q", domain.ErrUnknownNode, from, to))
			}
		}
		for _, rt := range r.routers {
			if rt.decide == nil || len(rt.branches) == 0 {
				errs = append(errs, fmt.Errorf("%w: conditional edges of %q need a decision function and at least one branch", domain.ErrNoRoute, from))
			}
			for _, key := range slices.Sorted(maps.Keys(rt.branches)) {
				if to := rt.branches[key]; !known(to) {
					errs = append(errs, fmt.Errorf("%w: branch %q of %q -> %q", domain.ErrUnknownNode, key, from, to))
				}
			}
		}
	}

	for _, name := range b.order {
		if r := b.routes[name]; r == nil || (len(r.edges) == 0 && len(r.routers) == 0) {
			errs = append(errs, fmt.Errorf("%w: %q (route it to graph.End explicitly)", domain.ErrNoRoute, name))
		}
	}

	if b.nodes[b.entry] != nil {
		reached := b.reachable()
		for _, name := range b.order {
			if !reached[name] {
				errs = append(errs, fmt.Errorf("%w: %q", domain.ErrUnreachableNode, name))
			}
		}
	}

	if len(errs) > 0 {
		return nil, &domain.CompileError{Errors: errs}
	}

	g := &Graph{
		entry:  b.entry,
		order:  slices.Clone(b.order),
		nodes:  make(map[string]*compiledNode, len(b.nodes)),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer: otel.Tracer(tracerName),
	}
	for _, name := range b.order {
		node := &compiledNode{name: name, handler: b.nodes[name].handler}
		r := b.routes[name]
		if len(r.edges) == 1 {
			node.next = r.edges[0]
		} else {
			rt := r.routers[0]
			node.router = &router{decide: rt.decide, branches: maps.Clone(rt.branches)}
		}
		g.nodes[name] = node
	}

	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// reachable walks the routing table breadth-first from the entry node.
func (b *Builder) reachable() map[string]bool {
	seen := map[string]bool{b.entry: true}
	queue := []string{b.entry}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		r := b.routes[name]
		if r == nil {
			continue
		}
		targets := slices.Clone(r.edges)
		for _, rt := range r.routers {
			targets = append(targets, slices.Collect(maps.Values(rt.branches))...)
		}
		for _, to := range targets {
			if to == End || seen[to] || b.nodes[to] == nil {
				continue
			}
			seen[to] = true
			queue = append(queue, to)
		}
	}
	return seen
}
