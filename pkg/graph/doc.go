/*
Package graph implements the workflow graph engine: a node registry, a
routing table and a run loop that executes one node per super-step.

A Builder collects nodes (name → Handler) and routes (unconditional edges or
a decision function with a branch table). Compile validates the whole
definition and returns an immutable Graph. Runs are exposed as a lazy,
single-pass iter.Seq2 of post-merge snapshots:

	b := graph.New()
	b.AddNode("plan", planHandler).Entry().Go("execute")
	b.AddNode("execute", executeHandler).Go("replan")
	b.AddNode("replan", replanHandler).Branch(decide, graph.Branches{
		"done":     graph.End,
		"continue": "execute",
	})

	g, err := b.Compile(graph.WithLogger(logger))
	if err != nil {
		return err
	}

	for step, err := range g.Stream(ctx, domain.NewRunState(objective), domain.NewRunConfig()) {
		if err != nil {
			return err
		}
		fmt.Println(step.Node, step.State.Plan)
	}

Each super-step invokes exactly one handler, merges its patch with
domain.Merge, then routes. The run guard aborts a run with
domain.ErrRecursionLimit once RunConfig.RecursionLimit super-steps have been
emitted without reaching End.
*/
package graph
