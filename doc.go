/*
Package replan is a plan-and-execute agent engine built on a small workflow graph runtime.

A run takes a free-form objective and loops through three nodes until it has an answer:

	planner -> agent -> replan -> {done: end, continue: agent, replan: replan}

The planner oracle breaks the objective into ordered steps; the agent
executes the first remaining step and records the result; the replanner
either answers the objective or replaces the remaining plan. Every node
returns a partial state update that is merged with a declared per-field
policy, and the run is bounded by a recursion limit.

# Key Features

  - Lazy Streams: runs are iter.Seq2 sequences; nothing executes until ranged over.
  - Pluggable Oracles: OpenAI-backed, scripted, or any ports.Planner/Executor/Replanner.
  - Hexagonal Architecture: archiving (memory, Redis), presentation (text, NDJSON, HTTP, MCP) are adapters.
  - Observability: slog logging, lifecycle hooks, Prometheus metrics and OpenTelemetry spans.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/replan"
		"github.com/aretw0/replan/pkg/domain"
		"github.com/aretw0/replan/pkg/oracle/scripted"
	)

	func main() {
		eng, err := replan.New(replan.WithOracles(scripted.Demo()))
		if err != nil {
			log.Fatal(err)
		}

		for step, err := range eng.Run(context.Background(), scripted.DemoObjective, domain.NewRunConfig()) {
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println(step.Index, step.Node)
		}
	}
*/
package replan
