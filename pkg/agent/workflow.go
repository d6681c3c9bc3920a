package agent

import (
	"errors"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/graph"
	"github.com/aretw0/replan/pkg/ports"
)

// Node names of the plan-and-execute workflow.
const (
	NodePlanner = "planner"
	NodeAgent   = "agent"
	NodeReplan  = "replan"
)

// Branch keys of the termination router.
const (
	BranchDone     graph.BranchKey = "done"
	BranchContinue graph.BranchKey = "continue"
	BranchReplan   graph.BranchKey = "replan"
)

// Oracles bundles the three collaborators of the workflow.
type Oracles struct {
	Planner   ports.Planner
	Executor  ports.Executor
	Replanner ports.Replanner
}

// Validate reports a missing oracle.
func (o Oracles) Validate() error {
	var errs []error
	if o.Planner == nil {
		errs = append(errs, errors.New("planner oracle is required"))
	}
	if o.Executor == nil {
		errs = append(errs, errors.New("executor oracle is required"))
	}
	if o.Replanner == nil {
		errs = append(errs, errors.New("replanner oracle is required"))
	}
	return errors.Join(errs...)
}

// ShouldEnd is the termination router placed after the replan node.
// A run with a final answer is done; an empty plan without one goes back to
// the replanner rather than reaching the executor with nothing to do.
func ShouldEnd(state domain.RunState) graph.BranchKey {
	switch {
	case state.Done():
		return BranchDone
	case len(state.Plan) == 0:
		return BranchReplan
	default:
		return BranchContinue
	}
}

// Define registers the workflow on b:
//
//	planner -> agent -> replan -> {done: End, continue: agent, replan: replan}
func Define(b *graph.Builder, oracles Oracles) {
	b.AddNode(NodePlanner, PlanNode(oracles.Planner)).Entry().Go(NodeAgent)
	b.AddNode(NodeAgent, ExecuteNode(oracles.Executor)).Go(NodeReplan)
	b.AddNode(NodeReplan, ReplanNode(oracles.Replanner)).Branch(ShouldEnd, graph.Branches{
		BranchDone:     graph.End,
		BranchContinue: NodeAgent,
		BranchReplan:   NodeReplan,
	})
}

// NewWorkflow compiles the plan-and-execute graph over the given oracles.
func NewWorkflow(oracles Oracles, opts ...graph.Option) (*graph.Graph, error) {
	if err := oracles.Validate(); err != nil {
		return nil, err
	}
	b := graph.New()
	Define(b, oracles)
	return b.Compile(opts...)
}
