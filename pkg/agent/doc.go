// Package agent wires the plan-and-execute workflow on top of pkg/graph.
//
// The planner node asks a ports.Planner for steps, the agent node executes
// the head of the plan through a ports.Executor, and the replan node lets a
// ports.Replanner either revise the remaining plan or answer. ShouldEnd
// routes the run after each replan.
package agent
