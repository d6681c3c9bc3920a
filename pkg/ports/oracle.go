package ports

import "context"

// Planner decomposes an objective into an ordered list of steps.
type Planner interface {
	Plan(ctx context.Context, objective string) ([]string, error)
}

// Executor carries out a single task and reports the result as text.
type Executor interface {
	Execute(ctx context.Context, task string) (string, error)
}

// ReplanRequest is the input of the Replanner.
type ReplanRequest struct {
	Objective   string
	PlanText    string // remaining steps, one per line
	HistoryText string // completed steps as "task: result" lines
}

// Replanner decides whether the run continues with a new plan or answers.
type Replanner interface {
	Replan(ctx context.Context, req ReplanRequest) (Decision, error)
}

// Decision is the tagged result of a Replanner: exactly one of Continue or Respond.
type Decision interface {
	decision()
}

// Continue replaces the remaining plan with Steps.
type Continue struct {
	Steps []string `json:"steps"`
}

// Respond ends the run with Text as the final answer.
type Respond struct {
	Text string `json:"response"`
}

func (Continue) decision() {}
func (Respond) decision()  {}

// PlannerFunc adapts a function to the Planner interface.
type PlannerFunc func(ctx context.Context, objective string) ([]string, error)

func (f PlannerFunc) Plan(ctx context.Context, objective string) ([]string, error) {
	return f(ctx, objective)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, task string) (string, error)

func (f ExecutorFunc) Execute(ctx context.Context, task string) (string, error) {
	return f(ctx, task)
}

// ReplannerFunc adapts a function to the Replanner interface.
type ReplannerFunc func(ctx context.Context, req ReplanRequest) (Decision, error)

func (f ReplannerFunc) Replan(ctx context.Context, req ReplanRequest) (Decision, error) {
	return f(ctx, req)
}
