// Package scripted provides deterministic oracles that replay canned answers.
// They back the offline demo mode of the CLI and the workflow tests.
package scripted

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/replan/pkg/ports"
)

// ErrExhausted is returned when a script has no answer left.
var ErrExhausted = errors.New("scripted oracle exhausted")

// Planner returns the same steps for every objective.
type Planner struct {
	Steps []string
	Err   error

	mu         sync.Mutex
	objectives []string
}

// NewPlanner creates a planner that always proposes steps.
func NewPlanner(steps ...string) *Planner {
	return &Planner{Steps: steps}
}

func (p *Planner) Plan(_ context.Context, objective string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.objectives = append(p.objectives, objective)
	if p.Err != nil {
		return nil, p.Err
	}
	return slices.Clone(p.Steps), nil
}

// Objectives returns every objective the planner was asked about.
func (p *Planner) Objectives() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.objectives)
}

// Executor answers tasks from a lookup table. Unknown tasks get Fallback,
// formatted with the task, or ErrExhausted when Fallback is empty.
type Executor struct {
	Results  map[string]string
	Fallback string

	mu    sync.Mutex
	tasks []string
}

// NewExecutor creates an executor backed by results.
func NewExecutor(results map[string]string) *Executor {
	return &Executor{Results: results}
}

func (e *Executor) Execute(ctx context.Context, task string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tasks = append(e.tasks, task)

	if res, ok := e.Results[task]; ok {
		return res, nil
	}
	if e.Fallback != "" {
		return fmt.Sprintf(e.Fallback, task), nil
	}
	return "", fmt.Errorf("%w: no result for task %q", ErrExhausted, task)
}

// Tasks returns every task executed so far, in order.
func (e *Executor) Tasks() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.tasks)
}

// Replanner replays decisions in order. When Loop is set, the last decision
// repeats forever instead of exhausting the script.
type Replanner struct {
	Decisions []ports.Decision
	Loop      bool

	mu       sync.Mutex
	next     int
	requests []ports.ReplanRequest
}

// NewReplanner creates a replanner that replays decisions.
func NewReplanner(decisions ...ports.Decision) *Replanner {
	return &Replanner{Decisions: decisions}
}

func (r *Replanner) Replan(_ context.Context, req ports.ReplanRequest) (ports.Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)

	if r.next >= len(r.Decisions) {
		if r.Loop && len(r.Decisions) > 0 {
			return r.Decisions[len(r.Decisions)-1], nil
		}
		return nil, ErrExhausted
	}
	d := r.Decisions[r.next]
	r.next++
	return d, nil
}

// Requests returns every request received so far, in order.
func (r *Replanner) Requests() []ports.ReplanRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.requests)
}
