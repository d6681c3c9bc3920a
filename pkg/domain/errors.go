package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Compile-time errors. A graph that fails with any of these is never runnable.
var (
	// ErrDuplicateNode is returned when a node name is registered twice.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrUnknownNode is returned when an edge, branch or entry point names a node that was never registered.
	ErrUnknownNode = errors.New("unknown node")

	// ErrAmbiguousRouting is returned when a node has more than one way out
	// (an unconditional edge plus conditional edges, or several of either).
	ErrAmbiguousRouting = errors.New("ambiguous routing")

	// ErrUnreachableNode is returned when a registered node cannot be reached from the entry node.
	ErrUnreachableNode = errors.New("unreachable node")

	// ErrNoRoute is returned when a registered node has no outgoing edge at all.
	ErrNoRoute = errors.New("node has no route")

	// ErrNoEntryNode is returned when no entry node was designated.
	ErrNoEntryNode = errors.New("no entry node")

	// ErrReservedName is returned when a node tries to use the terminal sentinel name.
	ErrReservedName = errors.New("reserved node name")

	// ErrNilHandler is returned when a node is registered without a handler.
	ErrNilHandler = errors.New("nil node handler")
)

// Run-time errors. Each one ends the run it happened in.
var (
	// ErrRoutingKey is returned when a decision function yields a key absent from its branch table.
	ErrRoutingKey = errors.New("routing key not in branch table")

	// ErrInvalidOracleOutput is returned when an oracle answer does not match its contract.
	ErrInvalidOracleOutput = errors.New("invalid oracle output")

	// ErrEmptyPlan is returned when the execute node is reached with no remaining step.
	ErrEmptyPlan = errors.New("empty plan")

	// ErrNodeExecution marks failures raised by a node handler.
	ErrNodeExecution = errors.New("node execution failed")

	// ErrRecursionLimit is returned when a run exceeds its step budget.
	ErrRecursionLimit = errors.New("recursion limit exceeded")

	// ErrStreamConsumed is returned when a run stream is iterated a second time.
	ErrStreamConsumed = errors.New("run stream already consumed")

	// ErrStreamAbandoned is reported to OnRunEnd when the consumer stops
	// iterating before the run ended. It is never yielded.
	ErrStreamAbandoned = errors.New("stream abandoned by consumer")

	// ErrInvalidConfig is returned for a RunConfig that cannot drive a run.
	ErrInvalidConfig = errors.New("invalid run config")

	// ErrRunNotFound is returned when a run ID cannot be found in a run store.
	ErrRunNotFound = errors.New("run not found")
)

// CompileError aggregates every problem found while compiling a graph.
type CompileError struct {
	Errors []error
}

func (e *CompileError) Error() string {
	if len(e.Errors) == 1 {
		return "compile graph: " + e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "compile graph: %d errors:", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  %d. %s", i+1, err.Error())
	}
	return sb.String()
}

// Unwrap exposes the individual problems to errors.Is / errors.As.
func (e *CompileError) Unwrap() []error {
	return e.Errors
}

// RoutingKeyError reports a decision key with no matching branch.
type RoutingKeyError struct {
	Node string
	Key  string
}

func (e *RoutingKeyError) Error() string {
	return fmt.Sprintf("node %q: routing key %q not in branch table", e.Node, e.Key)
}

func (e *RoutingKeyError) Is(target error) bool { return target == ErrRoutingKey }

// InvalidOracleOutputError reports an oracle answer that broke its contract.
// Oracle is one of "plan", "execute" or "replan".
type InvalidOracleOutputError struct {
	Oracle string
	Reason string
}

// InvalidOracleOutput builds an InvalidOracleOutputError.
func InvalidOracleOutput(oracle, format string, args ...any) error {
	return &InvalidOracleOutputError{Oracle: oracle, Reason: fmt.Sprintf(format, args...)}
}

func (e *InvalidOracleOutputError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid oracle output (%s)", e.Oracle)
	}
	return fmt.Sprintf("invalid oracle output (%s): %s", e.Oracle, e.Reason)
}

func (e *InvalidOracleOutputError) Is(target error) bool { return target == ErrInvalidOracleOutput }

// NodeExecutionError wraps an error raised by a node handler.
type NodeExecutionError struct {
	Node  string
	Cause error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %q: %v", e.Node, e.Cause)
}

func (e *NodeExecutionError) Is(target error) bool { return target == ErrNodeExecution }

func (e *NodeExecutionError) Unwrap() error { return e.Cause }

// RecursionLimitError reports a run aborted by the run guard.
type RecursionLimitError struct {
	Limit int
	Node  string // node that would have run next
}

func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("recursion limit of %d reached without hitting a stop condition (next node %q)", e.Limit, e.Node)
}

func (e *RecursionLimitError) Is(target error) bool { return target == ErrRecursionLimit }
