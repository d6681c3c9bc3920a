/*
Package domain contains the core domain models of the plan-and-execute engine.

It defines the run state threaded through a workflow, the partial updates
(patches) node handlers produce, and the declared per-field merge policy that
folds one into the other. This package is kept pure and free of I/O.

# Key Entities

  - RunState: objective, remaining plan, append-only history, final answer.
  - Patch: the subset of fields a node changed.
  - Merge: applies a Patch following the field schema (see Schema).
  - RunConfig: per-run settings such as the recursion limit.
  - Step: one emitted super-step (node name + post-merge state).
  - LifecycleHooks: observability callbacks fired by the engine.
*/
package domain
