/*
Package ports defines the driven ports (interfaces) of the replan workflow.

These interfaces decouple the node behaviours from the collaborators they
call, allowing the same graph to run against language models, scripted
fixtures or anything else that honours the contracts.

# Key Interfaces

  - Planner, Executor, Replanner: the three oracles consulted by the plan,
    execute and replan nodes.
  - Decision: the tagged result of a Replanner, exactly one of Continue or Respond.
  - Tool: a capability a tool-augmented Executor may call (e.g. web search).
  - RunStore: archive of finished runs.
  - RunLocker: keeps two hosts from driving the same run ID at once.
*/
package ports
