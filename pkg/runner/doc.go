/*
Package runner drives a run of the plan-execute-replan workflow to the outside world.

It consumes the lazy super-step stream of a compiled graph, presents each
step through a pluggable IOHandler, and archives the outcome as a
domain.RunRecord in a ports.RunStore.

# Key Components

  - Runner: sanitises the objective, locks the run ID, drives the stream and archives the record.
  - TextHandler: prints step headers and state diffs for a terminal, and asks tool confirmations.
  - JSONHandler: writes the run as JSON Lines (start, one line per step, result trailer).
  - ToolInterceptor: policy middleware placed in front of executor tools (GuardTools).

# Usage

	r := runner.New(
		runner.WithHandler(runner.NewTextHandler(os.Stdout)),
		runner.WithStore(memory.NewStore()),
	)

	record, err := r.Run(ctx, engine, "Who is the 2022 NBA Finals MVP and where is his hometown?", domain.NewRunConfig())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(record.State.Answer())
*/
package runner
