package scripted

import "github.com/aretw0/replan/pkg/ports"

// DemoObjective is the objective answered by Demo.
const DemoObjective = "Who is the 2022 NBA Finals MVP and where is his hometown?"

// Demo returns oracles that answer DemoObjective in two executed steps:
// planner, agent, replan (continue), agent, replan (respond).
func Demo() (*Planner, *Executor, *Replanner) {
	planner := NewPlanner(
		"Find the 2022 NBA Finals MVP",
		"Find that person's hometown",
	)
	executor := NewExecutor(map[string]string{
		"Find the 2022 NBA Finals MVP": "Stephen Curry was named the 2022 NBA Finals MVP.",
		"Find that person's hometown":  "Stephen Curry was born in Akron, Ohio, and grew up in Charlotte, North Carolina.",
	})
	executor.Fallback = "No scripted result for %q."
	replanner := NewReplanner(
		ports.Continue{Steps: []string{"Find that person's hometown"}},
		ports.Respond{Text: "The 2022 NBA Finals MVP was **Stephen Curry**. He was born in **Akron, Ohio** and grew up in Charlotte, North Carolina."},
	)
	return planner, executor, replanner
}
