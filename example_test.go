package replan_test

import (
	"context"
	"fmt"

	"github.com/aretw0/replan"
	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/oracle/scripted"
)

func ExampleEngine_Run() {
	eng, err := replan.New(replan.WithOracles(scripted.Demo()))
	if err != nil {
		panic(err)
	}

	for step, err := range eng.Run(context.Background(), scripted.DemoObjective, domain.NewRunConfig()) {
		if err != nil {
			panic(err)
		}
		fmt.Printf("%d %s plan=%d history=%d done=%v\n",
			step.Index, step.Node, len(step.State.Plan), len(step.State.History), step.State.Done())
	}
	// Output:
	// 1 planner plan=2 history=0 done=false
	// 2 agent plan=1 history=1 done=false
	// 3 replan plan=1 history=1 done=false
	// 4 agent plan=0 history=2 done=false
	// 5 replan plan=0 history=2 done=true
}

func ExampleEngine_Describe() {
	eng, err := replan.New(replan.WithOracles(scripted.Demo()))
	if err != nil {
		panic(err)
	}

	topo := eng.Describe()
	fmt.Println("entry:", topo.Entry)
	for _, e := range topo.Edges {
		if e.Branch != "" {
			fmt.Printf("%s -[%s]-> %s\n", e.From, e.Branch, e.To)
		} else {
			fmt.Printf("%s -> %s\n", e.From, e.To)
		}
	}
	// Output:
	// entry: planner
	// planner -> agent
	// agent -> replan
	// replan -[continue]-> agent
	// replan -[done]-> __end__
	// replan -[replan]-> replan
}
