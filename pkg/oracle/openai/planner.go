package openai

import (
	"context"
	"log/slog"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/oracle"
	"github.com/aretw0/replan/pkg/ports"
	"github.com/sashabaranov/go-openai"
)

// Planner asks the model for a plan through a forced "plan" tool call.
type Planner struct {
	client ChatClient
	model  string
	logger *slog.Logger
}

var _ ports.Planner = (*Planner)(nil)

// NewPlanner creates a planner using model (DefaultModel when empty).
func NewPlanner(client ChatClient, model string, opts ...Option) *Planner {
	o := buildOptions(opts)
	return &Planner{client: client, model: modelOrDefault(model), logger: o.logger}
}

func (p *Planner) Plan(ctx context.Context, objective string) ([]string, error) {
	msg, err := complete(ctx, p.client, p.logger, "plan", openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: render(plannerPrompt, "{objective}", objective)},
		},
		Tools: []openai.Tool{
			functionTool(oracle.ToolPlan, "This tool is used to plan the steps to follow", oracle.PlanSchema),
		},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: oracle.ToolPlan},
		},
	})
	if err != nil {
		return nil, err
	}

	for _, call := range msg.ToolCalls {
		if call.Function.Name == oracle.ToolPlan {
			return oracle.ParseSteps(call.Function.Arguments)
		}
	}
	return nil, domain.InvalidOracleOutput("plan", "model did not call the %q tool", oracle.ToolPlan)
}
