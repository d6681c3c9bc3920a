package openai

import (
	"context"
	"log/slog"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/oracle"
	"github.com/aretw0/replan/pkg/ports"
	"github.com/sashabaranov/go-openai"
)

// Replanner lets the model pick between the "plan" and "response" tools.
// The first tool call wins.
type Replanner struct {
	client ChatClient
	model  string
	logger *slog.Logger
}

var _ ports.Replanner = (*Replanner)(nil)

// NewReplanner creates a replanner using model (DefaultModel when empty).
func NewReplanner(client ChatClient, model string, opts ...Option) *Replanner {
	o := buildOptions(opts)
	return &Replanner{client: client, model: modelOrDefault(model), logger: o.logger}
}

func (r *Replanner) Replan(ctx context.Context, req ports.ReplanRequest) (ports.Decision, error) {
	prompt := render(replannerPrompt,
		"{objective}", req.Objective,
		"{plan}", req.PlanText,
		"{history}", req.HistoryText,
	)

	msg, err := complete(ctx, r.client, r.logger, "replan", openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Tools: []openai.Tool{
			functionTool(oracle.ToolPlan, "This tool is used to plan the steps to follow", oracle.ReplanSchema),
			functionTool(oracle.ToolResponse, "Response to user.", oracle.ResponseSchema),
		},
		ToolChoice: "required",
	})
	if err != nil {
		return nil, err
	}

	if len(msg.ToolCalls) == 0 {
		return nil, domain.InvalidOracleOutput("replan", "model answered without a tool call")
	}
	call := msg.ToolCalls[0]
	return oracle.ParseDecision(call.Function.Name, call.Function.Arguments)
}
