package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/ports"
	"github.com/aretw0/replan/pkg/registry"
	"github.com/sashabaranov/go-openai"
)

// DefaultMaxToolRounds bounds the tool-calling loop of the Executor.
const DefaultMaxToolRounds = 10

// Executor is a tool-augmented agent: it keeps calling the model, running
// every tool it asks for, until the model answers in plain text.
type Executor struct {
	client    ChatClient
	model     string
	maxRounds int
	tools     *registry.Registry
	defs      []openai.Tool
	logger    *slog.Logger
}

var _ ports.Executor = (*Executor)(nil)

// NewExecutor creates an executor. maxRounds <= 0 uses DefaultMaxToolRounds.
func NewExecutor(client ChatClient, model string, maxRounds int, opts ...Option) *Executor {
	o := buildOptions(opts)
	if maxRounds <= 0 {
		maxRounds = DefaultMaxToolRounds
	}
	e := &Executor{
		client:    client,
		model:     modelOrDefault(model),
		maxRounds: maxRounds,
		tools:     registry.NewRegistry(o.tools...),
		logger:    o.logger,
	}
	for _, def := range e.tools.Definitions() {
		e.defs = append(e.defs, toolFromDomain(def))
	}
	return e
}

func (e *Executor) Execute(ctx context.Context, task string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: task},
	}

	for round := 1; round <= e.maxRounds; round++ {
		msg, err := complete(ctx, e.client, e.logger, "execute", openai.ChatCompletionRequest{
			Model:    e.model,
			Messages: messages,
			Tools:    e.defs,
		})
		if err != nil {
			return "", err
		}

		if len(msg.ToolCalls) == 0 {
			return strings.TrimSpace(msg.Content), nil
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			result := e.runTool(ctx, call)
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result.Content,
				ToolCallID: result.ID,
			})
		}
	}
	return "", fmt.Errorf("openai execute: no answer after %d tool rounds", e.maxRounds)
}

// runTool executes one call. Tool failures are reported back to the model
// as content so it can recover; they do not fail the task.
func (e *Executor) runTool(ctx context.Context, call openai.ToolCall) domain.ToolResult {
	e.logger.Debug("calling tool", "tool", call.Function.Name, "arguments", call.Function.Arguments)
	result := e.tools.Dispatch(ctx, domain.ToolCall{
		ID:        call.ID,
		Name:      call.Function.Name,
		Arguments: call.Function.Arguments,
	})
	if result.IsError {
		e.logger.Warn("tool call failed", "tool", call.Function.Name, "err", result.Content)
	}
	return result
}
