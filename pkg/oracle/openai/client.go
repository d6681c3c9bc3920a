// Package openai implements the planning, execution and replanning oracles
// on top of OpenAI-compatible chat completion APIs with function calling.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/ports"
	"github.com/aretw0/replan/pkg/schema"
	"github.com/sashabaranov/go-openai"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4o"

// ChatClient is the subset of *openai.Client the oracles need.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config selects the endpoint and model.
type Config struct {
	APIKey  string
	BaseURL string // optional, for compatible gateways
	Model   string

	// MaxToolRounds bounds the executor's tool-calling loop.
	MaxToolRounds int
}

// NewClient builds a go-openai client from cfg.
func NewClient(cfg Config) (*openai.Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg), nil
}

// Option configures the oracles.
type Option func(*options)

type options struct {
	logger *slog.Logger
	tools  []ports.Tool
}

// WithLogger sets the logger for model calls.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTools makes tools available to the executor.
func WithTools(tools ...ports.Tool) Option {
	return func(o *options) {
		o.tools = append(o.tools, tools...)
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func modelOrDefault(model string) string {
	if model == "" {
		return DefaultModel
	}
	return model
}

// functionTool converts a schema into a function tool definition.
func functionTool(name, description string, params schema.Schema) openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  params.JSONSchema(),
		},
	}
}

func toolFromDomain(t domain.Tool) openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		},
	}
}

// complete sends one request and returns the first choice's message.
func complete(ctx context.Context, client ChatClient, logger *slog.Logger, oracle string, req openai.ChatCompletionRequest) (openai.ChatCompletionMessage, error) {
	logger.Debug("calling model", "oracle", oracle, "model", req.Model, "messages", len(req.Messages))
	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("openai %s call: %w", oracle, err)
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionMessage{}, domain.InvalidOracleOutput(oracle, "model returned no choices")
	}
	logger.Debug("model answered", "oracle", oracle, "finish_reason", resp.Choices[0].FinishReason, "tool_calls", len(resp.Choices[0].Message.ToolCalls))
	return resp.Choices[0].Message, nil
}

// NewOracles builds the three oracles over one client.
func NewOracles(cfg Config, opts ...Option) (*Planner, *Executor, *Replanner, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return NewPlanner(client, cfg.Model, opts...),
		NewExecutor(client, cfg.Model, cfg.MaxToolRounds, opts...),
		NewReplanner(client, cfg.Model, opts...),
		nil
}
