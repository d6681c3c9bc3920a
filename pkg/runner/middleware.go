package runner

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/ports"
	"github.com/google/uuid"
)

// ErrToolDenied is returned by a guarded tool whose call was blocked.
var ErrToolDenied = errors.New("tool call denied")

// ToolInterceptor is a middleware that can intercept or block a tool call.
// It returns true if execution should proceed, or false to block it.
// If blocked, it should return a ToolResult describing the denial.
type ToolInterceptor func(ctx context.Context, call domain.ToolCall) (bool, domain.ToolResult, error)

// MultiInterceptor chains multiple interceptors. The first denial wins.
func MultiInterceptor(interceptors ...ToolInterceptor) ToolInterceptor {
	return func(ctx context.Context, call domain.ToolCall) (bool, domain.ToolResult, error) {
		for _, interceptor := range interceptors {
			allowed, result, err := interceptor(ctx, call)
			if err != nil {
				return false, domain.ToolResult{}, err
			}
			if !allowed {
				return false, result, nil
			}
		}
		return true, domain.ToolResult{}, nil
	}
}

// ConfirmationMiddleware asks the operator before every tool call.
func ConfirmationMiddleware(confirmer Confirmer) ToolInterceptor {
	return func(ctx context.Context, call domain.ToolCall) (bool, domain.ToolResult, error) {
		prompt := fmt.Sprintf("Tool Request: '%s' (ID: %s)\nArgs: %s\nAllow execution?", call.Name, call.ID, call.Arguments)
		ok, err := confirmer.Confirm(ctx, prompt)
		if err != nil {
			return false, domain.ToolResult{}, err
		}
		if ok {
			return true, domain.ToolResult{}, nil
		}
		return false, denied(call, "user denied execution"), nil
	}
}

// AllowListMiddleware blocks every tool whose name is not listed.
func AllowListMiddleware(names ...string) ToolInterceptor {
	return func(_ context.Context, call domain.ToolCall) (bool, domain.ToolResult, error) {
		if slices.Contains(names, call.Name) {
			return true, domain.ToolResult{}, nil
		}
		return false, denied(call, "tool not allowed"), nil
	}
}

// AutoApproveMiddleware allows everything.
func AutoApproveMiddleware() ToolInterceptor {
	return func(context.Context, domain.ToolCall) (bool, domain.ToolResult, error) {
		return true, domain.ToolResult{}, nil
	}
}

func denied(call domain.ToolCall, reason string) domain.ToolResult {
	return domain.ToolResult{ID: call.ID, IsError: true, Content: reason}
}

// GuardTools wraps every tool so that interceptor runs before each call.
// A nil interceptor returns tools unchanged.
func GuardTools(interceptor ToolInterceptor, tools ...ports.Tool) []ports.Tool {
	if interceptor == nil {
		return tools
	}
	guarded := make([]ports.Tool, len(tools))
	for i, t := range tools {
		guarded[i] = &guardedTool{Tool: t, interceptor: interceptor}
	}
	return guarded
}

type guardedTool struct {
	ports.Tool
	interceptor ToolInterceptor
}

func (g *guardedTool) Call(ctx context.Context, arguments string) (string, error) {
	call := domain.ToolCall{
		ID:        uuid.NewString(),
		Name:      g.Definition().Name,
		Arguments: arguments,
	}
	allowed, result, err := g.interceptor(ctx, call)
	if err != nil {
		return "", fmt.Errorf("intercept %s: %w", call.Name, err)
	}
	if !allowed {
		return "", fmt.Errorf("%w: %s: %s", ErrToolDenied, call.Name, result.Content)
	}
	return g.Tool.Call(ctx, arguments)
}
