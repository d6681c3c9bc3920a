package ports

import (
	"context"

	"github.com/aretw0/replan/pkg/domain"
)

// Tool is a capability exposed to a tool-augmented Executor.
type Tool interface {
	// Definition describes the tool and its JSON-schema parameters.
	Definition() domain.Tool

	// Call runs the tool with the raw JSON arguments chosen by the model.
	Call(ctx context.Context, arguments string) (string, error)
}
