package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/ports"
	"github.com/aretw0/replan/pkg/schema"
	"github.com/kaptinlin/jsonrepair"
)

// Tool names offered to a model acting as planner or replanner.
const (
	ToolPlan     = "plan"
	ToolResponse = "response"
)

// Payload schemas. The same values describe the tool parameters sent to a
// model and validate the arguments it returns.
var (
	PlanSchema = schema.Schema{
		"steps": {
			Type:        schema.NonEmptySlice(schema.Text()),
			Description: "different steps to follow, should be in sorted order",
		},
	}

	// ReplanSchema accepts an empty list; the workflow replans again on it.
	ReplanSchema = schema.Schema{
		"steps": {
			Type:        schema.Slice(schema.Text()),
			Description: "different steps to follow, should be in sorted order",
		},
	}

	// ResponseSchema rejects a blank response; it would end the run with
	// nothing to show.
	ResponseSchema = schema.Schema{
		"response": {
			Type:        schema.Text(),
			Description: "Response to user.",
		},
	}
)

// DecodeArguments turns raw tool-call arguments into a map and validates it.
// Malformed JSON is repaired once before giving up. Every failure is an
// InvalidOracleOutputError for the named oracle.
func DecodeArguments(oracle, raw string, s schema.Schema) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.InvalidOracleOutput(oracle, "empty arguments")
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return nil, domain.InvalidOracleOutput(oracle, "malformed arguments: %v", err)
		}
		args = nil
		if err := json.Unmarshal([]byte(repaired), &args); err != nil {
			return nil, domain.InvalidOracleOutput(oracle, "malformed arguments after repair: %v", err)
		}
	}
	if args == nil {
		return nil, domain.InvalidOracleOutput(oracle, "arguments are not an object")
	}

	if err := s.Validate(args); err != nil {
		return nil, domain.InvalidOracleOutput(oracle, "%v", err)
	}
	return args, nil
}

// ParseSteps decodes a planner's "plan" tool call.
func ParseSteps(raw string) ([]string, error) {
	args, err := DecodeArguments("plan", raw, PlanSchema)
	if err != nil {
		return nil, err
	}
	return toStrings(args["steps"]), nil
}

// ParseDecision decodes a replanner's tool call into Continue or Respond.
func ParseDecision(tool, raw string) (ports.Decision, error) {
	switch tool {
	case ToolPlan:
		args, err := DecodeArguments("replan", raw, ReplanSchema)
		if err != nil {
			return nil, err
		}
		return ports.Continue{Steps: toStrings(args["steps"])}, nil
	case ToolResponse:
		args, err := DecodeArguments("replan", raw, ResponseSchema)
		if err != nil {
			return nil, err
		}
		return ports.Respond{Text: args["response"].(string)}, nil
	default:
		return nil, domain.InvalidOracleOutput("replan", "unknown tool %q", tool)
	}
}

// toStrings converts a validated JSON list of strings.
func toStrings(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, fmt.Sprint(item))
	}
	return out
}
