// Package process exposes allow-listed local commands as executor tools.
//
// Arguments chosen by the model never reach the command line. Each one is
// passed as a REPLAN_ARG_<NAME> environment variable, which rules out flag
// injection. The command's trimmed stdout is the tool result.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/ports"
	"github.com/aretw0/replan/pkg/schema"
)

// EnvPrefix prefixes the environment variables carrying tool arguments.
const EnvPrefix = "REPLAN_ARG_"

// DefaultGracePeriod is how long a cancelled command has to exit after
// the interrupt before it is killed.
const DefaultGracePeriod = 5 * time.Second

// Option configures the tools built by NewTools.
type Option func(*Tool)

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) Option {
	return func(t *Tool) {
		t.baseDir = dir
	}
}

// WithGracePeriod overrides DefaultGracePeriod.
func WithGracePeriod(d time.Duration) Option {
	return func(t *Tool) {
		t.grace = d
	}
}

// Tool runs one configured command. It implements ports.Tool.
type Tool struct {
	cfg     ProcessConfig
	input   schema.Schema
	baseDir string
	grace   time.Duration
}

var _ ports.Tool = (*Tool)(nil)

// New builds the tool for a single declaration.
func New(cfg ProcessConfig, opts ...Option) *Tool {
	input := make(schema.Schema, len(cfg.Parameters))
	for name, desc := range cfg.Parameters {
		input[name] = schema.Field{Type: schema.Text(), Description: desc}
	}
	t := &Tool{cfg: cfg, input: input, grace: DefaultGracePeriod}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewTools builds one tool per declaration.
func NewTools(cfgs []ProcessConfig, opts ...Option) []ports.Tool {
	tools := make([]ports.Tool, 0, len(cfgs))
	for _, cfg := range cfgs {
		tools = append(tools, New(cfg, opts...))
	}
	return tools
}

// Definition describes the command to a function-calling model.
func (t *Tool) Definition() domain.Tool {
	desc := t.cfg.Description
	if desc == "" {
		desc = "Runs the local command " + t.cfg.Command + "."
	}
	return domain.Tool{
		Name:        t.cfg.Name,
		Description: desc,
		Parameters:  t.input.JSONSchema(),
	}
}

// Call validates the arguments and runs the command. A cancelled context
// interrupts the process and kills it after the grace period.
func (t *Tool) Call(ctx context.Context, arguments string) (string, error) {
	args := map[string]any{}
	if strings.TrimSpace(arguments) != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", fmt.Errorf("%s: decode arguments: %w", t.cfg.Name, err)
		}
	}
	if err := t.input.Validate(args); err != nil {
		return "", fmt.Errorf("%s: %w", t.cfg.Name, err)
	}

	cmd := exec.CommandContext(ctx, t.cfg.Command, t.cfg.Args...)
	cmd.Dir = t.baseDir
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = t.grace
	cmd.Env = append(cmd.Environ(), t.environment(args)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%s: %w", t.cfg.Name, ctxErr)
		}
		return "", fmt.Errorf("%s: execution failed: %w: %s", t.cfg.Name, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// environment renders the static env and the call arguments, in key order.
func (t *Tool) environment(args map[string]any) []string {
	env := make([]string, 0, len(t.cfg.Environment)+len(args))
	for _, k := range slices.Sorted(maps.Keys(t.cfg.Environment)) {
		env = append(env, k+"="+t.cfg.Environment[k])
	}
	for _, k := range slices.Sorted(maps.Keys(args)) {
		env = append(env, EnvPrefix+strings.ToUpper(k)+"="+formatArg(args[k]))
	}
	return env
}

// formatArg prints scalars as is and structured values as JSON.
func formatArg(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool, float64:
		return fmt.Sprint(v)
	default:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
		return fmt.Sprint(v)
	}
}
