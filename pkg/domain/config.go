package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DefaultRecursionLimit bounds a run when the caller does not choose a limit.
const DefaultRecursionLimit = 50

// RunConfig carries per-run settings handed to every node handler.
type RunConfig struct {
	// RecursionLimit is the maximum number of super-steps a run may take.
	RecursionLimit int `json:"recursion_limit" mapstructure:"recursion_limit"`

	// RunID correlates logs, spans and archived records of one run.
	RunID string `json:"run_id,omitempty" mapstructure:"run_id"`

	// Metadata is opaque caller data passed through to handlers.
	Metadata map[string]any `json:"metadata,omitempty" mapstructure:"metadata"`
}

// NewRunConfig returns a config with the default recursion limit.
func NewRunConfig() RunConfig {
	return RunConfig{RecursionLimit: DefaultRecursionLimit}
}

// Validate checks that the config can drive a run.
func (c RunConfig) Validate() error {
	if c.RecursionLimit <= 0 {
		return fmt.Errorf("%w: recursion_limit must be > 0, got %d", ErrInvalidConfig, c.RecursionLimit)
	}
	return nil
}

// DecodeRunConfig builds a RunConfig from a loosely typed map such as a JSON
// request body. Missing keys keep their defaults; unknown keys are rejected.
func DecodeRunConfig(raw map[string]any) (RunConfig, error) {
	cfg := NewRunConfig()
	if len(raw) == 0 {
		return cfg, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return RunConfig{}, fmt.Errorf("failed to create config decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return RunConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return RunConfig{}, err
	}
	return cfg, nil
}
