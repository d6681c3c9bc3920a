package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/replan"
	"github.com/aretw0/replan/internal/config"
	mermaid "github.com/aretw0/replan/internal/presentation/graph"
	"github.com/aretw0/replan/pkg/oracle/scripted"
)

// GraphOptions configures the graph command.
type GraphOptions struct {
	ConfigPath string
	RunID      string // highlight the nodes this archived run visited
	JSON       bool
}

// Graph prints the workflow topology as Mermaid, or as JSON.
// The topology does not depend on the oracles, so no model is needed.
func Graph(ctx context.Context, opts GraphOptions, s Streams) error {
	eng, err := replan.New(replan.WithOracles(scripted.Demo()))
	if err != nil {
		return err
	}
	topo := eng.Describe()

	if opts.JSON {
		enc := json.NewEncoder(s.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(topo)
	}

	var overlay *mermaid.GraphOverlay
	if opts.RunID != "" {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			return err
		}
		store, _, closeStore, err := createStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer func() { _ = closeStore(ctx) }()

		record, err := store.Load(ctx, opts.RunID)
		if err != nil {
			return fmt.Errorf("load run %s: %w", opts.RunID, err)
		}
		overlay = mermaid.OverlayFromSteps(record.Steps)
	}

	_, err = fmt.Fprint(s.Out, mermaid.GenerateMermaid(topo, overlay))
	return err
}
