package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/replan/internal/config"
	"github.com/aretw0/replan/pkg/ports"
)

// withStore opens the configured run archive for the duration of fn.
// The memory backend only sees runs of the current process, so archive
// commands are only useful with a shared backend such as Redis.
func withStore(ctx context.Context, configPath string, fn func(ports.RunStore) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	store, _, closeStore, err := createStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore(ctx) }()
	return fn(store)
}

// ListRuns prints the IDs of archived runs, most recent first.
func ListRuns(ctx context.Context, configPath string, s Streams) error {
	return withStore(ctx, configPath, func(store ports.RunStore) error {
		ids, err := store.List(ctx)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		if len(ids) == 0 {
			fmt.Fprintln(s.Out, "No archived runs found.")
			return nil
		}
		fmt.Fprintln(s.Out, "Archived Runs:")
		for _, id := range ids {
			fmt.Fprintln(s.Out, "- "+id)
		}
		return nil
	})
}

// InspectRun prints an archived run record as indented JSON.
func InspectRun(ctx context.Context, configPath, runID string, s Streams) error {
	return withStore(ctx, configPath, func(store ports.RunStore) error {
		record, err := store.Load(ctx, runID)
		if err != nil {
			return fmt.Errorf("load run '%s': %w", runID, err)
		}
		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(s.Out, string(data))
		return nil
	})
}

// RemoveRuns deletes archived runs. Every ID is attempted; the errors are
// joined.
func RemoveRuns(ctx context.Context, configPath string, runIDs []string, s Streams) error {
	return withStore(ctx, configPath, func(store ports.RunStore) error {
		var errs []error
		for _, id := range runIDs {
			if err := store.Delete(ctx, id); err != nil {
				errs = append(errs, fmt.Errorf("remove '%s': %w", id, err))
				continue
			}
			fmt.Fprintf(s.Out, "Removed run '%s'\n", id)
		}
		return errors.Join(errs...)
	})
}
