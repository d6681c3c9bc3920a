package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/replan/internal/config"
	"github.com/aretw0/replan/internal/logging"
	"github.com/aretw0/replan/pkg/domain"
)

// createLogger configures the application logger from cfg.
// Debug forces the debug level. Logs always go to stderr so that stdout
// carries only run output.
func createLogger(cfg config.Config, debug bool, stderr io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if debug {
		level = slog.LevelDebug
	}
	return logging.NewWithWriter(stderr, level, logging.Format(cfg.LogFormat)), nil
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrStreamAbandoned)
}

// handleExecutionError maps an interrupted run to a clean exit.
func handleExecutionError(err error) error {
	if err == nil || isInterrupted(err) {
		return nil
	}
	return err
}
