package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/replan"
	"github.com/aretw0/replan/internal/config"
	"github.com/aretw0/replan/internal/presentation/tui"
	"github.com/aretw0/replan/pkg/oracle/scripted"
	"github.com/aretw0/replan/pkg/runner"
)

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	Objective      string
	ConfigPath     string
	JSON           bool
	Offline        bool
	ConfirmTools   bool
	AllowTools     []string
	Debug          bool
	Quiet          bool
	RunID          string
	RecursionLimit int
}

// Streams are the process streams a command talks to.
type Streams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// Run executes one objective and presents it on s.Out.
// An interrupted run is not an error.
func Run(ctx context.Context, opts RunOptions, s Streams) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	logger, err := createLogger(cfg, opts.Debug, s.ErrOut)
	if err != nil {
		return err
	}

	objective := opts.Objective
	if strings.TrimSpace(objective) == "" && opts.Offline {
		objective = scripted.DemoObjective
	}

	runCfg := cfg.RunConfig()
	runCfg.RunID = opts.RunID
	if opts.RecursionLimit > 0 {
		runCfg.RecursionLimit = opts.RecursionLimit
	}

	var handler runner.IOHandler
	var interceptors []runner.ToolInterceptor
	if len(opts.AllowTools) > 0 {
		interceptors = append(interceptors, runner.AllowListMiddleware(opts.AllowTools...))
	}
	if opts.JSON {
		handler = runner.NewJSONHandler(s.Out)
	} else {
		textOpts := []runner.TextHandlerOption{runner.WithTextHandlerInput(s.In)}
		if tui.IsTerminalWriter(s.Out) {
			textOpts = append(textOpts, runner.WithTextHandlerRenderer(tui.NewRenderer()))
		}
		text := runner.NewTextHandler(s.Out, textOpts...)
		if opts.ConfirmTools {
			interceptors = append(interceptors, runner.ConfirmationMiddleware(text))
		}
		handler = text
		if !opts.Quiet {
			tui.PrintBanner(s.Out, replan.Version)
		}
	}

	engineOpts := EngineOptions{Offline: opts.Offline}
	if len(interceptors) > 0 {
		engineOpts.Interceptor = runner.MultiInterceptor(interceptors...)
	}
	app, err := createApp(ctx, cfg, engineOpts, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Shutdown failed", "err", err)
		}
	}()

	r := runner.New(
		runner.WithHandler(handler),
		runner.WithLogger(logger),
		runner.WithStore(app.Store),
		runner.WithLocker(app.Locker, 0),
	)
	record, err := r.Run(ctx, app.Engine, objective, runCfg)
	if record == nil {
		return handleExecutionError(err)
	}
	if isInterrupted(err) && !opts.JSON && !opts.Quiet {
		fmt.Fprintln(s.Out)
		printSystemMessage(s.Out, "Interrupted after %d steps.", len(record.Steps))
	}
	return handleExecutionError(err)
}
