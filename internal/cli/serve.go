package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/aretw0/replan/internal/config"
	httpAdapter "github.com/aretw0/replan/pkg/adapters/http"
	"github.com/aretw0/replan/pkg/adapters/mcp"
	"golang.org/x/sync/errgroup"
)

// ShutdownTimeout bounds how long in-flight requests may take after a
// shutdown signal.
const ShutdownTimeout = 5 * time.Second

// ServeOptions configures the serve command.
type ServeOptions struct {
	ConfigPath string
	Addr       string // overrides server.addr
	Offline    bool
	Debug      bool
}

// Serve runs the HTTP API until ctx is done. Tool calls are not confirmed
// interactively in server mode.
func Serve(ctx context.Context, opts ServeOptions, s Streams) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}
	logger, err := createLogger(cfg, opts.Debug, s.ErrOut)
	if err != nil {
		return err
	}

	registry := NewRegistry()
	app, err := createApp(ctx, cfg, EngineOptions{Offline: opts.Offline, Registry: registry}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Shutdown failed", "err", err)
		}
	}()

	handler := httpAdapter.NewHandler(app.Engine,
		httpAdapter.WithStore(app.Store),
		httpAdapter.WithLocker(app.Locker),
		httpAdapter.WithGatherer(registry),
		httpAdapter.WithLogger(logger),
	)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	printSystemMessage(s.Out, "Starting replan server on %s", srv.Addr)
	return serveUntilDone(ctx, srv, func() {
		logger.Info("Server stopped gracefully")
	})
}

// serveUntilDone runs srv until ctx is done, then shuts it down.
func serveUntilDone(ctx context.Context, srv *http.Server, onStop func()) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", ShutdownTimeout, err)
		}
		if onStop != nil {
			onStop()
		}
		return nil
	})
	return g.Wait()
}

// MCPOptions configures the mcp command.
type MCPOptions struct {
	ConfigPath string
	Transport  string // "stdio" or "sse"
	Addr       string
	BaseURL    string
	Offline    bool
	Debug      bool
}

// ServeMCP exposes the engine as an MCP server.
func ServeMCP(ctx context.Context, opts MCPOptions, s Streams) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	// Stdout is the JSON-RPC channel for stdio, so logs stay on stderr.
	logger, err := createLogger(cfg, opts.Debug, s.ErrOut)
	if err != nil {
		return err
	}

	app, err := createApp(ctx, cfg, EngineOptions{Offline: opts.Offline}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Shutdown failed", "err", err)
		}
	}()

	srv := mcp.NewServer(app.Engine, mcp.WithStore(app.Store), mcp.WithLogger(logger))
	switch opts.Transport {
	case "", "stdio":
		logger.Info("Starting replan MCP Server (Stdio)...")
		return srv.ServeStdio()
	case "sse":
		addr := opts.Addr
		if addr == "" {
			addr = cfg.Server.Addr
		}
		baseURL := opts.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost" + addr
		}
		logger.Info("Starting replan MCP Server (SSE)", "addr", addr)
		return srv.ServeSSE(ctx, addr, baseURL)
	default:
		return fmt.Errorf("unknown transport %q (supported: stdio, sse)", opts.Transport)
	}
}
