package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/replan"
	mermaid "github.com/aretw0/replan/internal/presentation/graph"
	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/graph"
	"github.com/aretw0/replan/pkg/ports"
	"github.com/aretw0/replan/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// GraphResourceURI is the resource exposing the workflow topology.
const GraphResourceURI = "replan://graph"

// RunArgs are the arguments of the run_objective tool.
type RunArgs struct {
	Objective      string `json:"objective"`
	RecursionLimit int    `json:"recursion_limit,omitempty"`
}

// StepSummary is one super-step of a run as reported to MCP clients.
type StepSummary struct {
	Index int    `json:"index" jsonschema_description:"1-based super-step number"`
	Node  string `json:"node" jsonschema_description:"Node that produced this step"`
	Plan  int    `json:"plan" jsonschema_description:"Remaining plan steps after the node ran"`
}

// RunResponse is the structured result of run_objective.
type RunResponse struct {
	RunID  string           `json:"run_id" jsonschema_description:"Identifier of the run"`
	Status domain.RunStatus `json:"status" jsonschema_description:"completed, failed, aborted or cancelled"`
	Answer string           `json:"answer,omitempty" jsonschema_description:"Final answer when the run completed"`
	Error  string           `json:"error,omitempty" jsonschema_description:"Why the run did not complete"`
	Steps  []StepSummary    `json:"steps" jsonschema_description:"Super-steps in execution order"`
}

// Engine is what the MCP server needs from the workflow core.
type Engine interface {
	runner.Streamer
	Describe() graph.Topology
}

// Server wraps the replan Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	store     ports.RunStore
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithStore archives runs and enables the get_run tool.
func WithStore(store ports.RunStore) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		mcpServer: server.NewMCPServer("replan-mcp", strings.TrimSpace(replan.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer exposes the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: run_objective
	runTool := mcp.NewTool("run_objective",
		mcp.WithDescription("Plan, execute and replan until the objective is answered. Returns the final answer and the steps taken."),
		mcp.WithString("objective", mcp.Required(), mcp.Description("Free-form objective to answer")),
		mcp.WithNumber("recursion_limit", mcp.Description("Maximum number of super-steps (default 50)")),
		mcp.WithOutputSchema[RunResponse](),
	)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleRunObjective))

	// TOOL: get_graph
	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the workflow graph as a Mermaid flowchart."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(mermaid.GenerateMermaid(s.engine.Describe(), nil)), nil
	})

	if s.store == nil {
		return
	}

	// TOOL: get_run
	s.mcpServer.AddTool(mcp.NewTool("get_run",
		mcp.WithDescription("Get an archived run record by ID."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run ID returned by run_objective")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		runID, err := request.RequireString("run_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		record, err := s.store.Load(ctx, runID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("load run failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(record)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleRunObjective(ctx context.Context, _ mcp.CallToolRequest, args RunArgs) (RunResponse, error) {
	objective, err := runner.SanitizeObjective(args.Objective)
	if err != nil {
		s.logger.Warn("MCP run_objective: objective rejected", "err", err, "size", len(args.Objective))
		return RunResponse{}, fmt.Errorf("objective rejected: %w", err)
	}

	cfg := domain.NewRunConfig()
	if args.RecursionLimit != 0 {
		cfg.RecursionLimit = args.RecursionLimit
	}
	if err := cfg.Validate(); err != nil {
		return RunResponse{}, err
	}

	r := runner.New(runner.WithLogger(s.logger), runner.WithStore(s.store))
	record, err := r.Run(ctx, s.engine, objective, cfg)
	if record == nil {
		return RunResponse{}, fmt.Errorf("run failed: %w", err)
	}
	if err != nil {
		s.logger.Info("MCP run_objective: run ended with error", "run_id", record.ID, "err", err)
	}
	return summarize(record), nil
}

func summarize(record *domain.RunRecord) RunResponse {
	resp := RunResponse{
		RunID:  record.ID,
		Status: record.Status,
		Answer: record.State.Answer(),
		Error:  record.Error,
		Steps:  make([]StepSummary, 0, len(record.Steps)),
	}
	for _, step := range record.Steps {
		resp.Steps = append(resp.Steps, StepSummary{
			Index: step.Index,
			Node:  step.Node,
			Plan:  len(step.State.Plan),
		})
	}
	return resp
}

func (s *Server) registerResources() {
	// EXPOSE: replan://graph
	s.mcpServer.AddResource(mcp.NewResource(GraphResourceURI, "Workflow Graph",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.engine.Describe())
		if err != nil {
			return nil, fmt.Errorf("failed to describe graph: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphResourceURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
