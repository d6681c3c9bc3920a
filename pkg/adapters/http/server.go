package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/replan"
	mermaid "github.com/aretw0/replan/internal/presentation/graph"
	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/graph"
	"github.com/aretw0/replan/pkg/ports"
	"github.com/aretw0/replan/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MaxRequestBody bounds the JSON body of POST /runs.
const MaxRequestBody = 1 << 20

// Engine is what the server needs from the workflow core.
type Engine interface {
	runner.Streamer
	Describe() graph.Topology
}

// RunRequest is the body of POST /runs.
type RunRequest struct {
	Objective string         `json:"objective"`
	Config    map[string]any `json:"config,omitempty"`
}

// Server serves the run API over a chi router.
type Server struct {
	Engine   Engine
	Store    ports.RunStore
	Locker   ports.RunLocker
	Gatherer prometheus.Gatherer
	Streams  *StreamManager
	Logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithStore archives runs started over HTTP and serves GET /runs from it.
func WithStore(store ports.RunStore) Option {
	return func(s *Server) {
		s.Store = store
	}
}

// WithLocker guards run IDs chosen by clients.
func WithLocker(locker ports.RunLocker) Option {
	return func(s *Server) {
		s.Locker = locker
	}
}

// WithGatherer exposes the gatherer on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = g
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

// NewServer creates a server for engine.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams.logger = s.Logger
	return s
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	return NewServer(engine, opts...).Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/healthz", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/graph", s.GetGraph)
	if s.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/runs", func(r chi.Router) {
		r.Post("/", s.StartRun)
		r.Get("/", s.ListRuns)
		r.Get("/{runID}", s.GetRun)
		r.Delete("/{runID}", s.DeleteRun)
		r.Get("/{runID}/events", s.SubscribeEvents)
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StartRun handles POST /runs. The response is a JSON-Lines stream: a start
// line, one line per super-step, then a result trailer carrying the status.
// Once the stream has started the status code is always 200.
func (s *Server) StartRun(w http.ResponseWriter, r *http.Request) {
	var body RunRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, MaxRequestBody)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	objective, err := runner.SanitizeObjective(body.Objective)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid objective: %v", err)
		s.Logger.Warn("StartRun: objective rejected", "err", err, "size", len(body.Objective))
		return
	}
	cfg, err := domain.DecodeRunConfig(body.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	w.Header().Set("X-Run-ID", cfg.RunID)
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	run := runner.New(
		runner.WithLogger(s.Logger),
		runner.WithStore(s.Store),
		runner.WithHandler(runner.MultiHandler(
			runner.NewJSONHandler(w),
			runner.NewJSONHandler(s.Streams.Writer(cfg.RunID)),
		)),
	)
	if s.Locker != nil {
		run.Locker = s.Locker
	}

	record, err := run.Run(r.Context(), s.Engine, objective, cfg)
	if err != nil && record == nil {
		// Nothing was streamed yet; report the failure as the only line.
		_ = json.NewEncoder(w).Encode(runner.Event{Type: runner.EventResult, RunID: cfg.RunID, Status: domain.StatusFailed, Error: err.Error()})
		return
	}
	if err != nil {
		s.Logger.Info("StartRun: run ended with error", "run_id", record.ID, "status", record.Status, "err", err)
	}
}

// ListRuns handles GET /runs.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		writeJSON(w, http.StatusOK, map[string][]string{"runs": {}})
		return
	}
	ids, err := s.Store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list runs: %v", err)
		s.Logger.Error("ListRuns failed", "err", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"runs": ids})
}

// GetRun handles GET /runs/{runID}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	record, ok := s.loadRecord(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// DeleteRun handles DELETE /runs/{runID}.
func (s *Server) DeleteRun(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		writeError(w, http.StatusNotFound, "%v", domain.ErrRunNotFound)
		return
	}
	if err := s.Store.Delete(r.Context(), chi.URLParam(r, "runID")); err != nil {
		writeError(w, http.StatusInternalServerError, "delete run: %v", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetGraph handles GET /graph. The default is a Mermaid flowchart;
// ?format=json returns the topology, ?run=<id> highlights the nodes that
// run visited.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	topo := s.Engine.Describe()
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, topo)
		return
	}

	var overlay *mermaid.GraphOverlay
	if runID := r.URL.Query().Get("run"); runID != "" {
		record, ok := s.loadRecordByID(w, r, runID)
		if !ok {
			return
		}
		overlay = mermaid.OverlayFromSteps(record.Steps)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, mermaid.GenerateMermaid(topo, overlay))
}

// GetHealth handles the GET /healthz request.
func (s *Server) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "replan-http",
		"version": strings.TrimSpace(replan.Version),
	})
}

func (s *Server) loadRecord(w http.ResponseWriter, r *http.Request) (*domain.RunRecord, bool) {
	return s.loadRecordByID(w, r, chi.URLParam(r, "runID"))
}

func (s *Server) loadRecordByID(w http.ResponseWriter, r *http.Request, runID string) (*domain.RunRecord, bool) {
	if s.Store == nil {
		writeError(w, http.StatusNotFound, "%v: %s", domain.ErrRunNotFound, runID)
		return nil, false
	}
	record, err := s.Store.Load(r.Context(), runID)
	if errors.Is(err, domain.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "%v: %s", err, runID)
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load run: %v", err)
		s.Logger.Error("Load run failed", "run_id", runID, "err", err)
		return nil, false
	}
	return record, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}
