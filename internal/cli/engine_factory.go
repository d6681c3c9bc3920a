package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/replan"
	"github.com/aretw0/replan/internal/config"
	"github.com/aretw0/replan/pkg/adapters/memory"
	"github.com/aretw0/replan/pkg/adapters/process"
	"github.com/aretw0/replan/pkg/adapters/redis"
	"github.com/aretw0/replan/pkg/domain"
	"github.com/aretw0/replan/pkg/observability"
	"github.com/aretw0/replan/pkg/oracle"
	"github.com/aretw0/replan/pkg/oracle/openai"
	"github.com/aretw0/replan/pkg/oracle/scripted"
	"github.com/aretw0/replan/pkg/persistence/middleware"
	"github.com/aretw0/replan/pkg/ports"
	"github.com/aretw0/replan/pkg/runner"
	"github.com/aretw0/replan/pkg/tools/tavily"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"
)

// ErrMissingAPIKey is returned when model-backed oracles are requested
// without credentials.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set (use --offline for the scripted demo)")

// EngineOptions are the CLI choices that shape the engine.
type EngineOptions struct {
	// Offline swaps the model-backed oracles for the scripted demo.
	Offline bool

	// Interceptor guards every tool call. Nil allows all calls.
	Interceptor runner.ToolInterceptor

	// Registry receives the engine metrics. Nil disables metrics.
	Registry prometheus.Registerer
}

// App is the wired application: the engine and its archive.
type App struct {
	Engine *replan.Engine
	Store  ports.RunStore
	Locker ports.RunLocker

	closers []func(context.Context) error
}

// Close releases everything the app opened, in reverse order.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	return errors.Join(errs...)
}

// NewRegistry returns a registry carrying the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// createApp initializes a replan engine and its archive with standard CLI conventions.
func createApp(ctx context.Context, cfg config.Config, opts EngineOptions, logger *slog.Logger) (*App, error) {
	app := &App{}

	store, locker, closeStore, err := createStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	app.Store, app.Locker = store, locker
	app.closers = append(app.closers, closeStore)

	planner, executor, replanner, err := createOracles(cfg, opts, logger)
	if err != nil {
		_ = app.Close(ctx)
		return nil, err
	}

	// 1. Logger & Hooks
	hooks := []domain.LifecycleHooks{observability.LoggingHooks(logger)}
	if opts.Registry != nil {
		metrics, err := observability.NewMetrics(opts.Registry)
		if err != nil {
			_ = app.Close(ctx)
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		hooks = append(hooks, metrics.Hooks())
	}

	// 2. Tracing
	tp, shutdown, err := observability.SetupTracing(observability.TracingConfig{
		ServiceName:    "replan",
		ServiceVersion: replan.Version,
		Exporter:       cfg.Tracing.Exporter,
		Writer:         os.Stderr,
	})
	if err != nil {
		_ = app.Close(ctx)
		return nil, err
	}
	app.closers = append(app.closers, shutdown)

	// 3. Initialize
	engine, err := replan.New(
		replan.WithOracles(planner, executor, replanner),
		replan.WithPolicy(createPolicy(cfg.Oracle, logger)),
		replan.WithLifecycleHooks(domain.ChainHooks(hooks...)),
		replan.WithTracerProvider(tp),
		replan.WithLogger(logger),
	)
	if err != nil {
		_ = app.Close(ctx)
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	app.Engine = engine
	return app, nil
}

func createOracles(cfg config.Config, opts EngineOptions, logger *slog.Logger) (ports.Planner, ports.Executor, ports.Replanner, error) {
	if opts.Offline {
		planner, executor, replanner := scripted.Demo()
		// Keep answering after the first run when serving.
		replanner.Loop = true
		return planner, executor, replanner, nil
	}
	if cfg.OpenAI.APIKey == "" {
		return nil, nil, nil, ErrMissingAPIKey
	}

	var tools []ports.Tool
	if cfg.Tavily.APIKey != "" {
		search := tavily.New(cfg.Tavily.APIKey)
		if cfg.Tavily.MaxResults > 0 {
			search.MaxResults = cfg.Tavily.MaxResults
		}
		tools = append(tools, search)
	} else {
		logger.Warn("TAVILY_API_KEY is not set; the executor runs without web search")
	}
	local, err := process.LoadTools(cfg.Tools.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(local) > 0 {
		logger.Debug("Loaded local tools", "path", cfg.Tools.Path, "count", len(local))
		tools = append(tools, process.NewTools(local, process.WithBaseDir(cfg.Tools.BaseDir))...)
	}
	if opts.Interceptor != nil {
		tools = runner.GuardTools(opts.Interceptor, tools...)
	}

	planner, executor, replanner, err := openai.NewOracles(openai.Config{
		APIKey:        cfg.OpenAI.APIKey,
		BaseURL:       cfg.OpenAI.BaseURL,
		Model:         cfg.OpenAI.Model,
		MaxToolRounds: cfg.OpenAI.MaxToolRounds,
	}, openai.WithLogger(logger), openai.WithTools(tools...))
	if err != nil {
		return nil, nil, nil, err
	}
	return planner, executor, replanner, nil
}

func createPolicy(cfg config.OracleConfig, logger *slog.Logger) oracle.Policy {
	pol := oracle.Policy{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     cfg.Backoff,
		Logger:      logger,
	}
	if cfg.RatePerSecond > 0 {
		burst := max(cfg.Burst, 1)
		pol.Limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return pol
}

// createStore opens the configured archive, wrapped with PII masking and
// encryption when configured.
func createStore(ctx context.Context, cfg config.StoreConfig) (ports.RunStore, ports.RunLocker, func(context.Context) error, error) {
	var mws []middleware.Middleware
	if len(cfg.RedactKeys) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.RedactKeys)
		if err != nil {
			return nil, nil, nil, err
		}
		mws = append(mws, pii)
	}
	key, err := cfg.Key()
	if err != nil {
		return nil, nil, nil, err
	}
	if key != nil {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, nil, nil, err
		}
		mws = append(mws, enc)
	}

	store, locker, closer, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return middleware.Chain(store, mws...), locker, closer, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (ports.RunStore, ports.RunLocker, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	switch cfg.Backend {
	case config.StoreRedis:
		prefix := cfg.Prefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		storeOpts := []redis.Option{redis.WithPrefix(prefix)}
		if cfg.TTL > 0 {
			storeOpts = append(storeOpts, redis.WithTTL(cfg.TTL))
		}
		store, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, storeOpts...)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect redis store: %w", err)
		}
		closer := func(context.Context) error { return store.Client().Close() }
		return store, redis.NewLocker(store.Client(), prefix), closer, nil
	default:
		return memory.NewStore(), memory.NewLocker(), noop, nil
	}
}
