package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/agentcoord/agentcontext"
	"github.com/hupe1980/agentcoord/config"
	"github.com/hupe1980/agentcoord/coordinator"
	"github.com/hupe1980/agentcoord/core"
	"github.com/hupe1980/agentcoord/executor"
	"github.com/hupe1980/agentcoord/logging"
	"github.com/hupe1980/agentcoord/memory"
	"github.com/hupe1980/agentcoord/memory/chromem"
	"github.com/hupe1980/agentcoord/metrics"
	"github.com/hupe1980/agentcoord/model"
	anthropicmodel "github.com/hupe1980/agentcoord/model/anthropic"
	openaimodel "github.com/hupe1980/agentcoord/model/openai"
	"github.com/hupe1980/agentcoord/prompt"
	"github.com/hupe1980/agentcoord/registry"
	"github.com/hupe1980/agentcoord/registry/sqlite"
	"github.com/hupe1980/agentcoord/selection"
	"github.com/hupe1980/agentcoord/session"
	sessionredis "github.com/hupe1980/agentcoord/session/redis"
	"github.com/hupe1980/agentcoord/tool"
	"github.com/hupe1980/agentcoord/tool/mcp"
)

const defaultOllamaURL = "http://localhost:11434/v1"

type app struct {
	cfg         *config.Config
	logger      *logging.CoordLogger
	gatherer    prometheus.Gatherer
	registry    core.AgentRegistry
	selector    *selection.Selector
	coordinator *coordinator.Coordinator

	closers []func() error
}

// wireDeps lets tests replace externally reachable pieces.
type wireDeps struct {
	backend   model.Completer
	transport tool.Transport
	redis     redis.UniversalClient
}

func wireApp(ctx context.Context, cfg *config.Config, logOut io.Writer, deps wireDeps) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}
	a.logger = logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.Logging.Format,
		Output:    logOut,
		Component: "agentcoord",
	})

	promReg := prometheus.NewRegistry()
	m := metrics.MustNewMetrics(promReg)
	a.gatherer = promReg

	store, err := sqlite.Open(ctx, &sqlite.Config{Path: cfg.Store.SQLitePath, Lenient: cfg.Store.Lenient})
	if err != nil {
		return nil, fmt.Errorf("wire registry: %w", err)
	}
	a.closers = append(a.closers, store.Close)
	if n, err := registry.Seed(ctx, store, store); err != nil {
		return nil, fmt.Errorf("wire registry: %w", err)
	} else if n > 0 {
		a.logger.Info("registry.seeded", "agents", n)
	}
	a.registry = registry.NewCached(store, func(o *registry.CacheOptions) {
		o.TTL = cfg.Store.CacheTTL
	})

	contexts, err := wireContexts(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire context store: %w", err)
	}

	sessions, err := a.wireSessions(ctx, cfg, deps.redis)
	if err != nil {
		return nil, fmt.Errorf("wire sessions: %w", err)
	}

	backend := deps.backend
	if backend == nil {
		backend, err = newBackend(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("wire backend: %w", err)
		}
	}

	transport := deps.transport
	if transport == nil && len(cfg.Tools.Servers) > 0 {
		t := mcp.New(cfg.Tools.Servers, func(o *mcp.Options) {
			o.Logger = a.logger.WithComponent("mcp")
		})
		a.closers = append(a.closers, t.Close)
		transport = t
	}
	var gateway *tool.Gateway
	if transport != nil {
		gateway = tool.NewGateway(transport, func(o *tool.GatewayOptions) {
			o.Timeout = cfg.Tools.Timeout
			o.Routes = cfg.Tools.Routes
			o.Logger = a.logger.WithComponent("tools")
			o.Observer = m.ObserveToolCall
		})
	}

	a.selector = selection.NewSelector(a.registry, func(o *selection.Options) {
		o.Mode = cfg.SelectionMode()
		o.Threshold = cfg.Threshold()
		o.Completer = backend
		o.Limit = cfg.Orchestration.Limit
		o.Timeout = cfg.LLM.Timeout
		o.Logger = a.logger.WithComponent("selector")
		o.Metrics = m
	})

	responses := core.ResponseStore(store)
	assembler := agentcontext.New(contexts, responses, func(o *agentcontext.Options) {
		o.Window = cfg.Context.SimilarityLimit
		o.ResponseLimit = cfg.Context.ResponseLimit
		o.CharBudget = cfg.Context.CharBudget
		o.Timeout = cfg.Context.Timeout
		o.Strict = cfg.Context.Strict
		o.Logger = a.logger.WithComponent("context")
	})

	builder := prompt.NewBuilder(func(o *prompt.Options) { o.Logger = a.logger.WithComponent("prompt") })

	var (
		planner *selection.Planner
		driver  *executor.Driver
	)
	if backend != nil {
		planner = selection.NewPlanner(backend, cfg.LLM.Timeout, a.logger.WithComponent("planner"))
		driver = executor.NewDriver(executor.Static(backend), func(o *executor.Options) {
			o.Temperature = cfg.LLM.Temperature
			o.TopP = cfg.LLM.TopP
			o.MaxTokens = cfg.LLM.MaxTokens
			o.Timeout = cfg.LLM.Timeout
			if gateway != nil {
				o.Tools = gateway
			}
			o.Builder = builder
			o.Logger = a.logger.WithComponent("executor")
			o.Metrics = m
		})
	}

	a.coordinator = coordinator.New(a.registry, func(o *coordinator.Options) {
		o.Sessions = sessions
		o.Responses = responses
		o.Contexts = contexts
		o.Selector = a.selector
		o.Planner = planner
		o.Assembler = assembler
		o.Builder = builder
		o.Driver = driver
		o.Gateway = gateway
		o.AllowUnassignedHandoff = cfg.Orchestration.AllowUnassignedHandoff
		o.MaxParallel = cfg.Orchestration.MaxParallel
		o.CallBudget = cfg.Orchestration.CallBudget
		o.Logger = a.logger.WithComponent("coordinator")
		o.Metrics = m
	})
	return a, nil
}

func wireContexts(cfg *config.Config) (core.ContextStore, error) {
	if cfg.Context.Backend == "chromem" {
		return chromem.New()
	}
	return memory.NewInMemoryStore(), nil
}

func (a *app) wireSessions(ctx context.Context, cfg *config.Config, client redis.UniversalClient) (core.SessionStore, error) {
	if cfg.Store.Sessions != "redis" {
		return session.NewInMemoryStore(), nil
	}
	if client == nil {
		c := redis.NewClient(&redis.Options{Addr: cfg.Store.RedisAddr, DB: cfg.Store.RedisDB})
		a.closers = append(a.closers, c.Close)
		client = c
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, core.Unavailable("redis ping", err)
	}
	return sessionredis.New(client, func(o *sessionredis.Options) {
		o.TTL = cfg.Store.SessionTTL
	}), nil
}

// newBackend returns nil without error when no provider is configured.
func newBackend(cfg config.LLMConfig) (model.Completer, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "openai", "ollama":
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			o.Provider = cfg.Provider
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = cfg.Temperature
			o.TopP = cfg.TopP
			o.MaxCompletionTokens = cfg.MaxTokens
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			if cfg.Provider == "ollama" {
				if o.BaseURL == "" {
					o.BaseURL = defaultOllamaURL
				}
				if o.APIKey == "" {
					o.APIKey = "ollama"
				}
			}
		}), nil
	case "anthropic":
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if cfg.Model != "" {
				o.Model = anthropic.Model(cfg.Model)
			}
			o.Temperature = cfg.Temperature
			o.TopP = cfg.TopP
			o.MaxTokens = cfg.MaxTokens
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	default:
		return nil, core.NewValidationError("llm.provider", cfg.Provider, "unsupported provider")
	}
}

// Close releases everything wireApp opened, newest first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
