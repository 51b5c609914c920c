// SPDX-License-Identifier: Apache-2.0

// Package app wires together all Helios components. This is the
// composition root: every dependency is created and connected here.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/helios-ops/helios/pkg/agent"
	"github.com/helios-ops/helios/pkg/api"
	"github.com/helios-ops/helios/pkg/business"
	"github.com/helios-ops/helios/pkg/config"
	"github.com/helios-ops/helios/pkg/llm"
	"github.com/helios-ops/helios/pkg/llm/anthropic"
	"github.com/helios-ops/helios/pkg/llm/gemini"
	"github.com/helios-ops/helios/pkg/memory"
	"github.com/helios-ops/helios/pkg/memory/ollama"
	"github.com/helios-ops/helios/pkg/memory/qdrant"
	"github.com/helios-ops/helios/pkg/orchestrator"
	"github.com/helios-ops/helios/pkg/store"
	"github.com/helios-ops/helios/pkg/telemetry"
)

// Version is reported on /api/status and stamped into telemetry resources.
const Version = "0.1.0"

const shutdownGrace = 10 * time.Second

// App holds the wired application.
type App struct {
	cfg     *config.Config
	cfgPath string
	logger  *slog.Logger
}

// New creates the application and installs the global logger.
func New(cfg *config.Config, cfgPath string) *App {
	logger := telemetry.ConfigureSlog(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	return &App{
		cfg:     cfg,
		cfgPath: cfgPath,
		logger:  logger.With("component", "app"),
	}
}

// Run wires everything and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	cfg := a.cfg

	shutdownTelemetry, err := telemetry.Init("helios", Version, telemetry.Config{
		Exporter:     cfg.Telemetry.Exporter,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure: cfg.Telemetry.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer shutdownTelemetry(context.Background())

	var metrics *telemetry.TaskMetrics
	if cfg.Telemetry.Exporter != "none" {
		metrics, err = telemetry.NewTaskMetrics()
		if err != nil {
			a.logger.Warn("task metrics unavailable", "error", err)
		}
	}

	db, err := store.Open(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	products := store.NewProductStore(db)
	custStore := store.NewCustomerStore(db)
	staffStore := store.NewStaffStore(db)
	txStore := store.NewTransactionStore(db)
	taskStore := store.NewTaskStore(db)
	metricsStore := store.NewMetricsStore(db)

	inventory := business.NewInventoryService(products)
	customers := business.NewCustomerService(custStore)
	staff := business.NewStaffService(staffStore)
	orders := business.NewOrderService(txStore, inventory, customers, 0)
	state := business.NewStateService(inventory, customers, staff, orders,
		products, custStore, staffStore, metricsStore)
	reports := business.NewReportService(inventory, customers, staff, orders, state)

	provider, err := a.createProvider(ctx, metrics)
	if err != nil {
		return fmt.Errorf("create llm provider: %w", err)
	}

	mem := a.createMemory(ctx)

	historyLimit := cfg.Orchestrator.HistoryLimit
	registry := agent.NewRegistry(
		agent.NewOperations(inventory, mem, historyLimit),
		agent.NewFinance(orders, state, mem, historyLimit),
		agent.NewCommunications(customers, staff, mem, historyLimit),
		agent.NewInsight(reports, provider, mem, historyLimit),
	)
	planner := agent.NewPlanner(provider, mem, historyLimit)

	manager := orchestrator.NewTaskManager(planner, registry, taskStore, metrics, orchestrator.Config{
		MaxQueueSize: cfg.Orchestrator.MaxQueueSize,
		TaskTimeout:  cfg.Orchestrator.TaskTimeout,
	})
	recovered, err := manager.Recover(ctx)
	if err != nil {
		return fmt.Errorf("recover pending tasks: %w", err)
	}
	if recovered > 0 {
		a.logger.Info("recovered pending tasks", "count", recovered)
	}

	if cfg.Orchestrator.WorkerEnabled {
		worker := orchestrator.NewWorker(manager, cfg.Orchestrator.WorkerInterval,
			orchestrator.WithTaskRetention(cfg.Orchestrator.TaskRetention))
		worker.Start(ctx)
		defer worker.Stop()
	}

	workflows := orchestrator.NewWorkflowEngine()
	registerWorkflows(workflows, state, reports, inventory)

	server := api.New(api.Services{
		Manager:   manager,
		Inventory: inventory,
		Customers: customers,
		Staff:     staff,
		Orders:    orders,
		Reports:   reports,
		State:     state,
		Workflows: workflows,
		Memory:    mem,
	}, api.Config{
		CORSOrigins:  cfg.Server.CORSOrigins,
		APIKey:       cfg.Server.APIKey,
		ProviderName: llm.ProviderName(provider),
		Version:      Version,
	})

	if a.cfgPath != "" {
		watcher, err := config.NewWatcher([]string{a.cfgPath})
		if err != nil {
			a.logger.Warn("config watcher unavailable", "error", err)
		} else {
			watcher.OnChange(func(next *config.Config) {
				telemetry.SetLogLevel(next.Log.Level)
				a.logger.Info("configuration reloaded",
					"log_level", next.Log.Level, "provider", next.LLM.Provider)
			})
			watcher.Start(ctx)
			defer watcher.Stop()
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening",
			"addr", cfg.Server.Addr,
			"llm_provider", llm.ProviderName(provider),
			"memory_enabled", mem.Enabled(),
			"worker_enabled", cfg.Orchestrator.WorkerEnabled)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// createProvider builds the configured LLM backend wrapped with retries,
// a circuit breaker and call metrics.
func (a *App) createProvider(ctx context.Context, metrics *telemetry.TaskMetrics) (llm.Provider, error) {
	cfg := a.cfg.LLM

	// Without an explicit provider, prefer Anthropic, then Google, the
	// same fallback order the API keys are usually provisioned in.
	name := cfg.Provider
	if name == "" || name == "auto" {
		switch {
		case cfg.AnthropicAPIKey != "" || os.Getenv("ANTHROPIC_API_KEY") != "":
			name = "anthropic"
		case cfg.GoogleAPIKey != "" || os.Getenv("GOOGLE_API_KEY") != "":
			name = "gemini"
		default:
			name = "mock"
		}
	}

	var inner llm.Provider
	switch name {
	case "anthropic":
		opts := []anthropic.Option{}
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithModel(cfg.Model))
		}
		if cfg.MaxTokens > 0 {
			opts = append(opts, anthropic.WithMaxTokens(cfg.MaxTokens))
		}
		if cfg.AnthropicAPIKey != "" {
			opts = append(opts, anthropic.WithAPIKey(cfg.AnthropicAPIKey))
		}
		inner = anthropic.New(opts...)
	case "gemini":
		opts := []gemini.Option{}
		if cfg.Model != "" {
			opts = append(opts, gemini.WithModel(cfg.Model))
		}
		var err error
		if cfg.GoogleAPIKey != "" {
			inner, err = gemini.NewWithAPIKey(ctx, cfg.GoogleAPIKey, opts...)
		} else {
			inner, err = gemini.New(ctx, opts...)
		}
		if err != nil {
			return nil, err
		}
	case "mock":
		inner = &llm.MockProvider{
			Response: `{"agents": ["operations"], "steps": ["Process the task"], "priority": "normal"}`,
		}
	default:
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}

	return llm.NewResilient(inner, llm.WithMetrics(metrics)), nil
}

// createMemory builds the semantic memory layer, or a disabled no-op one
// when memory is off or the vector store is unreachable.
func (a *App) createMemory(ctx context.Context) *memory.BusinessMemory {
	cfg := a.cfg.Memory
	if !cfg.Enabled {
		return memory.NewBusinessMemory(nil, nil, memory.BusinessMemoryConfig{})
	}

	vectors, err := qdrant.New(cfg.QdrantAddr)
	if err != nil {
		a.logger.Warn("qdrant unreachable, running without memory",
			"addr", cfg.QdrantAddr, "error", err)
		return memory.NewBusinessMemory(nil, nil, memory.BusinessMemoryConfig{})
	}
	embedder := ollama.NewEmbedder(cfg.EmbedderBaseURL, cfg.EmbedderModel)

	mem := memory.NewBusinessMemory(vectors, embedder, memory.BusinessMemoryConfig{
		Enabled:        true,
		Collection:     cfg.Collection,
		ScoreThreshold: float32(cfg.ScoreThreshold),
	})
	if err := mem.Init(ctx); err != nil {
		a.logger.Warn("memory init failed", "error", err)
	}
	return mem
}

// registerWorkflows installs the built-in routines.
func registerWorkflows(
	engine *orchestrator.WorkflowEngine,
	state *business.StateService,
	reports *business.ReportService,
	inventory *business.InventoryService,
) {
	engine.Register("close-of-day", "Record metrics and summarize the trading day",
		orchestrator.Step{Name: "record-metrics", Run: func(ctx context.Context, wctx map[string]any) (map[string]any, error) {
			snap, err := state.RecordMetrics(ctx, "daily")
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"daily_sales":        snap.DailySales,
				"daily_transactions": snap.DailyTransactions,
			}, nil
		}},
		orchestrator.Step{Name: "daily-report", Run: func(ctx context.Context, wctx map[string]any) (map[string]any, error) {
			summary, err := reports.DailySales(ctx, time.Time{})
			if err != nil {
				return nil, err
			}
			return map[string]any{"summary": summary}, nil
		}},
		orchestrator.Step{Name: "check-stock", Run: func(ctx context.Context, wctx map[string]any) (map[string]any, error) {
			low, err := inventory.LowStockProducts(ctx)
			if err != nil {
				return nil, err
			}
			names := make([]string, 0, len(low))
			for _, p := range low {
				names = append(names, p.Name)
			}
			return map[string]any{"low_stock": names}, nil
		}},
	)

	engine.Register("weekly-review", "Weekly sales and customer review",
		orchestrator.Step{Name: "weekly-sales", Run: func(ctx context.Context, wctx map[string]any) (map[string]any, error) {
			summary, err := reports.WeeklySales(ctx, time.Time{})
			if err != nil {
				return nil, err
			}
			return map[string]any{"summary": summary}, nil
		}},
		orchestrator.Step{Name: "customer-report", Run: func(ctx context.Context, wctx map[string]any) (map[string]any, error) {
			report, err := reports.Customers(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"customers": report}, nil
		}},
	)
}
