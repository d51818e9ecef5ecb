// Command gatewayd launches the market-making engine: it loads
// configuration, wires the persistence store, exchange client, state
// mirror, job orchestrator, and portfolio allocator, then serves the
// minimal control surface until a shutdown signal arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sourcegraph/conc"

	"github.com/coachpo/marketmaker/internal/allocator"
	"github.com/coachpo/marketmaker/internal/config"
	"github.com/coachpo/marketmaker/internal/errs"
	"github.com/coachpo/marketmaker/internal/events"
	"github.com/coachpo/marketmaker/internal/exchange"
	"github.com/coachpo/marketmaker/internal/exchange/binance"
	"github.com/coachpo/marketmaker/internal/mirror"
	"github.com/coachpo/marketmaker/internal/model"
	"github.com/coachpo/marketmaker/internal/observability"
	"github.com/coachpo/marketmaker/internal/orchestrator"
	"github.com/coachpo/marketmaker/internal/persistence"
	"github.com/coachpo/marketmaker/internal/persistence/postgres"
	"github.com/coachpo/marketmaker/internal/strategy/agent"
	"github.com/coachpo/marketmaker/internal/strategy/entry"
	"github.com/coachpo/marketmaker/internal/strategy/exit"
	"github.com/coachpo/marketmaker/internal/strategy/marketmaker"
	"github.com/coachpo/marketmaker/internal/timeutil"
)

const (
	defaultConfigPath       = "config/app.yaml"
	dbConnectTimeout        = 10 * time.Second
	shutdownTimeout         = 30 * time.Second
	httpShutdownTimeout     = 5 * time.Second
	orchestratorStopTimeout = 10 * time.Second
	httpReadHeaderTimeout   = 5 * time.Second
	agentIDDataKey          = "agentId"
	eventDLQCapacity        = 256
)

func main() {
	configPath := parseFlags()
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := observability.NewLogrusLogger()
	observability.SetLogger(log)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Error("load config", observability.Field{Key: "error", Value: err.Error()})
		os.Exit(1)
	}

	pool, err := connectDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("connect database", observability.Field{Key: "error", Value: err.Error()})
		os.Exit(1)
	}
	defer pool.Close()

	if err := postgres.ObservePoolMetrics(pool); err != nil {
		log.Error("register pool metrics", observability.Field{Key: "error", Value: err.Error()})
	}

	store := postgres.New(pool)
	exchangeClient := buildExchangeClient(cfg)
	if err := exchangeClient.LoadMarkets(ctx); err != nil {
		log.Error("load markets", observability.Field{Key: "error", Value: err.Error()})
	}

	orch := orchestrator.New(store, log, orchestrator.Options{
		PollInterval: periodDuration(cfg.Intervals.Orchestrator, 2*time.Second),
	})

	if err := bootstrapJobs(ctx, orch, store, exchangeClient, log, cfg); err != nil {
		log.Error("bootstrap jobs", observability.Field{Key: "error", Value: err.Error()})
	}

	var lifecycle conc.WaitGroup
	lifecycle.Go(func() { orch.Run(ctx) })

	mux := newMux(store, exchangeClient, orch, log, cfg)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: httpReadHeaderTimeout,
	}
	lifecycle.Go(func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server", observability.Field{Key: "error", Value: err.Error()})
		}
	})
	log.Info("daemon started", observability.Field{Key: "addr", Value: cfg.Addr})

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	gracefulShutdown(shutdownCtx, log, server, &lifecycle)
}

func parseFlags() string {
	cfgPath := flag.String("config", defaultConfigPath, "Path to application configuration file")
	flag.Parse()
	return *cfgPath
}

func connectDatabase(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	connectCtx, cancel := context.WithTimeout(ctx, dbConnectTimeout)
	defer cancel()
	pool, err := pgxpool.New(connectCtx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func buildExchangeClient(cfg config.AppConfig) *binance.Client {
	for _, settings := range cfg.Exchanges {
		opts := binance.Options{
			APIKey:    settings.Credentials.APIKey,
			APISecret: settings.Credentials.APISecret,
			BaseURL:   settings.REST["base"],
		}
		return binance.New(opts)
	}
	return binance.New(binance.Options{})
}

// periodDuration parses a period literal (see internal/timeutil) into a
// time.Duration, falling back to def when period is invalid or empty.
func periodDuration(period string, def time.Duration) time.Duration {
	ms, err := timeutil.PeriodToMs(period)
	if err != nil {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

// bootstrapJobs registers the agent-run and allocation processors for every
// tradingagent already in the store and ensures a repeating job exists for
// each. An agent added to the store after startup gets its jobs scheduled
// the first time it is triggered through POST /agents/{id}/run.
func bootstrapJobs(ctx context.Context, orch *orchestrator.Orchestrator, store persistence.Store, client exchange.Client, log observability.Logger, cfg config.AppConfig) error {
	docs, err := store.List(ctx, persistence.KindTradingAgent)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		var a model.TradingAgent
		if err := json.Unmarshal(doc.Data, &a); err != nil {
			log.Error("bootstrap: decode agent failed", observability.Field{Key: "id", Value: doc.Key.ID}, observability.Field{Key: "error", Value: err.Error()})
			continue
		}
		if err := scheduleAgentJobs(ctx, orch, store, client, log, cfg, a.ID); err != nil {
			log.Error("bootstrap: schedule agent failed", observability.Field{Key: "id", Value: a.ID}, observability.Field{Key: "error", Value: err.Error()})
		}
	}
	return nil
}

// scheduleAgentJobs registers the per-agent processors (idempotent,
// Register simply replaces any prior binding) and ensures the repeating job
// documents exist.
func scheduleAgentJobs(ctx context.Context, orch *orchestrator.Orchestrator, store persistence.Store, client exchange.Client, log observability.Logger, cfg config.AppConfig, agentID string) error {
	runName := "agent-run-" + agentID
	allocateName := "agent-allocate-" + agentID

	orch.Register(runName, func(ctx context.Context, data map[string]any) error {
		return runAgentCycle(ctx, store, client, log, cfg, agentID)
	})
	orch.Register(allocateName, func(ctx context.Context, data map[string]any) error {
		return runAllocation(ctx, store, client, log, cfg, agentID)
	})

	data := map[string]any{agentIDDataKey: agentID}
	if err := orch.CreateRepeatingJob(ctx, periodDuration(cfg.Intervals.AgentRun, 5*time.Minute), runName, data); err != nil {
		return fmt.Errorf("schedule agent run: %w", err)
	}
	if err := orch.CreateRepeatingJob(ctx, periodDuration(cfg.Intervals.Allocation, time.Hour), allocateName, data); err != nil {
		return fmt.Errorf("schedule allocation: %w", err)
	}
	return nil
}

func loadAgent(ctx context.Context, store persistence.Store, agentID string) (model.TradingAgent, persistence.Document, error) {
	doc, err := store.Get(ctx, persistence.Key{Kind: persistence.KindTradingAgent, ID: agentID})
	if err != nil {
		return model.TradingAgent{}, persistence.Document{}, err
	}
	var a model.TradingAgent
	if err := json.Unmarshal(doc.Data, &a); err != nil {
		return model.TradingAgent{}, persistence.Document{}, errs.New("daemon.loadAgent", errs.CodeBadResponse, errs.WithCause(err))
	}
	return a, doc, nil
}

func saveAgent(ctx context.Context, store persistence.Store, doc persistence.Document, a model.TradingAgent) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return errs.New("daemon.saveAgent", errs.CodeInput, errs.WithCause(err))
	}
	doc.Data = raw
	_, err = store.CompareAndSwap(ctx, doc.Version, doc)
	return err
}

func runAgentCycle(ctx context.Context, store persistence.Store, client exchange.Client, log observability.Logger, cfg config.AppConfig, agentID string) error {
	a, doc, err := loadAgent(ctx, store, agentID)
	if err != nil {
		return err
	}

	recorder := events.New(store, log, eventDLQCapacity)

	mirrorCfg := mirror.Config{ExchangeID: a.ExchangeID, FiatCurrency: a.FiatCurrency}
	state := mirror.New(mirrorCfg, client, log)
	state.SetRecorder(recorder)
	state.SyncBalance(ctx)
	if markets := a.ActiveMarkets(); len(markets) > 0 {
		state.SyncTickers(ctx, markets)
		for _, market := range markets {
			state.Update(ctx, market)
		}
	}

	runner := agent.New(state, client, log, agent.Options{
		MinimumTrend:      cfg.Strategy.MinimumTrend,
		MaximumPriceLevel: cfg.Strategy.MaximumPriceLevel,
		FiatRatio:         cfg.Strategy.FiatRatio,
		MaxDrawdown:       cfg.Strategy.MaxDrawdown,
		Entry:             cfg.Strategy.Entry,
		Exit:              cfg.Strategy.Exit,
		MarketMaker:       cfg.Strategy.MarketMaker,
	})
	runner.Recorder = recorder
	runner.MarketOptions = func(market string) (entry.Options, exit.Options, marketmaker.Options) {
		resolved, err := cfg.Strategy.ForMarket(market)
		if err != nil {
			log.Error("resolve market options failed", observability.Field{Key: "market", Value: market}, observability.Field{Key: "error", Value: err.Error()})
			return cfg.Strategy.Entry, cfg.Strategy.Exit, cfg.Strategy.MarketMaker
		}
		return resolved.Entry, resolved.Exit, resolved.MarketMaker
	}
	if err := runner.Run(ctx, &a); err != nil {
		_ = recorder.Flush(ctx)
		return err
	}
	if err := recorder.Flush(ctx); err != nil {
		log.Error("event recorder flush failed", observability.Field{Key: "agent", Value: agentID}, observability.Field{Key: "error", Value: err.Error()})
	}
	return saveAgent(ctx, store, doc, a)
}

func runAllocation(ctx context.Context, store persistence.Store, client exchange.Client, log observability.Logger, cfg config.AppConfig, agentID string) error {
	a, doc, err := loadAgent(ctx, store, agentID)
	if err != nil {
		return err
	}
	alloc := allocator.New(client, log, allocator.Options{})
	if err := alloc.Allocate(ctx, &a); err != nil {
		return err
	}
	return saveAgent(ctx, store, doc, a)
}

func gracefulShutdown(ctx context.Context, log observability.Logger, server *http.Server, lifecycle *conc.WaitGroup) {
	step := func(name string, timeout time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := fn(stepCtx); err != nil {
			log.Error("shutdown step failed", observability.Field{Key: "step", Value: name}, observability.Field{Key: "error", Value: err.Error()})
			return
		}
		log.Info("shutdown step completed", observability.Field{Key: "step", Value: name})
	}

	step("stop http server", httpShutdownTimeout, func(stepCtx context.Context) error {
		return server.Shutdown(stepCtx)
	})

	step("wait for background goroutines", orchestratorStopTimeout, func(stepCtx context.Context) error {
		done := make(chan struct{})
		go func() {
			lifecycle.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-stepCtx.Done():
			return stepCtx.Err()
		}
	})
}

// newMux builds the daemon's minimal control surface: liveness and an
// on-demand trigger for one agent's update cycle. Operators manage
// tradingagent documents directly through the persistence layer.
func newMux(store persistence.Store, client exchange.Client, orch *orchestrator.Orchestrator, log observability.Logger, cfg config.AppConfig) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("POST /agents/{id}/run", func(w http.ResponseWriter, r *http.Request) {
		agentID := r.PathValue("id")
		if agentID == "" {
			http.Error(w, "agent id required", http.StatusBadRequest)
			return
		}
		if err := scheduleAgentJobs(r.Context(), orch, store, client, log, cfg, agentID); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := runAgentCycle(r.Context(), store, client, log, cfg, agentID); err != nil {
			if errs.Is(err, errs.CodeNotFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	return mux
}
