// Package agent implements the trading agent / strategy orchestration: it
// owns the active-market set for one TradingAgent, computes the per-market
// trend/priceLevel and target balance, and dispatches each market through
// Entry, MarketMaker, and Exit in turn.
package agent

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"

	"github.com/coachpo/marketmaker/internal/exchange"
	"github.com/coachpo/marketmaker/internal/indicator"
	"github.com/coachpo/marketmaker/internal/mirror"
	"github.com/coachpo/marketmaker/internal/model"
	"github.com/coachpo/marketmaker/internal/observability"
	"github.com/coachpo/marketmaker/internal/quant"
	"github.com/coachpo/marketmaker/internal/strategy/entry"
	"github.com/coachpo/marketmaker/internal/strategy/exit"
	"github.com/coachpo/marketmaker/internal/strategy/marketmaker"
)

// Options configures the agent-level thresholds applied as global defaults
// (per-market strategy options still take precedence through the
// Entry/Exit/MarketMaker Options passed to Runner).
type Options struct {
	MinimumTrend      float64 // default 0.1, gates active-market init
	MaximumPriceLevel float64 // default 0.6
	FiatRatio         float64 // default 0, fraction of totalBalance held back in fiat
	MaxDrawdown       float64 // default 0.2

	Entry       entry.Options
	Exit        exit.Options
	MarketMaker marketmaker.Options
}

func (o Options) withDefaults() Options {
	if o.MinimumTrend == 0 {
		o.MinimumTrend = 0.1
	}
	if o.MaximumPriceLevel == 0 {
		o.MaximumPriceLevel = 0.6
	}
	if o.MaxDrawdown == 0 {
		o.MaxDrawdown = 0.2
	}
	return o
}

// EventRecorder persists structured lifecycle events raised by the agent.
// Satisfied by *internal/events.Recorder.
type EventRecorder interface {
	Record(ctx context.Context, exchangeID, eventType string, data map[string]any)
}

// Runner executes one agent's update cycle against a bound mirror and
// exchange client. A Runner is scoped to a single run; a mirror must not be
// shared across concurrent runs of the same agent.
type Runner struct {
	Mirror   *mirror.State
	Client   exchange.Client
	Log      observability.Logger
	Opts     Options
	Recorder EventRecorder

	// MarketOptions, when set, resolves the per-market Entry/Exit/MarketMaker
	// options (the deep-merged per-market override tree) for a given market,
	// taking precedence over Opts' copies.
	MarketOptions func(market string) (entry.Options, exit.Options, marketmaker.Options)
}

// New constructs a Runner. log may be nil, in which case observability.Log()
// is used.
func New(m *mirror.State, client exchange.Client, log observability.Logger, opts Options) *Runner {
	if log == nil {
		log = observability.Log()
	}
	return &Runner{Mirror: m, Client: client, Log: log, Opts: opts.withDefaults()}
}

// Run executes one full update cycle for agent: beforeRun bookkeeping,
// totalBalance computation, per-market dispatch, and the drawdown guard.
func (r *Runner) Run(ctx context.Context, agent *model.TradingAgent) error {
	if agent.Paused {
		return nil
	}

	if err := r.beforeRun(ctx, agent); err != nil {
		return err
	}

	totalBalance, ok := r.Mirror.GetTotalBalance(false, nil, true)
	if !ok {
		r.Log.Error("agent run aborted: total balance unavailable", observability.Field{Key: "agent", Value: agent.ID})
		return nil
	}

	active := agent.ActiveMarkets()
	p := pool.New().WithContext(ctx)
	for _, market := range active {
		market := market
		ms := agent.StrategyState[market]
		p.Go(func(ctx context.Context) error {
			return r.runForMarket(ctx, agent, market, ms, totalBalance, len(active))
		})
	}
	if err := p.Wait(); err != nil {
		_ = observability.AggregateErrors("agent.Run", []error{err}, observability.Field{Key: "agent", Value: agent.ID})
	}

	r.pruneInactiveMarkets(agent)
	r.applyDrawdownGuard(ctx, agent, totalBalance)

	return nil
}

// beforeRun recomputes trend/priceLevel for candidate markets and
// initializes state for any that newly clear the activation bar.
func (r *Runner) beforeRun(ctx context.Context, agent *model.TradingAgent) error {
	for market, ms := range agent.StrategyState {
		if !ms.CanTrade && ms.AgentState == "" {
			continue
		}
		if ms.Trend == 0 && ms.PriceLevel == 0 {
			dayCandles, err := r.Client.FetchOHLCV(ctx, market, "1d", 0, 30)
			if err != nil || len(dayCandles) < 2 {
				continue
			}
			ms.Trend = indicator.Tail(indicator.VDX(
				model.Highs(dayCandles), model.Lows(dayCandles), model.Closes(dayCandles), model.Volumes(dayCandles), 30))
			ms.PriceLevel = indicator.Tail(indicator.RSI(model.Closes(dayCandles), 20)) / 100
		}
		if ms.AgentState == "" && ms.Trend >= r.Opts.MinimumTrend && ms.PriceLevel < r.Opts.MaximumPriceLevel {
			ms.AgentState = model.AgentStateIdle
		}
	}
	return nil
}

// pruneInactiveMarkets drops state for markets that are no longer
// candidates: not canTrade, below the min-deal base position, and with no
// resting orders (the sticky active-market rule).
func (r *Runner) pruneInactiveMarkets(agent *model.TradingAgent) {
	for market, ms := range agent.StrategyState {
		if ms.CanTrade {
			continue
		}
		base, _ := splitMarket(market)
		if r.Mirror.Balance(base).Total().GreaterThanOrEqual(r.Mirror.MinDealAmount(market)) {
			continue
		}
		if len(r.Mirror.OpenOrders(market)) > 0 {
			continue
		}
		delete(agent.StrategyState, market)
	}
}

func (r *Runner) applyDrawdownGuard(ctx context.Context, agent *model.TradingAgent, total decimal.Decimal) {
	if total.GreaterThan(agent.PeakMarketAmount) {
		agent.PeakMarketAmount = total
	}
	if agent.PeakMarketAmount.IsZero() {
		return
	}
	drawdown, _ := agent.PeakMarketAmount.Sub(total).Div(agent.PeakMarketAmount).Float64()
	if drawdown > r.Opts.MaxDrawdown {
		agent.Paused = true
		peak, _ := agent.PeakMarketAmount.Float64()
		currentTotal, _ := total.Float64()
		r.Log.Error("max drawdown reached, pausing agent",
			observability.Field{Key: "agent", Value: agent.ID},
			observability.Field{Key: "drawdown", Value: drawdown})
		if r.Recorder != nil {
			r.Recorder.Record(ctx, agent.ExchangeID, "max_drawdown_reached", map[string]any{
				"peak":         peak,
				"currentTotal": currentTotal,
			})
		}
	}
}

// runForMarket dispatches one market through reconciliation and the
// Entry/MarketMaker/Exit strategies, mutating ms in place.
func (r *Runner) runForMarket(ctx context.Context, agent *model.TradingAgent, market string, ms *model.MarketState, totalBalance decimal.Decimal, activeCount int) error {
	entryOpts, exitOpts, mmOpts := r.Opts.Entry, r.Opts.Exit, r.Opts.MarketMaker
	if r.MarketOptions != nil {
		entryOpts, exitOpts, mmOpts = r.MarketOptions(market)
	}

	if ms.AgentState != model.AgentStateIdle {
		if ok := r.Mirror.Update(ctx, market); !ok {
			return nil
		}
	}

	if ms.Params.Sigma == 0 {
		hourCandles, err := r.Client.FetchOHLCV(ctx, market, "1h", 0, quant.GBMHoursRequired)
		if err == nil {
			if params, err := quant.ComputeGBMParameters(hourCandles); err == nil {
				ms.Params.Sigma = params.Sigma
				ms.Params.Mu = params.Mu
			}
		}
	}

	base, _ := splitMarket(market)
	ticker, haveTicker := r.Mirror.Ticker(market)
	if !haveTicker || ticker.Bid <= 0 {
		return nil
	}

	ratio := ms.Ratio
	if ratio == 0 {
		ratio = (1 - r.Opts.FiatRatio) / float64(activeCount)
	}
	fiatBudget := totalBalance.Mul(decimal.NewFromFloat(1 - r.Opts.FiatRatio)).Mul(decimal.NewFromFloat(ratio))
	targetBalance := fiatBudget.Div(decimal.NewFromFloat(ticker.Bid))

	baseBalance := r.Mirror.Balance(base)
	quoteBalance := r.Mirror.Balance(strings.Split(market, "/")[1])

	dayCandles, _ := r.Client.FetchOHLCV(ctx, market, "1d", 0, 30)
	hourCandles, _ := r.Client.FetchOHLCV(ctx, market, "1h", 0, 60)
	trades := r.Mirror.Trades(market)
	openOrders := r.Mirror.OpenOrders(market)

	hasStickyBuy, hasStickySell := false, false
	for _, o := range openOrders {
		if o.Sticky && o.Side == model.OrderSideBuy {
			hasStickyBuy = true
		}
		if o.Sticky && o.Side == model.OrderSideSell {
			hasStickySell = true
		}
	}

	minDealAmount := r.Mirror.MinDealAmount(market)

	if baseBalance.Total().LessThan(minDealAmount) {
		return r.dispatchEntry(ctx, market, ms, entryOpts, entry.Input{
			Ticker:              ticker,
			Trend:               ms.Trend,
			PriceLevel:          ms.PriceLevel,
			BaseBalance:         baseBalance,
			QuoteBalance:        quoteBalance,
			TargetBalance:       targetBalance,
			MinDealAmount:       minDealAmount,
			DayCandles:          dayCandles,
			HourCandles:         hourCandles,
			Trades:              trades,
			HasStickyBuy:        hasStickyBuy,
			CanEnterMoreMarkets: true,
		})
	}

	lastClosedBuy := r.Mirror.LastClosedOrder(market, model.OrderSideBuy)
	exitAction := exit.Evaluate(exit.Input{
		Now:            model.NowMs(),
		Ticker:         ticker,
		BaseBalance:    baseBalance,
		MinDealAmount:  minDealAmount,
		EntryPrice:     ms.EntryPrice,
		EntryTimestamp: ms.EntryTimestamp,
		LastClosedBuy:  lastClosedBuy,
		DayCandles:     dayCandles,
		HourCandles:    hourCandles,
		HasStickySell:  hasStickySell,
		CanTrade:       ms.CanTrade,
	}, exitOpts)

	if !exitAction.EntryPrice.IsZero() {
		ms.EntryPrice = exitAction.EntryPrice
		ms.EntryTimestamp = exitAction.EntryTimestamp
	}

	if exitAction.ShouldExit {
		ms.AgentState = model.AgentStateTryingToLeave
		r.Mirror.CancelAllOrders(ctx, market, model.OrderSideSell)
		_, err := r.Mirror.CreateOrder(ctx, mirror.CreateOrderRequest{
			Market: market,
			Type:   model.OrderTypeLimit,
			Side:   model.OrderSideSell,
			Amount: exitAction.Amount,
			Sticky: true,
		})
		return err
	}
	if exitAction.CancelAll && exitAction.TransitionHasPosition {
		r.Mirror.CancelAllOrders(ctx, market, model.OrderSideSell)
		ms.AgentState = model.AgentStateHasPosition
		return nil
	}

	ms.AgentState = model.AgentStateHasPosition
	mmAction := marketmaker.Evaluate(marketmaker.Input{
		Now:            model.NowMs(),
		Ticker:         ticker,
		HourCandles:    hourCandles,
		BaseBalance:    baseBalance,
		QuoteBalance:   quoteBalance,
		TargetBalance:  targetBalance,
		HasOpenBuy:     hasBuyOpen(openOrders),
		HasOpenSell:    hasSellOpen(openOrders),
		LastClosedSell: r.Mirror.LastClosedOrder(market, model.OrderSideSell),
		LastClosedBuy:  lastClosedBuy,
	}, mmOpts)

	if !mmAction.CancelAll {
		return nil
	}
	r.Mirror.CancelAllOrders(ctx, market, model.OrderSideBuy)
	r.Mirror.CancelAllOrders(ctx, market, model.OrderSideSell)

	mp := pool.New().WithContext(ctx)
	if mmAction.Buy.Place {
		mp.Go(func(ctx context.Context) error {
			price := mmAction.Buy.Price
			_, err := r.Mirror.CreateOrder(ctx, mirror.CreateOrderRequest{
				Market: market, Type: model.OrderTypeLimit, Side: model.OrderSideBuy,
				Amount: mmAction.Buy.Amount, Price: &price,
				AutoCancelAtFillPercentage: mmAction.AutoCancelAtFillPercentage,
			})
			return err
		})
	}
	if mmAction.Sell.Place {
		mp.Go(func(ctx context.Context) error {
			price := mmAction.Sell.Price
			_, err := r.Mirror.CreateOrder(ctx, mirror.CreateOrderRequest{
				Market: market, Type: model.OrderTypeLimit, Side: model.OrderSideSell,
				Amount: mmAction.Sell.Amount, Price: &price,
				AutoCancelAtFillPercentage: mmAction.AutoCancelAtFillPercentage,
			})
			return err
		})
	}
	return mp.Wait()
}

func (r *Runner) dispatchEntry(ctx context.Context, market string, ms *model.MarketState, opts entry.Options, in entry.Input) error {
	act := entry.Evaluate(in, opts)
	if act.ShouldEnter {
		ms.AgentState = model.AgentStateTryingToEnter
		r.Mirror.CancelAllOrders(ctx, market, model.OrderSideBuy)
		price := act.Price
		_, err := r.Mirror.CreateOrder(ctx, mirror.CreateOrderRequest{
			Market: market,
			Type:   model.OrderTypeLimit,
			Side:   model.OrderSideBuy,
			Amount: act.Amount,
			Price:  &price,
			Sticky: true,
		})
		return err
	}
	if act.CancelAll && act.TransitionIdle {
		r.Mirror.CancelAllOrders(ctx, market, model.OrderSideBuy)
		ms.AgentState = model.AgentStateIdle
	}
	return nil
}

func hasBuyOpen(orders []model.Order) bool {
	for _, o := range orders {
		if o.Side == model.OrderSideBuy {
			return true
		}
	}
	return false
}

func hasSellOpen(orders []model.Order) bool {
	for _, o := range orders {
		if o.Side == model.OrderSideSell {
			return true
		}
	}
	return false
}

func splitMarket(market string) (base, quote string) {
	parts := strings.SplitN(market, "/", 2)
	if len(parts) != 2 {
		return market, ""
	}
	return parts[0], parts[1]
}

