package mirror

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"

	"github.com/coachpo/marketmaker/internal/errs"
	"github.com/coachpo/marketmaker/internal/model"
	"github.com/coachpo/marketmaker/internal/observability"
)

// purgeAfter is how long closed/cancelled orders are retained before
// Update's purge step drops them.
const purgeAfter = 7 * 24 * time.Hour

// Update runs the full reconciliation cycle for a market (or every known
// market when market is ""): syncOrders, fulfillLimitOrders (simulation
// only), autoCancelOrders, updateStickyOrders, purgeOrderList.
func (s *State) Update(ctx context.Context, market string) bool {
	if s.isLockedDown() {
		return true
	}
	markets := s.marketsFor(market)
	for _, m := range markets {
		if !s.syncOrders(ctx, m) {
			return false
		}
		if s.cfg.Simulation {
			s.fulfillLimitOrders(ctx, m)
		}
		s.autoCancelOrders(ctx, m)
		s.updateStickyOrders(ctx, m)
		s.purgeOrderList(m)
	}
	return true
}

func (s *State) marketsFor(market string) []string {
	if market != "" {
		return []string{market}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	for m := range s.openOrders {
		seen[m] = true
	}
	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	return out
}

// syncOrders reconciles local open orders against the remote venue. It is
// a no-op returning true in simulation mode, since there is no remote to
// reconcile against.
func (s *State) syncOrders(ctx context.Context, market string) bool {
	if s.cfg.Simulation {
		return true
	}
	remote, err := s.client.FetchOpenOrders(ctx, market)
	if err != nil {
		s.log.Error("mirror: syncOrders failed", observability.Field{Key: "market", Value: market}, observability.Field{Key: "error", Value: err.Error()})
		return false
	}
	remoteByID := make(map[string]model.Order, len(remote))
	for _, r := range remote {
		remoteByID[r.ID] = r
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	local := s.openOrders[market]
	for id, l := range local {
		if r, ok := remoteByID[id]; ok {
			l.Status = r.Status
			l.Filled = r.Filled
			l.Remaining = r.Remaining
			l.Fee = r.Fee
			continue
		}
		_, cancelled := s.cancelledOrders[market][id]
		if cancelled {
			continue
		}
		l.Status = model.OrderStatusClosed
		l.Filled = l.Amount
		l.Remaining = decimal.Zero
		l.TimestampClosed = model.NowMs()
		s.putClosed(market, l)
		delete(local, id)
		s.emitLocked(Event{Type: EventLimitOrderFulfilled, Market: market, Order: l})
	}

	for _, r := range remote {
		if _, ok := local[r.ID]; ok {
			continue
		}
		if closed, ok := s.closedOrders[market][r.ID]; ok {
			closed.Status = model.OrderStatusOpen
			s.putOpen(market, closed)
			delete(s.closedOrders[market], r.ID)
			continue
		}
		if s.cfg.ForceAutoCancel {
			go func(order model.Order) {
				_ = s.CancelOrder(ctx, market, order.ID)
			}(r)
			continue
		}
		cp := r
		s.putOpen(market, &cp)
	}

	for id, l := range local {
		if l.AutoCancelAtFillPercentage == 0 && l.AutoCancel == 0 && l.AutoCancelAtPriceLevel.IsZero() && !l.Sticky {
			delete(local, id)
		}
	}

	if len(local) != len(remote) {
		s.emitLocked(Event{Type: EventReconciliationMismatch, Market: market})
		return false
	}
	return true
}

// emitLocked emits an event from a context where s.mu is already held,
// deferring the send to avoid any risk of a blocked channel holding the lock.
func (s *State) emitLocked(evt Event) {
	go s.emit(evt)
}

// fulfillLimitOrders simulates fills for open limit orders using the most
// recent smallest-timeframe candle: a buy fills if the candle's low is
// below the order price, a sell if the high is above it.
func (s *State) fulfillLimitOrders(ctx context.Context, market string) {
	candles, err := s.client.FetchOHLCV(ctx, market, "1m", 0, 1)
	if err != nil || len(candles) == 0 {
		return
	}
	candle := candles[len(candles)-1]
	if candle.Volume <= 0 {
		return
	}

	s.mu.Lock()
	base, quote := splitMarket(market)
	var fills []*model.Order
	for _, o := range s.openOrders[market] {
		if o.Type != model.OrderTypeLimit {
			continue
		}
		if o.Created >= candle.Timestamp {
			continue
		}
		priceF, _ := o.Price.Float64()
		filled := (o.Side == model.OrderSideBuy && candle.Low < priceF) ||
			(o.Side == model.OrderSideSell && candle.High > priceF)
		if !filled {
			continue
		}
		fills = append(fills, o)
	}
	for _, o := range fills {
		if o.Side == model.OrderSideBuy {
			s.withdrawFromUsed(quote, o.Remaining.Mul(o.Price))
			credited := o.Remaining.Mul(decimal.NewFromFloat(1).Sub(s.cfg.Fee))
			s.deposit(base, credited)
		} else {
			s.withdrawFromUsed(base, o.Remaining)
			credited := o.Remaining.Mul(o.Price).Mul(decimal.NewFromFloat(1).Sub(s.cfg.Fee))
			s.deposit(quote, credited)
		}
		o.Filled = o.Amount
		o.Remaining = decimal.Zero
		o.Status = model.OrderStatusClosed
		o.TimestampClosed = model.NowMs()
		s.putClosed(market, o)
		delete(s.openOrders[market], o.ID)
	}
	s.mu.Unlock()
}

// autoCancelOrders cancels every open order whose age, fill ratio, or
// side/price crossing exceeds its configured auto-cancel budget.
func (s *State) autoCancelOrders(ctx context.Context, market string) {
	now := model.NowMs()
	s.mu.RLock()
	var toCancel []string
	for id, o := range s.openOrders[market] {
		ticker, haveTicker := s.tickers[market]
		ageExpired := o.AutoCancel > 0 && o.Age(now) > o.AutoCancel
		fillExpired := o.FillRatio() >= o.AutoCancelAtFillPercentage
		priceExpired := false
		if haveTicker && !o.AutoCancelAtPriceLevel.IsZero() {
			level, _ := o.AutoCancelAtPriceLevel.Float64()
			if o.Side == model.OrderSideBuy {
				priceExpired = ticker.Ask > level
			} else {
				priceExpired = ticker.Bid < level
			}
		}
		if ageExpired || fillExpired || priceExpired {
			toCancel = append(toCancel, id)
		}
	}
	s.mu.RUnlock()

	p := pool.New().WithContext(ctx)
	for _, id := range toCancel {
		id := id
		p.Go(func(ctx context.Context) error {
			if err := s.CancelOrder(ctx, market, id); err != nil && !errs.Is(err, errs.CodeNotFound) {
				s.log.Error("mirror: autoCancelOrders failed", observability.Field{Key: "order", Value: id})
			}
			return nil
		})
	}
	_ = p.Wait()
}

// updateStickyOrders re-pegs sticky orders to the current top of book,
// replacing them (cancel then recreate) when the target level has moved.
func (s *State) updateStickyOrders(ctx context.Context, market string) {
	s.mu.RLock()
	var sticky []*model.Order
	for _, o := range s.openOrders[market] {
		if o.Sticky {
			sticky = append(sticky, o)
		}
	}
	s.mu.RUnlock()
	if len(sticky) == 0 {
		return
	}

	s.SyncOrderBook(ctx, []string{market})
	book, ok := s.OrderBook(market)
	if !ok {
		return
	}

	for _, o := range sticky {
		target, ok := stickyTarget(book, *o)
		if !ok || target.Equal(o.Price) {
			continue
		}
		remaining := o.Remaining
		side := o.Side
		autoCancel := o.AutoCancel
		fillPct := o.AutoCancelAtFillPercentage

		if err := s.CancelOrder(ctx, market, o.ID); err != nil {
			continue
		}
		s.mu.Lock()
		delete(s.cancelledOrders[market], o.ID)
		s.mu.Unlock()

		minDeal := s.cfg.MinDealAmountOf(market)
		if remaining.LessThanOrEqual(minDeal) || autoCancel < 0 {
			continue
		}
		_, _ = s.CreateOrder(ctx, CreateOrderRequest{
			Market:                     market,
			Type:                       model.OrderTypeLimit,
			Side:                       side,
			Amount:                     remaining,
			Price:                      &target,
			Sticky:                     true,
			AutoCancel:                 autoCancel,
			AutoCancelAtFillPercentage: fillPct,
		})
	}
}

// stickyTarget computes the re-peg target for a sticky order: if we are
// the sole occupant of the best level, step back to the second-best level;
// otherwise match the current best level.
func stickyTarget(book model.OrderBook, o model.Order) (decimal.Decimal, bool) {
	if o.Side == model.OrderSideBuy {
		best, ok := book.BestBid()
		if !ok {
			return decimal.Decimal{}, false
		}
		if o.Remaining.GreaterThanOrEqual(best.Amount) && o.Price.Equal(best.Price) {
			second, ok := book.SecondBestBid()
			if !ok {
				return best.Price, true
			}
			return second.Price, true
		}
		return best.Price, true
	}
	best, ok := book.BestAsk()
	if !ok {
		return decimal.Decimal{}, false
	}
	if o.Remaining.GreaterThanOrEqual(best.Amount) && o.Price.Equal(best.Price) {
		second, ok := book.SecondBestAsk()
		if !ok {
			return best.Price, true
		}
		return second.Price, true
	}
	return best.Price, true
}

// purgeOrderList drops closed/cancelled orders older than purgeAfter.
func (s *State) purgeOrderList(market string) {
	cutoff := model.NowMs() - purgeAfter.Milliseconds()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, o := range s.closedOrders[market] {
		if o.TimestampClosed > 0 && o.TimestampClosed < cutoff {
			delete(s.closedOrders[market], id)
		}
	}
	for id, o := range s.cancelledOrders[market] {
		if o.TimestampClosed > 0 && o.TimestampClosed < cutoff {
			delete(s.cancelledOrders[market], id)
		}
	}
}
