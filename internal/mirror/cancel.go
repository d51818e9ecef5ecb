package mirror

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/coachpo/marketmaker/internal/errs"
	"github.com/coachpo/marketmaker/internal/exchange"
	"github.com/coachpo/marketmaker/internal/model"
	"github.com/coachpo/marketmaker/internal/observability"
)

// CancelOrder cancels an open order, releasing its reservation and moving
// it to cancelled (and, if partially filled, also to closed).
func (s *State) CancelOrder(ctx context.Context, market, id string) error {
	if s.isLockedDown() {
		return errs.New("mirror.CancelOrder", errs.CodeLockdown)
	}

	s.mu.Lock()
	order, ok := s.openOrders[market][id]
	s.mu.Unlock()
	if !ok || order.Status != model.OrderStatusOpen {
		return errs.New("mirror.CancelOrder", errs.CodeNotFound, errs.WithField("order", id))
	}

	if !s.cfg.Simulation {
		side := order.Side
		if err := s.client.CancelOrder(ctx, exchange.CancelOrderParams{ID: id, Market: market, Side: side}); err != nil {
			s.log.Error("mirror: live cancelOrder failed", observability.Field{Key: "order", Value: id}, observability.Field{Key: "error", Value: err.Error()})
			return nil
		}
	}

	s.mu.Lock()
	base, quote := splitMarket(market)
	if order.Side == model.OrderSideBuy {
		s.release(quote, order.Remaining.Mul(order.Price))
	} else {
		s.release(base, order.Remaining)
	}
	delete(s.openOrders[market], id)
	order.Status = model.OrderStatusClosed
	order.TimestampClosed = model.NowMs()
	s.putCancelled(market, order)
	if order.Filled.IsPositive() {
		s.putClosed(market, order)
	}
	s.mu.Unlock()

	evtType := EventLimitOrderCancelled
	if order.Type == model.OrderTypeMarket {
		evtType = EventMarketOrderCancelled
	}
	s.emit(Event{Type: evtType, Market: market, Order: order})
	return nil
}

// CancelAllOrders cancels every open order matching market/side (empty
// string matches any), in parallel. Individual failures are aggregated into
// one logged error rather than failing the batch.
func (s *State) CancelAllOrders(ctx context.Context, market string, side model.OrderSide) error {
	s.mu.RLock()
	type target struct {
		market, id string
	}
	var targets []target
	for m, orders := range s.openOrders {
		if market != "" && m != market {
			continue
		}
		for id, o := range orders {
			if side != "" && o.Side != side {
				continue
			}
			targets = append(targets, target{market: m, id: id})
		}
	}
	s.mu.RUnlock()

	var mu sync.Mutex
	var failures []error
	p := pool.New().WithContext(ctx)
	for _, t := range targets {
		t := t
		p.Go(func(ctx context.Context) error {
			if err := s.CancelOrder(ctx, t.market, t.id); err != nil {
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = p.Wait()
	return observability.AggregateErrors("mirror.CancelAllOrders", failures,
		observability.Field{Key: "market", Value: market})
}
