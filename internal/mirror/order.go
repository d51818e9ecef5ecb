package mirror

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coachpo/marketmaker/internal/errs"
	"github.com/coachpo/marketmaker/internal/exchange"
	"github.com/coachpo/marketmaker/internal/model"
	"github.com/coachpo/marketmaker/internal/observability"
)

// simulatedSlippage is applied to market-order fills in the simulation
// path, on top of the configured fee, modeling the cost of crossing depth.
const simulatedSlippage = 0.01

// noAutoCancelPriceLevel stands in for +∞ as a buy order's default
// autoCancelAtPriceLevel: large enough that no real ask will ever cross it.
var noAutoCancelPriceLevel = decimal.New(1, 18)

// CreateOrderRequest is the caller-supplied input to State.CreateOrder.
// Price is nil to take the side's current ticker price.
type CreateOrderRequest struct {
	Market string
	Type   model.OrderType
	Side   model.OrderSide
	Amount decimal.Decimal
	Price  *decimal.Decimal

	Sticky                     bool
	AutoCancel                 int64
	AutoCancelAtFillPercentage float64
	AutoCancelAtPriceLevel     *decimal.Decimal
}

// generateOrderID returns a 16-char lowercase-alphanumeric simulation order
// ID, derived from a UUIDv4 so it stays unique without a package-level PRNG.
func generateOrderID() string {
	raw := strings.ToLower(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return raw[:16]
}

// CreateOrder validates and places an order. In simulation mode it settles
// balance reservations locally and never contacts the exchange. Outside
// simulation it calls the adapter and swaps in the remote order ID; on
// adapter failure it logs and returns (nil, nil) — callers must handle a
// nil order as "not placed" rather than treating it as an error.
func (s *State) CreateOrder(ctx context.Context, req CreateOrderRequest) (*model.Order, error) {
	if s.isLockedDown() {
		return nil, errs.New("mirror.CreateOrder", errs.CodeLockdown)
	}
	if s.cfg.ForceAutoCancel && req.AutoCancel <= 0 {
		return nil, errs.New("mirror.CreateOrder", errs.CodeInput,
			errs.WithMessage("forceAutoCancel requires a non-zero AutoCancel"))
	}

	ticker, haveTicker := s.Ticker(req.Market)
	price := req.Price
	if price == nil {
		if !haveTicker {
			return nil, errs.New("mirror.CreateOrder", errs.CodeInput, errs.WithMessage("no ticker to default price from"))
		}
		var p decimal.Decimal
		if req.Side == model.OrderSideBuy {
			p = decimal.NewFromFloat(ticker.Bid)
		} else {
			p = decimal.NewFromFloat(ticker.Ask)
		}
		price = &p
	}

	sticky := req.Sticky
	if req.Type == model.OrderTypeMarket {
		sticky = false
		if !haveTicker {
			return nil, errs.New("mirror.CreateOrder", errs.CodeInput, errs.WithMessage("no ticker to price market order"))
		}
		p := decimal.NewFromFloat(ticker.Ask)
		if req.Side == model.OrderSideSell {
			p = decimal.NewFromFloat(ticker.Bid)
		}
		price = &p
	}

	fillPct := req.AutoCancelAtFillPercentage
	if fillPct <= 0 {
		fillPct = 1
	}
	priceLevel := req.AutoCancelAtPriceLevel
	if priceLevel == nil {
		// Buy defaults to a price level no ask will ever reach; Sell
		// defaults to zero, which no bid will ever drop below. Both act
		// as "disabled" for the autoCancelOrders price-crossing check.
		v := noAutoCancelPriceLevel
		if req.Side == model.OrderSideSell {
			v = decimal.Zero
		}
		priceLevel = &v
	}

	if req.Amount.LessThanOrEqual(decimal.Zero) || price.LessThanOrEqual(decimal.Zero) {
		return nil, errs.New("mirror.CreateOrder", errs.CodeInput, errs.WithMessage("amount and price must be positive"))
	}

	base, quote := splitMarket(req.Market)

	s.mu.Lock()
	amount, fee := s.settleReservation(req, *price, base, quote)
	s.mu.Unlock()

	order := &model.Order{
		ID:                         generateOrderID(),
		Created:                    model.NowMs(),
		Market:                     req.Market,
		Type:                       req.Type,
		Side:                       req.Side,
		Price:                      *price,
		Amount:                     amount,
		Fee:                        fee,
		Status:                     model.OrderStatusOpen,
		Remaining:                  amount,
		AutoCancel:                 req.AutoCancel,
		AutoCancelAtFillPercentage: fillPct,
		AutoCancelAtPriceLevel:     *priceLevel,
		Sticky:                     sticky,
	}

	if !s.cfg.Simulation {
		remoteID, err := s.client.CreateOrder(ctx, exchange.CreateOrderParams{
			Market: req.Market,
			Type:   req.Type,
			Side:   req.Side,
			Amount: amount,
			Price:  price,
		})
		if err != nil {
			s.log.Error("mirror: live createOrder failed", observability.Field{Key: "market", Value: req.Market}, observability.Field{Key: "error", Value: err.Error()})
			return nil, nil
		}
		order.ID = remoteID
	}

	s.mu.Lock()
	if order.Type == model.OrderTypeMarket {
		order.Status = model.OrderStatusClosed
		order.Filled = order.Amount
		order.Remaining = decimal.Zero
		order.TimestampClosed = model.NowMs()
		s.putClosed(req.Market, order)
	} else {
		s.putOpen(req.Market, order)
	}
	s.mu.Unlock()

	evtType := EventLimitOrderCreated
	if order.Type == model.OrderTypeMarket {
		evtType = EventMarketOrderCreated
	}
	s.emit(Event{Type: evtType, Market: req.Market, Order: order})
	return order, nil
}

// settleReservation applies the balance-accounting rules for a new order
// and returns the clamped amount and the fee that will apply to its fill.
// Caller holds s.mu.
func (s *State) settleReservation(req CreateOrderRequest, price decimal.Decimal, base, quote string) (amount, fee decimal.Decimal) {
	fee = s.cfg.Fee
	if req.Side == model.OrderSideBuy {
		quoteFree := s.balanceLocked(quote).ExposedFree()
		notional := decimal.Min(price.Mul(req.Amount), quoteFree)
		amount = decimal.Zero
		if price.IsPositive() {
			amount = notional.Div(price)
		}
		if req.Type == model.OrderTypeLimit {
			s.reserve(quote, amount.Mul(price))
			return amount, fee
		}
		s.withdraw(quote, amount.Mul(price))
		credited := amount.Mul(decimal.NewFromFloat(1 - simulatedSlippage)).Mul(decimal.NewFromFloat(1).Sub(fee))
		s.deposit(base, credited)
		return amount, fee
	}

	baseFree := s.balanceLocked(base).ExposedFree()
	amount = decimal.Min(baseFree, req.Amount)
	if req.Type == model.OrderTypeLimit {
		s.reserve(base, amount)
		return amount, fee
	}
	s.withdraw(base, amount)
	credited := amount.Mul(price).Mul(decimal.NewFromFloat(1 - simulatedSlippage)).Mul(decimal.NewFromFloat(1).Sub(fee))
	s.deposit(quote, credited)
	return amount, fee
}

func (s *State) putOpen(market string, o *model.Order) {
	if s.openOrders[market] == nil {
		s.openOrders[market] = make(map[string]*model.Order)
	}
	s.openOrders[market][o.ID] = o
}

func (s *State) putClosed(market string, o *model.Order) {
	if s.closedOrders[market] == nil {
		s.closedOrders[market] = make(map[string]*model.Order)
	}
	s.closedOrders[market][o.ID] = o
}

func (s *State) putCancelled(market string, o *model.Order) {
	if s.cancelledOrders[market] == nil {
		s.cancelledOrders[market] = make(map[string]*model.Order)
	}
	s.cancelledOrders[market][o.ID] = o
}

func splitMarket(market string) (base, quote string) {
	for i := 0; i < len(market); i++ {
		if market[i] == '/' {
			return market[:i], market[i+1:]
		}
	}
	return market, ""
}
