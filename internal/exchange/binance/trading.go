package binance

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/coachpo/marketmaker/internal/errs"
	"github.com/coachpo/marketmaker/internal/exchange"
	"github.com/coachpo/marketmaker/internal/model"
)

type accountResponse struct {
	Balances []struct {
		Asset  string `json:"asset"`
		Free   string `json:"free"`
		Locked string `json:"locked"`
	} `json:"balances"`
}

// FetchBalance returns free/used balances for every currency the account
// holds.
func (c *Client) FetchBalance(ctx context.Context) (map[string]exchange.BalanceEntry, error) {
	var resp accountResponse
	if err := c.do(ctx, http.MethodGet, "/api/v3/account", nil, true, &resp); err != nil {
		return nil, err
	}
	out := make(map[string]exchange.BalanceEntry, len(resp.Balances))
	for _, b := range resp.Balances {
		out[b.Asset] = exchange.BalanceEntry{
			Free: parseDecimalOrZero(b.Free),
			Used: parseDecimalOrZero(b.Locked),
		}
	}
	return out, nil
}

type openOrderResponse struct {
	OrderID       int64  `json:"orderId"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Price         string `json:"price"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	Time          int64  `json:"time"`
	Status        string `json:"status"`
}

// FetchOpenOrders returns open orders, optionally filtered to one market.
func (c *Client) FetchOpenOrders(ctx context.Context, market string) ([]model.Order, error) {
	q := url.Values{}
	if market != "" {
		q.Set("symbol", symbolOf(market))
	}
	var resp []openOrderResponse
	if err := c.do(ctx, http.MethodGet, "/api/v3/openOrders", q, true, &resp); err != nil {
		return nil, err
	}
	out := make([]model.Order, 0, len(resp))
	for _, o := range resp {
		side := model.OrderSideBuy
		if o.Side == "SELL" {
			side = model.OrderSideSell
		}
		typ := model.OrderTypeLimit
		if o.Type == "MARKET" {
			typ = model.OrderTypeMarket
		}
		amount := parseDecimalOrZero(o.OrigQty)
		filled := parseDecimalOrZero(o.ExecutedQty)
		out = append(out, model.Order{
			ID:        strconv.FormatInt(o.OrderID, 10),
			Created:   o.Time,
			Market:    market,
			Type:      typ,
			Side:      side,
			Price:     parseDecimalOrZero(o.Price),
			Amount:    amount,
			Status:    model.OrderStatusOpen,
			Filled:    filled,
			Remaining: amount.Sub(filled),
		})
	}
	return out, nil
}

type createOrderResponse struct {
	OrderID int64 `json:"orderId"`
}

// CreateOrder submits an order and returns the venue's order ID. Amount and
// price are rounded to the market's precision before submission.
func (c *Client) CreateOrder(ctx context.Context, params exchange.CreateOrderParams) (string, error) {
	c.marketsMu.RLock()
	meta, ok := c.markets[params.Market]
	c.marketsMu.RUnlock()
	if !ok {
		return "", errs.New("binance.CreateOrder", errs.CodeMarketUnknown, errs.WithField("market", params.Market))
	}

	amount := params.Amount.Round(meta.amountPrecision)
	q := url.Values{
		"symbol":   {meta.symbol},
		"side":     {sideOf(params.Side)},
		"type":     {typeOf(params.Type)},
		"quantity": {amount.String()},
	}
	if params.Type == model.OrderTypeLimit {
		if params.Price == nil {
			return "", errs.New("binance.CreateOrder", errs.CodeInput, errs.WithMessage("limit order requires a price"))
		}
		price := params.Price.Round(meta.pricePrecision)
		q.Set("price", price.String())
		q.Set("timeInForce", "GTC")
	}

	var resp createOrderResponse
	if err := c.do(ctx, http.MethodPost, "/api/v3/order", q, true, &resp); err != nil {
		return "", err
	}
	return strconv.FormatInt(resp.OrderID, 10), nil
}

// CancelOrder cancels a previously submitted order.
func (c *Client) CancelOrder(ctx context.Context, params exchange.CancelOrderParams) error {
	q := url.Values{
		"symbol":  {symbolOf(params.Market)},
		"orderId": {params.ID},
	}
	return c.do(ctx, http.MethodDelete, "/api/v3/order", q, true, nil)
}

func sideOf(side model.OrderSide) string {
	if side == model.OrderSideSell {
		return "SELL"
	}
	return "BUY"
}

func typeOf(t model.OrderType) string {
	if t == model.OrderTypeMarket {
		return "MARKET"
	}
	return "LIMIT"
}
