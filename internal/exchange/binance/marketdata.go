package binance

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/coachpo/marketmaker/internal/errs"
	"github.com/coachpo/marketmaker/internal/model"
)

type tickerResponse struct {
	Symbol             string `json:"symbol"`
	BidPrice           string `json:"bidPrice"`
	AskPrice           string `json:"askPrice"`
	LastPrice          string `json:"lastPrice"`
	Volume             string `json:"volume"`
	QuoteVolume        string `json:"quoteVolume"`
	CloseTime          int64  `json:"closeTime"`
}

// FetchTickers returns a point-in-time quote snapshot per market. Binance
// exposes a batch 24hr ticker endpoint, so a single request covers every
// requested market.
func (c *Client) FetchTickers(ctx context.Context, markets []string) (map[string]model.Ticker, error) {
	var resp []tickerResponse
	if err := c.do(ctx, http.MethodGet, "/api/v3/ticker/24hr", nil, false, &resp); err != nil {
		return nil, err
	}
	bySymbol := make(map[string]tickerResponse, len(resp))
	for _, t := range resp {
		bySymbol[t.Symbol] = t
	}
	wanted := make(map[string]bool, len(markets))
	for _, m := range markets {
		wanted[symbolOf(m)] = true
	}
	out := make(map[string]model.Ticker, len(markets))
	for _, m := range markets {
		t, ok := bySymbol[symbolOf(m)]
		if !ok {
			continue
		}
		out[m] = model.Ticker{
			Timestamp:   t.CloseTime,
			Bid:         floatOrZero(t.BidPrice),
			Ask:         floatOrZero(t.AskPrice),
			Last:        floatOrZero(t.LastPrice),
			BaseVolume:  floatOrZero(t.Volume),
			QuoteVolume: floatOrZero(t.QuoteVolume),
		}
	}
	return out, nil
}

type depthResponse struct {
	Bids [][2]string `json:"bids"`
	Asks [][2]string `json:"asks"`
}

// FetchOrderBook returns a depth snapshot per market. Binance's depth
// endpoint is per-symbol, so requested markets fan out concurrently.
func (c *Client) FetchOrderBook(ctx context.Context, markets []string, depth int) (map[string]model.OrderBook, error) {
	if depth <= 0 {
		depth = 20
	}
	var mu sync.Mutex
	out := make(map[string]model.OrderBook, len(markets))
	p := pool.New().WithContext(ctx).WithCancelOnError()
	for _, market := range markets {
		market := market
		p.Go(func(ctx context.Context) error {
			q := url.Values{"symbol": {symbolOf(market)}, "limit": {strconv.Itoa(depth)}}
			var resp depthResponse
			if err := c.do(ctx, http.MethodGet, "/api/v3/depth", q, false, &resp); err != nil {
				return err
			}
			book := model.OrderBook{
				Bids: levelsOf(resp.Bids),
				Asks: levelsOf(resp.Asks),
			}
			mu.Lock()
			out[market] = book
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func levelsOf(raw [][2]string) []model.OrderBookLevel {
	out := make([]model.OrderBookLevel, 0, len(raw))
	for _, lvl := range raw {
		out = append(out, model.OrderBookLevel{
			Price:  parseDecimalOrZero(lvl[0]),
			Amount: parseDecimalOrZero(lvl[1]),
		})
	}
	return out
}

type tradeResponse struct {
	ID       int64  `json:"id"`
	Price    string `json:"price"`
	Qty      string `json:"qty"`
	Time     int64  `json:"time"`
	IsBuyer  bool   `json:"isBuyerMaker"`
}

// FetchTrades returns recent prints per market since the given time (zero
// for venue default), capped at limit (0 for venue default).
func (c *Client) FetchTrades(ctx context.Context, markets []string, since int64, limit int) (map[string][]model.Trade, error) {
	if limit <= 0 {
		limit = 500
	}
	var mu sync.Mutex
	out := make(map[string][]model.Trade, len(markets))
	p := pool.New().WithContext(ctx).WithCancelOnError()
	for _, market := range markets {
		market := market
		p.Go(func(ctx context.Context) error {
			q := url.Values{"symbol": {symbolOf(market)}, "limit": {strconv.Itoa(limit)}}
			var resp []tradeResponse
			if err := c.do(ctx, http.MethodGet, "/api/v3/trades", q, false, &resp); err != nil {
				return err
			}
			trades := make([]model.Trade, 0, len(resp))
			for _, t := range resp {
				if since > 0 && t.Time < since {
					continue
				}
				side := model.OrderSideSell
				if t.IsBuyer {
					side = model.OrderSideBuy
				}
				trades = append(trades, model.Trade{
					Timestamp: t.Time,
					Market:    market,
					Side:      side,
					Price:     parseDecimalOrZero(t.Price),
					Amount:    parseDecimalOrZero(t.Qty),
				})
			}
			mu.Lock()
			out[market] = trades
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchOHLCV returns candles for a market/timeframe. Per the port contract
// it fails soft: rate-limit or unknown-market conditions return (nil, nil)
// rather than propagating an error.
func (c *Client) FetchOHLCV(ctx context.Context, market, timeframe string, since int64, limit int) ([]model.Candle, error) {
	if limit <= 0 {
		limit = 500
	}
	q := url.Values{
		"symbol":   {symbolOf(market)},
		"interval": {timeframe},
		"limit":    {strconv.Itoa(limit)},
	}
	if since > 0 {
		q.Set("startTime", strconv.FormatInt(since, 10))
	}
	var resp [][]any
	if err := c.do(ctx, http.MethodGet, "/api/v3/klines", q, false, &resp); err != nil {
		if errs.Is(err, errs.CodeRateLimited) || errs.Is(err, errs.CodeMarketUnknown) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]model.Candle, 0, len(resp))
	for _, row := range resp {
		if len(row) < 6 {
			continue
		}
		out = append(out, model.Candle{
			Timestamp: int64Of(row[0]),
			Open:      floatOf(row[1]),
			High:      floatOf(row[2]),
			Low:       floatOf(row[3]),
			Close:     floatOf(row[4]),
			Volume:    floatOf(row[5]),
		})
	}
	return out, nil
}

func floatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func floatOf(v any) float64 {
	switch t := v.(type) {
	case string:
		return floatOrZero(t)
	case float64:
		return t
	default:
		return 0
	}
}

func int64Of(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case int64:
		return t
	default:
		return 0
	}
}
