package binance

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/coachpo/marketmaker/internal/errs"
)

type exchangeInfoResponse struct {
	Symbols []exchangeInfoSymbol `json:"symbols"`
}

type exchangeInfoSymbol struct {
	Symbol     string           `json:"symbol"`
	BaseAsset  string           `json:"baseAsset"`
	QuoteAsset string           `json:"quoteAsset"`
	Status     string           `json:"status"`
	Filters    []exchangeFilter `json:"filters"`
}

type exchangeFilter struct {
	FilterType string `json:"filterType"`
	MinQty     string `json:"minQty"`
	TickSize   string `json:"tickSize"`
	StepSize   string `json:"stepSize"`
}

// LoadMarkets refreshes symbol metadata from /api/v3/exchangeInfo. Callers
// are expected to invoke this on startup and on a 24h periodic refresh.
func (c *Client) LoadMarkets(ctx context.Context) error {
	var resp exchangeInfoResponse
	if err := c.do(ctx, http.MethodGet, "/api/v3/exchangeInfo", nil, false, &resp); err != nil {
		return err
	}
	next := make(map[string]marketMeta, len(resp.Symbols))
	for _, s := range resp.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		meta := marketMeta{
			symbol: s.Symbol,
			base:   s.BaseAsset,
			quote:  s.QuoteAsset,
		}
		for _, f := range s.Filters {
			switch f.FilterType {
			case "LOT_SIZE":
				meta.amountPrecision = precisionOf(f.StepSize)
				meta.minAmount = parseDecimalOrZero(f.MinQty)
			case "PRICE_FILTER":
				meta.pricePrecision = precisionOf(f.TickSize)
			}
		}
		next[s.BaseAsset+"/"+s.QuoteAsset] = meta
	}
	c.marketsMu.Lock()
	c.markets = next
	c.marketsMu.Unlock()
	return nil
}

// GetMarkets lists BASE/QUOTE symbols, optionally filtered to those quoted
// in fiat.
func (c *Client) GetMarkets(ctx context.Context, fiat string) ([]string, error) {
	c.marketsMu.RLock()
	defer c.marketsMu.RUnlock()
	if len(c.markets) == 0 {
		return nil, errs.New("binance.GetMarkets", errs.CodeMarketUnknown,
			errs.WithMessage("markets not loaded; call LoadMarkets first"))
	}
	out := make([]string, 0, len(c.markets))
	for market, meta := range c.markets {
		if fiat != "" && !strings.EqualFold(meta.quote, fiat) {
			continue
		}
		out = append(out, market)
	}
	return out, nil
}

// GetMinDealAmount returns the market's minimum order amount.
func (c *Client) GetMinDealAmount(ctx context.Context, market string) (decimal.Decimal, error) {
	c.marketsMu.RLock()
	meta, ok := c.markets[market]
	c.marketsMu.RUnlock()
	if !ok {
		return decimal.Zero, errs.New("binance.GetMinDealAmount", errs.CodeMarketUnknown,
			errs.WithField("market", market))
	}
	return meta.minAmount, nil
}

func precisionOf(step string) int32 {
	step = strings.TrimRight(step, "0")
	idx := strings.IndexByte(step, '.')
	if idx < 0 {
		return 0
	}
	return int32(len(step) - idx - 1)
}

func parseDecimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
