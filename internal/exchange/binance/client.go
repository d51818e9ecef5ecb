// Package binance implements exchange.Client against the Binance spot REST
// API: one HTTP request per operation, rate-limited and retried the way the
// engine's other exchange adapters are.
package binance

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/coachpo/marketmaker/internal/errs"
)

const defaultBaseURL = "https://api.binance.com"

// Options configures a Client.
type Options struct {
	APIKey     string
	APISecret  string
	BaseURL    string
	HTTPClient *http.Client
	// RequestsPerSecond caps outbound REST calls; Binance's published spot
	// weight limits are far higher, but the mirror only needs to avoid
	// bursting, not saturate the venue.
	RequestsPerSecond float64
}

// Client implements exchange.Client against Binance spot REST endpoints.
type Client struct {
	opts    Options
	http    *http.Client
	limiter *rate.Limiter

	marketsMu sync.RWMutex
	markets   map[string]marketMeta
}

type marketMeta struct {
	symbol      string // Binance's concatenated symbol, e.g. BTCUSDT
	base, quote string

	pricePrecision  int32
	amountPrecision int32
	minAmount       decimal.Decimal
}

// New constructs a Binance REST client.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 10
	}
	return &Client{
		opts:    opts,
		http:    opts.HTTPClient,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		markets: make(map[string]marketMeta),
	}
}

// do executes a rate-limited REST call, retrying transient network and
// rate-limit failures with exponential backoff, and decodes the JSON body
// into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, signed bool, out any) error {
	backoffCfg := backoff.NewExponentialBackOff()
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		err := c.doOnce(ctx, method, path, query, signed, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !errs.Is(err, errs.CodeNetwork) && !errs.Is(err, errs.CodeRateLimited) {
			return err
		}
		sleep := backoffCfg.NextBackOff()
		if sleep == backoff.Stop {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, signed bool, out any) error {
	req, err := c.buildRequest(ctx, method, path, query, signed)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errs.New("binance.do", errs.CodeNetwork, errs.WithCause(err))
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.New("binance.do", errs.CodeNetwork, errs.WithCause(err))
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return errs.New("binance.do", errs.CodeRateLimited,
			errs.WithField("status", strconv.Itoa(resp.StatusCode)))
	case resp.StatusCode >= 500:
		return errs.New("binance.do", errs.CodeNetwork,
			errs.WithField("status", strconv.Itoa(resp.StatusCode)))
	case resp.StatusCode >= 400:
		return errs.New("binance.do", errs.CodeBadResponse,
			errs.WithField("status", strconv.Itoa(resp.StatusCode)),
			errs.WithField("body", string(body)))
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return errs.New("binance.do", errs.CodeBadResponse, errs.WithCause(err))
		}
	}
	return nil
}

func (c *Client) buildRequest(ctx context.Context, method, path string, query url.Values, signed bool) (*http.Request, error) {
	if query == nil {
		query = url.Values{}
	}
	if signed {
		query.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		query.Set("signature", sign(c.opts.APISecret, query.Encode()))
	}
	full := c.opts.BaseURL + path
	var body io.Reader
	if method == http.MethodGet && len(query) > 0 {
		full += "?" + query.Encode()
	} else if len(query) > 0 {
		body = bytes.NewBufferString(query.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, full, body)
	if err != nil {
		return nil, err
	}
	if c.opts.APIKey != "" {
		req.Header.Set("X-MBX-APIKEY", c.opts.APIKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return req, nil
}

func symbolOf(market string) string {
	// model markets are "BASE/QUOTE"; Binance symbols are concatenated.
	for i := 0; i < len(market); i++ {
		if market[i] == '/' {
			return market[:i] + market[i+1:]
		}
	}
	return market
}
