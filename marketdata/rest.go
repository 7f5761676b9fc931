package marketdata

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ClientOpts contains options for the market data client
type ClientOpts struct {
	// BaseURL overrides the exchange REST endpoint. Defaults to the
	// BINANCE_API_URL environment variable, then the public endpoint.
	BaseURL string
	Timeout time.Duration
	// RetryLimit is the total number of attempts per request
	RetryLimit int
	RetryDelay time.Duration
	UserAgent  string
}

// Client is the Binance spot market data client.
type Client interface {
	GetTickers24h() ([]Ticker24h, error)
	GetTopSymbols(params GetTopSymbolsParams) ([]TopSymbol, error)
	GetSymbolPrice(symbol string) (decimal.Decimal, error)
	GetSymbolPrices(symbols []string) (map[string]decimal.Decimal, error)
	GetSymbolInfo(symbol string) (*SymbolInfo, error)
	GetDailyKlines(symbol string, start, end civil.Date) ([]Kline, error)
}

type client struct {
	opts ClientOpts

	do func(c *client, req *http.Request) (*http.Response, error)
}

// NewClient creates a new market data client using the given opts.
func NewClient(opts ClientOpts) Client {
	if opts.BaseURL == "" {
		if s := os.Getenv("BINANCE_API_URL"); s != "" {
			opts.BaseURL = s
		} else {
			opts.BaseURL = "https://api.binance.com"
		}
	}
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RetryLimit == 0 {
		opts.RetryLimit = 3
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "cryptodash-go/" + clientVersion
	}
	return &client{opts: opts, do: defaultDo}
}

// DefaultClient uses options from environment variables, or defaults.
var DefaultClient = NewClient(ClientOpts{})

func defaultDo(c *client, req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.opts.UserAgent)

	httpClient := &http.Client{Timeout: c.opts.Timeout}
	var resp *http.Response
	var err error
	for attempt := 1; ; attempt++ {
		resp, err = httpClient.Do(req)
		if err == nil && !shouldRetry(resp.StatusCode) {
			break
		}
		if attempt >= c.opts.RetryLimit {
			break
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(c.opts.RetryDelay)
	}
	if err != nil {
		return nil, err
	}
	if err := verify(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// shouldRetry reports whether a response status is worth another attempt:
// rate limiting or a server side failure.
func shouldRetry(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= http.StatusInternalServerError
}

func verify(resp *http.Response) error {
	if resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	defer resp.Body.Close()
	apiErr := APIError{StatusCode: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return &apiErr
}

func (c *client) get(path string, query url.Values, dst interface{}) error {
	u := c.opts.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(c, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(dst)
}

// GetTickers24h returns the rolling 24 hour statistics for every pair on
// the exchange.
func (c *client) GetTickers24h() ([]Ticker24h, error) {
	var tickers []Ticker24h
	if err := c.get("/api/v3/ticker/24hr", nil, &tickers); err != nil {
		return nil, err
	}
	return tickers, nil
}

// GetTopSymbolsParams contains optional parameters for ranking pairs.
type GetTopSymbolsParams struct {
	// Limit caps the number of rows returned. Defaults to 50.
	Limit int
	// QuoteAsset selects the quote currency of the universe. Defaults
	// to USDT.
	QuoteAsset string
}

// Pairs between USDT and another dollar stablecoin carry no price
// signal and are excluded from the ranked universe.
var excludedStablePairs = map[string]struct{}{
	"USDCUSDT": {},
	"BUSDUSDT": {},
	"TUSDUSDT": {},
	"USTCUSDT": {},
}

// GetTopSymbols returns the most actively traded pairs quoted in the
// given asset, ranked by base volume.
func (c *client) GetTopSymbols(params GetTopSymbolsParams) ([]TopSymbol, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}
	quote := strings.ToUpper(params.QuoteAsset)
	if quote == "" {
		quote = "USDT"
	}

	tickers, err := c.GetTickers24h()
	if err != nil {
		return nil, err
	}

	rows := make([]TopSymbol, 0, limit)
	for _, t := range tickers {
		if !strings.HasSuffix(t.Symbol, quote) {
			continue
		}
		if _, ok := excludedStablePairs[t.Symbol]; ok {
			continue
		}
		if !t.Volume.IsPositive() || !t.LastPrice.IsPositive() {
			continue
		}
		row := TopSymbol{
			Symbol:             t.Symbol,
			Price:              t.LastPrice,
			PriceChangePercent: t.PriceChangePercent,
			Volume:             t.Volume,
			QuoteVolume:        t.QuoteVolume,
			High24h:            t.HighPrice,
			Low24h:             t.LowPrice,
			Trades:             t.Count,
		}
		if t.LowPrice.IsPositive() {
			row.Volatility = t.HighPrice.Sub(t.LowPrice).
				Div(t.LowPrice).
				Mul(decimal.NewFromInt(100))
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Volume.GreaterThan(rows[j].Volume)
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}

// GetSymbolPrice returns the current price of a single pair.
func (c *client) GetSymbolPrice(symbol string) (decimal.Decimal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return decimal.Decimal{}, fmt.Errorf("symbol is required")
	}
	q := url.Values{"symbol": []string{symbol}}
	var sp SymbolPrice
	if err := c.get("/api/v3/ticker/price", q, &sp); err != nil {
		return decimal.Decimal{}, err
	}
	if !sp.Price.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("no valid price for %s", symbol)
	}
	return sp.Price, nil
}

// GetSymbolPrices returns current prices for the given pairs in one
// request. Pairs with no valid price are absent from the result.
func (c *client) GetSymbolPrices(symbols []string) (map[string]decimal.Decimal, error) {
	wanted := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		wanted[strings.ToUpper(strings.TrimSpace(s))] = struct{}{}
	}

	var all []SymbolPrice
	if err := c.get("/api/v3/ticker/price", nil, &all); err != nil {
		return nil, err
	}

	prices := make(map[string]decimal.Decimal, len(wanted))
	for _, sp := range all {
		if _, ok := wanted[sp.Symbol]; !ok {
			continue
		}
		if sp.Price.IsPositive() {
			prices[sp.Symbol] = sp.Price
		}
	}
	return prices, nil
}

// GetSymbolInfo returns the exchange metadata for a single pair.
func (c *client) GetSymbolInfo(symbol string) (*SymbolInfo, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	q := url.Values{"symbol": []string{symbol}}
	var resp exchangeInfoResponse
	if err := c.get("/api/v3/exchangeInfo", q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Symbols) == 0 {
		return nil, fmt.Errorf("symbol %s not found", symbol)
	}
	return &resp.Symbols[0], nil
}

// GetDailyKlines returns daily candles for the pair over the inclusive
// date range.
func (c *client) GetDailyKlines(symbol string, start, end civil.Date) ([]Kline, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if !start.IsValid() || !end.IsValid() || end.Before(start) {
		return nil, fmt.Errorf("invalid date range %s..%s", start, end)
	}
	startMillis := start.In(time.UTC).UnixMilli()
	endMillis := end.AddDays(1).In(time.UTC).Add(-time.Millisecond).UnixMilli()

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", "1d")
	q.Set("startTime", strconv.FormatInt(startMillis, 10))
	q.Set("endTime", strconv.FormatInt(endMillis, 10))
	q.Set("limit", "1000")

	var klines []Kline
	if err := c.get("/api/v3/klines", q, &klines); err != nil {
		return nil, err
	}
	return klines, nil
}
