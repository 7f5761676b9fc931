package marketdata

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *client {
	return NewClient(ClientOpts{}).(*client)
}

func mockResp(body string) func(c *client, req *http.Request) (*http.Response, error) {
	return func(c *client, req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
	}
}

func mockErrResp(statusCode int, body string) func(c *client, req *http.Request) (*http.Response, error) {
	return func(c *client, req *http.Request) (*http.Response, error) {
		resp := &http.Response{
			StatusCode: statusCode,
			Body:       io.NopCloser(strings.NewReader(body)),
		}
		return nil, verify(resp)
	}
}

func ticker(symbol, last, vol, high, low, changePct string, count int64) string {
	return fmt.Sprintf(`{"symbol":%q,"lastPrice":%q,"volume":%q,"quoteVolume":"1000",`+
		`"highPrice":%q,"lowPrice":%q,"priceChangePercent":%q,"count":%d}`,
		symbol, last, vol, high, low, changePct, count)
}

func TestGetTopSymbols(t *testing.T) {
	c := testClient()
	c.do = mockResp("[" + strings.Join([]string{
		ticker("BTCUSDT", "42000", "100", "43000", "41000", "1.5", 900),
		ticker("ETHUSDT", "2500", "500", "2600", "2400", "-0.5", 800),
		ticker("BTCEUR", "39000", "999", "40000", "38000", "1.0", 10),     // wrong quote
		ticker("USDCUSDT", "1.0", "99999", "1.01", "0.99", "0.0", 5),      // stablecoin pair
		ticker("DEADUSDT", "0.00", "1000", "0", "0", "0.0", 0),            // no valid price
		ticker("IDLEUSDT", "3.5", "0", "3.6", "3.4", "0.1", 1),            // no volume
		ticker("SOLUSDT", "150", "300", "160", "140", "4.2", 700),
	}, ",") + "]")

	rows, err := c.GetTopSymbols(GetTopSymbolsParams{})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// ranked by base volume, descending
	assert.Equal(t, "ETHUSDT", rows[0].Symbol)
	assert.Equal(t, "SOLUSDT", rows[1].Symbol)
	assert.Equal(t, "BTCUSDT", rows[2].Symbol)
	for i, row := range rows {
		assert.Equal(t, i+1, row.Rank)
	}

	// volatility = (high - low) / low * 100
	btc := rows[2]
	vol, _ := btc.Volatility.Float64()
	assert.InDelta(t, (43000.0-41000.0)/41000.0*100, vol, 1e-9)
}

func TestGetTopSymbolsLimit(t *testing.T) {
	c := testClient()
	var tickers []string
	for i := 0; i < 10; i++ {
		tickers = append(tickers, ticker(fmt.Sprintf("COIN%dUSDT", i),
			"1.0", fmt.Sprintf("%d", 100+i), "1.1", "0.9", "0.0", 1))
	}
	c.do = mockResp("[" + strings.Join(tickers, ",") + "]")

	rows, err := c.GetTopSymbols(GetTopSymbolsParams{Limit: 3})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "COIN9USDT", rows[0].Symbol)
	assert.Equal(t, "COIN8USDT", rows[1].Symbol)
	assert.Equal(t, "COIN7USDT", rows[2].Symbol)
}

func TestGetTopSymbolsQuoteAsset(t *testing.T) {
	c := testClient()
	c.do = mockResp("[" +
		ticker("BTCUSDT", "42000", "100", "43000", "41000", "1.5", 900) + "," +
		ticker("BTCEUR", "39000", "50", "40000", "38000", "1.0", 10) +
		"]")

	rows, err := c.GetTopSymbols(GetTopSymbolsParams{QuoteAsset: "eur"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "BTCEUR", rows[0].Symbol)
}

func TestGetSymbolPrice(t *testing.T) {
	c := testClient()
	c.do = mockResp(`{"symbol":"BTCUSDT","price":"42123.45000000"}`)

	price, err := c.GetSymbolPrice("btcusdt")
	require.NoError(t, err)
	assert.Equal(t, "42123.45", price.String())

	c.do = mockResp(`{"symbol":"BTCUSDT","price":"0.00000000"}`)
	_, err = c.GetSymbolPrice("BTCUSDT")
	require.Error(t, err)

	_, err = c.GetSymbolPrice("  ")
	require.Error(t, err)
}

func TestGetSymbolPrices(t *testing.T) {
	c := testClient()
	c.do = mockResp(`[
		{"symbol":"BTCUSDT","price":"42000"},
		{"symbol":"ETHUSDT","price":"2500"},
		{"symbol":"SOLUSDT","price":"150"},
		{"symbol":"DEADUSDT","price":"0"}
	]`)

	prices, err := c.GetSymbolPrices([]string{"btcusdt", "ETHUSDT", "DEADUSDT", "MISSINGUSDT"})
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, "42000", prices["BTCUSDT"].String())
	assert.Equal(t, "2500", prices["ETHUSDT"].String())
	_, ok := prices["SOLUSDT"]
	assert.False(t, ok, "unrequested pair leaked into result")
}

func TestGetSymbolInfo(t *testing.T) {
	c := testClient()
	c.do = mockResp(`{"symbols":[{"symbol":"BTCUSDT","status":"TRADING",
		"baseAsset":"BTC","baseAssetPrecision":8,"quoteAsset":"USDT","quotePrecision":8}]}`)

	info, err := c.GetSymbolInfo("BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, "BTC", info.BaseAsset)
	assert.Equal(t, "USDT", info.QuoteAsset)
	assert.Equal(t, "TRADING", info.Status)

	c.do = mockResp(`{"symbols":[]}`)
	_, err = c.GetSymbolInfo("NOSUCHUSDT")
	require.Error(t, err)
}

func TestGetDailyKlines(t *testing.T) {
	c := testClient()
	// 2023-11-14T00:00:00Z and the following day, in the exchange's
	// positional array encoding
	c.do = mockResp(`[
		[1699920000000,"36500.1","37000.0","36000.0","36800.5","12345.6",1700006399999,"450000000.1",987654,"6000.0","220000000.0","0"],
		[1700006400000,"36800.5","37500.0","36700.0","37400.0","11000.0",1700092799999,"410000000.0",900000,"5500.0","205000000.0","0"]
	]`)

	start := civil.Date{Year: 2023, Month: 11, Day: 14}
	end := civil.Date{Year: 2023, Month: 11, Day: 15}
	klines, err := c.GetDailyKlines("btcusdt", start, end)
	require.NoError(t, err)
	require.Len(t, klines, 2)

	assert.Equal(t, civil.Date{Year: 2023, Month: 11, Day: 14}, klines[0].Date)
	assert.Equal(t, "36800.5", klines[0].Close.String())
	assert.Equal(t, "450000000.1", klines[0].QuoteVolume.String())
	assert.Equal(t, int64(987654), klines[0].Trades)
	assert.Equal(t, civil.Date{Year: 2023, Month: 11, Day: 15}, klines[1].Date)
}

func TestGetDailyKlinesInvalidRange(t *testing.T) {
	c := testClient()
	c.do = mockResp(`[]`)

	start := civil.Date{Year: 2023, Month: 11, Day: 15}
	end := civil.Date{Year: 2023, Month: 11, Day: 14}
	_, err := c.GetDailyKlines("BTCUSDT", start, end)
	require.Error(t, err)

	_, err = c.GetDailyKlines("BTCUSDT", civil.Date{}, civil.Date{})
	require.Error(t, err)
}

func TestAPIError(t *testing.T) {
	c := testClient()
	c.do = mockErrResp(http.StatusBadRequest, `{"code":-1121,"msg":"Invalid symbol."}`)

	_, err := c.GetSymbolPrice("NOPE")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, -1121, apiErr.Code)
	assert.Equal(t, "Invalid symbol.", apiErr.Message)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestRetryOnRateLimit(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"code":-1003,"msg":"Too many requests."}`)
			return
		}
		fmt.Fprint(w, `{"symbol":"BTCUSDT","price":"42000"}`)
	}))
	defer srv.Close()

	c := NewClient(ClientOpts{
		BaseURL:    srv.URL,
		RetryLimit: 3,
		RetryDelay: time.Millisecond,
	})
	price, err := c.GetSymbolPrice("BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, "42000", price.String())
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestRetryGivesUp(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"code":-1000,"msg":"An unknown error occurred."}`)
	}))
	defer srv.Close()

	c := NewClient(ClientOpts{
		BaseURL:    srv.URL,
		RetryLimit: 3,
		RetryDelay: time.Millisecond,
	})
	_, err := c.GetSymbolPrice("BTCUSDT")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}
