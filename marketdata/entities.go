package marketdata

import (
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Ticker24h is one row of the exchange's rolling 24 hour ticker
// statistics. The exchange encodes all numeric fields as strings, which
// decimal.Decimal parses directly.
type Ticker24h struct {
	Symbol             string          `json:"symbol"`
	PriceChange        decimal.Decimal `json:"priceChange"`
	PriceChangePercent decimal.Decimal `json:"priceChangePercent"`
	WeightedAvgPrice   decimal.Decimal `json:"weightedAvgPrice"`
	PrevClosePrice     decimal.Decimal `json:"prevClosePrice"`
	LastPrice          decimal.Decimal `json:"lastPrice"`
	OpenPrice          decimal.Decimal `json:"openPrice"`
	HighPrice          decimal.Decimal `json:"highPrice"`
	LowPrice           decimal.Decimal `json:"lowPrice"`
	Volume             decimal.Decimal `json:"volume"`
	QuoteVolume        decimal.Decimal `json:"quoteVolume"`
	OpenTime           int64           `json:"openTime"`
	CloseTime          int64           `json:"closeTime"`
	Count              int64           `json:"count"`
}

// TopSymbol is one ranked row of the tradable-pair universe returned by
// GetTopSymbols, ordered by base volume.
type TopSymbol struct {
	Rank               int             `json:"rank"`
	Symbol             string          `json:"symbol"`
	Price              decimal.Decimal `json:"price"`
	PriceChangePercent decimal.Decimal `json:"priceChangePercent"`
	Volume             decimal.Decimal `json:"volume"`
	QuoteVolume        decimal.Decimal `json:"quoteVolume"`
	High24h            decimal.Decimal `json:"high24h"`
	Low24h             decimal.Decimal `json:"low24h"`
	Volatility         decimal.Decimal `json:"volatility"`
	Trades             int64           `json:"trades"`
}

// SymbolPrice is the current price of a single trading pair.
type SymbolPrice struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// SymbolInfo describes a trading pair's assets and trading status.
type SymbolInfo struct {
	Symbol             string `json:"symbol"`
	Status             string `json:"status"`
	BaseAsset          string `json:"baseAsset"`
	BaseAssetPrecision int    `json:"baseAssetPrecision"`
	QuoteAsset         string `json:"quoteAsset"`
	QuotePrecision     int    `json:"quotePrecision"`
}

type exchangeInfoResponse struct {
	Symbols []SymbolInfo `json:"symbols"`
}

// Kline is one daily candle. The exchange encodes klines as positional
// JSON arrays, hence the custom unmarshaler.
type Kline struct {
	Date        civil.Date
	Open        decimal.Decimal
	High        decimal.Decimal
	Low         decimal.Decimal
	Close       decimal.Decimal
	Volume      decimal.Decimal
	QuoteVolume decimal.Decimal
	Trades      int64
}

func (k *Kline) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) < 9 {
		return fmt.Errorf("kline: expected at least 9 fields, got %d", len(raw))
	}
	var openTime int64
	if err := json.Unmarshal(raw[0], &openTime); err != nil {
		return fmt.Errorf("kline open time: %w", err)
	}
	k.Date = civil.DateOf(time.UnixMilli(openTime).UTC())
	for i, dst := range []*decimal.Decimal{&k.Open, &k.High, &k.Low, &k.Close, &k.Volume} {
		if err := json.Unmarshal(raw[i+1], dst); err != nil {
			return fmt.Errorf("kline field %d: %w", i+1, err)
		}
	}
	if err := json.Unmarshal(raw[7], &k.QuoteVolume); err != nil {
		return fmt.Errorf("kline quote volume: %w", err)
	}
	if err := json.Unmarshal(raw[8], &k.Trades); err != nil {
		return fmt.Errorf("kline trade count: %w", err)
	}
	return nil
}

// APIError is an error response returned by the exchange API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d, code %d)", e.Message, e.StatusCode, e.Code)
}
