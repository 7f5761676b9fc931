package marketdata

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/cinar/indicator"
)

// IndicatorParams selects the daily candle range an indicator is
// computed over.
type IndicatorParams struct {
	Start civil.Date
	End   civil.Date
}

// TechnicalIndicators computes indicator series over a pair's daily
// closing prices. Each series is aligned with the candles of the
// requested range, oldest first.
type TechnicalIndicators interface {
	SMA(symbol string, period int, params IndicatorParams) ([]float64, error)
	EMA(symbol string, period int, params IndicatorParams) ([]float64, error)
	RSI(symbol string, params IndicatorParams) ([]float64, error)
}

// IndicatorsOpts contains options for NewIndicators.
type IndicatorsOpts struct {
	// Client supplies the daily candles. Defaults to DefaultClient.
	Client Client
}

type indicators struct {
	getDailyKlines func(symbol string, start, end civil.Date) ([]Kline, error)
}

// NewIndicators creates a TechnicalIndicators using the given opts.
func NewIndicators(opts IndicatorsOpts) TechnicalIndicators {
	c := opts.Client
	if c == nil {
		c = DefaultClient
	}
	return &indicators{getDailyKlines: c.GetDailyKlines}
}

func (i *indicators) closes(symbol string, params IndicatorParams) ([]float64, error) {
	klines, err := i.getDailyKlines(symbol, params.Start, params.End)
	if err != nil {
		return nil, err
	}
	closes := make([]float64, len(klines))
	for j, k := range klines {
		closes[j] = k.Close.InexactFloat64()
	}
	return closes, nil
}

func (i *indicators) SMA(symbol string, period int, params IndicatorParams) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}
	closes, err := i.closes(symbol, params)
	if err != nil {
		return nil, err
	}
	return indicator.Sma(period, closes), nil
}

func (i *indicators) EMA(symbol string, period int, params IndicatorParams) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}
	closes, err := i.closes(symbol, params)
	if err != nil {
		return nil, err
	}
	return indicator.Ema(period, closes), nil
}

func (i *indicators) RSI(symbol string, params IndicatorParams) ([]float64, error) {
	closes, err := i.closes(symbol, params)
	if err != nil {
		return nil, err
	}
	_, rsi := indicator.Rsi(closes)
	return rsi, nil
}
