package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTradeEvent(t *testing.T) {
	frame := []byte(`{"e":"trade","E":1700000000123,"s":"BTCUSDT","t":12345,` +
		`"p":"42123.45000000","q":"0.00210000","T":1700000000120,"m":true,"M":true}`)

	ev, err := parseTradeEvent(frame)
	require.NoError(t, err)
	require.NoError(t, ev.validate())

	assert.Equal(t, "trade", ev.EventType)
	assert.Equal(t, "BTCUSDT", ev.Symbol)
	assert.Equal(t, "42123.45", ev.Price.String())
	assert.Equal(t, int64(1700000000120), ev.TradeTime)

	s := ev.sample()
	assert.InDelta(t, 1700000000.120, s.Timestamp, 1e-6)
	assert.InDelta(t, 42123.45, s.Price, 1e-6)
}

func TestParseTradeEventNumericPrice(t *testing.T) {
	ev, err := parseTradeEvent([]byte(`{"e":"trade","s":"ETHUSDT","p":2500.5,"T":1700000000000}`))
	require.NoError(t, err)
	require.NoError(t, ev.validate())
	assert.Equal(t, "2500.5", ev.Price.String())
}

func TestParseTradeEventMalformed(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{name: "bad json", frame: `{"e":"trade","s":"BTCUSDT",`},
		{name: "not an object", frame: `[1,2,3]`},
		{name: "non-numeric price", frame: `{"e":"trade","s":"BTCUSDT","p":"not-a-price","T":1700000000000}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTradeEvent([]byte(tt.frame))
			require.Error(t, err)
		})
	}
}

func TestTradeEventValidate(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{name: "missing price", frame: `{"e":"trade","s":"BTCUSDT","T":1700000000000}`},
		{name: "null price", frame: `{"e":"trade","s":"BTCUSDT","p":null,"T":1700000000000}`},
		{name: "zero price", frame: `{"e":"trade","s":"BTCUSDT","p":"0","T":1700000000000}`},
		{name: "negative price", frame: `{"e":"trade","s":"BTCUSDT","p":"-1.5","T":1700000000000}`},
		{name: "missing trade time", frame: `{"e":"trade","s":"BTCUSDT","p":"1.5"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := parseTradeEvent([]byte(tt.frame))
			require.NoError(t, err)
			require.Error(t, ev.validate())
		})
	}
}

func TestParseTradeEventSkipsUnknownFields(t *testing.T) {
	frame := []byte(`{"e":"trade","s":"BTCUSDT","extra":{"nested":[1,2,{"x":"y"}]},` +
		`"p":"99.9","T":1700000000000,"another":"field"}`)

	ev, err := parseTradeEvent(frame)
	require.NoError(t, err)
	require.NoError(t, ev.validate())
	assert.Equal(t, "99.9", ev.Price.String())
}
