package stream

import (
	"bytes"
	"fmt"

	"github.com/mailru/easyjson/jlexer"
	"github.com/shopspring/decimal"
)

const eventTypeTrade = "trade"

// tradeEvent is a single decoded trade frame from the feed. Only the
// fields the client consumes are decoded, everything else is skipped.
type tradeEvent struct {
	EventType string
	Symbol    string
	Price     decimal.Decimal
	TradeTime int64 // milliseconds since epoch

	hasPrice bool
	hasTime  bool
}

// sample converts the event to a buffer sample, with the trade time in
// seconds since epoch.
func (ev *tradeEvent) sample() Sample {
	return Sample{
		Timestamp: float64(ev.TradeTime) / 1000,
		Price:     ev.Price.InexactFloat64(),
	}
}

// parseTradeEvent decodes a raw frame with a hand-rolled jlexer decoder to
// keep the receive path reflection free. The feed sends the price either
// as a decimal string or as a bare number, both are accepted.
func parseTradeEvent(data []byte) (tradeEvent, error) {
	var ev tradeEvent
	in := jlexer.Lexer{Data: data}
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "e":
			ev.EventType = in.String()
		case "s":
			ev.Symbol = in.String()
		case "p":
			raw := bytes.Trim(in.Raw(), `"`)
			if in.Error() != nil {
				break
			}
			p, err := decimal.NewFromString(string(raw))
			if err != nil {
				return ev, fmt.Errorf("non-numeric price %q", raw)
			}
			ev.Price = p
			ev.hasPrice = true
		case "T":
			ev.TradeTime = in.Int64()
			ev.hasTime = true
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	in.Consumed()
	if err := in.Error(); err != nil {
		return ev, err
	}
	return ev, nil
}

// validate checks that a trade event carries a usable price and time.
func (ev *tradeEvent) validate() error {
	if !ev.hasPrice {
		return fmt.Errorf("missing price field")
	}
	if !ev.Price.IsPositive() {
		return fmt.Errorf("non-positive price %s", ev.Price)
	}
	if !ev.hasTime || ev.TradeTime <= 0 {
		return fmt.Errorf("missing trade time")
	}
	return nil
}
