package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order types as they appear on the wire. The broadcast-level OrderType of a
// Signal is the direction (BUY/SELL/WAIT); the specific variant is visible to
// the terminal through which payload fields are filled.
const (
	OrderBuy       = "BUY"
	OrderSell      = "SELL"
	OrderBuyLimit  = "BUY_LIMIT"
	OrderSellLimit = "SELL_LIMIT"
	OrderBuyStop   = "BUY_STOP"
	OrderSellStop  = "SELL_STOP"
	OrderWait      = "WAIT"
)

// WireTimeFormat is the second-precision timestamp format the terminals parse.
const WireTimeFormat = "2006-01-02 15:04:05"

// payloadKeys is the full superset of price fields a terminal may read.
// Every flattened payload carries all of them so the wire shape never changes.
var payloadKeys = []string{
	"BuyEntry", "BuySL", "BuyTP", "SellEntry", "SellSL", "SellTP",
	"BuyStop", "BuyStopSL", "BuyStopTP", "SellStop", "SellStopSL", "SellStopTP",
	"BuyLimit", "BuyLimitSL", "BuyLimitTP", "SellLimit", "SellLimitSL", "SellLimitTP",
}

// Signal is one accepted trading opportunity ready for delivery.
type Signal struct {
	ID        string         `json:"signal_id"`
	OrderType string         `json:"order_type"`
	EmittedAt time.Time      `json:"-"`
	Timestamp string         `json:"timestamp"`
	Payload   map[string]any `json:"signal_json"`
}

// Clone returns an independent copy, so each subscriber slot owns its payload.
func (s Signal) Clone() Signal {
	payload := make(map[string]any, len(s.Payload))
	for k, v := range s.Payload {
		payload[k] = v
	}
	s.Payload = payload
	return s
}

// SignalID derives the content-based identifier: md5 over key, order type and
// the second-precision timestamp. Two submissions for the same key and order
// type within the same second collide; downstream consumers rely on this
// exact shape.
func SignalID(apiKey, orderType string, emittedAt time.Time) string {
	sum := md5.Sum(fmt.Appendf(nil, "%s:%s:%s", apiKey, orderType, emittedAt.Format(WireTimeFormat)))
	return hex.EncodeToString(sum[:])
}

// Ticket is the tagged form of a directional opportunity: one order type and
// its entry/SL/TP triple.
type Ticket struct {
	Type       string
	Entry      decimal.Decimal
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
}

// Flatten serializes the ticket into the fixed field superset the terminals
// expect, leaving every field not belonging to the ticket's type empty.
func (t Ticket) Flatten(symbol string) map[string]any {
	payload := make(map[string]any, len(payloadKeys)+1)
	payload["Symbol"] = symbol
	for _, key := range payloadKeys {
		payload[key] = ""
	}

	var entry, sl, tp string
	switch t.Type {
	case OrderBuy:
		entry, sl, tp = "BuyEntry", "BuySL", "BuyTP"
	case OrderSell:
		entry, sl, tp = "SellEntry", "SellSL", "SellTP"
	case OrderBuyLimit:
		entry, sl, tp = "BuyLimit", "BuyLimitSL", "BuyLimitTP"
	case OrderSellLimit:
		entry, sl, tp = "SellLimit", "SellLimitSL", "SellLimitTP"
	case OrderBuyStop:
		entry, sl, tp = "BuyStop", "BuyStopSL", "BuyStopTP"
	case OrderSellStop:
		entry, sl, tp = "SellStop", "SellStopSL", "SellStopTP"
	default:
		return payload
	}

	payload[entry] = t.Entry.String()
	payload[sl] = t.StopLoss.String()
	payload[tp] = t.TakeProfit.String()
	return payload
}

// EntryPrice extracts the directional entry price from a flattened payload.
// BUY prefers BuyEntry and falls back to BuyStop; SELL mirrors that. A missing
// or unparseable value means there is no resolvable price and the admission
// filter is skipped upstream.
func EntryPrice(direction string, payload map[string]any) (decimal.Decimal, bool) {
	var keys []string
	switch direction {
	case OrderBuy:
		keys = []string{"BuyEntry", "BuyStop"}
	case OrderSell:
		keys = []string{"SellEntry", "SellStop"}
	default:
		return decimal.Decimal{}, false
	}

	for _, key := range keys {
		if price, ok := ParsePrice(payload[key]); ok {
			return price, true
		}
	}
	return decimal.Decimal{}, false
}

// ParsePrice converts a loosely-typed payload value into a price. Payloads
// arrive from JSON, so values may be strings or numbers; anything else, or an
// empty string, is not a price.
func ParsePrice(v any) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case string:
		if val == "" {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(val)
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(val), true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case decimal.Decimal:
		return val, true
	default:
		return decimal.Decimal{}, false
	}
}
