package service

import (
	"log/slog"
	"strings"
	"time"

	"signal_hub/internal/domain"

	"github.com/shopspring/decimal"
)

// Oracle answers licensing questions. The broadcaster consults it once per
// fan-out and once per pull; it does not own any licensing logic itself.
type Oracle interface {
	// ValidKey reports whether the key is currently entitled to signals.
	ValidKey(key string, now time.Time) (bool, error)
	// EligibleKeys lists every key currently entitled to receive broadcasts.
	EligibleKeys(now time.Time) ([]string, error)
}

// Submission is one inbound candidate signal from the analysis process.
type Submission struct {
	APIKey    string         // submitter's key, internal key when empty
	Symbol    string         // raw instrument symbol, normalized before use
	Direction string         // BUY, SELL or WAIT
	OrderType string         // specific variant (BUY_LIMIT, …), optional
	Payload   map[string]any // order-type-specific price fields, forwarded verbatim
}

// Broadcaster turns one inbound candidate signal into zero or one accepted
// broadcast, and serves subscriber pulls against the signal cache.
type Broadcaster struct {
	positions   *PositionMemory
	cache       *SignalCache
	oracle      Oracle
	symbols     *domain.SymbolTable
	threshold   decimal.Decimal
	internalKey string
	log         *slog.Logger

	now         func() time.Time
	onBroadcast func(domain.Signal) // optional live-push hook
}

// NewBroadcaster wires the engine to its stores and collaborators.
func NewBroadcaster(positions *PositionMemory, cache *SignalCache, oracle Oracle, symbols *domain.SymbolTable, threshold decimal.Decimal, internalKey string, log *slog.Logger) *Broadcaster {
	return &Broadcaster{
		positions:   positions,
		cache:       cache,
		oracle:      oracle,
		symbols:     symbols,
		threshold:   threshold,
		internalKey: internalKey,
		log:         log,
		now:         time.Now,
	}
}

// SetNotifier registers a hook invoked once per accepted broadcast, after the
// cache fan-out. Used to push signals to live websocket clients.
func (b *Broadcaster) SetNotifier(fn func(domain.Signal)) {
	b.onBroadcast = fn
}

// Submit runs the full acceptance pipeline: symbol normalization, entry
// extraction, admission filter, position recording, and cache fan-out to
// every currently licensed subscriber. Returns the broadcast signal and how
// many subscribers it reached, an AdmissionError on rejection, or a
// StorageError when the licensing lookup fails.
func (b *Broadcaster) Submit(sub Submission) (*domain.Signal, int, error) {
	now := b.now()

	accountKey := sub.APIKey
	if accountKey == "" {
		accountKey = b.internalKey
	}
	symbol := b.symbols.Normalize(sub.Symbol)
	direction := strings.ToUpper(sub.Direction)
	if direction == "" {
		direction = domain.OrderWait
	}
	orderType := strings.ToUpper(sub.OrderType)
	if orderType == "" {
		orderType = direction
	}
	payload := sub.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	// Non-directional signals and signals without a resolvable price skip the
	// admission filter entirely.
	if entry, ok := domain.EntryPrice(direction, payload); ok {
		record := orderType == domain.OrderBuy || orderType == domain.OrderSell
		if err := b.positions.Admit(accountKey, symbol, entry, direction, b.threshold, record, now); err != nil {
			b.log.Warn("signal rejected: entry too close to a remembered open position",
				slog.String("symbol", symbol),
				slog.String("entry", entry.String()))
			return nil, 0, err
		}
	}

	sig := domain.Signal{
		ID:        domain.SignalID(accountKey, orderType, now),
		OrderType: orderType,
		EmittedAt: now,
		Timestamp: now.Format(domain.WireTimeFormat),
		Payload:   payload,
	}

	keys, err := b.oracle.EligibleKeys(now)
	if err != nil {
		return nil, 0, &domain.StorageError{Op: "list eligible subscribers", Err: err}
	}
	for _, key := range keys {
		b.cache.Publish(key, symbol, sig)
	}

	if b.onBroadcast != nil {
		b.onBroadcast(sig.Clone())
	}

	b.log.Info("signal broadcast",
		slog.String("order_type", orderType),
		slog.String("symbol", symbol),
		slog.Int("subscribers", len(keys)))
	return &sig, len(keys), nil
}

// GetSignal serves a subscriber pull. The key is validated against the oracle
// before any cache access; an invalid key is an AuthError. A missing or stale
// slot is not an error, it yields the neutral WAIT payload.
func (b *Broadcaster) GetSignal(apiKey, symbol string) (map[string]any, error) {
	now := b.now()

	valid, err := b.oracle.ValidKey(apiKey, now)
	if err != nil {
		return nil, &domain.StorageError{Op: "validate key", Err: err}
	}
	if !valid {
		return nil, &domain.AuthError{Key: apiKey}
	}

	sig := b.cache.Read(apiKey, b.symbols.Normalize(symbol), now)
	if sig == nil {
		return map[string]any{"order_type": domain.OrderWait}, nil
	}

	response := make(map[string]any, len(sig.Payload)+2)
	for k, v := range sig.Payload {
		response[k] = v
	}
	response["signal_id"] = sig.ID
	response["order_type"] = sig.OrderType
	return response, nil
}
