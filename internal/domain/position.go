package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the server's synthetic memory of a trade it believes the
// downstream terminal still holds open. It is never told when the real trade
// closes, so positions are immutable and forgotten purely by age.
type Position struct {
	Entry     decimal.Decimal
	Direction string // "BUY" or "SELL"
	CreatedAt time.Time
}

// Expired reports whether the position has aged past maxAge at the given
// moment. A zero CreatedAt can never expire: when the recording time is
// unknown the position is conservatively treated as still relevant.
func (p Position) Expired(now time.Time, maxAge time.Duration) bool {
	if p.CreatedAt.IsZero() {
		return false
	}
	return now.Sub(p.CreatedAt) >= maxAge
}
