package service

import (
	"sync"
	"time"

	"signal_hub/internal/domain"

	"github.com/shopspring/decimal"
)

// PositionMemory remembers recently opened synthetic positions per
// (accountKey, symbol). The server is never told when a trade actually
// closes, so memory decays on a timer: anything older than maxAge is evicted
// lazily on the next mutation of its bucket. One coarse lock guards the whole
// map; the check-distance-then-record sequence runs as a single critical
// section so two near-simultaneous submissions cannot both be admitted.
type PositionMemory struct {
	mu      sync.Mutex
	buckets map[string][]domain.Position
	maxAge  time.Duration
}

// NewPositionMemory creates an empty memory with the given forgetting window.
func NewPositionMemory(maxAge time.Duration) *PositionMemory {
	return &PositionMemory{
		buckets: make(map[string][]domain.Position),
		maxAge:  maxAge,
	}
}

func bucketKey(accountKey, symbol string) string {
	return accountKey + "_" + symbol
}

// TooClose reports whether the candidate entry lies within threshold of any
// position in the set, and the offending distance when it does. Positions are
// expected to be age-filtered already; ordering is irrelevant.
func TooClose(entry decimal.Decimal, positions []domain.Position, threshold decimal.Decimal) (decimal.Decimal, bool) {
	for _, pos := range positions {
		distance := pos.Entry.Sub(entry).Abs()
		if distance.LessThan(threshold) {
			return distance, true
		}
	}
	return decimal.Decimal{}, false
}

// Admit runs the admission filter against the age-filtered bucket and, when
// the candidate passes and record is set, appends it as a new position. Evicts
// expired positions from the bucket as a side effect, so buckets never grow
// unbounded. Returns an AdmissionError on rejection, leaving the bucket
// otherwise untouched.
func (m *PositionMemory) Admit(accountKey, symbol string, entry decimal.Decimal, direction string, threshold decimal.Decimal, record bool, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := bucketKey(accountKey, symbol)
	recent := m.buckets[key][:0:0]
	for _, pos := range m.buckets[key] {
		if !pos.Expired(now, m.maxAge) {
			recent = append(recent, pos)
		}
	}
	if len(recent) > 0 {
		m.buckets[key] = recent
	} else {
		delete(m.buckets, key)
	}

	if distance, tooClose := TooClose(entry, recent, threshold); tooClose {
		return &domain.AdmissionError{Entry: entry, Distance: distance, Threshold: threshold}
	}

	if record {
		m.buckets[key] = append(recent, domain.Position{
			Entry:     entry,
			Direction: direction,
			CreatedAt: now,
		})
	}
	return nil
}

// Record appends a position unconditionally, evicting expired entries from
// the bucket first.
func (m *PositionMemory) Record(accountKey, symbol string, entry decimal.Decimal, direction string, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := bucketKey(accountKey, symbol)
	recent := m.buckets[key][:0:0]
	for _, pos := range m.buckets[key] {
		if !pos.Expired(now, m.maxAge) {
			recent = append(recent, pos)
		}
	}
	m.buckets[key] = append(recent, domain.Position{
		Entry:     entry,
		Direction: direction,
		CreatedAt: now,
	})
}

// Recent returns the still-relevant positions for a bucket. The read filters
// by age without mutating the stored bucket.
func (m *PositionMemory) Recent(accountKey, symbol string, now time.Time) []domain.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := m.buckets[bucketKey(accountKey, symbol)]
	recent := make([]domain.Position, 0, len(stored))
	for _, pos := range stored {
		if !pos.Expired(now, m.maxAge) {
			recent = append(recent, pos)
		}
	}
	return recent
}
