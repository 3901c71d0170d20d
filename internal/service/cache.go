package service

import (
	"sync"
	"time"

	"signal_hub/internal/domain"
)

// SignalCache holds the most recently broadcast signal per
// (subscriberKey, symbol). Publishes are last-writer-wins; reads only trust a
// slot within the freshness window and otherwise behave as if nothing was
// ever published. Stale entries are not cleared eagerly, they simply stop
// being visible and get overwritten by the next broadcast.
type SignalCache struct {
	mu        sync.RWMutex
	slots     map[string]domain.Signal
	freshness time.Duration
}

// NewSignalCache creates an empty cache with the given freshness window.
func NewSignalCache(freshness time.Duration) *SignalCache {
	return &SignalCache{
		slots:     make(map[string]domain.Signal),
		freshness: freshness,
	}
}

// Publish overwrites the slot for the subscriber and symbol with its own copy
// of the signal. Each publish is atomic with respect to concurrent reads.
func (c *SignalCache) Publish(subscriberKey, symbol string, sig domain.Signal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.slots[bucketKey(subscriberKey, symbol)] = sig.Clone()
}

// Read returns the stored signal while it is still fresh, or nil when the
// slot is empty or stale.
func (c *SignalCache) Read(subscriberKey, symbol string, now time.Time) *domain.Signal {
	c.mu.RLock()
	defer c.mu.RUnlock()

	sig, ok := c.slots[bucketKey(subscriberKey, symbol)]
	if !ok {
		return nil
	}
	if now.Sub(sig.EmittedAt) >= c.freshness {
		return nil
	}
	out := sig.Clone()
	return &out
}
