package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPositionExpired(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	maxAge := 8 * time.Hour

	fresh := Position{Entry: decimal.NewFromInt(1900), Direction: OrderBuy, CreatedAt: now.Add(-time.Hour)}
	if fresh.Expired(now, maxAge) {
		t.Error("1h old position must not be expired with 8h max age")
	}

	old := Position{Entry: decimal.NewFromInt(1900), Direction: OrderBuy, CreatedAt: now.Add(-9 * time.Hour)}
	if !old.Expired(now, maxAge) {
		t.Error("9h old position must be expired")
	}

	boundary := Position{CreatedAt: now.Add(-8 * time.Hour)}
	if !boundary.Expired(now, maxAge) {
		t.Error("age exactly maxAge counts as expired")
	}
}

func TestPositionExpired_ZeroTimeIsKept(t *testing.T) {
	// Unknown creation time is conservatively treated as still relevant.
	p := Position{Entry: decimal.NewFromInt(1900), Direction: OrderBuy}
	if p.Expired(time.Now().Add(1000*time.Hour), 8*time.Hour) {
		t.Error("a position without a timestamp must never age out")
	}
}

func TestSubscriberLicensed(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

	cases := []struct {
		name   string
		status string
		end    time.Time
		want   bool
	}{
		{"active within window", StatusActive, now.AddDate(0, 1, 0), true},
		{"trial within window", StatusTrial, now.AddDate(0, 0, 3), true},
		{"active on final day", StatusActive, now.Add(-time.Hour), true}, // same calendar day
		{"active expired", StatusActive, now.AddDate(0, 0, -1), false},
		{"pending activation", StatusPendingActivation, now.AddDate(0, 1, 0), false},
	}

	for _, tc := range cases {
		s := &Subscriber{Status: tc.status, EndDate: tc.end}
		if got := s.Licensed(now); got != tc.want {
			t.Errorf("%s: Licensed = %v, want %v", tc.name, got, tc.want)
		}
	}
}
