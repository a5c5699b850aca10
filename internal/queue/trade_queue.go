// Package queue implements the human-in-the-loop pending-trade
// approval workflow: signals that require manual sign-off sit here
// with a TTL until approved, rejected, or expired.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/weatherdesk/tradecore/internal/domain"
)

// DefaultPendingTradeTTL mirrors the original system's queue TTL.
const DefaultPendingTradeTTL = 30 * time.Minute

// PendingTrade is a trade signal awaiting human approval.
type PendingTrade struct {
	ID           string
	City         domain.City
	Ticker       string
	BracketLabel string
	Side         domain.Side
	PriceCents   domain.Cents
	Quantity     int
	Status       domain.PendingStatus
	CreatedAt    time.Time
	ExpiresAt    time.Time
	ActedAt      *time.Time
}

// QueueTrade creates a new pending trade with a fresh expiry.
func QueueTrade(now time.Time, city domain.City, ticker, bracketLabel string, side domain.Side, priceCents domain.Cents, quantity int, ttl time.Duration) PendingTrade {
	if ttl <= 0 {
		ttl = DefaultPendingTradeTTL
	}
	return PendingTrade{
		ID:           uuid.NewString(),
		City:         city,
		Ticker:       ticker,
		BracketLabel: bracketLabel,
		Side:         side,
		PriceCents:   priceCents,
		Quantity:     quantity,
		Status:       domain.PendingStatusPending,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
}

// ApproveTrade validates and approves a pending trade: it must be
// found, still PENDING, and not expired. An expired trade is flipped to
// EXPIRED as a side effect and rejected with an error rather than
// silently approved.
func ApproveTrade(trade *PendingTrade, now time.Time) error {
	if trade == nil {
		return domain.NewInputError("pending trade not found", nil)
	}
	if trade.Status != domain.PendingStatusPending {
		return domain.NewInputError("pending trade is not pending", map[string]any{"status": trade.Status})
	}
	if now.After(trade.ExpiresAt) {
		trade.Status = domain.PendingStatusExpired
		trade.ActedAt = &now
		return domain.NewInputError("pending trade has expired", map[string]any{"expires_at": trade.ExpiresAt})
	}
	trade.Status = domain.PendingStatusApproved
	trade.ActedAt = &now
	return nil
}

// RejectTrade validates and rejects a pending trade: it must be found
// and still PENDING.
func RejectTrade(trade *PendingTrade, now time.Time) error {
	if trade == nil {
		return domain.NewInputError("pending trade not found", nil)
	}
	if trade.Status != domain.PendingStatusPending {
		return domain.NewInputError("pending trade is not pending", map[string]any{"status": trade.Status})
	}
	trade.Status = domain.PendingStatusRejected
	trade.ActedAt = &now
	return nil
}

// ExpireStaleTrades flips every still-PENDING trade past its expiry to
// EXPIRED and returns how many were changed.
func ExpireStaleTrades(trades []*PendingTrade, now time.Time) int {
	count := 0
	for _, t := range trades {
		if t.Status == domain.PendingStatusPending && now.After(t.ExpiresAt) {
			t.Status = domain.PendingStatusExpired
			acted := now
			t.ActedAt = &acted
			count++
		}
	}
	return count
}
