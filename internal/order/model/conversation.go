package model

import (
	"context"
	"time"
)

type CustomerTier string

const (
	TierNew       CustomerTier = "NEW"
	TierReturning CustomerTier = "RETURNING"
	TierVIP       CustomerTier = "VIP"
	TierDormant   CustomerTier = "DORMANT"
)

const (
	vipOrderCount   = 10
	returningWindow = 30 * 24 * time.Hour
)

type CustomerProfile struct {
	ConversationID string     `json:"conversation_id"`
	Name           string     `json:"name,omitempty"`
	OrderCount     int        `json:"order_count"`
	LastOrderAt    *time.Time `json:"last_order_at,omitempty"`
}

func (p *CustomerProfile) Tier(now time.Time) CustomerTier {
	switch {
	case p == nil || p.OrderCount == 0:
		return TierNew
	case p.OrderCount >= vipOrderCount:
		return TierVIP
	case p.LastOrderAt != nil && now.Sub(*p.LastOrderAt) <= returningWindow:
		return TierReturning
	default:
		return TierDormant
	}
}

// ConversationContext is the per-turn view the engine works on.
type ConversationContext struct {
	ConversationID string
	Draft          *OrderDraft
	Tier           CustomerTier
	Profile        *CustomerProfile
	LastActivityAt time.Time
	// SessionRestarted is set when the idle timeout discarded the previous draft.
	SessionRestarted bool
}

type CustomerDirectory interface {
	// Profile returns nil, nil for unknown customers.
	Profile(ctx context.Context, conversationID string) (*CustomerProfile, error)
	RecordOrder(ctx context.Context, conversationID string, order ConfirmedOrder) error
}

type NotificationSink interface {
	OrderConfirmed(ctx context.Context, order ConfirmedOrder) error
	HandoffRequested(ctx context.Context, conversationID, message string) error
}

type RateLimiter interface {
	// Allow counts the message and reports whether it is within limit per hour.
	Allow(ctx context.Context, conversationID string, limit int) (bool, error)
}
