package model

import (
	"context"
	"math"
	"time"
)

type OrderLineItem struct {
	ItemID     string  `json:"item_id"`
	ItemName   string  `json:"item_name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	// QuantityPending marks a line whose quantity was defaulted; it blocks confirmation.
	QuantityPending bool `json:"quantity_pending,omitempty"`
}

func (l OrderLineItem) Subtotal() float64 {
	return RoundMoney(float64(l.Quantity) * l.UnitPrice)
}

// NewLine snapshots the menu item into a line.
func NewLine(it MenuItem, quantity int, confidence float64) OrderLineItem {
	return OrderLineItem{
		ItemID:     it.ID,
		ItemName:   it.Name,
		Quantity:   quantity,
		UnitPrice:  it.Price,
		Category:   it.Category,
		Confidence: confidence,
	}
}

// LineAction says how incoming lines merge into a draft.
type LineAction string

const (
	LineAdd            LineAction = "ADD"
	LineReplaceAll     LineAction = "REPLACE_ALL"
	LineChangeQuantity LineAction = "CHANGE_QUANTITY"
)

type PendingAction string

const (
	PendingNone            PendingAction = "NONE"
	PendingReplaceProposed PendingAction = "REPLACE_PROPOSED"
	PendingRemoveProposed  PendingAction = "REMOVE_PROPOSED"
)

type OrderDraft struct {
	ConversationID string          `json:"conversation_id"`
	Lines          []OrderLineItem `json:"lines"`
	PendingAction  PendingAction   `json:"pending_action,omitempty"`
	ProposedLines  []OrderLineItem `json:"proposed_lines,omitempty"`
	// LastItemID is the most recently added item, used for "2 más" style replies.
	LastItemID     string    `json:"last_item_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

func NewDraft(conversationID string, now time.Time) *OrderDraft {
	return &OrderDraft{
		ConversationID: conversationID,
		PendingAction:  PendingNone,
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// Clone returns a deep copy; the engine mutates clones and persists them once per turn.
func (d *OrderDraft) Clone() *OrderDraft {
	if d == nil {
		return nil
	}
	c := *d
	c.Lines = append([]OrderLineItem(nil), d.Lines...)
	c.ProposedLines = append([]OrderLineItem(nil), d.ProposedLines...)
	return &c
}

func (d *OrderDraft) Line(itemID string) (OrderLineItem, bool) {
	if d == nil {
		return OrderLineItem{}, false
	}
	for _, l := range d.Lines {
		if l.ItemID == itemID {
			return l, true
		}
	}
	return OrderLineItem{}, false
}

func (d *OrderDraft) IsEmpty() bool {
	return d == nil || len(d.Lines) == 0
}

func (d *OrderDraft) HasPending() bool {
	return d != nil && d.PendingAction != "" && d.PendingAction != PendingNone
}

func (d *OrderDraft) Total() float64 {
	if d == nil {
		return 0
	}
	return LinesTotal(d.Lines)
}

func (d *OrderDraft) ItemCount() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, l := range d.Lines {
		n += l.Quantity
	}
	return n
}

func LinesTotal(lines []OrderLineItem) float64 {
	total := 0.0
	for _, l := range lines {
		total += float64(l.Quantity) * l.UnitPrice
	}
	return RoundMoney(total)
}

func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

type ConfirmedOrder struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	Lines          []OrderLineItem `json:"lines"`
	Total          float64         `json:"total"`
	CreatedAt      time.Time       `json:"created_at"`
}

type DraftStore interface {
	// Get returns nil, nil when the conversation has no draft.
	Get(ctx context.Context, conversationID string) (*OrderDraft, error)
	Save(ctx context.Context, conversationID string, draft *OrderDraft) error
	Clear(ctx context.Context, conversationID string) error
}

type OrderSink interface {
	Finalize(ctx context.Context, order ConfirmedOrder) (string, error)
}
