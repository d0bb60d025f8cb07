// Package draft owns the lifecycle of a conversation's in-progress order.
//
// Every operation takes the current draft and returns the next one. The input is never
// modified, so a turn that fails half way leaves the stored draft exactly as it was.
package draft

import (
	"strconv"
	"strings"
	"time"

	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
	"github.com/google/uuid"
)

const DefaultIdleTimeout = 15 * time.Minute

var orderNamespace = uuid.MustParse("6f1c2a8e-3d4b-5e6f-8a9b-0c1d2e3f4a5b")

type Action = model.LineAction

const (
	ActionAdd            = model.LineAdd
	ActionReplaceAll     = model.LineReplaceAll
	ActionChangeQuantity = model.LineChangeQuantity
)

// State is the top level lifecycle state. A staged proposal is not a state of its own.
type State string

const (
	StateEmpty        State = "EMPTY"
	StateAccumulating State = "ACCUMULATING"
)

type Machine struct {
	idle time.Duration
	now  func() time.Time
}

type Option func(*Machine)

func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

func New(idle time.Duration, opts ...Option) *Machine {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	m := &Machine{idle: idle, now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Machine) Now() time.Time { return m.now() }

// Start returns a fresh empty draft.
func (m *Machine) Start(conversationID string) *model.OrderDraft {
	return model.NewDraft(conversationID, m.now())
}

// Expire reports whether d has been idle longer than the timeout. Expired drafts are
// discarded whole at the start of the next turn.
func (m *Machine) Expire(d *model.OrderDraft) bool {
	if d == nil || d.LastActivityAt.IsZero() {
		return false
	}
	return m.now().Sub(d.LastActivityAt) > m.idle
}

func StateOf(d *model.OrderDraft) State {
	if d.IsEmpty() {
		return StateEmpty
	}
	return StateAccumulating
}

func (m *Machine) next(d *model.OrderDraft) *model.OrderDraft {
	n := d.Clone()
	n.LastActivityAt = m.now()
	return n
}

func clearPending(d *model.OrderDraft) {
	d.PendingAction = model.PendingNone
	d.ProposedLines = nil
}

// Apply merges lines into the draft. ADD increases existing quantities, REPLACE_ALL swaps
// the whole line set and CHANGE_QUANTITY sets the quantity of the named items. A line
// still waiting for its quantity takes the incoming quantity instead of summing.
func (m *Machine) Apply(d *model.OrderDraft, action Action, lines []model.OrderLineItem) *model.OrderDraft {
	n := m.next(d)
	clearPending(n)

	if action == ActionReplaceAll {
		n.Lines = nil
	}
	merged := append([]model.OrderLineItem(nil), n.Lines...)
	for _, in := range lines {
		if in.Quantity <= 0 || in.ItemID == "" {
			continue
		}
		i := indexOf(merged, in.ItemID)
		if i < 0 {
			merged = append(merged, in)
			n.LastItemID = in.ItemID
			continue
		}
		cur := &merged[i]
		switch {
		case action == ActionChangeQuantity, cur.QuantityPending:
			cur.Quantity = in.Quantity
			cur.QuantityPending = in.QuantityPending
		default:
			cur.Quantity += in.Quantity
			cur.QuantityPending = cur.QuantityPending && in.QuantityPending
		}
		cur.Confidence = minConfidence(cur.Confidence, in.Confidence)
		n.LastItemID = in.ItemID
	}
	n.Lines = merged
	return n
}

// Remove deletes quantity units of itemID; a quantity <= 0 or >= the current one drops
// the line. The bool reports whether the item was in the draft.
func (m *Machine) Remove(d *model.OrderDraft, itemID string, quantity int) (*model.OrderDraft, bool) {
	if d == nil || indexOf(d.Lines, itemID) < 0 {
		return d, false
	}
	n := m.next(d)
	clearPending(n)
	n.Lines = removeQuantity(n.Lines, itemID, quantity)
	if n.LastItemID == itemID && indexOf(n.Lines, itemID) < 0 {
		n.LastItemID = ""
		if len(n.Lines) > 0 {
			n.LastItemID = n.Lines[len(n.Lines)-1].ItemID
		}
	}
	return n, true
}

func removeQuantity(lines []model.OrderLineItem, itemID string, quantity int) []model.OrderLineItem {
	out := make([]model.OrderLineItem, 0, len(lines))
	for _, l := range lines {
		if l.ItemID != itemID {
			out = append(out, l)
			continue
		}
		if quantity > 0 && quantity < l.Quantity {
			l.Quantity -= quantity
			out = append(out, l)
		}
	}
	return out
}

// ProposeReplace stages a replacement of the whole order. Lines are untouched until Resolve.
func (m *Machine) ProposeReplace(d *model.OrderDraft, lines []model.OrderLineItem) *model.OrderDraft {
	return m.propose(d, model.PendingReplaceProposed, lines)
}

// ProposeRemove stages the removal of the given lines (quantity <= 0 removes the whole line).
func (m *Machine) ProposeRemove(d *model.OrderDraft, lines []model.OrderLineItem) *model.OrderDraft {
	return m.propose(d, model.PendingRemoveProposed, lines)
}

func (m *Machine) propose(d *model.OrderDraft, action model.PendingAction, lines []model.OrderLineItem) *model.OrderDraft {
	n := m.next(d)
	if len(lines) == 0 {
		clearPending(n)
		return n
	}
	n.PendingAction = action
	n.ProposedLines = append([]model.OrderLineItem(nil), lines...)
	return n
}

// Resolve applies (accept) or discards the staged proposal and returns which action it was.
func (m *Machine) Resolve(d *model.OrderDraft, accept bool) (*model.OrderDraft, model.PendingAction, error) {
	if !d.HasPending() {
		return d, model.PendingNone, errx.ErrNoPendingAction
	}
	action := d.PendingAction
	proposed := d.ProposedLines
	if !accept {
		n := m.next(d)
		clearPending(n)
		return n, action, nil
	}

	switch action {
	case model.PendingReplaceProposed:
		return m.Apply(d, ActionReplaceAll, proposed), action, nil
	default:
		n := m.next(d)
		clearPending(n)
		for _, l := range proposed {
			n.Lines = removeQuantity(n.Lines, l.ItemID, l.Quantity)
		}
		if indexOf(n.Lines, n.LastItemID) < 0 {
			n.LastItemID = ""
		}
		return n, action, nil
	}
}

// Confirm snapshots the draft into a ConfirmedOrder. It fails with ErrNotConfirmable when
// the draft is empty, has a staged proposal or has a line still waiting for its quantity.
func (m *Machine) Confirm(d *model.OrderDraft) (*model.ConfirmedOrder, error) {
	if d.IsEmpty() || d.HasPending() {
		return nil, errx.ErrNotConfirmable
	}
	for _, l := range d.Lines {
		if l.QuantityPending || l.Quantity <= 0 {
			return nil, errx.ErrNotConfirmable
		}
	}
	lines := append([]model.OrderLineItem(nil), d.Lines...)
	return &model.ConfirmedOrder{
		ID:             OrderID(d),
		ConversationID: d.ConversationID,
		Lines:          lines,
		Total:          model.LinesTotal(lines),
		CreatedAt:      m.now(),
	}, nil
}

// OrderID names the order a draft confirms into. Confirming the same draft twice yields
// the same id; any change to the lines, or a new draft, yields a new one.
func OrderID(d *model.OrderDraft) string {
	var b strings.Builder
	b.WriteString(d.ConversationID)
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(d.CreatedAt.UnixNano(), 10))
	for _, l := range d.Lines {
		b.WriteByte('|')
		b.WriteString(l.ItemID)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(l.Quantity))
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(l.UnitPrice, 'f', 2, 64))
	}
	return uuid.NewSHA1(orderNamespace, []byte(b.String())).String()
}

// Cancel discards everything. The caller clears the stored draft.
func (m *Machine) Cancel(d *model.OrderDraft) *model.OrderDraft {
	id := ""
	if d != nil {
		id = d.ConversationID
	}
	return m.Start(id)
}

// Prune drops lines and proposals whose item is no longer on the menu and returns the
// names of the dropped lines.
func (m *Machine) Prune(d *model.OrderDraft, menu model.Menu) (*model.OrderDraft, []string) {
	if d == nil {
		return nil, nil
	}
	ids := menu.ByID()
	var dropped []string
	n := d.Clone()
	n.Lines = n.Lines[:0]
	for _, l := range d.Lines {
		if _, ok := ids[l.ItemID]; ok {
			n.Lines = append(n.Lines, l)
			continue
		}
		dropped = append(dropped, l.ItemName)
	}
	if len(dropped) == 0 {
		return d, nil
	}
	if n.HasPending() {
		kept := n.ProposedLines[:0]
		for _, l := range n.ProposedLines {
			if _, ok := ids[l.ItemID]; ok {
				kept = append(kept, l)
			}
		}
		n.ProposedLines = kept
		if len(kept) == 0 {
			clearPending(n)
		}
	}
	if indexOf(n.Lines, n.LastItemID) < 0 {
		n.LastItemID = ""
	}
	return n, dropped
}

func indexOf(lines []model.OrderLineItem, itemID string) int {
	for i, l := range lines {
		if l.ItemID == itemID {
			return i
		}
	}
	return -1
}

func minConfidence(a, b float64) float64 {
	switch {
	case a == 0:
		return b
	case b == 0:
		return a
	case b < a:
		return b
	}
	return a
}
