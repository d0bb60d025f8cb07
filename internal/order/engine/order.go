package engine

import (
	"context"

	"github.com/Chative-core-poc-v1/orderbot/internal/order/clarify"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/combiner"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/draft"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/intent"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/matcher"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/metrics"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/quantity"
)

const suggestionCount = 3

func (e *Engine) order(ctx context.Context, t *turn, cls intent.Classification) (*model.Response, error) {
	menu, err := e.loadMenu(ctx, t)
	if err != nil {
		return nil, err
	}
	if len(menu) == 0 {
		return reply(model.IntentNoMenu, textNoMenu), nil
	}

	ix := matcher.NewIndex(menu)
	candidates := ix.Match(t.text)
	res := e.combiner.Combine(combiner.Input{
		Quantities: e.lexicon.Extract(t.text),
		Scanned:    e.lexicon.Scan(t.text),
		Candidates: candidates,
		Text:       t.text,
		Draft:      t.Draft,
		Menu:       menu,
	})
	metrics.CombinerRules.WithLabelValues(string(res.Rule)).Inc()

	dec := e.policy.DecideOrder(clarify.OrderInput{
		Result:     res,
		Candidates: candidates,
		ReplaceAll: cls.ReplaceAll,
	})

	e.log.Debug().
		Str("conversation_id", t.ConversationID).
		Int("candidates", len(candidates)).
		Str("combiner_rule", string(res.Rule)).
		Str("outcome", string(dec.Outcome)).
		Msg("order extraction")

	switch dec.Outcome {
	case clarify.Accept:
		if cls.ChangeQuantity && !t.Draft.IsEmpty() {
			return e.changeQuantity(t, dec.Lines), nil
		}
		return e.add(t, dec.Lines), nil
	case clarify.StageReplace:
		return e.stageReplace(t, dec.Lines), nil
	case clarify.Clarify:
		resp := reply(model.IntentClarification, clarifyText(dec.Options))
		resp.Options = dec.Options
		return resp, nil
	}

	if resp, ok := e.fromFallback(ctx, t, cls, menu); ok {
		return resp, nil
	}
	return reply(model.IntentNoMatch, noMatchText(ix.Suggest(t.text, suggestionCount))), nil
}

func (e *Engine) add(t *turn, lines []model.OrderLineItem) *model.Response {
	t.Draft = e.machine.Apply(t.Draft, draft.ActionAdd, lines)
	if len(pendingQuantities(t.Draft)) > 0 {
		return reply(model.IntentQuantityNeeded, addedText(lines, t.Draft, t.settings))
	}
	return reply(model.IntentOrder, addedText(lines, t.Draft, t.settings))
}

// changeQuantity sets the quantity of items the customer corrects ("que sean 6 de carne").
// Lines without an explicit quantity cannot correct anything and are added instead.
func (e *Engine) changeQuantity(t *turn, lines []model.OrderLineItem) *model.Response {
	var set, added []model.OrderLineItem
	for _, l := range lines {
		if l.QuantityPending {
			added = append(added, l)
			continue
		}
		set = append(set, l)
	}
	if len(set) == 0 {
		return e.add(t, lines)
	}
	t.Draft = e.machine.Apply(t.Draft, draft.ActionChangeQuantity, set)
	if len(added) > 0 {
		t.Draft = e.machine.Apply(t.Draft, draft.ActionAdd, added)
	}
	if len(pendingQuantities(t.Draft)) > 0 {
		return reply(model.IntentQuantityNeeded, changedText(set, t.Draft, t.settings))
	}
	return reply(model.IntentOrder, changedText(set, t.Draft, t.settings))
}

// stageReplace keeps the quantity the customer already had for items they did not
// quantify again ("solo quiero las de pollo").
func (e *Engine) stageReplace(t *turn, lines []model.OrderLineItem) *model.Response {
	staged := make([]model.OrderLineItem, len(lines))
	for i, l := range lines {
		if cur, ok := t.Draft.Line(l.ItemID); ok && l.QuantityPending {
			l.Quantity = cur.Quantity
			l.QuantityPending = cur.QuantityPending
		}
		staged[i] = l
	}
	t.Draft = e.machine.ProposeReplace(t.Draft, staged)
	resp := reply(model.IntentPendingConfirm, replaceProposalText(staged))
	resp.Options = []string{"sí", "no"}
	return resp
}

func (e *Engine) remove(ctx context.Context, t *turn) (*model.Response, error) {
	if t.Draft.IsEmpty() {
		return reply(model.IntentNoActiveOrder, textNoActiveOrder), nil
	}
	menu, err := e.loadMenu(ctx, t)
	if err != nil {
		return nil, err
	}
	if len(menu) == 0 {
		menu = draftMenu(t.Draft)
	}

	dec := e.policy.DecideRemove(clarify.RemoveInput{
		Candidates: matcher.NewIndex(menu).Match(t.text),
		Quantities: quantity.Explicit(e.lexicon.Scan(t.text)),
		Draft:      t.Draft,
	})

	switch dec.Outcome {
	case clarify.RemoveNow:
		for _, l := range dec.Lines {
			t.Draft, _ = e.machine.Remove(t.Draft, l.ItemID, l.Quantity)
		}
		return reply(model.IntentItemRemoved, removedText(dec.Lines, t.Draft, t.settings)), nil
	case clarify.StageRemove:
		t.Draft = e.machine.ProposeRemove(t.Draft, dec.Lines)
		resp := reply(model.IntentPendingConfirm, removeProposalText(dec.Lines))
		resp.Options = []string{"sí", "no"}
		return resp, nil
	case clarify.AskWhich:
		resp := reply(model.IntentClarification, askWhichText(dec.Options))
		resp.Options = dec.Options
		return resp, nil
	case clarify.NotInOrder:
		resp := reply(model.IntentNoMatch, textNotInOrder+" "+askWhichText(dec.Options))
		resp.Options = dec.Options
		return resp, nil
	}
	return reply(model.IntentNoActiveOrder, textNoActiveOrder), nil
}

// draftMenu lets removals match against the draft itself when the menu is unavailable.
func draftMenu(d *model.OrderDraft) model.Menu {
	menu := make(model.Menu, 0, len(d.Lines))
	for _, l := range d.Lines {
		menu = append(menu, model.MenuItem{ID: l.ItemID, Name: l.ItemName, Price: l.UnitPrice, Category: l.Category})
	}
	return menu
}
