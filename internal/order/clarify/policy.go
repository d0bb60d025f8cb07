// Package clarify decides whether an extraction result is applied, staged for a yes/no,
// or turned into a question.
//
// Additive ambiguity is resolved by best effort. Replacing and removing are never
// applied on a guess.
package clarify

import (
	"github.com/Chative-core-poc-v1/orderbot/internal/order/combiner"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
)

type Outcome string

const (
	Accept       Outcome = "ACCEPT"
	Clarify      Outcome = "CLARIFY"
	StageReplace Outcome = "STAGE_REPLACE"
	NoMatch      Outcome = "NO_MATCH"

	RemoveNow   Outcome = "REMOVE_NOW"
	StageRemove Outcome = "STAGE_REMOVE"
	AskWhich    Outcome = "ASK_WHICH"
	NotInOrder  Outcome = "NOT_IN_ORDER"
	Nothing     Outcome = "NOTHING"
)

type Decision struct {
	Outcome Outcome
	// Lines to add, stage or remove. For removals Quantity is the number of units to take away.
	Lines []model.OrderLineItem
	// Options are the names offered back to the customer.
	Options []string
}

type Policy struct {
	strong float64
}

func New() *Policy {
	return &Policy{strong: model.StrongConfidence}
}

type OrderInput struct {
	Result     combiner.Result
	Candidates []model.ProductCandidate
	ReplaceAll bool
}

// DecideOrder judges the combiner output of an ORDER message.
func (p *Policy) DecideOrder(in OrderInput) Decision {
	if len(in.Result.Lines) == 0 {
		return Decision{Outcome: NoMatch}
	}

	strength := make(map[string]float64, len(in.Candidates))
	for _, c := range in.Candidates {
		if c.Confidence > strength[c.Item.ID] {
			strength[c.Item.ID] = c.Confidence
		}
	}

	lines := in.Result.Lines
	if in.Result.Rule != combiner.RuleContext && len(in.Candidates) > 1 {
		var strong []model.OrderLineItem
		for _, l := range lines {
			if strength[l.ItemID] >= p.strong {
				strong = append(strong, l)
			}
		}
		switch {
		case len(strong) == 0:
			return Decision{Outcome: Clarify, Options: candidateNames(in.Candidates)}
		case in.Result.Rule != combiner.RuleMultiFlavorPosition:
			// each weak line here rode on a quantity meant for something named clearly
			lines = strong
		}
	}

	if in.ReplaceAll {
		return Decision{Outcome: StageReplace, Lines: lines}
	}
	return Decision{Outcome: Accept, Lines: lines}
}

func candidateNames(cands []model.ProductCandidate) []string {
	seen := make(map[string]bool, len(cands))
	var names []string
	for _, c := range cands {
		if seen[c.Item.ID] {
			continue
		}
		seen[c.Item.ID] = true
		names = append(names, c.Item.Name)
	}
	return names
}

type RemoveInput struct {
	Candidates []model.ProductCandidate
	// Quantities are the explicit quantities of the message, if any.
	Quantities []model.QuantityToken
	Draft      *model.OrderDraft
}

// DecideRemove picks the draft lines a REMOVE message refers to.
func (p *Policy) DecideRemove(in RemoveInput) Decision {
	if in.Draft.IsEmpty() {
		return Decision{Outcome: Nothing}
	}

	var targets []model.OrderLineItem
	sure := true
	seen := map[string]bool{}
	for _, c := range in.Candidates {
		line, ok := in.Draft.Line(c.Item.ID)
		if !ok || seen[c.Item.ID] {
			continue
		}
		seen[c.Item.ID] = true
		targets = append(targets, line)
		if c.Confidence < p.strong {
			sure = false
		}
	}

	switch {
	case len(targets) == 0 && len(in.Candidates) > 0:
		return Decision{Outcome: NotInOrder, Options: lineNames(in.Draft.Lines)}
	case len(targets) == 0 && len(in.Draft.Lines) == 1:
		return Decision{Outcome: StageRemove, Lines: removal(in.Draft.Lines, in.Quantities)}
	case len(targets) == 0:
		return Decision{Outcome: AskWhich, Options: lineNames(in.Draft.Lines)}
	case !sure:
		return Decision{Outcome: StageRemove, Lines: removal(targets, in.Quantities)}
	}
	return Decision{Outcome: RemoveNow, Lines: removal(targets, in.Quantities)}
}

// removal turns lines into removal requests. A single explicit quantity applies to a
// single target; anything else removes whole lines.
func removal(lines []model.OrderLineItem, quantities []model.QuantityToken) []model.OrderLineItem {
	out := make([]model.OrderLineItem, len(lines))
	for i, l := range lines {
		if len(lines) == 1 && len(quantities) == 1 && quantities[0].Value < l.Quantity {
			l.Quantity = quantities[0].Value
		}
		out[i] = l
	}
	return out
}

func lineNames(lines []model.OrderLineItem) []string {
	names := make([]string, 0, len(lines))
	for _, l := range lines {
		names = append(names, l.ItemName)
	}
	return names
}
