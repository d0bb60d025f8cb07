// Package intent recognizes the fixed conversational intents that are handled before
// order extraction.
package intent

import (
	"strings"

	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/textnorm"
)

type Classification struct {
	Intent model.Intent
	Rule   string
	// ClearsDraft is set for greetings.
	ClearsDraft bool
	// ReplaceAll is set on ORDER when the customer restricts the order ("solo quiero pollo").
	ReplaceAll bool
	// ChangeQuantity is set on ORDER when the customer corrects a quantity ("que sean 6").
	ChangeQuantity bool
}

type Classifier struct {
	offTopic   []string
	escalation []string
	rules      []Rule
}

type Option func(*Classifier)

// WithOffTopic replaces the off-topic keyword set; an empty list keeps the default.
func WithOffTopic(words ...string) Option {
	return func(c *Classifier) {
		if n := normalizeAll(words); len(n) > 0 {
			c.offTopic = n
		}
	}
}

// WithEscalation replaces the human-handoff keyword set; an empty list keeps the default.
func WithEscalation(words ...string) Option {
	return func(c *Classifier) {
		if n := normalizeAll(words); len(n) > 0 {
			c.escalation = n
		}
	}
}

func normalizeAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if n := textnorm.Normalize(w); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func New(opts ...Option) *Classifier {
	c := &Classifier{offTopic: DefaultOffTopic, escalation: DefaultEscalation}
	for _, o := range opts {
		o(c)
	}
	c.rules = c.defaultRules()
	return c
}

// Classify runs the rule table top to bottom. Unmatched messages are ORDER candidates.
func (c *Classifier) Classify(text string, draft *model.OrderDraft) Classification {
	norm := textnorm.Normalize(text)
	m := &message{
		norm:   norm,
		words:  len(strings.Fields(norm)),
		digits: digitPattern.MatchString(norm),
		draft:  draft,
	}

	for _, r := range c.rules {
		if r.Match(m) {
			return Classification{Intent: r.Intent(m), Rule: r.Name, ClearsDraft: r.ClearsDraft}
		}
	}
	replaceAll := !draft.IsEmpty() && m.has(replaceAllWords)
	return Classification{
		Intent:         model.IntentOrder,
		Rule:           "order",
		ReplaceAll:     replaceAll,
		ChangeQuantity: !draft.IsEmpty() && !replaceAll && m.has(changePhrases),
	}
}

