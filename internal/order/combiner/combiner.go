// Package combiner pairs the quantities of a message with its product candidates.
package combiner

import (
	"regexp"
	"sort"

	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/quantity"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/textnorm"
)

const (
	// Lines at or below this confidence are noise.
	DefaultMinConfidence = 0.4
	contextConfidence    = 0.9
)

// Rule names the branch that produced the lines.
type Rule string

const (
	RuleNone                Rule = "none"
	RuleMultiFlavorPosition Rule = "multi_flavor_positional"
	RuleMultiFlavorUniform  Rule = "multi_flavor_uniform"
	RuleSingle              Rule = "single"
	RuleFanOut              Rule = "fan_out"
	RuleLargest             Rule = "largest_quantity"
	RuleContext             Rule = "context_carry_over"
)

var defaultConjunctions = []*regexp.Regexp{
	regexp.MustCompile(`\b\w+\s+y\s+\w+\b`),
	regexp.MustCompile(`\bde\s+\w+\s+y\b.*\bde\s+\w+\b`),
	regexp.MustCompile(`\b\w+\s*,\s*\w+\b`),
}

type Input struct {
	// Quantities is the deduplicated, non-empty lexicon output.
	Quantities []model.QuantityToken
	// Scanned holds every quantity phrase, repeats included.
	Scanned    []model.QuantityToken
	Candidates []model.ProductCandidate
	Text       string
	Draft      *model.OrderDraft
	Menu       model.Menu
}

type Result struct {
	Lines       []model.OrderLineItem
	Rule        Rule
	MultiFlavor bool
}

type Combiner struct {
	minConfidence float64
	conjunctions  []*regexp.Regexp
}

func New() *Combiner {
	return &Combiner{minConfidence: DefaultMinConfidence, conjunctions: defaultConjunctions}
}

// MultiFlavor reports whether text joins several things ("carne y pollo", "carne, pollo").
func (c *Combiner) MultiFlavor(text string) bool {
	folded := textnorm.Fold(text)
	for _, re := range c.conjunctions {
		if re.MatchString(folded) {
			return true
		}
	}
	return false
}

func (c *Combiner) Combine(in Input) Result {
	qs := in.Quantities
	if len(qs) == 0 {
		qs = []model.QuantityToken{quantity.Default()}
	}
	base := qs[0]
	cands := in.Candidates

	var (
		res   Result
		lines []model.OrderLineItem
	)
	switch {
	case len(cands) >= 2 && c.MultiFlavor(in.Text):
		res.MultiFlavor = true
		explicit := quantity.Explicit(in.Scanned)
		if len(explicit) == len(cands) {
			res.Rule = RuleMultiFlavorPosition
			ordered := byMention(cands)
			for i, cand := range ordered {
				lines = append(lines, line(cand, explicit[i]))
			}
		} else {
			res.Rule = RuleMultiFlavorUniform
			for _, cand := range cands {
				lines = append(lines, line(cand, base))
			}
		}

	case len(cands) == 1 && len(qs) == 1:
		res.Rule = RuleSingle
		lines = append(lines, line(cands[0], base))

	case len(cands) >= 2:
		res.Rule = RuleFanOut
		for _, cand := range cands {
			lines = append(lines, line(cand, base))
		}

	case len(cands) == 1:
		res.Rule = RuleLargest
		lines = append(lines, line(cands[0], quantity.Largest(qs)))

	default:
		cand, ok := contextCandidate(in)
		explicit := quantity.Explicit(qs)
		if !ok || len(explicit) == 0 {
			res.Rule = RuleNone
			return res
		}
		res.Rule = RuleContext
		lines = append(lines, line(cand, explicit[0]))
	}

	for _, l := range lines {
		if l.Confidence > c.minConfidence {
			res.Lines = append(res.Lines, l)
		}
	}
	if len(res.Lines) == 0 {
		res.Rule = RuleNone
	}
	return res
}

func line(cand model.ProductCandidate, q model.QuantityToken) model.OrderLineItem {
	l := model.NewLine(cand.Item, q.Value, min(q.Confidence, cand.Confidence))
	l.QuantityPending = q.IsDefault()
	return l
}

func byMention(cands []model.ProductCandidate) []model.ProductCandidate {
	out := append([]model.ProductCandidate(nil), cands...)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Position, out[j].Position
		if pi < 0 || pj < 0 {
			return pi >= 0 && pj < 0
		}
		return pi < pj
	})
	return out
}

// contextCandidate resolves the draft's most recently added item against the menu.
func contextCandidate(in Input) (model.ProductCandidate, bool) {
	if in.Draft.IsEmpty() || in.Draft.LastItemID == "" {
		return model.ProductCandidate{}, false
	}
	if _, inDraft := in.Draft.Line(in.Draft.LastItemID); !inDraft {
		return model.ProductCandidate{}, false
	}
	it, ok := in.Menu.Lookup(in.Draft.LastItemID)
	if !ok {
		return model.ProductCandidate{}, false
	}
	return model.ProductCandidate{Item: it, Confidence: contextConfidence, MatchedBy: model.MatchedByContext, Position: -1}, true
}
