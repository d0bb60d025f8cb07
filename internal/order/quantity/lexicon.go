// Package quantity turns Spanish quantity phrases ("media docena", "un par", "3")
// into integer tokens.
package quantity

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/textnorm"
)

const (
	maxDigits = 100

	phraseConfidence  = 1.0
	digitConfidence   = 0.9
	wordConfidence    = 0.8
	defaultConfidence = 0.5
)

var numberWords = map[string]int{
	"un": 1, "una": 1, "uno": 1, "dos": 2, "tres": 3, "cuatro": 4, "cinco": 5,
	"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10,
}

const count = `(\d+|una?|uno|dos|tres|cuatro|cinco|seis|siete|ocho|nueve|diez)`

// Rule is one entry of the lexicon table. Rules run in order and each match consumes
// its span, so a later, shorter rule never fires inside an earlier match.
type Rule struct {
	Source     model.QuantitySource
	Pattern    *regexp.Regexp
	Confidence float64
	// Value maps the submatches to a quantity; false discards the match.
	Value func(groups []string) (int, bool)
	// When gates the rule on the whole normalized message.
	When func(text string) bool
}

func fixed(n int) func([]string) (int, bool) {
	return func([]string) (int, bool) { return n, true }
}

func countValue(s string) (int, bool) {
	if n, ok := numberWords[s]; ok {
		return n, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > maxDigits {
		return 0, false
	}
	return n, true
}

// DefaultRules is the Spanish rule table, longest phrases first.
func DefaultRules() []Rule {
	return []Rule{
		{
			Source:     model.QuantityDozensAndHalf,
			Pattern:    regexp.MustCompile(`\b` + count + `\s+docenas?\s+y\s+media\b`),
			Confidence: phraseConfidence,
			Value: func(g []string) (int, bool) {
				n, ok := countValue(g[1])
				return n*12 + 6, ok
			},
		},
		{
			Source:     model.QuantityDozenAndHalf,
			Pattern:    regexp.MustCompile(`\bdocena\s+y\s+media\b`),
			Confidence: phraseConfidence,
			Value:      fixed(18),
		},
		{
			Source:     model.QuantityDozens,
			Pattern:    regexp.MustCompile(`\b` + count + `\s+docenas\b`),
			Confidence: phraseConfidence,
			Value: func(g []string) (int, bool) {
				n, ok := countValue(g[1])
				return n * 12, ok
			},
		},
		{
			Source:     model.QuantityHalfDozen,
			Pattern:    regexp.MustCompile(`\bmedia\s+docena\b`),
			Confidence: phraseConfidence,
			Value:      fixed(6),
		},
		{
			Source:     model.QuantityDozen,
			Pattern:    regexp.MustCompile(`\b(?:(?:una|1)\s+)?docena\b`),
			Confidence: phraseConfidence,
			Value:      fixed(12),
		},
		{
			Source:     model.QuantityPair,
			Pattern:    regexp.MustCompile(`\b(?:un\s+par|una\s+pareja|par)\b`),
			Confidence: phraseConfidence,
			Value:      fixed(2),
		},
		{
			Source:     model.QuantityQuarter,
			Pattern:    regexp.MustCompile(`\bun\s+cuarto\b`),
			Confidence: phraseConfidence,
			Value:      fixed(3),
		},
		{
			// "media docena de carne y media de pollo": the second "media" means half a dozen too.
			Source:     model.QuantityElliptic,
			Pattern:    regexp.MustCompile(`\bmedia\b`),
			Confidence: wordConfidence,
			Value:      fixed(6),
			When:       func(text string) bool { return strings.Contains(text, "docena") },
		},
		{
			Source:     model.QuantityDigits,
			Pattern:    regexp.MustCompile(`\b(\d+)\b`),
			Confidence: digitConfidence,
			Value:      func(g []string) (int, bool) { return countValue(g[1]) },
		},
		{
			Source:     model.QuantityWord,
			Pattern:    regexp.MustCompile(`\b(un|una|uno|dos|tres|cuatro|cinco|seis|siete|ocho|nueve|diez)\b`),
			Confidence: wordConfidence,
			Value:      func(g []string) (int, bool) { return countValue(g[1]) },
		},
	}
}

type Lexicon struct {
	rules []Rule
}

func NewLexicon(rules ...Rule) *Lexicon {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Lexicon{rules: rules}
}

type span struct{ start, end int }

// Scan returns every quantity phrase in text, in order of appearance, without
// deduplication. Positions refer to the normalized text.
func (l *Lexicon) Scan(text string) []model.QuantityToken {
	norm := textnorm.Normalize(text)
	if norm == "" {
		return nil
	}

	var (
		consumed []span
		tokens   []model.QuantityToken
	)
	overlaps := func(s span) bool {
		for _, c := range consumed {
			if s.start < c.end && c.start < s.end {
				return true
			}
		}
		return false
	}

	for _, r := range l.rules {
		if r.When != nil && !r.When(norm) {
			continue
		}
		for _, idx := range r.Pattern.FindAllStringSubmatchIndex(norm, -1) {
			s := span{idx[0], idx[1]}
			if overlaps(s) {
				continue
			}
			groups := make([]string, len(idx)/2)
			for g := range groups {
				if idx[2*g] >= 0 {
					groups[g] = norm[idx[2*g]:idx[2*g+1]]
				}
			}
			v, ok := r.Value(groups)
			if !ok || v <= 0 {
				continue
			}
			consumed = append(consumed, s)
			tokens = append(tokens, model.QuantityToken{
				Value:       v,
				Confidence:  r.Confidence,
				Source:      r.Source,
				MatchedText: groups[0],
				Position:    s.start,
			})
		}
	}

	sort.SliceStable(tokens, func(i, j int) bool { return tokens[i].Position < tokens[j].Position })
	return tokens
}

// Extract returns the distinct quantities in text. The result is never empty: with no
// phrase present a default token of 1 at confidence 0.5 is returned.
func (l *Lexicon) Extract(text string) []model.QuantityToken {
	scanned := l.Scan(text)
	if len(scanned) == 0 {
		return []model.QuantityToken{Default()}
	}

	best := map[int]int{}
	var out []model.QuantityToken
	for _, tok := range scanned {
		if i, ok := best[tok.Value]; ok {
			if tok.Confidence > out[i].Confidence {
				out[i] = tok
			}
			continue
		}
		best[tok.Value] = len(out)
		out = append(out, tok)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func Default() model.QuantityToken {
	return model.QuantityToken{Value: 1, Confidence: defaultConfidence, Source: model.QuantityDefault, Position: -1}
}

// Explicit drops the default token.
func Explicit(tokens []model.QuantityToken) []model.QuantityToken {
	var out []model.QuantityToken
	for _, t := range tokens {
		if !t.IsDefault() {
			out = append(out, t)
		}
	}
	return out
}

// Largest returns the token with the highest value; tokens must be non-empty.
func Largest(tokens []model.QuantityToken) model.QuantityToken {
	best := tokens[0]
	for _, t := range tokens[1:] {
		if t.Value > best.Value {
			best = t
		}
	}
	return best
}
