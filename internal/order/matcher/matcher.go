// Package matcher scores free text against the menu.
package matcher

import (
	"sort"
	"strings"

	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/textnorm"
)

const (
	fullNameScore     = 1.0
	nameKeywordScore  = 0.4
	descKeywordScore  = 0.2
	fillingBoost      = 0.5
	confidentAbove    = 0.5
	noMatchAtOrBelow  = 0.3
	fuzzyCeiling      = 0.75
	categoryFloor     = 0.6
	containmentScore  = 0.6
	similarityMinimum = 0.7
	similarityWeight  = 0.5
)

// DefaultFillings are the words that tell sibling items apart ("Empanada de pollo" vs
// "Empanada de carne"). Naming one is a strong signal.
var DefaultFillings = []string{
	"pollo", "carne", "jamon", "queso", "humita", "verdura", "verduras", "atun", "cebolla",
	"caprese", "roquefort", "choclo", "espinaca", "calabaza", "muzzarella", "mozzarella",
	"napolitana", "fugazzeta", "salame", "panceta", "champignon", "palmitos", "cerdo",
	"chocolate", "vainilla", "frutilla", "limon", "picante", "cuchillo",
}

type token struct {
	word string
	pos  int
}

type entry struct {
	item         model.MenuItem
	name         string
	nameKeywords []string
	descKeywords []string
	catKeywords  []string
	fillings     []string
	vocabulary   []string
}

// Index is built once per menu snapshot and is safe for concurrent use.
type Index struct {
	entries  []entry
	fillings map[string]bool
}

type Option func(*Index)

func WithFillings(words ...string) Option {
	return func(ix *Index) {
		ix.fillings = map[string]bool{}
		for _, w := range words {
			ix.fillings[textnorm.Normalize(w)] = true
		}
	}
}

func NewIndex(menu model.Menu, opts ...Option) *Index {
	ix := &Index{}
	WithFillings(DefaultFillings...)(ix)
	for _, o := range opts {
		o(ix)
	}

	ix.entries = make([]entry, 0, len(menu))
	for _, it := range menu {
		e := entry{
			item:         it,
			name:         textnorm.Normalize(it.Name),
			nameKeywords: textnorm.Keywords(it.Name, 2),
			descKeywords: textnorm.Keywords(it.Description, 3),
			catKeywords:  textnorm.Keywords(it.Category, 2),
		}
		for _, kw := range e.nameKeywords {
			if ix.fillings[kw] {
				e.fillings = append(e.fillings, kw)
			}
		}
		seen := map[string]bool{}
		for _, group := range [][]string{e.nameKeywords, e.descKeywords, e.catKeywords} {
			for _, w := range group {
				if !seen[w] {
					seen[w] = true
					e.vocabulary = append(e.vocabulary, w)
				}
			}
		}
		ix.entries = append(ix.entries, e)
	}
	return ix
}

func (ix *Index) Len() int {
	return len(ix.entries)
}

func tokenize(norm string) []token {
	var out []token
	pos := 0
	for _, w := range strings.Split(norm, " ") {
		if w != "" {
			out = append(out, token{word: w, pos: pos})
		}
		pos += len(w) + 1
	}
	return out
}

// wordMatches accepts the keyword itself or a plural of it ("empanadas" for "empanada").
func wordMatches(word, keyword string) bool {
	if word == keyword {
		return true
	}
	return strings.HasPrefix(word, keyword) && len(word)-len(keyword) <= 2
}

func find(tokens []token, keyword string) int {
	for _, t := range tokens {
		if wordMatches(t.word, keyword) {
			return t.pos
		}
	}
	return -1
}

// Match ranks menu items against text. Confident candidates (> 0.5) are returned when any
// exist; otherwise the fuzzy pass runs. An empty result means no match.
func (ix *Index) Match(text string) []model.ProductCandidate {
	norm := textnorm.Normalize(text)
	if norm == "" || len(ix.entries) == 0 {
		return nil
	}
	tokens := tokenize(norm)

	var confident []model.ProductCandidate
	for _, e := range ix.entries {
		if c, ok := ix.score(e, norm, tokens); ok && c.Confidence > confidentAbove {
			confident = append(confident, c)
		}
	}
	if len(confident) > 0 {
		rank(confident)
		return confident
	}

	fuzzy := ix.fuzzy(tokens)
	rank(fuzzy)
	return fuzzy
}

func (ix *Index) score(e entry, norm string, tokens []token) (model.ProductCandidate, bool) {
	var (
		score   float64
		pos     = -1
		by      = model.MatchedByName
		nameHit bool
	)
	mark := func(p int) {
		if p >= 0 && (pos < 0 || p < pos) {
			pos = p
		}
	}

	if e.name != "" {
		if p := textnorm.WordIndex(norm, e.name); p >= 0 {
			score += fullNameScore
			nameHit = true
			mark(p)
		}
	}
	for _, kw := range e.nameKeywords {
		if p := find(tokens, kw); p >= 0 {
			score += nameKeywordScore
			nameHit = true
			mark(p)
		}
	}
	for _, kw := range e.descKeywords {
		if p := find(tokens, kw); p >= 0 {
			score += descKeywordScore
			mark(p)
		}
	}
	for _, f := range e.fillings {
		if p := find(tokens, f); p >= 0 {
			score += fillingBoost
			mark(p)
		}
	}
	if score == 0 {
		return model.ProductCandidate{}, false
	}
	if !nameHit {
		by = model.MatchedByDescription
	}
	return model.ProductCandidate{Item: e.item, Confidence: min(score, 1.0), MatchedBy: by, Position: pos}, true
}

// rank orders by confidence, then by where the item is mentioned, then menu order.
func rank(cs []model.ProductCandidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Confidence != cs[j].Confidence {
			return cs[i].Confidence > cs[j].Confidence
		}
		pi, pj := cs[i].Position, cs[j].Position
		if pi < 0 || pj < 0 {
			return pi >= 0 && pj < 0
		}
		return pi < pj
	})
}
