package matcher

import (
	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/textnorm"
)

// noise is ignored by the fuzzy pass: order verbs, fillers and quantity words carry no
// product information.
var noise = map[string]bool{
	"quiero": true, "queria": true, "quisiera": true, "dame": true, "mandame": true,
	"manda": true, "traeme": true, "agrega": true, "agregame": true, "agregale": true,
	"agregar": true, "suma": true, "sumale": true, "sumame": true, "pone": true,
	"poneme": true, "ponele": true, "pedir": true, "pido": true, "pedido": true,
	"porfa": true, "favor": true, "mas": true, "tambien": true, "solo": true,
	"solamente": true, "unicamente": true, "hola": true, "gracias": true, "quita": true,
	"quitame": true, "quitale": true, "saca": true, "sacame": true, "sacale": true,
	"elimina": true, "eliminame": true, "borra": true, "borrame": true, "remueve": true,
	"cambia": true, "cambiame": true, "mejor": true, "otra": true, "otro": true,
	"otras": true, "otros": true, "dale": true, "bueno": true, "che": true, "eso": true,
	"esa": true, "esas": true, "esos": true, "tenes": true, "tienen": true, "hay": true,
	"docena": true, "docenas": true, "media": true, "par": true, "pareja": true,
	"cuarto": true, "uno": true, "dos": true, "tres": true, "cuatro": true, "cinco": true,
	"seis": true, "siete": true, "ocho": true, "nueve": true, "diez": true,
}

// QueryKeywords are the words of text that could name a product.
func QueryKeywords(text string) []string {
	var out []string
	for _, w := range textnorm.Keywords(text, 2) {
		if !noise[w] && !isDigits(w) {
			out = append(out, w)
		}
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func related(a, b string) bool {
	return wordMatches(a, b) || wordMatches(b, a)
}

// fuzzy scores each item by keyword containment and edit-distance similarity, averaged
// over the query keywords. Results stay in (0.3, 0.75].
func (ix *Index) fuzzy(tokens []token) []model.ProductCandidate {
	var words []token
	for _, t := range tokens {
		if len(t.word) > 2 && !textnorm.Stopwords[t.word] && !noise[t.word] && !isDigits(t.word) {
			words = append(words, t)
		}
	}
	if len(words) == 0 {
		return nil
	}

	var out []model.ProductCandidate
	for _, e := range ix.entries {
		total := 0.0
		pos := -1
		for _, w := range words {
			hit := false
			for _, v := range e.vocabulary {
				if related(w.word, v) {
					hit = true
					break
				}
			}
			best := 0.0
			for _, v := range e.vocabulary {
				if s := textnorm.Similarity(w.word, v); s > best {
					best = s
				}
			}
			if hit {
				total += containmentScore
			}
			if best > similarityMinimum {
				total += best * similarityWeight
			}
			if (hit || best > similarityMinimum) && pos < 0 {
				pos = w.pos
			}
		}
		score := total / float64(len(words))
		by := model.MatchedByFuzzy

		for _, w := range words {
			for _, c := range e.catKeywords {
				if related(w.word, c) {
					if score < categoryFloor {
						score = categoryFloor
						by = model.MatchedByCategory
					}
					if pos < 0 {
						pos = w.pos
					}
				}
			}
		}

		score = min(score, fuzzyCeiling)
		if score > noMatchAtOrBelow {
			out = append(out, model.ProductCandidate{Item: e.item, Confidence: score, MatchedBy: by, Position: pos})
		}
	}
	return out
}

// Suggest proposes up to n items for a message that matched nothing: items of any
// category the text mentions, otherwise the first items of the menu.
func (ix *Index) Suggest(text string, n int) []model.MenuItem {
	if n <= 0 {
		return nil
	}
	words := QueryKeywords(text)
	var out []model.MenuItem
	for _, e := range ix.entries {
		for _, w := range words {
			matched := false
			for _, c := range e.catKeywords {
				if related(w, c) {
					matched = true
					break
				}
			}
			if matched {
				out = append(out, e.item)
				break
			}
		}
		if len(out) == n {
			return out
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, e := range ix.entries {
		if len(out) == n {
			break
		}
		out = append(out, e.item)
	}
	return out
}
