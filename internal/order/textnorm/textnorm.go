// Package textnorm holds the accent-insensitive normalization shared by the lexicon,
// the matcher and the intent rules.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonWord    = regexp.MustCompile(`[^a-z0-9]+`)
	multiSpace = regexp.MustCompile(`\s+`)
)

// Stopwords never count as matching keywords.
var Stopwords = map[string]bool{
	"de": true, "con": true, "y": true, "del": true, "la": true, "el": true, "los": true,
	"las": true, "en": true, "para": true, "por": true, "sin": true, "un": true, "una": true,
	"al": true, "a": true, "o": true, "que": true, "lo": true, "le": true, "me": true,
}

// Fold lowercases s and strips combining marks (NFD). "Jamón" and "jamon" fold equally.
// ñ is folded to n as well, matching what customers type on phones without it.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// Normalize folds s, replaces punctuation with spaces and collapses whitespace.
func Normalize(s string) string {
	s = nonWord.ReplaceAllString(Fold(s), " ")
	return strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))
}

// Tokens splits normalized text into words.
func Tokens(s string) []string {
	n := Normalize(s)
	if n == "" {
		return nil
	}
	return strings.Split(n, " ")
}

// Keywords returns the distinct non-stopword tokens of s longer than minLen.
func Keywords(s string, minLen int) []string {
	var out []string
	seen := map[string]bool{}
	for _, tok := range Tokens(s) {
		if len(tok) <= minLen || Stopwords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// ContainsWord reports whether phrase occurs in normalized text on word boundaries.
func ContainsWord(normalized, phrase string) bool {
	return WordIndex(normalized, phrase) >= 0
}

// WordIndex is the byte offset of phrase on word boundaries in normalized text, or -1.
func WordIndex(normalized, phrase string) int {
	phrase = Normalize(phrase)
	if phrase == "" {
		return -1
	}
	padded := " " + normalized + " "
	i := strings.Index(padded, " "+phrase+" ")
	if i < 0 {
		return -1
	}
	return i
}

// Levenshtein is the edit distance between a and b, by runes.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// Similarity is 1 - distance/longest, in [0,1].
func Similarity(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	return 1 - float64(Levenshtein(a, b))/float64(longest)
}
