package model

// QuantitySource tags the lexicon rule that produced a token.
type QuantitySource string

const (
	QuantityDozensAndHalf QuantitySource = "dozens_and_half"
	QuantityDozenAndHalf  QuantitySource = "dozen_and_half"
	QuantityDozens        QuantitySource = "dozens"
	QuantityHalfDozen     QuantitySource = "half_dozen"
	QuantityDozen         QuantitySource = "dozen"
	QuantityPair          QuantitySource = "pair"
	QuantityQuarter       QuantitySource = "quarter"
	QuantityElliptic      QuantitySource = "elliptic_half"
	QuantityDigits        QuantitySource = "digits"
	QuantityWord          QuantitySource = "word"
	QuantityDefault       QuantitySource = "default"
)

type QuantityToken struct {
	Value       int            `json:"value"`
	Confidence  float64        `json:"confidence"`
	Source      QuantitySource `json:"source"`
	MatchedText string         `json:"matched_text"`
	Position    int            `json:"position"`
}

// IsDefault reports whether the customer never stated a quantity.
func (q QuantityToken) IsDefault() bool {
	return q.Source == QuantityDefault
}

type MatchSource string

const (
	MatchedByName        MatchSource = "name"
	MatchedByDescription MatchSource = "description"
	MatchedByCategory    MatchSource = "category"
	MatchedByFuzzy       MatchSource = "fuzzy"
	MatchedByFallback    MatchSource = "fallback"
	MatchedByContext     MatchSource = "context"
)

type ProductCandidate struct {
	Item       MenuItem    `json:"item"`
	Confidence float64     `json:"confidence"`
	MatchedBy  MatchSource `json:"matched_by"`
	// Position is the offset of the first matched keyword in the normalized text, -1 if unknown.
	Position int `json:"position"`
}

// StrongConfidence is the threshold at which a single candidate is accepted without asking.
const StrongConfidence = 0.8

func (c ProductCandidate) IsStrong() bool {
	return c.Confidence >= StrongConfidence
}
