package quantity

import (
	"testing"

	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func values(tokens []model.QuantityToken) []int {
	out := make([]int, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t.Value)
	}
	return out
}

func TestLexicon_Extract(t *testing.T) {
	lex := NewLexicon()

	tests := []struct {
		name   string
		text   string
		want   []int
		source model.QuantitySource
		conf   float64
	}{
		{name: "dozens and a half digits", text: "2 docenas y media de carne", want: []int{30}, source: model.QuantityDozensAndHalf, conf: 1.0},
		{name: "dozens and a half words", text: "dos docenas y media", want: []int{30}, source: model.QuantityDozensAndHalf, conf: 1.0},
		{name: "one dozen and a half", text: "una docena y media", want: []int{18}, source: model.QuantityDozensAndHalf, conf: 1.0},
		{name: "dozen and a half", text: "docena y media de pollo", want: []int{18}, source: model.QuantityDozenAndHalf, conf: 1.0},
		{name: "two dozens", text: "quiero dos docenas", want: []int{24}, source: model.QuantityDozens, conf: 1.0},
		{name: "half dozen", text: "Media docena de humita", want: []int{6}, source: model.QuantityHalfDozen, conf: 1.0},
		{name: "dozen", text: "una docena de empanadas de pollo", want: []int{12}, source: model.QuantityDozen, conf: 1.0},
		{name: "pair", text: "un par de empanadas", want: []int{2}, source: model.QuantityPair, conf: 1.0},
		{name: "couple", text: "una pareja de tartas", want: []int{2}, source: model.QuantityPair, conf: 1.0},
		{name: "quarter", text: "un cuarto de helado", want: []int{3}, source: model.QuantityQuarter, conf: 1.0},
		{name: "digits", text: "agregá 3 más", want: []int{3}, source: model.QuantityDigits, conf: 0.9},
		{name: "number word", text: "cinco de carne", want: []int{5}, source: model.QuantityWord, conf: 0.8},
		{name: "accented number word", text: "DIEZ empanadas", want: []int{10}, source: model.QuantityWord, conf: 0.8},
		{name: "phone number discarded", text: "mi numero es 1155667788", want: []int{1}, source: model.QuantityDefault, conf: 0.5},
		{name: "zero discarded", text: "0 empanadas", want: []int{1}, source: model.QuantityDefault, conf: 0.5},
		{name: "nothing", text: "quiero empanadas", want: []int{1}, source: model.QuantityDefault, conf: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lex.Extract(tt.text)
			require.NotEmpty(t, got)
			assert.Equal(t, tt.want, values(got))
			assert.Equal(t, tt.source, got[0].Source)
			assert.Equal(t, tt.conf, got[0].Confidence)
		})
	}
}

func TestLexicon_DozenIdempotence(t *testing.T) {
	lex := NewLexicon()
	a := lex.Extract("docena")
	b := lex.Extract("una docena")

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, 12, a[0].Value)
	assert.Equal(t, a[0].Value, b[0].Value)
	assert.Equal(t, a[0].Confidence, b[0].Confidence)
	assert.Equal(t, a[0].Source, b[0].Source)
}

func TestLexicon_NoDoubleCountInsideLongerPhrase(t *testing.T) {
	lex := NewLexicon()

	scanned := lex.Scan("docena y media")
	require.Len(t, scanned, 1)
	assert.Equal(t, 18, scanned[0].Value)

	scanned = lex.Scan("2 docenas y media")
	require.Len(t, scanned, 1)
	assert.Equal(t, 30, scanned[0].Value)
}

func TestLexicon_ScanKeepsRepeatedPhrases(t *testing.T) {
	lex := NewLexicon()

	scanned := lex.Scan("media docena de carne y media de pollo")
	require.Len(t, scanned, 2)
	assert.Equal(t, []int{6, 6}, values(scanned))
	assert.Equal(t, 0, scanned[0].Position)
	assert.Equal(t, 24, scanned[1].Position)
	assert.Equal(t, model.QuantityElliptic, scanned[1].Source)

	extracted := lex.Extract("media docena de carne y media de pollo")
	require.Len(t, extracted, 1)
	assert.Equal(t, 1.0, extracted[0].Confidence)
}

func TestLexicon_DistinctQuantitiesInOrder(t *testing.T) {
	lex := NewLexicon()
	assert.Equal(t, []int{24, 6}, values(lex.Extract("2 docenas de carne y 6 de pollo")))
	assert.Equal(t, []int{2, 3}, values(lex.Extract("2 de carne y tres de pollo")))
}

func TestLexicon_CustomRules(t *testing.T) {
	lex := NewLexicon(DefaultRules()[8])
	assert.Equal(t, []int{1}, values(lex.Extract("una docena")))
	assert.Equal(t, []int{4}, values(lex.Extract("4 empanadas")))
}

func TestHelpers(t *testing.T) {
	tokens := []model.QuantityToken{{Value: 2}, {Value: 12}, Default()}
	assert.Equal(t, 12, Largest(tokens).Value)
	assert.Len(t, Explicit(tokens), 2)
	assert.True(t, Default().IsDefault())
}
