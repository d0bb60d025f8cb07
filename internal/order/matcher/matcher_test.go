package matcher

import (
	"testing"

	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func empanadaMenu() model.Menu {
	return model.Menu{
		{ID: "1", Name: "Empanada de carne", Price: 7},
		{ID: "2", Name: "Empanada de pollo", Price: 7},
	}
}

func ids(cs []model.ProductCandidate) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Item.ID)
	}
	return out
}

func TestIndex_Match_FillingSelectsSibling(t *testing.T) {
	ix := NewIndex(empanadaMenu())

	got := ix.Match("quiero una docena de empanadas de pollo")
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].Item.ID)
	assert.Equal(t, 1.0, got[0].Confidence)
	assert.Equal(t, model.MatchedByName, got[0].MatchedBy)
}

func TestIndex_Match_TwoFillingsRankedByMention(t *testing.T) {
	ix := NewIndex(empanadaMenu())

	got := ix.Match("media docena de pollo y media de carne")
	require.Len(t, got, 2)
	assert.Equal(t, []string{"2", "1"}, ids(got))
	assert.InDelta(t, 0.9, got[0].Confidence, 1e-9)
	assert.InDelta(t, 0.9, got[1].Confidence, 1e-9)
	assert.Less(t, got[0].Position, got[1].Position)
}

func TestIndex_Match_GenericTermIsEquallyWeak(t *testing.T) {
	ix := NewIndex(empanadaMenu())

	got := ix.Match("quiero empanadas")
	require.Len(t, got, 2)
	assert.Equal(t, got[0].Confidence, got[1].Confidence)
	for _, c := range got {
		assert.Less(t, c.Confidence, model.StrongConfidence)
		assert.Greater(t, c.Confidence, 0.4)
		assert.Equal(t, model.MatchedByFuzzy, c.MatchedBy)
	}
}

func TestIndex_Match_AccentInsensitive(t *testing.T) {
	ix := NewIndex(model.Menu{
		{ID: "7", Name: "Empanada de jamón y queso", Price: 8},
		{ID: "1", Name: "Empanada de carne", Price: 7},
	})

	got := ix.Match("DOS EMPANADAS DE JAMON")
	require.NotEmpty(t, got)
	assert.Equal(t, "7", got[0].Item.ID)
	assert.Equal(t, 1.0, got[0].Confidence)
}

func TestIndex_Match_Description(t *testing.T) {
	ix := NewIndex(model.Menu{
		{ID: "1", Name: "Empanada de carne", Price: 7},
		{ID: "9", Name: "Especial de la casa", Description: "Empanada frita rellena de mondongo", Price: 9},
	})

	got := ix.Match("una empanada frita de mondongo")
	require.Len(t, got, 1)
	assert.Equal(t, "9", got[0].Item.ID)
	assert.Equal(t, model.MatchedByDescription, got[0].MatchedBy)
	assert.InDelta(t, 0.6, got[0].Confidence, 1e-9)
}

func TestIndex_Match_NoMatch(t *testing.T) {
	ix := NewIndex(empanadaMenu())

	assert.Empty(t, ix.Match("quiero una pizza"))
	assert.Empty(t, ix.Match("agregá 3 más"))
	assert.Empty(t, ix.Match(""))
	assert.Empty(t, NewIndex(nil).Match("empanada de carne"))
}

func TestIndex_Match_ConfidenceBounded(t *testing.T) {
	ix := NewIndex(model.Menu{
		{ID: "1", Name: "Empanada de carne picante", Description: "carne cortada a cuchillo picante", Price: 7},
	})
	got := ix.Match("empanada de carne picante cortada a cuchillo")
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].Confidence)
}

func TestIndex_Suggest(t *testing.T) {
	ix := NewIndex(model.Menu{
		{ID: "1", Name: "Empanada de carne", Category: "Empanadas"},
		{ID: "2", Name: "Empanada de pollo", Category: "Empanadas"},
		{ID: "3", Name: "Muzzarella", Category: "Pizzas"},
		{ID: "4", Name: "Fugazzeta", Category: "Pizzas"},
		{ID: "5", Name: "Flan", Category: "Postres"},
	})

	assert.Equal(t, []string{"Muzzarella", "Fugazzeta"}, names(ix.Suggest("tienen pizzas?", 3)))
	assert.Equal(t, []string{"Empanada de carne", "Empanada de pollo", "Muzzarella"}, names(ix.Suggest("algo rico", 3)))
	assert.Nil(t, ix.Suggest("algo", 0))
}

func TestQueryKeywords(t *testing.T) {
	assert.Equal(t, []string{"empanadas", "pollo"}, QueryKeywords("quiero 2 docenas de empanadas de pollo porfa"))
	assert.Empty(t, QueryKeywords("agregá 3 más"))
}

func names(items []model.MenuItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}
