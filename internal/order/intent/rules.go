package intent

import (
	"regexp"

	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/textnorm"
)

// maxShortReply bounds how many words an overloaded "sí"/"no"/"dale" reply may carry
// before it is read as part of an order instead.
const maxShortReply = 4

var (
	DefaultOffTopic = []string{
		"politica", "elecciones", "gobierno", "presidente", "deportes", "futbol", "boca",
		"river", "messi", "clima", "lluvia", "noticias", "coronavirus", "covid", "trabajo",
		"empleo", "novio", "novia", "salud", "doctor", "medicina",
	}
	DefaultEscalation = []string{
		"humano", "persona real", "hablar con alguien", "gerente", "encargado", "supervisor",
		"queja", "reclamo",
	}

	greetingPattern = regexp.MustCompile(`^(hola+|holis?|buenas|buen dia|buenos dias|buenas tardes|buenas noches|hello|hi|hey|saludos|que tal)\b`)
	digitPattern    = regexp.MustCompile(`\d`)

	affirmative = []string{
		"si", "dale", "ok", "okay", "oka", "listo", "perfecto", "correcto", "de acuerdo",
		"esta bien", "claro", "obvio", "genial", "exacto", "joya", "confirmo",
		"confirmar", "confirma", "confirmado",
	}
	// explicitConfirm can confirm inside a longer sentence ("quiero confirmar el pedido").
	explicitConfirm = []string{"confirmo", "confirmar", "confirma", "confirmado"}

	negative = []string{
		"no", "nop", "nope", "nah", "negativo", "cancelar", "cancela", "cancelo", "cancelalo",
		"olvidalo", "dejalo", "borra todo", "borrar todo", "saca todo", "quita todo", "anular", "anula",
	}
	explicitCancel = []string{
		"cancelar", "cancela", "cancelo", "cancelalo", "anular", "anula", "borrar todo", "borra todo",
		"saca todo", "quita todo", "no quiero nada",
	}

	statusPhrases = []string{
		"mi pedido", "ver pedido", "ver el pedido", "ver mi pedido", "pedido actual", "que pedi",
		"que tengo", "como va", "resumen", "cuanto es", "cuanto sale", "cuanto seria",
		"cuanto te debo", "total", "estado",
	}
	menuPhrases = []string{
		"menu", "carta", "que tienen", "que hay", "que venden", "que ofrecen", "opciones",
		"lista de precios", "precios", "sabores",
	}
	hoursPhrases = []string{
		"horario", "horarios", "a que hora", "abren", "cierran", "abierto", "abiertos", "atienden",
	}
	deliveryPhrases = []string{
		"delivery", "envio", "envios", "envian", "zona", "zonas", "reparto", "llegan a", "hacen entregas",
	}
	removePhrases = []string{
		"quita", "quitame", "quitale", "quitar", "saca", "sacame", "sacale", "sacar", "elimina",
		"eliminame", "eliminar", "borra", "borrar", "borrame", "borrale", "remueve", "ya no quiero",
	}
	replaceAllWords = []string{"solo", "solamente", "unicamente"}
	// changePhrases correct the quantity of something already ordered ("que sean 6").
	changePhrases = []string{
		"cambia a", "cambialo a", "cambiala a", "cambialos a", "cambialas a", "cambiame a",
		"que sean", "que sea", "dejalo en", "dejala en", "dejalos en", "dejalas en", "corregi",
		"corrijo",
	}
)

// message is the per-turn view rules evaluate.
type message struct {
	norm   string
	words  int
	digits bool
	draft  *model.OrderDraft
}

func (m *message) has(phrases []string) bool {
	for _, p := range phrases {
		if textnorm.ContainsWord(m.norm, p) {
			return true
		}
	}
	return false
}

func (m *message) short() bool {
	return m.words <= maxShortReply && !m.digits
}

func (m *message) yes() bool {
	if m.digits || m.has(negative) {
		return false
	}
	return m.short() && m.has(affirmative) || m.has(explicitConfirm)
}

// no is a rejection or a cancellation. A removal phrase naming what to drop
// ("ya no quiero carne") is neither.
func (m *message) no() bool {
	if m.digits || m.has(affirmative) && !m.has(explicitCancel) {
		return false
	}
	if m.has(removePhrases) && !m.has(explicitCancel) {
		return false
	}
	return m.short() && m.has(negative) || m.has(explicitCancel)
}

// Rule is one row of the ordered intent table. The first matching rule wins.
type Rule struct {
	Name  string
	Match func(m *message) bool
	// Intent resolves the outcome once the rule matched; it may look at the draft.
	Intent func(m *message) model.Intent
	// ClearsDraft marks rules whose intent starts a fresh session.
	ClearsDraft bool
}

func fixed(i model.Intent) func(*message) model.Intent {
	return func(*message) model.Intent { return i }
}

func needsDraft(i model.Intent) func(*message) model.Intent {
	return func(m *message) model.Intent {
		if m.draft.IsEmpty() {
			return model.IntentNoActiveOrder
		}
		return i
	}
}

func (c *Classifier) defaultRules() []Rule {
	return []Rule{
		{Name: "off_topic", Match: func(m *message) bool { return m.has(c.offTopic) }, Intent: fixed(model.IntentOffTopic)},
		{Name: "handoff", Match: func(m *message) bool { return m.has(c.escalation) }, Intent: fixed(model.IntentHandoff)},
		{Name: "greeting", Match: func(m *message) bool { return greetingPattern.MatchString(m.norm) }, Intent: fixed(model.IntentGreeting), ClearsDraft: true},
		{Name: "pending_accept", Match: func(m *message) bool { return m.draft.HasPending() && m.yes() }, Intent: fixed(model.IntentPendingAccept)},
		{Name: "pending_reject", Match: func(m *message) bool { return m.draft.HasPending() && m.no() }, Intent: fixed(model.IntentPendingReject)},
		{Name: "confirm", Match: (*message).yes, Intent: needsDraft(model.IntentConfirm)},
		{Name: "cancel", Match: (*message).no, Intent: needsDraft(model.IntentCancel)},
		{Name: "status", Match: func(m *message) bool { return m.has(statusPhrases) }, Intent: fixed(model.IntentStatus)},
		{Name: "menu", Match: func(m *message) bool { return m.has(menuPhrases) }, Intent: fixed(model.IntentShowMenu)},
		{Name: "hours", Match: func(m *message) bool { return m.has(hoursPhrases) }, Intent: fixed(model.IntentHours)},
		{Name: "delivery", Match: func(m *message) bool { return m.has(deliveryPhrases) }, Intent: fixed(model.IntentDelivery)},
		{Name: "remove", Match: func(m *message) bool { return m.has(removePhrases) }, Intent: fixed(model.IntentRemove)},
	}
}
