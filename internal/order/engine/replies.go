package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
)

const menuItemsPerCategory = 8

const (
	textEmpty          = "¿En qué te puedo ayudar? Podés pedirme el menú o decirme qué querés pedir."
	textOffTopic       = "Acá te ayudo solo con pedidos del restaurante. ¿Querés ver el menú?"
	textHandoff        = "Te paso con una persona del equipo, en breve te responden."
	textNoActiveOrder  = "No tenés ningún pedido en curso. Decime qué querés pedir o escribí \"menú\"."
	textCancelled      = "Listo, cancelé tu pedido. Cuando quieras armamos uno nuevo."
	textRejected       = "Perfecto, dejé tu pedido como estaba."
	textNoMenu         = "En este momento no puedo mostrarte el menú. Por favor contactanos directamente."
	textTechnical      = "Tuvimos un problema técnico procesando tu mensaje. Probá de nuevo en unos minutos."
	textRateLimited    = "Recibimos muchos mensajes tuyos en la última hora. Esperá un rato y volvé a escribirnos."
	textSessionExpired = "Tu pedido anterior se venció por inactividad, empezamos de nuevo."
	textNotInOrder     = "Eso no está en tu pedido."
	textEmptyConfirm   = "Tu pedido está vacío, todavía no hay nada para confirmar."
	textPendingConfirm = "Antes de confirmar respondé la pregunta anterior con sí o no."
)

func formatMoney(v float64) string {
	v = model.RoundMoney(v)
	if v == math.Trunc(v) {
		return fmt.Sprintf("$%.0f", v)
	}
	return fmt.Sprintf("$%.2f", v)
}

func lineText(l model.OrderLineItem) string {
	return fmt.Sprintf("%d x %s", l.Quantity, l.ItemName)
}

func joinNames(names []string, conj string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " " + conj + " " + names[len(names)-1]
}

func linesList(lines []model.OrderLineItem) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, lineText(l))
	}
	return joinNames(parts, "y")
}

func categoriesOf(lines []model.OrderLineItem) []string {
	cats := make([]string, 0, len(lines))
	for _, l := range lines {
		cats = append(cats, l.Category)
	}
	return cats
}

func summaryText(d *model.OrderDraft, s *model.RestaurantSettings) string {
	if d.IsEmpty() {
		return textNoActiveOrder
	}
	var b strings.Builder
	b.WriteString("Tu pedido:\n")
	for _, l := range d.Lines {
		if l.QuantityPending {
			fmt.Fprintf(&b, "• %s (falta la cantidad)\n", l.ItemName)
			continue
		}
		fmt.Fprintf(&b, "• %s: %s\n", lineText(l), formatMoney(l.Subtotal()))
	}
	fmt.Fprintf(&b, "Total: %s (%d unidades)\n", formatMoney(d.Total()), d.ItemCount())
	fmt.Fprintf(&b, "Tiempo estimado de preparación: %d minutos.", s.PrepMinutes(categoriesOf(d.Lines)))
	return b.String()
}

func pendingQuantities(d *model.OrderDraft) []string {
	var names []string
	if d == nil {
		return nil
	}
	for _, l := range d.Lines {
		if l.QuantityPending {
			names = append(names, l.ItemName)
		}
	}
	return names
}

func quantityQuestion(names []string) string {
	return fmt.Sprintf("¿Cuántas unidades de %s querés?", joinNames(names, "y"))
}

func addedText(lines []model.OrderLineItem, d *model.OrderDraft, s *model.RestaurantSettings) string {
	return appliedText("Agregué", lines, d, s)
}

func changedText(lines []model.OrderLineItem, d *model.OrderDraft, s *model.RestaurantSettings) string {
	return appliedText("Cambié a", lines, d, s)
}

func appliedText(verb string, lines []model.OrderLineItem, d *model.OrderDraft, s *model.RestaurantSettings) string {
	var explicit []model.OrderLineItem
	for _, l := range lines {
		if !l.QuantityPending {
			explicit = append(explicit, l)
		}
	}
	var b strings.Builder
	if len(explicit) > 0 {
		fmt.Fprintf(&b, "%s %s.\n\n", verb, linesList(explicit))
	}
	b.WriteString(summaryText(d, s))
	if pending := pendingQuantities(d); len(pending) > 0 {
		b.WriteString("\n\n" + quantityQuestion(pending))
	} else {
		b.WriteString("\n\n¿Algo más? Si está todo bien escribí \"confirmar\".")
	}
	return b.String()
}

func greetingText(s *model.RestaurantSettings, tier model.CustomerTier, name string) string {
	place := "nuestro restaurante"
	if s.Name != "" {
		place = s.Name
	}
	switch tier {
	case model.TierVIP:
		who := ""
		if name != "" {
			who = " " + name
		}
		return fmt.Sprintf("¡Hola%s! Qué bueno tenerte otra vez en %s. ¿Lo de siempre o algo diferente hoy?", who, place)
	case model.TierReturning, model.TierDormant:
		return fmt.Sprintf("¡Hola de nuevo! Bienvenido a %s. ¿Qué te gustaría pedir hoy?", place)
	}
	return fmt.Sprintf("¡Hola! Bienvenido a %s. Decime qué querés pedir o escribí \"menú\" para ver las opciones.", place)
}

func menuText(menu model.Menu, s *model.RestaurantSettings) string {
	var b strings.Builder
	if s.Name != "" {
		fmt.Fprintf(&b, "Menú de %s\n", s.Name)
	} else {
		b.WriteString("Nuestro menú\n")
	}
	for _, cat := range menu.Categories() {
		fmt.Fprintf(&b, "\n%s\n", cat)
		n := 0
		for _, it := range menu {
			if model.CategoryOf(it) != cat {
				continue
			}
			if n == menuItemsPerCategory {
				b.WriteString("• y más...\n")
				break
			}
			fmt.Fprintf(&b, "• %s: %s\n", it.Name, formatMoney(it.Price))
			n++
		}
	}
	b.WriteString("\n¿Qué te gustaría pedir?")
	return b.String()
}

var dayNames = [...]string{"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado"}

func hoursText(s *model.RestaurantSettings, now time.Time) string {
	if len(s.OpeningHours) == 0 {
		return "Atendemos todos los días. ¿Querés hacer un pedido?"
	}
	var b strings.Builder
	if s.IsOpen(now) {
		b.WriteString("Estamos abiertos ahora.\n")
	} else {
		b.WriteString("Ahora estamos cerrados.\n")
	}
	b.WriteString("Nuestros horarios:")
	for d := time.Monday; ; d = (d + 1) % 7 {
		label := s.HoursFor(d)
		if label == "" {
			label = "cerrado"
		}
		fmt.Fprintf(&b, "\n• %s: %s", dayNames[d], label)
		if d == time.Sunday {
			break
		}
	}
	return b.String()
}

func closedText(s *model.RestaurantSettings, now time.Time) string {
	return "Perdón, en este momento no estamos tomando pedidos.\n\n" + hoursText(s, now)
}

func deliveryText(s *model.RestaurantSettings) string {
	if len(s.DeliveryZones) == 0 {
		return "Por ahora no hacemos envíos, podés retirar tu pedido en el local."
	}
	var b strings.Builder
	b.WriteString("Hacemos envíos a estas zonas:")
	for _, z := range s.DeliveryZones {
		fmt.Fprintf(&b, "\n• %s: %s", z.Name, formatMoney(z.Cost))
		if z.Minutes > 0 {
			fmt.Fprintf(&b, " (unos %d minutos)", z.Minutes)
		}
	}
	return b.String()
}

func clarifyText(options []string) string {
	return fmt.Sprintf("¿Cuál querés? Tenemos %s.", joinNames(options, "o"))
}

func replaceProposalText(lines []model.OrderLineItem) string {
	return fmt.Sprintf("¿Querés reemplazar todo tu pedido por %s? Respondé sí o no.", linesList(lines))
}

func removeProposalText(lines []model.OrderLineItem) string {
	return fmt.Sprintf("¿Querés que saque %s de tu pedido? Respondé sí o no.", linesList(lines))
}

func askWhichText(options []string) string {
	return fmt.Sprintf("¿Qué querés sacar? En tu pedido tenés %s.", joinNames(options, "y"))
}

func removedText(lines []model.OrderLineItem, d *model.OrderDraft, s *model.RestaurantSettings) string {
	text := fmt.Sprintf("Listo, saqué %s.", linesList(lines))
	if d.IsEmpty() {
		return text + " Tu pedido quedó vacío."
	}
	return text + "\n\n" + summaryText(d, s)
}

func noMatchText(suggestions []model.MenuItem) string {
	if len(suggestions) == 0 {
		return "No encontré eso en el menú. Escribí \"menú\" para ver lo que tenemos."
	}
	names := make([]string, 0, len(suggestions))
	for _, it := range suggestions {
		names = append(names, it.Name)
	}
	return fmt.Sprintf("No encontré eso en el menú. ¿Quizás te interesa %s?", joinNames(names, "o"))
}

func confirmedText(order *model.ConfirmedOrder, orderID string, s *model.RestaurantSettings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "¡Pedido confirmado! Número de pedido: %s\n", orderID)
	for _, l := range order.Lines {
		fmt.Fprintf(&b, "• %s: %s\n", lineText(l), formatMoney(l.Subtotal()))
	}
	fmt.Fprintf(&b, "Total: %s\n", formatMoney(order.Total))
	fmt.Fprintf(&b, "Va a estar listo en unos %d minutos. ¡Gracias!", s.PrepMinutes(categoriesOf(order.Lines)))
	return b.String()
}

func prunedText(names []string) string {
	return fmt.Sprintf("Ojo: %s ya no está disponible y lo saqué de tu pedido.", joinNames(names, "y"))
}
