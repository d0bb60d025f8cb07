package fallback

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
)

//go:embed template/fallback_prompt.txt
var systemPrompt string

const userPrompt = `<restaurant_menu>
{menu}
</restaurant_menu>
<current_order>
{order}
</current_order>
<customer_tier>{tier}</customer_tier>
<message_to_analyze>
{message}
</message_to_analyze>`

func newTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt),
	)
}

// variables renders the request into the template variables.
func variables(req model.FallbackRequest) map[string]any {
	return map[string]any{
		"menu":    renderMenu(req.Menu),
		"order":   renderDraft(req.Draft),
		"tier":    string(req.Tier),
		"message": req.Message,
	}
}

func renderMenu(menu model.Menu) string {
	var b strings.Builder
	for _, it := range menu {
		fmt.Fprintf(&b, "id=%s | %s | %s", it.ID, it.Name, model.CategoryOf(it))
		if d := strings.TrimSpace(it.Description); d != "" {
			fmt.Fprintf(&b, " | %s", d)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderDraft(d *model.OrderDraft) string {
	if d.IsEmpty() {
		return "(empty)"
	}
	var b strings.Builder
	for _, l := range d.Lines {
		fmt.Fprintf(&b, "id=%s | %s | x%d\n", l.ItemID, l.ItemName, l.Quantity)
	}
	return strings.TrimRight(b.String(), "\n")
}
