package model

import (
	"context"
	"strings"
)

// MenuItem is read-only for the engine; the menu store owns it.
type MenuItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
}

// Menu is one snapshot of the restaurant menu, in display order.
type Menu []MenuItem

func (m Menu) ByID() map[string]MenuItem {
	out := make(map[string]MenuItem, len(m))
	for _, it := range m {
		out[it.ID] = it
	}
	return out
}

func (m Menu) Lookup(id string) (MenuItem, bool) {
	for _, it := range m {
		if it.ID == id {
			return it, true
		}
	}
	return MenuItem{}, false
}

// Categories returns category names in first-seen order; items without one go under "Otros".
func (m Menu) Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, it := range m {
		c := CategoryOf(it)
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func CategoryOf(it MenuItem) string {
	if c := strings.TrimSpace(it.Category); c != "" {
		return c
	}
	return "Otros"
}

type MenuProvider interface {
	// CurrentMenu returns the menu snapshot for the restaurant. An empty menu is not an error.
	CurrentMenu(ctx context.Context, restaurantID string) (Menu, error)
}
