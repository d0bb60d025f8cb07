package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
)

// ParseMenu decodes a JSON array of menu items, rejecting items without id or name and
// negative prices.
func ParseMenu(data []byte) (model.Menu, error) {
	if strings.TrimSpace(string(data)) == "" {
		return model.Menu{}, nil
	}
	var menu model.Menu
	if err := json.Unmarshal(data, &menu); err != nil {
		return nil, fmt.Errorf("decode menu: %w", err)
	}
	seen := make(map[string]bool, len(menu))
	for i, it := range menu {
		switch {
		case strings.TrimSpace(it.ID) == "" || strings.TrimSpace(it.Name) == "":
			return nil, fmt.Errorf("menu item %d: id and name are required", i)
		case it.Price < 0:
			return nil, fmt.Errorf("menu item %s: negative price", it.ID)
		case seen[it.ID]:
			return nil, fmt.Errorf("menu item %s: duplicate id", it.ID)
		}
		seen[it.ID] = true
	}
	return menu, nil
}

// StaticMenuProvider serves a fixed menu for every restaurant.
type StaticMenuProvider struct {
	menu model.Menu
}

func NewStaticMenuProvider(menu model.Menu) *StaticMenuProvider {
	return &StaticMenuProvider{menu: menu}
}

func (p *StaticMenuProvider) CurrentMenu(context.Context, string) (model.Menu, error) {
	return append(model.Menu(nil), p.menu...), nil
}

type StaticSettingsProvider struct {
	settings *model.RestaurantSettings
}

func NewStaticSettingsProvider(s *model.RestaurantSettings) *StaticSettingsProvider {
	if s == nil {
		s = model.DefaultSettings()
	}
	return &StaticSettingsProvider{settings: s}
}

func (p *StaticSettingsProvider) Settings(context.Context, string) (*model.RestaurantSettings, error) {
	return p.settings, nil
}

// MemoryOrderSink keeps confirmed orders in process.
type MemoryOrderSink struct {
	mu     sync.Mutex
	orders []model.ConfirmedOrder
}

func NewMemoryOrderSink() *MemoryOrderSink {
	return &MemoryOrderSink{}
}

// Finalize stores order once; finalizing the same id again is a no-op.
func (s *MemoryOrderSink) Finalize(_ context.Context, order model.ConfirmedOrder) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == order.ID {
			return o.ID, nil
		}
	}
	s.orders = append(s.orders, order)
	return order.ID, nil
}

func (s *MemoryOrderSink) Orders() []model.ConfirmedOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ConfirmedOrder(nil), s.orders...)
}

// MemoryCustomerDirectory counts orders per conversation in process.
type MemoryCustomerDirectory struct {
	mu       sync.Mutex
	profiles map[string]*model.CustomerProfile
}

func NewMemoryCustomerDirectory() *MemoryCustomerDirectory {
	return &MemoryCustomerDirectory{profiles: make(map[string]*model.CustomerProfile)}
}

func (d *MemoryCustomerDirectory) Profile(_ context.Context, conversationID string) (*model.CustomerProfile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.profiles[conversationID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (d *MemoryCustomerDirectory) RecordOrder(_ context.Context, conversationID string, order model.ConfirmedOrder) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.profiles[conversationID]
	if !ok {
		p = &model.CustomerProfile{ConversationID: conversationID}
		d.profiles[conversationID] = p
	}
	at := order.CreatedAt
	p.OrderCount++
	p.LastOrderAt = &at
	return nil
}

var (
	_ model.MenuProvider      = (*StaticMenuProvider)(nil)
	_ model.SettingsProvider  = (*StaticSettingsProvider)(nil)
	_ model.OrderSink         = (*MemoryOrderSink)(nil)
	_ model.CustomerDirectory = (*MemoryCustomerDirectory)(nil)
)
