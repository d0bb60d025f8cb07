package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
)

var (
	carne        = model.MenuItem{ID: "1", Name: "Empanada de carne", Price: 7, Category: "Empanadas"}
	pollo        = model.MenuItem{ID: "2", Name: "Empanada de pollo", Price: 7, Category: "Empanadas"}
	scenarioMenu = model.Menu{carne, pollo}
)

type staticMenu struct {
	menu model.Menu
	err  error
}

func (s *staticMenu) CurrentMenu(context.Context, string) (model.Menu, error) {
	return s.menu, s.err
}

type memStore struct {
	mu      sync.Mutex
	drafts  map[string]*model.OrderDraft
	getErr   error
	saveErr  error
	clearErr error
	saves    int
	clears   int
}

func newMemStore() *memStore {
	return &memStore{drafts: map[string]*model.OrderDraft{}}
}

func (s *memStore) Get(_ context.Context, id string) (*model.OrderDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.drafts[id].Clone(), nil
}

func (s *memStore) Save(_ context.Context, id string, d *model.OrderDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.drafts[id] = d.Clone()
	return nil
}

func (s *memStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	s.clears++
	delete(s.drafts, id)
	return nil
}

func (s *memStore) draft(id string) *model.OrderDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drafts[id].Clone()
}

func (s *memStore) put(d *model.OrderDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[d.ConversationID] = d.Clone()
}

// recordingSink numbers orders from ORD-1001 and finalizes each order id once.
type recordingSink struct {
	mu     sync.Mutex
	orders []model.ConfirmedOrder
	ids    map[string]string
	err    error
}

func (s *recordingSink) Finalize(_ context.Context, o model.ConfirmedOrder) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	if id, ok := s.ids[o.ID]; ok {
		return id, nil
	}
	if s.ids == nil {
		s.ids = map[string]string{}
	}
	s.orders = append(s.orders, o)
	s.ids[o.ID] = fmt.Sprintf("ORD-%d", 1000+len(s.orders))
	return s.ids[o.ID], nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	confirmed []model.ConfirmedOrder
	handoffs  []string
	err       error
}

func (n *recordingNotifier) OrderConfirmed(_ context.Context, o model.ConfirmedOrder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, o)
	return n.err
}

func (n *recordingNotifier) HandoffRequested(_ context.Context, id, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handoffs = append(n.handoffs, id+": "+msg)
	return n.err
}

type fakeCustomers struct {
	mu       sync.Mutex
	profile  *model.CustomerProfile
	recorded []string
}

func (c *fakeCustomers) Profile(context.Context, string) (*model.CustomerProfile, error) {
	return c.profile, nil
}

func (c *fakeCustomers) RecordOrder(_ context.Context, id string, o model.ConfirmedOrder) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recorded = append(c.recorded, id)
	return nil
}

type fixedLimiter struct {
	allow bool
	err   error
	calls int
}

func (l *fixedLimiter) Allow(context.Context, string, int) (bool, error) {
	l.calls++
	return l.allow, l.err
}

type staticSettings struct {
	settings *model.RestaurantSettings
}

func (s staticSettings) Settings(context.Context, string) (*model.RestaurantSettings, error) {
	return s.settings, nil
}

type fakeFallback struct {
	res   *model.FallbackResult
	err   error
	block chan struct{}
	calls atomic.Int32
	last  atomic.Pointer[model.FallbackRequest]
}

func (f *fakeFallback) Classify(ctx context.Context, req model.FallbackRequest) (*model.FallbackResult, error) {
	f.calls.Add(1)
	f.last.Store(&req)
	if f.block != nil {
		<-f.block
		return nil, errors.New("unblocked")
	}
	return f.res, f.err
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
