package repo

import (
	"context"
	"sync"

	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
)

// MemoryDraftStore is the single-process DraftStore used by the demo and tests.
type MemoryDraftStore struct {
	mu     sync.RWMutex
	drafts map[string]*model.OrderDraft
}

func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{drafts: make(map[string]*model.OrderDraft)}
}

func (m *MemoryDraftStore) Get(_ context.Context, conversationID string) (*model.OrderDraft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drafts[conversationID].Clone(), nil
}

func (m *MemoryDraftStore) Save(_ context.Context, conversationID string, draft *model.OrderDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[conversationID] = draft.Clone()
	return nil
}

func (m *MemoryDraftStore) Clear(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, conversationID)
	return nil
}

var _ model.DraftStore = (*MemoryDraftStore)(nil)
