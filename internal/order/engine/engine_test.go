package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
)

const convID = "c-1"

type harness struct {
	engine    *Engine
	store     *memStore
	sink      *recordingSink
	notifier  *recordingNotifier
	customers *fakeCustomers
	clock     *clock
}

type harnessOpt func(*Deps, *model.EngineConfig)

func newHarness(t *testing.T, opts ...harnessOpt) *harness {
	t.Helper()
	h := &harness{
		store:     newMemStore(),
		sink:      &recordingSink{},
		notifier:  &recordingNotifier{},
		customers: &fakeCustomers{},
		clock:     &clock{t: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)},
	}
	deps := Deps{
		Menus:     &staticMenu{menu: scenarioMenu},
		Drafts:    h.store,
		Orders:    h.sink,
		Notifier:  h.notifier,
		Customers: h.customers,
	}
	cfg := model.EngineConfig{
		RestaurantID:     "r-1",
		IdleTimeout:      15 * time.Minute,
		FallbackTimeout:  time.Second,
		NotifyTimeout:    time.Second,
		MaxMessageLength: 1000,
	}
	for _, opt := range opts {
		opt(&deps, &cfg)
	}

	e, err := New(cfg, deps, WithClock(h.clock.now))
	require.NoError(t, err)
	h.engine = e
	return h
}

func (h *harness) send(t *testing.T, text string) *model.Response {
	t.Helper()
	resp, err := h.engine.ProcessMessage(context.Background(), convID, text)
	require.NoError(t, err)
	require.NotNil(t, resp)
	return resp
}

func (h *harness) seed(lines ...model.OrderLineItem) {
	d := model.NewDraft(convID, h.clock.now())
	d.Lines = lines
	if len(lines) > 0 {
		d.LastItemID = lines[len(lines)-1].ItemID
	}
	h.store.put(d)
}

type lineView struct {
	ItemID   string
	Quantity int
}

func view(lines []model.OrderLineItem) []lineView {
	out := make([]lineView, 0, len(lines))
	for _, l := range lines {
		out = append(out, lineView{l.ItemID, l.Quantity})
	}
	return out
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(model.EngineConfig{}, Deps{Menus: &staticMenu{}})
	assert.Error(t, err)
}

// =========== Scenarios ===========

func TestProcessMessage_DozenOfOneFlavor(t *testing.T) {
	h := newHarness(t)

	resp := h.send(t, "quiero una docena de empanadas de pollo")

	assert.Equal(t, model.IntentOrder, resp.Intent)
	assert.Equal(t, []lineView{{"2", 12}}, view(resp.Lines))
	assert.Equal(t, 84.0, resp.Total)
	assert.Equal(t, []lineView{{"2", 12}}, view(h.store.draft(convID).Lines))
}

func TestProcessMessage_HalfDozenPerFlavor(t *testing.T) {
	h := newHarness(t)

	resp := h.send(t, "media docena de carne y media de pollo")

	assert.Equal(t, model.IntentOrder, resp.Intent)
	assert.Equal(t, []lineView{{"1", 6}, {"2", 6}}, view(h.store.draft(convID).Lines))
	assert.Equal(t, 84.0, resp.Total)
}

func TestProcessMessage_ConfirmWithoutOrder(t *testing.T) {
	h := newHarness(t)

	resp := h.send(t, "confirmar")

	assert.Equal(t, model.IntentNoActiveOrder, resp.Intent)
	assert.Empty(t, h.sink.orders)
	assert.Nil(t, h.store.draft(convID))
}

func TestProcessMessage_MoreOfTheLastItem(t *testing.T) {
	h := newHarness(t)
	h.seed(model.NewLine(carne, 2, 1))

	resp := h.send(t, "agregá 3 más")

	assert.Equal(t, model.IntentOrder, resp.Intent)
	assert.Equal(t, []lineView{{"1", 5}}, view(h.store.draft(convID).Lines))
}

func TestProcessMessage_IdleDraftStartsOver(t *testing.T) {
	h := newHarness(t)
	h.seed(model.NewLine(carne, 2, 1))
	h.clock.advance(16 * time.Minute)

	resp := h.send(t, "2 empanadas de pollo")

	assert.True(t, resp.SessionRestarted)
	assert.Contains(t, resp.Text, textSessionExpired)
	assert.Equal(t, []lineView{{"2", 2}}, view(h.store.draft(convID).Lines))
}

func TestProcessMessage_ActivityKeepsDraftAlive(t *testing.T) {
	h := newHarness(t)
	h.send(t, "2 de carne")
	h.clock.advance(10 * time.Minute)
	h.send(t, "2 de pollo")
	h.clock.advance(10 * time.Minute)

	resp := h.send(t, "cuánto es")

	assert.Equal(t, model.IntentStatus, resp.Intent)
	assert.False(t, resp.SessionRestarted)
	assert.Equal(t, []lineView{{"1", 2}, {"2", 2}}, view(resp.Lines))
}

// =========== Clarification ===========

func TestProcessMessage_AmbiguousOrderAsksFirst(t *testing.T) {
	h := newHarness(t)

	resp := h.send(t, "quiero empanadas")

	assert.Equal(t, model.IntentClarification, resp.Intent)
	assert.ElementsMatch(t, []string{carne.Name, pollo.Name}, resp.Options)
	assert.Nil(t, h.store.draft(convID))
}

func TestProcessMessage_GenericTermWithQuantityAsksFirst(t *testing.T) {
	h := newHarness(t)

	resp := h.send(t, "quiero 6 empanadas")

	assert.Equal(t, model.IntentClarification, resp.Intent)
	assert.Nil(t, h.store.draft(convID))
}

func TestProcessMessage_MissingQuantityIsAsked(t *testing.T) {
	h := newHarness(t)

	resp := h.send(t, "quiero empanadas de carne")
	assert.Equal(t, model.IntentQuantityNeeded, resp.Intent)
	assert.Contains(t, resp.Text, "¿Cuántas")

	resp = h.send(t, "confirmar")
	assert.Equal(t, model.IntentNotConfirmable, resp.Intent)
	assert.Empty(t, h.sink.orders)

	resp = h.send(t, "6")
	assert.Equal(t, model.IntentOrder, resp.Intent)
	d := h.store.draft(convID)
	assert.Equal(t, []lineView{{"1", 6}}, view(d.Lines))
	assert.False(t, d.Lines[0].QuantityPending)
}

// =========== Destructive changes ===========

func TestProcessMessage_ReplaceIsStagedUntilAccepted(t *testing.T) {
	h := newHarness(t)
	h.seed(model.NewLine(carne, 6, 1), model.NewLine(pollo, 6, 1))

	resp := h.send(t, "solo quiero 3 de pollo")
	assert.Equal(t, model.IntentPendingConfirm, resp.Intent)
	assert.Equal(t, model.PendingReplaceProposed, resp.PendingAction)
	assert.Equal(t, []string{"sí", "no"}, resp.Options)
	assert.Equal(t, []lineView{{"1", 6}, {"2", 6}}, view(h.store.draft(convID).Lines))

	resp = h.send(t, "sí")
	assert.Equal(t, model.IntentPendingAccept, resp.Intent)
	d := h.store.draft(convID)
	assert.Equal(t, []lineView{{"2", 3}}, view(d.Lines))
	assert.False(t, d.HasPending())
}

func TestProcessMessage_ReplaceRejected(t *testing.T) {
	h := newHarness(t)
	h.seed(model.NewLine(carne, 6, 1), model.NewLine(pollo, 6, 1))

	h.send(t, "solo quiero 3 de pollo")
	resp := h.send(t, "no")

	assert.Equal(t, model.IntentPendingReject, resp.Intent)
	d := h.store.draft(convID)
	assert.Equal(t, []lineView{{"1", 6}, {"2", 6}}, view(d.Lines))
	assert.False(t, d.HasPending())
}

func TestProcessMessage_PendingProposalLapses(t *testing.T) {
	h := newHarness(t)
	h.seed(model.NewLine(carne, 6, 1), model.NewLine(pollo, 6, 1))

	h.send(t, "solo quiero 3 de pollo")
	resp := h.send(t, "2 de carne")

	assert.Equal(t, model.IntentOrder, resp.Intent)
	assert.Empty(t, resp.PendingAction)
	d := h.store.draft(convID)
	assert.False(t, d.HasPending())
	assert.Equal(t, []lineView{{"1", 8}, {"2", 6}}, view(d.Lines))
}

func TestProcessMessage_RemoveNamedItem(t *testing.T) {
	h := newHarness(t)
	h.seed(model.NewLine(carne, 6, 1), model.NewLine(pollo, 6, 1))

	resp := h.send(t, "sacá las de pollo")

	assert.Equal(t, model.IntentItemRemoved, resp.Intent)
	assert.Equal(t, []lineView{{"1", 6}}, view(h.store.draft(convID).Lines))
}

func TestProcessMessage_ShortRemovalKeepsTheRest(t *testing.T) {
	h := newHarness(t)
	h.seed(model.NewLine(carne, 12, 1), model.NewLine(pollo, 6, 1))

	resp := h.send(t, "ya no quiero carne")

	assert.Equal(t, model.IntentItemRemoved, resp.Intent)
	assert.Equal(t, []lineView{{"2", 6}}, view(h.store.draft(convID).Lines))
}

func TestProcessMessage_RemoveFromEmptyDraft(t *testing.T) {
	h := newHarness(t)

	resp := h.send(t, "sacá las de pollo")

	assert.Equal(t, model.IntentNoActiveOrder, resp.Intent)
}

func TestProcessMessage_Cancel(t *testing.T) {
	h := newHarness(t)
	h.seed(model.NewLine(carne, 6, 1))

	resp := h.send(t, "cancelar")

	assert.Equal(t, model.IntentCancel, resp.Intent)
	assert.Nil(t, h.store.draft(convID))
}

// =========== Quantity corrections ===========

func TestProcessMessage_QuantityCorrectionSets(t *testing.T) {
	tests := []string{
		"cambiá a 6 las de carne",
		"mejor que sean 6 de carne",
		"que sean 6",
		"dejalo en 6",
	}

	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			h := newHarness(t)
			h.seed(model.NewLine(pollo, 2, 1), model.NewLine(carne, 12, 1))

			resp := h.send(t, text)

			assert.Equal(t, model.IntentOrder, resp.Intent)
			assert.Contains(t, resp.Text, "Cambié a")
			assert.Equal(t, []lineView{{"2", 2}, {"1", 6}}, view(h.store.draft(convID).Lines))
		})
	}
}

func TestProcessMessage_CorrectionOfNewItemAdds(t *testing.T) {
	h := newHarness(t)
	h.seed(model.NewLine(carne, 12, 1))

	resp := h.send(t, "que sean 3 de pollo")

	assert.Equal(t, model.IntentOrder, resp.Intent)
	assert.Equal(t, []lineView{{"1", 12}, {"2", 3}}, view(h.store.draft(convID).Lines))
}

// =========== Confirmation ===========

func TestProcessMessage_Confirm(t *testing.T) {
	h := newHarness(t)
	h.seed(model.NewLine(carne, 2, 1), model.NewLine(pollo, 3, 1))

	resp := h.send(t, "confirmar")
	h.engine.Wait()

	assert.Equal(t, model.IntentConfirm, resp.Intent)
	assert.Equal(t, "ORD-1001", resp.ConfirmedOrderID)
	assert.Equal(t, 35.0, resp.Total)
	assert.Contains(t, resp.Text, "ORD-1001")

	require.Len(t, h.sink.orders, 1)
	assert.Equal(t, []lineView{{"1", 2}, {"2", 3}}, view(h.sink.orders[0].Lines))
	require.Len(t, h.notifier.confirmed, 1)
	assert.Equal(t, "ORD-1001", h.notifier.confirmed[0].ID)
	assert.Equal(t, []string{convID}, h.customers.recorded)
	assert.Nil(t, h.store.draft(convID))
}

func TestProcessMessage_ConfirmSurvivesNotifierFailure(t *testing.T) {
	h := newHarness(t)
	h.notifier.err = errors.New("sns down")
	h.seed(model.NewLine(carne, 2, 1))

	resp := h.send(t, "confirmar")
	h.engine.Wait()

	assert.Equal(t, model.IntentConfirm, resp.Intent)
	assert.Len(t, h.notifier.confirmed, 1)
}

func TestProcessMessage_ConfirmSinkFailureKeepsDraft(t *testing.T) {
	h := newHarness(t)
	h.sink.err = errors.New("insert failed")
	h.seed(model.NewLine(carne, 2, 1))

	resp, err := h.engine.ProcessMessage(context.Background(), convID, "confirmar")

	require.Error(t, err)
	assert.True(t, errx.IsKind(err, errx.KindStoreUnavailable))
	assert.Equal(t, model.IntentTechnicalError, resp.Intent)
	assert.Equal(t, []lineView{{"1", 2}}, view(h.store.draft(convID).Lines))
}

func TestProcessMessage_ConfirmRetryAfterClearFailure(t *testing.T) {
	h := newHarness(t)
	h.seed(model.NewLine(carne, 2, 1))
	h.store.clearErr = errors.New("connection reset")

	for range 2 {
		resp, err := h.engine.ProcessMessage(context.Background(), convID, "confirmar")
		require.Error(t, err)
		assert.True(t, errx.IsKind(err, errx.KindStoreUnavailable))
		assert.Equal(t, model.IntentTechnicalError, resp.Intent)
	}
	h.engine.Wait()

	assert.Len(t, h.sink.orders, 1)
	assert.Empty(t, h.notifier.confirmed, "nothing is announced before the draft is cleared")
	assert.Empty(t, h.customers.recorded)
	assert.Equal(t, []lineView{{"1", 2}}, view(h.store.draft(convID).Lines))

	h.store.clearErr = nil
	resp := h.send(t, "confirmar")
	h.engine.Wait()

	assert.Equal(t, model.IntentConfirm, resp.Intent)
	assert.Equal(t, "ORD-1001", resp.ConfirmedOrderID)
	assert.Len(t, h.sink.orders, 1)
	require.Len(t, h.notifier.confirmed, 1)
	assert.Equal(t, "ORD-1001", h.notifier.confirmed[0].ID)
	assert.Equal(t, []string{convID}, h.customers.recorded)
	assert.Nil(t, h.store.draft(convID))
}

// =========== Failures ===========

func TestProcessMessage_StoreReadFailure(t *testing.T) {
	h := newHarness(t)
	h.store.getErr = errors.New("connection refused")

	resp, err := h.engine.ProcessMessage(context.Background(), convID, "2 de carne")

	require.Error(t, err)
	assert.True(t, errx.IsKind(err, errx.KindStoreUnavailable))
	assert.Equal(t, model.IntentTechnicalError, resp.Intent)
	assert.Equal(t, textTechnical, resp.Text)
}

func TestProcessMessage_StoreWriteFailure(t *testing.T) {
	h := newHarness(t)
	h.seed(model.NewLine(carne, 2, 1))
	h.store.saveErr = errors.New("connection refused")

	resp, err := h.engine.ProcessMessage(context.Background(), convID, "2 de pollo")

	require.Error(t, err)
	assert.Equal(t, model.IntentTechnicalError, resp.Intent)
	assert.Equal(t, []lineView{{"1", 2}}, view(h.store.draft(convID).Lines))
}

func TestProcessMessage_MenuFailure(t *testing.T) {
	h := newHarness(t, func(d *Deps, _ *model.EngineConfig) {
		d.Menus = &staticMenu{err: errors.New("timeout")}
	})

	resp, err := h.engine.ProcessMessage(context.Background(), convID, "2 de carne")

	assert.True(t, errx.IsKind(err, errx.KindStoreUnavailable))
	assert.Equal(t, model.IntentTechnicalError, resp.Intent)
}

func TestProcessMessage_EmptyMenu(t *testing.T) {
	h := newHarness(t, func(d *Deps, _ *model.EngineConfig) {
		d.Menus = &staticMenu{}
	})

	assert.Equal(t, model.IntentNoMenu, h.send(t, "2 de carne").Intent)
	assert.Equal(t, model.IntentNoMenu, h.send(t, "ver el menú").Intent)
}

func TestProcessMessage_InvalidInput(t *testing.T) {
	h := newHarness(t)

	resp, err := h.engine.ProcessMessage(context.Background(), "  ", "hola")
	assert.True(t, errx.IsKind(err, errx.KindInvalidInput))
	assert.Equal(t, model.IntentTechnicalError, resp.Intent)

	resp = h.send(t, "   ")
	assert.Equal(t, model.IntentEmptyMessage, resp.Intent)
	assert.Equal(t, 0, h.store.saves)
}

func TestProcessMessage_TruncatesLongMessages(t *testing.T) {
	h := newHarness(t, func(_ *Deps, cfg *model.EngineConfig) {
		cfg.MaxMessageLength = 10
	})

	resp := h.send(t, "2 de carne y muchísimo texto que nadie va a leer hola")

	assert.Equal(t, model.IntentOrder, resp.Intent)
	assert.Equal(t, []lineView{{"1", 2}}, view(resp.Lines))
}

// =========== Fallback ===========

func TestProcessMessage_FallbackItems(t *testing.T) {
	fb := &fakeFallback{res: &model.FallbackResult{
		Intent:     model.IntentOrder,
		Items:      []model.FallbackItem{{ItemID: "2", Quantity: 6, Confidence: 0.8}},
		Confidence: 0.8,
	}}
	h := newHarness(t, func(d *Deps, _ *model.EngineConfig) { d.Fallback = fb })

	resp := h.send(t, "lo de siempre")

	assert.Equal(t, model.IntentOrder, resp.Intent)
	assert.Equal(t, []lineView{{"2", 6}}, view(h.store.draft(convID).Lines))
	assert.Equal(t, int32(1), fb.calls.Load())
}

func TestProcessMessage_FallbackQuantityCorrection(t *testing.T) {
	fb := &fakeFallback{res: &model.FallbackResult{
		Intent:     model.IntentOrder,
		Action:     model.LineChangeQuantity,
		Items:      []model.FallbackItem{{ItemID: "1", Quantity: 6, Confidence: 0.9}},
		Confidence: 0.9,
	}}
	h := newHarness(t, func(d *Deps, _ *model.EngineConfig) { d.Fallback = fb })
	h.seed(model.NewLine(carne, 12, 1), model.NewLine(pollo, 6, 1))

	resp := h.send(t, "lo de siempre")

	assert.Equal(t, model.IntentOrder, resp.Intent)
	assert.Equal(t, []lineView{{"1", 6}, {"2", 6}}, view(h.store.draft(convID).Lines))
}

func TestProcessMessage_FallbackReplaceIsStaged(t *testing.T) {
	fb := &fakeFallback{res: &model.FallbackResult{
		Intent:     model.IntentOrder,
		Action:     model.LineReplaceAll,
		Items:      []model.FallbackItem{{ItemID: "2", Quantity: 3, Confidence: 0.9}},
		Confidence: 0.9,
	}}
	h := newHarness(t, func(d *Deps, _ *model.EngineConfig) { d.Fallback = fb })
	h.seed(model.NewLine(carne, 12, 1))

	resp := h.send(t, "lo de siempre")

	assert.Equal(t, model.IntentPendingConfirm, resp.Intent)
	assert.Equal(t, model.PendingReplaceProposed, resp.PendingAction)
	assert.Equal(t, []lineView{{"1", 12}}, view(h.store.draft(convID).Lines))
}

func TestProcessMessage_FallbackNoiseIsDropped(t *testing.T) {
	fb := &fakeFallback{res: &model.FallbackResult{
		Intent:     model.IntentOrder,
		Items:      []model.FallbackItem{{ItemID: "2", Quantity: 6, Confidence: 0.3}},
		Confidence: 0.9,
	}}
	h := newHarness(t, func(d *Deps, _ *model.EngineConfig) { d.Fallback = fb })

	resp := h.send(t, "lo de siempre")

	assert.Equal(t, model.IntentNoMatch, resp.Intent)
	assert.Nil(t, h.store.draft(convID))
}

func TestProcessMessage_FallbackSeesTheCustomer(t *testing.T) {
	fb := &fakeFallback{res: &model.FallbackResult{}}
	h := newHarness(t, func(d *Deps, _ *model.EngineConfig) { d.Fallback = fb })
	h.customers.profile = &model.CustomerProfile{ConversationID: convID, Name: "Lucía", OrderCount: 12}
	h.seed(model.NewLine(carne, 2, 1))

	h.send(t, "lo de siempre")

	req := fb.last.Load()
	require.NotNil(t, req)
	assert.Equal(t, model.TierVIP, req.Tier)
	assert.Equal(t, convID, req.ConversationID)
	assert.Equal(t, []lineView{{"1", 2}}, view(req.Draft.Lines))
}

func TestProcessMessage_FallbackCannotConfirm(t *testing.T) {
	fb := &fakeFallback{res: &model.FallbackResult{Intent: model.IntentConfirm, Confidence: 0.95}}
	h := newHarness(t, func(d *Deps, _ *model.EngineConfig) { d.Fallback = fb })
	h.seed(model.NewLine(carne, 2, 1))

	resp := h.send(t, "lo de siempre")

	assert.Equal(t, model.IntentNoMatch, resp.Intent)
	assert.Empty(t, h.sink.orders)
}

func TestProcessMessage_FallbackTimeout(t *testing.T) {
	fb := &fakeFallback{block: make(chan struct{})}
	t.Cleanup(func() { close(fb.block) })
	h := newHarness(t, func(d *Deps, cfg *model.EngineConfig) {
		d.Fallback = fb
		cfg.FallbackTimeout = 20 * time.Millisecond
	})

	start := time.Now()
	resp := h.send(t, "lo de siempre")

	assert.Equal(t, model.IntentNoMatch, resp.Intent)
	assert.Less(t, time.Since(start), time.Second)
}

func TestProcessMessage_FallbackErrorIsNoMatch(t *testing.T) {
	fb := &fakeFallback{err: errors.New("quota exceeded")}
	h := newHarness(t, func(d *Deps, _ *model.EngineConfig) { d.Fallback = fb })

	resp := h.send(t, "quiero sushi")

	assert.Equal(t, model.IntentNoMatch, resp.Intent)
	assert.Contains(t, resp.Text, "No encontré")
}

// =========== Conversation ===========

func TestProcessMessage_GreetingStartsFresh(t *testing.T) {
	h := newHarness(t)
	h.seed(model.NewLine(carne, 2, 1))

	resp := h.send(t, "hola")

	assert.Equal(t, model.IntentGreeting, resp.Intent)
	assert.Nil(t, h.store.draft(convID))
	assert.Equal(t, 1, h.store.clears)
}

func TestProcessMessage_GreetingUsesProfile(t *testing.T) {
	h := newHarness(t)
	last := h.clock.now().Add(-48 * time.Hour)
	h.customers.profile = &model.CustomerProfile{ConversationID: convID, Name: "Lucía", OrderCount: 12, LastOrderAt: &last}

	resp := h.send(t, "hola")

	assert.Contains(t, resp.Text, "Lucía")
}

func TestProcessMessage_OffTopicKeepsDraft(t *testing.T) {
	h := newHarness(t)
	h.seed(model.NewLine(carne, 2, 1))

	resp := h.send(t, "qué opinás del fútbol")

	assert.Equal(t, model.IntentOffTopic, resp.Intent)
	assert.Equal(t, []lineView{{"1", 2}}, view(h.store.draft(convID).Lines))
}

func TestProcessMessage_Handoff(t *testing.T) {
	h := newHarness(t)

	resp := h.send(t, "quiero hablar con un humano")
	h.engine.Wait()

	assert.Equal(t, model.IntentHandoff, resp.Intent)
	require.Len(t, h.notifier.handoffs, 1)
	assert.Contains(t, h.notifier.handoffs[0], convID)
}

func TestProcessMessage_ShowMenu(t *testing.T) {
	h := newHarness(t)

	resp := h.send(t, "ver el menú")

	assert.Equal(t, model.IntentShowMenu, resp.Intent)
	assert.Contains(t, resp.Text, "Empanadas")
	assert.Contains(t, resp.Text, carne.Name)
}

func TestProcessMessage_PrunesItemsLeftOffTheMenu(t *testing.T) {
	h := newHarness(t)
	atun := model.MenuItem{ID: "9", Name: "Empanada de atún", Price: 8, Category: "Empanadas"}
	h.seed(model.NewLine(carne, 2, 1), model.NewLine(atun, 1, 1))

	resp := h.send(t, "2 de pollo")

	assert.Contains(t, resp.Text, "Empanada de atún ya no está disponible")
	assert.Equal(t, []lineView{{"1", 2}, {"2", 2}}, view(h.store.draft(convID).Lines))
}

func TestProcessMessage_RateLimited(t *testing.T) {
	limiter := &fixedLimiter{allow: false}
	h := newHarness(t, func(d *Deps, _ *model.EngineConfig) { d.Limiter = limiter })

	resp := h.send(t, "2 de carne")

	assert.Equal(t, model.IntentRateLimited, resp.Intent)
	assert.Equal(t, 1, limiter.calls)
	assert.Nil(t, h.store.draft(convID))
}

func TestProcessMessage_RateLimiterDownFailsOpen(t *testing.T) {
	limiter := &fixedLimiter{err: errors.New("redis down")}
	h := newHarness(t, func(d *Deps, _ *model.EngineConfig) { d.Limiter = limiter })

	assert.Equal(t, model.IntentOrder, h.send(t, "2 de carne").Intent)
}

func TestProcessMessage_ClosedHours(t *testing.T) {
	settings, err := model.ParseSettings([]byte(`{
		"restaurantName": "La Esquina",
		"timezone": "UTC",
		"openingHours": "{\"monday\": {\"open\": \"09:00\", \"close\": \"10:00\"}}"
	}`))
	require.NoError(t, err)
	h := newHarness(t, func(d *Deps, _ *model.EngineConfig) {
		d.Settings = staticSettings{settings: settings}
	})

	resp := h.send(t, "2 de carne")
	assert.Equal(t, model.IntentClosed, resp.Intent)
	assert.Nil(t, h.store.draft(convID))

	assert.Equal(t, model.IntentGreeting, h.send(t, "hola").Intent)
	assert.Equal(t, model.IntentHours, h.send(t, "a qué hora abren").Intent)
}

// =========== Concurrency ===========

func TestProcessMessage_SerializesTurnsPerConversation(t *testing.T) {
	h := newHarness(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.engine.ProcessMessage(context.Background(), convID, "2 de carne")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	d := h.store.draft(convID)
	require.NotNil(t, d)
	assert.Equal(t, []lineView{{"1", 20}}, view(d.Lines))
	assert.Equal(t, 0, h.engine.locks.size())
}

func TestProcessMessage_ConversationsAreIndependent(t *testing.T) {
	h := newHarness(t)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.engine.ProcessMessage(context.Background(), fmt.Sprintf("c-%d", i+10), "2 de pollo")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		d := h.store.draft(fmt.Sprintf("c-%d", i+10))
		require.NotNil(t, d)
		assert.Equal(t, []lineView{{"2", 2}}, view(d.Lines))
	}
}
