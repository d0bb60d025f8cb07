// Package engine runs one conversational turn: classify the message, extract order lines,
// apply them to the draft and describe the outcome. Sending the reply is left to the caller.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/clarify"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/combiner"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/draft"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/intent"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/metrics"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/quantity"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
)

// Deps are the collaborators of the engine. Menus, Drafts and Orders are required.
type Deps struct {
	Menus     model.MenuProvider
	Drafts    model.DraftStore
	Orders    model.OrderSink
	Settings  model.SettingsProvider
	Fallback  model.FallbackClassifier
	Notifier  model.NotificationSink
	Customers model.CustomerDirectory
	Limiter   model.RateLimiter
}

type Engine struct {
	cfg      model.EngineConfig
	deps     Deps
	machine  *draft.Machine
	lexicon  *quantity.Lexicon
	combiner *combiner.Combiner
	policy   *clarify.Policy
	locks    *keyedMutex
	notifies sync.WaitGroup
	log      zerolog.Logger
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, for idle-timeout and opening-hours checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func New(cfg model.EngineConfig, deps Deps, opts ...Option) (*Engine, error) {
	if deps.Menus == nil || deps.Drafts == nil || deps.Orders == nil {
		return nil, fmt.Errorf("engine: menu provider, draft store and order sink are required")
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = 10 * time.Second
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 5 * time.Second
	}

	return &Engine{
		cfg:      cfg,
		deps:     deps,
		machine:  draft.New(cfg.IdleTimeout, draft.WithClock(o.now)),
		lexicon:  quantity.NewLexicon(),
		combiner: combiner.New(),
		policy:   clarify.New(),
		locks:    newKeyedMutex(),
		log:      logx.Component("engine"),
	}, nil
}

// turn is the working state of one message.
type turn struct {
	model.ConversationContext
	text      string
	now       time.Time
	settings  *model.RestaurantSettings
	stored    *model.OrderDraft
	menu      model.Menu
	menuOK    bool
	profileOK bool
	notes     []string
	// committed runs once the draft write succeeded.
	committed []func()
}

// ProcessMessage handles one inbound message. The response is never nil. A non-nil error
// reports an infrastructure failure; the response then carries the technical message and
// the stored draft is left untouched.
func (e *Engine) ProcessMessage(ctx context.Context, conversationID, text string) (*model.Response, error) {
	start := time.Now()
	metrics.ActiveTurns.Inc()
	defer metrics.ActiveTurns.Dec()

	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		err := errx.New(errors.New("conversation id is empty"), errx.KindInvalidInput, http.StatusBadRequest, "conversation id is required")
		return &model.Response{Intent: model.IntentTechnicalError, Text: textTechnical}, err
	}
	text = truncate(strings.TrimSpace(text), e.cfg.MaxMessageLength)
	if text == "" {
		return &model.Response{Intent: model.IntentEmptyMessage, Text: textEmpty}, nil
	}

	unlock, err := e.locks.Lock(ctx, conversationID)
	if err != nil {
		return &model.Response{Intent: model.IntentTechnicalError, Text: textTechnical}, errx.StoreUnavailable(err, "conversation lock")
	}
	defer unlock()

	resp, err := e.turn(ctx, conversationID, text)
	if err != nil {
		kind := errx.KindOf(err)
		metrics.TurnsFailed.WithLabelValues(string(kind)).Inc()
		e.log.Error().Err(err).
			Str("conversation_id", conversationID).
			Str("error_kind", string(kind)).
			Msg("turn aborted")
		resp = &model.Response{Intent: model.IntentTechnicalError, Text: textTechnical}
	}

	metrics.TurnsProcessed.WithLabelValues(string(resp.Intent)).Inc()
	metrics.TurnDuration.WithLabelValues(string(resp.Intent)).Observe(time.Since(start).Seconds())
	return resp, err
}

// Wait blocks until in-flight notifications are done.
func (e *Engine) Wait() {
	e.notifies.Wait()
}

func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func wrapStore(err error, msg string) error {
	if err == nil || errx.IsKind(err, errx.KindStoreUnavailable) {
		return err
	}
	return errx.StoreUnavailable(err, msg)
}

func (e *Engine) turn(ctx context.Context, id, text string) (*model.Response, error) {
	t := &turn{
		ConversationContext: model.ConversationContext{ConversationID: id},
		text:                text,
		now:                 e.machine.Now(),
	}

	settings, err := e.settings(ctx)
	if err != nil {
		return nil, err
	}
	t.settings = settings

	if limit := settings.MaxMessagesPerHour; limit > 0 && e.deps.Limiter != nil {
		allowed, err := e.deps.Limiter.Allow(ctx, id, limit)
		switch {
		case err != nil:
			e.log.Warn().Err(err).Str("conversation_id", id).Msg("rate limiter unavailable, allowing message")
		case !allowed:
			return &model.Response{Intent: model.IntentRateLimited, Text: textRateLimited}, nil
		}
	}

	stored, err := e.deps.Drafts.Get(ctx, id)
	if err != nil {
		return nil, wrapStore(err, "load draft")
	}
	t.stored = stored
	if stored != nil {
		t.LastActivityAt = stored.LastActivityAt
	}
	switch {
	case stored == nil:
		t.Draft = e.machine.Start(id)
	case e.machine.Expire(stored):
		t.SessionRestarted = !stored.IsEmpty()
		t.Draft = e.machine.Start(id)
		e.log.Info().Str("conversation_id", id).Time("last_activity_at", stored.LastActivityAt).Msg("draft expired")
	default:
		t.Draft = stored.Clone()
	}

	if !t.Draft.IsEmpty() {
		if err := e.prune(ctx, t); err != nil {
			return nil, err
		}
	}

	cls := intent.New(
		intent.WithOffTopic(settings.OffTopicKeywords...),
		intent.WithEscalation(settings.EscalationKeywords...),
	).Classify(text, t.Draft)

	e.log.Debug().
		Str("conversation_id", id).
		Str("intent", string(cls.Intent)).
		Str("rule", cls.Rule).
		Str("draft_state", string(draft.StateOf(t.Draft))).
		Bool("replace_all", cls.ReplaceAll).
		Bool("change_quantity", cls.ChangeQuantity).
		Msg("message classified")

	if !settings.IsOpen(t.now) && !answeredWhenClosed[cls.Intent] {
		return &model.Response{Intent: model.IntentClosed, Text: closedText(settings, t.now)}, nil
	}

	// an unanswered proposal lapses as soon as the customer moves on
	if t.Draft.HasPending() && cls.Intent != model.IntentPendingAccept && cls.Intent != model.IntentPendingReject {
		t.Draft, _, _ = e.machine.Resolve(t.Draft, false)
	}

	resp, err := e.dispatch(ctx, t, cls)
	if err != nil {
		return nil, err
	}
	if err := e.persist(ctx, t); err != nil {
		return nil, err
	}
	for _, fn := range t.committed {
		fn()
	}
	return e.finish(t, resp), nil
}

var answeredWhenClosed = map[model.Intent]bool{
	model.IntentGreeting:      true,
	model.IntentOffTopic:      true,
	model.IntentHandoff:       true,
	model.IntentStatus:        true,
	model.IntentShowMenu:      true,
	model.IntentHours:         true,
	model.IntentDelivery:      true,
	model.IntentCancel:        true,
	model.IntentNoActiveOrder: true,
}

func (e *Engine) settings(ctx context.Context) (*model.RestaurantSettings, error) {
	if e.deps.Settings == nil {
		return model.DefaultSettings(), nil
	}
	s, err := e.deps.Settings.Settings(ctx, e.cfg.RestaurantID)
	if err != nil {
		return nil, wrapStore(err, "load settings")
	}
	if s == nil {
		return model.DefaultSettings(), nil
	}
	return s, nil
}

// loadMenu fetches the menu at most once per turn.
func (e *Engine) loadMenu(ctx context.Context, t *turn) (model.Menu, error) {
	if t.menuOK {
		return t.menu, nil
	}
	menu, err := e.deps.Menus.CurrentMenu(ctx, e.cfg.RestaurantID)
	if err != nil {
		return nil, wrapStore(err, "load menu")
	}
	t.menu, t.menuOK = menu, true
	return menu, nil
}

// prune drops draft lines whose item left the menu. An empty menu is treated as
// unavailable, not as "everything was removed".
func (e *Engine) prune(ctx context.Context, t *turn) error {
	menu, err := e.loadMenu(ctx, t)
	if err != nil || len(menu) == 0 {
		return err
	}
	next, dropped := e.machine.Prune(t.Draft, menu)
	if len(dropped) > 0 {
		t.Draft = next
		t.notes = append(t.notes, prunedText(dropped))
	}
	return nil
}

// persist writes the draft once: cleared when nothing is left, saved otherwise.
func (e *Engine) persist(ctx context.Context, t *turn) error {
	if t.Draft.IsEmpty() && !t.Draft.HasPending() {
		if t.stored == nil {
			return nil
		}
		return wrapStore(e.deps.Drafts.Clear(ctx, t.ConversationID), "clear draft")
	}
	t.Draft.LastActivityAt = t.now
	return wrapStore(e.deps.Drafts.Save(ctx, t.ConversationID, t.Draft), "save draft")
}

func (e *Engine) finish(t *turn, resp *model.Response) *model.Response {
	if t.SessionRestarted && resp.Intent != model.IntentGreeting {
		resp.SessionRestarted = true
		t.notes = append([]string{textSessionExpired}, t.notes...)
	}
	if len(t.notes) > 0 {
		resp.Text = strings.Join(t.notes, "\n") + "\n\n" + resp.Text
	}
	if resp.Lines == nil && !t.Draft.IsEmpty() {
		resp.Lines = append([]model.OrderLineItem(nil), t.Draft.Lines...)
		resp.Total = t.Draft.Total()
	}
	if t.Draft.HasPending() {
		resp.PendingAction = t.Draft.PendingAction
	}
	return resp
}

func reply(i model.Intent, text string) *model.Response {
	return &model.Response{Intent: i, Text: text}
}

func (e *Engine) dispatch(ctx context.Context, t *turn, cls intent.Classification) (*model.Response, error) {
	switch cls.Intent {
	case model.IntentOffTopic:
		return reply(cls.Intent, textOffTopic), nil
	case model.IntentHandoff:
		t.committed = append(t.committed, func() {
			e.notify("handoff", func(ctx context.Context) error {
				return e.deps.Notifier.HandoffRequested(ctx, t.ConversationID, t.text)
			})
		})
		return reply(cls.Intent, textHandoff), nil
	case model.IntentGreeting:
		return e.greet(ctx, t), nil
	case model.IntentPendingAccept, model.IntentPendingReject:
		return e.resolvePending(t, cls.Intent == model.IntentPendingAccept), nil
	case model.IntentConfirm:
		return e.confirm(ctx, t)
	case model.IntentCancel:
		t.Draft = e.machine.Cancel(t.Draft)
		return reply(cls.Intent, textCancelled), nil
	case model.IntentNoActiveOrder:
		return reply(cls.Intent, textNoActiveOrder), nil
	case model.IntentStatus:
		return reply(cls.Intent, summaryText(t.Draft, t.settings)), nil
	case model.IntentShowMenu:
		menu, err := e.loadMenu(ctx, t)
		if err != nil {
			return nil, err
		}
		if len(menu) == 0 {
			return reply(model.IntentNoMenu, textNoMenu), nil
		}
		return reply(cls.Intent, menuText(menu, t.settings)), nil
	case model.IntentHours:
		return reply(cls.Intent, hoursText(t.settings, t.now)), nil
	case model.IntentDelivery:
		return reply(cls.Intent, deliveryText(t.settings)), nil
	case model.IntentRemove:
		return e.remove(ctx, t)
	default:
		return e.order(ctx, t, cls)
	}
}

func (e *Engine) greet(ctx context.Context, t *turn) *model.Response {
	t.Draft = e.machine.Start(t.ConversationID)
	e.loadProfile(ctx, t)
	name := ""
	if t.Profile != nil {
		name = t.Profile.Name
	}
	return reply(model.IntentGreeting, greetingText(t.settings, t.Tier, name))
}

// loadProfile fills the customer fields of the turn at most once. It is best effort; an
// unknown or unreachable customer is treated as new.
func (e *Engine) loadProfile(ctx context.Context, t *turn) {
	if t.profileOK {
		return
	}
	t.profileOK = true
	if e.deps.Customers != nil {
		p, err := e.deps.Customers.Profile(ctx, t.ConversationID)
		if err != nil {
			e.log.Warn().Err(err).Str("conversation_id", t.ConversationID).Msg("customer profile unavailable")
		} else {
			t.Profile = p
		}
	}
	t.Tier = t.Profile.Tier(t.now)
}

func (e *Engine) resolvePending(t *turn, accept bool) *model.Response {
	proposed := t.Draft.ProposedLines
	next, action, err := e.machine.Resolve(t.Draft, accept)
	if err != nil {
		return reply(model.IntentNoActiveOrder, textNoActiveOrder)
	}
	t.Draft = next

	switch {
	case !accept:
		text := textRejected
		if !next.IsEmpty() {
			text += "\n\n" + summaryText(next, t.settings)
		}
		return reply(model.IntentPendingReject, text)
	case action == model.PendingRemoveProposed:
		return reply(model.IntentItemRemoved, removedText(proposed, next, t.settings))
	}
	if pending := pendingQuantities(next); len(pending) > 0 {
		return reply(model.IntentQuantityNeeded, "Listo, reemplacé tu pedido.\n\n"+summaryText(next, t.settings)+"\n\n"+quantityQuestion(pending))
	}
	return reply(model.IntentPendingAccept, "Listo, reemplacé tu pedido.\n\n"+summaryText(next, t.settings))
}

func (e *Engine) confirm(ctx context.Context, t *turn) (*model.Response, error) {
	order, err := e.machine.Confirm(t.Draft)
	if errors.Is(err, errx.ErrNotConfirmable) {
		switch {
		case t.Draft.IsEmpty():
			return reply(model.IntentNotConfirmable, textEmptyConfirm), nil
		case t.Draft.HasPending():
			return reply(model.IntentNotConfirmable, textPendingConfirm), nil
		}
		return reply(model.IntentNotConfirmable, quantityQuestion(pendingQuantities(t.Draft))), nil
	}
	if err != nil {
		return nil, err
	}

	orderID, err := e.deps.Orders.Finalize(ctx, *order)
	if err != nil {
		return nil, wrapStore(err, "finalize order")
	}
	if orderID == "" {
		orderID = order.ID
	}
	t.Draft = e.machine.Cancel(t.Draft)

	// The order id is derived from the draft, so a retry after a failed clear finalizes
	// the same order again instead of a second one. Nothing leaves the process until the
	// cleared draft is stored.
	notified := *order
	notified.ID = orderID
	t.committed = append(t.committed, func() {
		metrics.OrdersConfirmed.Inc()
		if e.deps.Customers != nil {
			if err := e.deps.Customers.RecordOrder(ctx, t.ConversationID, *order); err != nil {
				e.log.Warn().Err(err).Str("conversation_id", t.ConversationID).Str("order_id", orderID).Msg("record customer order failed")
			}
		}
		e.notify("order_confirmed", func(ctx context.Context) error {
			return e.deps.Notifier.OrderConfirmed(ctx, notified)
		})
		e.log.Info().
			Str("conversation_id", t.ConversationID).
			Str("order_id", orderID).
			Float64("total", order.Total).
			Int("lines", len(order.Lines)).
			Msg("order confirmed")
	})

	resp := reply(model.IntentConfirm, confirmedText(order, orderID, t.settings))
	resp.Lines = order.Lines
	resp.Total = order.Total
	resp.ConfirmedOrderID = orderID
	return resp, nil
}

// notify runs fn in the background. Failures and panics are logged and never reach the turn.
func (e *Engine) notify(kind string, fn func(ctx context.Context) error) {
	if e.deps.Notifier == nil {
		return
	}
	e.notifies.Add(1)
	go func() {
		defer e.notifies.Done()
		defer func() {
			if r := recover(); r != nil {
				e.log.Error().Str("notification", kind).Msgf("notification panic recovered: %v", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.NotifyTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			e.log.Warn().Err(err).Str("notification", kind).Msg("notification failed")
		}
	}()
}
