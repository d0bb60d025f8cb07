package engine

import (
	"context"
	"fmt"

	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/combiner"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/intent"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/metrics"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
)

// Intents a fallback guess may answer directly. Anything that commits or destroys the
// order needs the deterministic rules.
var fallbackReadOnly = map[model.Intent]bool{
	model.IntentStatus:   true,
	model.IntentShowMenu: true,
	model.IntentOffTopic: true,
}

// fromFallback asks the fallback classifier when the rules found nothing. Failures are
// logged and reported as "no answer".
func (e *Engine) fromFallback(ctx context.Context, t *turn, cls intent.Classification, menu model.Menu) (*model.Response, bool) {
	if e.deps.Fallback == nil {
		return nil, false
	}

	e.loadProfile(ctx, t)
	res, err := e.classifyFallback(ctx, model.FallbackRequest{
		ConversationID: t.ConversationID,
		Message:        t.text,
		Menu:           menu,
		Draft:          t.Draft,
		Tier:           t.Tier,
	})
	if err != nil {
		kind := errx.KindOf(err)
		metrics.FallbackCalls.WithLabelValues(string(kind)).Inc()
		e.log.Warn().Err(err).Str("conversation_id", t.ConversationID).Str("error_kind", string(kind)).Msg("fallback classifier failed")
		return nil, false
	}

	if fallbackReadOnly[res.Intent] {
		metrics.FallbackCalls.WithLabelValues("intent").Inc()
		resp, err := e.dispatch(ctx, t, intent.Classification{Intent: res.Intent, Rule: "fallback"})
		if err != nil {
			e.log.Warn().Err(err).Str("conversation_id", t.ConversationID).Msg("fallback intent could not be answered")
			return nil, false
		}
		return resp, true
	}
	if res.Intent != model.IntentOrder || len(res.Items) == 0 {
		metrics.FallbackCalls.WithLabelValues("empty").Inc()
		return nil, false
	}

	// the same noise floor as deterministic lines, whatever classifier is plugged in
	var lines []model.OrderLineItem
	for _, it := range res.Items {
		item, ok := menu.Lookup(it.ItemID)
		if !ok || it.Quantity <= 0 {
			continue
		}
		if conf := min(it.Confidence, res.Confidence); conf > combiner.DefaultMinConfidence {
			lines = append(lines, model.NewLine(item, it.Quantity, conf))
		}
	}
	if len(lines) == 0 {
		metrics.FallbackCalls.WithLabelValues("empty").Inc()
		return nil, false
	}
	metrics.FallbackCalls.WithLabelValues("items").Inc()

	switch {
	case t.Draft.IsEmpty():
		return e.add(t, lines), true
	case cls.ReplaceAll || res.Action == model.LineReplaceAll:
		return e.stageReplace(t, lines), true
	case cls.ChangeQuantity || res.Action == model.LineChangeQuantity:
		return e.changeQuantity(t, lines), true
	}
	return e.add(t, lines), true
}

// classifyFallback bounds the classifier with FallbackTimeout, even when it ignores ctx.
func (e *Engine) classifyFallback(ctx context.Context, req model.FallbackRequest) (*model.FallbackResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.FallbackTimeout)
	defer cancel()

	type result struct {
		res *model.FallbackResult
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("fallback classifier panic: %v", r)}
			}
		}()
		res, err := e.deps.Fallback.Classify(ctx, req)
		done <- result{res: res, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, errx.Fallback(r.err)
		}
		if r.res == nil {
			return &model.FallbackResult{}, nil
		}
		return r.res, nil
	case <-ctx.Done():
		return nil, errx.Fallback(fmt.Errorf("%w after %s", errx.ErrFallbackTimeout, e.cfg.FallbackTimeout))
	}
}
