// Package fallback is the LLM-backed best-effort extractor used when the deterministic
// pipeline finds nothing. It is an eino chain: chat template, chat model, tuple parser.
package fallback

import (
	"context"
	"errors"
	"fmt"

	einocb "github.com/cloudwego/eino/callbacks"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
)

const DefaultMinConfidence = 0.6

type Classifier struct {
	runnable      compose.Runnable[map[string]any, *schema.Message]
	callbacks     einocb.Handler
	minConfidence float64
}

type Option func(*options)

type options struct {
	modelName     string
	minConfidence float64
	onUsage       func(Usage)
}

// WithModelName names the model for cost accounting.
func WithModelName(name string) Option {
	return func(o *options) { o.modelName = name }
}

// WithMinConfidence drops results and items below v.
func WithMinConfidence(v float64) Option {
	return func(o *options) {
		if v > 0 {
			o.minConfidence = v
		}
	}
}

// WithUsageHook receives token usage after each model call.
func WithUsageHook(fn func(Usage)) Option {
	return func(o *options) { o.onUsage = fn }
}

// New compiles the fallback chain around chatModel.
func New(ctx context.Context, chatModel einomodel.BaseChatModel, opts ...Option) (*Classifier, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("fallback chat model is nil")
	}
	o := options{minConfidence: DefaultMinConfidence}
	for _, opt := range opts {
		opt(&o)
	}

	chain := compose.NewChain[map[string]any, *schema.Message]().
		AppendChatTemplate(newTemplate(), compose.WithNodeName("fallback_prompt")).
		AppendChatModel(chatModel, compose.WithNodeName("fallback_model"))

	runnable, err := chain.Compile(ctx, compose.WithGraphName("order_fallback"))
	if err != nil {
		return nil, fmt.Errorf("compile fallback chain: %w", err)
	}

	return &Classifier{
		runnable:      runnable,
		callbacks:     newCallbacks(o.modelName, o.onUsage),
		minConfidence: o.minConfidence,
	}, nil
}

// Classify asks the model for a structured guess. A context deadline is reported as
// ErrFallbackTimeout; low-confidence guesses come back empty rather than as errors.
func (c *Classifier) Classify(ctx context.Context, req model.FallbackRequest) (*model.FallbackResult, error) {
	out, err := c.runnable.Invoke(ctx, variables(req), compose.WithCallbacks(c.callbacks))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errx.Fallback(fmt.Errorf("%w: %v", errx.ErrFallbackTimeout, err))
		}
		return nil, errx.Fallback(err)
	}
	if out == nil {
		return &model.FallbackResult{}, nil
	}

	res, err := ParseFallbackResponse(out.Content, req.Menu)
	if err != nil {
		return nil, errx.Fallback(err)
	}
	if len(res.ParsingErrors) > 0 {
		logx.Debug().
			Str("conversation_id", req.ConversationID).
			Strs("parsing_errors", res.ParsingErrors).
			Msg("fallback output had rejected records")
	}

	if res.Confidence < c.minConfidence {
		return &model.FallbackResult{Confidence: res.Confidence, ParsingErrors: res.ParsingErrors}, nil
	}
	kept := res.Items[:0]
	for _, it := range res.Items {
		if it.Confidence >= c.minConfidence {
			kept = append(kept, it)
		}
	}
	res.Items = kept
	return res, nil
}
