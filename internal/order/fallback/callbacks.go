package fallback

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
)

type startKey struct{}

// Usage is reported after every model call that returned token counts.
type Usage struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
}

// newCallbacks logs prompt rendering and model calls with latency, token usage and cost.
func newCallbacks(modelName string, onUsage func(Usage)) einocb.Handler {
	pricing := ResolvePricing(modelName)
	log := logx.Component("fallback")

	modelHandler := &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *einomodel.CallbackInput) context.Context {
			if input != nil {
				log.Debug().Str("node", info.Name).Int("messages", len(input.Messages)).Msg("fallback model start")
			}
			return context.WithValue(ctx, startKey{}, time.Now())
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *einomodel.CallbackOutput) context.Context {
			ev := log.Info().Str("node", info.Name).Str("model", modelName)
			if start, ok := ctx.Value(startKey{}).(time.Time); ok {
				ev = ev.Dur("latency", time.Since(start))
			}
			if usage := tokenUsage(output); usage != nil {
				_, _, total := ComputeCost(usage, pricing)
				ev = ev.Int("prompt_tokens", usage.PromptTokens).
					Int("completion_tokens", usage.CompletionTokens).
					Float64("cost_usd", total)
				if onUsage != nil {
					onUsage(Usage{
						Model:            modelName,
						PromptTokens:     usage.PromptTokens,
						CompletionTokens: usage.CompletionTokens,
						CostUSD:          total,
					})
				}
			}
			ev.Msg("fallback model end")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			log.Warn().Err(err).Str("node", info.Name).Msg("fallback model error")
			return ctx
		},
	}

	promptHandler := &callbackHelper.PromptCallbackHandler{
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *prompt.CallbackOutput) context.Context {
			if output != nil {
				size := 0
				for _, m := range output.Result {
					if m != nil {
						size += len(m.Content)
					}
				}
				log.Debug().Str("node", info.Name).Int("messages", len(output.Result)).Int("prompt_bytes", size).Msg("fallback prompt rendered")
			}
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			log.Warn().Err(err).Str("node", info.Name).Msg("fallback prompt render failed")
			return ctx
		},
	}

	return callbackHelper.NewHandlerHelper().
		Prompt(promptHandler).
		ChatModel(modelHandler).
		Handler()
}

func tokenUsage(output *einomodel.CallbackOutput) *schema.TokenUsage {
	if output == nil {
		return nil
	}
	if output.Message != nil && output.Message.ResponseMeta != nil && output.Message.ResponseMeta.Usage != nil {
		return output.Message.ResponseMeta.Usage
	}
	if u := output.TokenUsage; u != nil {
		return &schema.TokenUsage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
	}
	return nil
}
