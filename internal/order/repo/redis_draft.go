package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RedisDraftStore keeps one JSON document per conversation. The TTL is a safety net for
// abandoned conversations; the idle timeout is enforced by the engine.
type RedisDraftStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisDraftStore(rdb redis.Cmdable, ttl time.Duration) *RedisDraftStore {
	return &RedisDraftStore{rdb: rdb, ttl: ttl}
}

func (r *RedisDraftStore) draftKey(conversationID string) string {
	return fmt.Sprintf("draft:%s", conversationID)
}

func (r *RedisDraftStore) Get(ctx context.Context, conversationID string) (*model.OrderDraft, error) {
	key := r.draftKey(conversationID)

	b, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load draft from redis")
		return nil, errx.WrapRedis(err)
	}

	var d model.OrderDraft
	if err := json.Unmarshal(b, &d); err != nil {
		// a corrupt document would block the conversation forever; start over instead
		logx.Warn().Err(err).Str("key", key).Msg("discarding undecodable draft")
		return nil, nil
	}
	if d.PendingAction == "" {
		d.PendingAction = model.PendingNone
	}
	return &d, nil
}

func (r *RedisDraftStore) Save(ctx context.Context, conversationID string, draft *model.OrderDraft) error {
	b, err := json.Marshal(draft)
	if err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to marshal draft")
		return fmt.Errorf("marshal draft: %w", err)
	}
	key := r.draftKey(conversationID)

	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save draft to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisDraftStore) Clear(ctx context.Context, conversationID string) error {
	key := r.draftKey(conversationID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete draft from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.DraftStore = (*RedisDraftStore)(nil)
