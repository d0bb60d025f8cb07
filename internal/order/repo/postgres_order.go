package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
)

const (
	insertOrder = `
		INSERT INTO orders (id, conversation_id, total, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`

	insertOrderLine = `
		INSERT INTO order_lines (order_id, item_id, item_name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`

	selectProfile = `
		SELECT conversation_id, COALESCE(name, ''), order_count, last_order_at
		FROM customer_profiles
		WHERE conversation_id = $1`

	upsertProfile = `
		INSERT INTO customer_profiles (conversation_id, order_count, last_order_at, last_order_id)
		VALUES ($1, 1, $2, $3)
		ON CONFLICT (conversation_id) DO UPDATE
		SET order_count = customer_profiles.order_count + 1,
		    last_order_at = EXCLUDED.last_order_at,
		    last_order_id = EXCLUDED.last_order_id`
)

const orderStatusConfirmed = "CONFIRMED"

// PostgresOrderRepository persists confirmed orders with their lines in one transaction.
type PostgresOrderRepository struct {
	db *sql.DB
}

func NewPostgresOrderRepository(db *sql.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

func (r *PostgresOrderRepository) Finalize(ctx context.Context, order model.ConfirmedOrder) (string, error) {
	if len(order.Lines) == 0 {
		return "", fmt.Errorf("finalize order %s: %w", order.ID, errx.ErrNotConfirmable)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errx.WrapPostgres(err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, insertOrder,
		order.ID, order.ConversationID, order.Total, orderStatusConfirmed, order.CreatedAt,
	)
	if err != nil {
		logx.Error().Err(err).Str("order_id", order.ID).Msg("failed to insert order")
		return "", errx.WrapPostgres(err)
	}
	// a retried confirmation finds its order already stored
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		logx.Info().Str("order_id", order.ID).Msg("order already finalized")
		return order.ID, nil
	}
	for _, l := range order.Lines {
		if _, err := tx.ExecContext(ctx, insertOrderLine,
			order.ID, l.ItemID, l.ItemName, l.Quantity, l.UnitPrice,
		); err != nil {
			logx.Error().Err(err).Str("order_id", order.ID).Str("item_id", l.ItemID).Msg("failed to insert order line")
			return "", errx.WrapPostgres(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", errx.WrapPostgres(err)
	}
	return order.ID, nil
}

// PostgresCustomerRepository backs customer tiers.
type PostgresCustomerRepository struct {
	db *sql.DB
}

func NewPostgresCustomerRepository(db *sql.DB) *PostgresCustomerRepository {
	return &PostgresCustomerRepository{db: db}
}

func (r *PostgresCustomerRepository) Profile(ctx context.Context, conversationID string) (*model.CustomerProfile, error) {
	var (
		p    model.CustomerProfile
		last sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, selectProfile, conversationID).
		Scan(&p.ConversationID, &p.Name, &p.OrderCount, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errx.WrapPostgres(err)
	}
	if last.Valid {
		t := last.Time
		p.LastOrderAt = &t
	}
	return &p, nil
}

func (r *PostgresCustomerRepository) RecordOrder(ctx context.Context, conversationID string, order model.ConfirmedOrder) error {
	at := order.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	if _, err := r.db.ExecContext(ctx, upsertProfile, conversationID, at, order.ID); err != nil {
		return errx.WrapPostgres(err)
	}
	return nil
}

var (
	_ model.OrderSink         = (*PostgresOrderRepository)(nil)
	_ model.CustomerDirectory = (*PostgresCustomerRepository)(nil)
)
