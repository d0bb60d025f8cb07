package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
)

const (
	menuQuery = `
		SELECT id, name, price, COALESCE(description, ''), COALESCE(category, '')
		FROM menu_items
		WHERE restaurant_id = $1 AND available = TRUE
		ORDER BY category, position, name`

	settingsQuery = `
		SELECT settings
		FROM restaurant_config
		WHERE restaurant_id = $1`
)

// PostgresMenuRepository reads the available menu items of a restaurant.
type PostgresMenuRepository struct {
	db *sql.DB
}

func NewPostgresMenuRepository(db *sql.DB) *PostgresMenuRepository {
	return &PostgresMenuRepository{db: db}
}

func (r *PostgresMenuRepository) CurrentMenu(ctx context.Context, restaurantID string) (model.Menu, error) {
	rows, err := r.db.QueryContext(ctx, menuQuery, restaurantID)
	if err != nil {
		logx.Error().Err(err).Str("restaurant_id", restaurantID).Msg("failed to query menu")
		return nil, errx.WrapPostgres(err)
	}
	defer rows.Close()

	menu := model.Menu{}
	for rows.Next() {
		var it model.MenuItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Price, &it.Description, &it.Category); err != nil {
			return nil, errx.WrapPostgres(fmt.Errorf("scan menu item: %w", err))
		}
		if it.Price < 0 {
			logx.Warn().Str("item_id", it.ID).Float64("price", it.Price).Msg("skipping menu item with negative price")
			continue
		}
		menu = append(menu, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapPostgres(err)
	}
	return menu, nil
}

// PostgresSettingsRepository loads the restaurant configuration document and normalizes it
// with model.ParseSettings. A missing row means defaults.
type PostgresSettingsRepository struct {
	db *sql.DB
}

func NewPostgresSettingsRepository(db *sql.DB) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

func (r *PostgresSettingsRepository) Settings(ctx context.Context, restaurantID string) (*model.RestaurantSettings, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx, settingsQuery, restaurantID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		logx.Error().Err(err).Str("restaurant_id", restaurantID).Msg("failed to query restaurant settings")
		return nil, errx.WrapPostgres(err)
	}

	s, err := model.ParseSettings(raw)
	if err != nil {
		// a broken document should not take the bot down
		logx.Error().Err(err).Str("restaurant_id", restaurantID).Msg("invalid restaurant settings, using defaults")
		return model.DefaultSettings(), nil
	}
	return s, nil
}

var (
	_ model.MenuProvider     = (*PostgresMenuRepository)(nil)
	_ model.SettingsProvider = (*PostgresSettingsRepository)(nil)
)
