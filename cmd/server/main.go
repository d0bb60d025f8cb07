package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Chative-core-poc-v1/orderbot/internal/core"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/engine"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/fallback"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/metrics"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/notify"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/repo"
	"github.com/Chative-core-poc-v1/orderbot/internal/transport/httpapi"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
	pkgpostgres "github.com/Chative-core-poc-v1/orderbot/pkg/postgres"
	pkgredis "github.com/Chative-core-poc-v1/orderbot/pkg/redis"
)

// AppConfig defines all configurable parameters of the service,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"APP_ENV" default:"development"`
	LogLevel    string           `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis    pkgredis.Config
	Postgres pkgpostgres.Config

	Engine     model.EngineConfig
	Fallback   model.FallbackModelConfig
	Notify     model.NotifyConfig
	HTTP       model.HTTPConfig
	Restaurant model.RestaurantConfig
}

func main() {
	ctx := context.Background()
	if err := godotenv.Load(".env"); err != nil {
		logx.Warn().Err(err).Msg("could not load .env file")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Fatal().Err(err).Msg("failed to process environment config")
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.Environment, Level: cfg.LogLevel})

	rdb, err := cfg.Redis.New(ctx)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to initialise redis client")
	}
	defer rdb.Close()

	checks := map[string]httpapi.HealthCheck{
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}

	deps := engine.Deps{
		Drafts:  repo.NewRedisDraftStore(rdb, cfg.Engine.DraftTTL),
		Limiter: repo.NewRedisRateLimiter(rdb),
	}

	db, err := wireRestaurant(ctx, cfg, &deps)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to wire restaurant data")
	}
	if db != nil {
		defer db.Close()
		checks["postgres"] = db.PingContext
	}

	deps.Fallback = buildFallback(ctx, cfg.Fallback)
	deps.Notifier = buildNotifier(ctx, cfg.Notify)

	eng, err := engine.New(cfg.Engine, deps)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to build engine")
	}

	router := httpapi.NewRouter(cfg.Environment.RouterMode(), httpapi.NewHandler(eng, checks))
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		logx.Info().Str("addr", cfg.HTTP.Addr).Str("env", cfg.Environment.String()).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logx.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("server forced to shutdown")
	}
	// let in-flight staff notifications finish
	eng.Wait()
	logx.Info().Msg("server exited properly")
}

// wireRestaurant reads menu, settings, customers and orders from Postgres when a DSN is
// configured, otherwise from the static JSON in the environment.
func wireRestaurant(ctx context.Context, cfg AppConfig, deps *engine.Deps) (*sql.DB, error) {
	if cfg.Postgres.Enabled() {
		db, err := cfg.Postgres.New(ctx)
		if err != nil {
			return nil, err
		}
		deps.Menus = repo.NewCachedMenuProvider(repo.NewPostgresMenuRepository(db), cfg.Engine.CacheTTL)
		deps.Settings = repo.NewCachedSettingsProvider(repo.NewPostgresSettingsRepository(db), cfg.Engine.CacheTTL)
		deps.Customers = repo.NewPostgresCustomerRepository(db)
		deps.Orders = repo.NewPostgresOrderRepository(db)
		logx.Info().Msg("restaurant data served from postgres")
		return db, nil
	}

	menu, err := repo.ParseMenu([]byte(cfg.Restaurant.MenuJSON))
	if err != nil {
		return nil, err
	}
	settings, err := model.ParseSettings([]byte(cfg.Restaurant.SettingsJSON))
	if err != nil {
		return nil, err
	}
	deps.Menus = repo.NewStaticMenuProvider(menu)
	deps.Settings = repo.NewStaticSettingsProvider(settings)
	deps.Customers = repo.NewMemoryCustomerDirectory()
	deps.Orders = repo.NewMemoryOrderSink()
	logx.Warn().Int("menu_items", len(menu)).Msg("no DATABASE_URL, serving static menu and keeping orders in memory")
	return nil, nil
}

func buildFallback(ctx context.Context, cfg model.FallbackModelConfig) model.FallbackClassifier {
	if !cfg.Enabled || cfg.APIKey == "" {
		logx.Info().Msg("fallback classifier disabled")
		return nil
	}
	chatModel, err := fallback.NewGeminiChatModel(ctx, cfg)
	if err != nil {
		logx.Error().Err(err).Msg("fallback model unavailable, continuing without it")
		return nil
	}
	classifier, err := fallback.New(ctx, chatModel,
		fallback.WithModelName(cfg.Model),
		fallback.WithMinConfidence(cfg.MinConfidence),
		fallback.WithUsageHook(func(u fallback.Usage) {
			metrics.FallbackCostUSD.WithLabelValues(u.Model).Add(u.CostUSD)
		}),
	)
	if err != nil {
		logx.Error().Err(err).Msg("failed to build fallback chain, continuing without it")
		return nil
	}
	return classifier
}

func buildNotifier(ctx context.Context, cfg model.NotifyConfig) model.NotificationSink {
	if cfg.SNSTopicARN == "" {
		return notify.LogNotifier{}
	}
	n, err := notify.NewSNSNotifierFromConfig(ctx, cfg)
	if err != nil {
		logx.Error().Err(err).Msg("sns notifier unavailable, logging notifications instead")
		return notify.LogNotifier{}
	}
	return n
}
