package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Chative-core-poc-v1/orderbot/internal/core"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/engine"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/fallback"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/model"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/notify"
	"github.com/Chative-core-poc-v1/orderbot/internal/order/repo"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
)

// DemoConfig drives the scripted conversation below. Everything runs in memory; the
// fallback model is only used when an API key is present.
type DemoConfig struct {
	Environment core.Environment `envconfig:"APP_ENV" default:"development"`
	LogLevel    string           `envconfig:"LOG_LEVEL" default:"warn"`

	Engine     model.EngineConfig
	Fallback   model.FallbackModelConfig
	Restaurant model.RestaurantConfig
}

var demoMenu = model.Menu{
	{ID: "1", Name: "Empanada de carne", Price: 7, Category: "Empanadas", Description: "Carne cortada a cuchillo"},
	{ID: "2", Name: "Empanada de pollo", Price: 7, Category: "Empanadas"},
	{ID: "3", Name: "Empanada de jamón y queso", Price: 7.5, Category: "Empanadas"},
	{ID: "4", Name: "Coca-Cola 500ml", Price: 3, Category: "Bebidas"},
}

const demoSettings = `{
	"restaurantName": "La Esquina",
	"timezone": "America/Argentina/Buenos_Aires",
	"deliveryZones": [{"name": "Centro", "cost": 2, "minutes": 30}],
	"preparationTimes": {"Empanadas": 25, "default": 15}
}`

func main() {
	fmt.Println("Testing order engine conversation...")
	ctx := context.Background()
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var cfg DemoConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.Environment, Level: cfg.LogLevel})

	menu := demoMenu
	if cfg.Restaurant.MenuJSON != "" {
		parsed, err := repo.ParseMenu([]byte(cfg.Restaurant.MenuJSON))
		if err != nil {
			log.Fatalf("Invalid RESTAURANT_MENU: %v", err)
		}
		menu = parsed
	}
	rawSettings := demoSettings
	if cfg.Restaurant.SettingsJSON != "" {
		rawSettings = cfg.Restaurant.SettingsJSON
	}
	settings, err := model.ParseSettings([]byte(rawSettings))
	if err != nil {
		log.Fatalf("Invalid RESTAURANT_SETTINGS: %v", err)
	}

	orders := repo.NewMemoryOrderSink()
	deps := engine.Deps{
		Menus:     repo.NewStaticMenuProvider(menu),
		Drafts:    repo.NewMemoryDraftStore(),
		Orders:    orders,
		Settings:  repo.NewStaticSettingsProvider(settings),
		Customers: repo.NewMemoryCustomerDirectory(),
		Notifier:  notify.LogNotifier{},
	}
	if cfg.Fallback.Enabled && cfg.Fallback.APIKey != "" {
		chatModel, err := fallback.NewGeminiChatModel(ctx, cfg.Fallback)
		if err != nil {
			log.Fatalf("Failed to create fallback model: %v", err)
		}
		classifier, err := fallback.New(ctx, chatModel,
			fallback.WithModelName(cfg.Fallback.Model),
			fallback.WithMinConfidence(cfg.Fallback.MinConfidence),
		)
		if err != nil {
			log.Fatalf("Failed to build fallback chain: %v", err)
		}
		deps.Fallback = classifier
	}

	eng, err := engine.New(cfg.Engine, deps)
	if err != nil {
		log.Fatalf("Failed to build engine: %v", err)
	}

	testMessages := []struct {
		description string
		message     string
	}{
		{description: "Greeting", message: "hola!"},
		{description: "Ask for the menu", message: "qué tienen?"},
		{description: "Dozen of one flavor", message: "quiero una docena de empanadas de pollo"},
		{description: "Half dozen per flavor", message: "y media docena de carne y media de jamón y queso"},
		{description: "More of the last item", message: "agregá 2 más"},
		{description: "Ambiguous request", message: "dame empanadas"},
		{description: "Replace everything", message: "mejor solo quiero 6 de carne"},
		{description: "Accept the replacement", message: "sí"},
		{description: "Order summary", message: "cuánto es?"},
		{description: "Confirm", message: "confirmar"},
	}

	conversationID := "demo-conversation-001"

	for i, test := range testMessages {
		fmt.Printf("\nTest %d: %s\n", i+1, test.description)
		fmt.Printf("Message: %q\n", test.message)

		resp, err := eng.ProcessMessage(ctx, conversationID, test.message)
		if err != nil {
			log.Fatalf("Failed to process message %d: %v", i+1, err)
		}

		fmt.Printf("[%s] %s\n", resp.Intent, resp.Text)
		if len(resp.Options) > 0 {
			fmt.Printf("Options: %s\n", strings.Join(resp.Options, " | "))
		}
		fmt.Println(strings.Repeat("-", 48))

		time.Sleep(100 * time.Millisecond)
	}

	eng.Wait()
	fmt.Printf("Conversation finished, %d order(s) confirmed.\n", len(orders.Orders()))
}
