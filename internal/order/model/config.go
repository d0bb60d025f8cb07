package model

import "time"

// ================ Config ================
type EngineConfig struct {
	RestaurantID     string        `envconfig:"RESTAURANT_ID" default:"default"`
	IdleTimeout      time.Duration `envconfig:"DRAFT_IDLE_TIMEOUT" default:"15m"`
	DraftTTL         time.Duration `envconfig:"DRAFT_TTL" default:"24h"`
	FallbackTimeout  time.Duration `envconfig:"FALLBACK_TIMEOUT" default:"10s"`
	NotifyTimeout    time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"5s"`
	CacheTTL         time.Duration `envconfig:"MENU_CACHE_TTL" default:"60s"`
	MaxMessageLength int           `envconfig:"MAX_MESSAGE_LENGTH" default:"1000"`
}

type FallbackModelConfig struct {
	Enabled        bool    `envconfig:"FALLBACK_ENABLED" default:"true"`
	APIKey         string  `envconfig:"GEMINI_API_KEY"`
	BaseURL        string  `envconfig:"GEMINI_BASE_URL"`
	Model          string  `envconfig:"FALLBACK_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens      int     `envconfig:"FALLBACK_MAX_TOKENS" default:"512"`
	Temperature    float32 `envconfig:"FALLBACK_TEMPERATURE" default:"0.1"`
	ThinkingBudget int32   `envconfig:"FALLBACK_THINKING_BUDGET" default:"0"`
	MinConfidence  float64 `envconfig:"FALLBACK_MIN_CONFIDENCE" default:"0.6"`
}

type NotifyConfig struct {
	SNSTopicARN string `envconfig:"SNS_TOPIC_ARN"`
	AWSRegion   string `envconfig:"AWS_REGION" default:"us-east-1"`
}

type HTTPConfig struct {
	Addr            string        `envconfig:"HTTP_ADDR" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}

// RestaurantConfig carries static settings and menu for deployments without Postgres.
type RestaurantConfig struct {
	SettingsJSON string `envconfig:"RESTAURANT_SETTINGS"`
	MenuJSON     string `envconfig:"RESTAURANT_MENU"`
}
