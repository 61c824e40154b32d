package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Service name for telemetry and logs
	ServiceName string    `yaml:"service_name" env:"SERVICE_NAME" example:"adsplice" validate:"required"`
	Sentry      Sentry    `yaml:"sentry" envPrefix:"SENTRY_"`
	Log         Log       `yaml:"log" envPrefix:"LOG_"`
	Telemetry   Telemetry `yaml:"telemetry" envPrefix:"TELEMETRY_"`
	Stream      Stream    `yaml:"stream" envPrefix:"STREAM_"`
	Analytics   Analytics `yaml:"analytics" envPrefix:"ANALYTICS_"`
	Tracking    Tracking  `yaml:"tracking" envPrefix:"TRACKING_"`
	Server      Server    `yaml:"server" envPrefix:"SERVER_"`
}

type Sentry struct {
	DSN string `yaml:"dsn" env:"DSN" example:"https://a1b2c3d4e5f6g7h8a1b2c3d4e5f6g7h8@o123456.ingest.sentry.io/1234567"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram" envPrefix:"TELEGRAM_"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" env:"TOKEN" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" env:"CHAT_ID" example:"1001234567890"`
}

type Telemetry struct {
	// Whether to enable opentelemetry logs/metrics/traces export
	Enabled bool `yaml:"enabled" env:"ENABLED" example:"false"`
}

type Stream struct {
	// Multivariant playlist URL of the SGAI stream
	URL string `yaml:"url" env:"URL" example:"https://example.com/loop/master.m3u8" validate:"required,url"`
	// Manifest poll interval
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL" example:"15s"`
	// Host that `localhost` in resolved asset list URLs is rewritten to.
	// Needed when the ad proxy announces itself as localhost but runs elsewhere
	// (the Android emulator uses 10.0.2.2 for this). Empty disables the rewrite.
	LoopbackRewriteHost string `yaml:"loopback_rewrite_host" env:"LOOPBACK_REWRITE_HOST" example:"10.0.2.2"`
	// How long a processed ad break ID stays suppressed, 0 = 2x poll interval
	BreakDedupTTL time.Duration `yaml:"break_dedup_ttl" env:"BREAK_DEDUP_TTL" example:"30s"`
}

type Analytics struct {
	// Event sink base URL for lifecycle events
	EventSinkURL string `yaml:"event_sink_url" env:"EVENT_SINK_URL" example:"https://eventsink.example.com" validate:"required,url"`
	// Heartbeat interval while tracking is active
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" env:"HEARTBEAT_INTERVAL" example:"30s"`
	// Content title attached to the metadata event
	ContentTitle string `yaml:"content_title" env:"CONTENT_TITLE" example:"SGAI Live Stream with Ads"`
	// Whether the content is a live stream
	Live bool `yaml:"live" env:"LIVE" example:"true"`
	// Device type label attached to the metadata event
	DeviceType string `yaml:"device_type" env:"DEVICE_TYPE" example:"headless"`
}

type Tracking struct {
	// Ad tracking backend base URL (track/ad, track/adbreak)
	BaseURL string `yaml:"base_url" env:"BASE_URL" example:"https://tracking.example.com" validate:"required,url"`
}

type Server struct {
	// Status server port
	HttpPort int `yaml:"http_port" env:"HTTP_PORT" example:"8080" validate:"required"`
}

func Load(configPath string) (*Config, error) {
	var result Config

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	if err := env.ParseWithOptions(&result, env.Options{ //nolint:exhaustruct
		Prefix: "ADSPLICE_",
	}); err != nil {
		return nil, oops.Errorf("failed to parse environment variables: %w", err)
	}

	if result.ServiceName == "" {
		result.ServiceName = "adsplice"
	}
	if result.Stream.PollInterval == 0 {
		result.Stream.PollInterval = 15 * time.Second
	}
	if result.Stream.BreakDedupTTL == 0 {
		result.Stream.BreakDedupTTL = 2 * result.Stream.PollInterval
	}
	if result.Analytics.HeartbeatInterval == 0 {
		result.Analytics.HeartbeatInterval = 30 * time.Second
	}
	if result.Analytics.DeviceType == "" {
		result.Analytics.DeviceType = "headless"
	}
	if result.Server.HttpPort == 0 {
		result.Server.HttpPort = 8080
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}
