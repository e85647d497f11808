package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"xui-shop-bot/internal/constants"
)

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()

	// Set default values
	v.SetDefault("log_level", "info")

	// Define environment variables
	v.BindEnv("TG_TOKEN")
	v.BindEnv("TG_ADMIN_IDS")
	v.BindEnv("PANEL_USER")
	v.BindEnv("PANEL_PASSWORD")
	v.BindEnv("PANEL_API_URL")
	v.BindEnv("PANEL_SUB_URL_PREFIX")
	v.BindEnv("PANEL_EXCLUDED_INBOUND_IDS")
	v.BindEnv("ZIBAL_MERCHANT")
	v.BindEnv("PAYMENT_CALLBACK_URL")
	v.BindEnv("PAYMENT_SECRET_KEY")
	v.BindEnv("WEB_LISTEN_ADDR")
	v.BindEnv("DB_PATH")
	v.BindEnv("SYNC_SCHEDULE")
	v.BindEnv("LOG_LEVEL")

	cfg := &Config{
		LogLevel: v.GetString("LOG_LEVEL"),
		Telegram: TelegramConfig{
			Token:    strings.TrimSpace(v.GetString("TG_TOKEN")),
			AdminIDs: parseInt64List(v.GetString("TG_ADMIN_IDS")),
		},
		Panel: PanelConfig{
			User:               strings.TrimSpace(v.GetString("PANEL_USER")),
			Password:           strings.TrimSpace(v.GetString("PANEL_PASSWORD")),
			APIURL:             strings.TrimRight(strings.TrimSpace(v.GetString("PANEL_API_URL")), "/"),
			SubURLPrefix:       strings.TrimSpace(v.GetString("PANEL_SUB_URL_PREFIX")),
			ExcludedInboundIDs: parseIntList(v.GetString("PANEL_EXCLUDED_INBOUND_IDS")),
		},
		Gateway: GatewayConfig{
			Merchant:    strings.TrimSpace(v.GetString("ZIBAL_MERCHANT")),
			CallbackURL: strings.TrimSpace(v.GetString("PAYMENT_CALLBACK_URL")),
		},
		Web: WebConfig{
			ListenAddr: strings.TrimSpace(v.GetString("WEB_LISTEN_ADDR")),
			SecretKey:  strings.TrimSpace(v.GetString("PAYMENT_SECRET_KEY")),
		},
		Database: DatabaseConfig{
			Path: strings.TrimSpace(v.GetString("DB_PATH")),
		},
		Sync: SyncConfig{
			Schedule: strings.TrimSpace(v.GetString("SYNC_SCHEDULE")),
		},
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Web.ListenAddr == "" {
		cfg.Web.ListenAddr = ":8080"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data.db"
	}
	if cfg.Sync.Schedule == "" {
		cfg.Sync.Schedule = constants.DefaultSyncSchedule
	}

	// Validate configuration
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Telegram.Token == "" {
		return errors.New("TG_TOKEN is required")
	}
	if len(cfg.Telegram.AdminIDs) == 0 {
		return errors.New("TG_ADMIN_IDS is required")
	}
	if cfg.Panel.User == "" {
		return errors.New("PANEL_USER is required")
	}
	if cfg.Panel.Password == "" {
		return errors.New("PANEL_PASSWORD is required")
	}
	if cfg.Panel.APIURL == "" {
		return errors.New("PANEL_API_URL is required")
	}
	if cfg.Gateway.Merchant == "" {
		return errors.New("ZIBAL_MERCHANT is required")
	}
	if cfg.Web.SecretKey == "" {
		return errors.New("PAYMENT_SECRET_KEY is required")
	}

	return nil
}

// parseInt64List parses a comma-separated list of int64 values
func parseInt64List(s string) []int64 {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	values := make([]int64, 0, len(parts))
	for _, part := range parts {
		var id int64
		if _, err := fmt.Sscanf(strings.TrimSpace(part), "%d", &id); err == nil {
			values = append(values, id)
		}
	}
	return values
}

// parseIntList parses a comma-separated list of int values
func parseIntList(s string) []int {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	values := make([]int, 0, len(parts))
	for _, part := range parts {
		var id int
		if _, err := fmt.Sscanf(strings.TrimSpace(part), "%d", &id); err == nil {
			values = append(values, id)
		}
	}
	return values
}
