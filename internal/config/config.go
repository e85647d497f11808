package config

// Config represents the application configuration
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Panel    PanelConfig    `mapstructure:"panel"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Web      WebConfig      `mapstructure:"web"`
	Database DatabaseConfig `mapstructure:"database"`
	Sync     SyncConfig     `mapstructure:"sync"`
	LogLevel string         `mapstructure:"log_level"`
}

// TelegramConfig holds the Telegram bot configuration
type TelegramConfig struct {
	Token    string  `mapstructure:"token"`
	AdminIDs []int64 `mapstructure:"admin_ids"`
}

// PanelConfig holds the configuration for the X-UI panel
type PanelConfig struct {
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	APIURL             string `mapstructure:"api_url"`
	SubURLPrefix       string `mapstructure:"sub_url_prefix"`
	ExcludedInboundIDs []int  `mapstructure:"excluded_inbound_ids"`
}

// GatewayConfig holds the payment gateway configuration
type GatewayConfig struct {
	Merchant    string `mapstructure:"merchant"`
	CallbackURL string `mapstructure:"callback_url"`
}

// WebConfig holds the payment callback server configuration
type WebConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	SecretKey  string `mapstructure:"secret_key"`
}

// DatabaseConfig holds the sqlite database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// SyncConfig holds the reconciliation schedule configuration
type SyncConfig struct {
	Schedule string `mapstructure:"schedule"`
}
