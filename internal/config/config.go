package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Lengo    LengoConfig    `mapstructure:"lengo"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LengoConfig holds Lengo Pay API configuration
type LengoConfig struct {
	APIURL  string        `mapstructure:"api_url"`
	SiteID  string        `mapstructure:"site_id"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// WebhookConfig holds inbound webhook configuration
type WebhookConfig struct {
	Path   string `mapstructure:"path"`
	Secret string `mapstructure:"secret"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/partner_dashboard.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	viper.SetDefault("lengo.api_url", "https://portal.lengopay.com/api/v1/transaction/status")
	viper.SetDefault("lengo.timeout", 30*time.Second)

	viper.SetDefault("webhook.path", "/payment-webhook")

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("lengo.api_url", "LENGO_API_URL")
	viper.BindEnv("lengo.site_id", "LENGO_SITE_ID")
	viper.BindEnv("lengo.api_key", "LENGO_API_KEY")
	viper.BindEnv("webhook.secret", "LENGO_WEBHOOK_SECRET")
	viper.BindEnv("database.path", "DATABASE_PATH")
}

// Validate validates the configuration. The provider API key has no
// fallback: a deployment without it must fail at startup, not issue
// unauthenticated status checks.
func (c *Config) Validate() error {
	if c.Lengo.APIURL == "" {
		return fmt.Errorf("lengo.api_url is required")
	}
	if c.Lengo.SiteID == "" {
		return fmt.Errorf("lengo.site_id is required")
	}
	if c.Lengo.APIKey == "" {
		return fmt.Errorf("lengo.api_key is required")
	}
	if c.Webhook.Secret == "" {
		return fmt.Errorf("webhook.secret is required")
	}
	return nil
}
