package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	GitHub    GitHubConfig    `yaml:"github" mapstructure:"github"`
	Telegram  TelegramConfig  `yaml:"telegram" mapstructure:"telegram"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	VisionModel string `yaml:"vision_model" mapstructure:"vision_model"`
	MaxTokens   int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GitHubConfig holds the card repository coordinates and webhook secret.
type GitHubConfig struct {
	Owner         string `yaml:"owner" mapstructure:"owner"`
	Repo          string `yaml:"repo" mapstructure:"repo"`
	Branch        string `yaml:"branch" mapstructure:"branch"`
	PathPrefix    string `yaml:"path_prefix" mapstructure:"path_prefix"`
	WebhookSecret string `yaml:"webhook_secret" mapstructure:"webhook_secret"`
	RawBaseURL    string `yaml:"raw_base_url" mapstructure:"raw_base_url"`
}

// TelegramConfig holds bot credentials and the notification chat.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token" mapstructure:"bot_token"`
	ChatID   string `yaml:"chat_id" mapstructure:"chat_id"`
}

// PipelineConfig configures reconciliation and validation policy.
type PipelineConfig struct {
	AdminUser                 string `yaml:"admin_user" mapstructure:"admin_user"`
	AcceptPlaceholderContacts bool   `yaml:"accept_placeholder_contacts" mapstructure:"accept_placeholder_contacts"`
	FetchTimeoutSecs          int    `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CARDSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.vision_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("github.branch", "main")
	v.SetDefault("github.raw_base_url", "https://raw.githubusercontent.com")
	v.SetDefault("pipeline.admin_user", "Admin")
	v.SetDefault("pipeline.accept_placeholder_contacts", true)
	v.SetDefault("pipeline.fetch_timeout_secs", 30)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a command depends on are present.
// Scope is "serve" for the webhook server, "extract" for commands that
// run scans directly and need no webhook secret.
func (c *Config) Validate(scope string) error {
	var missing []string

	if c.Anthropic.Key == "" {
		missing = append(missing, "anthropic.key")
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		missing = append(missing, "store.database_url")
	}
	if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
		missing = append(missing, "github.owner/github.repo")
	}
	if scope == "serve" && c.GitHub.WebhookSecret == "" {
		missing = append(missing, "github.webhook_secret")
	}

	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Redacted returns a copy with secret values masked for display.
func (c *Config) Redacted() Config {
	out := *c
	if out.Anthropic.Key != "" {
		out.Anthropic.Key = "***"
	}
	if out.GitHub.WebhookSecret != "" {
		out.GitHub.WebhookSecret = "***"
	}
	if out.Telegram.BotToken != "" {
		out.Telegram.BotToken = "***"
	}
	if out.Store.DatabaseURL != "" {
		out.Store.DatabaseURL = "***"
	}
	return out
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
