package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Vibe      VibeConfig      `yaml:"vibe" mapstructure:"vibe"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	StageAModel string `yaml:"stage_a_model" mapstructure:"stage_a_model"`
	StageBModel string `yaml:"stage_b_model" mapstructure:"stage_b_model"`
	MaxTokens   int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// VibeConfig configures the two-stage classification pipeline.
type VibeConfig struct {
	// TargetPhotos caps how many photos go into the Stage A evidence bundle.
	TargetPhotos int `yaml:"target_photos" mapstructure:"target_photos"`
	// EscalationThreshold: Stage A overall confidence below this triggers
	// escalation of the photo-primary categories.
	EscalationThreshold float64 `yaml:"escalation_threshold" mapstructure:"escalation_threshold"`
	// StageBPhotoCount is how many top-relevance photos Stage B receives.
	StageBPhotoCount int `yaml:"stage_b_photo_count" mapstructure:"stage_b_photo_count"`
	// Limit caps venues processed per batch run. 0 or negative = unlimited.
	Limit int `yaml:"limit" mapstructure:"limit"`
	// RequestDelay is the pacing between venues in a batch run.
	RequestDelay time.Duration `yaml:"request_delay" mapstructure:"request_delay"`
	// PhotoPrimaryCategories are escalated when overall confidence is low;
	// they benefit most from the high-resolution Stage B pass.
	PhotoPrimaryCategories []string `yaml:"photo_primary_categories" mapstructure:"photo_primary_categories"`
	// PriorityVenues are venue names (case-insensitive) classified first.
	PriorityVenues []string `yaml:"priority_venues" mapstructure:"priority_venues"`
	// MaxTextSnippets caps each optional text evidence list in the bundle.
	MaxTextSnippets int `yaml:"max_text_snippets" mapstructure:"max_text_snippets"`
}

// ServerConfig configures the HTTP API server.
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
	v.SetEnvPrefix("VIBESENSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "vibesense.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.stage_a_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.stage_b_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 3072)
	v.SetDefault("vibe.target_photos", 10)
	v.SetDefault("vibe.escalation_threshold", 0.80)
	v.SetDefault("vibe.stage_b_photo_count", 5)
	v.SetDefault("vibe.limit", 20)
	v.SetDefault("vibe.request_delay", "1s")
	v.SetDefault("vibe.photo_primary_categories", []string{
		"estetica", "estilo_do_lugar", "dress_code", "clima_social",
	})
	v.SetDefault("vibe.priority_venues", []string{})
	v.SetDefault("vibe.max_text_snippets", 10)

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

// Validate checks that required settings for classification are present.
func (c *Config) Validate() error {
	if c.Anthropic.Key == "" {
		return eris.New("config: anthropic.key is required (VIBESENSE_ANTHROPIC_KEY)")
	}
	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required")
	}
	return nil
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
