package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const EnvPrefix = "BOOKSTORE"

const (
	CatalogSourceFile     = "file"
	CatalogSourceDynamoDB = "dynamodb"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Twilio  TwilioConfig  `mapstructure:"twilio"`
	Reply   ReplyConfig   `mapstructure:"reply"`
	Log     LogConfig     `mapstructure:"log"`
	Trace   TraceConfig   `mapstructure:"trace"`
}

type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	PublicURL string `mapstructure:"public_url"`
}

type CatalogConfig struct {
	Source string `mapstructure:"source"`
	Path   string `mapstructure:"path"`
	Table  string `mapstructure:"table"`
}

type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	APIKeyParam string        `mapstructure:"api_key_param"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type TwilioConfig struct {
	AuthToken         string `mapstructure:"auth_token"`
	AuthTokenParam    string `mapstructure:"auth_token_param"`
	ValidateSignature bool   `mapstructure:"validate_signature"`
}

type ReplyConfig struct {
	MaxChars int `mapstructure:"max_chars"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type TraceConfig struct {
	Exporter     string `mapstructure:"exporter"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.public_url", "")
	v.SetDefault("catalog.source", CatalogSourceFile)
	v.SetDefault("catalog.path", "books.csv")
	v.SetDefault("catalog.table", "")
	v.SetDefault("llm.base_url", "http://localhost:11434/v1")
	v.SetDefault("llm.model", "llama3.1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.api_key_param", "")
	v.SetDefault("llm.timeout", "12s")
	v.SetDefault("twilio.auth_token", "")
	v.SetDefault("twilio.auth_token_param", "")
	v.SetDefault("twilio.validate_signature", false)
	v.SetDefault("reply.max_chars", 0)
	v.SetDefault("log.level", "debug")
	v.SetDefault("trace.exporter", "none")
	v.SetDefault("trace.otlp_endpoint", "localhost:4317")
}

// Load reads .env (if present), the optional config file at path, and
// BOOKSTORE_* environment variables, in increasing precedence.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %q: %w", path, err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Catalog.Source = strings.ToLower(strings.TrimSpace(c.Catalog.Source))
	c.Trace.Exporter = strings.ToLower(strings.TrimSpace(c.Trace.Exporter))
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	c.Server.PublicURL = strings.TrimRight(strings.TrimSpace(c.Server.PublicURL), "/")
}

func (c Config) Validate() error {
	var errs []error
	switch c.Catalog.Source {
	case CatalogSourceFile:
		if strings.TrimSpace(c.Catalog.Path) == "" {
			errs = append(errs, errors.New("catalog.path is required for the file source"))
		}
	case CatalogSourceDynamoDB:
		if strings.TrimSpace(c.Catalog.Table) == "" {
			errs = append(errs, errors.New("catalog.table is required for the dynamodb source"))
		}
	default:
		errs = append(errs, fmt.Errorf("catalog.source %q must be %q or %q", c.Catalog.Source, CatalogSourceFile, CatalogSourceDynamoDB))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	if c.LLM.Timeout < 0 {
		errs = append(errs, errors.New("llm.timeout must not be negative"))
	}
	if c.LLM.APIKey != "" && c.LLM.APIKeyParam != "" {
		errs = append(errs, errors.New("llm.api_key and llm.api_key_param are mutually exclusive"))
	}
	if c.Twilio.AuthToken != "" && c.Twilio.AuthTokenParam != "" {
		errs = append(errs, errors.New("twilio.auth_token and twilio.auth_token_param are mutually exclusive"))
	}
	if c.Twilio.ValidateSignature && c.Twilio.AuthToken == "" && c.Twilio.AuthTokenParam == "" {
		errs = append(errs, errors.New("twilio.validate_signature requires twilio.auth_token or twilio.auth_token_param"))
	}
	if c.Reply.MaxChars < 0 {
		errs = append(errs, errors.New("reply.max_chars must not be negative"))
	}
	switch c.Trace.Exporter {
	case "none", "stdout", "otlp":
	default:
		errs = append(errs, fmt.Errorf("trace.exporter %q is not supported", c.Trace.Exporter))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// NeedsAWS reports whether any configured component talks to AWS.
func (c Config) NeedsAWS() bool {
	return c.Catalog.Source == CatalogSourceDynamoDB || c.LLM.APIKeyParam != "" || c.Twilio.AuthTokenParam != ""
}

func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q: %w", l.Level, err)
	}
	return lvl, nil
}
