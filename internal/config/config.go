// Package config provides configuration loading and validation for the server and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Default and by Load before the file and environment are read
const (
	DefaultPort           = 8080
	DefaultMaxUploadBytes = 10 << 20
	DefaultLLMTimeout     = "60s"
	DefaultMaxInputChars  = 30000
	DefaultModelTier      = "standard"
	DefaultCacheTTL       = "168h"
	DefaultArchiveBucket  = "resumes"
	DefaultAMQPExchange   = "resume_activity"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "json"
)

// Config is the application configuration. Every section is optional except
// server and llm limits; an empty URL disables the matching adapter.
type Config struct {
	Server  ServerConfig  `json:"server" yaml:"server"`
	LLM     LLMConfig     `json:"llm" yaml:"llm"`
	Log     LogConfig     `json:"log" yaml:"log"`
	Storage StorageConfig `json:"storage" yaml:"storage"`
	Cache   CacheConfig   `json:"cache" yaml:"cache"`
	Events  EventsConfig  `json:"events" yaml:"events"`
	Archive ArchiveConfig `json:"archive" yaml:"archive"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Port           int   `json:"port" yaml:"port" validate:"min=1,max=65535"`
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes" validate:"gt=0"`
}

// LLMConfig holds language model settings
type LLMConfig struct {
	APIKey        string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Tier          string `json:"tier" yaml:"tier" validate:"oneof=lite standard advanced"`
	// Model overrides the provider model for Tier
	Model         string `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout       string `json:"timeout" yaml:"timeout" validate:"duration"`
	MaxInputChars int    `json:"max_input_chars" yaml:"max_input_chars" validate:"gt=0"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `json:"level" yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `json:"format" yaml:"format" validate:"oneof=json pretty"`
}

// StorageConfig holds the PostgreSQL connection
type StorageConfig struct {
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty" validate:"omitempty,url"`
}

// CacheConfig holds the Redis connection and entry lifetime
type CacheConfig struct {
	RedisURL string `json:"redis_url,omitempty" yaml:"redis_url,omitempty" validate:"omitempty,url"`
	TTL      string `json:"ttl" yaml:"ttl" validate:"duration"`
}

// EventsConfig holds the RabbitMQ connection for the activity feed
type EventsConfig struct {
	AMQPURL  string `json:"amqp_url,omitempty" yaml:"amqp_url,omitempty" validate:"omitempty,url"`
	Exchange string `json:"exchange" yaml:"exchange" validate:"required"`
}

// ArchiveConfig holds MinIO settings for the original document archive
type ArchiveConfig struct {
	Endpoint        string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	AccessKeyID     string `json:"access_key_id,omitempty" yaml:"access_key_id,omitempty" validate:"required_with=Endpoint"`
	SecretAccessKey string `json:"secret_access_key,omitempty" yaml:"secret_access_key,omitempty" validate:"required_with=Endpoint"`
	Bucket          string `json:"bucket" yaml:"bucket" validate:"required"`
	Location        string `json:"location,omitempty" yaml:"location,omitempty"`
	UseSSL          bool   `json:"use_ssl" yaml:"use_ssl"`
}

// Default returns a Config with every default applied
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: DefaultPort, MaxUploadBytes: DefaultMaxUploadBytes},
		LLM: LLMConfig{
			Tier:          DefaultModelTier,
			Timeout:       DefaultLLMTimeout,
			MaxInputChars: DefaultMaxInputChars,
		},
		Log:     LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Cache:   CacheConfig{TTL: DefaultCacheTTL},
		Events:  EventsConfig{Exchange: DefaultAMQPExchange},
		Archive: ArchiveConfig{Bucket: DefaultArchiveBucket},
	}
}

// LoadConfig reads a JSON or YAML file over the defaults. The format is chosen
// by extension: .yaml and .yml are YAML, anything else is JSON.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return cfg, nil
}

// Load builds the effective configuration: defaults, then the optional file,
// then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables on c. lookup is os.LookupEnv outside tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("GEMINI_API_KEY", &c.LLM.APIKey)
	str("LLM_TIER", &c.LLM.Tier)
	str("LLM_MODEL", &c.LLM.Model)
	str("LLM_TIMEOUT", &c.LLM.Timeout)
	str("DATABASE_URL", &c.Storage.DatabaseURL)
	str("REDIS_URL", &c.Cache.RedisURL)
	str("CACHE_TTL", &c.Cache.TTL)
	str("AMQP_URL", &c.Events.AMQPURL)
	str("AMQP_EXCHANGE", &c.Events.Exchange)
	str("MINIO_ENDPOINT", &c.Archive.Endpoint)
	str("MINIO_ACCESS_KEY_ID", &c.Archive.AccessKeyID)
	str("MINIO_SECRET_ACCESS_KEY", &c.Archive.SecretAccessKey)
	str("MINIO_BUCKET", &c.Archive.Bucket)
	str("MINIO_LOCATION", &c.Archive.Location)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("MINIO_USE_SSL"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid MINIO_USE_SSL: %v", err)
		}
		c.Archive.UseSSL = b
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %v", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("MAX_INPUT_CHARS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MAX_INPUT_CHARS: %v", err)
		}
		c.LLM.MaxInputChars = n
	}
	return nil
}

// Validate checks field ranges and formats
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.RegisterValidation("duration", validDuration); err != nil {
		return fmt.Errorf("failed to register duration validation: %w", err)
	}

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %s", describeValidation(err))
	}
	return nil
}

// LLMTimeout returns the parsed model call timeout
func (c *Config) LLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, DefaultLLMTimeout)
}

// CacheTTL returns the parsed cache entry lifetime
func (c *Config) CacheTTL() time.Duration {
	return parseDuration(c.Cache.TTL, DefaultCacheTTL)
}

func parseDuration(value, fallback string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func validDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d > 0
}

// describeValidation returns the first failure as "field: tag"
func describeValidation(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
		fe := validationErrors[0]
		return fmt.Sprintf("'%s' failed '%s'", fe.Namespace(), fe.Tag())
	}
	return err.Error()
}
