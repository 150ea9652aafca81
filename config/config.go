// Package config loads runtime configuration for the agent from the
// environment, with an optional YAML file underneath. Environment
// variables always win over file values; file values win over defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// Default values applied before file and environment overrides.
const (
	DefaultTokenLimit     = 50000
	DefaultBatchSize      = 8
	DefaultRetryThreshold = 2
	DefaultMaxRetries     = 2
	DefaultCancelTTL      = 10 * time.Minute
	DefaultProvider       = ProviderOpenAI
)

// RetrieverConfig bounds the endpoint retrieval workflow.
type RetrieverConfig struct {
	// BatchSize is how many candidate documents each round fetches.
	// Env: ENDPOINT_RETRIEVER_BATCH_SIZE.
	BatchSize int `yaml:"batch_size"`

	// RetryThreshold is the relevant-document count at or below which
	// the workflow retries. Env: ENDPOINT_RETRIEVER_RETRY_THRESHOLD.
	RetryThreshold int `yaml:"retry_threshold"`

	// MaxRetries caps query rewrites per run.
	// Env: ENDPOINT_RETRIEVER_MAX_RETRIES.
	MaxRetries int `yaml:"max_retries"`
}

// OBPConfig configures access to the Open Bank Project API.
type OBPConfig struct {
	// BaseURL is the OBP instance root. Env: OBP_BASE_URL.
	BaseURL string `yaml:"base_url"`

	// DirectLoginToken authenticates API requests.
	// Env: OBP_DIRECT_LOGIN_TOKEN.
	DirectLoginToken string `yaml:"direct_login_token"`
}

// StoreConfig selects the checkpoint persistence backend. When both are
// empty the agent falls back to in-memory checkpoints.
type StoreConfig struct {
	// SQLitePath is the checkpoint database file.
	// Env: CHECKPOINT_SQLITE_PATH.
	SQLitePath string `yaml:"sqlite_path"`

	// MySQLDSN is a go-sql-driver/mysql DSN; takes precedence over
	// SQLitePath when set. Env: CHECKPOINT_MYSQL_DSN.
	MySQLDSN string `yaml:"mysql_dsn"`
}

// Config is the complete agent configuration.
type Config struct {
	// ModelProvider selects the LLM backend: openai, anthropic or
	// google. Env: MODEL_PROVIDER.
	ModelProvider string `yaml:"model_provider"`

	// ModelName overrides the provider's default model. Env: MODEL_NAME.
	ModelName string `yaml:"model_name"`

	// API keys per provider. Env: OPENAI_API_KEY, ANTHROPIC_API_KEY,
	// GOOGLE_API_KEY. Keys never come from the YAML file.
	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`
	GoogleAPIKey    string `yaml:"-"`

	// TokenLimit triggers conversation summarization.
	// Env: CONVERSATION_TOKEN_LIMIT.
	TokenLimit int `yaml:"conversation_token_limit"`

	// CancelTTL is how long unconsumed cancellation flags survive.
	// Env: CANCELLATION_FLAG_TTL (Go duration string).
	CancelTTL time.Duration `yaml:"cancellation_flag_ttl"`

	Retriever RetrieverConfig `yaml:"retriever"`
	OBP       OBPConfig       `yaml:"obp"`
	Store     StoreConfig     `yaml:"store"`
}

// Default returns the configuration with all defaults applied.
func Default() Config {
	return Config{
		ModelProvider: DefaultProvider,
		TokenLimit:    DefaultTokenLimit,
		CancelTTL:     DefaultCancelTTL,
		Retriever: RetrieverConfig{
			BatchSize:      DefaultBatchSize,
			RetryThreshold: DefaultRetryThreshold,
			MaxRetries:     DefaultMaxRetries,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (skipped when path is empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds the configuration from defaults and environment
// variables only, honoring OPEY_CONFIG_FILE as an optional file path.
func FromEnv() (Config, error) {
	return Load(os.Getenv("OPEY_CONFIG_FILE"))
}

func (c *Config) applyEnv() error {
	setString(&c.ModelProvider, "MODEL_PROVIDER")
	setString(&c.ModelName, "MODEL_NAME")
	setString(&c.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setString(&c.GoogleAPIKey, "GOOGLE_API_KEY")
	setString(&c.OBP.BaseURL, "OBP_BASE_URL")
	setString(&c.OBP.DirectLoginToken, "OBP_DIRECT_LOGIN_TOKEN")
	setString(&c.Store.SQLitePath, "CHECKPOINT_SQLITE_PATH")
	setString(&c.Store.MySQLDSN, "CHECKPOINT_MYSQL_DSN")

	if err := setInt(&c.TokenLimit, "CONVERSATION_TOKEN_LIMIT"); err != nil {
		return err
	}
	if err := setInt(&c.Retriever.BatchSize, "ENDPOINT_RETRIEVER_BATCH_SIZE"); err != nil {
		return err
	}
	if err := setInt(&c.Retriever.RetryThreshold, "ENDPOINT_RETRIEVER_RETRY_THRESHOLD"); err != nil {
		return err
	}
	if err := setInt(&c.Retriever.MaxRetries, "ENDPOINT_RETRIEVER_MAX_RETRIES"); err != nil {
		return err
	}
	return setDuration(&c.CancelTTL, "CANCELLATION_FLAG_TTL")
}

// Validate checks cross-field consistency.
func (c Config) Validate() error {
	switch c.ModelProvider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle:
	default:
		return fmt.Errorf("unknown model provider: %q", c.ModelProvider)
	}
	if c.TokenLimit < 0 {
		return fmt.Errorf("conversation token limit must not be negative: %d", c.TokenLimit)
	}
	if c.Retriever.BatchSize <= 0 {
		return fmt.Errorf("retriever batch size must be positive: %d", c.Retriever.BatchSize)
	}
	if c.Retriever.RetryThreshold < 0 || c.Retriever.MaxRetries < 0 {
		return fmt.Errorf("retriever retry settings must not be negative")
	}
	return nil
}

// APIKey returns the key for the configured provider.
func (c Config) APIKey() string {
	switch c.ModelProvider {
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	case ProviderGoogle:
		return c.GoogleAPIKey
	default:
		return c.OpenAIAPIKey
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
