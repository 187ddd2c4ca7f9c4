// Package config provides the configuration schema, loader, and provider
// registry for the shop-voice command server.
package config

import "time"

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Store     StoreConfig     `yaml:"store"`
	Cache     CacheConfig     `yaml:"cache"`
	Queue     QueueConfig     `yaml:"queue"`
	Mail      MailConfig      `yaml:"mail"`
	Objects   ObjectConfig    `yaml:"object_store"`
}

// LogLevel controls slog verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	}
	return false
}

// ServerConfig holds network, logging, and locale settings for the server.
type ServerConfig struct {
	// ListenAddr is the TCP address the duplex session-manager websocket
	// endpoint listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// Timezone is the IANA timezone name used for all reminder scheduling
	// and daily-summary cutoffs (e.g., "Asia/Kolkata"). Required: the
	// business engine never calls time.Now() against the system local
	// zone directly.
	Timezone string `yaml:"timezone"`
}

// ProvidersConfig declares which provider implementation to use for each
// external model collaborator. Each field selects a named provider
// registered in the [Registry].
type ProvidersConfig struct {
	LLM ProviderEntry `yaml:"llm"`

	// LLMFallback is an optional second, typically lower-latency chat
	// provider used by the Response Generator's slow (LLM) path. When Name
	// is empty, the slow path uses the primary LLM instead.
	LLMFallback ProviderEntry `yaml:"llm_fallback"`

	STT ProviderEntry `yaml:"stt"`
	TTS ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field is used to look up the constructor in the
// [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai", "deepgram").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider.
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by
	// the standard fields above.
	Options map[string]any `yaml:"options"`
}

// StoreConfig configures the transactional Postgres connection backing
// Transactional Data Services.
type StoreConfig struct {
	// DSN is the PostgreSQL connection string.
	DSN string `yaml:"dsn"`

	// MaxConns bounds the pgxpool. Zero means the pgxpool default.
	MaxConns int32 `yaml:"max_conns"`

	// MigrateOnStart runs the idempotent DDL migration at startup when true.
	MigrateOnStart bool `yaml:"migrate_on_start"`
}

// CacheConfig configures the key-value cache used for the customer-balance
// cache, LLM-response memoization, and OTP challenges.
type CacheConfig struct {
	Addr string `yaml:"addr"`
}

// QueueConfig configures the delayed-job queue backing the reminder
// scheduler, and the periodic backstop sweep that runs alongside it.
type QueueConfig struct {
	Addr string `yaml:"addr"`

	// SweepCron is a standard 5-field cron expression for the periodic
	// due-reminder sweep (e.g., "*/5 * * * *").
	SweepCron string `yaml:"sweep_cron"`

	// MaxAttempts bounds reminder job retries before a job is marked failed.
	MaxAttempts int `yaml:"max_attempts"`
}

// MailConfig configures the SMTP sender used for OTP delivery
// (DELETE_CUSTOMER_DATA) and the SEND_INVOICE e-mail channel.
type MailConfig struct {
	SMTPAddr   string `yaml:"smtp_addr"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	FromEmail  string `yaml:"from_email"`
	AdminEmail string `yaml:"admin_email"`
}

// ObjectConfig is accepted but unused by the core: recording uploads are
// out of scope, but operators run this binary against the same deployment
// config as the rest of the stack, so the field must parse rather than
// fail KnownFields(true) decoding.
type ObjectConfig struct {
	Endpoint string `yaml:"endpoint"`
	Bucket   string `yaml:"bucket"`
}

// OTPTTL is the lifetime of a DELETE_CUSTOMER_DATA OTP challenge.
const OTPTTL = 10 * time.Minute

// ConversationTurnLimit and CustomerRingLimit are the bounded in-session
// memory sizes named by the data model. They are not operator-configurable:
// changing them changes session-memory semantics the rest of the pipeline
// assumes.
const (
	ConversationTurnLimit = 20
	CustomerRingLimit     = 10
)
