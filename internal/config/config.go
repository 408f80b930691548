// Package config loads application configuration from an optional YAML file
// and INCIDENTDESK_ environment variables layered over built-in defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "INCIDENTDESK_"

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Log           LogConfig           `koanf:"log"`
	CORS          CORSConfig          `koanf:"cors"`
	JWT           JWTConfig           `koanf:"jwt"`
	Storage       StorageConfig       `koanf:"storage"`
	SLA           SLAConfig           `koanf:"sla"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Attachments   AttachmentsConfig   `koanf:"attachments"`
	Auth          AuthConfig          `koanf:"auth"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	MetricsPort     int           `koanf:"metrics_port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// JWTConfig holds token settings.
type JWTConfig struct {
	Secret   string        `koanf:"secret" validate:"required"`
	TokenTTL time.Duration `koanf:"token_ttl"`
}

// StorageConfig selects and configures the snapshot store.
type StorageConfig struct {
	Driver   string         `koanf:"driver" validate:"oneof=postgres sqlite file memory"`
	Postgres PostgresConfig `koanf:"postgres"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`
	File     FileConfig     `koanf:"file"`
}

// PostgresConfig holds postgres settings.
type PostgresConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectAttempts int           `koanf:"connect_attempts"`
}

// SQLiteConfig holds sqlite settings.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// FileConfig holds file store settings.
type FileConfig struct {
	Dir string `koanf:"dir"`
}

// SLAConfig holds SLA monitor settings.
type SLAConfig struct {
	CheckInterval time.Duration `koanf:"check_interval"`
	WarnAfter     time.Duration `koanf:"warn_after"`
	EscalateAfter time.Duration `koanf:"escalate_after"`
}

// NotificationsConfig holds outbound notification settings.
type NotificationsConfig struct {
	Enabled     bool                `koanf:"enabled"`
	WebhookURLs []string            `koanf:"webhook_urls"`
	Emails      []string            `koanf:"emails"`
	Webhook     WebhookSenderConfig `koanf:"webhook"`
	Email       EmailSenderConfig   `koanf:"email"`
	Worker      WorkerConfig        `koanf:"worker"`
}

// WebhookSenderConfig holds webhook sender settings.
type WebhookSenderConfig struct {
	Timeout   time.Duration `koanf:"timeout"`
	RateLimit float64       `koanf:"rate_limit"`
}

// EmailSenderConfig holds SMTP settings.
type EmailSenderConfig struct {
	Enabled      bool   `koanf:"enabled"`
	SMTPHost     string `koanf:"smtp_host"`
	SMTPPort     int    `koanf:"smtp_port"`
	SMTPUser     string `koanf:"smtp_user"`
	SMTPPassword string `koanf:"smtp_password"`
	FromAddress  string `koanf:"from_address"`
}

// WorkerConfig holds delivery worker settings.
type WorkerConfig struct {
	BatchSize         int           `koanf:"batch_size"`
	PollInterval      time.Duration `koanf:"poll_interval"`
	MaxAttempts       int           `koanf:"max_attempts"`
	InitialBackoff    time.Duration `koanf:"initial_backoff"`
	MaxBackoff        time.Duration `koanf:"max_backoff"`
	BackoffMultiplier float64       `koanf:"backoff_multiplier"`
	NumWorkers        int           `koanf:"num_workers"`
}

// AttachmentsConfig selects and configures the blob store.
type AttachmentsConfig struct {
	Driver string           `koanf:"driver" validate:"oneof=fs minio"`
	FS     FileConfig       `koanf:"fs"`
	Minio  MinioBlobsConfig `koanf:"minio"`
}

// MinioBlobsConfig holds object storage settings.
type MinioBlobsConfig struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Bucket    string `koanf:"bucket"`
	UseSSL    bool   `koanf:"use_ssl"`
}

// AuthConfig holds the configured account allow-lists.
type AuthConfig struct {
	Admins []AdminAccount `koanf:"admins"`
	Users  []UserAccount  `koanf:"users"`
}

// AdminAccount is one admin allow-list entry.
type AdminAccount struct {
	Username    string `koanf:"username" validate:"required"`
	Password    string `koanf:"password" validate:"required"`
	DisplayName string `koanf:"display_name"`
	Email       string `koanf:"email"`
}

// UserAccount is one regular-user allow-list entry.
type UserAccount struct {
	Username    string `koanf:"username" validate:"required"`
	Password    string `koanf:"password" validate:"required"`
	DisplayName string `koanf:"display_name"`
	Email       string `koanf:"email"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			MetricsPort:     9090,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		JWT: JWTConfig{
			TokenTTL: 24 * time.Hour,
		},
		Storage: StorageConfig{
			Driver: "file",
			Postgres: PostgresConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 30 * time.Minute,
				ConnectAttempts: 5,
			},
			SQLite: SQLiteConfig{Path: "data/incident-desk.db"},
			File:   FileConfig{Dir: "data"},
		},
		SLA: SLAConfig{
			CheckInterval: 60 * time.Second,
			WarnAfter:     2 * time.Hour,
			EscalateAfter: 4 * time.Hour,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Webhook: WebhookSenderConfig{
				Timeout:   10 * time.Second,
				RateLimit: 5,
			},
			Email: EmailSenderConfig{SMTPPort: 587},
			Worker: WorkerConfig{
				BatchSize:         50,
				PollInterval:      5 * time.Second,
				MaxAttempts:       3,
				InitialBackoff:    time.Second,
				MaxBackoff:        5 * time.Minute,
				BackoffMultiplier: 2.0,
				NumWorkers:        2,
			},
		},
		Attachments: AttachmentsConfig{
			Driver: "fs",
			FS:     FileConfig{Dir: "data/blobs"},
		},
	}
}

// Load reads configuration from path (optional, empty skips the file) and
// the environment, layered over the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Double underscore separates nesting levels, single underscores stay in
	// key names: INCIDENTDESK_SERVER__METRICS_PORT becomes server.metrics_port.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Storage.Driver == "postgres" && c.Storage.Postgres.URL == "" {
		return fmt.Errorf("storage.postgres.url is required for the postgres driver")
	}
	if c.Attachments.Driver == "minio" && c.Attachments.Minio.Endpoint == "" {
		return fmt.Errorf("attachments.minio.endpoint is required for the minio driver")
	}
	if c.SLA.WarnAfter >= c.SLA.EscalateAfter {
		return fmt.Errorf("sla.warn_after must be below sla.escalate_after")
	}
	return nil
}
