// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/robfig/cron/v3"
)

// Config holds all application configuration.
type Config struct {
	Port               string        `env:"PORT" env-default:"8080"`
	LogLevel           string        `env:"LOG_LEVEL" env-default:"info"`
	AllowedOrigins     []string      `env:"ALLOWED_ORIGINS" env-separator:","`
	OperatorContact    string        `env:"OPERATOR_CONTACT" env-default:"el administrador del sistema"`
	EmergencyContact   string        `env:"EMERGENCY_CONTACT"`
	HeartbeatSchedule  string        `env:"HEARTBEAT_SCHEDULE" env-default:"@every 5m"`
	HealthCheckTimeout time.Duration `env:"HEALTH_CHECK_TIMEOUT" env-default:"5s"`

	Database        DatabaseConfig
	Telegram        TelegramConfig
	WebChat         WebChatConfig
	Mailbox         MailboxConfig
	ConversationLog ConversationLogConfig
}

// DatabaseConfig selects and locates the report database.
type DatabaseConfig struct {
	Driver      string `env:"DB_DRIVER" env-default:"sqlite"`
	URL         string `env:"DATABASE_URL"`
	Host        string `env:"DB_HOST"`
	Port        int    `env:"DB_PORT" env-default:"5432"`
	User        string `env:"DB_USER"`
	Password    string `env:"DB_PASSWORD"`
	Name        string `env:"DB_DATABASE"`
	SSLMode     string `env:"DB_SSLMODE" env-default:"disable"`
	Path        string `env:"DB_PATH" env-default:"./data/alertas.db"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" env-default:"true"`
}

// TelegramConfig controls the Telegram channel. An empty token disables it.
type TelegramConfig struct {
	Token         string `env:"TELEGRAM_BOT_TOKEN"`
	WebhookURL    string `env:"TELEGRAM_WEBHOOK_URL"`
	WebhookPath   string `env:"TELEGRAM_WEBHOOK_PATH" env-default:"/telegram/webhook"`
	// WebhookSecret is echoed by Telegram in X-Telegram-Bot-Api-Secret-Token.
	WebhookSecret string `env:"TELEGRAM_WEBHOOK_SECRET"`
	Debug         bool   `env:"TELEGRAM_DEBUG" env-default:"false"`
}

// WebChatConfig controls the browser chat channel.
type WebChatConfig struct {
	Enabled     bool          `env:"WEBCHAT_ENABLED" env-default:"true"`
	// TokenSecret signs resume tokens. Empty means a per-process random key.
	TokenSecret string        `env:"WEBCHAT_TOKEN_SECRET"`
	TokenTTL    time.Duration `env:"WEBCHAT_TOKEN_TTL" env-default:"24h"`
}

var webhookSecretPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,256}$`)

// MailboxConfig tunes per-conversation event queues.
type MailboxConfig struct {
	Buffer      int           `env:"MAILBOX_BUFFER" env-default:"16"`
	IdleTimeout time.Duration `env:"MAILBOX_IDLE_TIMEOUT" env-default:"10m"`
	RatePerSec  float64       `env:"RATE_LIMIT_PER_SECOND" env-default:"2"`
	Burst       int           `env:"RATE_LIMIT_BURST" env-default:"5"`
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool   `env:"CONVERSATION_LOG_ENABLED" env-default:"true"`
	Dir           string `env:"CONVERSATION_LOG_DIR" env-default:"./data/logs/conversations"`
	GlobalEnabled bool   `env:"CONVERSATION_LOG_GLOBAL_ENABLED" env-default:"false"`
	GlobalPath    string `env:"CONVERSATION_LOG_GLOBAL_PATH" env-default:"./data/logs/conversations/all.ndjson"`
	QueueSize     int    `env:"CONVERSATION_LOG_QUEUE_SIZE" env-default:"1000"`
	MaxOpenFiles  int    `env:"CONVERSATION_LOG_MAX_OPEN_FILES" env-default:"128"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT cannot be empty")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("DB_PATH cannot be empty when DB_DRIVER=sqlite")
		}
	case "postgres":
		if c.Database.URL == "" && (c.Database.Host == "" || c.Database.Name == "") {
			return errors.New("DATABASE_URL or DB_HOST and DB_DATABASE are required when DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Telegram.Token == "" && !c.WebChat.Enabled {
		return errors.New("no channel enabled: set TELEGRAM_BOT_TOKEN or WEBCHAT_ENABLED=true")
	}
	if c.Telegram.WebhookURL != "" {
		if !strings.HasPrefix(c.Telegram.WebhookPath, "/") {
			return errors.New("TELEGRAM_WEBHOOK_PATH must start with /")
		}
		if !webhookSecretPattern.MatchString(c.Telegram.WebhookSecret) {
			return errors.New("TELEGRAM_WEBHOOK_SECRET is required with TELEGRAM_WEBHOOK_URL and may only contain A-Z, a-z, 0-9, _ and -")
		}
	}
	if c.WebChat.Enabled && c.WebChat.TokenTTL <= 0 {
		return errors.New("WEBCHAT_TOKEN_TTL must be > 0")
	}
	if c.Mailbox.Buffer <= 0 {
		return errors.New("MAILBOX_BUFFER must be > 0")
	}
	if c.Mailbox.RatePerSec < 0 || c.Mailbox.Burst < 0 {
		return errors.New("RATE_LIMIT_PER_SECOND and RATE_LIMIT_BURST must be >= 0")
	}
	if c.Mailbox.RatePerSec > 0 && c.Mailbox.Burst == 0 {
		return errors.New("RATE_LIMIT_BURST must be > 0 when rate limiting is enabled")
	}
	if c.HeartbeatSchedule != "" {
		if _, err := cron.ParseStandard(c.HeartbeatSchedule); err != nil {
			return fmt.Errorf("HEARTBEAT_SCHEDULE: %w", err)
		}
	}
	if c.ConversationLog.Dir == "" {
		return errors.New("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalPath == "" {
		return errors.New("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return errors.New("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	if c.ConversationLog.MaxOpenFiles <= 0 {
		return errors.New("CONVERSATION_LOG_MAX_OPEN_FILES must be > 0")
	}
	return nil
}

// DSN returns the connection string for the configured driver. For SQLite
// it is the database file path.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	if d.User != "" {
		u.User = url.UserPassword(d.User, d.Password)
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	lvl, _ := parseLevel(c.LogLevel)
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}
