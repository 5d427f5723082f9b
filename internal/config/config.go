package config

import (
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// global configuration structure
type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Audit      AuditConfig      `mapstructure:"audit"`
}

// Telegram bot configuration
type BotConfig struct {
	Token   string        `mapstructure:"token"`
	Mode    string        `mapstructure:"mode"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// webhook server configuration
type WebhookConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	ListenPort  string `mapstructure:"listen_port"`
	DebugPath   string `mapstructure:"debug_path"`
	MetricsPath string `mapstructure:"metrics_path"`
	CertFile    string `mapstructure:"cert_file"`
	KeyFile     string `mapstructure:"key_file"`
}

// logging configuration
type LoggerConfig struct {
	Directory string            `mapstructure:"directory"`
	Rotation  LogRotationConfig `mapstructure:"rotation"`
	Level     string            `mapstructure:"level"`
}

// log rotation settings
type LogRotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

type DatabaseConfig struct {
	Driver        string        `mapstructure:"driver"`
	Path          string        `mapstructure:"path"`
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	Username      string        `mapstructure:"username"`
	Password      string        `mapstructure:"password"`
	DBName        string        `mapstructure:"dbname"`
	Charset       string        `mapstructure:"charset"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

type RedisConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	LockKey string        `mapstructure:"lock_key"`
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

// ModerationConfig holds the values the sanction core consumes.
type ModerationConfig struct {
	ChatID            int64                    `mapstructure:"chat_id"`
	ExtraChatIDs      []int64                  `mapstructure:"extra_chat_ids"`
	ServerName        string                   `mapstructure:"server_name"`
	Roles             []string                 `mapstructure:"roles"`
	StaffRole         string                   `mapstructure:"staff_role"`
	MaxBannableRole   string                   `mapstructure:"max_bannable_role"`
	SanctionDuration  time.Duration            `mapstructure:"sanction_duration"`
	Timeouts          map[string]time.Duration `mapstructure:"timeouts"`
	SpamHistoryWindow time.Duration            `mapstructure:"spam_history_window"`
	DryRun            bool                     `mapstructure:"dry_run"`
	Language          string                   `mapstructure:"language"`
	Timezone          string                   `mapstructure:"timezone"`
	PendingTTL        time.Duration            `mapstructure:"pending_ttl"`
}

// AuditConfig routes audit entries to log chats. Zero disables a category.
type AuditConfig struct {
	ModActions int64 `mapstructure:"mod_actions"`
	JoinLeave  int64 `mapstructure:"join_leave"`
	Messages   int64 `mapstructure:"messages"`
	Members    int64 `mapstructure:"members"`
}

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetEnvPrefix("TGMOD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// DRY_RUN is also accepted without the prefix
	if err := v.BindEnv("moderation.dry_run", "TGMOD_MODERATION_DRY_RUN", "DRY_RUN"); err != nil {
		return nil, fmt.Errorf("error binding env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	log.Printf("Using config file: %s", v.ConfigFileUsed())

	loaded := &Config{}
	if err := v.Unmarshal(loaded); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := loaded.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return loaded, nil
}

// Validate checks the values the moderation core cannot run without.
func (c *Config) Validate() error {
	m := c.Moderation
	if m.ChatID == 0 {
		return fmt.Errorf("moderation.chat_id is required")
	}
	if len(m.Roles) == 0 {
		return fmt.Errorf("moderation.roles must list the community roles, lowest first")
	}
	if !slices.Contains(m.Roles, m.StaffRole) {
		return fmt.Errorf("moderation.staff_role %q is not in moderation.roles", m.StaffRole)
	}
	if !slices.Contains(m.Roles, m.MaxBannableRole) {
		return fmt.Errorf("moderation.max_bannable_role %q is not in moderation.roles", m.MaxBannableRole)
	}
	if m.SanctionDuration <= 0 {
		return fmt.Errorf("moderation.sanction_duration must be positive")
	}
	if len(m.Timeouts) == 0 {
		return fmt.Errorf("moderation.timeouts must contain at least one choice")
	}
	for name, d := range m.Timeouts {
		if d <= 0 {
			return fmt.Errorf("moderation.timeouts.%s must be positive", name)
		}
	}
	if _, err := time.LoadLocation(m.Timezone); err != nil {
		return fmt.Errorf("moderation.timezone: %w", err)
	}
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("database.driver must be mysql or sqlite, got %q", c.Database.Driver)
	}
	switch c.Bot.Mode {
	case "webhook", "polling":
	default:
		return fmt.Errorf("bot.mode must be webhook or polling, got %q", c.Bot.Mode)
	}
	return nil
}

// Location returns the time zone the reconciler uses to find midnight.
func (m ModerationConfig) Location() *time.Location {
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.mode", "webhook")
	v.SetDefault("bot.webhook.listen_port", "8443")
	v.SetDefault("bot.webhook.debug_path", "/debug")
	v.SetDefault("bot.webhook.metrics_path", "/metrics")
	v.SetDefault("bot.webhook.cert_file", "")
	v.SetDefault("bot.webhook.key_file", "")

	v.SetDefault("logger.directory", "logs")
	v.SetDefault("logger.rotation.max_size", 10)
	v.SetDefault("logger.rotation.max_backups", 30)
	v.SetDefault("logger.rotation.max_age", 90)
	v.SetDefault("logger.rotation.compress", true)
	v.SetDefault("logger.level", "INFO")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "users.db")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.slow_threshold", "200ms")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.lock_key", "tg-moderator:reconciler")
	v.SetDefault("redis.lock_ttl", "10m")

	v.SetDefault("moderation.server_name", "the community")
	v.SetDefault("moderation.roles", []string{"restricted", "member", "administrator", "creator"})
	v.SetDefault("moderation.staff_role", "administrator")
	v.SetDefault("moderation.max_bannable_role", "member")
	v.SetDefault("moderation.sanction_duration", "2160h")
	v.SetDefault("moderation.timeouts", map[string]string{
		"10m": "10m",
		"1h":  "1h",
		"24h": "24h",
		"1w":  "168h",
	})
	v.SetDefault("moderation.spam_history_window", "168h")
	v.SetDefault("moderation.dry_run", false)
	v.SetDefault("moderation.language", "en")
	v.SetDefault("moderation.timezone", "Local")
	v.SetDefault("moderation.pending_ttl", "5m")
}
