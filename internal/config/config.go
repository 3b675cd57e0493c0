package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "NEWSLETTER_INGEST_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	sourceBaseURLEnv = "SOURCE_API_BASE_URL"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"
	natsURLEnv       = "NATS_URL"
	logLevelEnv      = "LOG_LEVEL"
	syncIntervalEnv  = "SYNC_INTERVAL_HOURS"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig       `yaml:"logging"`
	Database      DatabaseConfig      `yaml:"database"`
	Source        SourceConfig        `yaml:"source"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Segmentation  SegmentationConfig  `yaml:"segmentation"`
	Notifications NotificationConfig  `yaml:"notifications"`
	Publications  []PublicationConfig `yaml:"publications"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN
// selects the in-memory store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SourceConfig points at the publishing platform's API.
type SourceConfig struct {
	BaseURL string `yaml:"baseUrl"`
	// IssueLimit caps how many recent issues one pass fetches.
	IssueLimit int `yaml:"issueLimit"`
	// PublicationDelaySeconds spaces out per-publication API calls.
	PublicationDelaySeconds int `yaml:"publicationDelaySeconds"`
}

// SchedulerConfig defines cadence and retry policy.
type SchedulerConfig struct {
	Enabled           bool `yaml:"enabled"`
	IntervalHours     int  `yaml:"intervalHours"`
	WarmupSeconds     int  `yaml:"warmupSeconds"`
	MaxRetries        int  `yaml:"maxRetries"`
	RetryDelayMinutes int  `yaml:"retryDelayMinutes"`
	HistoryLimit      int  `yaml:"historyLimit"`
}

// Interval resolves the configured cadence.
func (s SchedulerConfig) Interval() time.Duration {
	return time.Duration(s.IntervalHours) * time.Hour
}

// SegmentationConfig carries the template-specific vocabulary. The
// category labels belong to the newsletter template, so they live in
// configuration rather than code.
type SegmentationConfig struct {
	Categories        []string `yaml:"categories"`
	PlaceholderTitles []string `yaml:"placeholderTitles"`
	MinBodyLength     int      `yaml:"minBodyLength"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	NATS     NATSConfig     `yaml:"nats"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// NATSConfig wires the event publisher.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// PublicationConfig describes one newsletter to ingest.
type PublicationConfig struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Token  string `yaml:"token"`
	Domain string `yaml:"domain"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(sourceBaseURLEnv); v != "" {
		c.Source.BaseURL = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv(natsURLEnv); v != "" {
		c.Notifications.NATS.URL = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(syncIntervalEnv); v != "" {
		if hours, err := strconv.Atoi(v); err == nil && hours > 0 {
			c.Scheduler.IntervalHours = hours
		}
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}
	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Source.BaseURL != "" {
		base.Source.BaseURL = override.Source.BaseURL
	}
	if override.Source.IssueLimit > 0 {
		base.Source.IssueLimit = override.Source.IssueLimit
	}
	if override.Source.PublicationDelaySeconds > 0 {
		base.Source.PublicationDelaySeconds = override.Source.PublicationDelaySeconds
	}

	if override.Scheduler.IntervalHours > 0 {
		base.Scheduler.IntervalHours = override.Scheduler.IntervalHours
	}
	if override.Scheduler.WarmupSeconds > 0 {
		base.Scheduler.WarmupSeconds = override.Scheduler.WarmupSeconds
	}
	if override.Scheduler.MaxRetries > 0 {
		base.Scheduler.MaxRetries = override.Scheduler.MaxRetries
	}
	if override.Scheduler.RetryDelayMinutes > 0 {
		base.Scheduler.RetryDelayMinutes = override.Scheduler.RetryDelayMinutes
	}
	if override.Scheduler.HistoryLimit > 0 {
		base.Scheduler.HistoryLimit = override.Scheduler.HistoryLimit
	}
	base.Scheduler.Enabled = override.Scheduler.Enabled || base.Scheduler.Enabled

	if len(override.Segmentation.Categories) > 0 {
		base.Segmentation.Categories = override.Segmentation.Categories
	}
	if len(override.Segmentation.PlaceholderTitles) > 0 {
		base.Segmentation.PlaceholderTitles = override.Segmentation.PlaceholderTitles
	}
	if override.Segmentation.MinBodyLength > 0 {
		base.Segmentation.MinBodyLength = override.Segmentation.MinBodyLength
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}
	if override.Notifications.NATS.URL != "" {
		base.Notifications.NATS.URL = override.Notifications.NATS.URL
	}
	if override.Notifications.NATS.Subject != "" {
		base.Notifications.NATS.Subject = override.Notifications.NATS.Subject
	}

	if len(override.Publications) > 0 {
		base.Publications = override.Publications
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{DSN: ""},
		Source: SourceConfig{
			BaseURL:                 "https://api.beehiiv.com/v2",
			IssueLimit:              5,
			PublicationDelaySeconds: 2,
		},
		Scheduler: SchedulerConfig{
			Enabled:           true,
			IntervalHours:     6,
			WarmupSeconds:     30,
			MaxRetries:        3,
			RetryDelayMinutes: 5,
			HistoryLimit:      50,
		},
		Segmentation: SegmentationConfig{
			Categories: []string{"WORLD", "NATIONAL", "TECHNOLOGY", "BUSINESS", "MISC", "SPONSORED", "GENERAL"},
		},
	}
}
