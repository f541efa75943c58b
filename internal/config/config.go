package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"

	configPathEnv      = "NEWSDIGEST_CONFIG"
	databasePathEnv    = "DATABASE_PATH"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	allowedUsersEnv    = "ALLOWED_USER_IDS"
	openAIKeyEnv       = "OPENAI_API_KEY"
	anthropicKeyEnv    = "ANTHROPIC_API_KEY"
	aiProviderEnv      = "AI_PROVIDER"
	aiModelEnv         = "AI_MODEL"
	digestTimeEnv      = "DIGEST_TIME"
	timezoneEnv        = "TIMEZONE"
	videoServiceEnv    = "VIDEO_SERVICE_URL"
	videoServiceKeyEnv = "VIDEO_SERVICE_KEY"
	archiveDirEnv      = "DIGEST_ARCHIVE_DIR"
	logLevelEnv        = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Providers     ProviderConfig     `yaml:"providers"`
	Video         VideoConfig        `yaml:"video"`
	Archive       ArchiveConfig      `yaml:"archive"`
	Notifications NotificationConfig `yaml:"notifications"`
	Logging       LoggingConfig      `yaml:"logging"`
	Prompts       PromptConfig       `yaml:"prompts"`
	Sources       []SourceConfig     `yaml:"sources"`
}

// DatabaseConfig describes the SQLite database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SchedulerConfig defines when the daily digest cycle runs.
type SchedulerConfig struct {
	DigestTime string         `yaml:"digestTime"`
	Timezone   string         `yaml:"timezone"`
	location   *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// PipelineConfig bounds the collection/scoring fan-out and digest shape.
type PipelineConfig struct {
	ConcurrentSources    int `yaml:"concurrentSources"`
	SourceTimeoutSeconds int `yaml:"sourceTimeoutSeconds"`
	ConcurrentScoring    int `yaml:"concurrentScoring"`
	MaxContentAgeHours   int `yaml:"maxContentAgeHours"`
	MaxContentLength     int `yaml:"maxContentLength"`
	MinContentLength     int `yaml:"minContentLength"`
	ScoreCutoff          int `yaml:"scoreCutoff"`
	TopItems             int `yaml:"topItems"`
	StalenessMinutes     int `yaml:"stalenessMinutes"`
	RetentionDays        int `yaml:"retentionDays"`
}

// SourceTimeout is the per-source collection deadline.
func (p PipelineConfig) SourceTimeout() time.Duration {
	return time.Duration(p.SourceTimeoutSeconds) * time.Second
}

// MaxContentAge converts the configured lookback hours to a duration.
func (p PipelineConfig) MaxContentAge() time.Duration {
	return time.Duration(p.MaxContentAgeHours) * time.Hour
}

// StalenessWindow is how long a completed digest stays reusable.
func (p PipelineConfig) StalenessWindow() time.Duration {
	return time.Duration(p.StalenessMinutes) * time.Minute
}

// Retention is how long audit content is kept before cleanup.
func (p PipelineConfig) Retention() time.Duration {
	return time.Duration(p.RetentionDays) * 24 * time.Hour
}

// ProviderConfig selects and parameterizes the reasoning providers.
type ProviderConfig struct {
	Primary               string          `yaml:"primary"`
	Fallback              string          `yaml:"fallback"`
	RequestTimeoutSeconds int             `yaml:"requestTimeoutSeconds"`
	OpenAI                OpenAIConfig    `yaml:"openai"`
	Anthropic             AnthropicConfig `yaml:"anthropic"`
}

// RequestTimeout is the per-call deadline for provider requests.
func (p ProviderConfig) RequestTimeout() time.Duration {
	return time.Duration(p.RequestTimeoutSeconds) * time.Second
}

// OpenAIConfig defines how to contact an OpenAI-compatible API.
type OpenAIConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
}

// AnthropicConfig defines how to contact the Anthropic messages API.
type AnthropicConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
	Version  string `yaml:"version"`
}

// VideoConfig points at the external video-summary service.
type VideoConfig struct {
	ServiceURL string `yaml:"serviceUrl"`
	APIKey     string `yaml:"apiKey"`
}

// ArchiveConfig points at the directory for markdown digest copies.
// An empty Dir disables archival.
type ArchiveConfig struct {
	Dir string `yaml:"dir"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken       string  `yaml:"botToken"`
	AllowedUserIDs []int64 `yaml:"allowedUserIds"`
}

// LoggingConfig selects log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// PromptConfig carries the scoring rubric and related prompt text.
type PromptConfig struct {
	Importance string `yaml:"importance"`
	Insights   string `yaml:"insights"`
}

// SourceConfig seeds the source registry on first run.
type SourceConfig struct {
	Kind    string `yaml:"kind"`
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
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
	cfg.bindTimezone()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(allowedUsersEnv); v != "" {
		var ids []int64
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				log.Printf("config: skip malformed user id %q: %v", part, err)
				continue
			}
			ids = append(ids, id)
		}
		if len(ids) > 0 {
			c.Notifications.Telegram.AllowedUserIDs = ids
		}
	}

	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.Providers.OpenAI.APIKey = v
	}

	if v := os.Getenv(anthropicKeyEnv); v != "" {
		c.Providers.Anthropic.APIKey = v
	}

	if v := os.Getenv(aiProviderEnv); v != "" {
		c.Providers.Primary = v
	}

	if v := os.Getenv(aiModelEnv); v != "" {
		c.Providers.OpenAI.Model = v
		c.Providers.Anthropic.Model = v
	}

	if v := os.Getenv(digestTimeEnv); v != "" {
		c.Scheduler.DigestTime = v
	}

	if v := os.Getenv(timezoneEnv); v != "" {
		c.Scheduler.Timezone = v
	}

	if v := os.Getenv(videoServiceEnv); v != "" {
		c.Video.ServiceURL = v
	}

	if v := os.Getenv(videoServiceKeyEnv); v != "" {
		c.Video.APIKey = v
	}

	if v := os.Getenv(archiveDirEnv); v != "" {
		c.Archive.Dir = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Scheduler.DigestTime != "" {
		base.Scheduler.DigestTime = override.Scheduler.DigestTime
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	base.Pipeline = mergePipeline(base.Pipeline, override.Pipeline)

	if override.Providers.Primary != "" {
		base.Providers.Primary = override.Providers.Primary
	}
	if override.Providers.Fallback != "" {
		base.Providers.Fallback = override.Providers.Fallback
	}
	if override.Providers.RequestTimeoutSeconds > 0 {
		base.Providers.RequestTimeoutSeconds = override.Providers.RequestTimeoutSeconds
	}
	if override.Providers.OpenAI.Endpoint != "" {
		base.Providers.OpenAI.Endpoint = override.Providers.OpenAI.Endpoint
	}
	if override.Providers.OpenAI.Model != "" {
		base.Providers.OpenAI.Model = override.Providers.OpenAI.Model
	}
	if override.Providers.OpenAI.APIKey != "" {
		base.Providers.OpenAI.APIKey = override.Providers.OpenAI.APIKey
	}
	if override.Providers.Anthropic.Endpoint != "" {
		base.Providers.Anthropic.Endpoint = override.Providers.Anthropic.Endpoint
	}
	if override.Providers.Anthropic.Model != "" {
		base.Providers.Anthropic.Model = override.Providers.Anthropic.Model
	}
	if override.Providers.Anthropic.APIKey != "" {
		base.Providers.Anthropic.APIKey = override.Providers.Anthropic.APIKey
	}
	if override.Providers.Anthropic.Version != "" {
		base.Providers.Anthropic.Version = override.Providers.Anthropic.Version
	}

	if override.Video.ServiceURL != "" {
		base.Video = override.Video
	}

	if override.Archive.Dir != "" {
		base.Archive = override.Archive
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if len(override.Notifications.Telegram.AllowedUserIDs) > 0 {
		base.Notifications.Telegram.AllowedUserIDs = override.Notifications.Telegram.AllowedUserIDs
	}

	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Prompts.Importance != "" {
		base.Prompts.Importance = override.Prompts.Importance
	}
	if override.Prompts.Insights != "" {
		base.Prompts.Insights = override.Prompts.Insights
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func mergePipeline(base, override PipelineConfig) PipelineConfig {
	if override.ConcurrentSources > 0 {
		base.ConcurrentSources = override.ConcurrentSources
	}
	if override.SourceTimeoutSeconds > 0 {
		base.SourceTimeoutSeconds = override.SourceTimeoutSeconds
	}
	if override.ConcurrentScoring > 0 {
		base.ConcurrentScoring = override.ConcurrentScoring
	}
	if override.MaxContentAgeHours > 0 {
		base.MaxContentAgeHours = override.MaxContentAgeHours
	}
	if override.MaxContentLength > 0 {
		base.MaxContentLength = override.MaxContentLength
	}
	if override.MinContentLength > 0 {
		base.MinContentLength = override.MinContentLength
	}
	if override.ScoreCutoff > 0 {
		base.ScoreCutoff = override.ScoreCutoff
	}
	if override.TopItems > 0 {
		base.TopItems = override.TopItems
	}
	if override.StalenessMinutes > 0 {
		base.StalenessMinutes = override.StalenessMinutes
	}
	if override.RetentionDays > 0 {
		base.RetentionDays = override.RetentionDays
	}
	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database:  DatabaseConfig{Path: "data/digest.db"},
		Scheduler: SchedulerConfig{DigestTime: "10:00", Timezone: defaultTimezone, location: tz},
		Pipeline: PipelineConfig{
			ConcurrentSources:    10,
			SourceTimeoutSeconds: 30,
			ConcurrentScoring:    5,
			MaxContentAgeHours:   24,
			MaxContentLength:     4000,
			MinContentLength:     100,
			ScoreCutoff:          30,
			TopItems:             5,
			StalenessMinutes:     30,
			RetentionDays:        7,
		},
		Providers: ProviderConfig{
			Primary:               "openai",
			Fallback:              "",
			RequestTimeoutSeconds: 30,
			OpenAI: OpenAIConfig{
				Endpoint: "https://api.openai.com/v1/chat/completions",
				Model:    "gpt-4o-mini",
			},
			Anthropic: AnthropicConfig{
				Endpoint: "https://api.anthropic.com/v1/messages",
				Model:    "claude-3-5-haiku-latest",
				Version:  "2023-06-01",
			},
		},
		Video:   VideoConfig{ServiceURL: ""},
		Archive: ArchiveConfig{Dir: ""},
		Logging: LoggingConfig{Level: "info"},
		Prompts: PromptConfig{
			Importance: defaultImportancePrompt,
			Insights:   defaultInsightsPrompt,
		},
		Sources: []SourceConfig{
			{Kind: "channel", Name: "Marketing News", Address: "marketing_news"},
			{Kind: "web", Name: "Sostav.ru", Address: "https://sostav.ru/rss/"},
			{Kind: "web", Name: "VC.ru Marketing", Address: "https://vc.ru/marketing/rss"},
			{Kind: "web", Name: "Cossa", Address: "https://www.cossa.ru/rss/"},
		},
	}
}

const defaultImportancePrompt = `Rate how important this news item is for a strategic marketing specialist.

Scoring criteria:
1. Applicability to current work (0-25 points)
2. Potential to change the industry or its methods (0-25 points)
3. Scale of reach: budgets, audience (0-25 points)
4. Novelty of the approach or tool (0-25 points)

Sum the four criteria into a total from 0 to 100 and pick exactly one category
from: trends, channels, cases, technology, research, creative, other.

Item: %s

Reply in the format:
Score: NN
Category: name
Explanation: two or three sentences`

const defaultInsightsPrompt = `Based on today's top news items, formulate three key insights for a
marketing specialist. Each insight is one or two sentences with a practical
takeaway.

Items:
%s

Reply format:
1. [insight]
2. [insight]
3. [insight]`
