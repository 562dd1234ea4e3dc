package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stake-plus/simd-tracker/src/data"
	"github.com/stake-plus/simd-tracker/src/logging"
)

// Database holds connection settings that must be known before the settings table can be read.
type Database struct {
	Driver string
	DSN    string
}

// GitHub holds upstream repository access settings.
type GitHub struct {
	Token        string
	Owner        string
	Repo         string
	APIURL       string
	GraphQLURL   string
	ProposalsDir string
	DocExtension string
}

// Sync tunes the sync engines.
type Sync struct {
	QuotaThreshold       int
	QuotaCheckEvery      int
	PRLookback           time.Duration
	IncludeAllOpen       bool
	DiscussionCategories []string
	DiscussionPageSize   int
	DiscussionCommentCap int
	PRMessageCap         int
	ScheduleInterval     time.Duration
	RunTimeout           time.Duration
}

// Summaries tunes the summary job.
type Summaries struct {
	BatchSize       int
	RefreshInterval time.Duration
}

// AI selects and configures the summarisation provider.
type AI struct {
	Provider    string
	Model       string
	OpenAIKey   string
	ClaudeKey   string
	GeminiKey   string
	Temperature float64
	MaxTokens   int
}

// HTTP configures the trigger and read surface.
type HTTP struct {
	Port           string
	CronSecret     string
	JWTSecret      string
	CORSOrigins    []string
	AdminRateLimit int
}

// Discord configures optional notifications.
type Discord struct {
	Token     string
	ChannelID string
}

// Config is the fully resolved tracker configuration.
type Config struct {
	Database   Database
	RedisURL   string
	GitHub     GitHub
	Sync       Sync
	Summaries  Summaries
	AI         AI
	HTTP       HTTP
	Discord    Discord
	BotAuthors []string
	LogLevel   string
	JSONLogs   bool
}

// NewViper returns a viper instance reading SIMD_* environment variables and,
// when configFile is set, that file.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("SIMD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("github.owner", "solana-foundation")
	v.SetDefault("github.repo", "solana-improvement-documents")
	v.SetDefault("github.proposals_dir", "proposals")
	v.SetDefault("github.doc_extension", ".md")
	v.SetDefault("sync.quota_threshold", 50)
	v.SetDefault("sync.quota_check_every", 30)
	v.SetDefault("sync.pr_lookback_days", 90)
	v.SetDefault("sync.include_all_open", false)
	v.SetDefault("sync.discussion_categories", "simd-discussions,ideas")
	v.SetDefault("sync.discussion_page_size", 50)
	v.SetDefault("sync.discussion_comment_cap", 10)
	v.SetDefault("sync.pr_message_cap", 500)
	v.SetDefault("sync.schedule_interval", "1h")
	v.SetDefault("sync.run_timeout", "5m")
	v.SetDefault("summaries.batch_size", 50)
	v.SetDefault("summaries.refresh_interval", "6h")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.model", "gpt-5-mini")
	v.SetDefault("ai.temperature", 0.3)
	v.SetDefault("ai.max_tokens", 500)
	v.SetDefault("http.port", "8080")
	v.SetDefault("http.admin_rate_limit", 30)
	v.SetDefault("bot_authors", "simd-bot[bot]")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", true)
}

// LoadDatabase reads the connection settings, which never come from the settings table.
func LoadDatabase(v *viper.Viper) Database {
	return Database{
		Driver: v.GetString("database.driver"),
		DSN:    v.GetString("database.dsn"),
	}
}

// Load resolves the configuration. Values in the settings table win over the
// environment and config file, which win over defaults. db may be nil.
func Load(v *viper.Viper, db *gorm.DB) Config {
	if db != nil {
		if err := data.LoadSettings(db); err != nil {
			logging.L().Warn("settings table unavailable, using environment", zap.Error(err))
		}
	}

	return Config{
		Database: LoadDatabase(v),
		RedisURL: GetSetting(v, "redis.url"),
		GitHub: GitHub{
			Token:        GetSetting(v, "github.token"),
			Owner:        GetSetting(v, "github.owner"),
			Repo:         GetSetting(v, "github.repo"),
			APIURL:       GetSetting(v, "github.api_url"),
			GraphQLURL:   GetSetting(v, "github.graphql_url"),
			ProposalsDir: GetSetting(v, "github.proposals_dir"),
			DocExtension: GetSetting(v, "github.doc_extension"),
		},
		Sync: Sync{
			QuotaThreshold:       getInt(v, "sync.quota_threshold"),
			QuotaCheckEvery:      getInt(v, "sync.quota_check_every"),
			PRLookback:           time.Duration(getInt(v, "sync.pr_lookback_days")) * 24 * time.Hour,
			IncludeAllOpen:       getBool(v, "sync.include_all_open"),
			DiscussionCategories: parseCSV(GetSetting(v, "sync.discussion_categories")),
			DiscussionPageSize:   getInt(v, "sync.discussion_page_size"),
			DiscussionCommentCap: getInt(v, "sync.discussion_comment_cap"),
			PRMessageCap:         getInt(v, "sync.pr_message_cap"),
			ScheduleInterval:     getDuration(v, "sync.schedule_interval"),
			RunTimeout:           getDuration(v, "sync.run_timeout"),
		},
		Summaries: Summaries{
			BatchSize:       getInt(v, "summaries.batch_size"),
			RefreshInterval: getDuration(v, "summaries.refresh_interval"),
		},
		AI: AI{
			Provider:    GetSetting(v, "ai.provider"),
			Model:       GetSetting(v, "ai.model"),
			OpenAIKey:   GetSetting(v, "ai.openai_key"),
			ClaudeKey:   GetSetting(v, "ai.claude_key"),
			GeminiKey:   GetSetting(v, "ai.gemini_key"),
			Temperature: getFloat(v, "ai.temperature"),
			MaxTokens:   getInt(v, "ai.max_tokens"),
		},
		HTTP: HTTP{
			Port:           GetSetting(v, "http.port"),
			CronSecret:     GetSetting(v, "http.cron_secret"),
			JWTSecret:      GetSetting(v, "http.jwt_secret"),
			CORSOrigins:    parseCSV(GetSetting(v, "http.cors_origins")),
			AdminRateLimit: getInt(v, "http.admin_rate_limit"),
		},
		Discord: Discord{
			Token:     GetSetting(v, "discord.token"),
			ChannelID: GetSetting(v, "discord.channel_id"),
		},
		BotAuthors: parseCSV(GetSetting(v, "bot_authors")),
		LogLevel:   GetSetting(v, "log.level"),
		JSONLogs:   getBool(v, "log.json"),
	}
}

// SettingName maps a viper key onto its settings-table name ("github.token" -> "github_token").
func SettingName(key string) string {
	return strings.ReplaceAll(key, ".", "_")
}

// GetSetting retrieves a setting with env/file/default fallback
func GetSetting(v *viper.Viper, key string) string {
	if val := strings.TrimSpace(data.GetSetting(SettingName(key))); val != "" {
		return val
	}
	return strings.TrimSpace(v.GetString(key))
}

func getInt(v *viper.Viper, key string) int {
	raw := GetSetting(v, key)
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	return v.GetInt(key)
}

func getFloat(v *viper.Viper, key string) float64 {
	raw := GetSetting(v, key)
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return v.GetFloat64(key)
}

func getBool(v *viper.Viper, key string) bool {
	return parseBoolDefault(GetSetting(v, key), v.GetBool(key))
}

func getDuration(v *viper.Viper, key string) time.Duration {
	raw := GetSetting(v, key)
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return v.GetDuration(key)
}

func parseBoolDefault(raw string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
