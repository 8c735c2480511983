// Package config loads run settings from the environment and the source
// catalog from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Title store backends.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Transform providers.
const (
	ProviderGemini     = "gemini"
	ProviderOpenAI     = "openai"
	ProviderExtractive = "extractive"
)

type Config struct {
	// Paths
	DataDir     string
	SourcesFile string

	// Publication index
	IndexLimit      int
	ShardLimit      int
	SiteURL         string
	SiteTitle       string
	SiteDescription string

	// Titles-seen memory
	TitlesLimit    int
	TitlesStore    string // file | postgres | sqlite
	TitlesFile     string
	DatabaseURL    string
	SQLitePath     string
	DedupThreshold float64

	// Grouping
	GroupCutoff    float64
	GroupMinShared int
	GroupMaxSize   int

	// Fetching
	FetchWorkers   int
	FetchTimeout   time.Duration
	DomainInterval time.Duration
	RunTimeout     time.Duration
	UserAgent      string
	Languages      []string

	// Transform
	TransformProvider string // gemini | openai | extractive
	GeminiAPIKey      string
	GeminiModel       string
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIBaseURL     string
	TransformSpacing  time.Duration
	MaxTransformCalls int // 0 = unlimited
	MaxPublishPerRun  int // 0 = unlimited
	TargetLanguage    string
	EnrichArticles    bool
	RetryAttempts     int
	RetryDelay        time.Duration

	// Telegram announcements, optional
	TelegramToken  string
	TelegramChatID string

	// App settings
	Debug     bool
	LogLevel  string
	LogFormat string
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	cfg := FromEnv()
	return cfg, cfg.Validate()
}

// FromEnv reads the environment over defaults without validating, for
// commands that only inspect published data.
func FromEnv() *Config {
	cfg := &Config{
		// Default values
		DataDir:           getEnvOrDefault("DATA_DIR", "data"),
		SourcesFile:       getEnvOrDefault("SOURCES_FILE", "configs/sources.yaml"),
		IndexLimit:        getEnvIntOrDefault("INDEX_LIMIT", 200),
		ShardLimit:        getEnvIntOrDefault("SHARD_LIMIT", 50),
		SiteURL:           os.Getenv("SITE_URL"),
		SiteTitle:         getEnvOrDefault("SITE_TITLE", "newsdesk"),
		TitlesLimit:       getEnvIntOrDefault("TITLES_LIMIT", 1000),
		TitlesStore:       strings.ToLower(getEnvOrDefault("TITLES_STORE", StoreFile)),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		DedupThreshold:    getEnvFloatOrDefault("DEDUP_THRESHOLD", 0.75),
		GroupCutoff:       getEnvFloatOrDefault("GROUP_CUTOFF", 0.4),
		GroupMinShared:    getEnvIntOrDefault("GROUP_MIN_SHARED", 2),
		GroupMaxSize:      getEnvIntOrDefault("GROUP_MAX_SIZE", 4),
		FetchWorkers:      getEnvIntOrDefault("FETCH_WORKERS", 4),
		FetchTimeout:      getEnvDurationOrDefault("FETCH_TIMEOUT", 15*time.Second),
		DomainInterval:    getEnvDurationOrDefault("DOMAIN_INTERVAL", 2*time.Second),
		RunTimeout:        getEnvDurationOrDefault("RUN_TIMEOUT", 10*time.Minute),
		UserAgent:         os.Getenv("USER_AGENT"),
		TransformProvider: strings.ToLower(getEnvOrDefault("TRANSFORM_PROVIDER", ProviderGemini)),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       os.Getenv("GEMINI_MODEL"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       os.Getenv("OPENAI_MODEL"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		TransformSpacing:  getEnvDurationOrDefault("TRANSFORM_SPACING", 3*time.Second),
		MaxTransformCalls: getEnvIntOrDefault("MAX_TRANSFORM_CALLS", 20),
		MaxPublishPerRun:  getEnvIntOrDefault("MAX_PUBLISH_PER_RUN", 10),
		TargetLanguage:    os.Getenv("TARGET_LANGUAGE"),
		EnrichArticles:    os.Getenv("ENRICH_ARTICLES") == "true",
		RetryAttempts:     getEnvIntOrDefault("RETRY_ATTEMPTS", 3),
		RetryDelay:        getEnvDurationOrDefault("RETRY_DELAY", 5*time.Second),
		TelegramToken:     os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:    os.Getenv("TELEGRAM_CHAT_ID"),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:         getEnvOrDefault("LOG_FORMAT", "text"),
	}

	cfg.SiteDescription = getEnvOrDefault("SITE_DESCRIPTION", "Latest stories from "+cfg.SiteTitle)
	cfg.TitlesFile = getEnvOrDefault("TITLES_FILE", filepath.Join(cfg.DataDir, "titles.json"))
	cfg.SQLitePath = getEnvOrDefault("SQLITE_PATH", filepath.Join(cfg.DataDir, "titles.db"))

	if langs := os.Getenv("LANGUAGES"); langs != "" {
		for _, l := range strings.Split(langs, ",") {
			if l = strings.TrimSpace(l); l != "" {
				cfg.Languages = append(cfg.Languages, strings.ToLower(l))
			}
		}
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault accepts Go durations ("90s") or plain seconds.
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.IndexLimit <= 0 {
		return fmt.Errorf("INDEX_LIMIT must be positive")
	}
	if c.ShardLimit <= 0 {
		return fmt.Errorf("SHARD_LIMIT must be positive")
	}
	if c.DedupThreshold <= 0 || c.DedupThreshold >= 1 {
		return fmt.Errorf("DEDUP_THRESHOLD must be in (0, 1)")
	}
	if c.GroupCutoff <= 0 || c.GroupCutoff >= 1 {
		return fmt.Errorf("GROUP_CUTOFF must be in (0, 1)")
	}
	if c.GroupMinShared < 1 {
		return fmt.Errorf("GROUP_MIN_SHARED must be at least 1")
	}
	if c.GroupMaxSize < 1 {
		return fmt.Errorf("GROUP_MAX_SIZE must be at least 1")
	}
	// Each publication remembers its members plus the output title, and every
	// indexed title must still be remembered.
	if need := (c.GroupMaxSize + 1) * c.IndexLimit; c.TitlesLimit < need {
		return fmt.Errorf("TITLES_LIMIT (%d) must be at least (GROUP_MAX_SIZE+1) * INDEX_LIMIT (%d)", c.TitlesLimit, need)
	}
	if c.FetchWorkers < 1 {
		return fmt.Errorf("FETCH_WORKERS must be at least 1")
	}

	switch c.TitlesStore {
	case StoreFile, StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when TITLES_STORE=postgres")
		}
	default:
		return fmt.Errorf("TITLES_STORE must be 'file', 'postgres' or 'sqlite'")
	}

	switch c.TransformProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case ProviderExtractive:
	default:
		return fmt.Errorf("TRANSFORM_PROVIDER must be 'gemini', 'openai' or 'extractive'")
	}

	if (c.TelegramToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	return nil
}
