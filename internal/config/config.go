package config

import (
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingCredentials is returned when a remote command lacks group id or key.
var ErrMissingCredentials = errors.New("ZOTERO_GROUP_ID and ZOTERO_API_KEY must be set")

type (
	Config struct {
		HTTP
		Global
		Zotero
		Upload
		Delete
		Retry
		Conversion
		Translator
		Logging
		Report
		Database
		Schedule
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Zotero struct {
		GroupID        string
		APIKey         string
		APIURL         string
		RequestTimeout time.Duration
		PageSize       int
	}
	Upload struct {
		BatchSize         int
		BatchDelay        time.Duration
		DedupeWithinBatch bool
	}
	Delete struct {
		BatchSize  int
		BatchDelay time.Duration
	}
	Retry struct {
		MaxAttempts   int
		Backoff       time.Duration
		MaxBackoff    time.Duration
		RateLimitWait time.Duration
	}
	Conversion struct {
		ObjectBaseURL string
		OutputDir     string
	}
	Translator struct {
		URL     string
		Timeout time.Duration
	}
	Logging struct {
		Level  string
		Format string
		Dir    string
	}
	Report struct {
		Dir    string
		Format string // json or yaml
	}
	Database struct {
		Path string // empty disables run history
	}
	Schedule struct {
		Cron string
		File string
	}
)

// Validate checks what remote commands need.
func (c *Config) Validate() error {
	if c.Zotero.GroupID == "" || c.Zotero.APIKey == "" {
		return ErrMissingCredentials
	}
	return nil
}

// NewConfig reads the environment, after loading .env when it exists.
func NewConfig() *Config {
	if _, err := os.Stat(DefaultEnvFile); err == nil {
		_ = godotenv.Load(DefaultEnvFile)
	}
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)

	v.SetDefault("zotero_api_url", "https://api.zotero.org")
	v.SetDefault("request_timeout", "120s")
	v.SetDefault("key_page_size", 100)

	v.SetDefault("upload_batch_size", 25)
	v.SetDefault("upload_batch_delay", "500ms")
	v.SetDefault("dedupe_within_batch", false)
	v.SetDefault("delete_batch_size", 50)
	v.SetDefault("delete_batch_delay", "100ms")

	v.SetDefault("max_attempts", 3)
	v.SetDefault("retry_backoff", "5s")
	v.SetDefault("retry_max_backoff", "60s")
	v.SetDefault("rate_limit_wait", "60s")

	v.SetDefault("object_base_url", "https://www.hof.uni-halle.de/documents/")
	v.SetDefault("output_dir", DefaultOutputDir)
	v.SetDefault("translation_server_url", "")
	v.SetDefault("translation_timeout", "120s")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_dir", "")
	v.SetDefault("report_dir", DefaultReportDir)
	v.SetDefault("report_format", "json")
	v.SetDefault("database_path", "")

	v.SetDefault("sync_schedule", "0 3 * * *") // Daily at 03:00
	v.SetDefault("sync_file", "")
	return v
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Zotero: Zotero{
			GroupID:        v.GetString("ZOTERO_GROUP_ID"),
			APIKey:         v.GetString("ZOTERO_API_KEY"),
			APIURL:         v.GetString("ZOTERO_API_URL"),
			RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
			PageSize:       v.GetInt("KEY_PAGE_SIZE"),
		},
		Upload: Upload{
			BatchSize:         v.GetInt("UPLOAD_BATCH_SIZE"),
			BatchDelay:        v.GetDuration("UPLOAD_BATCH_DELAY"),
			DedupeWithinBatch: v.GetBool("DEDUPE_WITHIN_BATCH"),
		},
		Delete: Delete{
			BatchSize:  v.GetInt("DELETE_BATCH_SIZE"),
			BatchDelay: v.GetDuration("DELETE_BATCH_DELAY"),
		},
		Retry: Retry{
			MaxAttempts:   v.GetInt("MAX_ATTEMPTS"),
			Backoff:       v.GetDuration("RETRY_BACKOFF"),
			MaxBackoff:    v.GetDuration("RETRY_MAX_BACKOFF"),
			RateLimitWait: v.GetDuration("RATE_LIMIT_WAIT"),
		},
		Conversion: Conversion{
			ObjectBaseURL: v.GetString("OBJECT_BASE_URL"),
			OutputDir:     v.GetString("OUTPUT_DIR"),
		},
		Translator: Translator{
			URL:     v.GetString("TRANSLATION_SERVER_URL"),
			Timeout: v.GetDuration("TRANSLATION_TIMEOUT"),
		},
		Logging: Logging{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
			Dir:    v.GetString("LOG_DIR"),
		},
		Report: Report{
			Dir:    v.GetString("REPORT_DIR"),
			Format: v.GetString("REPORT_FORMAT"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Schedule: Schedule{
			Cron: v.GetString("SYNC_SCHEDULE"),
			File: v.GetString("SYNC_FILE"),
		},
	}
}
