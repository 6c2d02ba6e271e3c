package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"textlens"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"textlens"`

	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	// Remote analytics service
	AnalyticsEndpoint string `envconfig:"ANALYTICS_ENDPOINT" default:"http://textapi:9000"`
	AnalyticsAPIKey   string `envconfig:"ANALYTICS_API_KEY"`
	AnalyticsLanguage string `envconfig:"ANALYTICS_LANGUAGE"`

	// LRO polling and transient retry
	MaxPollTries      int    `envconfig:"MAX_POLL_TRIES" default:"30"`
	PollDelayMS       int    `envconfig:"POLL_DELAY_MS" default:"1000"`
	BackoffScheduleMS string `envconfig:"BACKOFF_SCHEDULE_MS" default:"1000,2000,4000"`

	// Batch shaping and dispatch
	MaxBatchSize        int `envconfig:"MAX_BATCH_SIZE" default:"25"`
	MaxDocumentChars    int `envconfig:"MAX_DOCUMENT_CHARS" default:"5120"`
	AnalysisConcurrency int `envconfig:"ANALYSIS_CONCURRENCY" default:"4"`

	// Blob staging gateway for large uploads
	BlobGatewayURL string `envconfig:"BLOB_GATEWAY_URL" default:"http://blobgw:9500"`
	BlobGatewayKey string `envconfig:"BLOB_GATEWAY_KEY"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	RerankAPIKey string `envconfig:"RERANK_API_KEY"`

	EnableAPI         bool   `envconfig:"ENABLE_API" default:"true"`
	EnableIndexWorker bool   `envconfig:"ENABLE_INDEX_WORKER" default:"true"`
	MigrationPath     string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Server
	ServerPort      int    `envconfig:"SERVER_PORT" default:"8081"`
	QueryLogPath    string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`
	MaxUploadSizeMB int64  `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Try loading .env from current dir and repo root
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.AnalyticsEndpoint == "" {
		return fmt.Errorf("%w: ANALYTICS_ENDPOINT", ErrMissingRequired)
	}
	if c.MaxPollTries <= 0 {
		return fmt.Errorf("MAX_POLL_TRIES must be positive, got %d", c.MaxPollTries)
	}
	if _, err := c.BackoffSchedule(); err != nil {
		return err
	}
	return nil
}

// PollDelay returns the inter-poll delay as a duration.
func (c *Config) PollDelay() time.Duration {
	return time.Duration(c.PollDelayMS) * time.Millisecond
}

// BackoffSchedule parses BACKOFF_SCHEDULE_MS ("1000,2000,4000") into the
// ordered list of transient-retry delays. An empty value means no retries.
func (c *Config) BackoffSchedule() ([]time.Duration, error) {
	raw := strings.TrimSpace(c.BackoffScheduleMS)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	schedule := make([]time.Duration, 0, len(parts))
	for _, p := range parts {
		ms, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || ms < 0 {
			return nil, fmt.Errorf("invalid BACKOFF_SCHEDULE_MS entry %q", p)
		}
		schedule = append(schedule, time.Duration(ms)*time.Millisecond)
	}
	return schedule, nil
}
