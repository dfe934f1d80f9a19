package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom log forwarding configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// DocServiceConfig configures the external document-understanding service.
type DocServiceConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxInflight int
}

// StageDefaults are the stage-selection flag values used when a request
// names no flag at all. Requests override per-flag via query or form.
type StageDefaults struct {
	Upload     bool
	Detect     bool
	Reduce     bool
	Extract    bool
	Convert    bool
	IncludePDF bool
	LocalScan  bool
}

// StoreConfig configures the optional run-status store.
type StoreConfig struct {
	RedisURL  string
	StatusTTL time.Duration
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port        string
	MaxUploadMB int64
}

// S3Config names the bucket probed by health checks; inbound s3:// refs
// carry their own bucket.
type S3Config struct {
	Bucket string
}

// Config is the top-level configuration.
type Config struct {
	Logging    LoggingConfig
	Axiom      AxiomConfig
	DocService DocServiceConfig
	Stages     StageDefaults
	Store      StoreConfig
	Server     ServerConfig
	S3         S3Config
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/soepipeline.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_soepipeline",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.DocService = DocServiceConfig{
		APIKey:      getEnv("OPENAI_API_KEY", ""),
		BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		Model:       getEnv("OPENAI_MODEL", "gpt-4.1"),
		Timeout:     parseDuration(getEnv("DOC_SERVICE_TIMEOUT", "120s"), 120*time.Second),
		MaxInflight: parseInt(getEnv("DOC_SERVICE_MAX_INFLIGHT", "4"), 4),
	}

	cfg.Stages = StageDefaults{
		Upload:     parseBool(getEnv("STAGE_UPLOAD_DEFAULT", "true")),
		Detect:     parseBool(getEnv("STAGE_DETECT_DEFAULT", "true")),
		Reduce:     parseBool(getEnv("STAGE_REDUCE_DEFAULT", "true")),
		Extract:    parseBool(getEnv("STAGE_EXTRACT_DEFAULT", "true")),
		Convert:    parseBool(getEnv("STAGE_CONVERT_DEFAULT", "true")),
		IncludePDF: parseBool(getEnv("STAGE_INCLUDE_PDF_DEFAULT", "false")),
		LocalScan:  parseBool(getEnv("STAGE_LOCAL_SCAN_DEFAULT", "false")),
	}

	cfg.Store = StoreConfig{
		RedisURL:  getEnv("REDIS_URL", ""),
		StatusTTL: parseDuration(getEnv("RUN_STATUS_TTL", "24h"), 24*time.Hour),
	}

	cfg.Server = ServerConfig{
		Port:        getEnv("PORT", "8080"),
		MaxUploadMB: int64(parseInt(getEnv("MAX_UPLOAD_MB", "64"), 64)),
	}

	cfg.S3 = S3Config{Bucket: getEnv("AWS_S3_BUCKET", "")}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
