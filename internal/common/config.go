package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Dispatcher DispatcherConfig
	Worker     WorkerConfig
	Notify     NotifyConfig
	OCR        OCRConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// DispatcherConfig holds the dispatcher loop cadence
type DispatcherConfig struct {
	PollInterval  time.Duration // assignment pass cadence
	LivenessEvery int           // run the liveness sweep every Nth pass
	ErrorBackoff  time.Duration // sleep after a failed iteration
}

// WorkerConfig holds worker loop and fan-out configuration
type WorkerConfig struct {
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	Concurrency       int // bounded per-job page fan-out
	PageTimeout       time.Duration
	JobTimeout        time.Duration
}

// NotifyConfig holds SMTP credentials for dead-worker digests.
// Missing credentials disables notifications; everything else proceeds.
type NotifyConfig struct {
	SMTPHost string
	SMTPPort int
	From     string
	To       string
	Password string
}

// Enabled reports whether the digest sink has enough configuration to send.
func (n NotifyConfig) Enabled() bool {
	return n.From != "" && n.To != "" && n.Password != ""
}

// OCRConfig holds the page text-extraction configuration
type OCRConfig struct {
	Tesseract   string // binary name or absolute path; if empty -> "tesseract"
	Lang        string // default "eng"
	HTTPTimeout time.Duration
	CacheDir    string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Dispatcher: DispatcherConfig{
			PollInterval:  getEnvAsDuration("DISPATCH_POLL_INTERVAL", 20*time.Second),
			LivenessEvery: getEnvAsInt("DISPATCH_LIVENESS_EVERY", 3),
			ErrorBackoff:  getEnvAsDuration("DISPATCH_ERROR_BACKOFF", 30*time.Second),
		},
		Worker: WorkerConfig{
			PollInterval:      getEnvAsDuration("WORKER_POLL_INTERVAL", 20*time.Second),
			HeartbeatInterval: getEnvAsDuration("WORKER_HEARTBEAT_INTERVAL", 20*time.Second),
			Concurrency:       getEnvAsInt("WORKER_CONCURRENCY", 4),
			PageTimeout:       getEnvAsDuration("WORKER_PAGE_TIMEOUT", 2*time.Minute),
			JobTimeout:        getEnvAsDuration("WORKER_JOB_TIMEOUT", 30*time.Minute),
		},
		Notify: NotifyConfig{
			SMTPHost: getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort: getEnvAsInt("SMTP_PORT", 465),
			From:     getEnv("EMAIL", ""),
			To:       getEnv("NOTIFY_EMAIL", getEnv("EMAIL", "")),
			Password: getEnv("EMAIL_PASSWORD", ""),
		},
		OCR: OCRConfig{
			Tesseract:   getEnv("TESSERACT_BIN", "tesseract"),
			Lang:        getEnv("TESSERACT_LANG", "eng"),
			HTTPTimeout: getEnvAsDuration("PAGE_FETCH_TIMEOUT", 30*time.Second),
			CacheDir:    getEnv("ARTIFACT_CACHE_DIR", "./tmp"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Dispatcher.LivenessEvery < 1 {
		return NewAppError("CONFIG_ERROR", "DISPATCH_LIVENESS_EVERY must be >= 1", ErrInvalidInput)
	}
	if c.Worker.Concurrency < 1 {
		return NewAppError("CONFIG_ERROR", "WORKER_CONCURRENCY must be >= 1", ErrInvalidInput)
	}
	return nil
}
