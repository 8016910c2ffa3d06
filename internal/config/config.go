package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Mode        string
	Environment string
	InstanceID  string

	OTLPEndpoint string

	Cloud CloudConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// AdminAPIKey is an instance-wide bearer that may mint the first
	// tenant API keys. Empty disables the bootstrap path.
	AdminAPIKey string

	RateLimit RateLimitConfig
	Retention RetentionConfig
	CacheTTL  CacheTTLConfig
	Jobs      JobConfig
	AIEngine  AIEngineConfig

	// OverridesFile points at an optional YAML file with hot-reloadable
	// sampling and recommendation overrides. Empty disables watching.
	OverridesFile string
}

type CloudConfig struct {
	TenantID   string
	TenantName string
	Metrics    CloudMetricsConfig
}

type CloudMetricsConfig struct {
	Enabled   bool
	Exporter  string
	Endpoint  string
	AuthToken string
}

// RateLimitConfig controls the redis token bucket in front of event ingest.
type RateLimitConfig struct {
	Enabled bool
	Rate    float64
	Burst   int64
}

// RetentionConfig controls how long raw and derived data is kept.
type RetentionConfig struct {
	RawEventDays       int
	DailyMetricDays    int
	PerformanceLogDays int
}

// CacheTTLConfig holds per-class TTLs for the metrics cache.
type CacheTTLConfig struct {
	Dashboard time.Duration
	Tenant    time.Duration
	System    time.Duration
	User      time.Duration
}

// JobConfig controls scheduler wall-clock and interval jobs.
type JobConfig struct {
	RollupAt         string
	RetentionSweepAt string
	SnapshotInterval time.Duration
}

// AIEngineConfig points at the remote content adaptation service.
type AIEngineConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	mode := normalizeMode(getenv("APP_MODE", ModeOSS))
	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "insight"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Mode:        mode,
		Environment: environment,
		InstanceID:  strings.TrimSpace(getenv("INSTANCE_ID", "")),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),
		Cloud: CloudConfig{
			TenantID:   strings.TrimSpace(getenv("CLOUD_TENANT_ID", "")),
			TenantName: getenv("CLOUD_TENANT_NAME", ""),
			Metrics: CloudMetricsConfig{
				Enabled:   getenvBool("CLOUD_METRICS_ENABLED", true),
				Exporter:  strings.ToLower(getenv("CLOUD_METRICS_EXPORTER", "")),
				Endpoint:  strings.TrimSpace(getenv("CLOUD_METRICS_ENDPOINT", "")),
				AuthToken: strings.TrimSpace(getenv("CLOUD_METRICS_AUTH_TOKEN", "")),
			},
		},
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "insight"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 25)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 1800)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 300)),
		RedisAddr:         strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:     getenv("REDIS_PASSWORD", ""),
		RedisDB:           int(getenvInt64("REDIS_DB", 0)),
		AdminAPIKey:       strings.TrimSpace(getenv("ADMIN_API_KEY", "")),
		RateLimit: RateLimitConfig{
			Enabled: getenvBool("RATE_LIMIT_ENABLED", true),
			Rate:    getenvFloat("RATE_LIMIT_RATE", 50),
			Burst:   getenvInt64("RATE_LIMIT_BURST", 100),
		},
		Retention: RetentionConfig{
			RawEventDays:       int(getenvInt64("RETENTION_RAW_EVENT_DAYS", 30)),
			DailyMetricDays:    int(getenvInt64("RETENTION_DAILY_METRIC_DAYS", 365)),
			PerformanceLogDays: int(getenvInt64("RETENTION_PERFORMANCE_LOG_DAYS", 30)),
		},
		CacheTTL: CacheTTLConfig{
			Dashboard: getenvDuration("CACHE_TTL_DASHBOARD", 5*time.Minute),
			Tenant:    getenvDuration("CACHE_TTL_TENANT", 10*time.Minute),
			System:    getenvDuration("CACHE_TTL_SYSTEM", time.Minute),
			User:      getenvDuration("CACHE_TTL_USER", 30*time.Minute),
		},
		Jobs: JobConfig{
			RollupAt:         getenv("JOB_ROLLUP_AT", "00:00"),
			RetentionSweepAt: getenv("JOB_RETENTION_SWEEP_AT", "02:00"),
			SnapshotInterval: getenvDuration("JOB_SNAPSHOT_INTERVAL", time.Minute),
		},
		AIEngine: AIEngineConfig{
			BaseURL: strings.TrimSpace(getenv("AI_ENGINE_URL", "")),
			Timeout: getenvDuration("AI_ENGINE_TIMEOUT", 10*time.Second),
		},
		OverridesFile: strings.TrimSpace(getenv("OVERRIDES_FILE", "")),
	}

	return cfg
}

const (
	ModeOSS        = "oss"
	ModeCloud      = "cloud"
	ModeStandalone = "standalone"
)

func (c Config) IsCloud() bool {
	return c.Mode == ModeCloud
}

func normalizeMode(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case ModeCloud:
		return ModeCloud
	case ModeStandalone, ModeOSS:
		return ModeOSS
	default:
		return ModeOSS
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
