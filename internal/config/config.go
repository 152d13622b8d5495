package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides the environment config and the hot-reloaded policy.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewPolicyHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	Telemetry TelemetryConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBAutoMigrate     bool
	// DBSlowQueryMs flags statements slower than this in the query log; zero disables.
	DBSlowQueryMs int
	DBLogLevel    string

	Blob        BlobConfig
	Redis       RedisConfig
	Maintenance MaintenanceConfig

	PolicyPath string
}

// TelemetryConfig configures logging and OTLP export.
type TelemetryConfig struct {
	LogLevel  string
	LogFormat string

	OtelEnabled       bool
	OTLPEndpoint      string
	OTLPProtocol      string
	OtelSamplingRatio float64
}

// BlobConfig selects and configures the document blob store.
type BlobConfig struct {
	Type string

	FSRoot string

	GCSBucket          string
	GCSCredentialsJSON string

	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// RedisConfig configures the optional scope lock backend.
type RedisConfig struct {
	Enabled    bool
	Addr       string
	Password   string
	DB         int
	LockTTLSec int

	// UploadRate is document writes per second per user; zero disables the limit.
	UploadRate  float64
	UploadBurst int
}

// MaintenanceConfig drives the background reconcile and verify jobs.
type MaintenanceConfig struct {
	Enabled     bool
	IntervalSec int
	Jobs        []string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "eoffice"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		Telemetry: TelemetryConfig{
			LogLevel:          strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
			LogFormat:         strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
			OtelEnabled:       getenvBool("OTEL_ENABLED", true),
			OTLPEndpoint:      strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317"))),
			OTLPProtocol:      strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			OtelSamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "eoffice"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "eoffice.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		DBAutoMigrate:     getenvBool("DATABASE_AUTO_MIGRATE", true),
		DBSlowQueryMs:     getenvInt("DATABASE_SLOW_QUERY_MS", 200),
		DBLogLevel:        strings.ToLower(strings.TrimSpace(getenv("DATABASE_LOG_LEVEL", "warn"))),
		Blob: BlobConfig{
			Type:               strings.ToLower(getenv("BLOB_STORE", "filesystem")),
			FSRoot:             getenv("BLOB_FS_ROOT", "storage"),
			GCSBucket:          strings.TrimSpace(getenv("GCS_BUCKET", "")),
			GCSCredentialsJSON: strings.TrimSpace(getenv("GCS_CREDENTIALS_JSON", "")),
			S3Bucket:           strings.TrimSpace(getenv("S3_BUCKET", "")),
			S3Region:           strings.TrimSpace(getenv("S3_REGION", "us-east-1")),
			S3Endpoint:         strings.TrimSpace(getenv("S3_ENDPOINT", "")),
			S3AccessKey:        strings.TrimSpace(getenv("S3_ACCESS_KEY_ID", "")),
			S3SecretKey:        strings.TrimSpace(getenv("S3_SECRET_ACCESS_KEY", "")),
			S3UsePathStyle:     getenvBool("S3_USE_PATH_STYLE", false),
		},
		Redis: RedisConfig{
			Enabled:     getenvBool("REDIS_ENABLED", false),
			Addr:        strings.TrimSpace(getenv("REDIS_ADDR", "localhost:6379")),
			Password:    getenv("REDIS_PASSWORD", ""),
			DB:          getenvInt("REDIS_DB", 0),
			LockTTLSec:  getenvInt("REDIS_LOCK_TTL_SECONDS", 30),
			UploadRate:  getenvFloat("UPLOAD_RATE_PER_SECOND", 0),
			UploadBurst: getenvInt("UPLOAD_RATE_BURST", 10),
		},
		Maintenance: MaintenanceConfig{
			Enabled:     getenvBool("MAINTENANCE_ENABLED", false),
			IntervalSec: getenvInt("MAINTENANCE_INTERVAL_SECONDS", 3600),
			Jobs:        getenvList("MAINTENANCE_JOBS"),
		},
		PolicyPath: strings.TrimSpace(getenv("POLICY_PATH", "")),
	}

	return cfg
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
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

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
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
