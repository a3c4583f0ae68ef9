package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Log       LogConfig
	Tracing   TracingConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Blob      BlobConfig
	Kafka     KafkaConfig
	Clinical  ClinicalConfig
	Billing   BillingConfig
	Jobs      JobsConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Version     string
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host               string
	Port               int
	Name               string
	User               string
	Password           string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	SlowQueryThreshold time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
}

type LogConfig struct {
	Level      string
	Format     string
	OutputPath string
}

type TracingConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	SampleRate   float64
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         time.Duration
}

type RateLimitConfig struct {
	// Per client IP
	RequestsPerSecond float64
	BurstSize         int
}

// BlobConfig selects where consultation attachments are stored.
// Driver is "memory" or "s3".
type BlobConfig struct {
	Driver      string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool

	// Static keys for MinIO or local stacks; empty uses the default AWS chain.
	S3AccessKeyID     string
	S3SecretAccessKey string

	PresignExpiry  time.Duration
	MaxUploadBytes int64
}

type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// ClinicalConfig holds order turnaround targets per priority.
type ClinicalConfig struct {
	OrderSLAStat    time.Duration
	OrderSLAUrgent  time.Duration
	OrderSLARoutine time.Duration
	// Default validity of a new prescription when the prescriber omits expires_at.
	PrescriptionValidity time.Duration
}

type BillingConfig struct {
	// Tax rate on taxable items in basis points (1600 = 16%).
	TaxRateBPS int
	Currency   string
}

type JobsConfig struct {
	Enabled                  bool
	PrescriptionExpiryPeriod time.Duration
	GaugeRefreshPeriod       time.Duration
}

var defaults = map[string]any{
	"APP_NAME":    "hospital-emr",
	"APP_ENV":     "development",
	"APP_VERSION": "0.0.0",

	"SERVER_HOST":             "0.0.0.0",
	"SERVER_PORT":             8080,
	"SERVER_READ_TIMEOUT":     "15s",
	"SERVER_WRITE_TIMEOUT":    "15s",
	"SERVER_IDLE_TIMEOUT":     "60s",
	"SERVER_SHUTDOWN_TIMEOUT": "30s",

	"DB_HOST":                 "localhost",
	"DB_PORT":                 5432,
	"DB_NAME":                 "hospital",
	"DB_USER":                 "hospital",
	"DB_PASSWORD":             "",
	"DB_SSLMODE":              "require",
	"DB_MAX_OPEN_CONNS":       25,
	"DB_MAX_IDLE_CONNS":       10,
	"DB_CONN_MAX_LIFETIME":    "30m",
	"DB_CONN_MAX_IDLE_TIME":   "5m",
	"DB_SLOW_QUERY_THRESHOLD": "200ms",

	"JWT_SECRET":     "",
	"JWT_ACCESS_TTL": "15m",
	"JWT_ISSUER":     "hospital-emr",

	"LOG_LEVEL":  "info",
	"LOG_FORMAT": "json",
	"LOG_OUTPUT": "stdout",

	"TRACING_ENABLED":      false,
	"TRACING_SERVICE_NAME": "hospital-emr",
	"OTLP_ENDPOINT":        "otel-collector:4318",
	"TRACING_SAMPLE_RATE":  0.1,

	"CORS_ALLOWED_ORIGINS": "http://localhost:3000",
	"CORS_ALLOWED_METHODS": "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	"CORS_ALLOWED_HEADERS": "Authorization,Content-Type,X-Request-ID",
	"CORS_MAX_AGE":         "12h",

	"RATE_LIMIT_RPS":   100.0,
	"RATE_LIMIT_BURST": 200,

	"BLOB_DRIVER":               "memory",
	"BLOB_S3_BUCKET":            "",
	"BLOB_S3_REGION":            "us-east-1",
	"BLOB_S3_ENDPOINT":          "",
	"BLOB_S3_PATH_STYLE":        false,
	"BLOB_S3_ACCESS_KEY_ID":     "",
	"BLOB_S3_SECRET_ACCESS_KEY": "",
	"BLOB_PRESIGN_EXPIRY":       "15m",
	"BLOB_MAX_UPLOAD_BYTES":     20 << 20,

	"KAFKA_ENABLED":       false,
	"KAFKA_BROKERS":       "localhost:9092",
	"KAFKA_TOPIC":         "hospital.events",
	"KAFKA_WRITE_TIMEOUT": "5s",

	"ORDER_SLA_STAT_HOURS":    1,
	"ORDER_SLA_URGENT_HOURS":  4,
	"ORDER_SLA_ROUTINE_HOURS": 24,
	"PRESCRIPTION_VALIDITY":   "720h",

	"BILLING_TAX_RATE_BPS": 0,
	"BILLING_CURRENCY":     "KES",

	"JOBS_ENABLED":                    true,
	"JOBS_PRESCRIPTION_EXPIRY_PERIOD": "10m",
	"JOBS_GAUGE_REFRESH_PERIOD":       "1m",
}

// Load reads configuration from the environment. When CONFIG_FILE is set the
// file is read first and environment variables still take precedence.
func Load() (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name:        v.GetString("APP_NAME"),
			Environment: v.GetString("APP_ENV"),
			Version:     v.GetString("APP_VERSION"),
		},
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            v.GetInt("SERVER_PORT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:     v.GetDuration("SERVER_IDLE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:               v.GetString("DB_HOST"),
			Port:               v.GetInt("DB_PORT"),
			Name:               v.GetString("DB_NAME"),
			User:               v.GetString("DB_USER"),
			Password:           v.GetString("DB_PASSWORD"),
			SSLMode:            v.GetString("DB_SSLMODE"),
			MaxOpenConns:       v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:       v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime:    v.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime:    v.GetDuration("DB_CONN_MAX_IDLE_TIME"),
			SlowQueryThreshold: v.GetDuration("DB_SLOW_QUERY_THRESHOLD"),
		},
		JWT: JWTConfig{
			Secret:         v.GetString("JWT_SECRET"),
			AccessTokenTTL: v.GetDuration("JWT_ACCESS_TTL"),
			Issuer:         v.GetString("JWT_ISSUER"),
		},
		Log: LogConfig{
			Level:      v.GetString("LOG_LEVEL"),
			Format:     v.GetString("LOG_FORMAT"),
			OutputPath: v.GetString("LOG_OUTPUT"),
		},
		Tracing: TracingConfig{
			Enabled:      v.GetBool("TRACING_ENABLED"),
			ServiceName:  v.GetString("TRACING_SERVICE_NAME"),
			OTLPEndpoint: v.GetString("OTLP_ENDPOINT"),
			SampleRate:   v.GetFloat64("TRACING_SAMPLE_RATE"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			AllowedMethods: splitList(v.GetString("CORS_ALLOWED_METHODS")),
			AllowedHeaders: splitList(v.GetString("CORS_ALLOWED_HEADERS")),
			MaxAge:         v.GetDuration("CORS_MAX_AGE"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: v.GetFloat64("RATE_LIMIT_RPS"),
			BurstSize:         v.GetInt("RATE_LIMIT_BURST"),
		},
		Blob: BlobConfig{
			Driver:            strings.ToLower(v.GetString("BLOB_DRIVER")),
			S3Bucket:          v.GetString("BLOB_S3_BUCKET"),
			S3Region:          v.GetString("BLOB_S3_REGION"),
			S3Endpoint:        v.GetString("BLOB_S3_ENDPOINT"),
			S3PathStyle:       v.GetBool("BLOB_S3_PATH_STYLE"),
			S3AccessKeyID:     v.GetString("BLOB_S3_ACCESS_KEY_ID"),
			S3SecretAccessKey: v.GetString("BLOB_S3_SECRET_ACCESS_KEY"),
			PresignExpiry:     v.GetDuration("BLOB_PRESIGN_EXPIRY"),
			MaxUploadBytes:    v.GetInt64("BLOB_MAX_UPLOAD_BYTES"),
		},
		Kafka: KafkaConfig{
			Enabled:      v.GetBool("KAFKA_ENABLED"),
			Brokers:      splitList(v.GetString("KAFKA_BROKERS")),
			Topic:        v.GetString("KAFKA_TOPIC"),
			WriteTimeout: v.GetDuration("KAFKA_WRITE_TIMEOUT"),
		},
		Clinical: ClinicalConfig{
			OrderSLAStat:         time.Duration(v.GetInt("ORDER_SLA_STAT_HOURS")) * time.Hour,
			OrderSLAUrgent:       time.Duration(v.GetInt("ORDER_SLA_URGENT_HOURS")) * time.Hour,
			OrderSLARoutine:      time.Duration(v.GetInt("ORDER_SLA_ROUTINE_HOURS")) * time.Hour,
			PrescriptionValidity: v.GetDuration("PRESCRIPTION_VALIDITY"),
		},
		Billing: BillingConfig{
			TaxRateBPS: v.GetInt("BILLING_TAX_RATE_BPS"),
			Currency:   v.GetString("BILLING_CURRENCY"),
		},
		Jobs: JobsConfig{
			Enabled:                  v.GetBool("JOBS_ENABLED"),
			PrescriptionExpiryPeriod: v.GetDuration("JOBS_PRESCRIPTION_EXPIRY_PERIOD"),
			GaugeRefreshPeriod:       v.GetDuration("JOBS_GAUGE_REFRESH_PERIOD"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate enforces production security requirements.
func validate(cfg *Config) error {
	var errs []string

	if cfg.JWT.Secret == "" {
		errs = append(errs, "JWT_SECRET is required")
	} else if len(cfg.JWT.Secret) < 32 && cfg.App.Environment == "production" {
		errs = append(errs, "JWT_SECRET must be at least 32 characters in production")
	}

	if cfg.Database.Password == "" && cfg.App.Environment != "development" {
		errs = append(errs, "DB_PASSWORD is required in non-development environments")
	}

	if cfg.Database.SSLMode == "disable" && cfg.App.Environment == "production" {
		errs = append(errs, "DB_SSLMODE=disable is not allowed in production")
	}

	switch cfg.Blob.Driver {
	case "memory":
		if cfg.App.Environment == "production" {
			errs = append(errs, "BLOB_DRIVER=memory is not allowed in production")
		}
	case "s3":
		if cfg.Blob.S3Bucket == "" {
			errs = append(errs, "BLOB_S3_BUCKET is required when BLOB_DRIVER=s3")
		}
	default:
		errs = append(errs, fmt.Sprintf("BLOB_DRIVER %q is not supported", cfg.Blob.Driver))
	}

	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) == 0 {
		errs = append(errs, "KAFKA_BROKERS is required when KAFKA_ENABLED=true")
	}

	if cfg.Clinical.OrderSLAStat <= 0 || cfg.Clinical.OrderSLAUrgent <= 0 || cfg.Clinical.OrderSLARoutine <= 0 {
		errs = append(errs, "ORDER_SLA_*_HOURS must be positive")
	}

	if cfg.Billing.TaxRateBPS < 0 || cfg.Billing.TaxRateBPS > 10000 {
		errs = append(errs, "BILLING_TAX_RATE_BPS must be between 0 and 10000")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			result = append(result, t)
		}
	}
	return result
}
