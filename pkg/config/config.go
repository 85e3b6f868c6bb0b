package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Storage    StorageConfig
	Database   DatabaseConfig
	Dynamo     DynamoConfig
	Redis      RedisConfig
	NATS       NATSConfig
	CloudWatch CloudWatchConfig
	S3         S3Config
	Quality    QualityConfig
	Attachment AttachmentConfig
	Security   SecurityConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level string
}

// StorageConfig выбирает backend для хранилища сущностей.
type StorageConfig struct {
	Backend string // memory | postgres | dynamodb
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type DynamoConfig struct {
	TableName       string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	StrongReads     bool
	AutoCreate      bool
}

type RedisConfig struct {
	Enabled      bool
	Addr         string
	Password     string
	DB           int
	AnalyticsTTL time.Duration
}

type NATSConfig struct {
	Enabled bool
	URL     string
	Subject string
}

type CloudWatchConfig struct {
	MetricsEnabled       bool
	LogsEnabled          bool
	Region               string
	Endpoint             string
	AccessKeyID          string
	SecretAccessKey      string
	MetricsNamespace     string
	MetricsDimensions    map[string]string
	MetricsBufferSize    int
	MetricsFlushInterval time.Duration
	LogGroupName         string
	LogStreamName        string
	LogsBufferSize       int
	LogsFlushInterval    time.Duration
}

type S3Config struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
	URLMode         string // presigned | public
	PresignedTTL    time.Duration
}

// QualityConfig - параметры сборщика метрик и quality gates.
type QualityConfig struct {
	CollectionInterval time.Duration
	RetentionDays      int
	HistoryLimit       int
	GatesFile          string
	HostProbeEnabled   bool
}

type AttachmentConfig struct {
	MaxBytes int
}

type SecurityConfig struct {
	AllowedOrigins     []string
	AuthEnabled        bool
	AuthToken          string
	RateLimitPerMinute int
}

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageDynamo   = "dynamodb"
)

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	collectionInterval, err := parseDuration(getEnv("QUALITY_COLLECTION_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid QUALITY_COLLECTION_INTERVAL: %w", err)
	}

	retentionDays, err := strconv.Atoi(getEnv("QUALITY_RETENTION_DAYS", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid QUALITY_RETENTION_DAYS: %w", err)
	}

	historyLimit, err := strconv.Atoi(getEnv("QUALITY_HISTORY_LIMIT", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid QUALITY_HISTORY_LIMIT: %w", err)
	}

	presignedTTL, err := parseDuration(getEnv("S3_PRESIGNED_TTL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid S3_PRESIGNED_TTL: %w", err)
	}

	analyticsTTL, err := parseDuration(getEnv("REDIS_ANALYTICS_TTL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_ANALYTICS_TTL: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	metricsFlush, err := parseDuration(getEnv("CLOUDWATCH_METRICS_FLUSH_INTERVAL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_METRICS_FLUSH_INTERVAL: %w", err)
	}

	logsFlush, err := parseDuration(getEnv("CLOUDWATCH_LOGS_FLUSH_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_LOGS_FLUSH_INTERVAL: %w", err)
	}

	maxAttachmentMB, err := strconv.Atoi(getEnv("ATTACHMENT_MAX_MB", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid ATTACHMENT_MAX_MB: %w", err)
	}

	rateLimitPerMinute, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "600"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	awsRegion := getEnv("AWS_REGION", "us-east-1")

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageMemory)),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "qtrack"),
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Dynamo: DynamoConfig{
			TableName:       getEnv("DYNAMO_TABLE", "qtrack-records"),
			Region:          getEnv("DYNAMO_REGION", awsRegion),
			Endpoint:        getEnv("DYNAMO_ENDPOINT", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			StrongReads:     getEnvBool("DYNAMO_STRONG_READS", false),
			AutoCreate:      getEnvBool("DYNAMO_AUTO_CREATE", false),
		},
		Redis: RedisConfig{
			Enabled:      getEnvBool("REDIS_ENABLED", false),
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           redisDB,
			AnalyticsTTL: analyticsTTL,
		},
		NATS: NATSConfig{
			Enabled: getEnvBool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Subject: getEnv("NATS_SUBJECT_PREFIX", "qtrack.events"),
		},
		CloudWatch: CloudWatchConfig{
			MetricsEnabled:       getEnvBool("CLOUDWATCH_METRICS_ENABLED", false),
			LogsEnabled:          getEnvBool("CLOUDWATCH_LOGS_ENABLED", false),
			Region:               getEnv("CLOUDWATCH_REGION", awsRegion),
			Endpoint:             getEnv("CLOUDWATCH_ENDPOINT", ""),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			MetricsNamespace:     getEnv("CLOUDWATCH_METRICS_NAMESPACE", "QTrack/Quality"),
			MetricsDimensions:    parseDimensions(getEnv("CLOUDWATCH_METRICS_DIMENSIONS", "")),
			MetricsBufferSize:    getEnvInt("CLOUDWATCH_METRICS_BUFFER_SIZE", 20),
			MetricsFlushInterval: metricsFlush,
			LogGroupName:         getEnv("CLOUDWATCH_LOG_GROUP", "/qtrack/api"),
			LogStreamName:        getEnv("CLOUDWATCH_LOG_STREAM", hostname()),
			LogsBufferSize:       getEnvInt("CLOUDWATCH_LOGS_BUFFER_SIZE", 100),
			LogsFlushInterval:    logsFlush,
		},
		S3: S3Config{
			Enabled:         getEnvBool("S3_ENABLED", false),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", awsRegion),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", true),
			KeyPrefix:       getEnv("S3_KEY_PREFIX", "attachments"),
			URLMode:         strings.ToLower(getEnv("S3_URL_MODE", "presigned")),
			PresignedTTL:    presignedTTL,
		},
		Quality: QualityConfig{
			CollectionInterval: collectionInterval,
			RetentionDays:      retentionDays,
			HistoryLimit:       historyLimit,
			GatesFile:          getEnv("QUALITY_GATES_FILE", ""),
			HostProbeEnabled:   getEnvBool("QUALITY_HOST_PROBE_ENABLED", true),
		},
		Attachment: AttachmentConfig{
			MaxBytes: maxAttachmentMB * 1024 * 1024,
		},
		Security: SecurityConfig{
			AllowedOrigins:     splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:8080,http://127.0.0.1:8080")),
			AuthEnabled:        getEnvBool("AUTH_ENABLED", false),
			AuthToken:          getEnv("AUTH_BEARER_TOKEN", ""),
			RateLimitPerMinute: rateLimitPerMinute,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	if c.Security.AuthEnabled && c.Security.AuthToken == "" {
		return fmt.Errorf("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true")
	}

	switch c.Storage.Backend {
	case StorageMemory, StoragePostgres, StorageDynamo:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}

	if c.S3.Enabled && c.S3.Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required when S3_ENABLED=true")
	}

	if c.Quality.RetentionDays <= 0 {
		return fmt.Errorf("QUALITY_RETENTION_DAYS must be positive")
	}

	if c.Quality.CollectionInterval <= 0 {
		return fmt.Errorf("QUALITY_COLLECTION_INTERVAL must be positive")
	}

	return nil
}

// Retention возвращает окно хранения истории метрик.
func (q QualityConfig) Retention() time.Duration {
	return time.Duration(q.RetentionDays) * 24 * time.Hour
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// parseDimensions разбирает строку вида "env=prod,service=qtrack".
func parseDimensions(raw string) map[string]string {
	dims := make(map[string]string)
	for _, pair := range splitCSV(raw) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}
		dims[key] = value
	}
	return dims
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "qtrack"
	}
	return name
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
