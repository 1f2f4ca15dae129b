package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	LogLevel       string
	AllowedOrigins []string // CORS allowed origins

	DatabaseDriver string // "postgres" | "sqlite"
	DatabaseDSN    string

	StateBackend     string   // "redis" | "dynamo"
	RedisURLs        []string // one entry per shard
	DynamoStateTable string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string

	JWT  JWT
	Keys Keys

	VerificationCodeLength int
	VerificationCodeTTL    time.Duration
	BcryptCost             int

	QueueBackend string // "redis" | "sns"
	QueueStream  string
	QueueGroup   string
	SNSTopicARN  string
	SNSRegion    string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
}

// JWT holds token codec settings.
type JWT struct {
	Algorithm        string
	AllowRefresh     bool
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	Leeway           time.Duration
	VerifyExpiration bool
	Audience         string
	Issuer           string
}

// Keys describes where the signing key pair lives.
type Keys struct {
	Store       string // "file" | "s3"
	Dir         string
	PrivateName string
	PublicName  string
	Bucket      string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", "*"),

		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseDSN:    getEnv("DATABASE_DSN", "auth.db"),

		StateBackend:     getEnv("STATE_BACKEND", "redis"),
		RedisURLs:        getEnvList("REDIS_URLS", "redis://localhost:6379/0"),
		DynamoStateTable: getEnv("DYNAMO_STATE_TABLE", "token_state"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		JWT: JWT{
			Algorithm:        getEnv("JWT_ALGORITHM", "RS256"),
			AllowRefresh:     getEnvBool("JWT_ALLOW_REFRESH", true),
			AccessTTL:        time.Duration(getEnvInt("JWT_TOKEN_MAX_AGE", 3600)) * time.Second,
			RefreshTTL:       time.Duration(getEnvInt("JWT_REFRESH_TOKEN_EXPIRATION", 30)) * 24 * time.Hour,
			Leeway:           time.Duration(getEnvInt("JWT_LEEWAY", 0)) * time.Second,
			VerifyExpiration: getEnvBool("JWT_VERIFY_EXPIRATION", true),
			Audience:         getEnv("JWT_AUDIENCE", "go_api_auth"),
			Issuer:           getEnv("JWT_ISSUER", "go_api_auth"),
		},
		Keys: Keys{
			Store:       getEnv("KEY_STORE", "file"),
			Dir:         getEnv("JWT_KEYS_DIR", "jwt_keys"),
			PrivateName: getEnv("JWT_PRIVATE_KEY_NAME", "jwt-key"),
			PublicName:  getEnv("JWT_PUBLIC_KEY_NAME", "jwt-key.pub"),
			Bucket:      getEnv("JWT_KEYS_BUCKET", ""),
		},

		VerificationCodeLength: getEnvInt("VERIFICATION_CODE_LENGTH", 6),
		VerificationCodeTTL:    time.Duration(getEnvInt("VERIFICATION_CODE_EXPIRATION_MINUTES", 15)) * time.Minute,
		BcryptCost:             getEnvInt("BCRYPT_COST", 0),

		QueueBackend: getEnv("QUEUE_BACKEND", "redis"),
		QueueStream:  getEnv("QUEUE_STREAM", "auth:tasks"),
		QueueGroup:   getEnv("QUEUE_GROUP", "notifications"),
		SNSTopicARN:  getEnv("SNS_TOPIC_ARN", ""),
		SNSRegion:    getEnv("SNS_REGION", "us-east-1"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
	}
}

// SlogLevel parses LogLevel, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	var out []string
	for _, s := range strings.Split(getEnv(key, fallback), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
