package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Groq      GroqConfig
	R2        R2Config
	SES       SESConfig
	Casting   CastingConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DefaultJWTSecret is the placeholder used when JWT_SECRET is unset
const DefaultJWTSecret = "change-me-in-production"

// JWTConfig holds the shared secret for admin tokens
type JWTConfig struct {
	Secret string
}

type RateLimitConfig struct {
	SubmitPerHour  int
	FeedbackPerMin int
	SponsorPerHour int
}

type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type SESConfig struct {
	Enabled   bool
	Region    string
	FromEmail string
}

type CastingConfig struct {
	// StagingBaseURL prefixes mock locators when R2 is not configured
	StagingBaseURL    string
	SessionTTLMinutes int
	MicrophoneEnabled bool
}

// Load reads .env (if present), then the optional config.yaml, then the
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("GROQ_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()

	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.env", "SERVER_ENV")
	_ = v.BindEnv("server.log_level", "LOG_LEVEL")
	_ = v.BindEnv("server.log_format", "LOG_FORMAT")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("jwt.secret", "JWT_SECRET")
	_ = v.BindEnv("ratelimit.submit_per_hour", "RATELIMIT_SUBMIT_PER_HOUR")
	_ = v.BindEnv("ratelimit.feedback_per_min", "RATELIMIT_FEEDBACK_PER_MIN")
	_ = v.BindEnv("ratelimit.sponsor_per_hour", "RATELIMIT_SPONSOR_PER_HOUR")
	_ = v.BindEnv("groq.api_key", "GROQ_API_KEY")
	_ = v.BindEnv("groq.base_url", "GROQ_BASE_URL")
	_ = v.BindEnv("groq.model", "GROQ_MODEL")
	_ = v.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = v.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = v.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = v.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = v.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = v.BindEnv("ses.enabled", "SES_ENABLED")
	_ = v.BindEnv("ses.region", "AWS_REGION")
	_ = v.BindEnv("ses.from_email", "SES_FROM_EMAIL")
	_ = v.BindEnv("casting.staging_base_url", "CASTING_STAGING_BASE_URL")
	_ = v.BindEnv("casting.session_ttl_minutes", "CASTING_SESSION_TTL_MINUTES")
	_ = v.BindEnv("casting.microphone_enabled", "CASTING_MICROPHONE_ENABLED")

	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "console")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", DefaultJWTSecret)
	v.SetDefault("ratelimit.submit_per_hour", 5)
	v.SetDefault("ratelimit.feedback_per_min", 10)
	v.SetDefault("ratelimit.sponsor_per_hour", 5)

	// Groq defaults
	v.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("groq.model", "llama-3.3-70b-versatile")

	v.SetDefault("ses.enabled", false)
	v.SetDefault("ses.region", "us-east-1")
	v.SetDefault("ses.from_email", "casting@aiimpactmedia.com")

	v.SetDefault("casting.staging_base_url", "https://storage.aiimpactmedia.com")
	v.SetDefault("casting.session_ttl_minutes", 60)
	v.SetDefault("casting.microphone_enabled", true)

	// Try to read config file (optional)
	_ = v.ReadInConfig()

	return &Config{
		Server: ServerConfig{
			Port:      v.GetString("server.port"),
			Env:       v.GetString("server.env"),
			LogLevel:  v.GetString("server.log_level"),
			LogFormat: v.GetString("server.log_format"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
		},
		RateLimit: RateLimitConfig{
			SubmitPerHour:  v.GetInt("ratelimit.submit_per_hour"),
			FeedbackPerMin: v.GetInt("ratelimit.feedback_per_min"),
			SponsorPerHour: v.GetInt("ratelimit.sponsor_per_hour"),
		},
		Groq: GroqConfig{
			APIKey:  v.GetString("groq.api_key"),
			BaseURL: v.GetString("groq.base_url"),
			Model:   v.GetString("groq.model"),
		},
		R2: R2Config{
			AccountID:       v.GetString("r2.account_id"),
			AccessKeyID:     v.GetString("r2.access_key_id"),
			SecretAccessKey: v.GetString("r2.secret_access_key"),
			BucketName:      v.GetString("r2.bucket_name"),
			PublicURL:       v.GetString("r2.public_url"),
		},
		SES: SESConfig{
			Enabled:   v.GetBool("ses.enabled"),
			Region:    v.GetString("ses.region"),
			FromEmail: v.GetString("ses.from_email"),
		},
		Casting: CastingConfig{
			StagingBaseURL:    strings.TrimRight(v.GetString("casting.staging_base_url"), "/"),
			SessionTTLMinutes: v.GetInt("casting.session_ttl_minutes"),
			MicrophoneEnabled: v.GetBool("casting.microphone_enabled"),
		},
	}, nil
}

// R2Configured reports whether every credential needed for R2 is present
func (c *Config) R2Configured() bool {
	return c.R2.AccountID != "" && c.R2.AccessKeyID != "" && c.R2.SecretAccessKey != ""
}

// InsecureJWTSecret reports a placeholder or empty admin secret outside development
func (c *Config) InsecureJWTSecret() bool {
	if c.Server.Env == "development" {
		return false
	}
	return c.JWT.Secret == "" || c.JWT.Secret == DefaultJWTSecret
}
