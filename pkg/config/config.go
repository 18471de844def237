package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Session  SessionConfig
	Storage  StorageConfig
	CORS     CORSConfig
	Cookies  CookieConfig
	Log      LogConfig
	Cache    CacheConfig
	Realtime RealtimeConfig
	Jobs     JobsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig carries the two independent signing secrets and token lifetimes.
// Access-token compromise must not allow forging refresh tokens, hence the
// separate secrets.
type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// SessionConfig controls the server-side session records in Redis.
type SessionConfig struct {
	TTL time.Duration
}

// StorageConfig configures the file object store and download URL signing.
type StorageConfig struct {
	Dir             string
	PublicBaseURL   string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	MaxUploadBytes  int64
}

type CORSConfig struct {
	AllowedOrigins []string
}

// CookieConfig governs the auth cookie attributes.
type CookieConfig struct {
	Domain string
	Secure bool
}

type LogConfig struct {
	Level  string
	Format string
}

type CacheConfig struct {
	Enabled    bool
	DefaultTTL time.Duration
}

// RealtimeConfig tunes the websocket hub.
type RealtimeConfig struct {
	SendQueueSize int
	WriteTimeout  time.Duration
	PongTimeout   time.Duration
	PingInterval  time.Duration
}

// JobsConfig tunes the background notification dispatcher.
type JobsConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		AccessSecret:  v.GetString("JWT_ACCESS_SECRET"),
		RefreshSecret: v.GetString("JWT_REFRESH_SECRET"),
		AccessTTL:     ParseTTL(v.GetString("JWT_ACCESS_TTL"), 15*time.Minute),
		RefreshTTL:    ParseTTL(v.GetString("JWT_REFRESH_TTL"), 7*24*time.Hour),
		Issuer:        v.GetString("JWT_ISSUER"),
	}

	cfg.Session = SessionConfig{
		TTL: ParseTTL(v.GetString("SESSION_TTL"), 7*24*time.Hour),
	}

	maxUpload := v.GetInt64("STORAGE_MAX_UPLOAD_BYTES")
	if maxUpload <= 0 {
		maxUpload = 25 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		Dir:             v.GetString("STORAGE_DIR"),
		PublicBaseURL:   strings.TrimRight(v.GetString("STORAGE_PUBLIC_BASE_URL"), "/"),
		SignedURLSecret: v.GetString("STORAGE_SIGNED_URL_SECRET"),
		SignedURLTTL:    ParseTTL(v.GetString("STORAGE_SIGNED_URL_TTL"), 30*time.Minute),
		MaxUploadBytes:  maxUpload,
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Cookies = CookieConfig{
		Domain: v.GetString("COOKIE_DOMAIN"),
		Secure: cfg.Env == EnvProduction,
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Cache = CacheConfig{
		Enabled:    v.GetBool("ENABLE_CACHE"),
		DefaultTTL: ParseTTL(v.GetString("CACHE_DEFAULT_TTL"), 10*time.Minute),
	}

	cfg.Realtime = RealtimeConfig{
		SendQueueSize: v.GetInt("WS_SEND_QUEUE"),
		WriteTimeout:  ParseTTL(v.GetString("WS_WRITE_TIMEOUT"), 5*time.Second),
		PongTimeout:   ParseTTL(v.GetString("WS_PONG_TIMEOUT"), 60*time.Second),
		PingInterval:  ParseTTL(v.GetString("WS_PING_INTERVAL"), 25*time.Second),
	}

	cfg.Jobs = JobsConfig{
		Workers:    v.GetInt("JOBS_WORKERS"),
		BufferSize: v.GetInt("JOBS_BUFFER_SIZE"),
		MaxRetries: v.GetInt("JOBS_MAX_RETRIES"),
	}

	return cfg, nil
}

// Validate enforces startup-fatal requirements. Missing signing secrets must
// surface here, never at request time.
func (c *Config) Validate() error {
	if c.JWT.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is not configured")
	}
	if c.JWT.RefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is not configured")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 4050)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "docuvault")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_ACCESS_SECRET", "")
	v.SetDefault("JWT_REFRESH_SECRET", "")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "7d")
	v.SetDefault("JWT_ISSUER", "docuvault")

	v.SetDefault("SESSION_TTL", "7d")

	v.SetDefault("STORAGE_DIR", "./uploads")
	v.SetDefault("STORAGE_PUBLIC_BASE_URL", "http://localhost:4050")
	v.SetDefault("STORAGE_SIGNED_URL_SECRET", "dev_storage_secret")
	v.SetDefault("STORAGE_SIGNED_URL_TTL", "30m")
	v.SetDefault("STORAGE_MAX_UPLOAD_BYTES", 25*1024*1024)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("COOKIE_DOMAIN", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", true)
	v.SetDefault("CACHE_DEFAULT_TTL", "10m")

	v.SetDefault("WS_SEND_QUEUE", 256)
	v.SetDefault("WS_WRITE_TIMEOUT", "5s")
	v.SetDefault("WS_PONG_TIMEOUT", "60s")
	v.SetDefault("WS_PING_INTERVAL", "25s")

	v.SetDefault("JOBS_WORKERS", 2)
	v.SetDefault("JOBS_BUFFER_SIZE", 64)
	v.SetDefault("JOBS_MAX_RETRIES", 3)
}

// ParseTTL interprets "<number><unit>" durations where unit is one of
// s, m, h or d. Unrecognized values fall back to the provided default.
func ParseTTL(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if len(raw) < 2 {
		return fallback
	}

	amount, err := strconv.ParseInt(raw[:len(raw)-1], 10, 64)
	if err != nil || amount < 0 {
		return fallback
	}

	switch raw[len(raw)-1] {
	case 's':
		return time.Duration(amount) * time.Second
	case 'm':
		return time.Duration(amount) * time.Minute
	case 'h':
		return time.Duration(amount) * time.Hour
	case 'd':
		return time.Duration(amount) * 24 * time.Hour
	default:
		return fallback
	}
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
