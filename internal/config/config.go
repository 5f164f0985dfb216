package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Editor   EditorConfig   `mapstructure:"editor"`
	PDF      PDFConfig      `mapstructure:"pdf"`
	Download DownloadConfig `mapstructure:"download"`
	Upload   UploadConfig   `mapstructure:"upload"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxResumes     int      `mapstructure:"max_resumes"`
	CookieDomain   string   `mapstructure:"cookie_domain"`
	InternalSecret string   `mapstructure:"internal_secret"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	PublicEndpoint  string `mapstructure:"public_endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Bucket          string `mapstructure:"bucket"`
}

// AuthConfig 包含 JWT 密钥路径与令牌有效期。
type AuthConfig struct {
	PrivateKeyPath        string        `mapstructure:"private_key_path"`
	PublicKeyPath         string        `mapstructure:"public_key_path"`
	AccessTokenTTL        time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL       time.Duration `mapstructure:"refresh_token_ttl"`
	LoginRateLimitPerHour int           `mapstructure:"login_rate_limit_per_hour"`
	LoginLockThreshold    int           `mapstructure:"login_lock_threshold"`
	LoginLockTTL          time.Duration `mapstructure:"login_lock_ttl"`
}

// EditorConfig 控制编辑会话的历史深度与闲置回收。
type EditorConfig struct {
	MaxHistory int           `mapstructure:"max_history"`
	IdleTTL    time.Duration `mapstructure:"idle_ttl"`
}

// PDFConfig 控制渲染超时与响应缓存。
type PDFConfig struct {
	RenderTimeout   time.Duration `mapstructure:"render_timeout"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	CacheMaxEntries int           `mapstructure:"cache_max_entries"`
}

// DownloadConfig 控制公开下载接口的限流与滥用阈值。
type DownloadConfig struct {
	RatePerMinute int           `mapstructure:"rate_per_minute"`
	Burst         int           `mapstructure:"burst"`
	AbuseLimit    int           `mapstructure:"abuse_limit"`
	AbuseWindow   time.Duration `mapstructure:"abuse_window"`
}

// UploadConfig 控制头像上传的扫描与限额。
type UploadConfig struct {
	ClamdAddr        string `mapstructure:"clamd_addr"`
	MaxBytes         int64  `mapstructure:"max_bytes"`
	MaxAssetsPerUser int    `mapstructure:"max_assets_per_user"`
	MaxUploadsPerDay int    `mapstructure:"max_uploads_per_day"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.max_resumes", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "cvforge")
	v.SetDefault("database.user", "cvforge")
	v.SetDefault("database.password", "cvforge")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "resumes")
	v.SetDefault("auth.access_token_ttl", 15*time.Minute)
	v.SetDefault("auth.refresh_token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.login_rate_limit_per_hour", 10)
	v.SetDefault("auth.login_lock_threshold", 5)
	v.SetDefault("auth.login_lock_ttl", 15*time.Minute)
	v.SetDefault("editor.max_history", 100)
	v.SetDefault("editor.idle_ttl", 30*time.Minute)
	v.SetDefault("pdf.render_timeout", 60*time.Second)
	v.SetDefault("pdf.cache_ttl", 5*time.Minute)
	v.SetDefault("pdf.cache_max_entries", 50)
	v.SetDefault("download.rate_per_minute", 60)
	v.SetDefault("download.burst", 10)
	v.SetDefault("download.abuse_limit", 20)
	v.SetDefault("download.abuse_window", 5*time.Minute)
	v.SetDefault("upload.max_bytes", 5*1024*1024)
	v.SetDefault("upload.max_assets_per_user", 20)
	v.SetDefault("upload.max_uploads_per_day", 50)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                       "API_PORT",
		"api.allowed_origins":            "API_ALLOWED_ORIGINS",
		"api.max_resumes":                "API_MAX_RESUMES",
		"api.cookie_domain":              "API_COOKIE_DOMAIN",
		"api.internal_secret":            "API_INTERNAL_SECRET",
		"database.host":                  "DATABASE_HOST",
		"database.port":                  "DATABASE_PORT",
		"database.name":                  "POSTGRES_DB",
		"database.user":                  "POSTGRES_USER",
		"database.password":              "POSTGRES_PASSWORD",
		"database.sslmode":               "DATABASE_SSLMODE",
		"redis.host":                     "REDIS_HOST",
		"redis.port":                     "REDIS_PORT",
		"minio.endpoint":                 "MINIO_ENDPOINT",
		"minio.public_endpoint":          "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":            "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":        "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":                  "MINIO_USE_SSL",
		"minio.bucket":                   "MINIO_BUCKET",
		"auth.private_key_path":          "AUTH_PRIVATE_KEY_PATH",
		"auth.public_key_path":           "AUTH_PUBLIC_KEY_PATH",
		"auth.access_token_ttl":          "AUTH_ACCESS_TOKEN_TTL",
		"auth.refresh_token_ttl":         "AUTH_REFRESH_TOKEN_TTL",
		"auth.login_rate_limit_per_hour": "AUTH_LOGIN_RATE_LIMIT_PER_HOUR",
		"auth.login_lock_threshold":      "AUTH_LOGIN_LOCK_THRESHOLD",
		"auth.login_lock_ttl":            "AUTH_LOGIN_LOCK_TTL",
		"editor.max_history":             "EDITOR_MAX_HISTORY",
		"editor.idle_ttl":                "EDITOR_IDLE_TTL",
		"pdf.render_timeout":             "PDF_RENDER_TIMEOUT",
		"pdf.cache_ttl":                  "PDF_CACHE_TTL",
		"pdf.cache_max_entries":          "PDF_CACHE_MAX_ENTRIES",
		"download.rate_per_minute":       "DOWNLOAD_RATE_PER_MINUTE",
		"download.burst":                 "DOWNLOAD_BURST",
		"download.abuse_limit":           "DOWNLOAD_ABUSE_LIMIT",
		"download.abuse_window":          "DOWNLOAD_ABUSE_WINDOW",
		"upload.clamd_addr":              "CLAMD_ADDR",
		"upload.max_bytes":               "UPLOAD_MAX_BYTES",
		"upload.max_assets_per_user":     "UPLOAD_MAX_ASSETS_PER_USER",
		"upload.max_uploads_per_day":     "UPLOAD_MAX_UPLOADS_PER_DAY",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	if cfg.Auth.PrivateKeyPath == "" {
		return errors.New("auth private key path is required")
	}
	if cfg.Auth.PublicKeyPath == "" {
		return errors.New("auth public key path is required")
	}
	if cfg.Auth.AccessTokenTTL <= 0 {
		return errors.New("auth access token ttl must be positive")
	}
	if cfg.Auth.RefreshTokenTTL <= 0 {
		return errors.New("auth refresh token ttl must be positive")
	}
	if cfg.Editor.MaxHistory <= 0 {
		return errors.New("editor max history must be positive")
	}
	if cfg.Editor.IdleTTL <= 0 {
		return errors.New("editor idle ttl must be positive")
	}
	if cfg.PDF.RenderTimeout <= 0 {
		return errors.New("pdf render timeout must be positive")
	}
	if cfg.PDF.CacheTTL <= 0 {
		return errors.New("pdf cache ttl must be positive")
	}
	if cfg.PDF.CacheMaxEntries <= 0 {
		return errors.New("pdf cache max entries must be positive")
	}
	if cfg.Download.RatePerMinute <= 0 {
		return errors.New("download rate per minute must be positive")
	}
	if cfg.Download.AbuseLimit <= 0 {
		return errors.New("download abuse limit must be positive")
	}
	if cfg.Download.AbuseWindow <= 0 {
		return errors.New("download abuse window must be positive")
	}
	return nil
}
