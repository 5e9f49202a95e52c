package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server          ServerConfig          `mapstructure:"server"`
	Database        DatabaseConfig        `mapstructure:"db"`
	JWT             JWTConfig             `mapstructure:"jwt"`
	Email           EmailConfig           `mapstructure:"email"`
	RateLimit       RateLimitConfig       `mapstructure:"rate_limit"`
	SecurityHeaders SecurityHeadersConfig `mapstructure:"security_headers"`
	Validation      ValidationConfig      `mapstructure:"validation"`
	PasswordPolicy  PasswordPolicyConfig  `mapstructure:"password"`
	Admin           AdminConfig           `mapstructure:"admin"`
	Notification    NotificationConfig    `mapstructure:"notification"`
	Redis           RedisConfig           `mapstructure:"redis"`
	NATS            NATSConfig            `mapstructure:"nats"`
	S3              S3Config              `mapstructure:"s3"`
	Catalog         CatalogConfig         `mapstructure:"catalog"`
	App             AppConfig             `mapstructure:"app"`
	Log             LogConfig             `mapstructure:"log"`

	// Verification token lifetimes.
	PasswordResetTTL     time.Duration `mapstructure:"password_reset_ttl"`
	EmailVerificationTTL time.Duration `mapstructure:"email_verification_ttl"`

	RequireEmailVerification bool `mapstructure:"require_email_verification"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver           string        `mapstructure:"driver"`
	URL              string        `mapstructure:"url"`
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	Name             string        `mapstructure:"name"`
	SSLMode          string        `mapstructure:"sslmode"`
	MaxOpenConns     int           `mapstructure:"max_open_conns"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	RetryMaxAttempts int           `mapstructure:"retry_max_attempts"`
	RetryBaseDelay   time.Duration `mapstructure:"retry_base_delay"`
	AutoMigrate      bool          `mapstructure:"auto_migrate"`
}

type JWTConfig struct {
	Secret             string        `mapstructure:"secret"`
	Issuer             string        `mapstructure:"issuer"`
	AccessTokenTTL     time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL    time.Duration `mapstructure:"refresh_token_ttl"`
	FingerprintEnabled bool          `mapstructure:"fingerprint_enabled"`
	DetectReuse        bool          `mapstructure:"detect_reuse"`
}

// EmailConfig selects and configures the outgoing mail provider.
type EmailConfig struct {
	Provider     string        `mapstructure:"provider"`
	From         string        `mapstructure:"from"`
	FromName     string        `mapstructure:"from_name"`
	Timeout      time.Duration `mapstructure:"timeout"`
	SMTPHost     string        `mapstructure:"smtp_host"`
	SMTPPort     int           `mapstructure:"smtp_port"`
	SMTPUser     string        `mapstructure:"smtp_user"`
	SMTPPassword string        `mapstructure:"smtp_password"`
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
}

// RateLimitConfig holds per-endpoint-group request budgets.
type RateLimitConfig struct {
	Enabled                  bool `mapstructure:"enabled"`
	AuthRequestsPerMinute    int  `mapstructure:"auth_requests"`
	AuthWindowMinutes        int  `mapstructure:"auth_window_minutes"`
	ResetRequestsPerWindow   int  `mapstructure:"reset_requests"`
	ResetWindowMinutes       int  `mapstructure:"reset_window_minutes"`
	VerifyRequestsPerWindow  int  `mapstructure:"verify_requests"`
	VerifyWindowMinutes      int  `mapstructure:"verify_window_minutes"`
	RefreshRequestsPerMinute int  `mapstructure:"refresh_requests"`
	RefreshWindowMinutes     int  `mapstructure:"refresh_window_minutes"`
	ProfileRequestsPerMinute int  `mapstructure:"profile_requests"`
	ProfileWindowMinutes     int  `mapstructure:"profile_window_minutes"`
	AdminRequestsPerWindow   int  `mapstructure:"admin_requests"`
	AdminWindowMinutes       int  `mapstructure:"admin_window_minutes"`
}

type SecurityHeadersConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	CSP                string `mapstructure:"csp"`
	HSTSMaxAge         int    `mapstructure:"hsts_max_age"`
	FrameOptions       string `mapstructure:"frame_options"`
	ContentTypeOptions string `mapstructure:"content_type_options"`
	XSSProtection      string `mapstructure:"xss_protection"`
	ReferrerPolicy     string `mapstructure:"referrer_policy"`
	PermissionsPolicy  string `mapstructure:"permissions_policy"`
}

type ValidationConfig struct {
	StrictEmail     bool  `mapstructure:"strict_email"`
	BlockDisposable bool  `mapstructure:"block_disposable_email"`
	MaxRequestBytes int64 `mapstructure:"max_request_bytes"`
}

type PasswordPolicyConfig struct {
	MinLength        int  `mapstructure:"min_length"`
	RequireUppercase bool `mapstructure:"require_uppercase"`
	RequireLowercase bool `mapstructure:"require_lowercase"`
	RequireNumber    bool `mapstructure:"require_number"`
	RequireSpecial   bool `mapstructure:"require_special"`
}

type AdminConfig struct {
	Secret string `mapstructure:"secret"`
}

type NotificationConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type S3Config struct {
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	Bucket       string `mapstructure:"bucket"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

type CatalogConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type AppConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

var defaults = map[string]any{
	"server.addr":             "0.0.0.0",
	"server.port":             8080,
	"server.read_timeout":     "15s",
	"server.write_timeout":    "30s",
	"server.shutdown_timeout": "20s",

	// Matches the local podman setup.
	"db.driver":             "postgres",
	"db.url":                "",
	"db.host":               "localhost",
	"db.port":               25432,
	"db.user":               "postgres",
	"db.password":           "postgres",
	"db.name":               "blisslearn",
	"db.sslmode":            "disable",
	"db.max_open_conns":     25,
	"db.max_idle_conns":     5,
	"db.conn_max_lifetime":  "30m",
	"db.retry_max_attempts": 3,
	"db.retry_base_delay":   "1s",
	"db.auto_migrate":       true,

	"jwt.secret":              "",
	"jwt.issuer":              "blisslearn",
	"jwt.access_token_ttl":    "15m",
	"jwt.refresh_token_ttl":   "168h",
	"jwt.fingerprint_enabled": true,
	"jwt.detect_reuse":        true,

	"password_reset_ttl":         "1h",
	"email_verification_ttl":     "24h",
	"require_email_verification": false,

	"email.provider":      "log",
	"email.from":          "no-reply@blisslearn.app",
	"email.from_name":     "BlissLearn",
	"email.timeout":       "10s",
	"email.smtp_host":     "localhost",
	"email.smtp_port":     1025,
	"email.smtp_user":     "",
	"email.smtp_password": "",
	"email.api_key":       "",
	"email.base_url":      "",

	"rate_limit.enabled":                true,
	"rate_limit.auth_requests":          10,
	"rate_limit.auth_window_minutes":    1,
	"rate_limit.reset_requests":         5,
	"rate_limit.reset_window_minutes":   15,
	"rate_limit.verify_requests":        10,
	"rate_limit.verify_window_minutes":  15,
	"rate_limit.refresh_requests":       30,
	"rate_limit.refresh_window_minutes": 1,
	"rate_limit.profile_requests":       60,
	"rate_limit.profile_window_minutes": 1,
	"rate_limit.admin_requests":         5,
	"rate_limit.admin_window_minutes":   1,

	"security_headers.enabled":              true,
	"security_headers.csp":                  "default-src 'self'; frame-ancestors 'none'",
	"security_headers.hsts_max_age":         31536000,
	"security_headers.frame_options":        "DENY",
	"security_headers.content_type_options": "nosniff",
	"security_headers.xss_protection":       "0",
	"security_headers.referrer_policy":      "strict-origin-when-cross-origin",
	"security_headers.permissions_policy":   "geolocation=(), microphone=(), camera=()",

	"validation.strict_email":           true,
	"validation.block_disposable_email": false,
	"validation.max_request_bytes":      1 << 20,

	"password.min_length":        8,
	"password.require_uppercase": true,
	"password.require_lowercase": true,
	"password.require_number":    true,
	"password.require_special":   false,

	"admin.secret": "",

	"notification.sweep_interval": "24h",

	"redis.url":      "",
	"redis.addr":     "",
	"redis.password": "",
	"redis.db":       0,
	"redis.prefix":   "blisslearn:",

	"nats.url":            "",
	"nats.subject_prefix": "blisslearn",

	"s3.region":         "us-east-1",
	"s3.endpoint":       "",
	"s3.bucket":         "",
	"s3.access_key":     "",
	"s3.secret_key":     "",
	"s3.use_path_style": false,

	"catalog.cache_ttl": "5m",

	"app.base_url": "http://localhost:3000",

	"log.level": "info",
}

// Load reads configuration from defaults, an optional config file and the
// environment, in increasing order of precedence. Environment variables are
// the upper-cased keys with dots replaced by underscores, e.g. DB_HOST or
// EMAIL_TIMEOUT.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.Database.Driver {
	case "postgres", "pgx":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or pgx, got %q", c.Database.Driver)
	}
	if c.Database.RetryMaxAttempts < 1 {
		return errors.New("DB_RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if c.Database.RetryBaseDelay < 0 {
		return errors.New("DB_RETRY_BASE_DELAY must not be negative")
	}
	switch c.Email.Provider {
	case "smtp", "log":
	case "resend", "sendgrid":
		if c.Email.APIKey == "" {
			return fmt.Errorf("EMAIL_API_KEY is required for %s", c.Email.Provider)
		}
	default:
		return fmt.Errorf("EMAIL_PROVIDER must be smtp, resend, sendgrid or log, got %q", c.Email.Provider)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT %d is out of range", c.Server.Port)
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Addr, c.Server.Port)
}

// HasRedis reports whether a Redis server is configured.
func (c *Config) HasRedis() bool {
	return c.Redis.URL != "" || c.Redis.Addr != ""
}

// HasNATS reports whether a NATS server is configured.
func (c *Config) HasNATS() bool {
	return c.NATS.URL != ""
}

// HasS3 reports whether certificate storage is configured.
func (c *Config) HasS3() bool {
	return c.S3.Bucket != ""
}

// LogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
