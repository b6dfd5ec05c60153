package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	RateLimit    RateLimitConfig
	Idempotency  IdempotencyConfig
	FeatureFlags FeatureFlagsConfig
	Site         SiteConfig
	Admin        AdminConfig
	Robokassa    RobokassaConfig
	Telegram     TelegramConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Telegram.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ENROLL_APP_ENV" required:"true"`
	Port         string `envconfig:"ENROLL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ENROLL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ENROLL_LOG_WARN_STACK" default:"false"`

	ShutdownTimeout time.Duration `envconfig:"ENROLL_APP_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ENROLL_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ENROLL_DB_DSN"`
	Driver string `envconfig:"ENROLL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ENROLL_DB_HOST"`
	LegacyPort     int    `envconfig:"ENROLL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ENROLL_DB_USER"`
	LegacyPassword string `envconfig:"ENROLL_DB_PASSWORD"`
	LegacyName     string `envconfig:"ENROLL_DB_NAME"`
	LegacySSLMode  string `envconfig:"ENROLL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ENROLL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ENROLL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ENROLL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ENROLL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"ENROLL_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ENROLL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ENROLL_REDIS_ADDR"`
	Password     string        `envconfig:"ENROLL_REDIS_PASSWORD"`
	DB           int           `envconfig:"ENROLL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ENROLL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ENROLL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ENROLL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ENROLL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ENROLL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type RateLimitConfig struct {
	RegisterWindow     time.Duration `envconfig:"ENROLL_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"ENROLL_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"ENROLL_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	PaymentLinkWindow  time.Duration `envconfig:"ENROLL_RATE_LIMIT_PAYMENT_LINK_WINDOW" default:"1m"`
	PaymentLinkIPLimit int           `envconfig:"ENROLL_RATE_LIMIT_PAYMENT_LINK_IP_LIMIT" default:"10"`
}

type IdempotencyConfig struct {
	ReplayTTL      time.Duration `envconfig:"ENROLL_IDEMPOTENCY_TTL" default:"24h"`
	AdminReplayTTL time.Duration `envconfig:"ENROLL_IDEMPOTENCY_ADMIN_TTL" default:"168h"`
	CallbackGuard  time.Duration `envconfig:"ENROLL_CALLBACK_GUARD_TTL" default:"2m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ENROLL_AUTO_MIGRATE" default:"false"`
}

// SiteConfig describes the public marketing site that hosts the success page.
type SiteConfig struct {
	PublicURL      string   `envconfig:"ENROLL_SITE_PUBLIC_URL" default:"http://localhost:3000"`
	AllowedOrigins []string `envconfig:"ENROLL_SITE_ALLOWED_ORIGINS"`
}

type AdminConfig struct {
	Password string `envconfig:"ENROLL_ADMIN_PASSWORD"`
}

// RobokassaConfig holds merchant credentials. Missing values surface as
// configuration errors at request time, not at boot.
type RobokassaConfig struct {
	MerchantLogin string `envconfig:"ENROLL_ROBOKASSA_MERCHANT_LOGIN"`
	Password1     string `envconfig:"ENROLL_ROBOKASSA_PASSWORD1"`
	Password2     string `envconfig:"ENROLL_ROBOKASSA_PASSWORD2"`
	BaseURL       string `envconfig:"ENROLL_ROBOKASSA_BASE_URL" default:"https://auth.robokassa.kz/Merchant/Index.aspx"`
	TestMode      bool   `envconfig:"ENROLL_ROBOKASSA_TEST_MODE" default:"false"`
	Description   string `envconfig:"ENROLL_ROBOKASSA_DESCRIPTION" default:"Оплата участия в энергетических сессиях"`
}

type TelegramConfig struct {
	BotToken      string        `envconfig:"ENROLL_TELEGRAM_BOT_TOKEN"`
	GroupID       string        `envconfig:"ENROLL_TELEGRAM_GROUP_ID"`
	APIBaseURL    string        `envconfig:"ENROLL_TELEGRAM_API_BASE_URL" default:"https://api.telegram.org"`
	WebhookSecret string        `envconfig:"ENROLL_TELEGRAM_WEBHOOK_SECRET"`
	RevokePolicy  string        `envconfig:"ENROLL_TELEGRAM_REVOKE_POLICY" default:"all"`
	Timeout       time.Duration `envconfig:"ENROLL_TELEGRAM_TIMEOUT" default:"10s"`
}

// Configured reports whether both the bot token and the group id are set.
func (t TelegramConfig) Configured() bool {
	return strings.TrimSpace(t.BotToken) != "" && strings.TrimSpace(t.GroupID) != ""
}

// Policy returns the normalized revoke policy.
func (t TelegramConfig) Policy() string {
	policy := strings.ToLower(strings.TrimSpace(t.RevokePolicy))
	if policy == "" {
		return RevokePolicyAll
	}
	return policy
}

func (t TelegramConfig) validate() error {
	switch t.Policy() {
	case RevokePolicyAll, RevokePolicyMatched:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvTelegramRevokePolicy, RevokePolicyAll, RevokePolicyMatched)
	}
}

type CronConfig struct {
	Interval       time.Duration `envconfig:"ENROLL_CRON_INTERVAL" default:"5m"`
	LockTTL        time.Duration `envconfig:"ENROLL_CRON_LOCK_TTL" default:"4m"`
	JobTimeout     time.Duration `envconfig:"ENROLL_CRON_JOB_TIMEOUT" default:"3m"`
	ReconcileBatch int           `envconfig:"ENROLL_CRON_RECONCILE_BATCH" default:"50"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
