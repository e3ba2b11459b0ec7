package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/bakehouse-next/internal/constants"
	"github.com/bakehouse-next/internal/logger"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server      ServerConfig   `mapstructure:"server"`
	Log         LogConfig      `mapstructure:"log"`
	Database    DatabaseConfig `mapstructure:"database"`
	JWT         JWTConfig      `mapstructure:"jwt"`
	CustomerJWT JWTConfig      `mapstructure:"customer_jwt"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Queue       QueueConfig    `mapstructure:"queue"`
	CORS        CORSConfig     `mapstructure:"cors"`
	Security    SecurityConfig `mapstructure:"security"`
	Pricing     PricingConfig  `mapstructure:"pricing"`
	Order       OrderConfig    `mapstructure:"order"`
	Store       StoreConfig    `mapstructure:"store"`
	Stripe      StripeConfig   `mapstructure:"stripe"`
	Captcha     CaptchaConfig  `mapstructure:"captcha"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
	MenuTTL  int    `mapstructure:"menu_ttl_seconds"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	LoginRateLimit    RateLimitConfig `mapstructure:"login_rate_limit"`
	CheckoutRateLimit RateLimitConfig `mapstructure:"checkout_rate_limit"`
	PromoRateLimit    RateLimitConfig `mapstructure:"promo_rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// PricingConfig 计价配置
type PricingConfig struct {
	TaxRate     string `mapstructure:"tax_rate"`
	DeliveryFee string `mapstructure:"delivery_fee"`
	Currency    string `mapstructure:"currency"`
}

// TaxRateDecimal 解析税率，非法值回退到默认税率
func (c PricingConfig) TaxRateDecimal() decimal.Decimal {
	return parseDecimalOrDefault(c.TaxRate, constants.DefaultTaxRate)
}

// DeliveryFeeDecimal 解析配送费，非法值回退到默认配送费
func (c PricingConfig) DeliveryFeeDecimal() decimal.Decimal {
	return parseDecimalOrDefault(c.DeliveryFee, constants.DefaultDeliveryFee)
}

// OrderConfig 订单配置
type OrderConfig struct {
	NumberPrefix              string `mapstructure:"number_prefix"`
	NumberRetryAttempts       int    `mapstructure:"number_retry_attempts"`
	PaymentExpireMinutes      int    `mapstructure:"payment_expire_minutes"`
	TransactionTimeoutSeconds int    `mapstructure:"transaction_timeout_seconds"`
	POSAllowOverbook          bool   `mapstructure:"pos_allow_overbook"`
}

// TransactionTimeout 下单事务超时时间
func (c OrderConfig) TransactionTimeout() time.Duration {
	if c.TransactionTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TransactionTimeoutSeconds) * time.Second
}

// StoreConfig 门店配置
type StoreConfig struct {
	Name     string `mapstructure:"name"`
	Timezone string `mapstructure:"timezone"`
}

// Location 门店时区，解析失败回退 UTC
func (c StoreConfig) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		name = constants.StoreTimezoneDefault
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warnw("config_store_timezone_invalid", "timezone", name, "error", err)
		return time.UTC
	}
	return loc
}

// StripeConfig Stripe 支付意图配置
type StripeConfig struct {
	Enabled                 bool   `mapstructure:"enabled"`
	SecretKey               string `mapstructure:"secret_key"`
	PublishableKey          string `mapstructure:"publishable_key"`
	WebhookSecret           string `mapstructure:"webhook_secret"`
	APIBaseURL              string `mapstructure:"api_base_url"`
	WebhookToleranceSeconds int    `mapstructure:"webhook_tolerance_seconds"`
}

// CaptchaConfig 图片验证码配置
type CaptchaConfig struct {
	GuestCheckout bool `mapstructure:"guest_checkout"`
	Length        int  `mapstructure:"length"`
	Width         int  `mapstructure:"width"`
	Height        int  `mapstructure:"height"`
	NoiseCount    int  `mapstructure:"noise_count"`
	ShowLine      int  `mapstructure:"show_line"`
	ExpireSeconds int  `mapstructure:"expire_seconds"`
	MaxStore      int  `mapstructure:"max_store"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	// .env 仅用于本地开发，缺失时忽略
	if err := godotenv.Load(); err == nil {
		logger.Infow("config_dotenv_loaded")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("./etc")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // server.port -> SERVER_PORT

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	return &cfg
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "app.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/bakehouse.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expire_hours", 12)
	viper.SetDefault("customer_jwt.secret", "customer-change-me-in-production")
	viper.SetDefault("customer_jwt.expire_hours", 168)
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", constants.RedisPrefixDefault)
	viper.SetDefault("redis.menu_ttl_seconds", 300)
	viper.SetDefault("queue.enabled", true)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		constants.QueueDefault:  10,
		constants.QueueCritical: 5,
	})
	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	viper.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		"X-Request-ID",
	})
	viper.SetDefault("cors.allow_credentials", true)
	viper.SetDefault("cors.max_age", 600)
	viper.SetDefault("security.login_rate_limit.window_seconds", 300)
	viper.SetDefault("security.login_rate_limit.max_requests", 5)
	viper.SetDefault("security.checkout_rate_limit.window_seconds", 60)
	viper.SetDefault("security.checkout_rate_limit.max_requests", 10)
	viper.SetDefault("security.promo_rate_limit.window_seconds", 60)
	viper.SetDefault("security.promo_rate_limit.max_requests", 20)
	viper.SetDefault("pricing.tax_rate", constants.DefaultTaxRate)
	viper.SetDefault("pricing.delivery_fee", constants.DefaultDeliveryFee)
	viper.SetDefault("pricing.currency", constants.DefaultCurrency)
	viper.SetDefault("order.number_prefix", constants.OrderNoPrefixDefault)
	viper.SetDefault("order.number_retry_attempts", constants.OrderNoRetryAttemptsLimit)
	viper.SetDefault("order.payment_expire_minutes", 30)
	viper.SetDefault("order.transaction_timeout_seconds", 10)
	viper.SetDefault("order.pos_allow_overbook", true)
	viper.SetDefault("store.name", "Bakehouse")
	viper.SetDefault("store.timezone", constants.StoreTimezoneDefault)
	viper.SetDefault("stripe.enabled", false)
	viper.SetDefault("stripe.secret_key", "")
	viper.SetDefault("stripe.publishable_key", "")
	viper.SetDefault("stripe.webhook_secret", "")
	viper.SetDefault("stripe.api_base_url", "https://api.stripe.com")
	viper.SetDefault("stripe.webhook_tolerance_seconds", 300)
	viper.SetDefault("captcha.guest_checkout", false)
	viper.SetDefault("captcha.length", 5)
	viper.SetDefault("captcha.width", 240)
	viper.SetDefault("captcha.height", 80)
	viper.SetDefault("captcha.noise_count", 2)
	viper.SetDefault("captcha.show_line", 2)
	viper.SetDefault("captcha.expire_seconds", 300)
	viper.SetDefault("captcha.max_store", 10240)
}

func parseDecimalOrDefault(raw string, fallback string) decimal.Decimal {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || value.IsNegative() {
		return decimal.RequireFromString(fallback)
	}
	return value
}
