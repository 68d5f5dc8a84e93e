package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/chiptrack/internal/logger"
	"github.com/chiptrack/internal/models"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	CustomerJWT CustomerJWTConfig `mapstructure:"customer_jwt"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Queue       QueueConfig       `mapstructure:"queue"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Security    SecurityConfig    `mapstructure:"security"`
	Chip        ChipConfig        `mapstructure:"chip"`
	Factory     FactoryConfig     `mapstructure:"factory"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host                     string `mapstructure:"host"`
	Port                     string `mapstructure:"port"`
	Mode                     string `mapstructure:"mode"` // debug / release
	ReadHeaderTimeoutSeconds int    `mapstructure:"read_header_timeout_seconds"`
	ReadTimeoutSeconds       int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds      int    `mapstructure:"write_timeout_seconds"`
	IdleTimeoutSeconds       int    `mapstructure:"idle_timeout_seconds"`
	ShutdownTimeoutSeconds   int    `mapstructure:"shutdown_timeout_seconds"`
}

// Addr 监听地址
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"` // debug/info/warn/error，为空时按运行模式
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
		Level:      c.Level,
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
	Driver      string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN         string             `mapstructure:"dsn"`    // 数据库连接串
	Pool        DatabasePoolConfig `mapstructure:"pool"`
	Debug       bool               `mapstructure:"debug"`  // 输出 SQL 日志
	SlowQueryMs int                `mapstructure:"slow_query_ms"`
}

// ToDBOptions 转换为 models 连接参数
func (c DatabaseConfig) ToDBOptions() models.DBOptions {
	return models.DBOptions{
		Driver: c.Driver,
		DSN:    c.DSN,
		Pool: models.DBPoolConfig{
			MaxOpenConns:           c.Pool.MaxOpenConns,
			MaxIdleConns:           c.Pool.MaxIdleConns,
			ConnMaxLifetimeSeconds: c.Pool.ConnMaxLifetimeSeconds,
			ConnMaxIdleTimeSeconds: c.Pool.ConnMaxIdleTimeSeconds,
		},
		Debug:         c.Debug,
		SlowThreshold: time.Duration(c.SlowQueryMs) * time.Millisecond,
	}
}

// JWTConfig 后台 JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// CustomerJWTConfig 客户端 JWT 配置（Token 由外部认证服务签发）
type CustomerJWTConfig struct {
	SecretKey string `mapstructure:"secret"`
	Issuer    string `mapstructure:"issuer"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool             `mapstructure:"enabled"`
	Host        string           `mapstructure:"host"`
	Port        int              `mapstructure:"port"`
	Password    string           `mapstructure:"password"`
	DB          int              `mapstructure:"db"`
	Concurrency int              `mapstructure:"concurrency"`
	Queues      map[string]int   `mapstructure:"queues"`
	AlertSweep  AlertSweepConfig `mapstructure:"alert_sweep"`
}

// AlertSweepConfig 未确认安全告警的补发巡检
type AlertSweepConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
	GraceSeconds    int `mapstructure:"grace_seconds"`
	Limit           int `mapstructure:"limit"`
}

// ChipConfig 芯片生命周期配置
type ChipConfig struct {
	ChecksumSecret           string `mapstructure:"checksum_secret"`
	KeySecret                string `mapstructure:"key_secret"`
	SaltBytes                int    `mapstructure:"salt_bytes"`
	ArchiveMinWords          int    `mapstructure:"archive_min_words"`
	ImportErrorLimit         int    `mapstructure:"import_error_limit"`
	ImportMaxRows            int    `mapstructure:"import_max_rows"`
	WhitelistCacheTTLSeconds int    `mapstructure:"whitelist_cache_ttl_seconds"`
	DefaultChipQuota         int    `mapstructure:"default_chip_quota"`
	SpreadsheetMaxBytes      int64  `mapstructure:"spreadsheet_max_bytes"`
}

// FactoryConfig 产线编码工具接入配置
type FactoryConfig struct {
	AllowedCIDRs []string `mapstructure:"allowed_cidrs"`
}

// MetricsConfig 指标暴露配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
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
	LoginRateLimit RateLimitConfig      `mapstructure:"login_rate_limit"`
	ScanRateLimit  RateLimitConfig      `mapstructure:"scan_rate_limit"`
	PasswordPolicy PasswordPolicyConfig `mapstructure:"password_policy"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxAttempts   int `mapstructure:"max_attempts"`
	BlockSeconds  int `mapstructure:"block_seconds"`
}

// PasswordPolicyConfig 密码策略配置
type PasswordPolicyConfig struct {
	MinLength      int  `mapstructure:"min_length"`
	RequireUpper   bool `mapstructure:"require_upper"`
	RequireLower   bool `mapstructure:"require_lower"`
	RequireNumber  bool `mapstructure:"require_number"`
	RequireSpecial bool `mapstructure:"require_special"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")     // 从当前目录查找
	viper.AddConfigPath("./")    // 备用路径
	viper.AddConfigPath("../")   // 如果从 cmd/server 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	setDefaults()

	// 环境变量支持
	viper.AutomaticEnv()                                   // 自动读取环境变量
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 将 . 替换为 _ (例如 server.port -> SERVER_PORT)

	// 读取配置文件
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
	viper.SetDefault("server.read_header_timeout_seconds", 5)
	viper.SetDefault("server.read_timeout_seconds", 30)
	viper.SetDefault("server.write_timeout_seconds", 60)
	viper.SetDefault("server.idle_timeout_seconds", 120)
	viper.SetDefault("server.shutdown_timeout_seconds", 10)
	viper.SetDefault("log.level", "")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "chiptrack.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/chiptrack.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("database.debug", false)
	viper.SetDefault("database.slow_query_ms", 200)
	viper.SetDefault("jwt.secret", DefaultJWTSecret)
	viper.SetDefault("jwt.expire_hours", 12)
	viper.SetDefault("customer_jwt.secret", "customer-change-me-in-production")
	viper.SetDefault("customer_jwt.issuer", "")
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "chiptrack")
	viper.SetDefault("queue.enabled", true)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"default":  3,
		"critical": 6,
	})
	viper.SetDefault("queue.alert_sweep.interval_seconds", 60)
	viper.SetDefault("queue.alert_sweep.grace_seconds", 300)
	viper.SetDefault("queue.alert_sweep.limit", 100)
	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Accept-Language",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
	})
	viper.SetDefault("cors.allow_credentials", true)
	viper.SetDefault("cors.max_age", 600)
	viper.SetDefault("security.login_rate_limit.window_seconds", 300)
	viper.SetDefault("security.login_rate_limit.max_attempts", 5)
	viper.SetDefault("security.login_rate_limit.block_seconds", 900)
	viper.SetDefault("security.scan_rate_limit.window_seconds", 60)
	viper.SetDefault("security.scan_rate_limit.max_attempts", 30)
	viper.SetDefault("security.scan_rate_limit.block_seconds", 300)
	viper.SetDefault("security.password_policy.min_length", 10)
	viper.SetDefault("security.password_policy.require_upper", true)
	viper.SetDefault("security.password_policy.require_lower", true)
	viper.SetDefault("security.password_policy.require_number", true)
	viper.SetDefault("security.password_policy.require_special", false)
	viper.SetDefault("chip.checksum_secret", DefaultChecksumSecret)
	viper.SetDefault("chip.key_secret", "chip-key-change-me-in-production")
	viper.SetDefault("chip.salt_bytes", 16)
	viper.SetDefault("chip.archive_min_words", 10)
	viper.SetDefault("chip.import_error_limit", 50)
	viper.SetDefault("chip.import_max_rows", 20000)
	viper.SetDefault("chip.whitelist_cache_ttl_seconds", 300)
	viper.SetDefault("chip.default_chip_quota", 500)
	viper.SetDefault("chip.spreadsheet_max_bytes", 5<<20)
	viper.SetDefault("factory.allowed_cidrs", []string{"127.0.0.1/32", "::1/128"})
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
}
