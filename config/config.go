package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port       int           `mapstructure:"port"`
	BodyLimit  int64         `mapstructure:"body_limit"`
	RateLimit  int           `mapstructure:"rate_limit"`
	RateWindow time.Duration `mapstructure:"rate_window"`
	CORS       CORSConfig    `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（通知发布、限流）
type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	EventsChannel string `mapstructure:"events_channel"`
}

// AuthConfig JWT 认证配置（Token 由外部认证系统签发，这里只做校验）
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// WorkflowConfig 审批流程与事务配置
type WorkflowConfig struct {
	CommitTimeout     time.Duration `mapstructure:"commit_timeout"`     // 事务提交窗口
	SynchronousCommit string        `mapstructure:"synchronous_commit"` // on | remote_write | remote_apply
}

// TelemetryConfig OpenTelemetry 配置
type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	Insecure     bool    `mapstructure:"insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

var synchronousCommitModes = map[string]bool{
	"on": true, "off": true, "local": true, "remote_write": true, "remote_apply": true,
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.body_limit", 1<<20)
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("server.rate_window", "1m")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "regulations")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Kolkata")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.events_channel", "scheme:events")

	v.SetDefault("auth.issuer", "regulations")
	v.SetDefault("auth.access_token_ttl", "15m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("workflow.commit_timeout", "1000ms")
	v.SetDefault("workflow.synchronous_commit", "remote_apply")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "regulations-backend")
	v.SetDefault("telemetry.sample_ratio", 0.1)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("REGS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("invalid config: auth.jwt_secret must not be empty")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("invalid config: auth.jwt_secret must be at least 16 characters")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port must be between 1 and 65535")
	}
	if c.Workflow.CommitTimeout <= 0 {
		return fmt.Errorf("invalid config: workflow.commit_timeout must be positive")
	}
	if !synchronousCommitModes[c.Workflow.SynchronousCommit] {
		return fmt.Errorf("invalid config: workflow.synchronous_commit %q is not a PostgreSQL synchronous_commit mode", c.Workflow.SynchronousCommit)
	}
	return nil
}
