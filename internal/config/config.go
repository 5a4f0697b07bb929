// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config 应用配置
type Config struct {
	App       AppConfig       `yaml:"app"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Holiday   HolidayConfig   `yaml:"holiday"`
	NATS      NATSConfig      `yaml:"nats"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `yaml:"name"`
	Env       string `yaml:"env"`
	Port      int    `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	Version   string `yaml:"version"`
}

// DatabaseConfig 排班结果库配置，URL 优先于分项设置
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// Enabled 是否配置了结果库
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != "" || c.Host != ""
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// APIConfig API配置
type APIConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	RateLimit    float64       `yaml:"rate_limit"` // 每秒请求数
	Keys         string        `yaml:"keys"`       // 为空时不校验 API 密钥，格式见 security.ParseKeys
	CORS         CORSConfig    `yaml:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	Enabled bool     `yaml:"enabled"`
	Origins []string `yaml:"origins"`
}

// SchedulerConfig 排班引擎配置
type SchedulerConfig struct {
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	BatchWorkers   int           `yaml:"batch_workers"`
	OutputDir      string        `yaml:"output_dir"` // 为空时不写 JSON 文件
}

// HolidayConfig 节假日数据源配置
type HolidayConfig struct {
	Country  string        `yaml:"country"` // 为空表示不查询节假日
	BaseURL  string        `yaml:"base_url"`
	CacheDSN string        `yaml:"cache_dsn"` // 缺省时复用 DATABASE_URL，再缺省为本地 SQLite
	Timeout  time.Duration `yaml:"timeout"`
}

// NATSConfig 排班结果发布配置
type NATSConfig struct {
	URL     string        `yaml:"url"` // 为空时不发布
	Stream  string        `yaml:"stream"`
	Subject string        `yaml:"subject"`
	MaxAge  time.Duration `yaml:"max_age"`
}

// Enabled 是否启用发布
func (c *NATSConfig) Enabled() bool {
	return c.URL != ""
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load 加载 .env（如存在）后从环境变量读取配置
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		// 已存在的环境变量优先
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("加载 %s 失败: %w", f, err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name:      getEnv("APP_NAME", "monthroster"),
			Env:       getEnv("APP_ENV", "development"),
			Port:      getEnvInt("APP_PORT", 7012),
			LogLevel:  getEnv("APP_LOG_LEVEL", "info"),
			LogFormat: getEnv("APP_LOG_FORMAT", "console"),
			Version:   getEnv("APP_VERSION", "dev"),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", ""),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "roster"),
			User:            getEnv("DB_USER", "roster"),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		API: APIConfig{
			Timeout:      getEnvDuration("API_TIMEOUT", 30*time.Second),
			MaxBodyBytes: int64(getEnvInt("API_MAX_BODY_BYTES", 1<<20)),
			RateLimit:    float64(getEnvInt("API_RATE_LIMIT", 100)),
			Keys:         getEnv("API_KEYS", ""),
			CORS: CORSConfig{
				Enabled: getEnvBool("API_CORS_ENABLED", true),
				Origins: []string{"*"},
			},
		},
		Scheduler: SchedulerConfig{
			DefaultTimeout: getEnvDuration("SCHEDULER_TIMEOUT", 30*time.Second),
			BatchWorkers:   getEnvInt("SCHEDULER_BATCH_WORKERS", 4),
			OutputDir:      getEnv("SCHEDULER_OUTPUT_DIR", ""),
		},
		Holiday: HolidayConfig{
			Country:  getEnv("HOLIDAY_COUNTRY", ""),
			BaseURL:  getEnv("HOLIDAY_BASE_URL", ""),
			CacheDSN: getEnv("HOLIDAY_CACHE_DSN", getEnv("DATABASE_URL", "holidays.db")),
			Timeout:  getEnvDuration("HOLIDAY_TIMEOUT", 10*time.Second),
		},
		NATS: NATSConfig{
			URL:     getEnv("NATS_URL", ""),
			Stream:  getEnv("NATS_STREAM", "ROSTER"),
			Subject: getEnv("NATS_SUBJECT", "roster.runs"),
			MaxAge:  getEnvDuration("NATS_MAX_AGE", 90*24*time.Hour),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("无效的端口 %d", c.App.Port)
	}
	if c.API.RateLimit <= 0 {
		return fmt.Errorf("API_RATE_LIMIT 必须大于0")
	}
	if c.Scheduler.BatchWorkers <= 0 {
		return fmt.Errorf("SCHEDULER_BATCH_WORKERS 必须大于0")
	}
	if c.Scheduler.DefaultTimeout <= 0 {
		return fmt.Errorf("SCHEDULER_TIMEOUT 必须大于0")
	}
	return nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// IsTest 检查是否为测试环境
func (c *Config) IsTest() bool {
	return c.App.Env == "test"
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
