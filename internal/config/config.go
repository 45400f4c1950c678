// Package config 提供服务配置管理
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/paiban/callrota/pkg/logger"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `yaml:"app" envPrefix:"APP_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DB_"`
	Solver   SolverConfig   `yaml:"solver" envPrefix:"SOLVER_"`
	Metrics  MetricsConfig  `yaml:"metrics" envPrefix:"METRICS_"`
	Security SecurityConfig `yaml:"security" envPrefix:"SECURITY_"`
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name            string        `yaml:"name" env:"NAME" validate:"required"`
	Env             string        `yaml:"env" env:"ENV" validate:"oneof=development test production"`
	Port            int           `yaml:"port" env:"PORT" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// DatabaseConfig 数据库配置；Enabled 为 false 时运行结果只保存在内存中
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled" env:"ENABLED"`
	Host            string        `yaml:"host" env:"HOST" validate:"required_if=Enabled true"`
	Port            int           `yaml:"port" env:"PORT" validate:"gte=0,lte=65535"`
	Name            string        `yaml:"name" env:"NAME"`
	User            string        `yaml:"user" env:"USER"`
	Password        string        `yaml:"password" env:"PASSWORD"`
	SSLMode         string        `yaml:"ssl_mode" env:"SSL_MODE" validate:"omitempty,oneof=disable require verify-ca verify-full"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS" validate:"gte=0"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS" validate:"gte=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// SolverConfig 求解引擎配置
type SolverConfig struct {
	Engine    string        `yaml:"engine" env:"ENGINE" validate:"oneof=cpsat pbsat"`
	TimeLimit time.Duration `yaml:"time_limit" env:"TIME_LIMIT" validate:"gt=0"`
	Workers   int           `yaml:"workers" env:"WORKERS" validate:"gte=0"`
	SearchLog bool          `yaml:"search_log" env:"SEARCH_LOG"`
	Audit     bool          `yaml:"audit" env:"AUDIT"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Path    string `yaml:"path" env:"PATH" validate:"omitempty,startswith=/"`
}

// SecurityConfig 访问控制；APIKeys 为空时不校验密钥
type SecurityConfig struct {
	APIKeys      []string      `yaml:"api_keys" env:"API_KEYS" envSeparator:","`
	RateLimit    int           `yaml:"rate_limit" env:"RATE_LIMIT" validate:"gte=0"`
	RateWindow   time.Duration `yaml:"rate_window" env:"RATE_WINDOW" validate:"required_with=RateLimit"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" env:"MAX_BODY_BYTES" validate:"gt=0"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `yaml:"level" env:"LEVEL" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" env:"FORMAT" validate:"oneof=json console"`
	Output   string `yaml:"output" env:"OUTPUT" validate:"oneof=stdout stderr file"`
	FilePath string `yaml:"file_path" env:"FILE_PATH" validate:"required_if=Output file"`
}

// Logger 转换为日志器配置
func (c LogConfig) Logger() logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = c.Level
	cfg.Format = c.Format
	cfg.Output = c.Output
	cfg.FilePath = c.FilePath
	return cfg
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:            "callrota",
			Env:             "development",
			Port:            7012,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "callrota",
			User:            "callrota",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Solver: SolverConfig{
			Engine:    "cpsat",
			TimeLimit: 60 * time.Second,
			Workers:   8,
			Audit:     true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Security: SecurityConfig{
			RateLimit:    30,
			RateWindow:   time.Minute,
			MaxBodyBytes: 1 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
	}
}

// Load 依次应用默认值、YAML 文件（path 为空时跳过）和环境变量，最后校验
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		var aggErr env.AggregateError
		if errors.As(err, &aggErr) && len(aggErr.Errors) > 0 {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("配置项 %s 无效: %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
		}
		return err
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
