// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stdout
				}
			} else {
				output = os.Stdout
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	// 未显式初始化时使用默认配置，Init 只会生效一次
	Init(DefaultConfig())
	return &logger
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()

	// 添加请求ID
	if reqID, ok := ctx.Value("request_id").(string); ok {
		l = l.With().Str("request_id", reqID).Logger()
	}
	
	// 添加排班运行ID
	if runID, ok := ctx.Value("run_id").(string); ok {
		l = l.With().Str("run_id", runID).Logger()
	}

	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// WithField 添加字段
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

// WithFields 添加多个字段
func WithFields(fields map[string]interface{}) *zerolog.Logger {
	ctx := Get().With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	l := ctx.Logger()
	return &l
}

// RotaLogger 值班排班专用日志器
type RotaLogger struct {
	base *zerolog.Logger
}

// NewRotaLogger 创建值班排班日志器
func NewRotaLogger() *RotaLogger {
	l := Get().With().Str("component", "rota").Logger()
	return &RotaLogger{base: &l}
}

// With 返回带有附加字段的日志器
func (l *RotaLogger) With(key, value string) *RotaLogger {
	child := l.base.With().Str(key, value).Logger()
	return &RotaLogger{base: &child}
}

// StartCompile 记录建模开始
func (l *RotaLogger) StartCompile(classification string, residents, days, shifts int) {
	l.base.Info().
		Str("classification", classification).
		Int("residents", residents).
		Int("days", days).
		Int("shifts", shifts).
		Msg("开始构建约束模型")
}

// CompileComplete 记录建模完成
func (l *RotaLogger) CompileComplete(vars, constraints, penalties int, duration time.Duration) {
	l.base.Info().
		Int("variables", vars).
		Int("constraints", constraints).
		Int("penalties", penalties).
		Dur("duration", duration).
		Msg("约束模型构建完成")
}

// Target 记录某个住院医师的期望区间
func (l *RotaLogger) Target(kind, resident string, expected float64, lower, upper int) {
	l.base.Debug().
		Str("kind", kind).
		Str("resident", resident).
		Float64("expected", expected).
		Int("lower", lower).
		Int("upper", upper).
		Msg("期望值区间")
}

// SolveComplete 记录求解完成
func (l *RotaLogger) SolveComplete(engine, status string, objective int64, duration time.Duration) {
	l.base.Info().
		Str("engine", engine).
		Str("status", status).
		Int64("objective", objective).
		Dur("duration", duration).
		Msg("求解完成")
}

// NoSolution 记录无可用排班
func (l *RotaLogger) NoSolution(engine, status string) {
	l.base.Warn().
		Str("engine", engine).
		Str("status", status).
		Msg("没有可用的排班方案")
}

// AuditViolation 记录审计发现的违规
func (l *RotaLogger) AuditViolation(rule, resident string, day int, details string) {
	l.base.Error().
		Str("rule", rule).
		Str("resident", resident).
		Int("day", day).
		Str("details", details).
		Msg("排班审计失败")
}
