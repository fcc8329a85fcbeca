// Package logging builds the zap logger used by herdcore binaries and adapts
// it to the core.Logger interface.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"herdcore/internal/core"
)

// Config selects the log level and encoding.
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// New builds a zap logger from cfg. The default is info level JSON.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
		}
	}
	config := zap.NewProductionConfig()
	switch strings.ToLower(cfg.Format) {
	case "", "json":
	case "console":
		config.Encoding = "console"
		config.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	config.Level = zap.NewAtomicLevelAt(level)
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

var _ core.Logger = ServiceLogger{}

// ServiceLogger adapts a zap logger to core.Logger. Args are alternating
// key/value pairs as accepted by zap's sugared *w methods.
type ServiceLogger struct {
	sugar *zap.SugaredLogger
}

// ForService wraps logger for use as a core.ServiceOption logger.
func ForService(logger *zap.Logger) ServiceLogger {
	return ServiceLogger{sugar: logger.Named("core").Sugar()}
}

func (l ServiceLogger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l ServiceLogger) Info(msg string, args ...any)  { l.sugar.Infow(msg, args...) }
func (l ServiceLogger) Warn(msg string, args ...any)  { l.sugar.Warnw(msg, args...) }
func (l ServiceLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }
