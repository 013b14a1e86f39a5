package logging

import (
	"fmt"

	"github.com/bitspace/salon-mail-ingest/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger initializes a logger based on configuration
func InitLogger(cfg *config.Config) (*zap.Logger, error) {
	logCfg := cfg.GetLogging()
	return build(parseLevel(logCfg.Level), logCfg.Format)
}

// InitConsoleLogger initializes a console-friendly logger
func InitConsoleLogger(verbose bool, jsonFormat bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	format := "console"
	if jsonFormat {
		format = "json"
	}
	return build(level, format)
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func build(level zapcore.Level, format string) (*zap.Logger, error) {
	var logConfig zap.Config
	switch format {
	case "json":
		logConfig = zap.NewProductionConfig()
	case "cloud":
		// Field names understood by Cloud Logging
		logConfig = zap.NewProductionConfig()
		logConfig.EncoderConfig.MessageKey = "message"
		logConfig.EncoderConfig.LevelKey = "severity"
		logConfig.EncoderConfig.TimeKey = "time"
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		logConfig = zap.NewDevelopmentConfig()
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	logConfig.Level = zap.NewAtomicLevelAt(level)

	logger, err := logConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger, nil
}
