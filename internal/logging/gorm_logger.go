package logging

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger forwards gorm's logging to zap
type GormLogger struct {
	logger *zap.Logger
	config gormlogger.Config
}

// NewGormLogger creates a gorm logger backed by zap
func NewGormLogger(logger *zap.Logger, config gormlogger.Config) gormlogger.Interface {
	return &GormLogger{
		logger: logger,
		config: config,
	}
}

// LogMode returns a copy of the logger at the given level
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.config.LogLevel = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.config.LogLevel >= gormlogger.Info {
		l.logger.Sugar().Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.config.LogLevel >= gormlogger.Warn {
		l.logger.Sugar().Warnf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.config.LogLevel >= gormlogger.Error {
		l.logger.Sugar().Errorf(msg, data...)
	}
}

// Trace logs one SQL statement: errors at error level, slow queries at warn, the rest at debug
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.config.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	}

	failed := err != nil && !(l.config.IgnoreRecordNotFoundError && errors.Is(err, gorm.ErrRecordNotFound))
	switch {
	case failed && l.config.LogLevel >= gormlogger.Error:
		l.logger.Error("SQL query failed", append(fields, zap.Error(err))...)
	case l.config.SlowThreshold != 0 && elapsed > l.config.SlowThreshold && l.config.LogLevel >= gormlogger.Warn:
		l.logger.Warn("Slow SQL query", fields...)
	case l.config.LogLevel >= gormlogger.Info:
		l.logger.Debug("SQL query executed", fields...)
	}
}
