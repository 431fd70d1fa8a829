package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

type zapLogger struct {
	logger                    *zap.SugaredLogger
	SlowThreshold             time.Duration
	LogLevel                  gormLogger.LogLevel
	IgnoreRecordNotFoundError bool
}

// NewLogger adapts a zap logger to gorm's logger interface.
func NewLogger(sugar *zap.SugaredLogger) *zapLogger {
	return &zapLogger{
		logger:                    sugar,
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormLogger.Warn,
		IgnoreRecordNotFoundError: true,
	}
}

func (z *zapLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	return &zapLogger{
		logger:                    z.logger,
		SlowThreshold:             z.SlowThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: z.IgnoreRecordNotFoundError,
	}
}

func (z zapLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if z.LogLevel >= gormLogger.Info {
		z.logger.Infof(msg, args...)
	}
}

func (z zapLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if z.LogLevel >= gormLogger.Warn {
		z.logger.Warnf(msg, args...)
	}
}

func (z zapLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if z.LogLevel >= gormLogger.Error {
		z.logger.Errorf(msg, args...)
	}
}

func (z zapLogger) Trace(_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if z.LogLevel <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && z.LogLevel >= gormLogger.Error && (!errors.Is(err, gorm.ErrRecordNotFound) || !z.IgnoreRecordNotFoundError):
		sql, rows := fc()
		z.logger.With(
			"line_number", utils.FileWithLineNum(),
			"error", err.Error(),
			"rows", rows,
			"elapsed", float64(elapsed.Nanoseconds())/1e6,
		).Debug(sql)
	case elapsed > z.SlowThreshold && z.SlowThreshold != 0 && z.LogLevel >= gormLogger.Warn:
		sql, rows := fc()
		z.logger.With(
			"line_number", utils.FileWithLineNum(),
			"slow", fmt.Sprintf("SLOW SQL >= %v", z.SlowThreshold),
			"rows", rows,
			"elapsed", float64(elapsed.Nanoseconds())/1e6,
		).Warn(sql)
	case z.LogLevel == gormLogger.Info:
		sql, rows := fc()
		z.logger.With(
			"line_number", utils.FileWithLineNum(),
			"rows", rows,
			"elapsed", float64(elapsed.Nanoseconds())/1e6,
		).Debug(sql)
	}
}
