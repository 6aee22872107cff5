package infrastructure

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// GormLogger adapts slog onto gorm's logger.Interface.
type GormLogger struct {
	logger *slog.Logger
	level  logger.LogLevel
}

// NewGormLogger creates a GormLogger writing to base at the given level.
// A nil base uses slog.Default().
func NewGormLogger(base *slog.Logger, level logger.LogLevel) *GormLogger {
	if base == nil {
		base = slog.Default()
	}
	return &GormLogger{logger: base.With("component", "gorm"), level: level}
}

// GormLogLevel maps a slog level onto the closest gorm level.
func GormLogLevel(level slog.Level) logger.LogLevel {
	switch {
	case level <= slog.LevelDebug:
		return logger.Info
	case level <= slog.LevelWarn:
		return logger.Warn
	default:
		return logger.Error
	}
}

func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level < logger.Info {
		return
	}
	l.logger.InfoContext(ctx, msg, "data", data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level < logger.Warn {
		return
	}
	l.logger.WarnContext(ctx, msg, "data", data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level < logger.Error {
		return
	}
	l.logger.ErrorContext(ctx, msg, "data", data)
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level == logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && l.level >= logger.Error && !errors.Is(err, logger.ErrRecordNotFound):
		l.logger.ErrorContext(ctx, "query failed",
			"error", err,
			"elapsed", elapsed,
			"rows", rows,
			"sql", sql,
		)
	case elapsed > slowQueryThreshold && l.level >= logger.Warn:
		l.logger.WarnContext(ctx, "slow query",
			"elapsed", elapsed,
			"rows", rows,
			"sql", sql,
		)
	case l.level == logger.Info:
		l.logger.DebugContext(ctx, "query",
			"elapsed", elapsed,
			"rows", rows,
			"sql", sql,
		)
	}
}

// Ensure GormLogger implements logger.Interface.
var _ logger.Interface = (*GormLogger)(nil)
