package database

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// slowQueryThreshold marks statements reported at warn level.
const slowQueryThreshold = 200 * time.Millisecond

// Logger routes gorm diagnostics into logrus. Every statement is logged when the logrus level is
// trace; otherwise only failures and slow queries are.
type Logger struct {
	entry *logrus.Entry
	level logger.LogLevel
}

var _ logger.Interface = (*Logger)(nil)

// NewLogger builds a gorm logger bound to the sql component of the given logrus logger.
func NewLogger(base *logrus.Logger) *Logger {
	if base == nil {
		base = logrus.StandardLogger()
	}

	level := logger.Warn
	if base.IsLevelEnabled(logrus.TraceLevel) {
		level = logger.Info
	}

	return &Logger{entry: base.WithField("component", "sql"), level: level}
}

// LogMode returns a copy of the logger with the given gorm level.
func (l *Logger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *Logger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Info {
		l.entry.WithContext(ctx).Infof(msg, args...)
	}
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Warn {
		l.entry.WithContext(ctx).Warnf(msg, args...)
	}
}

func (l *Logger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Error {
		l.entry.WithContext(ctx).Errorf(msg, args...)
	}
}

// Trace reports one executed statement.
func (l *Logger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	entry := l.entry.WithContext(ctx).WithFields(logrus.Fields{
		"sql":         sql,
		"rows":        rows,
		"duration_ms": float64(elapsed.Microseconds()) / 1000,
	})

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error:
		entry.WithField("error", err.Error()).Error("sql statement failed")
	case elapsed > slowQueryThreshold && l.level >= logger.Warn:
		entry.Warn("slow sql statement")
	case l.level >= logger.Info:
		entry.Trace("sql statement")
	}
}
