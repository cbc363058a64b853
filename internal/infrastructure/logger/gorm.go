package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultMaxStatementLength bounds logged SQL. Snapshot upserts carry a whole
// serialized collection as a bind value.
const DefaultMaxStatementLength = 512

// SQLLoggerConfig tunes an SQLLogger
type SQLLoggerConfig struct {
	Level              gormlogger.LogLevel
	SlowThreshold      time.Duration // 0 disables slow statement warnings
	MaxStatementLength int
}

// SQLLogger writes gorm's statement log to zap. A missing snapshot row is the
// normal "collection not stored yet" case, so record-not-found is never
// reported as an error.
type SQLLogger struct {
	log *zap.Logger
	cfg SQLLoggerConfig
}

var _ gormlogger.Interface = (*SQLLogger)(nil)

// NewSQLLogger creates an SQLLogger. A zero Level means Warn.
func NewSQLLogger(log *zap.Logger, cfg SQLLoggerConfig) *SQLLogger {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Level == 0 {
		cfg.Level = gormlogger.Warn
	}
	if cfg.MaxStatementLength <= 0 {
		cfg.MaxStatementLength = DefaultMaxStatementLength
	}
	return &SQLLogger{log: log, cfg: cfg}
}

// LogMode returns a copy logging at level
func (l *SQLLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.cfg.Level = level
	return &clone
}

func (l *SQLLogger) Info(ctx context.Context, msg string, data ...any) {
	l.message(ctx, gormlogger.Info, msg, data)
}

func (l *SQLLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.message(ctx, gormlogger.Warn, msg, data)
}

func (l *SQLLogger) Error(ctx context.Context, msg string, data ...any) {
	l.message(ctx, gormlogger.Error, msg, data)
}

func (l *SQLLogger) message(ctx context.Context, level gormlogger.LogLevel, msg string, data []any) {
	if l.cfg.Level < level {
		return
	}
	text := fmt.Sprintf(msg, data...)
	fields := cashierFields(ctx)
	switch level {
	case gormlogger.Error:
		l.log.Error(text, fields...)
	case gormlogger.Warn:
		l.log.Warn(text, fields...)
	default:
		l.log.Info(text, fields...)
	}
}

// Trace logs one executed statement
func (l *SQLLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.cfg.Level <= gormlogger.Silent {
		return
	}
	if errors.Is(err, gormlogger.ErrRecordNotFound) {
		err = nil
	}

	elapsed := time.Since(begin)
	slow := l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold
	switch {
	case err != nil && l.cfg.Level >= gormlogger.Error:
	case slow && l.cfg.Level >= gormlogger.Warn:
	case l.cfg.Level >= gormlogger.Info:
	default:
		return
	}

	sql, rows := fc()
	fields := append([]zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", l.truncate(sql)),
	}, cashierFields(ctx)...)

	switch {
	case err != nil:
		l.log.Error("Snapshot statement failed", append(fields, zap.Error(err))...)
	case slow:
		l.log.Warn("Slow snapshot statement", append(fields, zap.Duration("threshold", l.cfg.SlowThreshold))...)
	default:
		l.log.Debug("Snapshot statement", fields...)
	}
}

func cashierFields(ctx context.Context) []zap.Field {
	if cashier := GetCashier(ctx); cashier != "" {
		return []zap.Field{zap.String("cashier", cashier)}
	}
	return nil
}

func (l *SQLLogger) truncate(sql string) string {
	if len(sql) <= l.cfg.MaxStatementLength {
		return sql
	}
	return sql[:l.cfg.MaxStatementLength] + "...(truncated)"
}

var sqlLogLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
	"debug":  gormlogger.Info,
}

// ParseSQLLogLevel maps an application log level to the gorm level used for
// statement logging. Unknown levels fall back to Warn.
func ParseSQLLogLevel(level string) gormlogger.LogLevel {
	if l, ok := sqlLogLevels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return l
	}
	return gormlogger.Warn
}
