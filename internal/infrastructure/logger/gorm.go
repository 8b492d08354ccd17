package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultLockWaitThreshold flags SELECT ... FOR UPDATE statements that waited
// noticeably on another transaction's row lock.
const DefaultLockWaitThreshold = 50 * time.Millisecond

// StatementLogConfig tunes StatementLogger
type StatementLogConfig struct {
	Level gormlogger.LogLevel
	// SlowThreshold marks ordinary statements as slow. Zero disables it.
	SlowThreshold time.Duration
	// LockWaitThreshold marks row-locking reads as slow. Zero falls back to
	// DefaultLockWaitThreshold.
	LockWaitThreshold time.Duration
	// LogNotFound reports lookups that matched no row as errors
	LogNotFound bool
}

// StatementLogger writes every GORM statement as a structured zap entry
// tagged with its operation and table, under the "sql" logger name.
type StatementLogger struct {
	logger *zap.Logger
	cfg    StatementLogConfig
}

// NewStatementLogger builds a GORM logger over zapLogger
func NewStatementLogger(zapLogger *zap.Logger, cfg StatementLogConfig) *StatementLogger {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	if cfg.LockWaitThreshold == 0 {
		cfg.LockWaitThreshold = DefaultLockWaitThreshold
	}
	return &StatementLogger{logger: zapLogger.Named("sql"), cfg: cfg}
}

func (l *StatementLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	copied := *l
	copied.cfg.Level = level
	return &copied
}

func (l *StatementLogger) Info(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Info, msg, data)
}

func (l *StatementLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Warn, msg, data)
}

func (l *StatementLogger) Error(ctx context.Context, msg string, data ...any) {
	l.printf(ctx, gormlogger.Error, msg, data)
}

func (l *StatementLogger) printf(ctx context.Context, level gormlogger.LogLevel, msg string, data []any) {
	if l.cfg.Level < level {
		return
	}
	sugar := WithTraceContext(ctx, l.logger).Sugar()
	switch level {
	case gormlogger.Error:
		sugar.Errorf(msg, data...)
	case gormlogger.Warn:
		sugar.Warnf(msg, data...)
	default:
		sugar.Infof(msg, data...)
	}
}

// Trace logs one executed statement. Failures log at error, statements over
// their threshold at warn and everything else at debug when the level is Info.
func (l *StatementLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.cfg.Level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	stmt := ClassifyStatement(sql)

	fields := []zap.Field{
		zap.String("op", stmt.Op),
		zap.String("table", stmt.Table),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	if stmt.Locking {
		fields = append(fields, zap.Bool("row_lock", true))
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	log := WithTraceContext(ctx, l.logger)

	switch {
	case err != nil:
		if l.cfg.Level < gormlogger.Error {
			return
		}
		if !l.cfg.LogNotFound && errors.Is(err, gormlogger.ErrRecordNotFound) {
			return
		}
		log.Error("statement failed", append(fields, zap.Error(err))...)
	case l.cfg.Level >= gormlogger.Warn && l.slow(stmt, elapsed):
		log.Warn("slow statement", fields...)
	case l.cfg.Level >= gormlogger.Info:
		log.Debug("statement", fields...)
	}
}

func (l *StatementLogger) slow(stmt Statement, elapsed time.Duration) bool {
	if stmt.Locking {
		return elapsed > l.cfg.LockWaitThreshold
	}
	return l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold
}

// Statement is the shape of one SQL statement as far as the log cares
type Statement struct {
	Op      string
	Table   string
	Locking bool
}

// ClassifyStatement extracts the leading keyword, the first table named and
// whether the statement takes row locks.
func ClassifyStatement(sql string) Statement {
	words := strings.Fields(sql)
	if len(words) == 0 {
		return Statement{}
	}
	stmt := Statement{
		Op:      strings.ToUpper(words[0]),
		Locking: strings.Contains(strings.ToUpper(sql), "FOR UPDATE"),
	}

	var marker string
	switch stmt.Op {
	case "UPDATE":
		if len(words) > 1 {
			stmt.Table = unquote(words[1])
		}
		return stmt
	case "INSERT":
		marker = "INTO"
	case "SELECT", "DELETE":
		marker = "FROM"
	default:
		return stmt
	}
	for i := 1; i+1 < len(words); i++ {
		if strings.EqualFold(words[i], marker) {
			stmt.Table = unquote(words[i+1])
			break
		}
	}
	return stmt
}

func unquote(name string) string {
	return strings.Trim(name, "\"`()")
}

// StatementLevel maps the application log level onto GORM's levels. Only
// debug logging emits every statement.
func StatementLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
