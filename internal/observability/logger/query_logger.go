package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// ledgerTables hold balances or their movements. Statements against them run
// under row locks, so a slow one stalls uploads and opname steps.
var ledgerTables = map[string]bool{
	"division_storage_quotas": true,
	"document_divisions":      true,
	"items":                   true,
	"item_transactions":       true,
	"stock_opnames":           true,
	"stock_opname_items":      true,
}

// QueryLoggerConfig configures the database query logger.
type QueryLoggerConfig struct {
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration
}

// ParseQueryLevel maps silent, error, warn or info to a gorm level, defaulting to warn.
func ParseQueryLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// QueryLogger writes gorm statements through zap with the request actor attached.
type QueryLogger struct {
	base  *zap.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func NewQueryLogger(base *zap.Logger, cfg QueryLoggerConfig) *QueryLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &QueryLogger{
		base:  base.With(zap.String("component", "db")),
		level: cfg.Level,
		slow:  cfg.SlowThreshold,
	}
}

func (l *QueryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.level = level
	return &next
}

func (l *QueryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Info, msg, data)
}

func (l *QueryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Warn, msg, data)
}

func (l *QueryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Error, msg, data)
}

func (l *QueryLogger) message(ctx context.Context, level gormlogger.LogLevel, msg string, data []interface{}) {
	if l.level < level {
		return
	}
	log := WithContext(ctx, l.base)
	var fields []zap.Field
	if len(data) > 0 {
		fields = append(fields, zap.Any("data", data))
	}
	switch level {
	case gormlogger.Error:
		log.Error(msg, fields...)
	case gormlogger.Warn:
		log.Warn(msg, fields...)
	default:
		log.Info(msg, fields...)
	}
}

// Trace logs failed statements at error and slow ones at warn. Everything else
// is debug output at the info level. Missing rows are not failures: the
// repositories translate them into nil results.
func (l *QueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound):
		if l.level >= gormlogger.Error {
			l.query(ctx, zapcore.ErrorLevel, "db.query failed", fc, elapsed, err)
		}
	case l.slow > 0 && elapsed > l.slow:
		if l.level >= gormlogger.Warn {
			l.query(ctx, zapcore.WarnLevel, "db.query slow", fc, elapsed, nil)
		}
	case l.level >= gormlogger.Info:
		l.query(ctx, zapcore.DebugLevel, "db.query", fc, elapsed, nil)
	}
}

// ParamsFilter drops bound values; titles and file names stay out of the log.
func (l *QueryLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

func (l *QueryLogger) query(ctx context.Context, level zapcore.Level, msg string, fc func() (string, int64), elapsed time.Duration, err error) {
	sql, rows := fc()
	shape := describeQuery(sql)
	fields := []zap.Field{
		zap.String("sql", strings.TrimSpace(sql)),
		zap.String("verb", shape.verb),
		zap.String("table", shape.table),
		zap.Bool("locking", shape.locking),
		zap.Bool("ledger", ledgerTables[shape.table]),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows_affected", rows))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if ce := WithContext(ctx, l.base).Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

type queryShape struct {
	verb    string
	table   string
	locking bool
}

// describeQuery extracts the statement verb, its target table and whether it
// takes row locks. Unknown shapes report verb UNKNOWN and an empty table.
func describeQuery(sql string) queryShape {
	tokens := strings.Fields(strings.TrimSpace(sql))
	shape := queryShape{verb: "UNKNOWN"}
	upper := strings.ToUpper(sql)
	shape.locking = strings.Contains(upper, "FOR UPDATE") || strings.Contains(upper, "FOR SHARE")

	verbAt := -1
	for i, token := range tokens {
		word := strings.ToUpper(strings.Trim(token, "();"))
		if word == "SELECT" || word == "INSERT" || word == "UPDATE" || word == "DELETE" {
			shape.verb = word
			verbAt = i
			break
		}
	}
	if verbAt < 0 {
		return shape
	}

	marker := map[string]string{
		"SELECT": "FROM",
		"DELETE": "FROM",
		"INSERT": "INTO",
	}[shape.verb]
	if marker == "" {
		// UPDATE names its table directly.
		if verbAt+1 < len(tokens) {
			shape.table = cleanIdentifier(tokens[verbAt+1])
		}
		return shape
	}
	for i := verbAt + 1; i+1 < len(tokens); i++ {
		if strings.EqualFold(tokens[i], marker) {
			shape.table = cleanIdentifier(tokens[i+1])
			break
		}
	}
	return shape
}

func cleanIdentifier(token string) string {
	token = strings.Trim(token, "`\"();,")
	if idx := strings.LastIndex(token, "."); idx >= 0 {
		token = token[idx+1:]
	}
	return strings.ToLower(strings.Trim(token, "`\""))
}

var _ gormlogger.Interface = (*QueryLogger)(nil)
