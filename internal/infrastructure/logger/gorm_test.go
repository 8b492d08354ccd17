package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func statement(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func observedStatementLogger(cfg StatementLogConfig) (*StatementLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewStatementLogger(zap.New(core), cfg), logs
}

func TestNewStatementLogger(t *testing.T) {
	l := NewStatementLogger(nil, StatementLogConfig{Level: gormlogger.Warn})
	assert.Equal(t, DefaultLockWaitThreshold, l.cfg.LockWaitThreshold)

	copied, ok := l.LogMode(gormlogger.Info).(*StatementLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Info, copied.cfg.Level)
	assert.Equal(t, gormlogger.Warn, l.cfg.Level, "LogMode leaves the original untouched")
}

func TestClassifyStatement(t *testing.T) {
	tests := []struct {
		sql  string
		want Statement
	}{
		{`SELECT * FROM "location_stocks" WHERE location_id = $1 AND item_id IN ($2,$3) FOR UPDATE`,
			Statement{Op: "SELECT", Table: "location_stocks", Locking: true}},
		{`UPDATE "items" SET "stock_quantity"=(SELECT COALESCE(SUM(available_quantity), 0) FROM "location_stocks" WHERE item_id = $1)`,
			Statement{Op: "UPDATE", Table: "items"}},
		{`INSERT INTO "stock_movements" ("id","item_id") VALUES ($1,$2)`,
			Statement{Op: "INSERT", Table: "stock_movements"}},
		{`delete from low_stock_alerts where id = $1`,
			Statement{Op: "DELETE", Table: "low_stock_alerts"}},
		{`SELECT count(*) FROM "orders"`, Statement{Op: "SELECT", Table: "orders"}},
		{`BEGIN`, Statement{Op: "BEGIN"}},
		{"", Statement{}},
	}
	for _, tt := range tests {
		t.Run(tt.want.Op+" "+tt.want.Table, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyStatement(tt.sql))
		})
	}
}

func TestStatementLogger_Trace(t *testing.T) {
	ctx := context.Background()
	begin := time.Now()

	t.Run("failure carries op and table", func(t *testing.T) {
		l, logs := observedStatementLogger(StatementLogConfig{Level: gormlogger.Warn})
		l.Trace(ctx, begin, statement(`UPDATE "location_stocks" SET available_quantity = $1`, 0), errors.New("deadlock detected"))

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "statement failed", entry.Message)
		assert.Equal(t, "sql", entry.LoggerName)
		assert.Equal(t, "UPDATE", entry.ContextMap()["op"])
		assert.Equal(t, "location_stocks", entry.ContextMap()["table"])
	})

	t.Run("missed lookups stay quiet unless asked", func(t *testing.T) {
		l, logs := observedStatementLogger(StatementLogConfig{Level: gormlogger.Warn})
		l.Trace(ctx, begin, statement(`SELECT * FROM "items"`, 0), gormlogger.ErrRecordNotFound)
		assert.Zero(t, logs.Len())

		l, logs = observedStatementLogger(StatementLogConfig{Level: gormlogger.Warn, LogNotFound: true})
		l.Trace(ctx, begin, statement(`SELECT * FROM "items"`, 0), gormlogger.ErrRecordNotFound)
		assert.Equal(t, 1, logs.Len())
	})

	t.Run("slow ordinary statement", func(t *testing.T) {
		l, logs := observedStatementLogger(StatementLogConfig{Level: gormlogger.Warn, SlowThreshold: time.Millisecond})
		l.Trace(ctx, begin.Add(-time.Second), statement(`SELECT * FROM "orders"`, 3), nil)

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
		assert.Equal(t, "slow statement", logs.All()[0].Message)
	})

	t.Run("row lock uses its own threshold", func(t *testing.T) {
		l, logs := observedStatementLogger(StatementLogConfig{Level: gormlogger.Warn, SlowThreshold: time.Hour, LockWaitThreshold: time.Millisecond})
		l.Trace(ctx, begin.Add(-10*time.Millisecond), statement(`SELECT * FROM "location_stocks" FOR UPDATE`, 1), nil)

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, true, logs.All()[0].ContextMap()["row_lock"])

		l.Trace(ctx, begin.Add(-10*time.Millisecond), statement(`SELECT * FROM "orders"`, 1), nil)
		assert.Equal(t, 1, logs.Len(), "ordinary statement under the slow threshold is not logged at warn")
	})

	t.Run("request id carried", func(t *testing.T) {
		l, logs := observedStatementLogger(StatementLogConfig{Level: gormlogger.Info})
		reqCtx, _ := WithRequestID(ctx, zap.NewNop(), "rid-9")
		l.Trace(reqCtx, begin, statement("SELECT 1", 1), nil)

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)
		assert.Equal(t, "rid-9", logs.All()[0].ContextMap()["request_id"])
	})

	t.Run("silent", func(t *testing.T) {
		l, logs := observedStatementLogger(StatementLogConfig{Level: gormlogger.Silent})
		l.Trace(ctx, begin, statement("SELECT", 0), errors.New("x"))
		assert.Zero(t, logs.Len())
	})
}

func TestStatementLogger_Printf(t *testing.T) {
	l, logs := observedStatementLogger(StatementLogConfig{Level: gormlogger.Warn})
	l.Info(context.Background(), "migrated %d tables", 3)
	l.Warn(context.Background(), "pool at %d%%", 90)
	l.Error(context.Background(), "lost connection")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "pool at 90%", logs.All()[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)
}

func TestStatementLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, StatementLevel("silent"))
	assert.Equal(t, gormlogger.Error, StatementLevel("error"))
	assert.Equal(t, gormlogger.Warn, StatementLevel("warn"))
	assert.Equal(t, gormlogger.Info, StatementLevel("debug"))
	assert.Equal(t, gormlogger.Warn, StatementLevel("info"))
}
