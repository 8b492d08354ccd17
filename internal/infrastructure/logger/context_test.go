package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func spanContext(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	l, _ := observed()
	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
}

func TestWithRequestID(t *testing.T) {
	base, logs := observed()
	ctx, l := WithRequestID(context.Background(), base, "req-42")

	assert.Equal(t, "req-42", GetRequestID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))

	l.Info("adjusted")
	FromContext(ctx).Info("again")
	require.Equal(t, 2, logs.Len())
	for _, e := range logs.All() {
		assert.Equal(t, "req-42", e.ContextMap()["request_id"])
	}
}

func TestWithTraceContext(t *testing.T) {
	base, logs := observed()

	assert.Same(t, base, WithTraceContext(context.Background(), base))

	WithTraceContext(spanContext(t), base).Info("traced")
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
}

func TestCtx(t *testing.T) {
	base, baseLogs := observed()
	request, requestLogs := observed()

	Ctx(context.Background(), base).Info("fallback")
	assert.Equal(t, 1, baseLogs.Len())

	ctx := WithContext(spanContext(t), request)
	Ctx(ctx, base).Info("stored")
	require.Equal(t, 1, requestLogs.Len())
	assert.Contains(t, requestLogs.All()[0].ContextMap(), "trace_id")

	assert.NotPanics(t, func() { Ctx(context.Background(), nil).Info("nop") })
}
