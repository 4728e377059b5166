package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/revdash/backend/internal/infrastructure/telemetry"
)

// setupTestTracer installs a TracerProvider backed by an in-memory span
// recorder and restores the previous provider on cleanup.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})

	return sr
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, attr := range attrs {
		if string(attr.Key) == key {
			return attr.Value, true
		}
	}
	return attribute.Value{}, false
}

type stringer string

func (s stringer) String() string { return string(s) }

func TestStartSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test.operation")
	require.NotNil(t, span)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "test.operation", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
}

func TestStartSpan_WithOptions(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test.operation",
		telemetry.WithAttribute("test_key", "test_value"),
		telemetry.WithSpanKind(trace.SpanKindClient),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())

	v, ok := attrValue(spans[0].Attributes(), "test_key")
	require.True(t, ok)
	assert.Equal(t, "test_value", v.AsString())
}

func TestStartProviderSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartProviderSpan(context.Background(), stringer("gumroad"), "fetch_all_orders",
		telemetry.WithAttribute(telemetry.SpanAttrPageCount, 2),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "gumroad.fetch_all_orders", spans[0].Name())
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())

	provider, ok := attrValue(spans[0].Attributes(), telemetry.SpanAttrProvider)
	require.True(t, ok)
	assert.Equal(t, "gumroad", provider.AsString())

	pages, ok := attrValue(spans[0].Attributes(), telemetry.SpanAttrPageCount)
	require.True(t, ok)
	assert.Equal(t, int64(2), pages.AsInt64())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test.attributes")
	telemetry.SetAttributes(span,
		"string_key", "value",
		"int_key", 42,
		"int64_key", int64(7),
		"bool_key", true,
		"float_key", 1.5,
		123, "ignored non-string key",
		"dangling",
	)
	span.End()

	attrs := sr.Ended()[0].Attributes()
	assert.Len(t, attrs, 5)

	v, _ := attrValue(attrs, "int_key")
	assert.Equal(t, int64(42), v.AsInt64())
	v, _ = attrValue(attrs, "bool_key")
	assert.True(t, v.AsBool())
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test.error")
	telemetry.RecordError(span, errors.New("boom"))
	span.End()

	s := sr.Ended()[0]
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Equal(t, "boom", s.Status().Description)
	require.Len(t, s.Events(), 1)
	assert.Equal(t, "exception", s.Events()[0].Name)
}

func TestRecordError_NilIsNoop(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test.nil_error")
	telemetry.RecordError(span, nil)
	telemetry.RecordError(nil, errors.New("ignored"))
	span.End()

	assert.Equal(t, codes.Unset, sr.Ended()[0].Status().Code)
}

func TestSetOK(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test.ok")
	telemetry.SetOK(span)
	span.End()

	assert.Equal(t, codes.Ok, sr.Ended()[0].Status().Code)
}

func TestAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "test.event")
	telemetry.AddEvent(span, "page_fetched", "page", 3)
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "page_fetched", events[0].Name)
	v, ok := attrValue(events[0].Attributes, "page")
	require.True(t, ok)
	assert.Equal(t, int64(3), v.AsInt64())
}

func TestGetTraceID(t *testing.T) {
	setupTestTracer(t)

	assert.Empty(t, telemetry.GetTraceID(context.Background()))

	ctx, span := telemetry.StartSpan(context.Background(), "test.trace_id")
	defer span.End()
	assert.Len(t, telemetry.GetTraceID(ctx), 32)
}
