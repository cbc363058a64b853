package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/pos/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// setupTestTracer installs a tracer provider backed by an in-memory recorder
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

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value
	}
	return m
}

func TestStartSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "sale.process")
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "sale.process", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
}

func TestStartSpan_WithOptions(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "sale.process",
		telemetry.WithAttribute(telemetry.SpanAttrCashier, "ann"),
		telemetry.WithAttribute(telemetry.SpanAttrLineCount, 3),
		telemetry.WithSpanKind(trace.SpanKindClient),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())
	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, "ann", attrs["cashier"].AsString())
	assert.Equal(t, int64(3), attrs["line_count"].AsInt64())
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "inventory", "add_stock")
	span.End()

	require.Len(t, sr.Ended(), 1)
	assert.Equal(t, "inventory.add_stock", sr.Ended()[0].Name())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)
	id := uuid.New()

	_, span := telemetry.StartSpan(context.Background(), "op")
	telemetry.SetAttributes(span,
		"transaction_id", 7,
		"cashier_id", id,
		"ok", true,
		"ratio", 0.5,
		42, "non-string key ignored",
		"dangling",
	)
	span.End()

	attrs := attrMap(sr.Ended()[0].Attributes())
	assert.Len(t, attrs, 4)
	assert.Equal(t, int64(7), attrs["transaction_id"].AsInt64())
	assert.Equal(t, id.String(), attrs["cashier_id"].AsString())
	assert.True(t, attrs["ok"].AsBool())
	assert.Equal(t, 0.5, attrs["ratio"].AsFloat64())
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "op")
	telemetry.RecordError(span, errors.New("insufficient stock"))
	span.End()

	s := sr.Ended()[0]
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Equal(t, "insufficient stock", s.Status().Description)
	require.Len(t, s.Events(), 1)
	assert.Equal(t, "exception", s.Events()[0].Name)
}

func TestRecordError_NilError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "op")
	telemetry.RecordError(span, nil)
	span.End()

	assert.Equal(t, codes.Unset, sr.Ended()[0].Status().Code)
}

func TestSetOK(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "op")
	telemetry.SetOK(span)
	span.End()

	assert.Equal(t, codes.Ok, sr.Ended()[0].Status().Code)
}

func TestAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "op")
	telemetry.AddEvent(span, "stock_sold", telemetry.SpanAttrItemName, "Milk", telemetry.SpanAttrAmount, 4)
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "stock_sold", events[0].Name)
	attrs := attrMap(events[0].Attributes)
	assert.Equal(t, "Milk", attrs["item_name"].AsString())
	assert.Equal(t, int64(4), attrs["amount"].AsInt64())
}

func TestNestedSpans(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, parent := telemetry.StartSpan(context.Background(), "sale.process")
	_, child := telemetry.StartSpan(ctx, "ledger.append")
	child.End()
	parent.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestNilSpanHelpers(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("x"))
		telemetry.SetOK(nil)
		telemetry.AddEvent(nil, "e")
	})
}
