package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/gitpulse/pkg/observability"
)

var discardLogger = slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))

func newSpanRecorder(t *testing.T) (trace.Tracer, *tracetest.InMemoryExporter) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	return tp.Tracer("test"), exporter
}

func serve(t *testing.T, tracer trace.Tracer, handler http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	mw := observability.HTTPMiddleware(tracer, discardLogger, handler)

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()

	mw.ServeHTTP(rec, req)

	return rec
}

func attributeValue(attrs []attribute.KeyValue, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range attrs {
		if kv.Key == key {
			return kv.Value, true
		}
	}

	return attribute.Value{}, false
}

func TestHTTPMiddleware_RecordsStatusCode(t *testing.T) {
	t.Parallel()

	tracer, exporter := newSpanRecorder(t)

	rec := serve(t, tracer, func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusTeapot)
	})

	assert.Equal(t, http.StatusTeapot, rec.Code)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	span := spans[0]
	assert.Equal(t, "GET /metrics", span.Name)
	assert.Equal(t, trace.SpanKindServer, span.SpanKind)
	assert.Equal(t, codes.Unset, span.Status.Code)

	code, ok := attributeValue(span.Attributes, "http.response.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusTeapot), code.AsInt64())

	method, ok := attributeValue(span.Attributes, "http.request.method")
	require.True(t, ok)
	assert.Equal(t, http.MethodGet, method.AsString())

	path, ok := attributeValue(span.Attributes, "url.path")
	require.True(t, ok)
	assert.Equal(t, "/metrics", path.AsString())
}

func TestHTTPMiddleware_ImplicitOK(t *testing.T) {
	t.Parallel()

	tracer, exporter := newSpanRecorder(t)

	rec := serve(t, tracer, func(rw http.ResponseWriter, _ *http.Request) {
		_, err := rw.Write([]byte("ok"))
		assert.NoError(t, err)
	})

	assert.Equal(t, http.StatusOK, rec.Code)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	code, ok := attributeValue(spans[0].Attributes, "http.response.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusOK), code.AsInt64())
}

func TestHTTPMiddleware_ServerErrorSetsErrorStatus(t *testing.T) {
	t.Parallel()

	tracer, exporter := newSpanRecorder(t)

	rec := serve(t, tracer, func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusInternalServerError)
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), spans[0].Status.Description)

	code, ok := attributeValue(spans[0].Attributes, "http.response.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusInternalServerError), code.AsInt64())
}
