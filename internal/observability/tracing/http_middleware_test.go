package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	obscontext "github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/context"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTracedRouter(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	r := gin.New()
	r.Use(newMiddleware(tp.Tracer("test")))
	api := r.Group("/api", func(c *gin.Context) {
		division := int64(3)
		actor := obscontext.Actor{UserID: 11, Role: "division_admin", DivisionID: &division}
		c.Request = c.Request.WithContext(obscontext.WithActor(c.Request.Context(), actor))
	})
	api.POST("/stock-opnames/:id/finalize", func(c *gin.Context) {
		c.Status(http.StatusTooEarly)
	})
	api.PUT("/storage-quotas/:division_id", func(c *gin.Context) {
		_ = c.Error(errors.New("update quota: pq: deadlock detected"))
		c.Status(http.StatusInternalServerError)
	})
	return r, recorder
}

func spanAttributes(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestSpanCarriesRouteResourceAndActor(t *testing.T) {
	r, recorder := newTracedRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/stock-opnames/42/finalize", nil))
	require.Equal(t, http.StatusTooEarly, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "HTTP POST /api/stock-opnames/:id/finalize", span.Name())
	assert.Equal(t, codes.Unset, span.Status().Code)

	attrs := spanAttributes(span)
	assert.Equal(t, "42", attrs["eoffice.stock_opname_id"].AsString())
	assert.Equal(t, "11", attrs["enduser.id"].AsString())
	assert.Equal(t, "division_admin", attrs["enduser.role"].AsString())
	assert.Equal(t, int64(3), attrs["eoffice.actor_division_id"].AsInt64())
	assert.Equal(t, int64(http.StatusTooEarly), attrs["http.status_code"].AsInt64())
}

func TestSpanRecordsServerErrorsWithoutDetail(t *testing.T) {
	r, recorder := newTracedRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/storage-quotas/5", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Equal(t, "5", spanAttributes(span)["eoffice.division_id"].AsString())

	require.Len(t, span.Events(), 1)
	for _, kv := range span.Events()[0].Attributes {
		if kv.Key == "exception.message" {
			assert.Equal(t, "update quota", kv.Value.AsString())
		}
	}
}

func TestResourceAttributesIgnoreCollections(t *testing.T) {
	assert.Empty(t, resourceAttributes("/api/documents", nil))
	assert.Empty(t, resourceAttributes("/health", gin.Params{{Key: "id", Value: "1"}}))
}
