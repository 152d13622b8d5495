package logger

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGinMiddlewareLogsOutcomeAndUploadSize(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))

	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{
		ErrorClassifier: func(error) (string, string) { return "validation_error", "quota_exceeded" },
	}))
	r.POST("/api/documents", func(c *gin.Context) {
		_ = c.Error(errors.New("storage quota exceeded"))
		c.Status(http.StatusUnprocessableEntity)
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/api/documents", strings.NewReader(strings.Repeat("x", 2048)))
	req.Header.Set("X-Request-Id", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-Id"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 2)

	upload := entries[0]
	assert.Equal(t, zapcore.InfoLevel, upload.Level)
	fields := upload.ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "rejected", fields["outcome"])
	assert.Equal(t, "2.0 KiB", fields["upload_size"])
	assert.Equal(t, "quota_exceeded", fields["error_code"])

	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	assert.Equal(t, "ok", entries[1].ContextMap()["outcome"])
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", outcome(http.StatusCreated))
	assert.Equal(t, "rejected", outcome(http.StatusTooEarly))
	assert.Equal(t, "failed", outcome(http.StatusBadGateway))
}
