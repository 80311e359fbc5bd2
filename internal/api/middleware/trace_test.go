package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/studio-api/internal/api/shared"
	"github.com/phrazzld/studio-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
)

func TestTraceMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("uses chi request id", func(t *testing.T) {
		t.Parallel()

		var traceID string
		handler := chimw.RequestID(TraceMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)))(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				traceID = shared.GetTraceID(r.Context())
				assert.Equal(t, chimw.GetReqID(r.Context()), traceID)
			}),
		))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(chimw.RequestIDHeader, "upstream-42")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "upstream-42", traceID)
		assert.Equal(t, "upstream-42", w.Header().Get("X-Trace-Id"))
	})

	t.Run("generates an id and logs completion", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

		var traceID string
		handler := TraceMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID = shared.GetTraceID(r.Context())
			logger.FromContext(r.Context()).Info("handling")
			w.WriteHeader(http.StatusTeapot)
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

		assert.Len(t, traceID, 32)
		assert.Equal(t, traceID, w.Header().Get("X-Trace-Id"))
		assert.Contains(t, buf.String(), `"msg":"handling"`)
		assert.Contains(t, buf.String(), `"msg":"request completed"`)
		assert.Contains(t, buf.String(), `"status":418`)
		assert.Contains(t, buf.String(), traceID)
	})
}
