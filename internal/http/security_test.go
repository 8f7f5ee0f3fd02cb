package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResponseWriterForwardsFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	var _ http.Flusher = rw

	rw.Flush()
	if !rec.Flushed {
		t.Error("Flush should reach the underlying writer")
	}
}

func TestSecurityHeadersHandlerCanFlush(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	handler := srv.withSecurityHeaders(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("wrapped writer should implement http.Flusher")
		}
		f.Flush()
	})
	handler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if !rec.Flushed {
		t.Error("Flush inside the handler should reach the recorder")
	}
}
