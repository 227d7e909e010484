package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	RequestIDMiddleware(handler).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if seen == "" {
		t.Fatal("request ID missing from context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("X-Request-ID header = %q, context = %q", got, seen)
	}
}

func TestGetRequestIDEmpty(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID on bare context = %q, want empty", got)
	}
}

func TestLoggingMiddlewareEmitsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddLogField(r.Context(), "operation", "analyze")
		AddError(r.Context(), errors.New("boom"))
		w.WriteHeader(http.StatusBadGateway)
	})

	rec := httptest.NewRecorder()
	LoggingMiddleware(logger)(handler).ServeHTTP(rec, httptest.NewRequest("POST", "/v1/analyze", nil))

	out := buf.String()
	for _, want := range []string{"request started", "request completed", `"operation":"analyze"`, `"error":"boom"`, `"status":502`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestAddLogFieldWithoutMiddleware(t *testing.T) {
	// Must not panic on a context the middleware never touched.
	AddLogField(context.Background(), "k", "v")
	AddError(context.Background(), errors.New("x"))
}

func TestTimeoutMiddlewareSetsDeadline(t *testing.T) {
	var hadDeadline bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadDeadline = r.Context().Deadline()
	})

	rec := httptest.NewRecorder()
	TimeoutMiddleware(time.Second)(handler).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if !hadDeadline {
		t.Error("handler context has no deadline")
	}
}
