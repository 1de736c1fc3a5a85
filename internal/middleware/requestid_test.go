package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newChain(logger zerolog.Logger, handler http.Handler) http.Handler {
	return RequestID(logger)(Logger(handler))
}

func TestRequestIDEchoesHeaderAndBindsLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	var seen string
	h := newChain(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		zerolog.Ctx(r.Context()).Info().Msg("handling")
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	req.Header.Set("X-Request-ID", "corr-abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "corr-abc-123" {
		t.Fatalf("RequestIDFromContext = %q, want corr-abc-123", seen)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "corr-abc-123" {
		t.Fatalf("X-Request-ID response header = %q", got)
	}

	out := buf.String()
	if !strings.Contains(out, `"correlation_id":"corr-abc-123"`) {
		t.Fatalf("handler log missing correlation id: %s", out)
	}
	if !strings.Contains(out, "GET /v1/healthz 204") {
		t.Fatalf("access line missing method/path/status: %s", out)
	}
	// Both the handler line and the access line carry the same id.
	if strings.Count(out, `"correlation_id":"corr-abc-123"`) != 2 {
		t.Fatalf("expected correlation id on every line: %s", out)
	}
}

func TestRequestIDGeneratesWhenHeaderMissing(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	var seen string
	h := newChain(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ops/budget", nil))

	if seen == "" {
		t.Fatal("a request id should be minted when the header is absent")
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Fatalf("response header %q does not match context id %q", got, seen)
	}
	if !strings.Contains(buf.String(), `"correlation_id":"`+seen+`"`) {
		t.Fatalf("access line missing minted correlation id: %s", buf.String())
	}
}
