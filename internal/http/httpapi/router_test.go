package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"dreambot/internal/auth"
	"dreambot/internal/http/handlers"
	"dreambot/internal/llm"
	"dreambot/internal/metrics"
	"dreambot/internal/ratelimit"
	"dreambot/internal/usage"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zerolog.Nop()
	registry := llm.NewPromptRegistry(logger)
	registry.Register("interpret_system", "you interpret dreams")
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), auth.NewAdmins(nil), logger)
	app := handlers.NewApp(nil, nil, usage.NewTracker(10, 80, 30, logger), limiter, registry, metrics.New(), logger)
	return NewRouter(app, "ops-secret", logger)
}

func get(router http.Handler, path, token string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	router := newTestRouter(t)

	if rec := get(router, "/v1/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	rec := get(router, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics exposition missing runtime collectors")
	}
}

func TestOpsRequireAdminToken(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/ops/budget", "/ops/usage/export", "/ops/prompts", "/ops/ratelimit/42"} {
		if rec := get(router, path, ""); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: status = %d", path, rec.Code)
		}
		if rec := get(router, path, "wrong"); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s with bad token: status = %d", path, rec.Code)
		}
	}

	if rec := get(router, "/ops/budget", "ops-secret"); rec.Code != http.StatusOK {
		t.Fatalf("budget with token: status = %d", rec.Code)
	}
}

func TestOpsEndpointsServeState(t *testing.T) {
	router := newTestRouter(t)

	rec := get(router, "/ops/budget", "ops-secret")
	if !strings.Contains(rec.Body.String(), `"dailyLimit":10`) {
		t.Errorf("budget body = %s", rec.Body.String())
	}

	rec = get(router, "/ops/ratelimit/42", "ops-secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("ratelimit stats status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"interpret"`) {
		t.Errorf("ratelimit body = %s", rec.Body.String())
	}

	rec = get(router, "/ops/prompts", "ops-secret")
	if !strings.Contains(rec.Body.String(), `"interpret_system"`) {
		t.Errorf("prompts body = %s", rec.Body.String())
	}

	if rec := get(router, "/ops/usage/daily?date=bogus", "ops-secret"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d", rec.Code)
	}
	if rec := get(router, "/ops/usage/daily", "ops-secret"); rec.Code != http.StatusNotFound {
		t.Errorf("empty day status = %d", rec.Code)
	}
}
