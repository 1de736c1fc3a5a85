package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsExposition(t *testing.T) {
	m := New()

	m.ObserveLLMCall("interpret", "gpt-4o-mini", 1200*time.Millisecond, nil)
	m.ObserveLLMCall("interpret", "gpt-4o-mini", 30*time.Second, errors.New("boom"))
	m.TrackInterpretation("free", "success")
	m.TrackReport("paid", "7d")
	m.TrackBlockedReport("free", "free_exhausted_this_month")
	m.TrackLLMCost("interpret", "gpt-4o-mini", 0.0021)
	m.TrackRateLimit("interpret", "free")
	m.TrackError("schema_validation", "interpret")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`llm_calls_total{model="gpt-4o-mini",operation="interpret",status="success"} 1`,
		`llm_calls_total{model="gpt-4o-mini",operation="interpret",status="error"} 1`,
		"llm_latency_seconds_bucket",
		`interpretations_total{plan="free",status="success"} 1`,
		`reports_total{plan="paid",type="7d"} 1`,
		`reports_blocked_quota_total{plan="free",reason="free_exhausted_this_month"} 1`,
		`rate_limit_hits_total{feature="interpret",user_plan="free"} 1`,
		`errors_total{error_type="schema_validation",operation="interpret"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestSeparateInstancesAreIsolated(t *testing.T) {
	a := New()
	b := New()
	a.TrackInterpretation("free", "success")

	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if strings.Contains(rec.Body.String(), `interpretations_total{plan="free"`) {
		t.Fatal("registries leaked between instances")
	}
}
