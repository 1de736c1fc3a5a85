package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"dreambot/internal/domain"
)

type planCall struct {
	tgID  string
	plan  string
	until time.Time
}

type stubUsers struct {
	calls []planCall
}

func (s *stubUsers) GetOrCreateByTgID(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}
func (s *stubUsers) GetByID(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}
func (s *stubUsers) EnsureMonthlyReset(context.Context, string, time.Time) error { return nil }
func (s *stubUsers) IncMonthlyCount(context.Context, string) error               { return nil }
func (s *stubUsers) SetPlan(_ context.Context, tgID, plan string, until time.Time) error {
	s.calls = append(s.calls, planCall{tgID: tgID, plan: plan, until: until})
	return nil
}
func (s *stubUsers) SetReportMarkers(context.Context, string, time.Time, string) error { return nil }
func (s *stubUsers) ListAll(context.Context) ([]domain.User, error)                    { return nil, nil }

func newWebhookApp(users *stubUsers) *App {
	return &App{Users: users, Logger: zerolog.Nop()}
}

func postWebhook(t *testing.T, app *App, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook/yookassa", strings.NewReader(body))
	app.YooKassaWebhook(rec, req)
	return rec
}

func TestYooKassaWebhookUpgradesPlan(t *testing.T) {
	users := &stubUsers{}
	app := newWebhookApp(users)

	rec := postWebhook(t, app, `{"object":{"status":"succeeded","description":"Dream subscription uid:424242 plan:month"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(users.calls) != 1 {
		t.Fatalf("SetPlan calls = %d", len(users.calls))
	}
	call := users.calls[0]
	if call.tgID != "424242" || call.plan != "paid" {
		t.Fatalf("call = %+v", call)
	}
	wantUntil := time.Now().AddDate(0, 1, 0)
	if call.until.Before(wantUntil.Add(-time.Minute)) || call.until.After(wantUntil.Add(time.Minute)) {
		t.Fatalf("until = %v, want about %v", call.until, wantUntil)
	}
}

func TestYooKassaWebhookPeriods(t *testing.T) {
	for period, delta := range map[string]time.Time{
		"week": time.Now().AddDate(0, 0, 7),
		"year": time.Now().AddDate(1, 0, 0),
	} {
		users := &stubUsers{}
		postWebhook(t, newWebhookApp(users), `{"object":{"status":"succeeded","description":"uid:1 plan:`+period+`"}}`)
		if len(users.calls) != 1 {
			t.Fatalf("%s: SetPlan calls = %d", period, len(users.calls))
		}
		got := users.calls[0].until
		if got.Before(delta.Add(-time.Minute)) || got.After(delta.Add(time.Minute)) {
			t.Errorf("%s: until = %v, want about %v", period, got, delta)
		}
	}
}

func TestYooKassaWebhookIgnoresNonSucceeded(t *testing.T) {
	users := &stubUsers{}
	rec := postWebhook(t, newWebhookApp(users), `{"object":{"status":"pending","description":"uid:1 plan:month"}}`)
	if rec.Code != http.StatusOK || len(users.calls) != 0 {
		t.Fatalf("status = %d, calls = %d", rec.Code, len(users.calls))
	}
}

func TestYooKassaWebhookAlwaysAnswers200(t *testing.T) {
	users := &stubUsers{}
	app := newWebhookApp(users)

	for _, body := range []string{
		`not json at all`,
		`{"object":{"status":"succeeded","description":"no markers here"}}`,
		`{"object":{"status":"succeeded","description":"uid:5 plan:decade"}}`,
	} {
		if rec := postWebhook(t, app, body); rec.Code != http.StatusOK {
			t.Errorf("body %q: status = %d", body, rec.Code)
		}
	}
	if len(users.calls) != 0 {
		t.Fatalf("unparseable events upgraded a plan: %+v", users.calls)
	}
}
