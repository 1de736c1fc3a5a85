package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"dreambot/internal/domain"
	"dreambot/internal/providers/chat"
)

const validInterpretationJSON = `{
	"short_title": "The silver river",
	"symbols_detected": ["river", "bird"],
	"barnum_insight": "Something in you is quietly shifting.",
	"esoteric_interpretation": "The river carries what you no longer need to hold.",
	"reflective_question": "What are you ready to let drift away?",
	"gentle_advice": ["Write one line before sleep."]
}`

type fakeClient struct {
	calls     int
	responses []func() (*chat.Result, error)

	lastSystem string
	lastUser   string
	lastOpts   chat.Options
}

func (f *fakeClient) Chat(_ context.Context, system, user string, opts chat.Options) (*chat.Result, error) {
	f.lastSystem, f.lastUser, f.lastOpts = system, user, opts
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.calls++
	return f.responses[idx]()
}

func (f *fakeClient) Model() string { return "gpt-4o-mini" }

type fakeTracker struct {
	records []Usage
}

func (f *fakeTracker) Track(_ context.Context, u Usage) {
	f.records = append(f.records, u)
}

func ok(text string, in, out int) func() (*chat.Result, error) {
	return func() (*chat.Result, error) {
		return &chat.Result{Text: text, PromptTokens: in, CompletionTokens: out}, nil
	}
}

func unavailable() (*chat.Result, error) {
	return nil, &chat.HTTPError{Provider: "openai", Status: 503, Hint: "overloaded"}
}

func newTestService(client chat.Client, tracker UsageTracker) *Service {
	return NewService(client, tracker, NewPromptRegistry(zerolog.Nop()), zerolog.Nop())
}

func TestInterpretDreamRetriesTransientFailures(t *testing.T) {
	client := &fakeClient{responses: []func() (*chat.Result, error){
		unavailable,
		unavailable,
		ok(validInterpretationJSON, 400, 250),
	}}
	tracker := &fakeTracker{}
	svc := newTestService(client, tracker)

	res, err := svc.InterpretDream(context.Background(), InterpretRequest{
		UserID:    "u1",
		Profile:   domain.Profile{Timezone: "UTC", Tone: "poetic", EsotericaLevel: 50},
		DreamText: "I crossed a silver river.",
	})
	if err != nil {
		t.Fatalf("InterpretDream: %v", err)
	}
	if client.calls != 3 {
		t.Fatalf("calls = %d, want 3", client.calls)
	}
	if res.Interpretation.ShortTitle != "The silver river" {
		t.Fatalf("short title = %q", res.Interpretation.ShortTitle)
	}
	if res.TokensIn != 400 || res.TokensOut != 250 {
		t.Fatalf("tokens = %d/%d", res.TokensIn, res.TokensOut)
	}
	if len(tracker.records) != 1 {
		t.Fatalf("tracked %d records, want 1", len(tracker.records))
	}
	rec := tracker.records[0]
	if rec.Operation != OpInterpret || rec.Model != "gpt-4o-mini" || rec.UserID != "u1" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestInterpretDreamForwardsOptionsAndPayload(t *testing.T) {
	client := &fakeClient{responses: []func() (*chat.Result, error){ok(validInterpretationJSON, 1, 1)}}
	svc := newTestService(client, nil)

	_, err := svc.InterpretDream(context.Background(), InterpretRequest{
		Profile:     domain.Profile{Timezone: "Europe/Moscow", Tone: "poetic", EsotericaLevel: 50},
		DreamText:   "a dream",
		UserSymbols: []string{"River", "river", "bird"},
	})
	if err != nil {
		t.Fatalf("InterpretDream: %v", err)
	}
	if client.lastOpts.Temperature != 0.35 || client.lastOpts.MaxTokens != 900 {
		t.Fatalf("options = %+v", client.lastOpts)
	}
	if !strings.Contains(client.lastSystem, "short_title") {
		t.Fatal("system prompt does not demand the schema")
	}
	if !strings.Contains(client.lastUser, `"dream_text":"a dream"`) {
		t.Fatalf("payload = %q", client.lastUser)
	}
	// The duplicate symbol must have been deduped before prompting.
	if strings.Count(client.lastUser, "iver") != 1 {
		t.Fatalf("symbols not deduped: %q", client.lastUser)
	}
}

func TestInterpretDreamSchemaFailureIsTerminal(t *testing.T) {
	client := &fakeClient{responses: []func() (*chat.Result, error){
		ok(`{"short_title":"only a title"}`, 1, 1),
	}}
	tracker := &fakeTracker{}
	svc := newTestService(client, tracker)

	_, err := svc.InterpretDream(context.Background(), InterpretRequest{DreamText: "x"})
	var schemaErr *domain.SchemaValidationError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("want SchemaValidationError, got %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("calls = %d, want 1 (schema errors must not retry)", client.calls)
	}
	if len(tracker.records) != 0 {
		t.Fatal("failed call must not be tracked")
	}
}

func TestInterpretDreamSalvagesWrappedJSON(t *testing.T) {
	client := &fakeClient{responses: []func() (*chat.Result, error){
		ok("Here is the reading:\n"+validInterpretationJSON+"\nSleep well.", 1, 1),
	}}
	svc := newTestService(client, nil)

	res, err := svc.InterpretDream(context.Background(), InterpretRequest{DreamText: "x"})
	if err != nil {
		t.Fatalf("InterpretDream: %v", err)
	}
	if len(res.Interpretation.SymbolsDetected) != 2 {
		t.Fatalf("symbols = %v", res.Interpretation.SymbolsDetected)
	}
}

func TestFollowupAnswerUsesTokenDefaultsWhenUsageMissing(t *testing.T) {
	client := &fakeClient{responses: []func() (*chat.Result, error){ok("A short poetic answer.", 0, 0)}}
	tracker := &fakeTracker{}
	svc := newTestService(client, tracker)

	res, err := svc.FollowupAnswer(context.Background(), FollowupRequest{
		UserID:    "u1",
		DreamText: "the dream",
		Question:  "what does the river mean?",
	})
	if err != nil {
		t.Fatalf("FollowupAnswer: %v", err)
	}
	if res.Text != "A short poetic answer." {
		t.Fatalf("text = %q", res.Text)
	}
	if res.TokensIn != 500 || res.TokensOut != 700 {
		t.Fatalf("token defaults not applied: %d/%d", res.TokensIn, res.TokensOut)
	}
	if client.lastOpts.Temperature != 0.3 || client.lastOpts.MaxTokens != 300 {
		t.Fatalf("options = %+v", client.lastOpts)
	}
	if !strings.Contains(client.lastUser, "what does the river mean?") {
		t.Fatalf("user prompt = %q", client.lastUser)
	}
}

func TestGeneratePracticeOptions(t *testing.T) {
	client := &fakeClient{responses: []func() (*chat.Result, error){ok("River practice\n1. breathe", 10, 20)}}
	svc := newTestService(client, nil)

	res, err := svc.GeneratePractice(context.Background(), PracticeRequest{
		EntryText:      "the dream",
		Interpretation: "the reading",
	})
	if err != nil {
		t.Fatalf("GeneratePractice: %v", err)
	}
	if res.Text == "" {
		t.Fatal("empty practice text")
	}
	if client.lastOpts.Temperature != 0.6 || client.lastOpts.MaxTokens != 220 {
		t.Fatalf("options = %+v", client.lastOpts)
	}
}

func TestReportSummaryFallsBackDeterministically(t *testing.T) {
	client := &fakeClient{responses: []func() (*chat.Result, error){unavailable}}
	tracker := &fakeTracker{}
	svc := newTestService(client, tracker)

	res := svc.ReportSummary(context.Background(), ReportRequest{
		PeriodDays: 7,
		TopSymbols: []SymbolCount{{"river", 3}, {"fog", 2}, {"bird", 1}},
		Plan:       "free",
	})
	if client.calls != 3 {
		t.Fatalf("calls = %d, want 3", client.calls)
	}
	if !strings.Contains(res.Text, "river") || !strings.Contains(res.Text, "fog") {
		t.Fatalf("fallback = %q", res.Text)
	}
	if len(tracker.records) != 0 {
		t.Fatal("fallback must not be tracked as a completed call")
	}
}

func TestReportSummaryPlanControlsLength(t *testing.T) {
	client := &fakeClient{responses: []func() (*chat.Result, error){ok("A calm week ✨", 10, 20)}}
	svc := newTestService(client, nil)

	_ = svc.ReportSummary(context.Background(), ReportRequest{PeriodDays: 30, Plan: "paid"})
	if !strings.Contains(client.lastUser, "Length: 7 sentences") {
		t.Fatalf("paid prompt = %q", client.lastUser)
	}

	_ = svc.ReportSummary(context.Background(), ReportRequest{PeriodDays: 30, Plan: "free"})
	if !strings.Contains(client.lastUser, "Length: 4 sentences") {
		t.Fatalf("free prompt = %q", client.lastUser)
	}
}
