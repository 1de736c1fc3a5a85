// Package llm composes the provider router, retry policy and schema
// validation into the four domain operations: interpret, follow-up answer,
// practice generation and report summary.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dreambot/internal/domain"
	"dreambot/internal/infra"
	"dreambot/internal/providers/chat"
)

// Operation names used in usage records, metrics and logs.
const (
	OpInterpret = "interpret"
	OpFollowup  = "followup"
	OpPractice  = "practice"
	OpReport    = "report"
)

// Fallback token estimates applied when a backend omits usage data, so cost
// accounting degrades to a rough guess instead of zero.
const (
	defaultPromptTokens     = 500
	defaultCompletionTokens = 700
)

// Usage describes one completed chat call for the cost tracker.
type Usage struct {
	Operation        string
	Model            string
	UserID           string
	CorrelationID    string
	PromptTokens     int
	CompletionTokens int
}

// UsageTracker receives one record per completed chat call.
type UsageTracker interface {
	Track(ctx context.Context, u Usage)
}

// Service runs the LLM operations against a single configured backend.
type Service struct {
	client  chat.Client
	tracker UsageTracker
	logger  infra.Logger

	interpretPrompt PromptVersion
	followupPrompt  PromptVersion
	practicePrompt  PromptVersion
	reportPrompt    PromptVersion
}

// NewService registers the operation prompts and wires the backend. tracker
// may be nil when cost accounting is not wanted (tests, CLI tools).
func NewService(client chat.Client, tracker UsageTracker, registry *PromptRegistry, logger infra.Logger) *Service {
	return &Service{
		client:          client,
		tracker:         tracker,
		logger:          logger,
		interpretPrompt: registry.Register(promptInterpret, interpretSystemPrompt()),
		followupPrompt:  registry.Register(promptFollowup, followupSystemPrompt()),
		practicePrompt:  registry.Register(promptPractice, practiceSystemPrompt()),
		reportPrompt:    registry.Register(promptReport, reportSystemPrompt()),
	}
}

// InterpretRequest carries everything the interpret prompt embeds.
type InterpretRequest struct {
	UserID         string
	CorrelationID  string
	Profile        domain.Profile
	DreamText      string
	UserSymbols    []string
	HistorySummary string
	WeekContext    string
}

type interpretPayload struct {
	Profile        domain.Profile `json:"profile"`
	DreamText      string         `json:"dream_text"`
	UserSymbols    []string       `json:"user_symbols,omitempty"`
	HistorySummary string         `json:"history_summary,omitempty"`
	WeekContext    string         `json:"week_context,omitempty"`
}

// InterpretResult is a validated interpretation plus the token counts the
// call consumed.
type InterpretResult struct {
	Interpretation *domain.Interpretation
	TokensIn       int
	TokensOut      int
}

// TextResult is the outcome of the free-text operations.
type TextResult struct {
	Text      string
	TokensIn  int
	TokensOut int
}

// InterpretDream runs the structured interpretation call. Transient provider
// failures are retried; parse and schema failures are terminal.
func (s *Service) InterpretDream(ctx context.Context, req InterpretRequest) (*InterpretResult, error) {
	payload, err := json.Marshal(interpretPayload{
		Profile:        req.Profile,
		DreamText:      req.DreamText,
		UserSymbols:    NormalizeSymbols(req.UserSymbols, domain.MaxSymbolsDetected),
		HistorySummary: req.HistorySummary,
		WeekContext:    req.WeekContext,
	})
	if err != nil {
		return nil, fmt.Errorf("encode interpret payload: %w", err)
	}

	log := s.opLogger(req.CorrelationID, OpInterpret, s.interpretPrompt)
	start := time.Now()

	res, err := chat.Retry(ctx, func(attempt int) (*InterpretResult, error) {
		out, err := s.client.Chat(ctx, s.interpretPrompt.Content, string(payload), chat.Options{Temperature: 0.35, MaxTokens: 900})
		if err != nil {
			return nil, err
		}
		obj, err := ExtractJSONObject(out.Text)
		if err != nil {
			return nil, err
		}
		interp, err := domain.DecodeInterpretation(obj)
		if err != nil {
			return nil, err
		}
		return &InterpretResult{
			Interpretation: interp,
			TokensIn:       tokensOr(out.PromptTokens, defaultPromptTokens),
			TokensOut:      tokensOr(out.CompletionTokens, defaultCompletionTokens),
		}, nil
	})
	if err != nil {
		log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("interpretation failed")
		return nil, err
	}

	s.track(ctx, req.UserID, req.CorrelationID, OpInterpret, res.TokensIn, res.TokensOut)
	log.Info().Dur("elapsed", time.Since(start)).Msg("interpretation ready")
	return res, nil
}

// FollowupRequest is one clarifying question about an interpreted dream.
type FollowupRequest struct {
	UserID        string
	CorrelationID string
	Profile       domain.Profile
	DreamText     string
	Question      string
}

// FollowupAnswer returns 2-5 sentences of free text. No schema is enforced;
// trimmed text is the contract.
func (s *Service) FollowupAnswer(ctx context.Context, req FollowupRequest) (*TextResult, error) {
	user := fmt.Sprintf("Dream:\n%s\n\nQuestion:\n%s", req.DreamText, req.Question)
	return s.textOperation(ctx, req.UserID, req.CorrelationID, OpFollowup, s.followupPrompt, user, chat.Options{Temperature: 0.3, MaxTokens: 300})
}

// PracticeRequest asks for a short practice grounded in one dream and its
// interpretation.
type PracticeRequest struct {
	UserID         string
	CorrelationID  string
	EntryText      string
	Interpretation string
}

// GeneratePractice returns a named practice with a few very short steps and
// one closing meaning line.
func (s *Service) GeneratePractice(ctx context.Context, req PracticeRequest) (*TextResult, error) {
	user := fmt.Sprintf("Dream text:\n%s\n\nInterpretation:\n%s\n\nLay the practice out as a list of steps with one closing line.", req.EntryText, req.Interpretation)
	return s.textOperation(ctx, req.UserID, req.CorrelationID, OpPractice, s.practicePrompt, user, chat.Options{Temperature: 0.6, MaxTokens: 220})
}

// ReportRequest carries the aggregate statistics a period report narrates.
type ReportRequest struct {
	UserID        string
	CorrelationID string
	PeriodDays    int
	DreamCount    int
	InterpCount   int
	MaxStreak     int
	TopSymbols    []SymbolCount
	Plan          string
	StressLevel   *int
	SleepGoal     string
	Chronotype    string
}

// ReportSummary narrates the period statistics. It never returns an error:
// when all attempts fail it degrades to a deterministic sentence built from
// the most frequent symbols.
func (s *Service) ReportSummary(ctx context.Context, req ReportRequest) *TextResult {
	desired := 4
	if req.Plan != "free" {
		desired = 7
	}

	lines := []string{
		fmt.Sprintf("Write a warm overview of the dreams from the last %d days.", req.PeriodDays),
		fmt.Sprintf("Dreams: %d. AI interpretations: %d. Longest streak: %d.", req.DreamCount, req.InterpCount, req.MaxStreak),
	}
	if len(req.TopSymbols) > 0 {
		parts := make([]string, len(req.TopSymbols))
		for i, sc := range req.TopSymbols {
			parts[i] = fmt.Sprintf("%s (%d)", sc.Symbol, sc.Count)
		}
		lines = append(lines, fmt.Sprintf("Top symbols: %s.", strings.Join(parts, ", ")))
	}
	if req.StressLevel != nil {
		lines = append(lines, fmt.Sprintf("Stress level: %d.", *req.StressLevel))
	}
	if req.SleepGoal != "" {
		lines = append(lines, fmt.Sprintf("Sleep goal: %s.", req.SleepGoal))
	}
	if req.Chronotype != "" {
		lines = append(lines, fmt.Sprintf("Chronotype: %s.", req.Chronotype))
	}
	lines = append(lines,
		fmt.Sprintf("Length: %d sentences. Poetic-mystical style, friendly tone. Tasteful emoji.", desired),
		"Close with one soft recommendation or practice.",
	)

	res, err := s.textOperation(ctx, req.UserID, req.CorrelationID, OpReport, s.reportPrompt, strings.Join(lines, "\n"), chat.Options{Temperature: 0.6, MaxTokens: 320})
	if err != nil {
		log := s.opLogger(req.CorrelationID, OpReport, s.reportPrompt)
		log.Warn().Err(err).Msg("report generation degraded to deterministic fallback")
		return &TextResult{Text: fallbackSummary(TopSymbols(req.TopSymbols, 2))}
	}
	return res
}

func (s *Service) textOperation(ctx context.Context, userID, correlationID, operation string, prompt PromptVersion, user string, opts chat.Options) (*TextResult, error) {
	log := s.opLogger(correlationID, operation, prompt)
	start := time.Now()

	res, err := chat.Retry(ctx, func(attempt int) (*TextResult, error) {
		out, err := s.client.Chat(ctx, prompt.Content, user, opts)
		if err != nil {
			return nil, err
		}
		return &TextResult{
			Text:      strings.TrimSpace(out.Text),
			TokensIn:  tokensOr(out.PromptTokens, defaultPromptTokens),
			TokensOut: tokensOr(out.CompletionTokens, defaultCompletionTokens),
		}, nil
	})
	if err != nil {
		log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("operation failed")
		return nil, err
	}

	s.track(ctx, userID, correlationID, operation, res.TokensIn, res.TokensOut)
	log.Info().Dur("elapsed", time.Since(start)).Msg("operation completed")
	return res, nil
}

func (s *Service) track(ctx context.Context, userID, correlationID, operation string, tokensIn, tokensOut int) {
	if s.tracker == nil {
		return
	}
	s.tracker.Track(ctx, Usage{
		Operation:        operation,
		Model:            s.client.Model(),
		UserID:           userID,
		CorrelationID:    correlationID,
		PromptTokens:     tokensIn,
		CompletionTokens: tokensOut,
	})
}

func (s *Service) opLogger(correlationID, operation string, prompt PromptVersion) infra.Logger {
	log := s.logger.With().
		Str("operation", operation).
		Str("prompt_version", prompt.Version).
		Logger()
	if correlationID != "" {
		log = infra.WithCorrelation(log, correlationID)
	}
	return log
}

// Model reports the backend model identifier used for every call.
func (s *Service) Model() string {
	return s.client.Model()
}

func tokensOr(n, fallback int) int {
	if n > 0 {
		return n
	}
	return fallback
}
