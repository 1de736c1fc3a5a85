// Package chat routes chat-completion calls to the configured LLM backend.
// Callers only ever see extracted text or a classified error, never a
// backend-specific response shape.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dreambot/internal/infra"
)

const requestTimeout = 30 * time.Second

// Options tunes a single completion call. Zero values fall back to the
// backend defaults (temperature 0.3, 1024 max tokens).
type Options struct {
	Temperature float64
	MaxTokens   int
}

func (o Options) temperature() float64 {
	if o.Temperature == 0 {
		return 0.3
	}
	return o.Temperature
}

func (o Options) maxTokens() int {
	if o.MaxTokens == 0 {
		return 1024
	}
	return o.MaxTokens
}

// Result is the provider-neutral outcome of a completion call. Token counts
// are zero when the backend omits usage data.
type Result struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Client is the uniform chat-completion capability. One implementation per
// backend; selection happens once at startup, not per call.
type Client interface {
	// Chat sends a system and user message and returns the raw model text.
	Chat(ctx context.Context, system, user string, opts Options) (*Result, error)
	// Model names the backend model identifier, used for cost accounting.
	Model() string
}

// HTTPError is a non-2xx provider response. Hint is a best-effort
// human-readable extract from the error body.
type HTTPError struct {
	Provider string
	Status   int
	Hint     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s http %d: %s", e.Provider, e.Status, e.Hint)
}

// New resolves the configured backend. The provider value is validated by
// LoadConfig, so anything else here is a programming error.
func New(cfg *infra.Config, logger infra.Logger) (Client, error) {
	switch cfg.LLMProvider {
	case "openai":
		return NewOpenAIClient(OpenAIOptions{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
	case "yandex":
		return NewYandexClient(YandexOptions{
			APIKey:   cfg.YandexAPIKey,
			FolderID: cfg.YandexFolderID,
			ModelURI: cfg.YandexModel,
			BaseURL:  cfg.YandexBaseURL,
		})
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.LLMProvider)
	}
}

// errorHint pulls error.message out of a provider error body, falling back
// to a truncated snippet of the raw body.
func errorHint(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	snippet := string(body)
	if len(snippet) > 400 {
		snippet = snippet[:400]
	}
	return snippet
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}
