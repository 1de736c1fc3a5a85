package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

type YandexOptions struct {
	APIKey     string
	FolderID   string
	ModelURI   string
	BaseURL    string
	HTTPClient *http.Client
}

// YandexClient talks to the Yandex foundation-models completion endpoint.
type YandexClient struct {
	apiKey   string
	modelURI string
	baseURL  string
	client   *http.Client
}

type yandexCompletionRequest struct {
	ModelURI          string              `json:"modelUri"`
	CompletionOptions yandexOptionsBody   `json:"completionOptions"`
	Messages          []yandexMessageBody `json:"messages"`
}

type yandexOptionsBody struct {
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

type yandexMessageBody struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// yandexTokenCount tolerates the API encoding counts as JSON strings.
type yandexTokenCount int

func (c *yandexTokenCount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		*c = 0
		return nil
	}
	*c = yandexTokenCount(n)
	return nil
}

type yandexCompletionResponse struct {
	Result struct {
		Alternatives []struct {
			Message struct {
				Text string `json:"text"`
			} `json:"message"`
		} `json:"alternatives"`
		Usage struct {
			InputTextTokens  yandexTokenCount `json:"inputTextTokens"`
			CompletionTokens yandexTokenCount `json:"completionTokens"`
		} `json:"usage"`
	} `json:"result"`
}

func NewYandexClient(opts YandexOptions) (*YandexClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("yandex api key is required")
	}
	modelURI := strings.TrimSpace(opts.ModelURI)
	if modelURI == "" && opts.FolderID != "" {
		modelURI = fmt.Sprintf("gpt://%s/yandexgpt-lite/latest", opts.FolderID)
	}
	if !strings.HasPrefix(modelURI, "gpt://") {
		return nil, errors.New("yandex model uri is not set correctly")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://llm.api.cloud.yandex.net"
	}
	client := opts.HTTPClient
	if client == nil {
		client = newHTTPClient()
	}
	return &YandexClient{
		apiKey:   strings.TrimSpace(opts.APIKey),
		modelURI: modelURI,
		baseURL:  baseURL,
		client:   client,
	}, nil
}

func (y *YandexClient) Model() string { return y.modelURI }

func (y *YandexClient) Chat(ctx context.Context, system, user string, opts Options) (*Result, error) {
	payload := yandexCompletionRequest{
		ModelURI: y.modelURI,
		CompletionOptions: yandexOptionsBody{
			Stream:      false,
			Temperature: opts.temperature(),
			MaxTokens:   opts.maxTokens(),
		},
		Messages: []yandexMessageBody{
			{Role: "system", Text: system},
			{Role: "user", Text: user},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	endpoint := y.baseURL + "/foundationModels/v1/completion"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Api-Key "+y.apiKey)

	resp, err := y.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("yandex request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &HTTPError{Provider: "yandex", Status: resp.StatusCode, Hint: errorHint(raw)}
	}

	var out yandexCompletionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.New("yandex returned non-JSON")
	}
	if len(out.Result.Alternatives) == 0 {
		return nil, errors.New("yandex: empty response")
	}
	text := strings.TrimSpace(out.Result.Alternatives[0].Message.Text)
	if text == "" {
		return nil, errors.New("yandex: empty response")
	}
	return &Result{
		Text:             text,
		PromptTokens:     int(out.Result.Usage.InputTextTokens),
		CompletionTokens: int(out.Result.Usage.CompletionTokens),
	}, nil
}

var _ Client = (*YandexClient)(nil)
