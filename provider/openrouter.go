package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tluyben/lawyeredup/schema"
)

// OpenRouter calls an OpenAI-compatible chat completions endpoint
type OpenRouter struct {
	Key     string
	Model   string
	BaseURL string
	Referer string
	Title   string
	Client  *http.Client
}

type (
	openRouterRequest struct {
		Model          string          `json:"model"`
		Messages       []message       `json:"messages"`
		ResponseFormat *responseFormat `json:"response_format,omitempty"`
	}

	message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	responseFormat struct {
		Type string `json:"type"`
	}
)

const (
	DefaultOpenRouterURL   = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel = "openai/gpt-4o-mini"
	DefaultHTTPTimeout     = 60 * time.Second
)

// NewOpenRouter creates an OpenRouter provider with the default endpoint
func NewOpenRouter(key, model string, timeout time.Duration) (*OpenRouter, error) {
	if key == "" {
		return nil, fmt.Errorf("openrouter: %w", ErrMissingAPIKey)
	}
	if model == "" {
		model = DefaultOpenRouterModel
	}
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &OpenRouter{
		Key:     key,
		Model:   model,
		BaseURL: DefaultOpenRouterURL,
		Referer: "https://github.com/tluyben/lawyeredup",
		Title:   "LawyeredUp",
		Client:  &http.Client{Timeout: timeout},
	}, nil
}

// Generate sends one chat completion request
func (p *OpenRouter) Generate(ctx context.Context, req *Request) (string, error) {
	model := req.Model
	if model == "" {
		model = p.Model
	}
	body, err := json.Marshal(openRouterRequest{
		Model: model,
		Messages: []message{
			{Role: "system", Content: SystemPrompt(req)},
			{Role: "user", Content: req.Prompt},
		},
		ResponseFormat: formatFor(req),
	})
	if err != nil {
		return "", fmt.Errorf("error marshaling request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx,
		http.MethodPost, p.BaseURL+"/chat/completions", bytes.NewReader(body),
	)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.Key)
	if p.Referer != "" {
		httpReq.Header.Set("HTTP-Referer", p.Referer)
	}
	if p.Title != "" {
		httpReq.Header.Set("X-Title", p.Title)
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("error sending request to OpenRouter: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenRouter API returned status %d: %s",
			resp.StatusCode, abbreviate(string(data), 200),
		)
	}
	if !gjson.ValidBytes(data) {
		return "", fmt.Errorf("openrouter: %w", ErrMalformedResponse)
	}

	content := gjson.GetBytes(data, "choices.0.message.content")
	if !content.Exists() {
		if msg := gjson.GetBytes(data, "error.message"); msg.Exists() {
			return "", fmt.Errorf("OpenRouter error: %s", msg.String())
		}
		return "", fmt.Errorf("openrouter: %w", ErrEmptyResponse)
	}
	return content.String(), nil
}

// formatFor requests JSON mode only for object outputs. JSON mode forces a
// root object, so array outputs rely on the system prompt alone
func formatFor(req *Request) *responseFormat {
	if req.Output != nil && req.Output.Type != schema.Object {
		return nil
	}
	return &responseFormat{Type: "json_object"}
}
