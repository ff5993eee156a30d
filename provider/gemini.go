package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"
)

// Gemini generates responses with Google's Gemini API
type Gemini struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

const DefaultGeminiModel = "gemini-2.0-flash"

// NewGemini creates a Gemini provider
func NewGemini(
	ctx context.Context, key, model string, maxTokens int32, timeout time.Duration,
) (*Gemini, error) {
	if key == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Generate asks Gemini for a JSON response to the rendered prompt
func (p *Gemini) Generate(ctx context.Context, req *Request) (string, error) {
	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(
			SystemPrompt(req), genai.RoleUser,
		),
		ResponseMIMEType: "application/json",
	}
	if p.maxTokens > 0 {
		cfg.MaxOutputTokens = p.maxTokens
	}

	resp, err := p.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)},
		cfg,
	)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return text, nil
}
