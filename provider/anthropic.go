package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic generates responses with the Anthropic Messages API
type Anthropic struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	log       *slog.Logger
}

const (
	DefaultAnthropicModel     = "claude-sonnet-4-5"
	DefaultAnthropicMaxTokens = 4096
)

// NewAnthropic creates an Anthropic provider. SDK retries are disabled;
// a failed call surfaces to the caller as is
func NewAnthropic(
	key, model string, maxTokens int64, timeout time.Duration, log *slog.Logger,
) (*Anthropic, error) {
	if key == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
	}
	if model == "" {
		model = DefaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultAnthropicMaxTokens
	}
	if log == nil {
		log = slog.Default()
	}
	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	return &Anthropic{
		client:    anthropic.NewClient(opts...),
		model:     anthropic.Model(model),
		maxTokens: maxTokens,
		log:       log,
	}, nil
}

// Generate sends the prompt to Claude and returns the response text
func (p *Anthropic) Generate(ctx context.Context, req *Request) (string, error) {
	model := p.model
	if req.Model != "" {
		model = anthropic.Model(req.Model)
	}

	start := time.Now()
	p.log.Debug("anthropic call starting",
		slog.String("flow", req.Flow),
		slog.String("model", string(model)),
		slog.Int("prompt_len", len(req.Prompt)),
	)

	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: p.maxTokens,
		System: []anthropic.TextBlockParam{
			{Type: "text", Text: SystemPrompt(req)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})

	duration := time.Since(start)
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}
	p.log.Debug("anthropic call completed",
		slog.String("flow", req.Flow),
		slog.Duration("duration", duration),
		slog.String("stop_reason", string(msg.StopReason)),
	)

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("anthropic: %w", ErrEmptyResponse)
}
