package provider

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/tluyben/lawyeredup/schema"
)

type (
	// Provider turns a rendered prompt into raw model output. Implementations
	// make exactly one round trip per call and never retry
	Provider interface {
		Generate(ctx context.Context, req *Request) (string, error)
	}

	// Request is what a flow sends to a provider
	Request struct {
		Flow   string
		Model  string
		System string
		Prompt string
		Output *schema.Node

		// OutputSchema is the JSON Schema rendering of Output
		OutputSchema []byte
	}

	// Func adapts a plain function to the Provider interface
	Func func(ctx context.Context, req *Request) (string, error)
)

var (
	ErrEmptyResponse     = errors.New("empty response from provider")
	ErrMalformedResponse = errors.New("malformed response from provider")
	ErrMissingAPIKey     = errors.New("provider API key is required")
)

var codeBlock = regexp.MustCompile("(?s)```(\\w+)?\\n(.*?)```")

// Generate calls f(ctx, req)
func (f Func) Generate(ctx context.Context, req *Request) (string, error) {
	return f(ctx, req)
}

// Instructions is appended to a flow's system prompt so any provider knows
// the response must be bare JSON matching the schema
func Instructions(req *Request) string {
	var sb strings.Builder
	sb.WriteString("Respond with a single JSON value and nothing else. ")
	sb.WriteString("It must conform to this JSON Schema:\n")
	sb.Write(req.OutputSchema)
	return sb.String()
}

// SystemPrompt joins the flow's own system prompt with Instructions
func SystemPrompt(req *Request) string {
	if req.System == "" {
		return Instructions(req)
	}
	return req.System + "\n\n" + Instructions(req)
}

// ExtractCodeBlock returns the content of the first fenced code block in
// output, or output itself when there is none
func ExtractCodeBlock(output string) (lang string, content string) {
	m := codeBlock.FindStringSubmatch(output)
	if len(m) > 0 {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	return "", strings.TrimSpace(output)
}

// Decode parses raw model output into generic JSON values: objects become
// map[string]any, arrays []any and numbers float64
func Decode(raw string) (any, error) {
	_, content := ExtractCodeBlock(raw)
	if content == "" {
		return nil, ErrEmptyResponse
	}
	if !gjson.Valid(content) {
		return nil, fmt.Errorf("%w: not valid JSON: %s",
			ErrMalformedResponse, abbreviate(content, 80),
		)
	}
	return gjson.Parse(content).Value(), nil
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
