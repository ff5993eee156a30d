package provider_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tluyben/lawyeredup/provider"
	"github.com/tluyben/lawyeredup/schema"
)

func TestExtractCodeBlock(t *testing.T) {
	lang, content := provider.ExtractCodeBlock(
		"Here you go:\n```json\n{\"a\": 1}\n```\nthanks",
	)
	assert.Equal(t, "json", lang)
	assert.Equal(t, `{"a": 1}`, content)

	lang, content = provider.ExtractCodeBlock("  {\"a\": 1}\n")
	assert.Equal(t, "", lang)
	assert.Equal(t, `{"a": 1}`, content)
}

func TestDecode(t *testing.T) {
	v, err := provider.Decode("```\n{\"risk_score\": 40, \"tags\": [\"a\"]}\n```")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"risk_score": 40.0,
		"tags":       []any{"a"},
	}, v)

	v, err = provider.Decode("[]")
	require.NoError(t, err)
	assert.Equal(t, []any{}, v)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := provider.Decode("I think the clause is fine.")
	assert.True(t, errors.Is(err, provider.ErrMalformedResponse))

	_, err = provider.Decode("   ")
	assert.True(t, errors.Is(err, provider.ErrEmptyResponse))
}

func TestSystemPrompt(t *testing.T) {
	req := &provider.Request{
		System:       "You are a legal simplifier.",
		OutputSchema: []byte(`{"type":"object"}`),
	}
	sys := provider.SystemPrompt(req)
	assert.Contains(t, sys, "You are a legal simplifier.")
	assert.Contains(t, sys, `{"type":"object"}`)

	req.System = ""
	assert.Equal(t, provider.Instructions(req), provider.SystemPrompt(req))
}

func TestFunc(t *testing.T) {
	var got *provider.Request
	p := provider.Func(func(_ context.Context, req *provider.Request) (string, error) {
		got = req
		return "{}", nil
	})
	res, err := p.Generate(context.Background(), &provider.Request{Flow: "f"})
	require.NoError(t, err)
	assert.Equal(t, "{}", res)
	assert.Equal(t, "f", got.Flow)
}

func TestMissingKeys(t *testing.T) {
	_, err := provider.NewOpenRouter("", "m", 0)
	assert.True(t, errors.Is(err, provider.ErrMissingAPIKey))

	_, err = provider.NewAnthropic("", "m", 0, 0, nil)
	assert.True(t, errors.Is(err, provider.ErrMissingAPIKey))

	_, err = provider.NewGemini(context.Background(), "", "m", 0, 0)
	assert.True(t, errors.Is(err, provider.ErrMissingAPIKey))
}

func testOpenRouter(t *testing.T, h http.HandlerFunc) *provider.OpenRouter {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	p, err := provider.NewOpenRouter("secret", "low-model", time.Second)
	require.NoError(t, err)
	p.BaseURL = srv.URL
	return p
}

func TestOpenRouterGenerate(t *testing.T) {
	var body map[string]any
	p := testOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		_, _ = w.Write([]byte(
			`{"choices":[{"message":{"content":"{\"summary\":\"ok\"}"}}]}`,
		))
	})

	out, err := schema.MarshalJSONSchema(schema.ObjectOf(
		schema.Required("summary", schema.StringOf("")),
	))
	require.NoError(t, err)

	res, err := p.Generate(context.Background(), &provider.Request{
		Flow:         "summarize-document",
		System:       "sys",
		Prompt:       "Contract text: \"...\"",
		OutputSchema: out,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, res)

	assert.Equal(t, "low-model", body["model"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
	assert.Equal(t, "Contract text: \"...\"", msgs[1].(map[string]any)["content"])
}

func TestOpenRouterModelOverride(t *testing.T) {
	var body map[string]any
	p := testOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"[]"}}]}`))
	})
	_, err := p.Generate(context.Background(), &provider.Request{
		Model: "high-model",
	})
	require.NoError(t, err)
	assert.Equal(t, "high-model", body["model"])
}

func TestOpenRouterResponseFormat(t *testing.T) {
	var body map[string]any
	p := testOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		body = nil
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"[]"}}]}`))
	})

	conflicts := schema.ArrayOf(schema.ObjectOf(
		schema.Required("conflict", schema.StringOf("")),
	))
	res, err := p.Generate(context.Background(), &provider.Request{
		Flow:   "compare-documents",
		Output: conflicts,
	})
	require.NoError(t, err)
	assert.Equal(t, "[]", res)
	assert.NotContains(t, body, "response_format")

	_, err = p.Generate(context.Background(), &provider.Request{
		Output: schema.ObjectOf(schema.Required("summary", schema.StringOf(""))),
	})
	require.NoError(t, err)
	assert.Equal(t,
		map[string]any{"type": "json_object"}, body["response_format"],
	)
}

func TestOpenRouterErrors(t *testing.T) {
	p := testOpenRouter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	})
	_, err := p.Generate(context.Background(), &provider.Request{})
	assert.ErrorContains(t, err, "429")

	p = testOpenRouter(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"no credits"}}`))
	})
	_, err = p.Generate(context.Background(), &provider.Request{})
	assert.ErrorContains(t, err, "no credits")

	p = testOpenRouter(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	_, err = p.Generate(context.Background(), &provider.Request{})
	assert.True(t, errors.Is(err, provider.ErrMalformedResponse))
}

func TestOpenRouterCancellation(t *testing.T) {
	release := make(chan struct{})
	p := testOpenRouter(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Generate(ctx, &provider.Request{})
	assert.True(t, errors.Is(err, context.Canceled))
}
