// Package llm summarizes articles and extracts structured search results
// through langchaingo chat models.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"

	"github.com/helixir/integrations-worker/internal/observability"
)

// Operation names used as metrics labels.
const (
	opSummarize      = "summarize"
	opExtractResults = "extract_results"
)

const (
	summarizePrompt = "Summarize this article in 2-3 concise sentences:\n\n"

	extractionSystemPrompt = `You extract structured data from the visible text of a web search results page.
Respond with a single JSON object of the form {"results":[{"title":"...","snippet":"..."}]} and nothing else.
Use null for a field you cannot read.`

	// maxPageText bounds the page text sent for extraction.
	maxPageText = 24000
)

// Option configures a Client.
type Option func(*Client)

// WithMetrics records request counts, latency and token usage.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// Client wraps a langchaingo model with the prompts used by the worker.
// It is safe for concurrent use if the model is.
type Client struct {
	model       llms.Model
	provider    string
	modelName   string
	temperature float64
	timeout     time.Duration
	metrics     *observability.Metrics
}

// NewClient wraps model. A zero timeout leaves calls bounded only by ctx.
func NewClient(model llms.Model, provider, modelName string, temperature float64, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		model:       model,
		provider:    provider,
		modelName:   modelName,
		temperature: temperature,
		timeout:     timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the provider name.
func (c *Client) Provider() string { return c.provider }

// Model returns the model identifier.
func (c *Client) Model() string { return c.modelName }

// Summarize returns a two to three sentence summary of content.
func (c *Client) Summarize(ctx context.Context, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("summarize: %w", ErrEmptyResponse)
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, summarizePrompt+content),
	}
	text, err := c.generate(ctx, opSummarize, messages)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return text, nil
}

// ExtractSearchResults asks the model for the top limit organic results in
// pageText. The returned records are untyped so callers can validate them.
func (c *Client) ExtractSearchResults(ctx context.Context, pageText string, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		limit = 3
	}
	pageText = truncateRunes(strings.TrimSpace(pageText), maxPageText)

	instruction := fmt.Sprintf(`Extract the top %d organic search results from this page.
For each result, get:
- title: The main headline/title text
- snippet: The description text below the title
Ignore ads, images, shopping results, and featured snippets.

Page text:
%s`, limit, pageText)

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, extractionSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, instruction),
	}
	text, err := c.generate(ctx, opExtractResults, messages, llms.WithJSONMode())
	if err != nil {
		return nil, fmt.Errorf("extract search results: %w", err)
	}

	records, err := ParseResults(text)
	if err != nil {
		return nil, fmt.Errorf("extract search results: %w", err)
	}
	return records, nil
}

func (c *Client) generate(ctx context.Context, op string, messages []llms.MessageContent, opts ...llms.CallOption) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	opts = append(opts, llms.WithTemperature(c.temperature))

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		apiErr := classifyError(c.provider, err)
		c.metrics.RecordLLMRequestFailed(op, c.modelName, apiErr.Type)
		return "", apiErr
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		c.metrics.RecordLLMRequestFailed(op, c.modelName, "empty")
		return "", ErrEmptyResponse
	}

	choice := resp.Choices[0]
	in, out := tokenUsage(choice.GenerationInfo)
	c.metrics.RecordLLMRequest(op, c.modelName, time.Since(start).Seconds(), in, out)

	return strings.TrimSpace(choice.Content), nil
}

// ParseResults decodes a model response holding {"results":[...]} or a bare
// array, optionally wrapped in a Markdown code fence.
func ParseResults(text string) ([]map[string]any, error) {
	body := stripCodeFence(text)

	var wrapped struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal([]byte(body), &wrapped); err == nil && wrapped.Results != nil {
		return wrapped.Results, nil
	}

	var bare []map[string]any
	if err := json.Unmarshal([]byte(body), &bare); err == nil {
		return bare, nil
	}

	// Fall back to the outermost object in surrounding prose.
	if start, end := strings.Index(body, "{"), strings.LastIndex(body, "}"); start >= 0 && end > start {
		if err := json.Unmarshal([]byte(body[start:end+1]), &wrapped); err == nil && wrapped.Results != nil {
			return wrapped.Results, nil
		}
	}
	return nil, fmt.Errorf("parse model response: no results array in %q", truncateRunes(text, 200))
}

func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// tokenUsage reads token counts from GenerationInfo. OpenAI reports
// PromptTokens/CompletionTokens and Anthropic InputTokens/OutputTokens.
func tokenUsage(info map[string]any) (in, out int) {
	in = intField(info, "PromptTokens", "InputTokens")
	out = intField(info, "CompletionTokens", "OutputTokens")
	return in, out
}

func intField(info map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
