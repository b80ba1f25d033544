package reminisce

import (
	"context"
	"fmt"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const openaiSystemPrompt = "You are a JSON generator. Only output valid JSON without any other text."

// OpenAICollaborator binds the NLU and evaluation contracts to the OpenAI
// chat-completions API. Implements StrategyAnalyzer, KeywordExpander, and
// RetrievalEvaluator. Every call carries an explicit timeout and one
// bounded retry; parse failures surface as errors for the agent to
// default away.
type OpenAICollaborator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	retries int
}

// OpenAIOption configures an OpenAICollaborator.
type OpenAIOption func(*OpenAICollaborator)

// WithOpenAIModel overrides the chat model (default: gpt-4o-mini).
func WithOpenAIModel(model string) OpenAIOption {
	return func(c *OpenAICollaborator) { c.model = model }
}

// WithOpenAIBaseURL points the client at a compatible endpoint
// (overridable for tests and proxies).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *OpenAICollaborator) {
		cfg := openai.DefaultConfig("")
		cfg.BaseURL = url
		c.client = openai.NewClientWithConfig(cfg)
	}
}

// WithOpenAITimeout sets the per-call timeout (default: 30s).
func WithOpenAITimeout(d time.Duration) OpenAIOption {
	return func(c *OpenAICollaborator) { c.timeout = d }
}

// WithOpenAIRetries sets how many times a failed call is retried
// (default: 1).
func WithOpenAIRetries(n int) OpenAIOption {
	return func(c *OpenAICollaborator) { c.retries = n }
}

// NewOpenAICollaborator creates the OpenAI-backed collaborator.
func NewOpenAICollaborator(apiKey string, opts ...OpenAIOption) *OpenAICollaborator {
	c := &OpenAICollaborator{
		client:  openai.NewClient(apiKey),
		model:   openai.GPT4oMini,
		timeout: 30 * time.Second,
		retries: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AnalyzeDialogue implements StrategyAnalyzer.
func (c *OpenAICollaborator) AnalyzeDialogue(ctx context.Context, dc DialogueContext) (SearchStrategy, error) {
	text, err := c.chatJSON(ctx, buildAnalysisPrompt(dc))
	if err != nil {
		return SearchStrategy{}, err
	}
	return decodeStrategy(text)
}

// ExpandKeywords implements KeywordExpander.
func (c *OpenAICollaborator) ExpandKeywords(ctx context.Context, keywords Keywords, profile PatientProfile) (Keywords, error) {
	text, err := c.chatJSON(ctx, buildExpansionPrompt(keywords, profile))
	if err != nil {
		return nil, err
	}
	return decodeKeywords(text)
}

// EvaluateResults implements RetrievalEvaluator.
func (c *OpenAICollaborator) EvaluateResults(ctx context.Context, query string, results []RetrievedNode) (Effectiveness, error) {
	text, err := c.chatJSON(ctx, buildEvaluationPrompt(query, results))
	if err != nil {
		return Effectiveness{}, err
	}
	return decodeEffectiveness(text)
}

// chatJSON runs one JSON-mode chat completion with timeout and bounded
// retry, returning the raw message content.
func (c *OpenAICollaborator) chatJSON(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: openaiSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			log.Printf("[reminisce] OpenAI call retry %d after: %v", attempt, lastErr)
			time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.client.CreateChatCompletion(callCtx, req)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("empty completion")
			continue
		}
		return resp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("openai chat: %w", lastErr)
}
