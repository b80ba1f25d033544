package reminisce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaCollaborator binds the NLU and evaluation contracts to a local
// Ollama server. No API key required. Implements StrategyAnalyzer and
// RetrievalEvaluator.
type OllamaCollaborator struct {
	host   string
	model  string
	client *http.Client
}

// OllamaOption configures an OllamaCollaborator.
type OllamaOption func(*OllamaCollaborator)

// WithOllamaHost sets the Ollama server URL (default: http://localhost:11434).
func WithOllamaHost(host string) OllamaOption {
	return func(c *OllamaCollaborator) { c.host = host }
}

// NewOllamaCollaborator creates a collaborator for a local Ollama
// instance. The model must be already pulled (e.g. "llama3.2", "qwen2.5").
func NewOllamaCollaborator(model string, opts ...OllamaOption) *OllamaCollaborator {
	c := &OllamaCollaborator{
		host:   "http://localhost:11434",
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AnalyzeDialogue implements StrategyAnalyzer.
func (c *OllamaCollaborator) AnalyzeDialogue(ctx context.Context, dc DialogueContext) (SearchStrategy, error) {
	text, err := c.chatJSON(ctx, buildAnalysisPrompt(dc))
	if err != nil {
		return SearchStrategy{}, err
	}
	return decodeStrategy(text)
}

// EvaluateResults implements RetrievalEvaluator.
func (c *OllamaCollaborator) EvaluateResults(ctx context.Context, query string, results []RetrievedNode) (Effectiveness, error) {
	text, err := c.chatJSON(ctx, buildEvaluationPrompt(query, results))
	if err != nil {
		return Effectiveness{}, err
	}
	return decodeEffectiveness(text)
}

// chatJSON runs one non-streaming /api/chat call in JSON mode and returns
// the raw message content.
func (c *OllamaCollaborator) chatJSON(ctx context.Context, prompt string) (string, error) {
	url := c.host + "/api/chat"

	reqBody := ollamaChatRequest{
		Model: c.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: openaiSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Format: "json",
		Stream: false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama chat %d: %s", resp.StatusCode, string(body[:min(len(body), 200)]))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	if chatResp.Message.Content == "" {
		return "", fmt.Errorf("empty response")
	}
	return chatResp.Message.Content, nil
}

// --- Ollama chat API types ---

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Format   string          `json:"format,omitempty"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
}
