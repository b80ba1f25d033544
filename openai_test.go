package reminisce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func openaiCompletion(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "gpt-4o-mini",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	}
}

func newOpenAITestCollaborator(srv *httptest.Server, opts ...OpenAIOption) *OpenAICollaborator {
	all := append([]OpenAIOption{WithOpenAIBaseURL(srv.URL + "/v1")}, opts...)
	return NewOpenAICollaborator("test-key", all...)
}

func TestOpenAIAnalyzeDialogue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openaiCompletion(`{
			"keywords": {"people": ["George"], "events": ["Chess Club"]},
			"focus": "routine",
			"temporal_context": "current"
		}`))
	}))
	defer srv.Close()

	c := newOpenAITestCollaborator(srv)
	strategy, err := c.AnalyzeDialogue(context.Background(), DialogueContext{
		Text: "Is it chess with George now?",
		Time: time.Date(2024, 6, 3, 14, 10, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if strategy.Focus != FocusRoutine {
		t.Errorf("expected routine focus, got %s", strategy.Focus)
	}
	if !containsTerm(strategy.Keywords, "people", "George") {
		t.Errorf("keywords did not decode: %+v", strategy.Keywords)
	}
}

func TestOpenAIExpandKeywords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openaiCompletion(`{
			"people": ["Mary", "daughter"],
			"events": ["Gardening"],
			"time": [],
			"location": ["Garden"]
		}`))
	}))
	defer srv.Close()

	c := newOpenAITestCollaborator(srv)
	kw, err := c.ExpandKeywords(context.Background(),
		PlainKeywords(map[string][]string{"people": {"Mary"}}),
		PatientProfile{Name: "Arthur Bennett"})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if !containsTerm(kw, "people", "daughter") || !containsTerm(kw, "location", "Garden") {
		t.Errorf("expansion did not decode: %+v", kw)
	}
}

func TestOpenAIEvaluateResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openaiCompletion(`{
			"score": 0.75,
			"sufficient": true,
			"missing_aspects": [],
			"focus_recommendation": "balanced",
			"reasoning": "direct schedule hit"
		}`))
	}))
	defer srv.Close()

	c := newOpenAITestCollaborator(srv)
	eff, err := c.EvaluateResults(context.Background(), "when is breakfast", []RetrievedNode{
		{NodeID: "activity_Breakfast", Relevance: 0.7, Source: SourceRoutine},
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eff.Score != 0.75 || !eff.Sufficient || eff.FocusRecommendation != RecommendBalanced {
		t.Errorf("unexpected effectiveness: %+v", eff)
	}
}

func TestOpenAIRetriesOnFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "upstream hiccup", "type": "server_error"},
			})
			return
		}
		json.NewEncoder(w).Encode(openaiCompletion(`{"focus": "both", "temporal_context": "both"}`))
	}))
	defer srv.Close()

	c := newOpenAITestCollaborator(srv)
	strategy, err := c.AnalyzeDialogue(context.Background(), DialogueContext{Text: "hello"})
	if err != nil {
		t.Fatalf("the retry should have recovered: %v", err)
	}
	if strategy.Focus != FocusBoth {
		t.Errorf("unexpected strategy: %+v", strategy)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

func TestOpenAIExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "still down", "type": "server_error"},
		})
	}))
	defer srv.Close()

	c := newOpenAITestCollaborator(srv, WithOpenAIRetries(2))
	if _, err := c.AnalyzeDialogue(context.Background(), DialogueContext{Text: "hello"}); err == nil {
		t.Fatal("expected an error once retries are exhausted")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts with 2 retries, got %d", got)
	}
}
