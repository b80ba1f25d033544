package reminisce

import "context"

// StrategyAnalyzer turns an utterance plus situational context into a
// structured search strategy (categorized keywords, focus, temporal hint).
// Built-in: OpenAICollaborator, OllamaCollaborator, HeuristicCollaborator.
type StrategyAnalyzer interface {
	AnalyzeDialogue(ctx context.Context, dc DialogueContext) (SearchStrategy, error)
}

// KeywordExpander is an optional analyzer capability: one extra
// round-trip that enriches the keyword map with profile-aware synonyms
// and related terms. The agent discovers it by type assertion when
// Config.ExpandKeywords is set.
type KeywordExpander interface {
	ExpandKeywords(ctx context.Context, keywords Keywords, profile PatientProfile) (Keywords, error)
}

// RetrievalEvaluator judges whether a candidate set sufficiently answers
// a query, scores its quality, and recommends where to shift search
// emphasis next.
type RetrievalEvaluator interface {
	EvaluateResults(ctx context.Context, query string, results []RetrievedNode) (Effectiveness, error)
}
