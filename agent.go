package reminisce

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// DialogueAgent is the adaptive memory-retrieval engine for one patient
// session. It owns the record set, the memory graph (built once, read-only
// afterward), the adaptive search weights, and the query history. One
// ProcessQuery runs to completion before the next; the mutex serializes
// callers that share an instance.
type DialogueAgent struct {
	records    *PatientRecords
	graph      *MemoryGraph
	weights    SearchWeights
	priorities SearchPriorities
	thresholds RelevanceThresholds

	analyzer  StrategyAnalyzer
	evaluator RetrievalEvaluator

	sessionID string
	history   []HistoryEntry
	histStore *HistoryStore

	config Config
	mu     sync.Mutex
}

// Init loads the patient records, builds the memory graph, and resolves
// collaborators. Record problems are fatal here (ErrPatientDataUnavailable);
// everything after construction degrades instead of failing.
func Init(cfg Config) (*DialogueAgent, error) {
	cfg.ApplyDefaults()

	records, err := LoadPatientRecords(cfg.DataDir, cfg.PatientID)
	if err != nil {
		return nil, err
	}
	graph := BuildMemoryGraph(records)

	// Resolve collaborators: explicit config, OpenAI from the key, or the
	// offline heuristic when neither is given.
	analyzer := cfg.Analyzer
	evaluator := cfg.Evaluator
	if analyzer == nil || evaluator == nil {
		if cfg.OpenAIAPIKey != "" {
			oc := NewOpenAICollaborator(cfg.OpenAIAPIKey)
			if analyzer == nil {
				analyzer = oc
			}
			if evaluator == nil {
				evaluator = oc
			}
		} else {
			hc := NewHeuristicCollaborator(records, cfg.Thresholds)
			if analyzer == nil {
				analyzer = hc
			}
			if evaluator == nil {
				evaluator = hc
			}
		}
	}

	var histStore *HistoryStore
	if cfg.HistoryDBPath != "" {
		histStore, err = NewHistoryStore(cfg.HistoryDBPath)
		if err != nil {
			return nil, err
		}
	}

	agent := &DialogueAgent{
		records:    records,
		graph:      graph,
		weights:    DefaultSearchWeights(),
		priorities: cfg.Priorities,
		thresholds: cfg.Thresholds,
		analyzer:   analyzer,
		evaluator:  evaluator,
		sessionID:  uuid.NewString(),
		histStore:  histStore,
		config:     cfg,
	}

	log.Printf("[reminisce] Initialized agent for %s (%d nodes, %d edges)",
		cfg.PatientID, graph.NodeCount(), graph.EdgeCount())

	return agent, nil
}

// ProcessQuery runs one retrieval: locate the current activity, analyze
// the utterance into a keyword strategy, score the current activity,
// judge sufficiency, broaden over the whole graph once if needed, adjust
// the weights, and record history. It always returns a result; any
// collaborator failure is logged and replaced with a neutral default.
func (a *DialogueAgent) ProcessQuery(ctx context.Context, text string, now time.Time) QueryResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	current := a.records.Routine.ActivityAt(now)
	dc := DialogueContext{Text: text, Time: now, CurrentActivity: current}

	original, expanded := a.analyzeStrategy(ctx, dc)

	// Initial candidate: the current activity, scored unweighted.
	var results []RetrievedNode
	if current != nil {
		if node, ok := a.graph.Node("activity_" + current.Label); ok {
			rel := Relevance(node.SearchText(), expanded, a.priorities)
			if rel >= a.thresholds.MinScore {
				results = append(results, RetrievedNode{
					NodeID:    node.ID,
					Type:      NodeActivity,
					Source:    SourceRoutine,
					Relevance: rel,
					Content:   node.Attrs,
				})
			}
		}
	}

	eff := a.evaluate(ctx, text, results)

	// Single broadening pass, never iterative.
	if !eff.Sufficient {
		results = append(results, a.searchGraph(expanded)...)
		eff = a.evaluate(ctx, text, results)
	}

	a.weights.Adjust(eff.FocusRecommendation)

	entry := HistoryEntry{
		ID:            ulid.Make().String(),
		SessionID:     a.sessionID,
		PatientID:     a.records.PatientID,
		Query:         text,
		Effectiveness: eff.Score,
		RoutineWeight: a.weights.Routine,
		StoryWeight:   a.weights.Story,
		ResultCount:   len(results),
		CreatedAt:     time.Now(),
	}
	a.history = append(a.history, entry)
	if a.histStore != nil {
		if err := a.histStore.Insert(entry); err != nil {
			log.Printf("[reminisce] History insert failed: %v", err)
		}
	}

	if len(results) > a.config.MaxResults {
		results = results[:a.config.MaxResults]
	}

	return QueryResult{
		QueryTime:       now.Format("15:04"),
		CurrentActivity: current,
		Keywords:        KeywordAnalysis{Original: original, Expanded: expanded},
		Results:         results,
		Performance: SearchPerformance{
			Effectiveness: eff,
			RoutineWeight: a.weights.Routine,
			StoryWeight:   a.weights.Story,
		},
	}
}

// analyzeStrategy obtains the keyword strategy from the NLU collaborator,
// optionally expands it, and substitutes the neutral default on failure.
// Returns (original, expanded) keyword sets; without expansion they are
// the same map.
func (a *DialogueAgent) analyzeStrategy(ctx context.Context, dc DialogueContext) (Keywords, Keywords) {
	strategy, err := a.analyzer.AnalyzeDialogue(ctx, dc)
	if err != nil {
		log.Printf("[reminisce] Dialogue analysis failed, using defaults: %v", err)
		return EmptyKeywords(), EmptyKeywords()
	}
	original := strategy.Keywords

	expanded := original
	if a.config.ExpandKeywords {
		if ex, ok := a.analyzer.(KeywordExpander); ok {
			kw, err := ex.ExpandKeywords(ctx, original, a.records.Profile)
			if err != nil {
				log.Printf("[reminisce] Keyword expansion failed, using original: %v", err)
			} else {
				expanded = kw
			}
		}
	}
	return original, expanded
}

// evaluate asks the evaluator collaborator for a sufficiency judgment,
// substituting a mid-range, insufficient, balanced default on failure so
// the engine still broadens and returns a best-effort set.
func (a *DialogueAgent) evaluate(ctx context.Context, query string, results []RetrievedNode) Effectiveness {
	eff, err := a.evaluator.EvaluateResults(ctx, query, results)
	if err != nil {
		log.Printf("[reminisce] Result evaluation failed, using defaults: %v", err)
		return Effectiveness{
			Score:               0.5,
			Sufficient:          false,
			FocusRecommendation: RecommendBalanced,
		}
	}
	return eff
}

// searchGraph scores every node against the keywords, weighting each raw
// score by its source's current adaptive weight, keeps nodes at or above
// MinScore, and returns the top BroadenLimit sorted by weighted score.
func (a *DialogueAgent) searchGraph(keywords Keywords) []RetrievedNode {
	var out []RetrievedNode
	for _, n := range a.graph.Nodes() {
		rel := Relevance(n.SearchText(), keywords, a.priorities)
		weighted := rel * a.weights.WeightFor(n.Type)
		if weighted < a.thresholds.MinScore {
			continue
		}
		source := SourceStory
		if n.Type == NodeActivity {
			source = SourceRoutine
		}
		out = append(out, RetrievedNode{
			NodeID:    n.ID,
			Type:      n.Type,
			Source:    source,
			Relevance: weighted,
			Content:   n.Attrs,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Relevance > out[j].Relevance
	})
	if len(out) > a.config.BroadenLimit {
		out = out[:a.config.BroadenLimit]
	}
	return out
}

// Weights returns the current adaptive weights.
func (a *DialogueAgent) Weights() SearchWeights {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.weights
}

// History returns a copy of the session's query history.
func (a *DialogueAgent) History() []HistoryEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]HistoryEntry, len(a.history))
	copy(out, a.history)
	return out
}

// Profile returns the loaded patient profile.
func (a *DialogueAgent) Profile() PatientProfile { return a.records.Profile }

// Records returns the loaded patient records.
func (a *DialogueAgent) Records() *PatientRecords { return a.records }

// Graph returns the read-only memory graph.
func (a *DialogueAgent) Graph() *MemoryGraph { return a.graph }

// SessionID returns the agent session identifier.
func (a *DialogueAgent) SessionID() string { return a.sessionID }

// Close releases the history store, if any.
func (a *DialogueAgent) Close() error {
	if a.histStore != nil {
		return a.histStore.Close()
	}
	return nil
}
