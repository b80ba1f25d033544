package reminisce

import "time"

// NodeType tags the three kinds of memory-graph nodes.
type NodeType string

const (
	NodeActivity NodeType = "activity" // daily-routine activities
	NodePerson   NodeType = "person"   // people, unified by name
	NodeMemory   NodeType = "memory"   // life-story recollections
)

// Source names which record a node came from: the routine schedule or the
// life story. Person nodes count toward the story side.
const (
	SourceRoutine = "routine"
	SourceStory   = "story"
)

// Focus is the NLU hint for which information source a query targets.
type Focus string

const (
	FocusRoutine Focus = "routine"
	FocusMemory  Focus = "memory"
	FocusBoth    Focus = "both"
)

// TemporalContext is the NLU hint for the time frame a query refers to.
type TemporalContext string

const (
	TemporalCurrent TemporalContext = "current"
	TemporalPast    TemporalContext = "past"
	TemporalBoth    TemporalContext = "both"
)

// FocusRecommendation is the evaluator's advice for shifting search weights.
type FocusRecommendation string

const (
	RecommendRoutine  FocusRecommendation = "routine"
	RecommendMemory   FocusRecommendation = "memory"
	RecommendBalanced FocusRecommendation = "balanced"
)

// SearchPriorities holds the fixed per-category keyword weights.
// The four values sum to 1.0.
type SearchPriorities struct {
	People   float64
	Events   float64
	Time     float64
	Location float64
}

// DefaultSearchPriorities returns the standard category weighting:
// people matter most, locations least.
func DefaultSearchPriorities() SearchPriorities {
	return SearchPriorities{
		People:   0.4,
		Events:   0.3,
		Time:     0.2,
		Location: 0.1,
	}
}

// weightFor maps a keyword category name to its priority weight.
// Upstream analyzers have produced two naming schemes over time
// ("events" vs "activities", "time" vs "time_refs", "location" vs
// "locations"); both resolve to the same category. Unknown categories
// weigh zero and never contribute to a score.
func (p SearchPriorities) weightFor(category string) float64 {
	switch category {
	case "people":
		return p.People
	case "events", "activities":
		return p.Events
	case "time", "time_refs":
		return p.Time
	case "location", "locations":
		return p.Location
	default:
		return 0
	}
}

// RelevanceThresholds are the policy constants consulted by the scorer
// and the sufficiency judgment.
type RelevanceThresholds struct {
	MinScore       float64 // floor for a node to enter the result set
	StrongMatch    float64 // a single candidate at or above this is convincing
	KeywordOverlap float64 // weaker floor used by the heuristic sufficiency check
}

// DefaultRelevanceThresholds returns the standard retrieval thresholds.
func DefaultRelevanceThresholds() RelevanceThresholds {
	return RelevanceThresholds{
		MinScore:       0.5,
		StrongMatch:    0.7,
		KeywordOverlap: 0.3,
	}
}

// Config holds DialogueAgent initialization parameters.
type Config struct {
	DataDir   string // root of the patient record tree (default: ./Patient_Data)
	PatientID string // required, e.g. "P001"

	// Collaborator wiring. When Analyzer/Evaluator are nil, Init constructs
	// an OpenAI-backed collaborator from OpenAIAPIKey, or a record-driven
	// heuristic one when no key is configured.
	OpenAIAPIKey string
	Analyzer     StrategyAnalyzer
	Evaluator    RetrievalEvaluator

	// ExpandKeywords enables the extra semantic-expansion round-trip when
	// the analyzer also implements KeywordExpander.
	ExpandKeywords bool

	// HistoryDBPath, when set, persists per-query telemetry to SQLite.
	HistoryDBPath string

	Priorities SearchPriorities
	Thresholds RelevanceThresholds

	BroadenLimit int // nodes appended by one broadening pass (default 4)
	MaxResults   int // final ranked result cap (default 8)
}

// ApplyDefaults fills zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./Patient_Data"
	}
	if c.Priorities == (SearchPriorities{}) {
		c.Priorities = DefaultSearchPriorities()
	}
	if c.Thresholds == (RelevanceThresholds{}) {
		c.Thresholds = DefaultRelevanceThresholds()
	}
	if c.BroadenLimit == 0 {
		c.BroadenLimit = 4
	}
	if c.MaxResults == 0 {
		c.MaxResults = 8
	}
}

// DialogueContext carries one utterance and its surrounding situation.
type DialogueContext struct {
	Text            string
	Time            time.Time
	CurrentActivity *Activity // nil when no routine interval contains Time
}

// SearchStrategy is the structured NLU analysis of an utterance.
type SearchStrategy struct {
	Keywords        Keywords        `json:"keywords"`
	Focus           Focus           `json:"focus"`
	TemporalContext TemporalContext `json:"temporal_context"`
}

// Effectiveness is the evaluator's judgment of a candidate set.
type Effectiveness struct {
	Score               float64             `json:"score"`
	Sufficient          bool                `json:"sufficient"`
	MissingAspects      []string            `json:"missing_aspects"`
	FocusRecommendation FocusRecommendation `json:"focus_recommendation"`
	Reasoning           string              `json:"reasoning,omitempty"`
}

// RetrievedNode is one ranked retrieval candidate.
type RetrievedNode struct {
	NodeID    string         `json:"node_id"`
	Type      NodeType       `json:"type"`
	Source    string         `json:"source"` // routine or story
	Relevance float64        `json:"relevance"`
	Content   map[string]any `json:"content"`
}

// KeywordAnalysis pairs the analyzer's raw keywords with the (optionally)
// expanded set actually used for scoring. Without expansion both are equal.
type KeywordAnalysis struct {
	Original Keywords `json:"original"`
	Expanded Keywords `json:"expanded"`
}

// SearchPerformance is the per-query telemetry block.
type SearchPerformance struct {
	Effectiveness Effectiveness `json:"effectiveness"`
	RoutineWeight float64       `json:"routine_weight"`
	StoryWeight   float64       `json:"story_weight"`
}

// QueryResult is what ProcessQuery returns: always populated, possibly
// with degraded fields when a collaborator misbehaved.
type QueryResult struct {
	QueryTime       string            `json:"query_time"` // HH:MM
	CurrentActivity *Activity         `json:"current_activity"`
	Keywords        KeywordAnalysis   `json:"keyword_analysis"`
	Results         []RetrievedNode   `json:"results"`
	Performance     SearchPerformance `json:"search_performance"`
}

// HistoryEntry is one observability record of a processed query.
type HistoryEntry struct {
	ID            string    `json:"id"`         // ULID, time-ordered
	SessionID     string    `json:"session_id"` // UUID of the agent session
	PatientID     string    `json:"patient_id"`
	Query         string    `json:"query"`
	Effectiveness float64   `json:"effectiveness"`
	RoutineWeight float64   `json:"routine_weight"`
	StoryWeight   float64   `json:"story_weight"`
	ResultCount   int       `json:"result_count"`
	CreatedAt     time.Time `json:"created_at"`
}
