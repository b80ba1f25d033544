package reminisce

import (
	"context"
	"strconv"
	"strings"
)

// HeuristicCollaborator is the zero-cost, offline fallback for both
// collaborator contracts. It extracts keywords by matching vocabulary
// derived from the patient's own records against the utterance, and
// judges sufficiency against the relevance thresholds. No network, fully
// deterministic; used when no API key is configured.
type HeuristicCollaborator struct {
	thresholds RelevanceThresholds

	people    []vocabTerm
	events    []vocabTerm
	times     []vocabTerm
	locations []vocabTerm
}

// vocabTerm is one record-derived term tagged with the record it came from.
type vocabTerm struct {
	text   string
	source string // routine or story
}

var pastSignals = []string{
	"remember", "used to", "when i was", "years ago", "back then",
	"in those days", "as a child", "my wedding", "long ago",
}

var currentSignals = []string{
	"today", "now", "this morning", "this afternoon", "tonight",
	"right now", "later", "next", "schedule", "what time",
}

// NewHeuristicCollaborator builds the vocabulary from the three records.
func NewHeuristicCollaborator(rec *PatientRecords, thresholds RelevanceThresholds) *HeuristicCollaborator {
	h := &HeuristicCollaborator{thresholds: thresholds}
	seen := make(map[string]bool)

	add := func(list *[]vocabTerm, text, source string) {
		text = strings.TrimSpace(text)
		key := strings.ToLower(text)
		if len(key) < 2 || seen[key] {
			return
		}
		seen[key] = true
		*list = append(*list, vocabTerm{text: text, source: source})
	}

	for _, a := range rec.Routine.Activities {
		add(&h.events, a.Label, SourceRoutine)
		add(&h.locations, a.Location, SourceRoutine)
		add(&h.times, a.TimeStart, SourceRoutine)
		add(&h.times, a.TimeEnd, SourceRoutine)
		for _, p := range a.Participants {
			add(&h.people, p.Name, SourceRoutine)
		}
	}

	for _, iv := range rec.Story.Interviews {
		add(&h.people, iv.Interviewee.Name, SourceStory)
		for _, m := range iv.Memories {
			add(&h.events, m.Title, SourceStory)
			if m.Year > 0 {
				add(&h.times, strconv.Itoa(m.Year), SourceStory)
			}
			for _, name := range m.People {
				add(&h.people, name, SourceStory)
			}
		}
	}

	return h
}

// AnalyzeDialogue implements StrategyAnalyzer by lexical matching against
// the record vocabulary.
func (h *HeuristicCollaborator) AnalyzeDialogue(_ context.Context, dc DialogueContext) (SearchStrategy, error) {
	lower := strings.ToLower(dc.Text)

	routineHits, storyHits := 0, 0
	match := func(vocab []vocabTerm) []Term {
		var terms []Term
		for _, v := range vocab {
			if strings.Contains(lower, strings.ToLower(v.text)) {
				terms = append(terms, PlainTerm(v.text))
				if v.source == SourceRoutine {
					routineHits++
				} else {
					storyHits++
				}
			}
		}
		if terms == nil {
			terms = []Term{}
		}
		return terms
	}

	kw := Keywords{
		"people":   match(h.people),
		"events":   match(h.events),
		"time":     match(h.times),
		"location": match(h.locations),
	}

	focus := FocusBoth
	switch {
	case routineHits > 0 && storyHits == 0:
		focus = FocusRoutine
	case storyHits > 0 && routineHits == 0:
		focus = FocusMemory
	}

	return SearchStrategy{
		Keywords:        kw,
		Focus:           focus,
		TemporalContext: temporalHint(lower),
	}, nil
}

// EvaluateResults implements RetrievalEvaluator with a threshold rule: a
// single strong candidate, or broad overlap across several, counts as
// sufficient.
func (h *HeuristicCollaborator) EvaluateResults(_ context.Context, query string, results []RetrievedNode) (Effectiveness, error) {
	lower := strings.ToLower(query)

	if len(results) == 0 {
		rec := RecommendBalanced
		switch temporalHint(lower) {
		case TemporalPast:
			rec = RecommendMemory
		case TemporalCurrent:
			rec = RecommendRoutine
		}
		return Effectiveness{
			Score:               0.2,
			Sufficient:          false,
			MissingAspects:      []string{"no matching records"},
			FocusRecommendation: rec,
		}, nil
	}

	top, sum := 0.0, 0.0
	hasRoutine, hasStory := false, false
	for _, r := range results {
		if r.Relevance > top {
			top = r.Relevance
		}
		sum += r.Relevance
		if r.Source == SourceRoutine {
			hasRoutine = true
		} else {
			hasStory = true
		}
	}
	avg := sum / float64(len(results))

	sufficient := top >= h.thresholds.StrongMatch ||
		(len(results) >= 3 && avg >= h.thresholds.KeywordOverlap)

	rec := RecommendBalanced
	if !sufficient {
		switch {
		case hasRoutine && !hasStory:
			rec = RecommendMemory
		case hasStory && !hasRoutine:
			rec = RecommendRoutine
		}
	}

	return Effectiveness{
		Score:               clamp(top, 0, 1),
		Sufficient:          sufficient,
		FocusRecommendation: rec,
	}, nil
}

// temporalHint classifies an utterance by signal phrases, past vs current.
func temporalHint(lower string) TemporalContext {
	past, current := false, false
	for _, s := range pastSignals {
		if strings.Contains(lower, s) {
			past = true
			break
		}
	}
	for _, s := range currentSignals {
		if strings.Contains(lower, s) {
			current = true
			break
		}
	}
	switch {
	case past && !current:
		return TemporalPast
	case current && !past:
		return TemporalCurrent
	default:
		return TemporalBoth
	}
}
