package reminisce

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Prompt builders and response decoding shared by the LLM-backed
// collaborators. Every decoder returns an error on malformed output; the
// agent is the one that substitutes neutral defaults.

func buildAnalysisPrompt(dc DialogueContext) string {
	activity := "None"
	if dc.CurrentActivity != nil {
		activity = dc.CurrentActivity.Label
	}

	var b strings.Builder
	b.WriteString("Analyze this dialogue and return ONLY a valid JSON object with no additional text:\n")
	fmt.Fprintf(&b, "Text: %q\n", dc.Text)
	fmt.Fprintf(&b, "Time: %s\n", dc.Time.Format("15:04"))
	fmt.Fprintf(&b, "Current Activity: %s\n\n", activity)
	b.WriteString(`The JSON must have exactly this structure:
{
    "keywords": {
        "people": [],
        "events": [],
        "time": [],
        "location": []
    },
    "focus": "routine" or "memory" or "both",
    "temporal_context": "current" or "past" or "both"
}`)
	return b.String()
}

func buildExpansionPrompt(keywords Keywords, profile PatientProfile) string {
	kw, _ := json.Marshal(keywords)
	prof, _ := json.Marshal(profile)

	var b strings.Builder
	b.WriteString("Expand these keywords for searching a dementia patient's memory records and return ONLY a valid JSON object:\n")
	fmt.Fprintf(&b, "Keywords: %s\n", kw)
	fmt.Fprintf(&b, "Patient Profile: %s\n\n", prof)
	b.WriteString(`Add related terms per category (e.g. "son" -> the son's actual name,
family nicknames, synonyms, associated places and routines).

Return a JSON object with exactly this structure:
{
    "people": [],
    "events": [],
    "time": [],
    "location": []
}`)
	return b.String()
}

func buildEvaluationPrompt(query string, results []RetrievedNode) string {
	res, _ := json.Marshal(results)

	var b strings.Builder
	b.WriteString("Evaluate these memory search results:\n")
	fmt.Fprintf(&b, "Query: %q\n", query)
	fmt.Fprintf(&b, "Results: %s\n\n", res)
	b.WriteString(`Return JSON:
{
    "score": float (0-1),
    "sufficient": boolean,
    "missing_aspects": [],
    "focus_recommendation": "routine" or "memory" or "balanced",
    "reasoning": "explanation"
}`)
	return b.String()
}

// decodeStrategy parses an analyzer response into a SearchStrategy and
// normalizes the enums.
func decodeStrategy(text string) (SearchStrategy, error) {
	var s SearchStrategy
	if err := json.Unmarshal([]byte(stripFences(text)), &s); err != nil {
		return SearchStrategy{}, fmt.Errorf("decode strategy: %w", err)
	}
	if s.Keywords == nil {
		s.Keywords = EmptyKeywords()
	}
	s.Focus = normalizeFocus(string(s.Focus))
	s.TemporalContext = normalizeTemporal(string(s.TemporalContext))
	return s, nil
}

// decodeKeywords parses an expansion response.
func decodeKeywords(text string) (Keywords, error) {
	var kw Keywords
	if err := json.Unmarshal([]byte(stripFences(text)), &kw); err != nil {
		return nil, fmt.Errorf("decode keywords: %w", err)
	}
	if kw == nil {
		return nil, fmt.Errorf("decode keywords: null object")
	}
	return kw, nil
}

// decodeEffectiveness parses an evaluator response and normalizes the
// recommendation enum.
func decodeEffectiveness(text string) (Effectiveness, error) {
	var e Effectiveness
	if err := json.Unmarshal([]byte(stripFences(text)), &e); err != nil {
		return Effectiveness{}, fmt.Errorf("decode effectiveness: %w", err)
	}
	e.FocusRecommendation = normalizeRecommendation(string(e.FocusRecommendation))
	e.Score = clamp(e.Score, 0, 1)
	return e, nil
}

func normalizeFocus(s string) Focus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "routine":
		return FocusRoutine
	case "memory", "story":
		return FocusMemory
	default:
		return FocusBoth
	}
}

func normalizeTemporal(s string) TemporalContext {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "current":
		return TemporalCurrent
	case "past":
		return TemporalPast
	default:
		return TemporalBoth
	}
}

func normalizeRecommendation(s string) FocusRecommendation {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "routine":
		return RecommendRoutine
	case "memory", "story":
		return RecommendMemory
	default:
		return RecommendBalanced
	}
}

// stripFences unwraps markdown code blocks some models insist on adding.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	var jsonLines []string
	inBlock := false
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "```") {
			inBlock = !inBlock
			continue
		}
		if inBlock {
			jsonLines = append(jsonLines, line)
		}
	}
	return strings.Join(jsonLines, "\n")
}
