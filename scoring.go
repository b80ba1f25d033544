package reminisce

import (
	"encoding/json"
	"strings"
)

// Term is one search keyword. Analyzers return terms either as plain
// strings or as objects carrying a "term" or "name" field (an artifact of
// semantic expansion); both decode to the same thing. Unrecognized shapes
// decode to the empty string and simply never match.
type Term struct {
	value string
}

// PlainTerm wraps a string as a Term.
func PlainTerm(s string) Term { return Term{value: s} }

// String returns the normalized term text.
func (t Term) String() string { return t.value }

func (t Term) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.value)
}

func (t *Term) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.value = s
		return nil
	}

	var obj struct {
		Term string `json:"term"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		if obj.Term != "" {
			t.value = obj.Term
		} else {
			t.value = obj.Name
		}
		return nil
	}

	// Numbers, arrays, whatever: contribute nothing, never error.
	t.value = ""
	return nil
}

// Keywords maps a category name (people, events, time, location) to its
// search terms.
type Keywords map[string][]Term

// EmptyKeywords returns the neutral keyword set used when analysis fails.
func EmptyKeywords() Keywords {
	return Keywords{
		"people":   {},
		"events":   {},
		"time":     {},
		"location": {},
	}
}

// PlainKeywords builds a Keywords map from plain strings, mostly for
// tests and fixed strategies.
func PlainKeywords(m map[string][]string) Keywords {
	kw := make(Keywords, len(m))
	for cat, terms := range m {
		ts := make([]Term, len(terms))
		for i, s := range terms {
			ts[i] = PlainTerm(s)
		}
		kw[cat] = ts
	}
	return kw
}

// Terms flattens all non-empty term strings across categories.
func (k Keywords) Terms() []string {
	var out []string
	for _, terms := range k {
		for _, t := range terms {
			if t.value != "" {
				out = append(out, t.value)
			}
		}
	}
	return out
}

// Relevance computes the weighted keyword match score of a node's
// serialized content. For each category carrying a priority weight, the
// number of terms occurring as a case-insensitive substring of the
// content is multiplied by that weight and summed. Deliberately crude:
// substring matching, no semantics. Monotone in matches per category and
// invariant to term order.
func Relevance(content string, keywords Keywords, priorities SearchPriorities) float64 {
	text := strings.ToLower(content)

	score := 0.0
	for category, terms := range keywords {
		weight := priorities.weightFor(category)
		if weight == 0 {
			continue
		}
		matches := 0
		for _, t := range terms {
			term := strings.ToLower(t.String())
			if term != "" && strings.Contains(text, term) {
				matches++
			}
		}
		score += float64(matches) * weight
	}
	return score
}
