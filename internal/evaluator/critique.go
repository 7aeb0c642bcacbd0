package evaluator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/okr-evaluator/internal/model"
	"github.com/sells-group/okr-evaluator/internal/scorer"
)

// critique is the validated SMART critique of an objective, produced by
// one of three tiers: strict parse, field-level repair, or full
// heuristic fallback. Whatever tier produced it, it is always complete.
type critique struct {
	Score       float64
	Feedback    string
	Criteria    map[string]model.CriterionScore
	Suggestions []string

	// RepairedCriteria counts criteria that had to be backfilled with
	// defaults. Zero for a clean parse and for the full fallback.
	RepairedCriteria int
}

// achievableMidpoint stands in for the "achievable" criterion in the
// fallback tier; the heuristics carry no achievability signal.
const achievableMidpoint = 5.5

// defaultSuggestions is returned when the critique falls back entirely
// to heuristics.
var defaultSuggestions = []string{
	"State a single measurable outcome instead of a list of activities.",
	"Add an explicit time box such as a quarter or a number of weeks.",
	"Use outcome verbs (improve, reduce, grow) rather than task verbs.",
	"Quantify the change you expect, with a baseline and a target.",
}

// parseCritique is the strict-parse and repair tier. It accepts the raw
// completion text and returns a complete critique, or an error when the
// response cannot be salvaged field-by-field and the caller must fall
// back entirely.
func parseCritique(raw string) (*critique, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(extractJSON(raw)), &top); err != nil {
		return nil, eris.Wrap(err, "critique: parse response")
	}

	scoreRaw, ok := top["overall_score"]
	if !ok {
		// Legacy responses used "score" before the schema settled.
		scoreRaw, ok = top["score"]
	}
	if !ok {
		return nil, eris.New("critique: missing overall_score")
	}
	var score float64
	if err := json.Unmarshal(scoreRaw, &score); err != nil {
		return nil, eris.Wrap(err, "critique: overall_score not numeric")
	}

	feedbackRaw, ok := top["feedback"]
	if !ok {
		return nil, eris.New("critique: missing feedback")
	}
	var feedback string
	if err := json.Unmarshal(feedbackRaw, &feedback); err != nil {
		return nil, eris.Wrap(err, "critique: feedback not a string")
	}

	criteriaRaw, ok := top["criteria"]
	if !ok {
		return nil, eris.New("critique: missing criteria")
	}

	suggestionsRaw, ok := top["suggestions"]
	if !ok {
		return nil, eris.New("critique: missing suggestions")
	}
	var suggestions []string
	if err := json.Unmarshal(suggestionsRaw, &suggestions); err != nil {
		return nil, eris.Wrap(err, "critique: suggestions not a string list")
	}

	criteria, repaired := repairCriteria(criteriaRaw)

	return &critique{
		Score:            boundScore(score),
		Feedback:         feedback,
		Criteria:         criteria,
		Suggestions:      suggestions,
		RepairedCriteria: repaired,
	}, nil
}

// repairCriteria backfills any absent or malformed criterion with a
// default entry. A repaired response still counts as valid; only the
// individual criterion degrades.
func repairCriteria(raw json.RawMessage) (map[string]model.CriterionScore, int) {
	var parsed map[string]json.RawMessage
	// A non-object criteria value repairs to all defaults.
	_ = json.Unmarshal(raw, &parsed)

	out := make(map[string]model.CriterionScore, len(model.CriterionNames))
	repaired := 0
	for _, name := range model.CriterionNames {
		entry, ok := parseCriterion(parsed[name])
		if !ok {
			entry = defaultCriterion(name)
			repaired++
		}
		out[name] = entry
	}
	return out, repaired
}

func parseCriterion(raw json.RawMessage) (model.CriterionScore, bool) {
	if raw == nil {
		return model.CriterionScore{}, false
	}
	var wire struct {
		Score   *float64 `json:"score"`
		Comment *string  `json:"comment"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil || wire.Score == nil || wire.Comment == nil {
		return model.CriterionScore{}, false
	}
	return model.CriterionScore{
		Score:   boundScore(*wire.Score),
		Comment: *wire.Comment,
	}, true
}

// boundScore forces a model-reported score into [1, 10] without
// re-rounding it; rounding is reserved for scores we derive ourselves.
func boundScore(x float64) float64 {
	if x < 1 {
		return 1
	}
	if x > 10 {
		return 10
	}
	return x
}

func defaultCriterion(name string) model.CriterionScore {
	return model.CriterionScore{
		Score:   5,
		Comment: name + " not evaluated",
	}
}

// fallbackCritique is the final tier: a complete critique synthesized
// from heuristic sub-scores alone. It cannot fail.
func fallbackCritique(h scorer.ObjectiveScores) critique {
	feedback := fmt.Sprintf(
		"Automated critique is unavailable; this evaluation uses heuristic scoring only. Heuristic total: %.1f/10.",
		h.Total,
	)
	if len(h.Notes) > 0 {
		feedback += " Notes: " + strings.Join(h.Notes, " ")
	}

	return critique{
		Score:    h.Total,
		Feedback: feedback,
		Criteria: map[string]model.CriterionScore{
			model.CriterionSpecific:   {Score: h.Clarity, Comment: "Estimated from heuristic clarity."},
			model.CriterionMeasurable: {Score: h.Focus, Comment: "Estimated from heuristic focus."},
			model.CriterionAchievable: {Score: scorer.Clamp(achievableMidpoint), Comment: "No achievability signal; midpoint assumed."},
			model.CriterionRelevant:   {Score: h.Focus, Comment: "Estimated from heuristic focus."},
			model.CriterionTimebound:  {Score: h.Writing, Comment: "Estimated from heuristic writing."},
		},
		Suggestions: defaultSuggestions,
	}
}

// extractJSON strips markdown code fences that models occasionally wrap
// around JSON payloads.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
