package scorer

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
)

// ObjectiveScores holds the heuristic result for one objective.
type ObjectiveScores struct {
	Clarity float64  `json:"clarity"`
	Focus   float64  `json:"focus"`
	Writing float64  `json:"writing"`
	Total   float64  `json:"total"`
	Notes   []string `json:"notes,omitempty"`
}

// KeyResultScores holds the heuristic result for one key result.
type KeyResultScores struct {
	Clarity       float64  `json:"clarity"`
	Measurability float64  `json:"measurability"`
	Feasibility   float64  `json:"feasibility"`
	Total         float64  `json:"total"`
	Notes         []string `json:"notes,omitempty"`
}

// Clamp bounds a score to [1.0, 10.0] and rounds it to one decimal.
// Every sub-score and aggregate in the system passes through this
// function exactly once at the point it is produced.
func Clamp(x float64) float64 {
	return math.Round(math.Max(1.0, math.Min(10.0, x))*10) / 10
}

// Engine evaluates objective and key-result text against the configured
// heuristic rules. Matchers are compiled once at construction.
type Engine struct {
	cfg Config

	outcomeRe    *regexp.Regexp
	taskRe       *regexp.Regexp
	purposeRe    *regexp.Regexp
	conjRe       *regexp.Regexp
	timeboxRe    *regexp.Regexp
	comparisonRe *regexp.Regexp
	vagueRe      *regexp.Regexp

	impactRe       *regexp.Regexp
	unitRe         *regexp.Regexp
	vagueQualityRe *regexp.Regexp

	terminalRe *regexp.Regexp
	digitRe    *regexp.Regexp
	concreteRe *regexp.Regexp
}

// NewEngine builds an Engine from cfg. The config is validated first.
func NewEngine(cfg Config) (*Engine, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	e := &Engine{cfg: cfg}

	compiled := []struct {
		dst     **regexp.Regexp
		pattern string
	}{
		{&e.outcomeRe, termsPattern(cfg.OutcomeVerbs)},
		{&e.taskRe, termsPattern(cfg.TaskVerbs)},
		{&e.purposeRe, termsPattern(cfg.PurposeConnectors)},
		{&e.conjRe, termsPattern(cfg.Conjunctions) + `|&`},
		{&e.timeboxRe, `(?i)\bq[1-4]\b|` + termsPattern(cfg.TimeboxTerms)},
		{&e.comparisonRe, termsPattern(cfg.ComparisonWords)},
		{&e.vagueRe, termsPattern(cfg.VagueIntensifiers)},
		{&e.impactRe, termsPattern(cfg.ImpactVerbs)},
		{&e.unitRe, termsPattern(cfg.UnitTokens)},
		{&e.vagueQualityRe, termsPattern(cfg.VagueQualityWords)},
		{&e.terminalRe, `[.!?]$`},
		{&e.digitRe, `[0-9]`},
		{&e.concreteRe, `[0-9]|%`},
	}
	for _, c := range compiled {
		re, err := regexp.Compile(c.pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "scorer: compile pattern %q", c.pattern)
		}
		*c.dst = re
	}

	return e, nil
}

// ScoreObjective scores free-text objective wording. Out-of-range length
// is flagged through notes, never as an error.
func (e *Engine) ScoreObjective(text string) ObjectiveScores {
	clean := sanitize(text)
	var notes []string

	n := len([]rune(clean))
	if n < e.cfg.MinObjectiveLen {
		notes = append(notes, "Objective is too short.")
	}
	if n > e.cfg.MaxObjectiveLen {
		notes = append(notes, "Objective is too long; tighten it.")
	}

	clarity := 5.0
	if e.outcomeRe.MatchString(clean) {
		clarity += 2
	}
	if e.purposeRe.MatchString(clean) {
		clarity += 1
	}
	if e.terminalRe.MatchString(clean) {
		clarity += 0.5
	}
	if e.taskRe.MatchString(clean) {
		clarity -= 1
		notes = append(notes, "Avoid task verbs; focus on impact and outcome.")
	}
	clarityScore := Clamp(clarity / 1.2)

	focus := 6.0
	if len(e.conjRe.FindAllString(clean, -1)) > 2 {
		focus -= 1.5
		notes = append(notes, "Too many fronts; narrow the scope.")
	}
	if e.timeboxRe.MatchString(clean) {
		focus += 1
	}
	focusScore := Clamp(focus)

	writing := 6.0
	if e.comparisonRe.MatchString(clean) {
		writing += 0.5
	}
	if e.vagueRe.MatchString(clean) {
		writing -= 0.5
		notes = append(notes, "Avoid vague terms like 'significantly'.")
	}
	if leadingUpper(clean) {
		writing += 0.3
	}
	writingScore := Clamp(writing)

	return ObjectiveScores{
		Clarity: clarityScore,
		Focus:   focusScore,
		Writing: writingScore,
		Total:   Clamp((clarityScore + focusScore + writingScore) / 3.0),
		Notes:   notes,
	}
}

// ScoreKeyResult scores a key-result definition together with its target
// value and target date text. The date only needs to parse as a calendar
// date; whether it is sensible is left to the critique.
func (e *Engine) ScoreKeyResult(definition, targetValue, targetDate string) KeyResultScores {
	clean := sanitize(definition)
	combined := clean + " " + sanitize(targetValue)
	var notes []string

	clarity := 6.0
	if len([]rune(clean)) < e.cfg.MinKeyResultLen {
		clarity -= 1.5
		notes = append(notes, "Key result is too short.")
	}
	if !e.impactRe.MatchString(clean) {
		clarity -= 0.5
		notes = append(notes, "Use impact verbs ('increase', 'reduce', 'achieve').")
	}
	clarityScore := Clamp(clarity)

	measurability := 5.5
	if e.digitRe.MatchString(combined) {
		measurability += 2
	}
	if e.unitRe.MatchString(combined) {
		measurability += 1
	}
	if e.vagueQualityRe.MatchString(clean) && !e.concreteRe.MatchString(combined) {
		measurability -= 1
		notes = append(notes, "Add a concrete metric (%, units, time).")
	}
	measurabilityScore := Clamp(measurability)

	feasibility := 6.0
	if !validDate(targetDate) {
		feasibility -= 1.5
		notes = append(notes, "Target date is not a valid date.")
	}
	feasibilityScore := Clamp(feasibility)

	return KeyResultScores{
		Clarity:       clarityScore,
		Measurability: measurabilityScore,
		Feasibility:   feasibilityScore,
		Total:         Clamp((clarityScore + measurabilityScore + feasibilityScore) / 3.0),
		Notes:         notes,
	}
}

// sanitize trims whitespace and NFC-normalizes the input so rune counts
// and keyword matches are stable across input encodings.
func sanitize(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

func leadingUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

// dateLayouts are the accepted target-date formats, most common first.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func validDate(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// termsPattern builds a case-insensitive alternation for the given terms.
// Terms that begin or end with a word character get \b anchors; symbol
// tokens like "%" or "$" match anywhere.
func termsPattern(terms []string) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		if t == "" {
			continue
		}
		quoted := regexp.QuoteMeta(t)
		runes := []rune(t)
		if isWordRune(runes[0]) {
			quoted = `\b` + quoted
		}
		if isWordRune(runes[len(runes)-1]) {
			quoted += `\b`
		}
		parts = append(parts, quoted)
	}
	if len(parts) == 0 {
		// Matches nothing.
		return `\b\B`
	}
	return `(?i)(?:` + strings.Join(parts, "|") + `)`
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
