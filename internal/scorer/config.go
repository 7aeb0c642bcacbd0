// Package scorer implements the deterministic heuristic scoring of OKR
// objectives and key results. All scoring is pure: no I/O, no logging,
// same input always yields the same result.
package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Config holds the tunable inputs of the heuristic rules: keyword lists
// and length limits. Scores and baselines are fixed by the rules
// themselves.
type Config struct {
	// Length limits (characters / runes).
	MinObjectiveLen int `yaml:"min_objective_len" mapstructure:"min_objective_len"`
	MaxObjectiveLen int `yaml:"max_objective_len" mapstructure:"max_objective_len"`
	MinKeyResultLen int `yaml:"min_key_result_len" mapstructure:"min_key_result_len"`

	// Objective keywords.
	OutcomeVerbs      []string `yaml:"outcome_verbs" mapstructure:"outcome_verbs"`
	TaskVerbs         []string `yaml:"task_verbs" mapstructure:"task_verbs"`
	PurposeConnectors []string `yaml:"purpose_connectors" mapstructure:"purpose_connectors"`
	Conjunctions      []string `yaml:"conjunctions" mapstructure:"conjunctions"`
	TimeboxTerms      []string `yaml:"timebox_terms" mapstructure:"timebox_terms"`
	ComparisonWords   []string `yaml:"comparison_words" mapstructure:"comparison_words"`
	VagueIntensifiers []string `yaml:"vague_intensifiers" mapstructure:"vague_intensifiers"`

	// Key-result keywords.
	ImpactVerbs       []string `yaml:"impact_verbs" mapstructure:"impact_verbs"`
	UnitTokens        []string `yaml:"unit_tokens" mapstructure:"unit_tokens"`
	VagueQualityWords []string `yaml:"vague_quality_words" mapstructure:"vague_quality_words"`
}

// DefaultConfig returns the stock heuristic configuration.
func DefaultConfig() Config {
	return Config{
		MinObjectiveLen: 15,
		MaxObjectiveLen: 500,
		MinKeyResultLen: 20,

		OutcomeVerbs: []string{
			"improve", "elevate", "reduce", "accelerate", "consolidate",
			"expand", "increase", "grow",
		},
		TaskVerbs: []string{
			"configure", "install", "implement", "deploy", "set up",
		},
		PurposeConnectors: []string{
			"in order to", "so that", "with the goal of", "to achieve",
		},
		Conjunctions: []string{"and", "plus"},
		TimeboxTerms: []string{
			"quarter", "12 weeks", "90 days", "by end of",
		},
		ComparisonWords: []string{
			"better", "more", "less", "fewer", "faster",
		},
		VagueIntensifiers: []string{
			"significantly", "substantially", "considerably",
		},

		ImpactVerbs: []string{
			"increase", "reduce", "reach", "achieve", "grow", "cut",
			"raise", "lower", "improve",
		},
		UnitTokens: []string{
			"%", "pts", "points", "$", "€", "usd", "eur", "ms", "min",
			"hours", "cases", "tickets", "nps", "csat", "ttfr", "mttr",
		},
		VagueQualityWords: []string{
			"quality", "better", "optimal", "optimize", "efficient",
		},
	}
}

// Validate checks that a Config is internally consistent.
func Validate(c Config) error {
	var errs []string

	if c.MinObjectiveLen <= 0 {
		errs = append(errs, "min_objective_len must be > 0")
	}
	if c.MaxObjectiveLen <= c.MinObjectiveLen {
		errs = append(errs, "max_objective_len must be > min_objective_len")
	}
	if c.MinKeyResultLen <= 0 {
		errs = append(errs, "min_key_result_len must be > 0")
	}

	lists := map[string][]string{
		"outcome_verbs": c.OutcomeVerbs,
		"impact_verbs":  c.ImpactVerbs,
		"unit_tokens":   c.UnitTokens,
	}
	for name, l := range lists {
		if len(l) == 0 {
			errs = append(errs, fmt.Sprintf("%s must not be empty", name))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
