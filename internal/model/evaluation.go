package model

// Criterion names used for the SMART critique. Every critique carries
// exactly this set after validation.
const (
	CriterionSpecific   = "specific"
	CriterionMeasurable = "measurable"
	CriterionAchievable = "achievable"
	CriterionRelevant   = "relevant"
	CriterionTimebound  = "timebound"
)

// CriterionNames lists the five SMART criteria in canonical order.
var CriterionNames = []string{
	CriterionSpecific,
	CriterionMeasurable,
	CriterionAchievable,
	CriterionRelevant,
	CriterionTimebound,
}

// CriterionScore holds the score and comment for one SMART criterion.
type CriterionScore struct {
	Score   float64 `json:"score"`
	Comment string  `json:"comment"`
}

// ObjectiveBreakdown holds the heuristic sub-scores for an objective.
type ObjectiveBreakdown struct {
	Clarity float64 `json:"clarity"`
	Focus   float64 `json:"focus"`
	Writing float64 `json:"writing"`
}

// KeyResultBreakdown holds the heuristic sub-scores for a key result.
type KeyResultBreakdown struct {
	Clarity       float64 `json:"clarity"`
	Measurability float64 `json:"measurability"`
	Feasibility   float64 `json:"feasibility"`
}

// ObjectiveEvaluation is the normalized result returned to the caller
// after evaluating an objective. It is always fully populated, even when
// the LLM critique was unavailable or malformed.
type ObjectiveEvaluation struct {
	OkrID            string                    `json:"okr_id"`
	Score            float64                   `json:"score"`
	Breakdown        ObjectiveBreakdown        `json:"breakdown"`
	Feedback         string                    `json:"feedback"`
	Criteria         map[string]CriterionScore `json:"criteria"`
	Suggestions      []string                  `json:"suggestions"`
	CanAddKeyResults bool                      `json:"can_add_krs"`
}

// KeyResultEvaluation is the normalized result returned to the caller
// after evaluating a key result.
type KeyResultEvaluation struct {
	KeyResultID        string             `json:"key_result_id"`
	Score              float64            `json:"score"`
	Breakdown          KeyResultBreakdown `json:"breakdown"`
	Feedback           string             `json:"feedback"`
	AllowNextKeyResult bool               `json:"allow_next_kr"`
}
