// Package evaluator orchestrates objective and key-result evaluation:
// heuristic scoring, LLM critique with tiered validation, persistence,
// and the normalized result returned to the caller. Every external
// failure is absorbed by exactly one fallback branch per call; the
// caller always receives a complete result.
package evaluator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/okr-evaluator/internal/gateway"
	"github.com/sells-group/okr-evaluator/internal/model"
	"github.com/sells-group/okr-evaluator/internal/scorer"
)

// keyResultThreshold gates progression: an objective (or previous key
// result) must score at least this to unlock the next key result.
const keyResultThreshold = 7.5

// SubmissionStore is the persistence surface the evaluator needs.
// Implemented by store.Store.
type SubmissionStore interface {
	InsertObjectiveSubmission(ctx context.Context, sub model.ObjectiveSubmission) error
	InsertKeyResultSubmission(ctx context.Context, sub model.KeyResultSubmission) error
}

// Evaluator coordinates the scoring engine, the completion gateway and
// the submission store.
type Evaluator struct {
	completer gateway.Completer
	store     SubmissionStore
	engine    *scorer.Engine
}

// New creates an Evaluator with injected collaborators.
func New(completer gateway.Completer, store SubmissionStore, engine *scorer.Engine) *Evaluator {
	return &Evaluator{completer: completer, store: store, engine: engine}
}

// EvaluateObjective scores an objective heuristically, obtains and
// validates an LLM SMART critique (falling back to heuristics when the
// provider or its response fails), persists the submission, and returns
// the merged evaluation.
func (e *Evaluator) EvaluateObjective(ctx context.Context, objective string) (*model.ObjectiveEvaluation, error) {
	heur := e.engine.ScoreObjective(objective)

	c := e.critiqueObjective(ctx, objective, heur)

	id := uuid.New().String()
	sub := model.ObjectiveSubmission{
		ID:        id,
		Objective: objective,
		Clarity:   heur.Clarity,
		Focus:     heur.Focus,
		Writing:   heur.Writing,
		Score:     heur.Total,
		Feedback:  c.Feedback,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.store.InsertObjectiveSubmission(ctx, sub); err != nil {
		// The evaluation is still returned; the write failure only
		// costs us the stored record.
		zap.L().Error("persist objective submission failed",
			zap.String("okr_id", id),
			zap.Error(err),
		)
	}

	return &model.ObjectiveEvaluation{
		OkrID: id,
		Score: c.Score,
		Breakdown: model.ObjectiveBreakdown{
			Clarity: heur.Clarity,
			Focus:   heur.Focus,
			Writing: heur.Writing,
		},
		Feedback:         c.Feedback,
		Criteria:         c.Criteria,
		Suggestions:      c.Suggestions,
		CanAddKeyResults: c.Score >= keyResultThreshold,
	}, nil
}

// critiqueObjective runs the three-tier ladder: provider call, strict
// parse with per-criterion repair, full heuristic fallback.
func (e *Evaluator) critiqueObjective(ctx context.Context, objective string, heur scorer.ObjectiveScores) critique {
	raw, err := e.completer.Complete(ctx, systemPersona, objectivePrompt(objective, heur.Notes))
	if err != nil {
		zap.L().Warn("objective critique unavailable, using heuristic fallback", zap.Error(err))
		return fallbackCritique(heur)
	}

	parsed, err := parseCritique(raw)
	if err != nil {
		zap.L().Warn("objective critique malformed, using heuristic fallback", zap.Error(err))
		return fallbackCritique(heur)
	}

	if parsed.RepairedCriteria > 0 {
		zap.L().Info("objective critique repaired",
			zap.Int("criteria_backfilled", parsed.RepairedCriteria),
		)
	}
	return *parsed
}

// EvaluateKeyResult scores a key result heuristically, asks for a short
// free-text critique, persists the submission under objectiveID and
// returns the evaluation. A gateway failure degrades the feedback text
// only; scoring and persistence proceed regardless.
func (e *Evaluator) EvaluateKeyResult(ctx context.Context, objectiveID, definition, targetValue, targetDate string) (*model.KeyResultEvaluation, error) {
	heur := e.engine.ScoreKeyResult(definition, targetValue, targetDate)

	feedback, err := e.completer.Complete(ctx, systemPersona,
		keyResultPrompt(definition, targetValue, targetDate, heur.Notes))
	if err != nil || strings.TrimSpace(feedback) == "" {
		if err != nil {
			zap.L().Warn("key result critique unavailable, using placeholder", zap.Error(err))
		}
		feedback = keyResultPlaceholder(heur)
	}

	id := uuid.New().String()
	sub := model.KeyResultSubmission{
		ID:            id,
		ObjectiveID:   objectiveID,
		Definition:    definition,
		TargetValue:   targetValue,
		TargetDate:    targetDate,
		Clarity:       heur.Clarity,
		Measurability: heur.Measurability,
		Feasibility:   heur.Feasibility,
		Score:         heur.Total,
		Feedback:      feedback,
		CreatedAt:     time.Now().UTC(),
	}
	if err := e.store.InsertKeyResultSubmission(ctx, sub); err != nil {
		zap.L().Error("persist key result submission failed",
			zap.String("key_result_id", id),
			zap.String("okr_id", objectiveID),
			zap.Error(err),
		)
	}

	return &model.KeyResultEvaluation{
		KeyResultID: id,
		Score:       heur.Total,
		Breakdown: model.KeyResultBreakdown{
			Clarity:       heur.Clarity,
			Measurability: heur.Measurability,
			Feasibility:   heur.Feasibility,
		},
		Feedback:           feedback,
		AllowNextKeyResult: heur.Total >= keyResultThreshold,
	}, nil
}

func keyResultPlaceholder(heur scorer.KeyResultScores) string {
	feedback := fmt.Sprintf(
		"Automated critique is temporarily unavailable. Heuristic score: %.1f/10.", heur.Total)
	if len(heur.Notes) > 0 {
		feedback += " Notes: " + strings.Join(heur.Notes, " ")
	}
	return feedback
}
