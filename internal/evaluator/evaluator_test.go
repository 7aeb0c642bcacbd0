package evaluator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/okr-evaluator/internal/gateway"
	"github.com/sells-group/okr-evaluator/internal/model"
	"github.com/sells-group/okr-evaluator/internal/scorer"
)

// stubCompleter returns a canned completion or error.
type stubCompleter struct {
	response string
	err      error

	lastSystem string
	lastUser   string
}

func (s *stubCompleter) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	s.lastSystem = systemPrompt
	s.lastUser = userPrompt
	return s.response, s.err
}

// stubStore records inserts and optionally fails them.
type stubStore struct {
	objectives []model.ObjectiveSubmission
	keyResults []model.KeyResultSubmission
	err        error
}

func (s *stubStore) InsertObjectiveSubmission(_ context.Context, sub model.ObjectiveSubmission) error {
	s.objectives = append(s.objectives, sub)
	return s.err
}

func (s *stubStore) InsertKeyResultSubmission(_ context.Context, sub model.KeyResultSubmission) error {
	s.keyResults = append(s.keyResults, sub)
	return s.err
}

func newTestEvaluator(t *testing.T, completer gateway.Completer, st SubmissionStore) *Evaluator {
	t.Helper()
	engine, err := scorer.NewEngine(scorer.DefaultConfig())
	require.NoError(t, err)
	return New(completer, st, engine)
}

const testObjective = "Reduce customer churn by 10% in Q3 through proactive outreach."

func TestEvaluateObjective_ValidCritique(t *testing.T) {
	completer := &stubCompleter{response: validCritiqueJSON}
	st := &stubStore{}
	e := newTestEvaluator(t, completer, st)

	res, err := e.EvaluateObjective(context.Background(), testObjective)
	require.NoError(t, err)

	assert.InDelta(t, 8.2, res.Score, 0.001)
	assert.True(t, res.CanAddKeyResults)
	assert.NotEmpty(t, res.OkrID)
	assert.Len(t, res.Criteria, 5)
	assert.Len(t, res.Suggestions, 3)
	assert.Equal(t, systemPersona, completer.lastSystem)
	assert.Contains(t, completer.lastUser, testObjective)

	// Persisted scores are the heuristic ones, not the model's.
	require.Len(t, st.objectives, 1)
	sub := st.objectives[0]
	assert.Equal(t, res.OkrID, sub.ID)
	assert.Equal(t, res.Breakdown.Clarity, sub.Clarity)
	assert.Equal(t, res.Breakdown.Focus, sub.Focus)
	assert.Equal(t, res.Breakdown.Writing, sub.Writing)
	assert.NotEqual(t, res.Score, sub.Score)
	assert.Equal(t, res.Feedback, sub.Feedback)
}

func TestEvaluateObjective_MalformedResponseStillComplete(t *testing.T) {
	completer := &stubCompleter{response: "sure! here are my thoughts..."}
	st := &stubStore{}
	e := newTestEvaluator(t, completer, st)

	res, err := e.EvaluateObjective(context.Background(), testObjective)
	require.NoError(t, err)

	require.Len(t, res.Criteria, 5)
	for _, name := range model.CriterionNames {
		entry, ok := res.Criteria[name]
		require.True(t, ok, name)
		assert.GreaterOrEqual(t, entry.Score, 1.0, name)
		assert.LessOrEqual(t, entry.Score, 10.0, name)
		assert.NotEmpty(t, entry.Comment, name)
	}
	assert.NotEmpty(t, res.Feedback)
	assert.NotEmpty(t, res.Suggestions)
	require.Len(t, st.objectives, 1)
}

func TestEvaluateObjective_ProviderErrorFallsBack(t *testing.T) {
	completer := &stubCompleter{err: &gateway.ProviderError{Err: errors.New("quota exhausted")}}
	st := &stubStore{}
	e := newTestEvaluator(t, completer, st)

	res, err := e.EvaluateObjective(context.Background(), testObjective)
	require.NoError(t, err)

	// Fallback score is the heuristic total.
	require.Len(t, st.objectives, 1)
	assert.Equal(t, st.objectives[0].Score, res.Score)
	assert.Len(t, res.Criteria, 5)
	assert.Equal(t, defaultSuggestions, res.Suggestions)
	assert.NotContains(t, res.Feedback, "quota exhausted")
}

func TestEvaluateObjective_PersistFailureNotFatal(t *testing.T) {
	completer := &stubCompleter{response: validCritiqueJSON}
	st := &stubStore{err: errors.New("connection refused")}
	e := newTestEvaluator(t, completer, st)

	res, err := e.EvaluateObjective(context.Background(), testObjective)
	require.NoError(t, err)
	assert.InDelta(t, 8.2, res.Score, 0.001)
}

func TestEvaluateObjective_CanAddKeyResultsBoundary(t *testing.T) {
	tests := []struct {
		score float64
		want  bool
	}{
		{7.5, true},
		{7.49, false},
		{9.1, true},
		{2.0, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.2f", tt.score), func(t *testing.T) {
			raw := fmt.Sprintf(`{"overall_score":%v,"feedback":"x","criteria":{},"suggestions":["a"]}`, tt.score)
			e := newTestEvaluator(t, &stubCompleter{response: raw}, &stubStore{})

			res, err := e.EvaluateObjective(context.Background(), testObjective)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.CanAddKeyResults)
		})
	}
}

func TestEvaluateKeyResult_HappyPath(t *testing.T) {
	completer := &stubCompleter{response: "- Quantify the target\n- Add a baseline"}
	st := &stubStore{}
	e := newTestEvaluator(t, completer, st)

	res, err := e.EvaluateKeyResult(context.Background(), "okr-123",
		"Increase NPS from 40 to 55", "55 points", "2026-09-30")
	require.NoError(t, err)

	assert.Equal(t, "- Quantify the target\n- Add a baseline", res.Feedback)
	assert.NotEmpty(t, res.KeyResultID)
	assert.Equal(t, res.Score >= 7.5, res.AllowNextKeyResult)

	require.Len(t, st.keyResults, 1)
	sub := st.keyResults[0]
	assert.Equal(t, "okr-123", sub.ObjectiveID)
	assert.Equal(t, res.Score, sub.Score)
	assert.Equal(t, res.Breakdown.Measurability, sub.Measurability)
}

func TestEvaluateKeyResult_GatewayFailureDegradesFeedbackOnly(t *testing.T) {
	completer := &stubCompleter{err: &gateway.ProviderError{Err: errors.New("timeout")}}
	st := &stubStore{}
	e := newTestEvaluator(t, completer, st)

	res, err := e.EvaluateKeyResult(context.Background(), "okr-123",
		"Increase NPS from 40 to 55", "55 points", "2026-09-30")
	require.NoError(t, err)

	assert.Contains(t, res.Feedback, "temporarily unavailable")
	assert.NotContains(t, res.Feedback, "timeout")
	assert.GreaterOrEqual(t, res.Score, 1.0)
	assert.LessOrEqual(t, res.Score, 10.0)

	// Persistence still happened with the placeholder feedback.
	require.Len(t, st.keyResults, 1)
	assert.Equal(t, res.Feedback, st.keyResults[0].Feedback)
}

func TestEvaluateKeyResult_EmptyCompletionGetsPlaceholder(t *testing.T) {
	completer := &stubCompleter{response: "   "}
	e := newTestEvaluator(t, completer, &stubStore{})

	res, err := e.EvaluateKeyResult(context.Background(), "okr-123",
		"Increase NPS from 40 to 55", "55", "2026-09-30")
	require.NoError(t, err)
	assert.Contains(t, res.Feedback, "temporarily unavailable")
}
