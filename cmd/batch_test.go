package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/okr-evaluator/internal/model"
)

const batchYAML = `objectives:
  - objective: "Reduce customer churn by 10% in Q3"
    key_results:
      - definition: "Raise NPS from 40 to 55"
        target_value: "55"
        target_date: "2026-09-30"
      - definition: "Cut monthly cancellations to under 200"
        target_value: "200"
  - objective: "Become the most trusted brand in the region"
`

type recordingEvaluator struct {
	mu         sync.Mutex
	objectives []string
	keyResults []string
	failOn     string
}

func (r *recordingEvaluator) EvaluateObjective(_ context.Context, objective string) (*model.ObjectiveEvaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if objective == r.failOn {
		return nil, eris.New("boom")
	}
	r.objectives = append(r.objectives, objective)
	return &model.ObjectiveEvaluation{OkrID: "obj-" + objective[:4], Score: 7.0}, nil
}

func (r *recordingEvaluator) EvaluateKeyResult(_ context.Context, objectiveID, definition, _, _ string) (*model.KeyResultEvaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keyResults = append(r.keyResults, objectiveID+"/"+definition)
	return &model.KeyResultEvaluation{KeyResultID: "kr-1", Score: 6.5}, nil
}

func writeBatchFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBatchFile(t *testing.T) {
	items, err := loadBatchFile(writeBatchFile(t, batchYAML))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Reduce customer churn by 10% in Q3", items[0].Objective)
	require.Len(t, items[0].KeyResults, 2)
	assert.Equal(t, "55", items[0].KeyResults[0].TargetValue)
	assert.Empty(t, items[1].KeyResults)
}

func TestLoadBatchFile_Missing(t *testing.T) {
	_, err := loadBatchFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch: read")
}

func TestLoadBatchFile_Malformed(t *testing.T) {
	_, err := loadBatchFile(writeBatchFile(t, "objectives: {not: [a, list"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch: parse")
}

func TestProcessBatch(t *testing.T) {
	items, err := loadBatchFile(writeBatchFile(t, batchYAML))
	require.NoError(t, err)

	ev := &recordingEvaluator{}
	require.NoError(t, processBatch(context.Background(), items, 0, 3, ev))

	assert.Len(t, ev.objectives, 2)
	// Key results carry the id of their parent objective's evaluation.
	assert.Contains(t, ev.keyResults, "obj-Redu/Raise NPS from 40 to 55")
	assert.Len(t, ev.keyResults, 2)
}

func TestProcessBatch_Limit(t *testing.T) {
	items, err := loadBatchFile(writeBatchFile(t, batchYAML))
	require.NoError(t, err)

	ev := &recordingEvaluator{}
	require.NoError(t, processBatch(context.Background(), items, 1, 2, ev))
	assert.Len(t, ev.objectives, 1)
}

func TestProcessBatch_FailureDoesNotAbort(t *testing.T) {
	items, err := loadBatchFile(writeBatchFile(t, batchYAML))
	require.NoError(t, err)

	ev := &recordingEvaluator{failOn: "Reduce customer churn by 10% in Q3"}
	require.NoError(t, processBatch(context.Background(), items, 0, 2, ev))

	// The other objective still ran; the failed one's key results were skipped.
	assert.Equal(t, []string{"Become the most trusted brand in the region"}, ev.objectives)
	assert.Empty(t, ev.keyResults)
}

func TestProcessBatch_Empty(t *testing.T) {
	ev := &recordingEvaluator{}
	require.NoError(t, processBatch(context.Background(), nil, 0, 2, ev))
	assert.Empty(t, ev.objectives)
}
