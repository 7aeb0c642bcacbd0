package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/okr-evaluator/internal/model"
)

var batchLimit int

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Evaluate a YAML file of objectives and key results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initService(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.Migrate(ctx); err != nil {
			return eris.Wrap(err, "batch: migrate")
		}

		items, err := loadBatchFile(args[0])
		if err != nil {
			return err
		}

		return processBatch(ctx, items, batchLimit, cfg.Batch.MaxConcurrent, env.Evaluator)
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of objectives to process (0 = all)")
	rootCmd.AddCommand(batchCmd)
}

type batchKeyResult struct {
	Definition  string `yaml:"definition"`
	TargetValue string `yaml:"target_value"`
	TargetDate  string `yaml:"target_date"`
}

type batchObjective struct {
	Objective  string           `yaml:"objective"`
	KeyResults []batchKeyResult `yaml:"key_results"`
}

type batchFile struct {
	Objectives []batchObjective `yaml:"objectives"`
}

func loadBatchFile(path string) ([]batchObjective, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: read %s", path)
	}
	var f batchFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, eris.Wrapf(err, "batch: parse %s", path)
	}
	return f.Objectives, nil
}

// batchEvaluator is the evaluation surface processBatch needs.
type batchEvaluator interface {
	EvaluateObjective(ctx context.Context, objective string) (*model.ObjectiveEvaluation, error)
	EvaluateKeyResult(ctx context.Context, objectiveID, definition, targetValue, targetDate string) (*model.KeyResultEvaluation, error)
}

// processBatch applies limit, then evaluates objectives concurrently.
// Key results are evaluated after their objective so they attach to its
// submission id. Individual failures are logged, never fatal.
func processBatch(ctx context.Context, items []batchObjective, limit, concurrency int, ev batchEvaluator) error {
	if len(items) == 0 {
		zap.L().Info("no objectives in batch file")
		return nil
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("objectives", len(items)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for _, item := range items {
		g.Go(func() error {
			log := zap.L().With(zap.String("objective", item.Objective))

			eval, err := ev.EvaluateObjective(gctx, item.Objective)
			if err != nil {
				failed.Add(1)
				log.Error("objective evaluation failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}
			succeeded.Add(1)
			log.Info("objective evaluated",
				zap.String("okr_id", eval.OkrID),
				zap.Float64("score", eval.Score),
			)

			for _, kr := range item.KeyResults {
				krEval, err := ev.EvaluateKeyResult(gctx, eval.OkrID, kr.Definition, kr.TargetValue, kr.TargetDate)
				if err != nil {
					failed.Add(1)
					log.Error("key result evaluation failed",
						zap.String("definition", kr.Definition),
						zap.Error(err),
					)
					continue
				}
				succeeded.Add(1)
				log.Info("key result evaluated",
					zap.String("key_result_id", krEval.KeyResultID),
					zap.Float64("score", krEval.Score),
				)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch: wait")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}
