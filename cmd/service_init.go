package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/okr-evaluator/internal/evaluator"
	"github.com/sells-group/okr-evaluator/internal/gateway"
	"github.com/sells-group/okr-evaluator/internal/ratelimit"
	"github.com/sells-group/okr-evaluator/internal/scorer"
	"github.com/sells-group/okr-evaluator/internal/store"
	"github.com/sells-group/okr-evaluator/pkg/anthropic"
)

// serviceEnv bundles the long-lived collaborators a command needs.
type serviceEnv struct {
	Store     store.Store
	Evaluator *evaluator.Evaluator
	Governor  ratelimit.Governor

	redisGov *ratelimit.RedisGovernor
}

// openStore selects the store implementation from config.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}

// initService builds the evaluation stack: store, scoring engine,
// completion gateway and rate governor.
func initService(ctx context.Context) (*serviceEnv, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "init: open store")
	}

	engine, err := scorer.NewEngine(scorer.DefaultConfig())
	if err != nil {
		st.Close()
		return nil, eris.Wrap(err, "init: scoring engine")
	}

	client := anthropic.NewClient(cfg.Anthropic.Key)
	gw := gateway.NewAnthropic(client, cfg.Anthropic)

	env := &serviceEnv{
		Store:     st,
		Evaluator: evaluator.New(gw, st, engine),
		Governor:  ratelimit.NewNoop(),
	}

	if cfg.RateLimit.RedisURL != "" {
		gov, err := ratelimit.NewRedisGovernor(cfg.RateLimit)
		if err != nil {
			st.Close()
			return nil, eris.Wrap(err, "init: rate governor")
		}
		env.Governor = gov
		env.redisGov = gov
	} else {
		zap.L().Info("rate limiting disabled, no redis_url configured")
	}

	return env, nil
}

func (e *serviceEnv) Close() {
	if e.redisGov != nil {
		if err := e.redisGov.Close(); err != nil {
			zap.L().Warn("close rate governor", zap.Error(err))
		}
	}
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}
