// Package api exposes the OKR evaluation service over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/okr-evaluator/internal/model"
	"github.com/sells-group/okr-evaluator/internal/ratelimit"
	"github.com/sells-group/okr-evaluator/internal/store"
)

// Evaluator is the orchestration surface the handlers call into.
// Implemented by evaluator.Evaluator.
type Evaluator interface {
	EvaluateObjective(ctx context.Context, objective string) (*model.ObjectiveEvaluation, error)
	EvaluateKeyResult(ctx context.Context, objectiveID, definition, targetValue, targetDate string) (*model.KeyResultEvaluation, error)
}

// Handler holds the collaborators behind the HTTP surface.
type Handler struct {
	evaluator Evaluator
	store     store.Store
}

// NewRouter wires the routes. Evaluation endpoints sit behind the rate
// governor; read and delete endpoints do not.
func NewRouter(ev Evaluator, st store.Store, governor ratelimit.Governor, corsOrigins []string) http.Handler {
	h := &Handler{evaluator: ev, store: st}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.health)

	r.Route("/api/v1/okrs", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(ratelimit.Middleware(governor))
			r.Post("/evaluate", h.evaluateObjective)
			r.Post("/kr/evaluate", h.evaluateKeyResult)
		})
		r.Get("/", h.listSubmissions)
		r.Get("/{id}", h.getSubmission)
		r.Delete("/{id}", h.deleteSubmission)
	})

	return r
}
