package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/okr-evaluator/internal/model"
	"github.com/sells-group/okr-evaluator/internal/store"
)

const (
	minTextLen = 5
	maxTextLen = 2000
)

type evaluateObjectiveRequest struct {
	Objective string `json:"objective"`
}

type evaluateKeyResultRequest struct {
	OkrID       string `json:"okr_id"`
	Definition  string `json:"kr_definition"`
	TargetValue string `json:"target_value"`
	TargetDate  string `json:"target_date"`
}

type submissionResponse struct {
	model.ObjectiveSubmission
	KeyResults []model.KeyResultSubmission `json:"key_results"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) evaluateObjective(w http.ResponseWriter, r *http.Request) {
	var req evaluateObjectiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validateText("objective", req.Objective); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	eval, err := h.evaluator.EvaluateObjective(r.Context(), req.Objective)
	if err != nil {
		zap.L().Error("objective evaluation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "evaluation failed")
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

func (h *Handler) evaluateKeyResult(w http.ResponseWriter, r *http.Request) {
	var req evaluateKeyResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := uuid.Parse(req.OkrID); err != nil {
		writeError(w, http.StatusBadRequest, "okr_id must be a valid uuid")
		return
	}
	if msg := validateText("kr_definition", req.Definition); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	eval, err := h.evaluator.EvaluateKeyResult(r.Context(), req.OkrID, req.Definition, req.TargetValue, req.TargetDate)
	if err != nil {
		zap.L().Error("key result evaluation failed",
			zap.String("okr_id", req.OkrID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "evaluation failed")
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

func (h *Handler) getSubmission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sub, krs, err := h.store.GetObjectiveSubmission(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "submission not found")
		return
	}
	if err != nil {
		zap.L().Error("get submission failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if krs == nil {
		krs = []model.KeyResultSubmission{}
	}
	writeJSON(w, http.StatusOK, submissionResponse{ObjectiveSubmission: *sub, KeyResults: krs})
}

func (h *Handler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	filter := store.SubmissionFilter{
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	subs, err := h.store.ListObjectiveSubmissions(r.Context(), filter)
	if err != nil {
		zap.L().Error("list submissions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if subs == nil {
		subs = []model.ObjectiveSubmission{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) deleteSubmission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.store.DeleteObjectiveSubmission(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "submission not found")
		return
	}
	if err != nil {
		zap.L().Error("delete submission failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// validateText enforces the shared length bounds on user-supplied text.
// Returns an error message, or "" when the text is acceptable.
func validateText(field, text string) string {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n < minTextLen {
		return field + " must be at least " + strconv.Itoa(minTextLen) + " characters"
	}
	if n > maxTextLen {
		return field + " must be at most " + strconv.Itoa(maxTextLen) + " characters"
	}
	return ""
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
