package ui

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"goannotate/app"
	"goannotate/domain/core"
	"goannotate/domain/feedback"
	"goannotate/domain/trace"
)

func (a *App) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error("Failed to encode response: %v", err)
	}
}

// writeError maps domain errors to HTTP status codes.
func (a *App) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case core.IsNotFoundError(err):
		status = http.StatusNotFound
	case core.IsConfigError(err),
		errors.Is(err, core.ErrNoMatches),
		errors.Is(err, core.ErrJudgmentFailure):
		status = http.StatusBadRequest
	case core.IsConsistencyError(err):
		status = http.StatusConflict
	}
	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleActivateConfig parses a config document, generates its test case
// population, and makes it the active config. A config matching zero raw
// inputs is rejected with 400 and nothing is persisted.
func (a *App) handleActivateConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		a.writeError(w, err)
		return
	}
	cfg, err := feedback.ParseConfig(body)
	if err != nil {
		a.writeError(w, err)
		return
	}

	result, err := a.session.ActivateConfig(r.Context(), cfg)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, result)
}

func (a *App) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.session.ActiveConfig(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, cfg)
}

func (a *App) handleGetTestCase(w http.ResponseWriter, r *http.Request) {
	id := core.TestCaseID(chi.URLParam(r, "id"))
	tc, err := a.session.GetTestCase(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, tc)
}

// handleNextTestCase returns the oldest AI-annotated case awaiting a human
// verdict.
func (a *App) handleNextTestCase(w http.ResponseWriter, r *http.Request) {
	tc, err := a.session.NextForAnnotation(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, tc)
}

func (a *App) handleHumanAnnotation(w http.ResponseWriter, r *http.Request) {
	id := core.TestCaseID(chi.URLParam(r, "id"))

	var req app.HumanAnnotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.AnnotatorID == "" {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "annotator_id is required"})
		return
	}

	tc, err := a.session.SubmitHumanAnnotation(r.Context(), id, req)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, tc)
}

// handleStats recomputes and returns the active config's agreement snapshot.
func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.session.ActiveConfig(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	stats, err := a.session.RefreshStats(r.Context(), cfg.ID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, stats)
}

// handleInteractionForStep returns the interaction record surrounding a step.
func (a *App) handleInteractionForStep(w http.ResponseWriter, r *http.Request) {
	stepID := chi.URLParam(r, "stepID")

	step, err := a.reader.GetStep(r.Context(), stepID)
	if err != nil {
		a.writeError(w, err)
		return
	}

	var steps []trace.Step
	if step.InteractionID != nil {
		steps, err = a.reader.ListInteractionSteps(r.Context(), *step.InteractionID)
		if err != nil {
			a.writeError(w, err)
			return
		}
	} else {
		steps = []trace.Step{*step}
	}

	interactions := trace.BuildInteractions(steps)
	if len(interactions) == 0 {
		a.writeError(w, core.NewNotFoundError("interaction for step", stepID))
		return
	}
	a.writeJSON(w, http.StatusOK, interactions[0])
}
