package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/felixgeelhaar/taskplan/internal/errors"
	"github.com/felixgeelhaar/taskplan/internal/plan"
	"github.com/felixgeelhaar/taskplan/internal/tree"
)

// statusForCode maps planner error codes to HTTP statuses.
func statusForCode(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodePlanNotFound, errors.ErrCodeTaskNotFound, errors.ErrCodeParentNotFound:
		return http.StatusNotFound
	case errors.ErrCodePlanInvalid, errors.ErrCodeTaskInvalid:
		return http.StatusBadRequest
	case errors.ErrCodePlanDuplicate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a failure according to the error surfacing policy.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.CodeOf(err)
	s.logger.WithError(err).Warn("request failed", "code", code)

	payload := map[string]any{
		"success": false,
		"error":   code,
		"message": err.Error(),
	}
	if s.strictErrors {
		writeJSON(w, statusForCode(code), payload)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleUpsertPlan handles POST /api/plans. The body is a full plan with a
// nested task tree; an existing plan with the same id is replaced, a new id
// creates the plan. Missing identity and timestamps are filled in.
func (s *Server) handleUpsertPlan(w http.ResponseWriter, r *http.Request) {
	var p plan.Plan
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "malformed plan document: " + err.Error(),
		})
		return
	}

	now := time.Now().UTC()
	if p.ID == "" {
		p.ID = plan.NewID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	for _, t := range tree.Flatten(p.Tasks) {
		if t.ID == "" {
			t.ID = plan.NewID()
		}
		t.PlanID = p.ID
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if t.UpdatedAt.IsZero() {
			t.UpdatedAt = now
		}
	}
	linkParents(p.Tasks, "")

	if err := s.svc.UpsertPlan(r.Context(), &p); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "plan": &p})
}

// linkParents rewrites ParentID from the nesting structure so a submitted
// document cannot contradict itself.
func linkParents(forest []*plan.Task, parentID string) {
	for _, t := range forest {
		t.ParentID = parentID
		linkParents(t.Children, t.ID)
	}
}

// handleListPlans handles GET /api/plans?hideCompleted=true.
func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	hideCompleted := r.URL.Query().Get("hideCompleted") == "true"

	summaries, err := s.svc.ListPlans(r.Context(), hideCompleted)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "plans": summaries})
}

// handleGetPlan handles GET /api/plans/{id}.
func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.GetPlan(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "plan": p})
}

// handleGetProgress handles GET /api/plans/{id}/progress.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := s.svc.GetProgress(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "progress": progress})
}
