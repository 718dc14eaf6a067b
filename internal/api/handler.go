package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"
	"github.com/rs/zerolog/log"

	"ads-autopilot/internal/engine"
)

// PassRunner triggers one evaluation pass. Implemented by engine.Runner.
type PassRunner interface {
	Run(ctx context.Context, orgID string, dryRun bool) (engine.RunResult, error)
}

// ActionLister exposes recent actions for inspection.
type ActionLister interface {
	ListActions(ctx context.Context, orgID string, limit int) ([]engine.Action, error)
}

type Handler struct {
	runner  PassRunner
	actions ActionLister
}

func NewHandler(runner PassRunner, actions ActionLister) *Handler {
	return &Handler{runner: runner, actions: actions}
}

type runRequest struct {
	OrganizationID string `json:"organizationId"`
	DryRun         bool   `json:"dryRun"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RunWorker handles POST /v1/worker/run: a manual or scheduled trigger of the
// evaluation pass for one organization.
func (h *Handler) RunWorker(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Code: "ERR_INVALID_JSON", Message: "invalid JSON payload: " + err.Error()})
		return
	}
	if req.OrganizationID == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Code: "ERR_INVALID_INPUT", Message: "organizationId is required"})
		return
	}

	res, err := h.runner.Run(r.Context(), req.OrganizationID, req.DryRun)
	switch {
	case errors.Is(err, engine.ErrLockHeld):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, errorResponse{Code: "ERR_ALREADY_RUNNING", Message: "an evaluation pass is already running for this organization"})
		return
	case errors.Is(err, engine.ErrNoConnection):
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, errorResponse{Code: "ERR_NO_CONNECTION", Message: "platform connection is missing or expired"})
		return
	case err != nil:
		log.Error().Err(err).Str("org_id", req.OrganizationID).Msg("worker run failed")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{Code: "ERR_INTERNAL", Message: "evaluation pass failed"})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, res)
}

// ListActions handles GET /v1/actions?org=...&limit=...
func (h *Handler) ListActions(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("org")
	if orgID == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Code: "ERR_INVALID_INPUT", Message: "org query parameter is required"})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, errorResponse{Code: "ERR_INVALID_INPUT", Message: "limit must be between 1 and 200"})
			return
		}
		limit = n
	}

	actions, err := h.actions.ListActions(r.Context(), orgID, limit)
	if err != nil {
		log.Error().Err(err).Str("org_id", orgID).Msg("list actions failed")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{Code: "ERR_INTERNAL", Message: "failed to list actions"})
		return
	}

	render.JSON(w, r, toActionViews(actions))
}

type actionView struct {
	ID             string              `json:"id"`
	RuleID         string              `json:"ruleId"`
	ActionType     engine.ActionType   `json:"actionType"`
	TargetRef      string              `json:"targetRef"`
	Summary        string              `json:"summary"`
	KPISnapshot    engine.KPISnapshot  `json:"kpiSnapshot"`
	IdempotencyKey string              `json:"idempotencyKey"`
	Status         engine.ActionStatus `json:"status"`
	ResultMessage  string              `json:"resultMessage"`
	CreatedAt      string              `json:"createdAt"`
	ExecutedAt     *string             `json:"executedAt"`
}

func toActionViews(actions []engine.Action) []actionView {
	out := make([]actionView, 0, len(actions))
	for _, a := range actions {
		v := actionView{
			ID:             a.ID,
			RuleID:         a.RuleID,
			ActionType:     a.ActionType,
			TargetRef:      a.TargetRef,
			Summary:        a.Summary,
			KPISnapshot:    a.KPI,
			IdempotencyKey: a.IdempotencyKey,
			Status:         a.Status,
			ResultMessage:  a.ResultMessage,
			CreatedAt:      a.CreatedAt.UTC().Format(time.RFC3339),
		}
		if a.ExecutedAt != nil {
			s := a.ExecutedAt.UTC().Format(time.RFC3339)
			v.ExecutedAt = &s
		}
		out = append(out, v)
	}
	return out
}
