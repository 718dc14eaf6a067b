package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ads-autopilot/internal/engine"
)

type mockRunner struct {
	result engine.RunResult
	err    error

	gotOrg    string
	gotDryRun bool
}

func (m *mockRunner) Run(_ context.Context, orgID string, dryRun bool) (engine.RunResult, error) {
	m.gotOrg = orgID
	m.gotDryRun = dryRun
	if m.err != nil {
		return engine.RunResult{}, m.err
	}
	return m.result, nil
}

type mockLister struct {
	actions  []engine.Action
	err      error
	gotLimit int
}

func (m *mockLister) ListActions(_ context.Context, orgID string, limit int) ([]engine.Action, error) {
	m.gotLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.actions, nil
}

func TestRunWorker_Scenarios(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		runner     *mockRunner
		wantStatus int
		wantCode   string
	}{
		{
			name:       "malformed JSON",
			body:       `{"organizationId": `,
			runner:     &mockRunner{},
			wantStatus: http.StatusBadRequest,
			wantCode:   "ERR_INVALID_JSON",
		},
		{
			name:       "missing organization id",
			body:       `{"dryRun": true}`,
			runner:     &mockRunner{},
			wantStatus: http.StatusBadRequest,
			wantCode:   "ERR_INVALID_INPUT",
		},
		{
			name:       "pass already running",
			body:       `{"organizationId": "org-1"}`,
			runner:     &mockRunner{err: engine.ErrLockHeld},
			wantStatus: http.StatusConflict,
			wantCode:   "ERR_ALREADY_RUNNING",
		},
		{
			name:       "no usable connection",
			body:       `{"organizationId": "org-1"}`,
			runner:     &mockRunner{err: engine.ErrNoConnection},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "ERR_NO_CONNECTION",
		},
		{
			name:       "unexpected failure",
			body:       `{"organizationId": "org-1"}`,
			runner:     &mockRunner{err: assert.AnError},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "ERR_INTERNAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(tt.runner, &mockLister{})

			req := httptest.NewRequest("POST", "/v1/worker/run", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.RunWorker(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)

			var resp errorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestRunWorker_Success(t *testing.T) {
	runner := &mockRunner{result: engine.RunResult{
		OrganizationID: "org-1",
		DryRun:         true,
		RulesEvaluated: 3,
		Created:        2,
		Executed:       0,
	}}
	h := NewHandler(runner, &mockLister{})

	body := `{"organizationId": "org-1", "dryRun": true}`
	req := httptest.NewRequest("POST", "/v1/worker/run", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.RunWorker(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "org-1", runner.gotOrg)
	assert.True(t, runner.gotDryRun)

	var res engine.RunResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	assert.Equal(t, 3, res.RulesEvaluated)
	assert.Equal(t, 2, res.Created)
}

func TestListActions_Scenarios(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		lister     *mockLister
		wantStatus int
		wantLimit  int
	}{
		{"missing org", "/v1/actions", &mockLister{}, http.StatusBadRequest, 0},
		{"limit not a number", "/v1/actions?org=org-1&limit=abc", &mockLister{}, http.StatusBadRequest, 0},
		{"limit too small", "/v1/actions?org=org-1&limit=0", &mockLister{}, http.StatusBadRequest, 0},
		{"limit too large", "/v1/actions?org=org-1&limit=201", &mockLister{}, http.StatusBadRequest, 0},
		{"default limit", "/v1/actions?org=org-1", &mockLister{}, http.StatusOK, 50},
		{"explicit limit", "/v1/actions?org=org-1&limit=10", &mockLister{}, http.StatusOK, 10},
		{"store failure", "/v1/actions?org=org-1", &mockLister{err: assert.AnError}, http.StatusInternalServerError, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&mockRunner{}, tt.lister)

			req := httptest.NewRequest("GET", tt.url, nil)
			w := httptest.NewRecorder()
			h.ListActions(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantLimit, tt.lister.gotLimit)
			}
		})
	}
}

func TestListActions_RendersTimestamps(t *testing.T) {
	created := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	executed := created.Add(2 * time.Second)
	lister := &mockLister{actions: []engine.Action{
		{
			ID:            "act-1",
			RuleID:        "rule-1",
			ActionType:    engine.ActionReduceBudget,
			TargetRef:     "adset-9",
			Status:        engine.StatusSuccess,
			ResultMessage: "daily budget reduced by 15% to 131750",
			CreatedAt:     created,
			ExecutedAt:    &executed,
		},
		{
			ID:         "act-2",
			RuleID:     "rule-2",
			ActionType: engine.ActionPauseAdset,
			TargetRef:  "adset-3",
			Status:     engine.StatusPending,
			CreatedAt:  created,
		},
	}}
	h := NewHandler(&mockRunner{}, lister)

	req := httptest.NewRequest("GET", "/v1/actions?org=org-1", nil)
	w := httptest.NewRecorder()
	h.ListActions(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var views []actionView
	if err := json.Unmarshal(w.Body.Bytes(), &views); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(views))
	}
	assert.Equal(t, "2026-03-14T10:30:00Z", views[0].CreatedAt)
	if assert.NotNil(t, views[0].ExecutedAt) {
		assert.Equal(t, "2026-03-14T10:30:02Z", *views[0].ExecutedAt)
	}
	assert.Nil(t, views[1].ExecutedAt)
}

func TestRouter_Routes(t *testing.T) {
	h := NewHandler(&mockRunner{result: engine.RunResult{OrganizationID: "org-1"}}, &mockLister{})

	ts := httptest.NewServer(Router(h))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Post(ts.URL+"/v1/worker/run", "application/json", strings.NewReader(`{"organizationId":"org-1"}`))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + "/metrics")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
