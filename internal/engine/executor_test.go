package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"ads-autopilot/internal/platform"
)

// platformStub records mutation calls and returns canned errors.
type platformStub struct {
	budgetCalls []int64
	pauseCalls  []string
	budgetErr   error
	pauseErr    error
}

func (p *platformStub) ListCampaigns(context.Context, platform.AccountAuth) ([]platform.Entity, error) {
	return nil, nil
}

func (p *platformStub) ListAdsets(context.Context, platform.AccountAuth, string) ([]platform.Entity, error) {
	return nil, nil
}

func (p *platformStub) SetDailyBudget(_ context.Context, _ platform.AccountAuth, _ string, minor int64) error {
	p.budgetCalls = append(p.budgetCalls, minor)
	return p.budgetErr
}

func (p *platformStub) Pause(_ context.Context, _ platform.AccountAuth, adsetID string) error {
	p.pauseCalls = append(p.pauseCalls, adsetID)
	return p.pauseErr
}

func TestExecutor_SkipsWhenNotAutoApply(t *testing.T) {
	client := &platformStub{}
	exec := NewExecutor(client)

	rule := Rule{AutoApply: false}
	action := &Action{ActionType: ActionReduceBudget, KPI: KPISnapshot{SpendMinor: 10000, PlannedChangePercent: 15}}

	status, msg := exec.Execute(context.Background(), rule, action, platform.AccountAuth{})
	assert.Equal(t, StatusSkipped, status)
	assert.Contains(t, msg, "awaiting approval")
	assert.Empty(t, client.budgetCalls, "suggest-only rules must never touch the platform")
}

func TestExecutor_NotifyOnlySucceedsWithoutAutoApply(t *testing.T) {
	client := &platformStub{}
	exec := NewExecutor(client)

	status, _ := exec.Execute(context.Background(), Rule{AutoApply: false},
		&Action{ActionType: ActionNotifyOnly}, platform.AccountAuth{})
	assert.Equal(t, StatusSuccess, status)
	assert.Empty(t, client.budgetCalls)
	assert.Empty(t, client.pauseCalls)
}

func TestExecutor_ReduceBudget(t *testing.T) {
	client := &platformStub{}
	exec := NewExecutor(client)

	rule := Rule{AutoApply: true}
	action := &Action{
		ActionType: ActionReduceBudget,
		TargetRef:  "adset-9",
		KPI:        KPISnapshot{SpendMinor: 155000, PlannedChangePercent: 15},
	}

	status, msg := exec.Execute(context.Background(), rule, action, platform.AccountAuth{})
	assert.Equal(t, StatusSuccess, status)
	assert.Contains(t, msg, "15%")
	if assert.Len(t, client.budgetCalls, 1) {
		assert.Equal(t, int64(131750), client.budgetCalls[0]) // 155000 * 0.85
	}
}

func TestExecutor_PauseFailurePreservesPlatformMessage(t *testing.T) {
	client := &platformStub{pauseErr: &platform.APIError{Message: "token expired"}}
	exec := NewExecutor(client)

	status, msg := exec.Execute(context.Background(), Rule{AutoApply: true},
		&Action{ActionType: ActionPauseAdset, TargetRef: "adset-9"}, platform.AccountAuth{})
	assert.Equal(t, StatusFailed, status)
	assert.Equal(t, "token expired", msg)
}

func TestNextDailyBudget(t *testing.T) {
	tests := []struct {
		name  string
		spend int64
		pct   int
		want  int64
	}{
		{"plain reduction", 155000, 15, 131750},
		{"integer truncation", 999, 15, 849}, // 999*85/100
		{"zero spend floors at platform minimum", 0, 15, 100},
		{"result below floor is raised to floor", 110, 15, 100},
		{"full reduction floors at minimum", 50000, 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextDailyBudget(tt.spend, tt.pct))
		})
	}
}
