package engine

import (
	"context"
	"fmt"

	"ads-autopilot/internal/platform"
)

// Executor drives a PENDING action to its single terminal state. Platform
// mutations are not retried; a rejection is terminal for that action and
// surfaces the platform's message for human follow-up.
type Executor struct {
	client platform.Client
}

func NewExecutor(client platform.Client) *Executor {
	return &Executor{client: client}
}

// Execute performs the real-world effect of one action and returns the
// terminal status plus operator-facing result message. It never returns
// PENDING.
func (e *Executor) Execute(ctx context.Context, rule Rule, action *Action, auth platform.AccountAuth) (ActionStatus, string) {
	if !rule.AutoApply && action.ActionType != ActionNotifyOnly {
		return StatusSkipped, "awaiting approval: autoApply disabled for this rule"
	}

	switch action.ActionType {
	case ActionReduceBudget:
		next := NextDailyBudget(action.KPI.SpendMinor, action.KPI.PlannedChangePercent)
		if err := e.client.SetDailyBudget(ctx, auth, action.TargetRef, next); err != nil {
			return StatusFailed, err.Error()
		}
		return StatusSuccess, fmt.Sprintf("daily budget reduced by %d%% to %s",
			action.KPI.PlannedChangePercent, formatMinor(next))

	case ActionPauseAdset:
		if err := e.client.Pause(ctx, auth, action.TargetRef); err != nil {
			return StatusFailed, err.Error()
		}
		return StatusSuccess, "ad-set paused"

	case ActionNotifyOnly:
		return StatusSuccess, "notification recorded, no platform change"
	}

	return StatusFailed, fmt.Sprintf("unknown action type %q", action.ActionType)
}

// NextDailyBudget computes the reduced budget from the frozen spend snapshot
// using integer minor-unit arithmetic. The current budget is approximated by
// the latest daily spend, floored at the platform minimum.
func NextDailyBudget(spendMinor int64, reducePercent int) int64 {
	current := spendMinor
	if current < platform.MinDailyBudgetMinor {
		current = platform.MinDailyBudgetMinor
	}
	next := current * int64(100-reducePercent) / 100
	if next < platform.MinDailyBudgetMinor {
		next = platform.MinDailyBudgetMinor
	}
	return next
}
