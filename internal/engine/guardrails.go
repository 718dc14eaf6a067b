package engine

import (
	"context"
	"time"
)

// GuardrailStore is the slice of persistence the guardrail checks need.
type GuardrailStore interface {
	// LatestActionFor returns the most recent action for (rule, target) by
	// creation time, or nil when none exists.
	LatestActionFor(ctx context.Context, ruleID, targetRef string) (*Action, error)
	// ReduceActionsSince returns PENDING and SUCCESS REDUCE_BUDGET actions
	// for (rule, target) created at or after the given time.
	ReduceActionsSince(ctx context.Context, ruleID, targetRef string, since time.Time) ([]Action, error)
}

// Guardrails blocks actions that would violate the cooldown or the cumulative
// daily budget-change cap. A block is a silent skip, never an error.
type Guardrails struct {
	store GuardrailStore
}

func NewGuardrails(store GuardrailStore) *Guardrails {
	return &Guardrails{store: store}
}

// Allow reports whether an action for this (rule, target) evaluation may be
// created now. Both checks must pass.
func (g *Guardrails) Allow(ctx context.Context, rule Rule, targetRef string, ev Evaluation, now time.Time) (bool, error) {
	last, err := g.store.LatestActionFor(ctx, rule.ID, targetRef)
	if err != nil {
		return false, err
	}
	if last != nil && now.Sub(last.CreatedAt) < rule.Cooldown() {
		return false, nil
	}

	if ev.ActionType != ActionReduceBudget {
		return true, nil
	}

	// Cap is accounted against local midnight so operators reason about it
	// in calendar days, matching the per-day limit they configured.
	midnight := localMidnight(now)
	prior, err := g.store.ReduceActionsSince(ctx, rule.ID, targetRef, midnight)
	if err != nil {
		return false, err
	}

	total := ev.PlannedChangePercent
	for _, a := range prior {
		total += a.KPI.PlannedChangePercent
	}
	return total <= rule.MaxBudgetChangePerDay, nil
}

func localMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
