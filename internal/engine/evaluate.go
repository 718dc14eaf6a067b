package engine

import (
	"fmt"
)

// Evaluation is the outcome of testing one (rule, target) pair against its
// latest metric snapshot.
type Evaluation struct {
	Triggered  bool
	ActionType ActionType
	Summary    string

	// PlannedChangePercent is the capped budget reduction, REDUCE_BUDGET only.
	PlannedChangePercent int
}

// Evaluate is pure: (rule, parsed config, metric) in, decision out. It never
// touches storage or the platform.
func Evaluate(rule Rule, cfg RuleConfig, m Metric) Evaluation {
	switch rule.Type {
	case RuleCPABudgetReduction:
		return evalCPA(rule, *cfg.CPA, m)
	case RuleROASPauseAdset:
		return evalROAS(*cfg.ROAS, m)
	case RuleCTRFatigueAlert:
		return evalCTR(*cfg.CTR, m)
	}
	return Evaluation{}
}

func evalCPA(rule Rule, cfg CPAConfig, m Metric) Evaluation {
	if m.CPAMinor <= cfg.CPACeilingMinor() || m.Conversions < cfg.MinConversions {
		return Evaluation{}
	}
	pct := cfg.ReducePercent
	if rule.MaxBudgetChangePerDay < pct {
		pct = rule.MaxBudgetChangePerDay
	}
	return Evaluation{
		Triggered:  true,
		ActionType: ActionReduceBudget,
		Summary: fmt.Sprintf("reduce budget by %d%%: CPA %s above ceiling %.2f with %d conversions",
			pct, formatMinor(m.CPAMinor), cfg.CPACeiling, m.Conversions),
		PlannedChangePercent: pct,
	}
}

func evalROAS(cfg ROASConfig, m Metric) Evaluation {
	if m.ROAS >= cfg.ROASFloor || m.SpendMinor < cfg.MinSpendMinor() {
		return Evaluation{}
	}
	return Evaluation{
		Triggered:  true,
		ActionType: ActionPauseAdset,
		Summary: fmt.Sprintf("pause ad-set: ROAS %.2f below floor %.2f at spend %s",
			m.ROAS, cfg.ROASFloor, formatMinor(m.SpendMinor)),
	}
}

func evalCTR(cfg CTRConfig, m Metric) Evaluation {
	if m.Frequency < cfg.MinFrequency {
		return Evaluation{}
	}
	return Evaluation{
		Triggered:  true,
		ActionType: ActionNotifyOnly,
		Summary: fmt.Sprintf("creative fatigue alert: frequency %.1f at CTR %.2f%%",
			m.Frequency, m.CTR),
	}
}

// formatMinor renders minor units as a decimal amount, e.g. 6200 -> "62.00".
func formatMinor(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
