package engine

import (
	"encoding/json"
	"fmt"
)

// Per-type rule parameters. The CRUD boundary validates these before a rule
// is ever persisted; ParseRuleConfig re-checks the required keys so a stale
// or hand-edited row degrades to a parse error instead of a zero-value match.

// CPAConfig drives CPA_BUDGET_REDUCTION rules.
type CPAConfig struct {
	CPACeiling     float64 `json:"cpaCeiling"`
	ReducePercent  int     `json:"reducePercent"`
	MinConversions int     `json:"minConversions"`
}

// CPACeilingMinor returns the ceiling in integer minor units.
func (c CPAConfig) CPACeilingMinor() int64 {
	return int64(c.CPACeiling*100 + 0.5)
}

// ROASConfig drives ROAS_PAUSE_ADSET rules.
type ROASConfig struct {
	ROASFloor float64 `json:"roasFloor"`
	MinSpend  float64 `json:"minSpend"`
}

func (c ROASConfig) MinSpendMinor() int64 {
	return int64(c.MinSpend*100 + 0.5)
}

// CTRConfig drives CTR_FATIGUE_ALERT rules. CTRDropPercent is informational
// and carried through to summaries only.
type CTRConfig struct {
	CTRDropPercent int     `json:"ctrDropPercent"`
	MinFrequency   float64 `json:"minFrequency"`
}

// RuleConfig is the tagged union of per-type parameters; exactly one variant
// is non-nil after a successful parse.
type RuleConfig struct {
	CPA  *CPAConfig
	ROAS *ROASConfig
	CTR  *CTRConfig
}

// ParseRuleConfig decodes the raw parameter bag for the given rule type.
func ParseRuleConfig(typ RuleType, raw json.RawMessage) (RuleConfig, error) {
	switch typ {
	case RuleCPABudgetReduction:
		var c CPAConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return RuleConfig{}, fmt.Errorf("decode %s config: %w", typ, err)
		}
		if c.CPACeiling <= 0 || c.ReducePercent < 1 || c.ReducePercent > 100 || c.MinConversions < 1 {
			return RuleConfig{}, fmt.Errorf("%s config out of range: %+v", typ, c)
		}
		return RuleConfig{CPA: &c}, nil

	case RuleROASPauseAdset:
		var c ROASConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return RuleConfig{}, fmt.Errorf("decode %s config: %w", typ, err)
		}
		if c.ROASFloor <= 0 || c.MinSpend <= 0 {
			return RuleConfig{}, fmt.Errorf("%s config out of range: %+v", typ, c)
		}
		return RuleConfig{ROAS: &c}, nil

	case RuleCTRFatigueAlert:
		var c CTRConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			return RuleConfig{}, fmt.Errorf("decode %s config: %w", typ, err)
		}
		if c.MinFrequency < 1 {
			return RuleConfig{}, fmt.Errorf("%s config out of range: %+v", typ, c)
		}
		return RuleConfig{CTR: &c}, nil
	}

	return RuleConfig{}, fmt.Errorf("unknown rule type %q", typ)
}
