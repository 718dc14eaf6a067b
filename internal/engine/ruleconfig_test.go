package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRuleConfig(t *testing.T) {
	tests := []struct {
		name    string
		typ     RuleType
		raw     string
		wantErr bool
	}{
		{"valid cpa", RuleCPABudgetReduction, `{"cpaCeiling":50,"reducePercent":15,"minConversions":20}`, false},
		{"cpa ceiling zero", RuleCPABudgetReduction, `{"cpaCeiling":0,"reducePercent":15,"minConversions":20}`, true},
		{"cpa reduce percent over 100", RuleCPABudgetReduction, `{"cpaCeiling":50,"reducePercent":120,"minConversions":20}`, true},
		{"cpa missing conversions", RuleCPABudgetReduction, `{"cpaCeiling":50,"reducePercent":15}`, true},
		{"valid roas", RuleROASPauseAdset, `{"roasFloor":1.8,"minSpend":300}`, false},
		{"roas floor zero", RuleROASPauseAdset, `{"roasFloor":0,"minSpend":300}`, true},
		{"valid ctr", RuleCTRFatigueAlert, `{"ctrDropPercent":20,"minFrequency":2.4}`, false},
		{"ctr frequency below one", RuleCTRFatigueAlert, `{"ctrDropPercent":20,"minFrequency":0.5}`, true},
		{"unknown type", RuleType("SOMETHING_ELSE"), `{}`, true},
		{"malformed json", RuleCPABudgetReduction, `{"cpaCeiling":`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseRuleConfig(tt.typ, json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			switch tt.typ {
			case RuleCPABudgetReduction:
				require.NotNil(t, cfg.CPA)
			case RuleROASPauseAdset:
				require.NotNil(t, cfg.ROAS)
			case RuleCTRFatigueAlert:
				require.NotNil(t, cfg.CTR)
			}
		})
	}
}

func TestRuleConfig_MinorUnitConversions(t *testing.T) {
	cpa := CPAConfig{CPACeiling: 50}
	assert.Equal(t, int64(5000), cpa.CPACeilingMinor())

	cpa = CPAConfig{CPACeiling: 0.015}
	assert.Equal(t, int64(2), cpa.CPACeilingMinor()) // rounds, not truncates

	roas := ROASConfig{MinSpend: 300}
	assert.Equal(t, int64(30000), roas.MinSpendMinor())
}
