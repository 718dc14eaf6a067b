package engine

import (
	"encoding/json"
	"time"
)

// RuleType discriminates the condition + action family of a rule.
// The set is closed; unknown types are skipped at evaluation time.
type RuleType string

const (
	RuleCPABudgetReduction RuleType = "CPA_BUDGET_REDUCTION"
	RuleROASPauseAdset     RuleType = "ROAS_PAUSE_ADSET"
	RuleCTRFatigueAlert    RuleType = "CTR_FATIGUE_ALERT"
)

// ScopeType selects how a rule's targets are expanded.
type ScopeType string

const (
	ScopeAccount  ScopeType = "ACCOUNT"
	ScopeCampaign ScopeType = "CAMPAIGN"
	ScopeAdset    ScopeType = "ADSET"
)

// Rule is a configured automation policy, validated at the CRUD boundary.
type Rule struct {
	ID             string
	OrganizationID string
	Name           string
	Description    string
	Type           RuleType
	IsEnabled      bool
	AutoApply      bool

	// MaxBudgetChangePerDay caps cumulative budget reduction, percent 1-50.
	MaxBudgetChangePerDay int
	// CooldownHours is the minimum gap between two actions on the same target, 1-168.
	CooldownHours int

	ScopeType  ScopeType
	ScopeIDs   []string
	ApplyToAll bool

	ConfigJSON json.RawMessage
}

func (r Rule) Cooldown() time.Duration {
	return time.Duration(r.CooldownHours) * time.Hour
}

// Metric is the most recent performance snapshot for one ad-set.
// Money values are integer minor units (satang/cents) to keep repeated
// percent arithmetic drift-free.
type Metric struct {
	OrganizationID string
	AdsetID        string
	Date           time.Time

	SpendMinor  int64
	Conversions int
	CPAMinor    int64
	ROAS        float64
	CTR         float64
	Frequency   float64
}

// ActionType is the platform effect a triggered rule requests.
type ActionType string

const (
	ActionReduceBudget ActionType = "REDUCE_BUDGET"
	ActionPauseAdset   ActionType = "PAUSE_ADSET"
	ActionNotifyOnly   ActionType = "NOTIFY_ONLY"
)

// ActionStatus is the lifecycle state of an action. PENDING is the only
// non-terminal state.
type ActionStatus string

const (
	StatusPending ActionStatus = "PENDING"
	StatusSuccess ActionStatus = "SUCCESS"
	StatusFailed  ActionStatus = "FAILED"
	StatusSkipped ActionStatus = "SKIPPED"
)

// KPISnapshot freezes the metric values and the planned magnitude at decision
// time; the executor works exclusively from this, never from live metrics.
type KPISnapshot struct {
	SpendMinor  int64   `json:"spendMinor"`
	Conversions int     `json:"conversions"`
	CPAMinor    int64   `json:"cpaMinor"`
	ROAS        float64 `json:"roas"`
	CTR         float64 `json:"ctr"`
	Frequency   float64 `json:"frequency"`

	// PlannedChangePercent is set for REDUCE_BUDGET actions only.
	PlannedChangePercent int `json:"plannedChangePercent,omitempty"`
}

// Action is the unit of work and the audit record of one rule match.
type Action struct {
	ID             string
	OrganizationID string
	RuleID         string
	ActionType     ActionType
	TargetRef      string
	Summary        string
	KPI            KPISnapshot
	IdempotencyKey string
	Status         ActionStatus
	ResultMessage  string
	CreatedAt      time.Time
	ExecutedAt     *time.Time
}

// Connection holds the ad-platform credentials of one organization.
type Connection struct {
	OrganizationID string
	AdAccountID    string
	AccessToken    string
	Status         string // CONNECTED | DISCONNECTED | ERROR
	TokenExpiresAt *time.Time
}

// Usable reports whether the connection can back an evaluation pass at t.
func (c *Connection) Usable(t time.Time) bool {
	if c == nil || c.Status != "CONNECTED" || c.AccessToken == "" {
		return false
	}
	return c.TokenExpiresAt == nil || c.TokenExpiresAt.After(t)
}

// RunResult is the manifest a completed evaluation pass hands back to the
// caller, regardless of individual action outcomes.
type RunResult struct {
	OrganizationID string `json:"organizationId"`
	DryRun         bool   `json:"dryRun"`
	RulesEvaluated int    `json:"rulesEvaluated"`
	Created        int    `json:"created"`
	Executed       int    `json:"executed"`
	Failed         int    `json:"failed"`
	Skipped        int    `json:"skipped"`
}
