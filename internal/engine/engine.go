// Package engine implements the rule evaluation and action execution pass:
// scope expansion, condition evaluation, guardrails, idempotent action
// creation, and the two-phase create-then-execute lifecycle.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"ads-autopilot/internal/audit"
	"ads-autopilot/internal/observability"
	"ads-autopilot/internal/platform"
)

// LockKey is the scheduling-lock name for this engine; one lock row exists
// per (organization, LockKey).
const LockKey = "rules-engine"

var (
	// ErrLockHeld means another pass for the organization is still running.
	ErrLockHeld = errors.New("evaluation pass already running")
	// ErrNoConnection means the platform connection is missing, disconnected
	// or expired; the pass aborts before creating any action.
	ErrNoConnection = errors.New("platform connection unavailable")
)

// Store is the persistence surface the runner needs. Implemented by
// storage.Store; faked in tests.
type Store interface {
	GuardrailStore

	ListEnabledRules(ctx context.Context, orgID string) ([]Rule, error)
	// LatestMetric returns the newest snapshot for the ad-set, nil when the
	// target has no metrics yet.
	LatestMetric(ctx context.Context, orgID, adsetID string) (*Metric, error)
	// CreateAction inserts the action unless its idempotency key already
	// exists; created is false on a key collision.
	CreateAction(ctx context.Context, a *Action) (created bool, err error)
	// FinishAction moves a PENDING action to its terminal state exactly once.
	FinishAction(ctx context.Context, actionID string, status ActionStatus, message string, at time.Time) error
	PlatformConnection(ctx context.Context, orgID string) (*Connection, error)

	// AcquireLock returns ErrLockHeld while another holder's TTL is alive.
	AcquireLock(ctx context.Context, orgID, key string, ttl time.Duration) error
	ReleaseLock(ctx context.Context, orgID, key string) error
}

// Runner executes one guarded evaluation pass per call.
type Runner struct {
	store   Store
	client  platform.Client
	sink    audit.Sink
	lockTTL time.Duration
	now     func() time.Time
}

func NewRunner(store Store, client platform.Client, sink audit.Sink, lockTTL time.Duration) *Runner {
	return &Runner{
		store:   store,
		client:  client,
		sink:    sink,
		lockTTL: lockTTL,
		now:     time.Now,
	}
}

// Run evaluates all enabled rules for the organization. Only lock contention
// and an unusable platform connection surface as errors; everything else is
// absorbed into per-action status and the returned manifest.
func (r *Runner) Run(ctx context.Context, orgID string, dryRun bool) (RunResult, error) {
	res := RunResult{OrganizationID: orgID, DryRun: dryRun}

	if err := r.store.AcquireLock(ctx, orgID, LockKey, r.lockTTL); err != nil {
		return res, err
	}
	defer func() {
		// Release must run even when the pass context is already canceled.
		if err := r.store.ReleaseLock(context.WithoutCancel(ctx), orgID, LockKey); err != nil {
			log.Error().Err(err).Str("org_id", orgID).Msg("release scheduling lock")
		}
	}()

	timer := observability.PassTimer()
	defer timer.ObserveDuration()
	observability.PassesTotal.Inc()

	conn, err := r.store.PlatformConnection(ctx, orgID)
	if err != nil {
		return res, err
	}
	if !conn.Usable(r.now()) {
		log.Warn().Str("org_id", orgID).Msg("platform connection unusable, aborting pass")
		return res, ErrNoConnection
	}
	auth := platform.AccountAuth{AccountID: conn.AdAccountID, AccessToken: conn.AccessToken}

	rules, err := r.store.ListEnabledRules(ctx, orgID)
	if err != nil {
		return res, err
	}
	res.RulesEvaluated = len(rules)
	if len(rules) == 0 {
		return res, nil
	}

	resolver := NewResolver(r.client, auth)
	guards := NewGuardrails(r.store)
	exec := NewExecutor(r.client)

	for _, rule := range rules {
		cfg, err := ParseRuleConfig(rule.Type, rule.ConfigJSON)
		if err != nil {
			log.Error().Err(err).Str("rule_id", rule.ID).Msg("invalid rule config, skipping rule")
			continue
		}

		targets, err := resolver.Resolve(ctx, rule)
		if err != nil {
			log.Error().Err(err).Str("rule_id", rule.ID).Msg("target resolution failed, skipping rule")
			continue
		}

		for _, adsetID := range targets {
			r.evaluateTarget(ctx, &res, rule, cfg, adsetID, auth, guards, exec, dryRun)
		}
	}

	log.Info().
		Str("org_id", orgID).
		Bool("dry_run", dryRun).
		Int("rules", res.RulesEvaluated).
		Int("created", res.Created).
		Int("executed", res.Executed).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Msg("evaluation pass finished")
	return res, nil
}

func (r *Runner) evaluateTarget(ctx context.Context, res *RunResult, rule Rule, cfg RuleConfig, adsetID string, auth platform.AccountAuth, guards *Guardrails, exec *Executor, dryRun bool) {
	metric, err := r.store.LatestMetric(ctx, rule.OrganizationID, adsetID)
	if err != nil {
		log.Error().Err(err).Str("adset_id", adsetID).Msg("metric lookup failed")
		return
	}
	if metric == nil {
		return
	}

	ev := Evaluate(rule, cfg, *metric)
	if !ev.Triggered {
		return
	}

	now := r.now()
	ok, err := guards.Allow(ctx, rule, adsetID, ev, now)
	if err != nil {
		log.Error().Err(err).Str("rule_id", rule.ID).Str("adset_id", adsetID).Msg("guardrail check failed")
		return
	}
	if !ok {
		log.Debug().Str("rule_id", rule.ID).Str("adset_id", adsetID).Msg("guardrail skip")
		return
	}

	action := &Action{
		ID:             uuid.NewString(),
		OrganizationID: rule.OrganizationID,
		RuleID:         rule.ID,
		ActionType:     ev.ActionType,
		TargetRef:      adsetID,
		Summary:        ev.Summary,
		KPI: KPISnapshot{
			SpendMinor:           metric.SpendMinor,
			Conversions:          metric.Conversions,
			CPAMinor:             metric.CPAMinor,
			ROAS:                 metric.ROAS,
			CTR:                  metric.CTR,
			Frequency:            metric.Frequency,
			PlannedChangePercent: ev.PlannedChangePercent,
		},
		IdempotencyKey: IdempotencyKey(rule.OrganizationID, rule.ID, adsetID, ev.ActionType, now),
		Status:         StatusPending,
		CreatedAt:      now,
	}

	created, err := r.store.CreateAction(ctx, action)
	if err != nil {
		log.Error().Err(err).Str("rule_id", rule.ID).Str("adset_id", adsetID).Msg("create action failed")
		return
	}
	if !created {
		// Same bucket already handled, by this pass or a concurrent one.
		return
	}
	res.Created++
	observability.ActionsCreated.Inc()

	if dryRun {
		r.recordAudit(ctx, rule, action)
		return
	}

	status, message := exec.Execute(ctx, rule, action, auth)
	executedAt := r.now()
	if err := r.store.FinishAction(ctx, action.ID, status, message, executedAt); err != nil {
		log.Error().Err(err).Str("action_id", action.ID).Msg("finish action failed")
		return
	}
	action.Status = status
	action.ResultMessage = message
	action.ExecutedAt = &executedAt

	switch status {
	case StatusSuccess:
		res.Executed++
	case StatusFailed:
		res.Failed++
	case StatusSkipped:
		res.Skipped++
	}
	observability.ActionsExecuted.WithLabelValues(string(status)).Inc()

	r.recordAudit(ctx, rule, action)
}

func (r *Runner) recordAudit(ctx context.Context, rule Rule, action *Action) {
	entry := audit.Entry{
		ID:             uuid.NewString(),
		OrganizationID: rule.OrganizationID,
		ActorType:      audit.ActorSystem,
		ActorLabel:     "rules-worker",
		EventType:      audit.EventRuleActionCreated,
		EntityType:     audit.EntityAction,
		EntityID:       action.ID,
		Details: map[string]any{
			"ruleId":   rule.ID,
			"ruleName": rule.Name,
			"adsetId":  action.TargetRef,
			"status":   action.Status,
			"summary":  action.Summary,
			"result":   action.ResultMessage,
		},
		At: r.now(),
	}
	if err := r.sink.Record(ctx, entry); err != nil {
		log.Error().Err(err).Str("action_id", action.ID).Msg("audit record failed")
	}
}
