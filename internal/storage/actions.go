package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ads-autopilot/internal/engine"
)

// CreateAction inserts the action if its idempotency key is unseen. The
// insert-if-absent is a single statement, so two concurrent passes can race
// on the same bucket and exactly one wins; the loser sees created=false.
func (s *Store) CreateAction(ctx context.Context, a *engine.Action) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	kpi, err := json.Marshal(a.KPI)
	if err != nil {
		return false, fmt.Errorf("marshal kpi snapshot: %w", err)
	}

	ct, err := s.pool.Exec(ctx, `
		INSERT INTO actions (id, organization_id, rule_id, action_type, target_ref,
		                     summary, kpi_snapshot, idempotency_key, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, a.ID, a.OrganizationID, a.RuleID, string(a.ActionType), a.TargetRef,
		a.Summary, kpi, a.IdempotencyKey, string(a.Status), a.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert action: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// FinishAction transitions a PENDING action to a terminal state. The status
// guard in the WHERE clause makes the transition happen at most once.
func (s *Store) FinishAction(ctx context.Context, actionID string, status engine.ActionStatus, message string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ct, err := s.pool.Exec(ctx, `
		UPDATE actions
		SET status = $2, result_message = $3, executed_at = $4
		WHERE id = $1 AND status = 'PENDING'
	`, actionID, string(status), message, at)
	if err != nil {
		return fmt.Errorf("finish action: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("action %s is not pending", actionID)
	}
	return nil
}

// LatestActionFor returns the newest action for (rule, target) by creation
// time, nil when the pair has no history.
func (s *Store) LatestActionFor(ctx context.Context, ruleID, targetRef string) (*engine.Action, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := s.pool.QueryRow(ctx, actionSelect+`
		WHERE rule_id = $1 AND target_ref = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, ruleID, targetRef)

	a, err := scanAction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest action: %w", err)
	}
	return a, nil
}

// ReduceActionsSince returns the REDUCE_BUDGET actions counted against the
// daily budget cap: PENDING or SUCCESS, created at or after the given time.
func (s *Store) ReduceActionsSince(ctx context.Context, ruleID, targetRef string, since time.Time) ([]engine.Action, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx, actionSelect+`
		WHERE rule_id = $1 AND target_ref = $2
		  AND action_type = 'REDUCE_BUDGET'
		  AND status IN ('PENDING', 'SUCCESS')
		  AND created_at >= $3
		ORDER BY created_at
	`, ruleID, targetRef, since)
	if err != nil {
		return nil, fmt.Errorf("query reduce actions: %w", err)
	}
	defer rows.Close()

	return collectActions(rows)
}

// ListActions returns the most recent actions for an organization, newest
// first, for the inspection API.
func (s *Store) ListActions(ctx context.Context, orgID string, limit int) ([]engine.Action, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx, actionSelect+`
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	return collectActions(rows)
}

const actionSelect = `
	SELECT id, organization_id, rule_id, action_type, target_ref, summary,
	       kpi_snapshot, idempotency_key, status, result_message, created_at, executed_at
	FROM actions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAction(row rowScanner) (*engine.Action, error) {
	var a engine.Action
	var actionType, status string
	var kpi []byte
	if err := row.Scan(&a.ID, &a.OrganizationID, &a.RuleID, &actionType, &a.TargetRef,
		&a.Summary, &kpi, &a.IdempotencyKey, &status, &a.ResultMessage,
		&a.CreatedAt, &a.ExecutedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(kpi, &a.KPI); err != nil {
		return nil, fmt.Errorf("decode kpi snapshot: %w", err)
	}
	a.ActionType = engine.ActionType(actionType)
	a.Status = engine.ActionStatus(status)
	return &a, nil
}

func collectActions(rows pgx.Rows) ([]engine.Action, error) {
	var out []engine.Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
