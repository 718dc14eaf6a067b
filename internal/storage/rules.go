package storage

import (
	"context"
	"fmt"
	"time"

	"ads-autopilot/internal/engine"
)

// ListEnabledRules loads the enabled rules for an organization.
func (s *Store) ListEnabledRules(ctx context.Context, orgID string) ([]engine.Rule, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, organization_id, name, description, type, is_enabled, auto_apply,
		       max_budget_change_per_day, cooldown_hours,
		       scope_type, scope_ids, apply_to_all, config_json
		FROM rules
		WHERE organization_id = $1 AND is_enabled
		ORDER BY created_at
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out []engine.Rule
	for rows.Next() {
		var r engine.Rule
		var typ, scope string
		if err := rows.Scan(&r.ID, &r.OrganizationID, &r.Name, &r.Description, &typ,
			&r.IsEnabled, &r.AutoApply, &r.MaxBudgetChangePerDay, &r.CooldownHours,
			&scope, &r.ScopeIDs, &r.ApplyToAll, &r.ConfigJSON); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		r.Type = engine.RuleType(typ)
		r.ScopeType = engine.ScopeType(scope)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListOrganizations returns the ids of organizations that have at least one
// enabled rule, for the scheduler to iterate.
func (s *Store) ListOrganizations(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT organization_id FROM rules WHERE is_enabled ORDER BY organization_id`)
	if err != nil {
		return nil, fmt.Errorf("query organizations: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan organization id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
