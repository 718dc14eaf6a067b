// Package audit delivers structured records of rule matches and executed
// actions to an external sink. Delivery is best-effort from the engine's
// point of view: a sink failure is logged, never propagated into the pass.
package audit

import (
	"context"
	"time"
)

// Entry is one audit record.
type Entry struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organizationId"`
	ActorType      string         `json:"actorType"`
	ActorLabel     string         `json:"actorLabel"`
	EventType      string         `json:"eventType"`
	EntityType     string         `json:"entityType"`
	EntityID       string         `json:"entityId"`
	Details        map[string]any `json:"details,omitempty"`
	At             time.Time      `json:"at"`
}

const (
	ActorSystem = "SYSTEM"

	EventRuleActionCreated = "RULE_ACTION_CREATED"
	EntityAction           = "ACTION"
)

// Sink receives audit entries.
type Sink interface {
	Record(ctx context.Context, e Entry) error
}
